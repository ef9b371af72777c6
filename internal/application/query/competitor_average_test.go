package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

func TestCompetitorAverage(t *testing.T) {
	competitor := newID()
	examID := newID()

	repo := &stubGradeRepo{grades: []*grade.Grade{
		buildGrade(t, examID, competitor, newID(), 80),
		buildGrade(t, examID, competitor, newID(), 90),
		buildGrade(t, examID, newID(), newID(), 10),
	}}
	directory := &stubDirectory{known: map[shared.ID]bool{competitor: true}}

	h := NewCompetitorAverageHandler(repo, directory)
	result, err := h.Handle(context.Background(), CompetitorAverageQuery{CompetitorID: competitor.String()})
	require.NoError(t, err)

	require.NotNil(t, result.Average)
	assert.Equal(t, 85.0, *result.Average)
}

func TestCompetitorAverageByCompetence(t *testing.T) {
	competitor := newID()
	competence := newID()
	examID := newID()

	repo := &stubGradeRepo{grades: []*grade.Grade{
		buildGrade(t, examID, competitor, competence, 60),
		buildGrade(t, examID, competitor, newID(), 100),
	}}
	directory := &stubDirectory{known: map[shared.ID]bool{competitor: true}}

	h := NewCompetitorAverageHandler(repo, directory)
	result, err := h.Handle(context.Background(), CompetitorAverageQuery{
		CompetitorID: competitor.String(),
		CompetenceID: competence.String(),
	})
	require.NoError(t, err)

	require.NotNil(t, result.Average)
	assert.Equal(t, 60.0, *result.Average)
}

func TestCompetitorAverageNoGrades(t *testing.T) {
	competitor := newID()
	directory := &stubDirectory{known: map[shared.ID]bool{competitor: true}}

	h := NewCompetitorAverageHandler(&stubGradeRepo{}, directory)
	result, err := h.Handle(context.Background(), CompetitorAverageQuery{CompetitorID: competitor.String()})
	require.NoError(t, err)

	// No grades means no average, not 0.0.
	assert.Nil(t, result.Average)
}

func TestCompetitorAverageUnknownCompetitor(t *testing.T) {
	h := NewCompetitorAverageHandler(&stubGradeRepo{}, &stubDirectory{known: map[shared.ID]bool{}})
	_, err := h.Handle(context.Background(), CompetitorAverageQuery{CompetitorID: newID().String()})
	assert.ErrorIs(t, err, shared.ErrCompetitorNotFound)
}

func TestExamCompetitorSummary(t *testing.T) {
	competitor := newID()
	c1, c2 := newID(), newID()
	ex := buildExam(t, c1, c2)

	repo := &stubGradeRepo{grades: []*grade.Grade{
		buildGrade(t, ex.ID, competitor, c1, 80),
		buildGrade(t, ex.ID, competitor, c2, 60),
	}}
	directory := &stubDirectory{known: map[shared.ID]bool{competitor: true}}

	h := NewExamCompetitorSummaryHandler(newStubExamRepo(ex), repo, directory)
	result, err := h.Handle(context.Background(), ExamCompetitorSummaryQuery{
		ExamID:       ex.ID.String(),
		CompetitorID: competitor.String(),
		Weights:      map[string]float64{c1.String(): 3.0},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Count)
	require.NotNil(t, result.Average)
	assert.Equal(t, 70.0, *result.Average)

	// c1 weighs 3.0, c2 defaults to 1.0: (80*3 + 60*1) / 4 = 75.
	require.NotNil(t, result.WeightedAverage)
	assert.Equal(t, 75.0, *result.WeightedAverage)
}

func TestExamCompetitorSummaryNoGrades(t *testing.T) {
	competitor := newID()
	ex := buildExam(t)
	directory := &stubDirectory{known: map[shared.ID]bool{competitor: true}}

	h := NewExamCompetitorSummaryHandler(newStubExamRepo(ex), &stubGradeRepo{}, directory)
	result, err := h.Handle(context.Background(), ExamCompetitorSummaryQuery{
		ExamID:       ex.ID.String(),
		CompetitorID: competitor.String(),
	})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Count)
	assert.Nil(t, result.Average)
	assert.Nil(t, result.WeightedAverage)
}

func TestWeightedAverage(t *testing.T) {
	competitor := newID()
	c1, c2 := newID(), newID()
	examID := newID()

	repo := &stubGradeRepo{grades: []*grade.Grade{
		buildGrade(t, examID, competitor, c1, 100),
		buildGrade(t, examID, competitor, c2, 50),
	}}

	h := NewWeightedAverageHandler(repo)

	t.Run("explicit weights", func(t *testing.T) {
		avg, err := h.Handle(context.Background(), WeightedAverageQuery{
			CompetitorID: competitor.String(),
			ExamID:       examID.String(),
			Weights: map[string]float64{
				c1.String(): 1.0,
				c2.String(): 3.0,
			},
		})
		require.NoError(t, err)
		require.NotNil(t, avg)
		assert.Equal(t, 62.5, *avg)
	})

	t.Run("missing weights default to one", func(t *testing.T) {
		avg, err := h.Handle(context.Background(), WeightedAverageQuery{
			CompetitorID: competitor.String(),
			ExamID:       examID.String(),
		})
		require.NoError(t, err)
		require.NotNil(t, avg)
		assert.Equal(t, 75.0, *avg)
	})

	t.Run("zero total weight yields no answer", func(t *testing.T) {
		avg, err := h.Handle(context.Background(), WeightedAverageQuery{
			CompetitorID: competitor.String(),
			ExamID:       examID.String(),
			Weights: map[string]float64{
				c1.String(): 0.0,
				c2.String(): 0.0,
			},
		})
		require.NoError(t, err)
		assert.Nil(t, avg)
	})

	t.Run("no grades yields no answer", func(t *testing.T) {
		avg, err := h.Handle(context.Background(), WeightedAverageQuery{
			CompetitorID: newID().String(),
			ExamID:       examID.String(),
		})
		require.NoError(t, err)
		assert.Nil(t, avg)
	})
}
