package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

func TestExamRanking(t *testing.T) {
	c1, c2 := newID(), newID()
	ex := buildExam(t, c1, c2)

	first := newID()
	tiedA := newID()
	tiedB := newID()
	last := newID()

	repo := &stubGradeRepo{grades: []*grade.Grade{
		buildGrade(t, ex.ID, first, c1, 95),
		buildGrade(t, ex.ID, first, c2, 85),

		buildGrade(t, ex.ID, tiedA, c1, 80),
		buildGrade(t, ex.ID, tiedB, c1, 80),

		buildGrade(t, ex.ID, last, c1, 40),
	}}

	h := NewExamRankingHandler(newStubExamRepo(ex), repo)
	result, err := h.Handle(context.Background(), ExamRankingQuery{ExamID: ex.ID.String()})
	require.NoError(t, err)
	require.Len(t, result.Entries, 4)

	// Tied averages share a position and the next one skips: 1, 2, 2, 4.
	assert.Equal(t, 1, result.Entries[0].Position)
	assert.Equal(t, first.String(), result.Entries[0].CompetitorID)
	assert.Equal(t, 90.0, result.Entries[0].Average)
	assert.Equal(t, 2, result.Entries[0].GradeCount)

	assert.Equal(t, 2, result.Entries[1].Position)
	assert.Equal(t, 2, result.Entries[2].Position)
	assert.Equal(t, 80.0, result.Entries[1].Average)
	assert.Equal(t, 80.0, result.Entries[2].Average)

	assert.Equal(t, 4, result.Entries[3].Position)
	assert.Equal(t, last.String(), result.Entries[3].CompetitorID)
}

func TestExamRankingLimit(t *testing.T) {
	c := newID()
	ex := buildExam(t, c)

	repo := &stubGradeRepo{grades: []*grade.Grade{
		buildGrade(t, ex.ID, newID(), c, 90),
		buildGrade(t, ex.ID, newID(), c, 80),
		buildGrade(t, ex.ID, newID(), c, 70),
	}}

	h := NewExamRankingHandler(newStubExamRepo(ex), repo)
	result, err := h.Handle(context.Background(), ExamRankingQuery{ExamID: ex.ID.String(), Limit: 2})
	require.NoError(t, err)
	require.Len(t, result.Entries, 2)
	assert.Equal(t, 90.0, result.Entries[0].Average)
	assert.Equal(t, 80.0, result.Entries[1].Average)
}

func TestExamRankingEmptyExam(t *testing.T) {
	ex := buildExam(t)
	h := NewExamRankingHandler(newStubExamRepo(ex), &stubGradeRepo{})
	result, err := h.Handle(context.Background(), ExamRankingQuery{ExamID: ex.ID.String()})
	require.NoError(t, err)
	assert.Empty(t, result.Entries)
}

func TestExamRankingExamNotFound(t *testing.T) {
	h := NewExamRankingHandler(newStubExamRepo(), &stubGradeRepo{})
	_, err := h.Handle(context.Background(), ExamRankingQuery{ExamID: newID().String()})
	assert.ErrorIs(t, err, shared.ErrExamNotFound)
}

func TestGradeHistory(t *testing.T) {
	competence := newID()
	ex := buildExam(t, competence)
	g := buildGrade(t, ex.ID, newID(), competence, 70)

	created := grade.NewCreatedEntry(g, shared.RequestMeta{})
	old := g.UpdateScore(mustScore(t, 85), newID())
	updated := grade.NewUpdatedEntry(g, old.Value(), g.Notes, g.UpdatedBy, shared.RequestMeta{})

	gradeRepo := &stubGradeRepo{grades: []*grade.Grade{g}}
	auditRepo := &stubAuditRepo{entries: []*grade.AuditEntry{created, updated}}

	h := NewGradeHistoryHandler(gradeRepo, auditRepo)
	result, err := h.Handle(context.Background(), GradeHistoryQuery{GradeID: g.ID.String()})
	require.NoError(t, err)

	require.Len(t, result.Entries, 2)
	assert.Equal(t, "created", result.Entries[0].Action)
	assert.Equal(t, "updated", result.Entries[1].Action)
	require.NotNil(t, result.Entries[1].OldScore)
	assert.Equal(t, 70.0, *result.Entries[1].OldScore)
}

func TestGradeHistoryGradeNotFound(t *testing.T) {
	h := NewGradeHistoryHandler(&stubGradeRepo{}, &stubAuditRepo{})
	_, err := h.Handle(context.Background(), GradeHistoryQuery{GradeID: newID().String()})
	assert.ErrorIs(t, err, shared.ErrGradeNotFound)
}

func mustScore(t *testing.T, v float64) shared.Score {
	t.Helper()
	s, err := shared.NewScore(v)
	require.NoError(t, err)
	return s
}
