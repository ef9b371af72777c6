package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skills-hub/assessment-core/internal/domain/exam"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

func evaluatorPrincipal() shared.Principal {
	return shared.Principal{UserID: newID(), Role: shared.RoleEvaluator}
}

func TestCreateExam(t *testing.T) {
	repo := newFakeExamRepo()
	publisher := &fakePublisher{}
	h := NewCreateExamHandler(repo, publisher)

	result, err := h.Handle(context.Background(), CreateExamCommand{
		Name:           "Welding Finals",
		ModalityID:     newID().String(),
		AssessmentType: "practical",
		ExamDate:       time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC),
		CompetenceIDs:  []string{newID().String(), newID().String()},
		Principal:      evaluatorPrincipal(),
	})
	require.NoError(t, err)

	assert.Equal(t, "Welding Finals", result.Exam.Name)
	assert.Equal(t, exam.TypePractical, result.Exam.Type)
	assert.True(t, result.Exam.IsActive)
	assert.Len(t, result.Exam.CompetenceIDs, 2)

	stored, err := repo.GetByID(context.Background(), result.Exam.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Exam.Name, stored.Name)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventExamCreated, publisher.events[0].EventType())
}

func TestCreateExamForbiddenForCompetitors(t *testing.T) {
	h := NewCreateExamHandler(newFakeExamRepo(), nil)

	_, err := h.Handle(context.Background(), CreateExamCommand{
		Name:           "Welding Finals",
		ModalityID:     newID().String(),
		AssessmentType: "practical",
		ExamDate:       time.Now(),
		Principal:      shared.Principal{UserID: newID(), Role: shared.RoleCompetitor},
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCreateExamInvalidType(t *testing.T) {
	h := NewCreateExamHandler(newFakeExamRepo(), nil)

	_, err := h.Handle(context.Background(), CreateExamCommand{
		Name:           "Welding Finals",
		ModalityID:     newID().String(),
		AssessmentType: "oral",
		ExamDate:       time.Now(),
		Principal:      evaluatorPrincipal(),
	})
	assert.ErrorIs(t, err, shared.ErrInvalidExamType)
}

func TestUpdateExam(t *testing.T) {
	f := newGradingFixture(t)
	h := NewUpdateExamHandler(f.examRepo, nil)

	newName := "CAD Finals"
	newType := "mixed"
	updated, err := h.Handle(context.Background(), UpdateExamCommand{
		ExamID:         f.exam.ID.String(),
		Name:           &newName,
		AssessmentType: &newType,
		Principal:      evaluatorPrincipal(),
	})
	require.NoError(t, err)
	assert.Equal(t, "CAD Finals", updated.Name)
	assert.Equal(t, exam.TypeMixed, updated.Type)

	// Nothing to update is rejected.
	_, err = h.Handle(context.Background(), UpdateExamCommand{
		ExamID:    f.exam.ID.String(),
		Principal: evaluatorPrincipal(),
	})
	assert.Error(t, err)
}

func TestSetExamCompetence(t *testing.T) {
	f := newGradingFixture(t)
	h := NewSetExamCompetenceHandler(f.examRepo)

	added := newID()
	changed, err := h.Handle(context.Background(), SetExamCompetenceCommand{
		ExamID:       f.exam.ID.String(),
		CompetenceID: added.String(),
		Principal:    evaluatorPrincipal(),
	})
	require.NoError(t, err)
	assert.True(t, changed)

	// Re-adding is a no-op.
	changed, err = h.Handle(context.Background(), SetExamCompetenceCommand{
		ExamID:       f.exam.ID.String(),
		CompetenceID: added.String(),
		Principal:    evaluatorPrincipal(),
	})
	require.NoError(t, err)
	assert.False(t, changed)

	changed, err = h.Handle(context.Background(), SetExamCompetenceCommand{
		ExamID:       f.exam.ID.String(),
		CompetenceID: added.String(),
		Remove:       true,
		Principal:    evaluatorPrincipal(),
	})
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestSetExamStatus(t *testing.T) {
	f := newGradingFixture(t)
	publisher := &fakePublisher{}
	h := NewSetExamStatusHandler(f.examRepo, publisher)

	changed, err := h.Handle(context.Background(), SetExamStatusCommand{
		ExamID:    f.exam.ID.String(),
		Active:    false,
		Principal: evaluatorPrincipal(),
	})
	require.NoError(t, err)
	assert.True(t, changed)

	stored, err := f.examRepo.GetByID(context.Background(), f.exam.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	require.Len(t, publisher.events, 1)
	assert.Equal(t, shared.EventExamDeactivated, publisher.events[0].EventType())

	// Deactivating again is a no-op and publishes nothing.
	changed, err = h.Handle(context.Background(), SetExamStatusCommand{
		ExamID:    f.exam.ID.String(),
		Active:    false,
		Principal: evaluatorPrincipal(),
	})
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, publisher.events, 1)
}

func TestDeleteGrade(t *testing.T) {
	f := newGradingFixture(t)
	g := registerGrade(t, f)

	h := NewDeleteGradeHandler(f.gradeRepo, f.publisher)
	admin := shared.Principal{UserID: newID(), Role: shared.RoleAdmin}

	require.NoError(t, h.Handle(context.Background(), DeleteGradeCommand{
		GradeID:   g.ID.String(),
		Principal: admin,
	}))

	_, err := f.gradeRepo.GetByID(context.Background(), g.ID)
	assert.ErrorIs(t, err, shared.ErrGradeNotFound)

	// The trail survives the grade: "created" plus "deleted".
	require.Len(t, f.gradeRepo.audits, 2)
	assert.Equal(t, admin.UserID, f.gradeRepo.audits[1].ChangedBy)

	require.Len(t, f.publisher.events, 2)
	assert.Equal(t, shared.EventGradeDeleted, f.publisher.events[1].EventType())
}

func TestDeleteGradeRequiresAdmin(t *testing.T) {
	f := newGradingFixture(t)
	g := registerGrade(t, f)

	h := NewDeleteGradeHandler(f.gradeRepo, nil)
	err := h.Handle(context.Background(), DeleteGradeCommand{
		GradeID:   g.ID.String(),
		Principal: evaluatorPrincipal(),
	})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = f.gradeRepo.GetByID(context.Background(), g.ID)
	assert.NoError(t, err)
}
