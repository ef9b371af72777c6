package exam

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

func newID() shared.ID {
	return shared.ID(uuid.NewString())
}

func validParams() NewExamParams {
	return NewExamParams{
		Name:       "Welding Finals",
		ModalityID: newID(),
		Type:       TypePractical,
		ExamDate:   time.Date(2026, 9, 15, 9, 0, 0, 0, time.UTC),
		CreatedBy:  newID(),
	}
}

func TestParseAssessmentType(t *testing.T) {
	for _, raw := range []string{"simulation", "PRACTICAL", " Theoretical ", "mixed"} {
		parsed, err := ParseAssessmentType(raw)
		require.NoError(t, err, raw)
		assert.True(t, parsed.IsValid())
	}

	_, err := ParseAssessmentType("oral")
	assert.ErrorIs(t, err, shared.ErrInvalidExamType)

	_, err = ParseAssessmentType("")
	assert.ErrorIs(t, err, shared.ErrInvalidExamType)
}

func TestNewExam(t *testing.T) {
	params := validParams()
	params.Name = "  Welding Finals  "
	params.CompetenceIDs = []shared.ID{newID(), newID()}

	e, err := NewExam(params)
	require.NoError(t, err)

	assert.True(t, e.ID.IsValid())
	assert.Equal(t, "Welding Finals", e.Name)
	assert.True(t, e.IsActive)
	assert.Len(t, e.CompetenceIDs, 2)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestNewExamValidation(t *testing.T) {
	t.Run("empty name", func(t *testing.T) {
		params := validParams()
		params.Name = "   "
		_, err := NewExam(params)
		assert.ErrorIs(t, err, shared.ErrExamNameEmpty)
	})

	t.Run("invalid type", func(t *testing.T) {
		params := validParams()
		params.Type = AssessmentType("oral")
		_, err := NewExam(params)
		assert.ErrorIs(t, err, shared.ErrInvalidExamType)
	})

	t.Run("zero date", func(t *testing.T) {
		params := validParams()
		params.ExamDate = time.Time{}
		_, err := NewExam(params)
		assert.ErrorIs(t, err, shared.ErrInvalidExamDate)
	})

	t.Run("missing modality", func(t *testing.T) {
		params := validParams()
		params.ModalityID = ""
		_, err := NewExam(params)
		assert.ErrorIs(t, err, shared.ErrInvalidID)
	})

	t.Run("duplicate competences", func(t *testing.T) {
		dup := newID()
		params := validParams()
		params.CompetenceIDs = []shared.ID{dup, dup}
		_, err := NewExam(params)
		assert.ErrorIs(t, err, shared.ErrInvalidInput)
	})

	t.Run("empty competence id", func(t *testing.T) {
		params := validParams()
		params.CompetenceIDs = []shared.ID{""}
		_, err := NewExam(params)
		assert.ErrorIs(t, err, shared.ErrInvalidID)
	})
}

func TestExamUpdate(t *testing.T) {
	e, err := NewExam(validParams())
	require.NoError(t, err)

	newName := "CAD Finals"
	newType := TypeMixed
	require.NoError(t, e.Update(UpdateParams{Name: &newName, Type: &newType}))
	assert.Equal(t, "CAD Finals", e.Name)
	assert.Equal(t, TypeMixed, e.Type)

	empty := " "
	assert.ErrorIs(t, e.Update(UpdateParams{Name: &empty}), shared.ErrExamNameEmpty)
	// Failed update leaves the previous name in place.
	assert.Equal(t, "CAD Finals", e.Name)
}

func TestExamCompetenceSet(t *testing.T) {
	e, err := NewExam(validParams())
	require.NoError(t, err)
	assert.False(t, e.HasExplicitCompetences())

	c := newID()
	added, err := e.AddCompetence(c)
	require.NoError(t, err)
	assert.True(t, added)
	assert.True(t, e.HasCompetence(c))
	assert.True(t, e.HasExplicitCompetences())

	// Idempotent re-add.
	added, err = e.AddCompetence(c)
	require.NoError(t, err)
	assert.False(t, added)
	assert.Len(t, e.CompetenceIDs, 1)

	assert.True(t, e.RemoveCompetence(c))
	assert.False(t, e.HasCompetence(c))
	assert.False(t, e.RemoveCompetence(c))
}

func TestExamActivation(t *testing.T) {
	e, err := NewExam(validParams())
	require.NoError(t, err)

	// Already active.
	assert.False(t, e.Activate())

	assert.True(t, e.Deactivate())
	assert.False(t, e.IsActive)
	assert.False(t, e.Deactivate())

	assert.True(t, e.Activate())
	assert.True(t, e.IsActive)
}

func TestExamClone(t *testing.T) {
	e, err := NewExam(validParams())
	require.NoError(t, err)
	_, err = e.AddCompetence(newID())
	require.NoError(t, err)

	clone := e.Clone()
	_, err = clone.AddCompetence(newID())
	require.NoError(t, err)

	assert.Len(t, e.CompetenceIDs, 1)
	assert.Len(t, clone.CompetenceIDs, 2)
}
