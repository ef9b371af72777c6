// Package grade contains the Grade aggregate and its append-only audit log.
// A grade is one competitor's score for one competence within one exam.
// This is core business logic with no infrastructure dependencies.
package grade

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE AGGREGATE
// ══════════════════════════════════════════════════════════════════════════════

// Grade represents one competitor's score for one competence within one exam.
// At most one grade may exist per (exam, competitor, competence) triple; the
// invariant is enforced by the registration workflow and a storage-level
// unique constraint, not by the entity itself.
type Grade struct {
	// ID is the generated unique identifier (UUID).
	ID shared.ID

	// ExamID references the exam this grade belongs to.
	ExamID shared.ID

	// CompetitorID references the graded competitor.
	CompetitorID shared.ID

	// CompetenceID references the graded competence.
	CompetenceID shared.ID

	// Score is the validated percentage score.
	Score shared.Score

	// Notes is optional evaluator commentary (trimmed).
	Notes string

	// CreatedBy is the evaluator who registered the grade.
	CreatedBy shared.ID

	// UpdatedBy is the last evaluator who touched the grade.
	// Defaults to CreatedBy.
	UpdatedBy shared.ID

	// CreatedAt / UpdatedAt are bookkeeping timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewGradeParams contains parameters for registering a new Grade.
type NewGradeParams struct {
	ExamID       shared.ID
	CompetitorID shared.ID
	CompetenceID shared.ID
	Score        shared.Score
	Notes        string
	CreatedBy    shared.ID
}

// NewGrade creates a new Grade with a generated ID and validation.
func NewGrade(params NewGradeParams) (*Grade, error) {
	if params.ExamID.IsEmpty() {
		return nil, shared.NewDomainError("grade", "Create", shared.ErrInvalidID, "exam ID is required")
	}
	if params.CompetitorID.IsEmpty() {
		return nil, shared.NewDomainError("grade", "Create", shared.ErrInvalidID, "competitor ID is required")
	}
	if params.CompetenceID.IsEmpty() {
		return nil, shared.NewDomainError("grade", "Create", shared.ErrInvalidID, "competence ID is required")
	}
	if params.CreatedBy.IsEmpty() {
		return nil, shared.NewDomainError("grade", "Create", shared.ErrInvalidID, "creator ID is required")
	}

	now := time.Now().UTC()
	return &Grade{
		ID:           shared.ID(uuid.NewString()),
		ExamID:       params.ExamID,
		CompetitorID: params.CompetitorID,
		CompetenceID: params.CompetenceID,
		Score:        params.Score,
		Notes:        strings.TrimSpace(params.Notes),
		CreatedBy:    params.CreatedBy,
		UpdatedBy:    params.CreatedBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BEHAVIOR
// ══════════════════════════════════════════════════════════════════════════════

// UpdateScore replaces the score and stamps the updating evaluator.
// Returns the prior score so the caller can build the audit entry.
func (g *Grade) UpdateScore(newScore shared.Score, updatedBy shared.ID) shared.Score {
	old := g.Score
	g.Score = newScore
	g.UpdatedBy = updatedBy
	g.UpdatedAt = time.Now().UTC()
	return old
}

// UpdateNotes replaces the notes and stamps the updating evaluator.
// Returns the prior notes so the caller can build the audit entry.
func (g *Grade) UpdateNotes(newNotes string, updatedBy shared.ID) string {
	old := g.Notes
	g.Notes = strings.TrimSpace(newNotes)
	g.UpdatedBy = updatedBy
	g.UpdatedAt = time.Now().UTC()
	return old
}

// Key returns the uniqueness triple for this grade.
func (g *Grade) Key() Key {
	return Key{
		ExamID:       g.ExamID,
		CompetitorID: g.CompetitorID,
		CompetenceID: g.CompetenceID,
	}
}

// String returns a short human-readable representation.
func (g *Grade) String() string {
	return fmt.Sprintf("Grade{%s exam=%s competitor=%s competence=%s score=%s}",
		g.ID, g.ExamID, g.CompetitorID, g.CompetenceID, g.Score)
}

// Clone returns a copy of the grade.
func (g *Grade) Clone() *Grade {
	clone := *g
	return &clone
}

// Key identifies a grade by its uniqueness triple.
type Key struct {
	ExamID       shared.ID
	CompetitorID shared.ID
	CompetenceID shared.ID
}

// String returns the triple in "exam/competitor/competence" form.
func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.ExamID, k.CompetitorID, k.CompetenceID)
}
