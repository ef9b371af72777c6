// Package enrollment contains the collaborator contracts the assessment core
// consumes but does not own: enrollment lookups, the competitor directory,
// and the competence/modality catalog. The surrounding platform implements
// these; the core only reads through them.
package enrollment

import (
	"context"
	"time"

	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT
// ══════════════════════════════════════════════════════════════════════════════

// Enrollment links a competitor to a modality and, optionally, to the
// evaluator responsible for that competitor.
type Enrollment struct {
	// ID is the enrollment identifier.
	ID shared.ID

	// CompetitorID references the enrolled competitor.
	CompetitorID shared.ID

	// ModalityID references the competition discipline.
	ModalityID shared.ID

	// EvaluatorID references the assigned evaluator. Empty when no
	// evaluator has been assigned yet.
	EvaluatorID shared.ID

	// EnrolledAt is when the enrollment was made.
	EnrolledAt time.Time
}

// HasAssignedEvaluator reports whether an evaluator is assigned.
func (e *Enrollment) HasAssignedEvaluator() bool {
	return !e.EvaluatorID.IsEmpty()
}

// IsAssignedTo reports whether the given evaluator is this enrollment's
// assigned evaluator.
func (e *Enrollment) IsAssignedTo(evaluatorID shared.ID) bool {
	return e.HasAssignedEvaluator() && e.EvaluatorID == evaluatorID
}

// ══════════════════════════════════════════════════════════════════════════════
// LOOKUP CONTRACTS
// ══════════════════════════════════════════════════════════════════════════════

// Lookup resolves enrollments for the grading workflow's authorization
// checks.
type Lookup interface {
	// GetByCompetitorAndModality returns the enrollment for a competitor
	// within a modality. Returns shared.ErrEnrollmentNotFound if the
	// competitor is not enrolled there.
	GetByCompetitorAndModality(ctx context.Context, competitorID, modalityID shared.ID) (*Enrollment, error)

	// GetByEvaluator returns all enrollments an evaluator is assigned to.
	// Used to grant modality-wide grading rights: holding any enrollment
	// in a modality authorizes grading within it.
	GetByEvaluator(ctx context.Context, evaluatorID shared.ID) ([]*Enrollment, error)
}

// CompetitorDirectory answers competitor existence checks for the read paths.
type CompetitorDirectory interface {
	// Exists reports whether the competitor is known to the platform.
	Exists(ctx context.Context, competitorID shared.ID) (bool, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPETENCE / MODALITY CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Competence is a gradable sub-skill within a modality.
type Competence struct {
	ID         shared.ID
	ModalityID shared.ID
	Name       string
}

// BelongsTo reports whether the competence belongs to the given modality.
func (c *Competence) BelongsTo(modalityID shared.ID) bool {
	return c.ModalityID == modalityID
}

// Modality is a competition discipline (e.g. welding, CAD).
type Modality struct {
	ID   shared.ID
	Name string
}

// Catalog resolves competences and modalities. Only consulted by the
// grading workflow's fallback scope check when an exam declares no explicit
// competence list; a nil catalog skips that fallback.
type Catalog interface {
	// GetCompetence returns a competence by ID.
	// Returns shared.ErrCompetenceNotFound if unknown.
	GetCompetence(ctx context.Context, id shared.ID) (*Competence, error)

	// GetModality returns a modality by ID.
	// Returns shared.ErrModalityNotFound if unknown.
	GetModality(ctx context.Context, id shared.ID) (*Modality, error)
}
