// Package exam contains the Exam aggregate: a gradeable event scoping a
// modality, a date, and the set of competences it evaluates. This is core
// business logic with no infrastructure dependencies.
package exam

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENUMS
// ══════════════════════════════════════════════════════════════════════════════

// AssessmentType classifies how an exam is conducted. It is a closed enum:
// unknown values are rejected at construction, not stored.
type AssessmentType string

const (
	TypeSimulation  AssessmentType = "simulation"
	TypePractical   AssessmentType = "practical"
	TypeTheoretical AssessmentType = "theoretical"
	TypeMixed       AssessmentType = "mixed"
)

// IsValid checks if the assessment type is one of the known variants.
func (t AssessmentType) IsValid() bool {
	switch t {
	case TypeSimulation, TypePractical, TypeTheoretical, TypeMixed:
		return true
	}
	return false
}

// String returns the string representation.
func (t AssessmentType) String() string {
	return string(t)
}

// ParseAssessmentType parses a string into an AssessmentType.
func ParseAssessmentType(s string) (AssessmentType, error) {
	t := AssessmentType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", shared.ErrInvalidExamType
	}
	return t, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EXAM AGGREGATE
// ══════════════════════════════════════════════════════════════════════════════

// Exam represents a graded event. Exams are never hard-deleted: deactivation
// is the terminal state for grading purposes, while historical grades stay
// valid and queryable. Grades reference exams by ID, not by containment, so
// grading throughput is not serialized behind exam mutation.
type Exam struct {
	// ID is the generated unique identifier (UUID).
	ID shared.ID

	// Name is the human-readable exam name (trimmed, non-empty).
	Name string

	// ModalityID references the competition discipline this exam belongs to.
	ModalityID shared.ID

	// Type is the assessment type (simulation, practical, theoretical, mixed).
	Type AssessmentType

	// ExamDate is when the exam takes place.
	ExamDate time.Time

	// Description is optional free text.
	Description string

	// CompetenceIDs is the ordered set of competences this exam evaluates.
	// Membership matters, insertion order does not; duplicates are invalid.
	CompetenceIDs []shared.ID

	// IsActive controls whether new grades may be registered.
	IsActive bool

	// CreatedBy references the evaluator or admin who created the exam.
	CreatedBy shared.ID

	// CreatedAt / UpdatedAt are bookkeeping timestamps.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewExamParams contains parameters for creating a new Exam.
type NewExamParams struct {
	Name          string
	ModalityID    shared.ID
	Type          AssessmentType
	ExamDate      time.Time
	Description   string
	CompetenceIDs []shared.ID
	CreatedBy     shared.ID
}

// NewExam creates a new Exam with a generated ID and validation.
func NewExam(params NewExamParams) (*Exam, error) {
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, shared.ErrExamNameEmpty
	}
	if params.ModalityID.IsEmpty() {
		return nil, shared.NewDomainError("exam", "Create", shared.ErrInvalidID, "modality ID is required")
	}
	if !params.Type.IsValid() {
		return nil, shared.ErrInvalidExamType
	}
	if params.ExamDate.IsZero() {
		return nil, shared.ErrInvalidExamDate
	}
	if params.CreatedBy.IsEmpty() {
		return nil, shared.NewDomainError("exam", "Create", shared.ErrInvalidID, "creator ID is required")
	}

	competences, err := dedupeCompetences(params.CompetenceIDs)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Exam{
		ID:            shared.ID(uuid.NewString()),
		Name:          name,
		ModalityID:    params.ModalityID,
		Type:          params.Type,
		ExamDate:      params.ExamDate,
		Description:   strings.TrimSpace(params.Description),
		CompetenceIDs: competences,
		IsActive:      true,
		CreatedBy:     params.CreatedBy,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// dedupeCompetences validates the no-duplicates invariant while keeping
// the caller's order.
func dedupeCompetences(ids []shared.ID) ([]shared.ID, error) {
	seen := make(map[shared.ID]struct{}, len(ids))
	result := make([]shared.ID, 0, len(ids))
	for _, id := range ids {
		if id.IsEmpty() {
			return nil, shared.NewDomainError("exam", "Create", shared.ErrInvalidID, "competence ID cannot be empty")
		}
		if _, dup := seen[id]; dup {
			return nil, shared.NewDomainError("exam", "Create", shared.ErrInvalidInput, "duplicate competence ID: "+id.String())
		}
		seen[id] = struct{}{}
		result = append(result, id)
	}
	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BEHAVIOR
// ══════════════════════════════════════════════════════════════════════════════

// UpdateParams contains the mutable fields of an exam.
// Nil pointers mean "leave unchanged".
type UpdateParams struct {
	Name        *string
	Description *string
	ExamDate    *time.Time
	Type        *AssessmentType
}

// Update applies the given changes with validation.
func (e *Exam) Update(params UpdateParams) error {
	if params.Name != nil {
		name := strings.TrimSpace(*params.Name)
		if name == "" {
			return shared.ErrExamNameEmpty
		}
		e.Name = name
	}
	if params.Description != nil {
		e.Description = strings.TrimSpace(*params.Description)
	}
	if params.ExamDate != nil {
		if params.ExamDate.IsZero() {
			return shared.ErrInvalidExamDate
		}
		e.ExamDate = *params.ExamDate
	}
	if params.Type != nil {
		if !params.Type.IsValid() {
			return shared.ErrInvalidExamType
		}
		e.Type = *params.Type
	}
	e.UpdatedAt = time.Now().UTC()
	return nil
}

// HasCompetence reports whether the given competence is evaluated by this
// exam. This is the single source of truth consulted by the grading
// workflow for the competence scope check.
func (e *Exam) HasCompetence(id shared.ID) bool {
	for _, c := range e.CompetenceIDs {
		if c == id {
			return true
		}
	}
	return false
}

// HasExplicitCompetences reports whether the exam declares an explicit
// competence list. An empty list means the exam falls back to
// modality-level competence validation.
func (e *Exam) HasExplicitCompetences() bool {
	return len(e.CompetenceIDs) > 0
}

// AddCompetence adds a competence to the exam. Idempotent: returns false
// if the competence is already present.
func (e *Exam) AddCompetence(id shared.ID) (bool, error) {
	if id.IsEmpty() {
		return false, shared.NewDomainError("exam", "AddCompetence", shared.ErrInvalidID, "competence ID cannot be empty")
	}
	if e.HasCompetence(id) {
		return false, nil
	}
	e.CompetenceIDs = append(e.CompetenceIDs, id)
	e.UpdatedAt = time.Now().UTC()
	return true, nil
}

// RemoveCompetence removes a competence from the exam. Idempotent: returns
// false if the competence was not present.
func (e *Exam) RemoveCompetence(id shared.ID) bool {
	for i, c := range e.CompetenceIDs {
		if c == id {
			e.CompetenceIDs = append(e.CompetenceIDs[:i], e.CompetenceIDs[i+1:]...)
			e.UpdatedAt = time.Now().UTC()
			return true
		}
	}
	return false
}

// Activate re-enables grade registration for this exam.
func (e *Exam) Activate() bool {
	if e.IsActive {
		return false
	}
	e.IsActive = true
	e.UpdatedAt = time.Now().UTC()
	return true
}

// Deactivate blocks new grade registration and update. Existing grades
// remain valid and queryable.
func (e *Exam) Deactivate() bool {
	if !e.IsActive {
		return false
	}
	e.IsActive = false
	e.UpdatedAt = time.Now().UTC()
	return true
}

// String returns a short human-readable representation.
func (e *Exam) String() string {
	return fmt.Sprintf("Exam{%s %q %s active=%t competences=%d}",
		e.ID, e.Name, e.Type, e.IsActive, len(e.CompetenceIDs))
}

// Clone returns a deep copy of the exam.
func (e *Exam) Clone() *Exam {
	clone := *e
	clone.CompetenceIDs = make([]shared.ID, len(e.CompetenceIDs))
	copy(clone.CompetenceIDs, e.CompetenceIDs)
	return &clone
}
