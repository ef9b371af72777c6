package grade

import (
	"time"

	"github.com/google/uuid"

	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT LOG
// ══════════════════════════════════════════════════════════════════════════════

// AuditAction classifies what happened to a grade. Closed enum.
type AuditAction string

const (
	ActionCreated AuditAction = "created"
	ActionUpdated AuditAction = "updated"
	ActionDeleted AuditAction = "deleted"
)

// IsValid checks if the action is one of the known variants.
func (a AuditAction) IsValid() bool {
	switch a {
	case ActionCreated, ActionUpdated, ActionDeleted:
		return true
	}
	return false
}

// String returns the string representation.
func (a AuditAction) String() string {
	return string(a)
}

// AuditEntry is an immutable, append-only record of a grade mutation.
// Entries are created exclusively through the factory constructors below
// and never modified after persistence. They outlive their Grade: even
// administrative deletion leaves the full trail in place.
type AuditEntry struct {
	// ID is the generated unique identifier (UUID).
	ID shared.ID

	// GradeID references the grade this entry belongs to.
	GradeID shared.ID

	// Action is what happened (created, updated, deleted).
	Action AuditAction

	// ChangedBy is the evaluator who performed the action.
	ChangedBy shared.ID

	// OldScore / NewScore capture the score transition. Nil means
	// "no value on that side" (e.g. OldScore is nil for creation).
	OldScore *float64
	NewScore *float64

	// OldNotes / NewNotes capture the notes transition.
	OldNotes *string
	NewNotes *string

	// IPAddress / UserAgent are optional request metadata.
	IPAddress string
	UserAgent string

	// ChangedAt is set once at creation and used to order history replay.
	ChangedAt time.Time
}

// NewCreatedEntry builds the audit entry for a freshly registered grade,
// capturing its initial score and notes.
func NewCreatedEntry(g *Grade, meta shared.RequestMeta) *AuditEntry {
	score := g.Score.Value()
	entry := &AuditEntry{
		ID:        shared.ID(uuid.NewString()),
		GradeID:   g.ID,
		Action:    ActionCreated,
		ChangedBy: g.CreatedBy,
		NewScore:  &score,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		ChangedAt: time.Now().UTC(),
	}
	if g.Notes != "" {
		notes := g.Notes
		entry.NewNotes = &notes
	}
	return entry
}

// NewUpdatedEntry builds the audit entry for a grade update. The entry
// always carries a full before/after pair: fields that did not change are
// carried forward with their current value, so history replay never has to
// join against earlier entries.
func NewUpdatedEntry(g *Grade, oldScore float64, oldNotes string, changedBy shared.ID, meta shared.RequestMeta) *AuditEntry {
	newScore := g.Score.Value()
	newNotes := g.Notes
	return &AuditEntry{
		ID:        shared.ID(uuid.NewString()),
		GradeID:   g.ID,
		Action:    ActionUpdated,
		ChangedBy: changedBy,
		OldScore:  &oldScore,
		NewScore:  &newScore,
		OldNotes:  &oldNotes,
		NewNotes:  &newNotes,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		ChangedAt: time.Now().UTC(),
	}
}

// NewDeletedEntry builds the audit entry for administrative grade deletion,
// capturing the last known score and notes.
func NewDeletedEntry(g *Grade, deletedBy shared.ID, meta shared.RequestMeta) *AuditEntry {
	score := g.Score.Value()
	notes := g.Notes
	return &AuditEntry{
		ID:        shared.ID(uuid.NewString()),
		GradeID:   g.ID,
		Action:    ActionDeleted,
		ChangedBy: deletedBy,
		OldScore:  &score,
		OldNotes:  &notes,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		ChangedAt: time.Now().UTC(),
	}
}
