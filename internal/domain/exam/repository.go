package exam

import (
	"context"
	"time"

	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXAM REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the persistence contract for exams. The implementation
// lives in the infrastructure layer (PostgreSQL); the domain only depends on
// this interface.
type Repository interface {
	// Create persists a new exam.
	Create(ctx context.Context, e *Exam) error

	// GetByID returns an exam by ID.
	// Returns shared.ErrExamNotFound if no exam exists.
	GetByID(ctx context.Context, id shared.ID) (*Exam, error)

	// Update persists changes to an existing exam, including its
	// competence set and active flag.
	Update(ctx context.Context, e *Exam) error

	// List returns exams matching the filter, newest exam date first.
	List(ctx context.Context, filter Filter, page shared.Pagination) ([]*Exam, error)

	// Count returns the number of exams matching the filter.
	Count(ctx context.Context, filter Filter) (int, error)

	// Exists reports whether an exam with the given ID exists.
	Exists(ctx context.Context, id shared.ID) (bool, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// QUERY FILTER
// ══════════════════════════════════════════════════════════════════════════════

// Filter narrows exam listings. Zero values mean "no filter".
type Filter struct {
	// ModalityID filters by competition discipline.
	ModalityID shared.ID

	// CreatedBy filters by the creating evaluator/admin.
	CreatedBy shared.ID

	// DateRange filters by exam date.
	DateRange shared.TimeRange

	// OnlyActive excludes deactivated exams.
	OnlyActive bool
}

// WithModality sets the modality filter.
func (f Filter) WithModality(id shared.ID) Filter {
	f.ModalityID = id
	return f
}

// WithCreator sets the creator filter.
func (f Filter) WithCreator(id shared.ID) Filter {
	f.CreatedBy = id
	return f
}

// WithDateRange sets the exam date filter.
func (f Filter) WithDateRange(from, to time.Time) Filter {
	f.DateRange = shared.TimeRange{From: from, To: to}
	return f
}

// WithOnlyActive excludes deactivated exams.
func (f Filter) WithOnlyActive() Filter {
	f.OnlyActive = true
	return f
}
