package grade

import (
	"context"

	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// Repository defines the persistence contract for grades. The implementation
// lives in the infrastructure layer (PostgreSQL).
//
// The *WithAudit write operations must execute both writes in one atomic
// transaction: a failure between the grade write and the audit write leaves
// neither persisted. The storage layer must additionally enforce the
// (exam, competitor, competence) unique constraint so that concurrent
// identical registrations cannot both succeed; the loser surfaces
// shared.ErrGradeAlreadyExists.
type Repository interface {
	// CreateWithAudit atomically persists a new grade and its "created"
	// audit entry. Returns shared.ErrGradeAlreadyExists when a grade for
	// the same (exam, competitor, competence) triple already exists.
	CreateWithAudit(ctx context.Context, g *Grade, entry *AuditEntry) error

	// UpdateWithAudit atomically persists grade changes and the matching
	// "updated" audit entry.
	UpdateWithAudit(ctx context.Context, g *Grade, entry *AuditEntry) error

	// DeleteWithAudit removes a grade and writes a "deleted" audit entry.
	// Exposed for administrative cleanup only; grades are never deleted
	// in the normal flow. The audit trail, including the final entry,
	// survives the deletion.
	DeleteWithAudit(ctx context.Context, id shared.ID, entry *AuditEntry) error

	// GetByID returns a grade by ID.
	// Returns shared.ErrGradeNotFound if no grade exists.
	GetByID(ctx context.Context, id shared.ID) (*Grade, error)

	// Exists reports whether a grade exists for the uniqueness triple.
	Exists(ctx context.Context, key Key) (bool, error)

	// ListByExam returns grades for an exam with pagination.
	ListByExam(ctx context.Context, examID shared.ID, page shared.Pagination) ([]*Grade, error)

	// ListByCompetitor returns a competitor's grades across exams.
	ListByCompetitor(ctx context.Context, competitorID shared.ID, page shared.Pagination) ([]*Grade, error)

	// ListByExamAndCompetitor returns one competitor's grades within one
	// exam. Small by construction (one per competence), so unpaginated.
	ListByExamAndCompetitor(ctx context.Context, examID, competitorID shared.ID) ([]*Grade, error)

	// ScoresByCompetence returns the raw score values for one competence
	// in one exam, for statistics. Snapshot read: not linearizable with
	// in-flight writes.
	ScoresByCompetence(ctx context.Context, examID, competenceID shared.ID) ([]float64, error)

	// ScoresByExam returns all raw score values in an exam, including
	// competences no longer on the exam's declared list.
	ScoresByExam(ctx context.Context, examID shared.ID) ([]float64, error)

	// CountByExam returns the number of grades in an exam.
	CountByExam(ctx context.Context, examID shared.ID) (int, error)

	// DistinctCompetitors returns the number of distinct graded
	// competitors in an exam.
	DistinctCompetitors(ctx context.Context, examID shared.ID) (int, error)

	// AverageForCompetitor returns the repository-computed mean of a
	// competitor's scores, optionally filtered by competence. Returns nil
	// when the competitor has no matching grades.
	AverageForCompetitor(ctx context.Context, competitorID, competenceID shared.ID) (*float64, error)
}

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT REPOSITORY INTERFACE
// ══════════════════════════════════════════════════════════════════════════════

// AuditRepository defines the append-only persistence contract for grade
// audit entries. Entries are never updated or deleted.
type AuditRepository interface {
	// Create appends an audit entry.
	Create(ctx context.Context, entry *AuditEntry) error

	// ListByGrade returns a grade's history ordered by ChangedAt ascending,
	// for history replay.
	ListByGrade(ctx context.Context, gradeID shared.ID) ([]*AuditEntry, error)

	// ListByUser returns entries produced by one evaluator, newest first.
	ListByUser(ctx context.Context, userID shared.ID, page shared.Pagination) ([]*AuditEntry, error)
}
