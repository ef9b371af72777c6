package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/skills-hub/assessment-core/internal/domain/exam"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXAM REPOSITORY (PostgreSQL)
// ══════════════════════════════════════════════════════════════════════════════

// ExamRepository implements exam.Repository backed by PostgreSQL.
// The competence set lives in exam_competences and is rewritten as a whole
// on update, in the same transaction as the exam row.
type ExamRepository struct {
	conn *Connection
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(conn *Connection) *ExamRepository {
	return &ExamRepository{conn: conn}
}

// Create persists a new exam with its competence set.
func (r *ExamRepository) Create(ctx context.Context, e *exam.Exam) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO exams (id, name, modality_id, assessment_type, exam_date,
			                   description, is_active, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			e.ID.String(), e.Name, e.ModalityID.String(), e.Type.String(), e.ExamDate,
			e.Description, e.IsActive, e.CreatedBy.String(), e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.NewDomainError("exam", "Create", shared.ErrAlreadyExists, "exam already exists")
			}
			return fmt.Errorf("postgres: insert exam: %w", err)
		}
		return insertCompetences(ctx, tx, e.ID, e.CompetenceIDs)
	})
}

// GetByID returns an exam with its competence set.
func (r *ExamRepository) GetByID(ctx context.Context, id shared.ID) (*exam.Exam, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT id, name, modality_id, assessment_type, exam_date,
		       description, is_active, created_by, created_at, updated_at
		FROM exams
		WHERE id = $1`,
		id.String(),
	)

	e, err := scanExam(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrExamNotFound
		}
		return nil, fmt.Errorf("postgres: get exam: %w", err)
	}

	e.CompetenceIDs, err = r.loadCompetences(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Update persists exam changes and rewrites the competence set atomically.
func (r *ExamRepository) Update(ctx context.Context, e *exam.Exam) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE exams
			SET name = $2, assessment_type = $3, exam_date = $4,
			    description = $5, is_active = $6, updated_at = $7
			WHERE id = $1`,
			e.ID.String(), e.Name, e.Type.String(), e.ExamDate,
			e.Description, e.IsActive, e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("postgres: update exam: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrExamNotFound
		}

		if _, err := tx.Exec(ctx,
			`DELETE FROM exam_competences WHERE exam_id = $1`, e.ID.String()); err != nil {
			return fmt.Errorf("postgres: clear exam competences: %w", err)
		}
		return insertCompetences(ctx, tx, e.ID, e.CompetenceIDs)
	})
}

// List returns exams matching the filter, newest exam date first.
func (r *ExamRepository) List(ctx context.Context, filter exam.Filter, page shared.Pagination) ([]*exam.Exam, error) {
	where, args := buildExamFilter(filter)
	args = append(args, page.Limit(), page.Offset())

	query := fmt.Sprintf(`
		SELECT id, name, modality_id, assessment_type, exam_date,
		       description, is_active, created_by, created_at, updated_at
		FROM exams
		%s
		ORDER BY exam_date DESC
		LIMIT $%d OFFSET $%d`,
		where, len(args)-1, len(args),
	)

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list exams: %w", err)
	}
	defer rows.Close()

	exams := make([]*exam.Exam, 0)
	for rows.Next() {
		e, err := scanExam(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan exam: %w", err)
		}
		exams = append(exams, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list exams: %w", err)
	}

	for _, e := range exams {
		e.CompetenceIDs, err = r.loadCompetences(ctx, e.ID)
		if err != nil {
			return nil, err
		}
	}
	return exams, nil
}

// Count returns the number of exams matching the filter.
func (r *ExamRepository) Count(ctx context.Context, filter exam.Filter) (int, error) {
	where, args := buildExamFilter(filter)

	var count int
	err := r.conn.QueryRow(ctx, `SELECT COUNT(*) FROM exams `+where, args...).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count exams: %w", err)
	}
	return count, nil
}

// Exists reports whether an exam with the given ID exists.
func (r *ExamRepository) Exists(ctx context.Context, id shared.ID) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM exams WHERE id = $1)`, id.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: exam exists: %w", err)
	}
	return exists, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────────────────────

// scanExam scans an exam row without its competence set.
func scanExam(row pgx.Row) (*exam.Exam, error) {
	var (
		e exam.Exam

		id, modalityID, assessmentType, createdBy string
	)
	err := row.Scan(&id, &e.Name, &modalityID, &assessmentType, &e.ExamDate,
		&e.Description, &e.IsActive, &createdBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.ID = shared.ID(id)
	e.ModalityID = shared.ID(modalityID)
	e.Type = exam.AssessmentType(assessmentType)
	e.CreatedBy = shared.ID(createdBy)
	return &e, nil
}

// loadCompetences returns the exam's competence IDs in declared order.
func (r *ExamRepository) loadCompetences(ctx context.Context, examID shared.ID) ([]shared.ID, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT competence_id
		FROM exam_competences
		WHERE exam_id = $1
		ORDER BY position`,
		examID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: load exam competences: %w", err)
	}
	defer rows.Close()

	ids := make([]shared.ID, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: scan competence id: %w", err)
		}
		ids = append(ids, shared.ID(id))
	}
	return ids, rows.Err()
}

// insertCompetences writes the competence set preserving declared order.
func insertCompetences(ctx context.Context, tx pgx.Tx, examID shared.ID, ids []shared.ID) error {
	for i, competenceID := range ids {
		_, err := tx.Exec(ctx, `
			INSERT INTO exam_competences (exam_id, competence_id, position)
			VALUES ($1, $2, $3)`,
			examID.String(), competenceID.String(), i,
		)
		if err != nil {
			return fmt.Errorf("postgres: insert exam competence: %w", err)
		}
	}
	return nil
}

// buildExamFilter builds the WHERE clause for exam listings.
func buildExamFilter(filter exam.Filter) (string, []any) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 4)

	if !filter.ModalityID.IsEmpty() {
		args = append(args, filter.ModalityID.String())
		conditions = append(conditions, fmt.Sprintf("modality_id = $%d", len(args)))
	}
	if !filter.CreatedBy.IsEmpty() {
		args = append(args, filter.CreatedBy.String())
		conditions = append(conditions, fmt.Sprintf("created_by = $%d", len(args)))
	}
	if !filter.DateRange.IsZero() {
		args = append(args, filter.DateRange.From)
		conditions = append(conditions, fmt.Sprintf("exam_date >= $%d", len(args)))
		args = append(args, filter.DateRange.To)
		conditions = append(conditions, fmt.Sprintf("exam_date <= $%d", len(args)))
	}
	if filter.OnlyActive {
		conditions = append(conditions, "is_active = TRUE")
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}
