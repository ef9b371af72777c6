package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE REPOSITORY (PostgreSQL)
// ══════════════════════════════════════════════════════════════════════════════

// GradeRepository implements grade.Repository backed by PostgreSQL.
//
// The uq_grades_exam_competitor_competence unique index is the authoritative
// guard for the one-grade-per-triple invariant: the workflow's existence
// pre-check only produces a friendlier error earlier, it cannot prevent the
// race between two concurrent registrations. The index can.
type GradeRepository struct {
	conn *Connection
}

// NewGradeRepository creates a new GradeRepository.
func NewGradeRepository(conn *Connection) *GradeRepository {
	return &GradeRepository{conn: conn}
}

// CreateWithAudit atomically persists a new grade and its "created" audit
// entry. Either both rows commit or neither does.
func (r *GradeRepository) CreateWithAudit(ctx context.Context, g *grade.Grade, entry *grade.AuditEntry) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO grades (id, exam_id, competitor_id, competence_id, score,
			                    notes, created_by, updated_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			g.ID.String(), g.ExamID.String(), g.CompetitorID.String(), g.CompetenceID.String(),
			g.Score.Value(), g.Notes, g.CreatedBy.String(), g.UpdatedBy.String(),
			g.CreatedAt, g.UpdatedAt,
		)
		if err != nil {
			if IsUniqueViolation(err) {
				return shared.ErrGradeAlreadyExists
			}
			return fmt.Errorf("postgres: insert grade: %w", err)
		}
		return insertAuditEntry(ctx, tx, entry)
	})
}

// UpdateWithAudit atomically persists grade changes and the matching
// "updated" audit entry.
func (r *GradeRepository) UpdateWithAudit(ctx context.Context, g *grade.Grade, entry *grade.AuditEntry) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE grades
			SET score = $2, notes = $3, updated_by = $4, updated_at = $5
			WHERE id = $1`,
			g.ID.String(), g.Score.Value(), g.Notes, g.UpdatedBy.String(), g.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("postgres: update grade: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrGradeNotFound
		}
		return insertAuditEntry(ctx, tx, entry)
	})
}

// DeleteWithAudit atomically writes the "deleted" audit entry and removes
// the grade. Audit rows carry no foreign key to grades, so the full trail,
// including the final entry, survives the deletion.
func (r *GradeRepository) DeleteWithAudit(ctx context.Context, id shared.ID, entry *grade.AuditEntry) error {
	return r.conn.WithTx(ctx, DefaultTxOptions(), func(tx pgx.Tx) error {
		if err := insertAuditEntry(ctx, tx, entry); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `DELETE FROM grades WHERE id = $1`, id.String())
		if err != nil {
			return fmt.Errorf("postgres: delete grade: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrGradeNotFound
		}
		return nil
	})
}

// GetByID returns a grade by ID.
func (r *GradeRepository) GetByID(ctx context.Context, id shared.ID) (*grade.Grade, error) {
	row := r.conn.QueryRow(ctx, gradeSelect+` WHERE id = $1`, id.String())
	g, err := scanGrade(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrGradeNotFound
		}
		return nil, fmt.Errorf("postgres: get grade: %w", err)
	}
	return g, nil
}

// Exists reports whether a grade exists for the uniqueness triple.
func (r *GradeRepository) Exists(ctx context.Context, key grade.Key) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM grades
			WHERE exam_id = $1 AND competitor_id = $2 AND competence_id = $3
		)`,
		key.ExamID.String(), key.CompetitorID.String(), key.CompetenceID.String(),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: grade exists: %w", err)
	}
	return exists, nil
}

// ListByExam returns grades for an exam with pagination.
func (r *GradeRepository) ListByExam(ctx context.Context, examID shared.ID, page shared.Pagination) ([]*grade.Grade, error) {
	rows, err := r.conn.Query(ctx,
		gradeSelect+` WHERE exam_id = $1 ORDER BY created_at LIMIT $2 OFFSET $3`,
		examID.String(), page.Limit(), page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list grades by exam: %w", err)
	}
	return collectGrades(rows)
}

// ListByCompetitor returns a competitor's grades across exams.
func (r *GradeRepository) ListByCompetitor(ctx context.Context, competitorID shared.ID, page shared.Pagination) ([]*grade.Grade, error) {
	rows, err := r.conn.Query(ctx,
		gradeSelect+` WHERE competitor_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		competitorID.String(), page.Limit(), page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list grades by competitor: %w", err)
	}
	return collectGrades(rows)
}

// ListByExamAndCompetitor returns one competitor's grades within one exam.
func (r *GradeRepository) ListByExamAndCompetitor(ctx context.Context, examID, competitorID shared.ID) ([]*grade.Grade, error) {
	rows, err := r.conn.Query(ctx,
		gradeSelect+` WHERE exam_id = $1 AND competitor_id = $2 ORDER BY created_at`,
		examID.String(), competitorID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list grades by exam and competitor: %w", err)
	}
	return collectGrades(rows)
}

// ScoresByCompetence returns the raw score values for one competence in
// one exam.
func (r *GradeRepository) ScoresByCompetence(ctx context.Context, examID, competenceID shared.ID) ([]float64, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT score FROM grades
		WHERE exam_id = $1 AND competence_id = $2`,
		examID.String(), competenceID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: scores by competence: %w", err)
	}
	return collectScores(rows)
}

// ScoresByExam returns all raw score values in an exam.
func (r *GradeRepository) ScoresByExam(ctx context.Context, examID shared.ID) ([]float64, error) {
	rows, err := r.conn.Query(ctx,
		`SELECT score FROM grades WHERE exam_id = $1`, examID.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: scores by exam: %w", err)
	}
	return collectScores(rows)
}

// CountByExam returns the number of grades in an exam.
func (r *GradeRepository) CountByExam(ctx context.Context, examID shared.ID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(*) FROM grades WHERE exam_id = $1`, examID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count grades: %w", err)
	}
	return count, nil
}

// DistinctCompetitors returns the number of distinct graded competitors in
// an exam.
func (r *GradeRepository) DistinctCompetitors(ctx context.Context, examID shared.ID) (int, error) {
	var count int
	err := r.conn.QueryRow(ctx,
		`SELECT COUNT(DISTINCT competitor_id) FROM grades WHERE exam_id = $1`,
		examID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: distinct competitors: %w", err)
	}
	return count, nil
}

// AverageForCompetitor returns the mean of a competitor's scores, optionally
// filtered by competence. Nil when no grades match: AVG over zero rows is
// SQL NULL, which maps cleanly onto the nil contract.
func (r *GradeRepository) AverageForCompetitor(ctx context.Context, competitorID, competenceID shared.ID) (*float64, error) {
	var avg *float64
	var err error
	if competenceID.IsEmpty() {
		err = r.conn.QueryRow(ctx,
			`SELECT AVG(score) FROM grades WHERE competitor_id = $1`,
			competitorID.String()).Scan(&avg)
	} else {
		err = r.conn.QueryRow(ctx,
			`SELECT AVG(score) FROM grades WHERE competitor_id = $1 AND competence_id = $2`,
			competitorID.String(), competenceID.String()).Scan(&avg)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: average for competitor: %w", err)
	}
	return avg, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────────────────────

const gradeSelect = `
	SELECT id, exam_id, competitor_id, competence_id, score,
	       notes, created_by, updated_by, created_at, updated_at
	FROM grades`

// scanGrade scans one grade row.
func scanGrade(row pgx.Row) (*grade.Grade, error) {
	var (
		g grade.Grade

		id, examID, competitorID, competenceID string
		createdBy, updatedBy                   string
		scoreValue                             float64
	)
	err := row.Scan(&id, &examID, &competitorID, &competenceID, &scoreValue,
		&g.Notes, &createdBy, &updatedBy, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}

	score, err := shared.NewScore(scoreValue)
	if err != nil {
		return nil, fmt.Errorf("postgres: stored score out of range: %w", err)
	}

	g.ID = shared.ID(id)
	g.ExamID = shared.ID(examID)
	g.CompetitorID = shared.ID(competitorID)
	g.CompetenceID = shared.ID(competenceID)
	g.Score = score
	g.CreatedBy = shared.ID(createdBy)
	g.UpdatedBy = shared.ID(updatedBy)
	return &g, nil
}

// collectGrades drains rows into grades.
func collectGrades(rows pgx.Rows) ([]*grade.Grade, error) {
	defer rows.Close()

	grades := make([]*grade.Grade, 0)
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan grade: %w", err)
		}
		grades = append(grades, g)
	}
	return grades, rows.Err()
}

// collectScores drains rows into raw score values.
func collectScores(rows pgx.Rows) ([]float64, error) {
	defer rows.Close()

	scores := make([]float64, 0)
	for rows.Next() {
		var s float64
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("postgres: scan score: %w", err)
		}
		scores = append(scores, s)
	}
	return scores, rows.Err()
}

// insertAuditEntry appends one audit row inside the caller's transaction.
func insertAuditEntry(ctx context.Context, tx pgx.Tx, entry *grade.AuditEntry) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO grade_audit_logs (id, grade_id, action, changed_by,
		                              old_score, new_score, old_notes, new_notes,
		                              ip_address, user_agent, changed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		entry.ID.String(), entry.GradeID.String(), entry.Action.String(), entry.ChangedBy.String(),
		entry.OldScore, entry.NewScore, entry.OldNotes, entry.NewNotes,
		entry.IPAddress, entry.UserAgent, entry.ChangedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert audit entry: %w", err)
	}
	return nil
}
