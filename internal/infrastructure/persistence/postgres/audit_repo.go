package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// AUDIT REPOSITORY (PostgreSQL)
// ══════════════════════════════════════════════════════════════════════════════

// AuditRepository implements grade.AuditRepository backed by PostgreSQL.
// The table has no UPDATE or DELETE path through this type.
type AuditRepository struct {
	conn *Connection
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(conn *Connection) *AuditRepository {
	return &AuditRepository{conn: conn}
}

// Create appends an audit entry outside of a grade write transaction.
// The grade write paths append through their own transaction instead.
func (r *AuditRepository) Create(ctx context.Context, entry *grade.AuditEntry) error {
	_, err := r.conn.Exec(ctx, `
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

// ListByGrade returns a grade's history ordered by ChangedAt ascending.
func (r *AuditRepository) ListByGrade(ctx context.Context, gradeID shared.ID) ([]*grade.AuditEntry, error) {
	rows, err := r.conn.Query(ctx,
		auditSelect+` WHERE grade_id = $1 ORDER BY changed_at`,
		gradeID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit by grade: %w", err)
	}
	return collectAuditEntries(rows)
}

// ListByUser returns entries produced by one evaluator, newest first.
func (r *AuditRepository) ListByUser(ctx context.Context, userID shared.ID, page shared.Pagination) ([]*grade.AuditEntry, error) {
	rows, err := r.conn.Query(ctx,
		auditSelect+` WHERE changed_by = $1 ORDER BY changed_at DESC LIMIT $2 OFFSET $3`,
		userID.String(), page.Limit(), page.Offset(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list audit by user: %w", err)
	}
	return collectAuditEntries(rows)
}

// ──────────────────────────────────────────────────────────────────────────────
// helpers
// ──────────────────────────────────────────────────────────────────────────────

const auditSelect = `
	SELECT id, grade_id, action, changed_by,
	       old_score, new_score, old_notes, new_notes,
	       ip_address, user_agent, changed_at
	FROM grade_audit_logs`

// scanAuditEntry scans one audit row.
func scanAuditEntry(row pgx.Row) (*grade.AuditEntry, error) {
	var (
		entry grade.AuditEntry

		id, gradeID, action, changedBy string
	)
	err := row.Scan(&id, &gradeID, &action, &changedBy,
		&entry.OldScore, &entry.NewScore, &entry.OldNotes, &entry.NewNotes,
		&entry.IPAddress, &entry.UserAgent, &entry.ChangedAt)
	if err != nil {
		return nil, err
	}
	entry.ID = shared.ID(id)
	entry.GradeID = shared.ID(gradeID)
	entry.Action = grade.AuditAction(action)
	entry.ChangedBy = shared.ID(changedBy)
	return &entry, nil
}

// collectAuditEntries drains rows into audit entries.
func collectAuditEntries(rows pgx.Rows) ([]*grade.AuditEntry, error) {
	defer rows.Close()

	entries := make([]*grade.AuditEntry, 0)
	for rows.Next() {
		entry, err := scanAuditEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}
