package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATIONS
// Schema migrations are embedded as constants and applied in version order
// through the Migrator. Each migration carries its own rollback.
// ══════════════════════════════════════════════════════════════════════════════

// Migration is a single versioned schema change.
type Migration struct {
	Version int
	Name    string
	UpSQL   string
	DownSQL string
}

const migration001Up = `
CREATE TABLE IF NOT EXISTS exams (
    id              UUID PRIMARY KEY,
    name            TEXT NOT NULL CHECK (length(trim(name)) > 0),
    modality_id     UUID NOT NULL,
    assessment_type TEXT NOT NULL CHECK (assessment_type IN ('simulation', 'practical', 'theoretical', 'mixed')),
    exam_date       TIMESTAMPTZ NOT NULL,
    description     TEXT NOT NULL DEFAULT '',
    is_active       BOOLEAN NOT NULL DEFAULT TRUE,
    created_by      UUID NOT NULL,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_exams_modality ON exams(modality_id);
CREATE INDEX IF NOT EXISTS idx_exams_created_by ON exams(created_by);
CREATE INDEX IF NOT EXISTS idx_exams_active ON exams(modality_id) WHERE is_active = TRUE;
CREATE INDEX IF NOT EXISTS idx_exams_date ON exams(exam_date DESC);

CREATE TABLE IF NOT EXISTS exam_competences (
    exam_id       UUID NOT NULL REFERENCES exams(id) ON DELETE CASCADE,
    competence_id UUID NOT NULL,
    position      INT NOT NULL DEFAULT 0,
    PRIMARY KEY (exam_id, competence_id)
);
`

const migration001Down = `
DROP TABLE IF EXISTS exam_competences;
DROP TABLE IF EXISTS exams;
`

const migration002Up = `
CREATE TABLE IF NOT EXISTS grades (
    id            UUID PRIMARY KEY,
    exam_id       UUID NOT NULL REFERENCES exams(id),
    competitor_id UUID NOT NULL,
    competence_id UUID NOT NULL,
    score         NUMERIC(5,2) NOT NULL CHECK (score >= 0 AND score <= 100),
    notes         TEXT NOT NULL DEFAULT '',
    created_by    UUID NOT NULL,
    updated_by    UUID NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uq_grades_exam_competitor_competence UNIQUE (exam_id, competitor_id, competence_id)
);

CREATE INDEX IF NOT EXISTS idx_grades_competitor ON grades(competitor_id);
CREATE INDEX IF NOT EXISTS idx_grades_exam_competence ON grades(exam_id, competence_id);

CREATE TABLE IF NOT EXISTS grade_audit_logs (
    id         UUID PRIMARY KEY,
    grade_id   UUID NOT NULL,
    action     TEXT NOT NULL CHECK (action IN ('created', 'updated', 'deleted')),
    changed_by UUID NOT NULL,
    old_score  NUMERIC(5,2),
    new_score  NUMERIC(5,2),
    old_notes  TEXT,
    new_notes  TEXT,
    ip_address TEXT NOT NULL DEFAULT '',
    user_agent TEXT NOT NULL DEFAULT '',
    changed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_audit_grade_changed ON grade_audit_logs(grade_id, changed_at);
CREATE INDEX IF NOT EXISTS idx_audit_changed_by ON grade_audit_logs(changed_by, changed_at DESC);
`

const migration002Down = `
DROP TABLE IF EXISTS grade_audit_logs;
DROP TABLE IF EXISTS grades;
`

const migration003Up = `
CREATE TABLE IF NOT EXISTS modalities (
    id         UUID PRIMARY KEY,
    name       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS competences (
    id          UUID PRIMARY KEY,
    modality_id UUID NOT NULL REFERENCES modalities(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_competences_modality ON competences(modality_id);

CREATE TABLE IF NOT EXISTS enrollments (
    id            UUID PRIMARY KEY,
    competitor_id UUID NOT NULL,
    modality_id   UUID NOT NULL REFERENCES modalities(id),
    evaluator_id  UUID,
    enrolled_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    CONSTRAINT uq_enrollments_competitor_modality UNIQUE (competitor_id, modality_id)
);

CREATE INDEX IF NOT EXISTS idx_enrollments_evaluator ON enrollments(evaluator_id) WHERE evaluator_id IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_enrollments_competitor ON enrollments(competitor_id);
`

const migration003Down = `
DROP TABLE IF EXISTS enrollments;
DROP TABLE IF EXISTS competences;
DROP TABLE IF EXISTS modalities;
`

// GetMigrations returns all migrations in version order.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_exams", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_grades_and_audit", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_enrollments_and_catalog", UpSQL: migration003Up, DownSQL: migration003Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migrator applies and rolls back schema migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
}

// NewMigrator creates a migrator with the given migrations.
func NewMigrator(conn *Connection, migrations []Migration) *Migrator {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})
	return &Migrator{conn: conn, migrations: sorted}
}

// EnsureMigrationTable creates the migration tracking table if missing.
func (m *Migrator) EnsureMigrationTable(ctx context.Context) error {
	_, err := m.conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INT PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		return fmt.Errorf("postgres: create migration table: %w", err)
	}
	return nil
}

// GetAppliedMigrations returns the set of applied versions.
func (m *Migrator) GetAppliedMigrations(ctx context.Context) (map[int]bool, error) {
	rows, err := m.conn.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("postgres: query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("postgres: scan migration version: %w", err)
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations in order, each within its own
// transaction.
func (m *Migrator) Migrate(ctx context.Context) error {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return err
	}

	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if applied[migration.Version] {
			continue
		}
		if err := m.applyOne(ctx, migration); err != nil {
			return err
		}
	}
	return nil
}

// applyOne runs one migration and records it, atomically.
func (m *Migrator) applyOne(ctx context.Context, mig Migration) error {
	tx, err := m.conn.BeginTx(ctx, DefaultTxOptions())
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
		return fmt.Errorf("postgres: migration %d (%s): %w", mig.Version, mig.Name, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, $3)`,
		mig.Version, mig.Name, time.Now().UTC()); err != nil {
		return fmt.Errorf("postgres: record migration %d: %w", mig.Version, err)
	}
	return tx.Commit(ctx)
}

// Rollback reverts the most recently applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	var latest *Migration
	for i := len(m.migrations) - 1; i >= 0; i-- {
		if applied[m.migrations[i].Version] {
			latest = &m.migrations[i]
			break
		}
	}
	if latest == nil {
		return nil
	}

	tx, err := m.conn.BeginTx(ctx, DefaultTxOptions())
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, latest.DownSQL); err != nil {
		return fmt.Errorf("postgres: rollback migration %d (%s): %w", latest.Version, latest.Name, err)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM schema_migrations WHERE version = $1`, latest.Version); err != nil {
		return fmt.Errorf("postgres: unrecord migration %d: %w", latest.Version, err)
	}
	return tx.Commit(ctx)
}

// MigrationStatus describes one migration's applied state.
type MigrationStatus struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

// Status returns the applied state of every known migration.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.EnsureMigrationTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.GetAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(m.migrations))
	for _, mig := range m.migrations {
		statuses = append(statuses, MigrationStatus{
			Version: mig.Version,
			Name:    mig.Name,
			Applied: applied[mig.Version],
		})
	}
	return statuses, nil
}
