package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/skills-hub/assessment-core/internal/domain/enrollment"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// ENROLLMENT REPOSITORY (PostgreSQL)
// Implements the collaborator contracts (enrollment.Lookup,
// enrollment.CompetitorDirectory, enrollment.Catalog) against local tables.
// Deployments where the surrounding platform owns this data swap in their
// own implementations.
// ══════════════════════════════════════════════════════════════════════════════

// EnrollmentRepository implements enrollment.Lookup and
// enrollment.CompetitorDirectory backed by PostgreSQL.
type EnrollmentRepository struct {
	conn *Connection
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(conn *Connection) *EnrollmentRepository {
	return &EnrollmentRepository{conn: conn}
}

// GetByCompetitorAndModality returns the enrollment for a competitor within
// a modality.
func (r *EnrollmentRepository) GetByCompetitorAndModality(ctx context.Context, competitorID, modalityID shared.ID) (*enrollment.Enrollment, error) {
	row := r.conn.QueryRow(ctx,
		enrollmentSelect+` WHERE competitor_id = $1 AND modality_id = $2`,
		competitorID.String(), modalityID.String(),
	)
	e, err := scanEnrollment(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrEnrollmentNotFound
		}
		return nil, fmt.Errorf("postgres: get enrollment: %w", err)
	}
	return e, nil
}

// GetByEvaluator returns all enrollments an evaluator is assigned to.
func (r *EnrollmentRepository) GetByEvaluator(ctx context.Context, evaluatorID shared.ID) ([]*enrollment.Enrollment, error) {
	rows, err := r.conn.Query(ctx,
		enrollmentSelect+` WHERE evaluator_id = $1 ORDER BY enrolled_at`,
		evaluatorID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list enrollments by evaluator: %w", err)
	}
	defer rows.Close()

	enrollments := make([]*enrollment.Enrollment, 0)
	for rows.Next() {
		e, err := scanEnrollment(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan enrollment: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

// Exists reports whether the competitor holds at least one enrollment.
// A competitor with no enrollments is unknown to the assessment core.
func (r *EnrollmentRepository) Exists(ctx context.Context, competitorID shared.ID) (bool, error) {
	var exists bool
	err := r.conn.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM enrollments WHERE competitor_id = $1)`,
		competitorID.String()).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: competitor exists: %w", err)
	}
	return exists, nil
}

// ──────────────────────────────────────────────────────────────────────────────

const enrollmentSelect = `
	SELECT id, competitor_id, modality_id, evaluator_id, enrolled_at
	FROM enrollments`

// scanEnrollment scans one enrollment row. evaluator_id is nullable.
func scanEnrollment(row pgx.Row) (*enrollment.Enrollment, error) {
	var (
		e enrollment.Enrollment

		id, competitorID, modalityID string
		evaluatorID                  *string
	)
	err := row.Scan(&id, &competitorID, &modalityID, &evaluatorID, &e.EnrolledAt)
	if err != nil {
		return nil, err
	}
	e.ID = shared.ID(id)
	e.CompetitorID = shared.ID(competitorID)
	e.ModalityID = shared.ID(modalityID)
	if evaluatorID != nil {
		e.EvaluatorID = shared.ID(*evaluatorID)
	}
	return &e, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG REPOSITORY (PostgreSQL)
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements enrollment.Catalog backed by PostgreSQL.
type CatalogRepository struct {
	conn *Connection
}

// NewCatalogRepository creates a new CatalogRepository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

// GetCompetence returns a competence by ID.
func (r *CatalogRepository) GetCompetence(ctx context.Context, id shared.ID) (*enrollment.Competence, error) {
	var (
		c enrollment.Competence

		competenceID, modalityID string
	)
	err := r.conn.QueryRow(ctx,
		`SELECT id, modality_id, name FROM competences WHERE id = $1`,
		id.String()).Scan(&competenceID, &modalityID, &c.Name)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrCompetenceNotFound
		}
		return nil, fmt.Errorf("postgres: get competence: %w", err)
	}
	c.ID = shared.ID(competenceID)
	c.ModalityID = shared.ID(modalityID)
	return &c, nil
}

// GetModality returns a modality by ID.
func (r *CatalogRepository) GetModality(ctx context.Context, id shared.ID) (*enrollment.Modality, error) {
	var (
		m enrollment.Modality

		modalityID string
	)
	err := r.conn.QueryRow(ctx,
		`SELECT id, name FROM modalities WHERE id = $1`,
		id.String()).Scan(&modalityID, &m.Name)
	if err != nil {
		if IsNoRows(err) {
			return nil, shared.ErrModalityNotFound
		}
		return nil, fmt.Errorf("postgres: get modality: %w", err)
	}
	m.ID = shared.ID(modalityID)
	return &m, nil
}
