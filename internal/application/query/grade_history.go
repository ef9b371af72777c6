package query

import (
	"context"
	"errors"
	"time"

	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRADE HISTORY QUERY
// Replays a grade's audit trail in chronological order.
// ══════════════════════════════════════════════════════════════════════════════

// GradeHistoryQuery contains the query parameters.
type GradeHistoryQuery struct {
	GradeID string
}

// Validate validates the query parameters.
func (q GradeHistoryQuery) Validate() error {
	if q.GradeID == "" {
		return errors.New("grade_history: grade_id is required")
	}
	return nil
}

// AuditEntryDTO is one audit row in the history.
type AuditEntryDTO struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	ChangedBy string    `json:"changed_by"`
	OldScore  *float64  `json:"old_score"`
	NewScore  *float64  `json:"new_score"`
	OldNotes  *string   `json:"old_notes"`
	NewNotes  *string   `json:"new_notes"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	ChangedAt time.Time `json:"changed_at"`
}

// GradeHistoryResult contains the full history of one grade.
type GradeHistoryResult struct {
	GradeID string          `json:"grade_id"`
	Entries []AuditEntryDTO `json:"entries"`
}

// GradeHistoryHandler handles the GradeHistoryQuery.
type GradeHistoryHandler struct {
	gradeRepo grade.Repository
	auditRepo grade.AuditRepository
}

// NewGradeHistoryHandler creates a new GradeHistoryHandler.
func NewGradeHistoryHandler(gradeRepo grade.Repository, auditRepo grade.AuditRepository) *GradeHistoryHandler {
	return &GradeHistoryHandler{gradeRepo: gradeRepo, auditRepo: auditRepo}
}

// Handle executes the query. The grade must still exist; deleted grades
// keep their audit rows but are only reachable through ListByUser.
func (h *GradeHistoryHandler) Handle(ctx context.Context, q GradeHistoryQuery) (*GradeHistoryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	g, err := h.gradeRepo.GetByID(ctx, shared.ID(q.GradeID))
	if err != nil {
		return nil, err
	}

	entries, err := h.auditRepo.ListByGrade(ctx, g.ID)
	if err != nil {
		return nil, err
	}

	result := &GradeHistoryResult{
		GradeID: q.GradeID,
		Entries: make([]AuditEntryDTO, 0, len(entries)),
	}
	for _, e := range entries {
		result.Entries = append(result.Entries, AuditEntryDTO{
			ID:        e.ID.String(),
			Action:    e.Action.String(),
			ChangedBy: e.ChangedBy.String(),
			OldScore:  e.OldScore,
			NewScore:  e.NewScore,
			OldNotes:  e.OldNotes,
			NewNotes:  e.NewNotes,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			ChangedAt: e.ChangedAt,
		})
	}
	return result, nil
}
