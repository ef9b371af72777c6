package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skills-hub/assessment-core/internal/domain/exam"
	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"

	"github.com/skills-hub/assessment-core/internal/domain/enrollment"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE GRADE COMMAND
// Applies score/notes changes to an existing grade and appends an "updated"
// audit entry carrying the full before/after pair. Unchanged fields are
// carried forward into the snapshot so the audit row never needs a join
// against earlier history.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateGradeCommand contains the data to update a grade.
// Nil Score/Notes mean "leave unchanged"; at least one must be set.
type UpdateGradeCommand struct {
	// GradeID is the grade being updated.
	GradeID string

	// Score is the new raw percentage value, if changing.
	Score *float64

	// Notes is the new evaluator commentary, if changing.
	Notes *string

	// EvaluatorID is the authenticated principal requesting the update.
	EvaluatorID string

	// Meta carries optional client IP/user-agent for the audit entry.
	Meta shared.RequestMeta

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command shape.
func (c UpdateGradeCommand) Validate() error {
	if c.GradeID == "" {
		return errors.New("update_grade: grade_id is required")
	}
	if c.EvaluatorID == "" {
		return errors.New("update_grade: evaluator_id is required")
	}
	if c.Score == nil && c.Notes == nil {
		return errors.New("update_grade: nothing to update")
	}
	return nil
}

// UpdateGradeResult contains the result of updating a grade.
type UpdateGradeResult struct {
	// Grade is the grade after the update.
	Grade *grade.Grade

	// Audit is the persisted "updated" audit entry.
	Audit *grade.AuditEntry

	// OldScore / OldNotes are the values before the update.
	OldScore float64
	OldNotes string

	// Events contains domain events generated.
	Events []shared.Event

	// UpdatedAt is when the update completed.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UpdateGradeHandler handles the UpdateGradeCommand.
type UpdateGradeHandler struct {
	examRepo       exam.Repository
	gradeRepo      grade.Repository
	enrollments    enrollment.Lookup
	eventPublisher shared.EventPublisher
}

// NewUpdateGradeHandler creates a new UpdateGradeHandler.
// eventPublisher may be nil.
func NewUpdateGradeHandler(
	examRepo exam.Repository,
	gradeRepo grade.Repository,
	enrollments enrollment.Lookup,
	eventPublisher shared.EventPublisher,
) *UpdateGradeHandler {
	return &UpdateGradeHandler{
		examRepo:       examRepo,
		gradeRepo:      gradeRepo,
		enrollments:    enrollments,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the update grade command.
func (h *UpdateGradeHandler) Handle(ctx context.Context, cmd UpdateGradeCommand) (*UpdateGradeResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_grade: validation failed: %w", err)
	}

	// Step 1: grade must exist.
	g, err := h.gradeRepo.GetByID(ctx, shared.ID(cmd.GradeID))
	if err != nil {
		return nil, err
	}

	// Step 2: its exam must exist and be active.
	ex, err := h.examRepo.GetByID(ctx, g.ExamID)
	if err != nil {
		return nil, err
	}
	if !ex.IsActive {
		return nil, shared.ErrExamNotActive
	}

	// Step 3: evaluator authorization, only enforced when an enrollment
	// record exists for the grade's competitor/modality pair. Absence of
	// an enrollment does not block updates to pre-existing grades; the
	// leniency is deliberate, for historical data.
	enr, err := h.enrollments.GetByCompetitorAndModality(ctx, g.CompetitorID, ex.ModalityID)
	switch {
	case err == nil:
		if err := authorizeEvaluator(ctx, h.enrollments, enr, ex.ModalityID, shared.ID(cmd.EvaluatorID)); err != nil {
			return nil, err
		}
	case shared.IsNotFound(err):
		// No enrollment on record: skip the authorization check.
	default:
		return nil, fmt.Errorf("update_grade: enrollment lookup failed: %w", err)
	}

	// Step 4: capture old values, apply changes, persist atomically.
	oldScore := g.Score.Value()
	oldNotes := g.Notes

	if cmd.Score != nil {
		newScore, err := shared.NewScore(*cmd.Score)
		if err != nil {
			return nil, err
		}
		g.UpdateScore(newScore, shared.ID(cmd.EvaluatorID))
	}
	if cmd.Notes != nil {
		g.UpdateNotes(*cmd.Notes, shared.ID(cmd.EvaluatorID))
	}

	entry := grade.NewUpdatedEntry(g, oldScore, oldNotes, shared.ID(cmd.EvaluatorID), cmd.Meta)
	if err := h.gradeRepo.UpdateWithAudit(ctx, g, entry); err != nil {
		return nil, err
	}

	newScore := g.Score.Value()
	event := shared.NewGradeUpdatedEvent(
		g.ID.String(), g.ExamID.String(), &oldScore, &newScore,
		cmd.EvaluatorID,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(event)
	}

	return &UpdateGradeResult{
		Grade:     g,
		Audit:     entry,
		OldScore:  oldScore,
		OldNotes:  oldNotes,
		Events:    []shared.Event{event},
		UpdatedAt: entry.ChangedAt,
	}, nil
}
