package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// DELETE GRADE COMMAND (administrative cleanup only)
// Grades are never deleted in the normal flow. This command exists for
// admin cleanup; the full audit trail, including the "deleted" entry it
// appends, survives the grade itself.
// ══════════════════════════════════════════════════════════════════════════════

// DeleteGradeCommand removes a grade.
type DeleteGradeCommand struct {
	GradeID   string
	Principal shared.Principal
	Meta      shared.RequestMeta
}

// Validate validates the command shape.
func (c DeleteGradeCommand) Validate() error {
	if c.GradeID == "" {
		return errors.New("delete_grade: grade_id is required")
	}
	if !c.Principal.IsValid() {
		return errors.New("delete_grade: principal is required")
	}
	return nil
}

// DeleteGradeHandler handles the DeleteGradeCommand.
type DeleteGradeHandler struct {
	gradeRepo      grade.Repository
	eventPublisher shared.EventPublisher
}

// NewDeleteGradeHandler creates a new DeleteGradeHandler.
func NewDeleteGradeHandler(gradeRepo grade.Repository, eventPublisher shared.EventPublisher) *DeleteGradeHandler {
	return &DeleteGradeHandler{gradeRepo: gradeRepo, eventPublisher: eventPublisher}
}

// Handle executes the delete grade command.
func (h *DeleteGradeHandler) Handle(ctx context.Context, cmd DeleteGradeCommand) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("delete_grade: validation failed: %w", err)
	}

	if cmd.Principal.Role != shared.RoleAdmin {
		return shared.NewDomainError("grade", "Delete", shared.ErrForbidden, "only admins may delete grades")
	}

	g, err := h.gradeRepo.GetByID(ctx, shared.ID(cmd.GradeID))
	if err != nil {
		return err
	}

	entry := grade.NewDeletedEntry(g, cmd.Principal.UserID, cmd.Meta)
	if err := h.gradeRepo.DeleteWithAudit(ctx, g.ID, entry); err != nil {
		return err
	}

	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(deletionEvent(g, cmd.Principal.UserID))
	}
	return nil
}

// deletionEvent builds the grade.deleted envelope.
func deletionEvent(g *grade.Grade, deletedBy shared.ID) shared.Event {
	score := g.Score.Value()
	return shared.GradeUpdatedEvent{
		BaseEvent: shared.NewBaseEvent(shared.EventGradeDeleted, g.ID.String()),
		ExamID:    g.ExamID.String(),
		OldScore:  &score,
		UpdatedBy: deletedBy.String(),
	}
}
