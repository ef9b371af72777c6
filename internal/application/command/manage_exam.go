package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/skills-hub/assessment-core/internal/domain/exam"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXAM LIFECYCLE COMMANDS
// Create/update exams, manage their competence set, and flip the active
// flag. Exams are never hard-deleted; deactivation is the terminal state
// for grading purposes.
// ══════════════════════════════════════════════════════════════════════════════

// CreateExamCommand contains the data to create an exam.
type CreateExamCommand struct {
	Name           string
	ModalityID     string
	AssessmentType string
	ExamDate       time.Time
	Description    string
	CompetenceIDs  []string
	Principal      shared.Principal
	CorrelationID  string
}

// Validate validates the command shape.
func (c CreateExamCommand) Validate() error {
	if c.Name == "" {
		return errors.New("create_exam: name is required")
	}
	if c.ModalityID == "" {
		return errors.New("create_exam: modality_id is required")
	}
	if !c.Principal.IsValid() {
		return errors.New("create_exam: principal is required")
	}
	return nil
}

// CreateExamResult contains the result of creating an exam.
type CreateExamResult struct {
	Exam   *exam.Exam
	Events []shared.Event
}

// CreateExamHandler handles the CreateExamCommand.
type CreateExamHandler struct {
	examRepo       exam.Repository
	eventPublisher shared.EventPublisher
}

// NewCreateExamHandler creates a new CreateExamHandler.
func NewCreateExamHandler(examRepo exam.Repository, eventPublisher shared.EventPublisher) *CreateExamHandler {
	return &CreateExamHandler{examRepo: examRepo, eventPublisher: eventPublisher}
}

// Handle executes the create exam command.
func (h *CreateExamHandler) Handle(ctx context.Context, cmd CreateExamCommand) (*CreateExamResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("create_exam: validation failed: %w", err)
	}

	// Only evaluators and admins create exams.
	if !cmd.Principal.Role.CanGrade() {
		return nil, shared.NewDomainError("exam", "Create", shared.ErrForbidden, "role cannot create exams")
	}

	examType, err := exam.ParseAssessmentType(cmd.AssessmentType)
	if err != nil {
		return nil, err
	}

	competences := make([]shared.ID, 0, len(cmd.CompetenceIDs))
	for _, id := range cmd.CompetenceIDs {
		competences = append(competences, shared.ID(id))
	}

	ex, err := exam.NewExam(exam.NewExamParams{
		Name:          cmd.Name,
		ModalityID:    shared.ID(cmd.ModalityID),
		Type:          examType,
		ExamDate:      cmd.ExamDate,
		Description:   cmd.Description,
		CompetenceIDs: competences,
		CreatedBy:     cmd.Principal.UserID,
	})
	if err != nil {
		return nil, err
	}

	if err := h.examRepo.Create(ctx, ex); err != nil {
		return nil, err
	}

	event := shared.NewExamCreatedEvent(
		ex.ID.String(), ex.Name, ex.ModalityID.String(),
		ex.Type.String(), ex.CreatedBy.String(), cmd.CompetenceIDs,
	)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	if h.eventPublisher != nil {
		_ = h.eventPublisher.Publish(event)
	}

	return &CreateExamResult{Exam: ex, Events: []shared.Event{event}}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE EXAM
// ══════════════════════════════════════════════════════════════════════════════

// UpdateExamCommand updates an exam's name/description/date/type.
// Nil fields are left unchanged.
type UpdateExamCommand struct {
	ExamID         string
	Name           *string
	Description    *string
	ExamDate       *time.Time
	AssessmentType *string
	Principal      shared.Principal
}

// Validate validates the command shape.
func (c UpdateExamCommand) Validate() error {
	if c.ExamID == "" {
		return errors.New("update_exam: exam_id is required")
	}
	if !c.Principal.IsValid() {
		return errors.New("update_exam: principal is required")
	}
	if c.Name == nil && c.Description == nil && c.ExamDate == nil && c.AssessmentType == nil {
		return errors.New("update_exam: nothing to update")
	}
	return nil
}

// UpdateExamHandler handles the UpdateExamCommand.
type UpdateExamHandler struct {
	examRepo       exam.Repository
	eventPublisher shared.EventPublisher
}

// NewUpdateExamHandler creates a new UpdateExamHandler.
func NewUpdateExamHandler(examRepo exam.Repository, eventPublisher shared.EventPublisher) *UpdateExamHandler {
	return &UpdateExamHandler{examRepo: examRepo, eventPublisher: eventPublisher}
}

// Handle executes the update exam command.
func (h *UpdateExamHandler) Handle(ctx context.Context, cmd UpdateExamCommand) (*exam.Exam, error) {
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("update_exam: validation failed: %w", err)
	}

	ex, err := h.examRepo.GetByID(ctx, shared.ID(cmd.ExamID))
	if err != nil {
		return nil, err
	}

	params := exam.UpdateParams{
		Name:        cmd.Name,
		Description: cmd.Description,
		ExamDate:    cmd.ExamDate,
	}
	if cmd.AssessmentType != nil {
		examType, err := exam.ParseAssessmentType(*cmd.AssessmentType)
		if err != nil {
			return nil, err
		}
		params.Type = &examType
	}

	if err := ex.Update(params); err != nil {
		return nil, err
	}
	if err := h.examRepo.Update(ctx, ex); err != nil {
		return nil, err
	}

	return ex, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// COMPETENCE SET
// ══════════════════════════════════════════════════════════════════════════════

// SetExamCompetenceCommand adds or removes one competence on an exam.
type SetExamCompetenceCommand struct {
	ExamID       string
	CompetenceID string
	Remove       bool
	Principal    shared.Principal
}

// Validate validates the command shape.
func (c SetExamCompetenceCommand) Validate() error {
	if c.ExamID == "" {
		return errors.New("set_exam_competence: exam_id is required")
	}
	if c.CompetenceID == "" {
		return errors.New("set_exam_competence: competence_id is required")
	}
	if !c.Principal.IsValid() {
		return errors.New("set_exam_competence: principal is required")
	}
	return nil
}

// SetExamCompetenceHandler handles the SetExamCompetenceCommand.
type SetExamCompetenceHandler struct {
	examRepo exam.Repository
}

// NewSetExamCompetenceHandler creates a new SetExamCompetenceHandler.
func NewSetExamCompetenceHandler(examRepo exam.Repository) *SetExamCompetenceHandler {
	return &SetExamCompetenceHandler{examRepo: examRepo}
}

// Handle executes the command. The returned bool reports whether the
// competence set actually changed (add/remove are idempotent).
func (h *SetExamCompetenceHandler) Handle(ctx context.Context, cmd SetExamCompetenceCommand) (bool, error) {
	if err := cmd.Validate(); err != nil {
		return false, fmt.Errorf("set_exam_competence: validation failed: %w", err)
	}

	ex, err := h.examRepo.GetByID(ctx, shared.ID(cmd.ExamID))
	if err != nil {
		return false, err
	}

	var changed bool
	if cmd.Remove {
		changed = ex.RemoveCompetence(shared.ID(cmd.CompetenceID))
	} else {
		changed, err = ex.AddCompetence(shared.ID(cmd.CompetenceID))
		if err != nil {
			return false, err
		}
	}
	if !changed {
		return false, nil
	}

	if err := h.examRepo.Update(ctx, ex); err != nil {
		return false, err
	}
	return true, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ACTIVE FLAG
// ══════════════════════════════════════════════════════════════════════════════

// SetExamStatusCommand activates or deactivates an exam.
type SetExamStatusCommand struct {
	ExamID        string
	Active        bool
	Principal     shared.Principal
	CorrelationID string
}

// Validate validates the command shape.
func (c SetExamStatusCommand) Validate() error {
	if c.ExamID == "" {
		return errors.New("set_exam_status: exam_id is required")
	}
	if !c.Principal.IsValid() {
		return errors.New("set_exam_status: principal is required")
	}
	return nil
}

// SetExamStatusHandler handles the SetExamStatusCommand.
type SetExamStatusHandler struct {
	examRepo       exam.Repository
	eventPublisher shared.EventPublisher
}

// NewSetExamStatusHandler creates a new SetExamStatusHandler.
func NewSetExamStatusHandler(examRepo exam.Repository, eventPublisher shared.EventPublisher) *SetExamStatusHandler {
	return &SetExamStatusHandler{examRepo: examRepo, eventPublisher: eventPublisher}
}

// Handle executes the command. The returned bool reports whether the
// status actually changed.
func (h *SetExamStatusHandler) Handle(ctx context.Context, cmd SetExamStatusCommand) (bool, error) {
	if err := cmd.Validate(); err != nil {
		return false, fmt.Errorf("set_exam_status: validation failed: %w", err)
	}

	ex, err := h.examRepo.GetByID(ctx, shared.ID(cmd.ExamID))
	if err != nil {
		return false, err
	}

	var changed bool
	if cmd.Active {
		changed = ex.Activate()
	} else {
		changed = ex.Deactivate()
	}
	if !changed {
		return false, nil
	}

	if err := h.examRepo.Update(ctx, ex); err != nil {
		return false, err
	}

	if !cmd.Active && h.eventPublisher != nil {
		event := shared.NewExamDeactivatedEvent(ex.ID.String(), cmd.Principal.UserID.String())
		if cmd.CorrelationID != "" {
			event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		_ = h.eventPublisher.Publish(event)
	}

	return true, nil
}
