// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Each event represents something significant that
// happened in the assessment core; the surrounding platform subscribes to
// them for notifications and read-model refreshes.
const (
	// Exam events
	EventExamCreated     EventType = "exam.created"
	EventExamUpdated     EventType = "exam.updated"
	EventExamActivated   EventType = "exam.activated"
	EventExamDeactivated EventType = "exam.deactivated"

	// Grade events
	EventGradeRegistered EventType = "grade.registered"
	EventGradeUpdated    EventType = "grade.updated"
	EventGradeDeleted    EventType = "grade.deleted"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Exam Events
// ═══════════════════════════════════════════════════════════════════════════

// ExamCreatedEvent is emitted when a new exam is created.
type ExamCreatedEvent struct {
	BaseEvent
	Name           string   `json:"name"`
	ModalityID     string   `json:"modality_id"`
	AssessmentType string   `json:"assessment_type"`
	CompetenceIDs  []string `json:"competence_ids"`
	CreatedBy      string   `json:"created_by"`
}

// Payload implements Event interface.
func (e ExamCreatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"name":            e.Name,
		"modality_id":     e.ModalityID,
		"assessment_type": e.AssessmentType,
		"competence_ids":  e.CompetenceIDs,
		"created_by":      e.CreatedBy,
	}
}

// NewExamCreatedEvent creates a new ExamCreatedEvent.
func NewExamCreatedEvent(examID, name, modalityID, assessmentType, createdBy string, competenceIDs []string) ExamCreatedEvent {
	return ExamCreatedEvent{
		BaseEvent:      NewBaseEvent(EventExamCreated, examID),
		Name:           name,
		ModalityID:     modalityID,
		AssessmentType: assessmentType,
		CompetenceIDs:  competenceIDs,
		CreatedBy:      createdBy,
	}
}

// ExamDeactivatedEvent is emitted when an exam is deactivated.
// Deactivation blocks new grade registration but keeps history readable.
type ExamDeactivatedEvent struct {
	BaseEvent
	DeactivatedBy string `json:"deactivated_by"`
}

// Payload implements Event interface.
func (e ExamDeactivatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"deactivated_by": e.DeactivatedBy,
	}
}

// NewExamDeactivatedEvent creates a new ExamDeactivatedEvent.
func NewExamDeactivatedEvent(examID, deactivatedBy string) ExamDeactivatedEvent {
	return ExamDeactivatedEvent{
		BaseEvent:     NewBaseEvent(EventExamDeactivated, examID),
		DeactivatedBy: deactivatedBy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Grade Events
// ═══════════════════════════════════════════════════════════════════════════

// GradeRegisteredEvent is emitted when a grade passes the full rule gate
// and is persisted for the first time.
type GradeRegisteredEvent struct {
	BaseEvent
	ExamID       string  `json:"exam_id"`
	CompetitorID string  `json:"competitor_id"`
	CompetenceID string  `json:"competence_id"`
	Score        float64 `json:"score"`
	RegisteredBy string  `json:"registered_by"`
}

// Payload implements Event interface.
func (e GradeRegisteredEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"exam_id":       e.ExamID,
		"competitor_id": e.CompetitorID,
		"competence_id": e.CompetenceID,
		"score":         e.Score,
		"registered_by": e.RegisteredBy,
	}
}

// NewGradeRegisteredEvent creates a new GradeRegisteredEvent.
func NewGradeRegisteredEvent(gradeID, examID, competitorID, competenceID string, score float64, registeredBy string) GradeRegisteredEvent {
	return GradeRegisteredEvent{
		BaseEvent:    NewBaseEvent(EventGradeRegistered, gradeID),
		ExamID:       examID,
		CompetitorID: competitorID,
		CompetenceID: competenceID,
		Score:        score,
		RegisteredBy: registeredBy,
	}
}

// GradeUpdatedEvent is emitted when an existing grade's score or notes change.
type GradeUpdatedEvent struct {
	BaseEvent
	ExamID    string   `json:"exam_id"`
	OldScore  *float64 `json:"old_score,omitempty"`
	NewScore  *float64 `json:"new_score,omitempty"`
	UpdatedBy string   `json:"updated_by"`
}

// Payload implements Event interface.
func (e GradeUpdatedEvent) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"exam_id":    e.ExamID,
		"updated_by": e.UpdatedBy,
	}
	if e.OldScore != nil {
		payload["old_score"] = *e.OldScore
	}
	if e.NewScore != nil {
		payload["new_score"] = *e.NewScore
	}
	return payload
}

// NewGradeUpdatedEvent creates a new GradeUpdatedEvent.
func NewGradeUpdatedEvent(gradeID, examID string, oldScore, newScore *float64, updatedBy string) GradeUpdatedEvent {
	return GradeUpdatedEvent{
		BaseEvent: NewBaseEvent(EventGradeUpdated, gradeID),
		ExamID:    examID,
		OldScore:  oldScore,
		NewScore:  newScore,
		UpdatedBy: updatedBy,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
