// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrValueOutOfRange = errors.New("value out of range")
	ErrInvalidFormat   = errors.New("invalid format")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrImmutable       = errors.New("entity is immutable")

	// Business-rule errors. A business-rule violation is distinct from a
	// validation error: the input is well-formed but forbidden by a rule,
	// so callers can render 403-class instead of 422-class feedback.
	ErrBusinessRule = errors.New("business rule violation")

	// Statistics errors
	ErrInsufficientData = errors.New("insufficient data")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "exam", "grade", "statistics"
	Op      string // Operation that failed, e.g., "Register", "Update"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Exam domain errors
var (
	ErrExamNotFound    = NewDomainError("exam", "Find", ErrNotFound, "exam not found")
	ErrExamNotActive   = NewDomainError("exam", "CheckStatus", ErrBusinessRule, "exam is not active")
	ErrExamNameEmpty   = NewDomainError("exam", "Validate", ErrEmptyValue, "exam name cannot be empty")
	ErrInvalidExamType = NewDomainError("exam", "Validate", ErrInvalidInput, "invalid assessment type")
	ErrInvalidExamDate = NewDomainError("exam", "Validate", ErrInvalidInput, "invalid exam date")
)

// Grade domain errors
var (
	ErrGradeNotFound      = NewDomainError("grade", "Find", ErrNotFound, "grade not found")
	ErrGradeAlreadyExists = NewDomainError("grade", "Register", ErrAlreadyExists, "grade already exists for this exam, competitor and competence")
	ErrInvalidScore       = NewDomainError("grade", "Validate", ErrValueOutOfRange, "score must be between 0 and 100")
	ErrAuditLogImmutable  = NewDomainError("grade", "MutateAudit", ErrImmutable, "audit log entries cannot be modified")
)

// Grading business-rule errors
var (
	ErrEvaluatorCannotGrade    = NewDomainError("grade", "Authorize", ErrBusinessRule, "evaluator is not allowed to grade this competitor")
	ErrCompetenceNotInExam     = NewDomainError("grade", "CheckScope", ErrBusinessRule, "competence is not evaluated by this exam")
	ErrCompetitorNotInModality = NewDomainError("grade", "CheckEnrollment", ErrBusinessRule, "competitor is not enrolled in the exam's modality")
)

// Collaborator lookup errors
var (
	ErrCompetitorNotFound = NewDomainError("enrollment", "Find", ErrNotFound, "competitor not found")
	ErrEnrollmentNotFound = NewDomainError("enrollment", "Find", ErrNotFound, "enrollment not found")
	ErrCompetenceNotFound = NewDomainError("catalog", "Find", ErrNotFound, "competence not found")
	ErrModalityNotFound   = NewDomainError("catalog", "Find", ErrNotFound, "modality not found")
)

// Statistics errors
var (
	ErrInsufficientGrades = NewDomainError("statistics", "Calculate", ErrInsufficientData, "not enough grades to compute statistics")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrValueOutOfRange) ||
		errors.Is(err, ErrInvalidFormat)
}

// IsBusinessRule checks if the error is a business-rule violation.
func IsBusinessRule(err error) bool {
	return errors.Is(err, ErrBusinessRule)
}

// IsInsufficientData checks if the error is a statistics data error.
func IsInsufficientData(err error) bool {
	return errors.Is(err, ErrInsufficientData)
}
