// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// UUID validation regex (simple version).
var uuidRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ID represents a UUID-keyed entity identifier.
type ID string

// IsValid checks if the ID is a valid UUID.
func (i ID) IsValid() bool {
	return uuidRegex.MatchString(string(i))
}

// IsEmpty checks if the ID is empty.
func (i ID) IsEmpty() bool {
	return i == ""
}

// String returns the string representation.
func (i ID) String() string {
	return string(i)
}

// NewID validates and normalizes a UUID string into an ID.
func NewID(id string) (ID, error) {
	normalized := ID(strings.ToLower(strings.TrimSpace(id)))
	if !normalized.IsValid() {
		return "", NewDomainError("shared", "NewID", ErrInvalidID, "invalid UUID format")
	}
	return normalized, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Score Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Score boundaries.
const (
	MinScore float64 = 0.0
	MaxScore float64 = 100.0
)

// Score represents a validated percentage score in the range [0, 100].
// The value is rounded to 2 decimal places exactly once, at construction.
// Score is immutable; all operations return a new value.
type Score struct {
	value float64
}

// NewScore creates a new Score with range validation.
func NewScore(value float64) (Score, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Score{}, ErrInvalidScore
	}
	if value < MinScore || value > MaxScore {
		return Score{}, ErrInvalidScore
	}
	return Score{value: roundTo2(value)}, nil
}

// ScoreFromAbsolute converts an absolute point total back to a percentage
// Score. Fails when maxScore is zero or negative.
func ScoreFromAbsolute(points, maxScore float64) (Score, error) {
	if maxScore <= 0 {
		return Score{}, NewDomainError("shared", "ScoreFromAbsolute", ErrValueOutOfRange, "max score must be positive")
	}
	return NewScore(points / maxScore * MaxScore)
}

// Value returns the percentage value, rounded to 2 decimals.
func (s Score) Value() float64 {
	return s.value
}

// ToAbsolute scales the percentage to an absolute point total.
func (s Score) ToAbsolute(maxScore float64) float64 {
	return roundTo2(s.value / MaxScore * maxScore)
}

// Add returns the saturating sum of two scores, capped at MaxScore.
// Used for total-points accumulation, not general arithmetic.
func (s Score) Add(other Score) Score {
	sum := s.value + other.value
	if sum > MaxScore {
		sum = MaxScore
	}
	return Score{value: roundTo2(sum)}
}

// Equals compares two scores by value.
func (s Score) Equals(other Score) bool {
	return s.value == other.value
}

// LessThan reports whether s is strictly lower than other.
func (s Score) LessThan(other Score) bool {
	return s.value < other.value
}

// Compare returns -1, 0 or +1 ordering scores by value.
func (s Score) Compare(other Score) int {
	switch {
	case s.value < other.value:
		return -1
	case s.value > other.value:
		return 1
	default:
		return 0
	}
}

// String returns the score formatted with 2 decimals.
func (s Score) String() string {
	return fmt.Sprintf("%.2f", s.value)
}

// roundTo2 rounds to 2 decimal places, half away from zero.
func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}

// ═══════════════════════════════════════════════════════════════════════════
// Principal Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Role represents the role of an authenticated principal. Identity itself
// is owned by the surrounding platform; the core only consumes it.
type Role string

const (
	RoleAdmin      Role = "admin"
	RoleEvaluator  Role = "evaluator"
	RoleCompetitor Role = "competitor"
)

// IsValid checks if the role is one of the known roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEvaluator, RoleCompetitor:
		return true
	}
	return false
}

// CanGrade reports whether the role is allowed to enter grades at all.
// Per-enrollment authorization is checked separately by the workflow.
func (r Role) CanGrade() bool {
	return r == RoleAdmin || r == RoleEvaluator
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID ID
	Role   Role
}

// IsValid checks the principal carries a usable identity.
func (p Principal) IsValid() bool {
	return p.UserID.IsValid() && p.Role.IsValid()
}

// ═══════════════════════════════════════════════════════════════════════════
// RequestMeta Value Object
// ═══════════════════════════════════════════════════════════════════════════

// RequestMeta carries optional client metadata captured into audit entries.
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// IsEmpty reports whether no metadata was captured.
func (m RequestMeta) IsEmpty() bool {
	return m.IPAddress == "" && m.UserAgent == ""
}

// ═══════════════════════════════════════════════════════════════════════════
// TimeRange Value Object
// ═══════════════════════════════════════════════════════════════════════════

// TimeRange represents a time period, used for exam date filters.
type TimeRange struct {
	From time.Time
	To   time.Time
}

// IsValid checks if the time range is valid.
func (t TimeRange) IsValid() bool {
	return !t.From.IsZero() && !t.To.IsZero() && !t.From.After(t.To)
}

// IsZero reports whether no range was provided.
func (t TimeRange) IsZero() bool {
	return t.From.IsZero() && t.To.IsZero()
}

// Contains checks if a time is within the range.
func (t TimeRange) Contains(tm time.Time) bool {
	return (tm.Equal(t.From) || tm.After(t.From)) && (tm.Equal(t.To) || tm.Before(t.To))
}

// NewTimeRange creates a new TimeRange with validation.
func NewTimeRange(from, to time.Time) (TimeRange, error) {
	tr := TimeRange{From: from, To: to}
	if !tr.IsValid() {
		return TimeRange{}, NewDomainError("shared", "NewTimeRange", ErrInvalidInput, "'from' must be before 'to'")
	}
	return tr, nil
}

// ═══════════════════════════════════════════════════════════════════════════
// Pagination Value Object
// ═══════════════════════════════════════════════════════════════════════════

// Pagination represents pagination parameters.
type Pagination struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Offset returns the offset for database queries.
func (p Pagination) Offset() int {
	if p.Page <= 0 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Limit returns the limit for database queries.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		return MaxPageSize
	}
	return p.PageSize
}

// NewPagination creates a new Pagination with defaults.
func NewPagination(page, pageSize int) Pagination {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return Pagination{Page: page, PageSize: pageSize}
}

// DefaultPagination returns default pagination.
func DefaultPagination() Pagination {
	return NewPagination(1, DefaultPageSize)
}
