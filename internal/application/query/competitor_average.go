package query

import (
	"context"
	"errors"
	"time"

	"github.com/skills-hub/assessment-core/internal/domain/enrollment"
	"github.com/skills-hub/assessment-core/internal/domain/exam"
	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPETITOR AVERAGE QUERY
// Repository-computed mean of a competitor's scores, optionally filtered
// by competence.
// ══════════════════════════════════════════════════════════════════════════════

// CompetitorAverageQuery contains the query parameters.
type CompetitorAverageQuery struct {
	CompetitorID string

	// CompetenceID optionally narrows the average to one competence.
	CompetenceID string
}

// Validate validates the query parameters.
func (q CompetitorAverageQuery) Validate() error {
	if q.CompetitorID == "" {
		return errors.New("competitor_average: competitor_id is required")
	}
	return nil
}

// CompetitorAverageResult contains the computed average.
type CompetitorAverageResult struct {
	CompetitorID string `json:"competitor_id"`
	CompetenceID string `json:"competence_id,omitempty"`

	// Average is nil when the competitor has no matching grades.
	Average *float64 `json:"average"`
}

// CompetitorAverageHandler handles the CompetitorAverageQuery.
type CompetitorAverageHandler struct {
	gradeRepo   grade.Repository
	competitors enrollment.CompetitorDirectory
}

// NewCompetitorAverageHandler creates a new CompetitorAverageHandler.
func NewCompetitorAverageHandler(gradeRepo grade.Repository, competitors enrollment.CompetitorDirectory) *CompetitorAverageHandler {
	return &CompetitorAverageHandler{gradeRepo: gradeRepo, competitors: competitors}
}

// Handle executes the query. Fails with shared.ErrCompetitorNotFound when
// the competitor is unknown to the platform.
func (h *CompetitorAverageHandler) Handle(ctx context.Context, q CompetitorAverageQuery) (*CompetitorAverageResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	known, err := h.competitors.Exists(ctx, shared.ID(q.CompetitorID))
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, shared.ErrCompetitorNotFound
	}

	avg, err := h.gradeRepo.AverageForCompetitor(ctx, shared.ID(q.CompetitorID), shared.ID(q.CompetenceID))
	if err != nil {
		return nil, err
	}
	if avg != nil {
		rounded := roundTo2(*avg)
		avg = &rounded
	}

	return &CompetitorAverageResult{
		CompetitorID: q.CompetitorID,
		CompetenceID: q.CompetenceID,
		Average:      avg,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EXAM COMPETITOR SUMMARY QUERY
// One competitor's standing within one exam: grade count, simple average,
// and an optional weighted average.
// ══════════════════════════════════════════════════════════════════════════════

// ExamCompetitorSummaryQuery contains the query parameters.
type ExamCompetitorSummaryQuery struct {
	ExamID       string
	CompetitorID string

	// Weights maps competence ID to its weight for the weighted average.
	// Competences absent from the map default to weight 1.0. Nil or empty
	// means no weighted average is computed.
	Weights map[string]float64
}

// Validate validates the query parameters.
func (q ExamCompetitorSummaryQuery) Validate() error {
	if q.ExamID == "" {
		return errors.New("exam_competitor_summary: exam_id is required")
	}
	if q.CompetitorID == "" {
		return errors.New("exam_competitor_summary: competitor_id is required")
	}
	return nil
}

// GradeSummaryDTO is one grade line in the summary.
type GradeSummaryDTO struct {
	GradeID      string  `json:"grade_id"`
	CompetenceID string  `json:"competence_id"`
	Score        float64 `json:"score"`
	Notes        string  `json:"notes,omitempty"`
}

// ExamCompetitorSummaryResult contains the summary.
type ExamCompetitorSummaryResult struct {
	ExamID       string `json:"exam_id"`
	CompetitorID string `json:"competitor_id"`

	// Count is the number of grades the competitor holds in the exam.
	Count int `json:"count"`

	// Grades lists the individual grades.
	Grades []GradeSummaryDTO `json:"grades"`

	// Average is the simple mean; nil when Count is zero.
	Average *float64 `json:"average"`

	// WeightedAverage is Σ(score·weight)/Σ(weight); nil when no weights
	// were supplied, when Count is zero, or when the total weight is zero.
	WeightedAverage *float64 `json:"weighted_average,omitempty"`

	// GeneratedAt is when the summary was computed.
	GeneratedAt time.Time `json:"generated_at"`
}

// ExamCompetitorSummaryHandler handles the ExamCompetitorSummaryQuery.
type ExamCompetitorSummaryHandler struct {
	examRepo    exam.Repository
	gradeRepo   grade.Repository
	competitors enrollment.CompetitorDirectory
}

// NewExamCompetitorSummaryHandler creates a new ExamCompetitorSummaryHandler.
func NewExamCompetitorSummaryHandler(
	examRepo exam.Repository,
	gradeRepo grade.Repository,
	competitors enrollment.CompetitorDirectory,
) *ExamCompetitorSummaryHandler {
	return &ExamCompetitorSummaryHandler{
		examRepo:    examRepo,
		gradeRepo:   gradeRepo,
		competitors: competitors,
	}
}

// Handle executes the query.
func (h *ExamCompetitorSummaryHandler) Handle(ctx context.Context, q ExamCompetitorSummaryQuery) (*ExamCompetitorSummaryResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	known, err := h.competitors.Exists(ctx, shared.ID(q.CompetitorID))
	if err != nil {
		return nil, err
	}
	if !known {
		return nil, shared.ErrCompetitorNotFound
	}

	ex, err := h.examRepo.GetByID(ctx, shared.ID(q.ExamID))
	if err != nil {
		return nil, err
	}

	grades, err := h.gradeRepo.ListByExamAndCompetitor(ctx, ex.ID, shared.ID(q.CompetitorID))
	if err != nil {
		return nil, err
	}

	result := &ExamCompetitorSummaryResult{
		ExamID:       q.ExamID,
		CompetitorID: q.CompetitorID,
		Count:        len(grades),
		Grades:       make([]GradeSummaryDTO, 0, len(grades)),
		GeneratedAt:  time.Now().UTC(),
	}
	if len(grades) == 0 {
		return result, nil
	}

	sum := 0.0
	for _, g := range grades {
		result.Grades = append(result.Grades, GradeSummaryDTO{
			GradeID:      g.ID.String(),
			CompetenceID: g.CompetenceID.String(),
			Score:        g.Score.Value(),
			Notes:        g.Notes,
		})
		sum += g.Score.Value()
	}

	avg := roundTo2(sum / float64(len(grades)))
	result.Average = &avg

	if len(q.Weights) > 0 {
		result.WeightedAverage = weightedAverage(grades, q.Weights)
	}

	return result, nil
}

// weightedAverage computes Σ(score·weight)/Σ(weight) over the grades.
// Competences absent from the weights map default to 1.0. Returns nil when
// the total weight is zero: a zero denominator means "no answer", not 0.0.
func weightedAverage(grades []*grade.Grade, weights map[string]float64) *float64 {
	if len(grades) == 0 {
		return nil
	}

	weightedSum := 0.0
	totalWeight := 0.0
	for _, g := range grades {
		weight, ok := weights[g.CompetenceID.String()]
		if !ok {
			weight = 1.0
		}
		weightedSum += g.Score.Value() * weight
		totalWeight += weight
	}
	if totalWeight == 0 {
		return nil
	}

	avg := roundTo2(weightedSum / totalWeight)
	return &avg
}

// ══════════════════════════════════════════════════════════════════════════════
// WEIGHTED AVERAGE QUERY
// Standalone weighted average of one competitor's grades within one exam.
// ══════════════════════════════════════════════════════════════════════════════

// WeightedAverageQuery contains the query parameters.
type WeightedAverageQuery struct {
	CompetitorID string
	ExamID       string

	// Weights maps competence ID to weight; missing entries default 1.0.
	Weights map[string]float64
}

// Validate validates the query parameters.
func (q WeightedAverageQuery) Validate() error {
	if q.CompetitorID == "" {
		return errors.New("weighted_average: competitor_id is required")
	}
	if q.ExamID == "" {
		return errors.New("weighted_average: exam_id is required")
	}
	return nil
}

// WeightedAverageHandler handles the WeightedAverageQuery.
type WeightedAverageHandler struct {
	gradeRepo grade.Repository
}

// NewWeightedAverageHandler creates a new WeightedAverageHandler.
func NewWeightedAverageHandler(gradeRepo grade.Repository) *WeightedAverageHandler {
	return &WeightedAverageHandler{gradeRepo: gradeRepo}
}

// Handle executes the query. Returns nil (not an error) when the
// competitor has no grades in the exam or the total weight is zero.
func (h *WeightedAverageHandler) Handle(ctx context.Context, q WeightedAverageQuery) (*float64, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	grades, err := h.gradeRepo.ListByExamAndCompetitor(ctx, shared.ID(q.ExamID), shared.ID(q.CompetitorID))
	if err != nil {
		return nil, err
	}
	if len(grades) == 0 {
		return nil, nil
	}

	return weightedAverage(grades, q.Weights), nil
}
