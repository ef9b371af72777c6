// Package query contains read operations following CQRS pattern.
// Queries never modify state - they only read and return data.
// Each query is a self-contained use case with its own request/response types.
//
// Statistics reads are lock-free snapshot reads: they may run concurrently
// with grade writes and are not expected to be linearizable with them.
package query

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/skills-hub/assessment-core/internal/domain/exam"
	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPETENCE STATISTICS QUERY
// Aggregate statistics over the scores of one competence within one exam.
// ══════════════════════════════════════════════════════════════════════════════

// CompetenceStatisticsQuery contains the query parameters.
type CompetenceStatisticsQuery struct {
	ExamID       string
	CompetenceID string
}

// Validate validates the query parameters.
func (q CompetenceStatisticsQuery) Validate() error {
	if q.ExamID == "" {
		return errors.New("competence_statistics: exam_id is required")
	}
	if q.CompetenceID == "" {
		return errors.New("competence_statistics: competence_id is required")
	}
	return nil
}

// CompetenceStatisticsDTO carries the statistics for one competence.
// All values are rounded to 2 decimals.
type CompetenceStatisticsDTO struct {
	// Average is the arithmetic mean.
	Average float64 `json:"average"`

	// Median is the middle score (mean of the two middle scores for even
	// counts).
	Median float64 `json:"median"`

	// StdDeviation is the sample standard deviation. 0.0 when fewer than
	// two scores exist: sample stdev is undefined for n=1 and callers
	// expect a numeric contract, not an error.
	StdDeviation float64 `json:"std_deviation"`

	// Min / Max are the score extremes.
	Min float64 `json:"min"`
	Max float64 `json:"max"`

	// Count is the number of scores.
	Count int `json:"count"`
}

// CompetenceStatisticsHandler handles the CompetenceStatisticsQuery.
type CompetenceStatisticsHandler struct {
	gradeRepo grade.Repository
}

// NewCompetenceStatisticsHandler creates a new CompetenceStatisticsHandler.
func NewCompetenceStatisticsHandler(gradeRepo grade.Repository) *CompetenceStatisticsHandler {
	return &CompetenceStatisticsHandler{gradeRepo: gradeRepo}
}

// Handle executes the query. Fails with shared.ErrInsufficientGrades when
// no scores are available.
func (h *CompetenceStatisticsHandler) Handle(ctx context.Context, q CompetenceStatisticsQuery) (*CompetenceStatisticsDTO, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	scores, err := h.gradeRepo.ScoresByCompetence(ctx, shared.ID(q.ExamID), shared.ID(q.CompetenceID))
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return nil, shared.ErrInsufficientGrades
	}

	dto := computeStatistics(scores)
	return &dto, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// EXAM STATISTICS QUERY
// Overall and per-competence statistics for one exam.
// ══════════════════════════════════════════════════════════════════════════════

// ExamStatisticsQuery contains the query parameters.
type ExamStatisticsQuery struct {
	ExamID string

	// SkipCache bypasses the statistics cache for a fresh read.
	SkipCache bool
}

// Validate validates the query parameters.
func (q ExamStatisticsQuery) Validate() error {
	if q.ExamID == "" {
		return errors.New("exam_statistics: exam_id is required")
	}
	return nil
}

// ExamStatisticsResult contains the statistics for one exam.
type ExamStatisticsResult struct {
	// ExamID identifies the exam.
	ExamID string `json:"exam_id"`

	// ExamName is included for presentation convenience.
	ExamName string `json:"exam_name"`

	// OverallAverage is the mean across every grade in the exam,
	// 0.0 when the exam has no grades.
	OverallAverage float64 `json:"overall_average"`

	// TotalGrades is the number of grades in the exam.
	TotalGrades int `json:"total_grades"`

	// CompetitorCount is the number of distinct graded competitors.
	CompetitorCount int `json:"competitor_count"`

	// CompetenceStats maps competence ID to its statistics. Competences
	// declared on the exam but holding zero grades are absent from the
	// map, not present with count=0: "no statistic" and "statistic of
	// zero" mean different things and callers must not confuse them.
	CompetenceStats map[string]CompetenceStatisticsDTO `json:"competence_stats"`

	// GeneratedAt is when the result was computed.
	GeneratedAt time.Time `json:"generated_at"`
}

// StatisticsCache caches exam statistics results. Separated from the
// repository so implementations can vary (Redis, in-memory). A nil result
// with nil error means cache miss.
type StatisticsCache interface {
	// GetExamStatistics returns the cached result, or nil on miss.
	GetExamStatistics(ctx context.Context, examID string) (*ExamStatisticsResult, error)

	// SetExamStatistics stores a result with TTL.
	SetExamStatistics(ctx context.Context, result *ExamStatisticsResult, ttl time.Duration) error

	// InvalidateExam drops the cached result for an exam. Called by the
	// write workflows after a grade mutation.
	InvalidateExam(ctx context.Context, examID string) error
}

// ExamStatisticsHandler handles the ExamStatisticsQuery.
type ExamStatisticsHandler struct {
	examRepo  exam.Repository
	gradeRepo grade.Repository

	// cache is optional; nil disables caching.
	cache    StatisticsCache
	cacheTTL time.Duration
}

// NewExamStatisticsHandler creates a new ExamStatisticsHandler.
// cache may be nil.
func NewExamStatisticsHandler(examRepo exam.Repository, gradeRepo grade.Repository, cache StatisticsCache, cacheTTL time.Duration) *ExamStatisticsHandler {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &ExamStatisticsHandler{
		examRepo:  examRepo,
		gradeRepo: gradeRepo,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

// Handle executes the query. Fails with shared.ErrExamNotFound when the
// exam is absent.
func (h *ExamStatisticsHandler) Handle(ctx context.Context, q ExamStatisticsQuery) (*ExamStatisticsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ex, err := h.examRepo.GetByID(ctx, shared.ID(q.ExamID))
	if err != nil {
		return nil, err
	}

	if h.cache != nil && !q.SkipCache {
		if cached, err := h.cache.GetExamStatistics(ctx, q.ExamID); err == nil && cached != nil {
			return cached, nil
		}
		// Cache errors degrade to a direct read.
	}

	allScores, err := h.gradeRepo.ScoresByExam(ctx, ex.ID)
	if err != nil {
		return nil, err
	}

	competitors, err := h.gradeRepo.DistinctCompetitors(ctx, ex.ID)
	if err != nil {
		return nil, err
	}

	result := &ExamStatisticsResult{
		ExamID:          ex.ID.String(),
		ExamName:        ex.Name,
		OverallAverage:  roundTo2(mean(allScores)),
		TotalGrades:     len(allScores),
		CompetitorCount: competitors,
		CompetenceStats: make(map[string]CompetenceStatisticsDTO, len(ex.CompetenceIDs)),
		GeneratedAt:     time.Now().UTC(),
	}

	for _, competenceID := range ex.CompetenceIDs {
		scores, err := h.gradeRepo.ScoresByCompetence(ctx, ex.ID, competenceID)
		if err != nil {
			return nil, err
		}
		if len(scores) == 0 {
			continue // omitted, not reported as zero-count
		}
		result.CompetenceStats[competenceID.String()] = computeStatistics(scores)
	}

	if h.cache != nil {
		_ = h.cache.SetExamStatistics(ctx, result, h.cacheTTL)
	}

	return result, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS MATH
// ══════════════════════════════════════════════════════════════════════════════

// computeStatistics aggregates a non-empty score list.
func computeStatistics(scores []float64) CompetenceStatisticsDTO {
	minScore := scores[0]
	maxScore := scores[0]
	for _, s := range scores {
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	return CompetenceStatisticsDTO{
		Average:      roundTo2(mean(scores)),
		Median:       roundTo2(median(scores)),
		StdDeviation: roundTo2(sampleStdDev(scores)),
		Min:          roundTo2(minScore),
		Max:          roundTo2(maxScore),
		Count:        len(scores),
	}
}

// mean returns the arithmetic mean, 0.0 for an empty list.
func mean(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	sum := 0.0
	for _, s := range scores {
		sum += s
	}
	return sum / float64(len(scores))
}

// median returns the middle value of the sorted scores.
func median(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// sampleStdDev returns the sample standard deviation (n-1 denominator),
// 0.0 when fewer than two scores exist.
func sampleStdDev(scores []float64) float64 {
	if len(scores) < 2 {
		return 0.0
	}
	m := mean(scores)
	sumSquares := 0.0
	for _, s := range scores {
		d := s - m
		sumSquares += d * d
	}
	return math.Sqrt(sumSquares / float64(len(scores)-1))
}

// roundTo2 rounds to 2 decimal places, half away from zero.
func roundTo2(v float64) float64 {
	return math.Round(v*100) / 100
}
