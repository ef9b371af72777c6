package query

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/skills-hub/assessment-core/internal/domain/exam"
	"github.com/skills-hub/assessment-core/internal/domain/grade"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXAM RANKING QUERY
// Competitors of one exam ranked by their simple grade average.
// ══════════════════════════════════════════════════════════════════════════════

// ExamRankingQuery contains the query parameters.
type ExamRankingQuery struct {
	ExamID string

	// Limit caps the number of returned entries; 0 means all.
	Limit int
}

// Validate validates the query parameters.
func (q ExamRankingQuery) Validate() error {
	if q.ExamID == "" {
		return errors.New("exam_ranking: exam_id is required")
	}
	if q.Limit < 0 {
		return errors.New("exam_ranking: limit cannot be negative")
	}
	return nil
}

// RankingEntryDTO is one competitor's position in the ranking.
type RankingEntryDTO struct {
	// Position is 1-based. Competitors with equal averages share a
	// position; the next position skips accordingly (1, 2, 2, 4).
	Position int `json:"position"`

	CompetitorID string `json:"competitor_id"`

	// Average is the simple mean over the competitor's grades in the exam.
	Average float64 `json:"average"`

	// GradeCount is how many competences the competitor was graded on.
	GradeCount int `json:"grade_count"`
}

// ExamRankingResult contains the ranking.
type ExamRankingResult struct {
	ExamID      string            `json:"exam_id"`
	Entries     []RankingEntryDTO `json:"entries"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// ExamRankingHandler handles the ExamRankingQuery.
type ExamRankingHandler struct {
	examRepo  exam.Repository
	gradeRepo grade.Repository
}

// NewExamRankingHandler creates a new ExamRankingHandler.
func NewExamRankingHandler(examRepo exam.Repository, gradeRepo grade.Repository) *ExamRankingHandler {
	return &ExamRankingHandler{examRepo: examRepo, gradeRepo: gradeRepo}
}

// Handle executes the query. Competitors with zero grades do not appear.
func (h *ExamRankingHandler) Handle(ctx context.Context, q ExamRankingQuery) (*ExamRankingResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	ex, err := h.examRepo.GetByID(ctx, shared.ID(q.ExamID))
	if err != nil {
		return nil, err
	}

	type accumulator struct {
		sum   float64
		count int
	}
	totals := make(map[shared.ID]*accumulator)

	page := shared.DefaultPagination()
	page.PageSize = shared.MaxPageSize
	for {
		grades, err := h.gradeRepo.ListByExam(ctx, ex.ID, page)
		if err != nil {
			return nil, err
		}
		for _, g := range grades {
			acc := totals[g.CompetitorID]
			if acc == nil {
				acc = &accumulator{}
				totals[g.CompetitorID] = acc
			}
			acc.sum += g.Score.Value()
			acc.count++
		}
		if len(grades) < page.Limit() {
			break
		}
		page.Page++
	}

	entries := make([]RankingEntryDTO, 0, len(totals))
	for competitorID, acc := range totals {
		entries = append(entries, RankingEntryDTO{
			CompetitorID: competitorID.String(),
			Average:      roundTo2(acc.sum / float64(acc.count)),
			GradeCount:   acc.count,
		})
	}

	// Ties share a position; competitor ID breaks the sort order only,
	// to keep results deterministic.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Average != entries[j].Average {
			return entries[i].Average > entries[j].Average
		}
		return entries[i].CompetitorID < entries[j].CompetitorID
	})
	for i := range entries {
		if i > 0 && entries[i].Average == entries[i-1].Average {
			entries[i].Position = entries[i-1].Position
			continue
		}
		entries[i].Position = i + 1
	}

	if q.Limit > 0 && len(entries) > q.Limit {
		entries = entries[:q.Limit]
	}

	return &ExamRankingResult{
		ExamID:      q.ExamID,
		Entries:     entries,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
