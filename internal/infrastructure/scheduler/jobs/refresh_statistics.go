// Package jobs contains the scheduled background jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/skills-hub/assessment-core/internal/application/query"
	"github.com/skills-hub/assessment-core/internal/domain/exam"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// RefreshStatisticsJob recomputes and re-caches statistics for every active
// exam. Grade writes already invalidate the cache; this job keeps warm
// results in place so the first dashboard read after invalidation does not
// pay the recompute.
type RefreshStatisticsJob struct {
	examRepo exam.Repository
	stats    *query.ExamStatisticsHandler
	logger   *slog.Logger

	// batchSize bounds how many exams one run refreshes.
	batchSize int
}

// NewRefreshStatisticsJob creates the job. batchSize <= 0 defaults to 100.
func NewRefreshStatisticsJob(examRepo exam.Repository, stats *query.ExamStatisticsHandler, logger *slog.Logger, batchSize int) *RefreshStatisticsJob {
	if logger == nil {
		logger = slog.Default()
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &RefreshStatisticsJob{
		examRepo:  examRepo,
		stats:     stats,
		logger:    logger,
		batchSize: batchSize,
	}
}

// Name implements scheduler.Job.
func (j *RefreshStatisticsJob) Name() string {
	return "refresh_statistics"
}

// Description implements scheduler.Job.
func (j *RefreshStatisticsJob) Description() string {
	return "Recompute and cache statistics for active exams"
}

// Run refreshes statistics for active exams, page by page. A failure on one
// exam is logged and does not stop the rest of the batch.
func (j *RefreshStatisticsJob) Run(ctx context.Context) error {
	filter := exam.Filter{}.WithOnlyActive()
	page := shared.NewPagination(1, j.batchSize)

	refreshed := 0
	failures := 0
	for {
		exams, err := j.examRepo.List(ctx, filter, page)
		if err != nil {
			return fmt.Errorf("refresh_statistics: list exams: %w", err)
		}
		if len(exams) == 0 {
			break
		}

		for _, e := range exams {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			_, err := j.stats.Handle(ctx, query.ExamStatisticsQuery{
				ExamID:    e.ID.String(),
				SkipCache: true,
			})
			if err != nil {
				failures++
				j.logger.Warn("statistics refresh failed",
					"exam_id", e.ID.String(), "error", err)
				continue
			}
			refreshed++
		}

		if len(exams) < page.Limit() {
			break
		}
		page.Page++
	}

	j.logger.Info("statistics refreshed",
		"exams", refreshed, "failures", failures)
	return nil
}
