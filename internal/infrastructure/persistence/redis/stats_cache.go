package redis

import (
	"context"
	"errors"
	"time"

	"github.com/skills-hub/assessment-core/internal/application/query"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS CACHE
// ══════════════════════════════════════════════════════════════════════════════

// StatisticsCache implements query.StatisticsCache on top of Cache.
// A miss returns (nil, nil) per the interface contract; connection errors
// surface so the caller can decide to degrade to a direct read.
type StatisticsCache struct {
	cache *Cache
}

// NewStatisticsCache creates a new StatisticsCache.
func NewStatisticsCache(cache *Cache) *StatisticsCache {
	return &StatisticsCache{cache: cache}
}

// GetExamStatistics returns the cached result, or nil on miss.
func (c *StatisticsCache) GetExamStatistics(ctx context.Context, examID string) (*query.ExamStatisticsResult, error) {
	var result query.ExamStatisticsResult
	err := c.cache.Get(ctx, PrefixExamStats+examID, &result)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// SetExamStatistics stores a result with TTL.
func (c *StatisticsCache) SetExamStatistics(ctx context.Context, result *query.ExamStatisticsResult, ttl time.Duration) error {
	return c.cache.Set(ctx, PrefixExamStats+result.ExamID, result, ttl)
}

// InvalidateExam drops the cached result for an exam.
func (c *StatisticsCache) InvalidateExam(ctx context.Context, examID string) error {
	return c.cache.Delete(ctx, PrefixExamStats+examID)
}
