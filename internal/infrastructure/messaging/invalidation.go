package messaging

import (
	"context"
	"log/slog"

	"github.com/skills-hub/assessment-core/internal/application/query"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STATISTICS CACHE INVALIDATION
// ══════════════════════════════════════════════════════════════════════════════

// StatisticsInvalidator drops cached exam statistics whenever a grade
// mutation event arrives, so statistics reads never serve data older than
// the cache TTL after a write.
type StatisticsInvalidator struct {
	cache  query.StatisticsCache
	logger *slog.Logger
}

// NewStatisticsInvalidator creates a new StatisticsInvalidator.
func NewStatisticsInvalidator(cache query.StatisticsCache, logger *slog.Logger) *StatisticsInvalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatisticsInvalidator{cache: cache, logger: logger}
}

// Register subscribes the invalidator to every grade mutation event.
func (s *StatisticsInvalidator) Register(bus shared.EventSubscriber) error {
	for _, eventType := range []shared.EventType{
		shared.EventGradeRegistered,
		shared.EventGradeUpdated,
		shared.EventGradeDeleted,
	} {
		if err := bus.Subscribe(eventType, s.handle); err != nil {
			return err
		}
	}
	return nil
}

// handle extracts the exam ID from the event and invalidates its cached
// statistics. Unknown event shapes are ignored.
func (s *StatisticsInvalidator) handle(event shared.Event) error {
	var examID string
	switch e := event.(type) {
	case shared.GradeRegisteredEvent:
		examID = e.ExamID
	case shared.GradeUpdatedEvent:
		examID = e.ExamID
	default:
		return nil
	}
	if examID == "" {
		return nil
	}

	if err := s.cache.InvalidateExam(context.Background(), examID); err != nil {
		// Stale statistics expire with the TTL; log and move on.
		s.logger.Warn("statistics cache invalidation failed",
			"exam_id", examID, "error", err)
	}
	return nil
}
