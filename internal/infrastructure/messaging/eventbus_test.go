package messaging

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skills-hub/assessment-core/internal/application/query"
	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

func TestEventBusPublishSubscribe(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	var received []shared.Event
	require.NoError(t, bus.Subscribe(shared.EventGradeRegistered, func(e shared.Event) error {
		received = append(received, e)
		return nil
	}))

	event := shared.NewGradeRegisteredEvent("grade-1", "exam-1", "comp-1", "skill-1", 85.0, "eval-1")
	require.NoError(t, bus.Publish(event))

	require.Len(t, received, 1)
	assert.Equal(t, shared.EventGradeRegistered, received[0].EventType())

	// Unrelated event types do not reach the handler.
	old, updated := 85.0, 90.0
	require.NoError(t, bus.Publish(shared.NewGradeUpdatedEvent("grade-1", "exam-1", &old, &updated, "eval-1")))
	assert.Len(t, received, 1)

	published, handled, failed := bus.Stats()
	assert.Equal(t, uint64(2), published)
	assert.Equal(t, uint64(1), handled)
	assert.Equal(t, uint64(0), failed)
}

func TestEventBusSubscribeAll(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	count := 0
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		count++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewGradeRegisteredEvent("g", "e", "c", "s", 50, "u")))
	old, updated := 50.0, 60.0
	require.NoError(t, bus.Publish(shared.NewGradeUpdatedEvent("g", "e", &old, &updated, "u")))
	assert.Equal(t, 2, count)
}

func TestEventBusHandlerError(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	boom := errors.New("boom")
	require.NoError(t, bus.Subscribe(shared.EventGradeRegistered, func(shared.Event) error {
		return boom
	}))

	err := bus.Publish(shared.NewGradeRegisteredEvent("g", "e", "c", "s", 50, "u"))
	assert.ErrorIs(t, err, boom)

	_, _, failed := bus.Stats()
	assert.Equal(t, uint64(1), failed)
}

func TestEventBusHandlerPanicRecovered(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	require.NoError(t, bus.Subscribe(shared.EventGradeRegistered, func(shared.Event) error {
		panic("bad subscriber")
	}))

	err := bus.Publish(shared.NewGradeRegisteredEvent("g", "e", "c", "s", 50, "u"))
	assert.Error(t, err)
}

func TestEventBusAsyncMode(t *testing.T) {
	bus := NewInMemoryEventBus(Config{AsyncMode: true, WorkerPoolSize: 4})

	done := make(chan struct{})
	require.NoError(t, bus.Subscribe(shared.EventGradeRegistered, func(shared.Event) error {
		close(done)
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewGradeRegisteredEvent("g", "e", "c", "s", 50, "u")))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("async handler did not run")
	}
	bus.Close()
}

func TestEventBusClosed(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	bus.Close()

	err := bus.Publish(shared.NewGradeRegisteredEvent("g", "e", "c", "s", 50, "u"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventGradeRegistered, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestEventBusNilHandler(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	assert.Error(t, bus.Subscribe(shared.EventGradeRegistered, nil))
	assert.Error(t, bus.SubscribeAll(nil))
}

// statsCacheStub implements query.StatisticsCache and records which exams
// were invalidated.
type statsCacheStub struct {
	invalidated []string
	fail        error
}

func (c *statsCacheStub) GetExamStatistics(context.Context, string) (*query.ExamStatisticsResult, error) {
	return nil, nil
}

func (c *statsCacheStub) SetExamStatistics(context.Context, *query.ExamStatisticsResult, time.Duration) error {
	return nil
}

func (c *statsCacheStub) InvalidateExam(_ context.Context, examID string) error {
	if c.fail != nil {
		return c.fail
	}
	c.invalidated = append(c.invalidated, examID)
	return nil
}

func TestStatisticsInvalidator(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	cache := &statsCacheStub{}
	inv := NewStatisticsInvalidator(cache, nil)
	require.NoError(t, inv.Register(bus))

	require.NoError(t, bus.Publish(shared.NewGradeRegisteredEvent("g1", "exam-1", "c", "s", 50, "u")))
	old, updated := 50.0, 70.0
	require.NoError(t, bus.Publish(shared.NewGradeUpdatedEvent("g1", "exam-2", &old, &updated, "u")))

	// Exam events leave the statistics cache alone.
	require.NoError(t, bus.Publish(shared.NewExamCreatedEvent("exam-3", "Finals", "mod", "practical", "u", nil)))

	assert.Equal(t, []string{"exam-1", "exam-2"}, cache.invalidated)
}

func TestStatisticsInvalidatorCacheErrorIsSwallowed(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultConfig())
	defer bus.Close()

	cache := &statsCacheStub{fail: errors.New("redis down")}
	inv := NewStatisticsInvalidator(cache, nil)
	require.NoError(t, inv.Register(bus))

	// Invalidation failures must not surface to the publisher.
	assert.NoError(t, bus.Publish(shared.NewGradeRegisteredEvent("g1", "exam-1", "c", "s", 50, "u")))
}
