// Package messaging implements the event bus behind the assessment core's
// domain events. The in-memory bus covers single-instance deployments and
// tests; subscribers hang cache invalidation and notification fan-out off
// the grade and exam events.
package messaging

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/skills-hub/assessment-core/internal/domain/shared"
)

// ErrEventBusClosed is returned when publishing to a closed bus.
var ErrEventBusClosed = errors.New("messaging: event bus is closed")

// ══════════════════════════════════════════════════════════════════════════════
// IN-MEMORY EVENT BUS
// ══════════════════════════════════════════════════════════════════════════════

// InMemoryEventBus is a simple in-memory implementation of shared.EventBus.
// Handlers run synchronously in Publish by default; async mode dispatches
// through a bounded worker pool.
type InMemoryEventBus struct {
	mu          sync.RWMutex
	handlers    map[shared.EventType][]shared.EventHandler
	allHandlers []shared.EventHandler
	closed      bool

	asyncMode  bool
	workerPool chan struct{}
	wg         sync.WaitGroup

	logger  *slog.Logger
	metrics Metrics
}

// Config contains configuration for InMemoryEventBus.
type Config struct {
	// AsyncMode dispatches handlers on the worker pool instead of inline.
	AsyncMode bool

	// WorkerPoolSize bounds concurrent async handlers.
	WorkerPoolSize int

	// Logger for structured logging; nil falls back to slog.Default.
	Logger *slog.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		AsyncMode:      false,
		WorkerPoolSize: 10,
	}
}

// NewInMemoryEventBus creates a new in-memory event bus.
func NewInMemoryEventBus(config Config) *InMemoryEventBus {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.WorkerPoolSize <= 0 {
		config.WorkerPoolSize = 10
	}
	return &InMemoryEventBus{
		handlers:   make(map[shared.EventType][]shared.EventHandler),
		asyncMode:  config.AsyncMode,
		workerPool: make(chan struct{}, config.WorkerPoolSize),
		logger:     config.Logger,
	}
}

// Subscribe registers a handler for a specific event type.
func (b *InMemoryEventBus) Subscribe(eventType shared.EventType, handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("messaging: handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}

	b.handlers[eventType] = append(b.handlers[eventType], handler)
	b.logger.Debug("subscribed handler", "event_type", eventType)
	return nil
}

// SubscribeAll registers a handler for all events.
func (b *InMemoryEventBus) SubscribeAll(handler shared.EventHandler) error {
	if handler == nil {
		return errors.New("messaging: handler cannot be nil")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrEventBusClosed
	}

	b.allHandlers = append(b.allHandlers, handler)
	return nil
}

// Publish delivers the event to every matching handler. In sync mode the
// first handler error aborts delivery and is returned; in async mode
// Publish never blocks on handlers and errors are only logged.
func (b *InMemoryEventBus) Publish(event shared.Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrEventBusClosed
	}
	typed := b.handlers[event.EventType()]
	targets := make([]shared.EventHandler, 0, len(typed)+len(b.allHandlers))
	targets = append(targets, typed...)
	targets = append(targets, b.allHandlers...)
	b.mu.RUnlock()

	b.metrics.published.Add(1)

	for _, handler := range targets {
		if b.asyncMode {
			b.dispatchAsync(event, handler)
			continue
		}
		if err := b.invoke(event, handler); err != nil {
			return fmt.Errorf("messaging: handler for %s: %w", event.EventType(), err)
		}
	}
	return nil
}

// dispatchAsync runs the handler on the worker pool.
func (b *InMemoryEventBus) dispatchAsync(event shared.Event, handler shared.EventHandler) {
	b.wg.Add(1)
	b.workerPool <- struct{}{}
	go func() {
		defer func() {
			<-b.workerPool
			b.wg.Done()
		}()
		if err := b.invoke(event, handler); err != nil {
			b.logger.Error("event handler failed",
				"event_type", event.EventType(),
				"aggregate_id", event.AggregateID(),
				"error", err)
		}
	}()
}

// invoke runs one handler, converting a panic into an error so one bad
// subscriber cannot take down the publisher.
func (b *InMemoryEventBus) invoke(event shared.Event, handler shared.EventHandler) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("handler panic: %v", p)
			b.metrics.failed.Add(1)
		}
	}()

	if err := handler(event); err != nil {
		b.metrics.failed.Add(1)
		return err
	}
	b.metrics.handled.Add(1)
	return nil
}

// Close stops accepting events and waits for in-flight async handlers.
func (b *InMemoryEventBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.wg.Wait()
}

// Stats returns delivery counters.
func (b *InMemoryEventBus) Stats() (published, handled, failed uint64) {
	return b.metrics.published.Load(), b.metrics.handled.Load(), b.metrics.failed.Load()
}

// Metrics holds delivery counters.
type Metrics struct {
	published atomic.Uint64
	handled   atomic.Uint64
	failed    atomic.Uint64
}
