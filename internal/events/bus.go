package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lumen-lms/lumen-lms/internal/observability"
)

// Handler consumes one event. A returned error is logged and isolated; it
// never reaches other handlers or the publisher.
type Handler func(ctx context.Context, evt Event) error

const defaultQueueSize = 256

// Bus routes published events to subscribers over a bounded queue. The
// subscription table is populated at startup and read-only afterwards, so
// dispatch runs without locking.
type Bus struct {
	logger  *slog.Logger
	metrics *observability.Metrics

	mu      sync.Mutex
	started bool
	subs    map[Type][]Handler

	queue    chan Event
	inflight sync.WaitGroup
	stop     chan struct{}
	stopped  sync.WaitGroup
}

// NewBus constructs a bus with the given queue capacity. Zero or negative
// capacity falls back to the default.
func NewBus(logger *slog.Logger, metrics *observability.Metrics, queueSize int) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Bus{
		logger:  logger,
		metrics: metrics,
		subs:    make(map[Type][]Handler),
		queue:   make(chan Event, queueSize),
		stop:    make(chan struct{}),
	}
}

// Subscribe registers a handler for an event type. It must be called before
// Start; registration after startup is a programming error.
func (b *Bus) Subscribe(t Type, h Handler) error {
	if h == nil {
		return errors.New("events: nil handler")
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return errors.New("events: subscribe after start")
	}
	b.subs[t] = append(b.subs[t], h)
	return nil
}

// Start launches the dispatch loop. Handlers are invoked sequentially per
// event, in subscription order, each isolated from the others.
func (b *Bus) Start(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.mu.Unlock()

	b.stopped.Add(1)
	go func() {
		defer b.stopped.Done()
		done := ctx.Done()
		for {
			select {
			case evt := <-b.queue:
				b.dispatch(ctx, evt)
				b.inflight.Done()
			case <-done:
				// Shutdown began. Keep delivering until Close so Drain can
				// observe pending events handled, but detach the dispatch
				// context so handlers are not cut off mid-write.
				ctx = context.WithoutCancel(ctx)
				done = nil
			case <-b.stop:
				// Drain whatever was enqueued before shutdown.
				for {
					select {
					case evt := <-b.queue:
						b.dispatch(ctx, evt)
						b.inflight.Done()
					default:
						return
					}
				}
			}
		}
	}()
}

// Publish schedules delivery and returns immediately. Delivery is best effort:
// when the queue is full the event is dropped with a warning.
func (b *Bus) Publish(evt Event) {
	b.inflight.Add(1)
	select {
	case b.queue <- evt:
		b.metrics.EventPublished(string(evt.Type))
	default:
		b.inflight.Done()
		b.metrics.EventDropped()
		b.logger.Warn("event dropped, queue full",
			slog.String("type", string(evt.Type)),
			slog.String("event_id", evt.ID))
	}
}

// Drain blocks until every enqueued event has been handled or the context
// expires. Used by tests and graceful shutdown.
func (b *Bus) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the dispatch loop after draining the queue.
func (b *Bus) Close() {
	close(b.stop)
	b.stopped.Wait()
}

func (b *Bus) dispatch(ctx context.Context, evt Event) {
	handlers := b.subs[evt.Type]
	for _, h := range handlers {
		if err := b.invoke(ctx, h, evt); err != nil {
			b.metrics.HandlerFailed(string(evt.Type))
			b.logger.Error("event handler failed",
				slog.String("type", string(evt.Type)),
				slog.String("event_id", evt.ID),
				slog.Any("error", err))
		}
	}
}

func (b *Bus) invoke(ctx context.Context, h Handler, evt Event) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("handler panic: %v", rec)
		}
	}()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return h(ctx, evt)
}
