package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBusDeliversToMatchingSubscribersOnly(t *testing.T) {
	bus := NewBus(nil, nil, 8)

	var mu sync.Mutex
	var liked, replied []Event
	if err := bus.Subscribe(CommentLiked, func(ctx context.Context, evt Event) error {
		mu.Lock()
		defer mu.Unlock()
		liked = append(liked, evt)
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	if err := bus.Subscribe(CommentReplied, func(ctx context.Context, evt Event) error {
		mu.Lock()
		defer mu.Unlock()
		replied = append(replied, evt)
		return nil
	}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	ctx := context.Background()
	bus.Start(ctx)
	defer bus.Close()

	bus.Publish(New(CommentLiked, "t1", "u1", CommentLikedPayload{CommentID: "c1"}))
	bus.Publish(New(CommentLiked, "t1", "u1", CommentLikedPayload{CommentID: "c2"}))

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := bus.Drain(drainCtx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(liked) != 2 {
		t.Fatalf("expected 2 liked events, got %d", len(liked))
	}
	if len(replied) != 0 {
		t.Fatalf("expected no replied events, got %d", len(replied))
	}
}

func TestBusIsolatesHandlerFailures(t *testing.T) {
	bus := NewBus(nil, nil, 8)

	var mu sync.Mutex
	var delivered int
	_ = bus.Subscribe(UserRegistered, func(ctx context.Context, evt Event) error {
		return errors.New("boom")
	})
	_ = bus.Subscribe(UserRegistered, func(ctx context.Context, evt Event) error {
		panic("handler exploded")
	})
	_ = bus.Subscribe(UserRegistered, func(ctx context.Context, evt Event) error {
		mu.Lock()
		defer mu.Unlock()
		delivered++
		return nil
	})

	ctx := context.Background()
	bus.Start(ctx)
	defer bus.Close()

	bus.Publish(New(UserRegistered, "t1", "u1", UserRegisteredPayload{UserID: "u1"}))

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := bus.Drain(drainCtx); err != nil {
		t.Fatalf("drain: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if delivered != 1 {
		t.Fatalf("expected last handler to run despite earlier failures, delivered=%d", delivered)
	}
}

func TestBusDrainDeliversEventsPendingAtShutdown(t *testing.T) {
	bus := NewBus(nil, nil, 8)

	var mu sync.Mutex
	var delivered int
	_ = bus.Subscribe(CoursePublished, func(ctx context.Context, evt Event) error {
		mu.Lock()
		defer mu.Unlock()
		delivered++
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	bus.Start(ctx)
	defer bus.Close()

	// Cancellation models SIGTERM: events enqueued around it must still reach
	// their handlers instead of stalling Drain until its deadline.
	cancel()
	bus.Publish(New(CoursePublished, "t1", "u1", CoursePublishedPayload{CourseID: "c1"}))
	bus.Publish(New(CoursePublished, "t1", "u1", CoursePublishedPayload{CourseID: "c2"}))

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancelDrain()
	if err := bus.Drain(drainCtx); err != nil {
		t.Fatalf("drain after shutdown signal: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if delivered != 2 {
		t.Fatalf("expected both pending events delivered, got %d", delivered)
	}
}

func TestBusPublishNeverBlocks(t *testing.T) {
	bus := NewBus(nil, nil, 1)
	// Not started: the queue fills up and further publishes must drop.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			bus.Publish(New(LessonCreated, "t1", "u1", nil))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("publish blocked on full queue")
	}
}

func TestBusRejectsSubscribeAfterStart(t *testing.T) {
	bus := NewBus(nil, nil, 1)
	bus.Start(context.Background())
	defer bus.Close()
	if err := bus.Subscribe(LessonCreated, func(ctx context.Context, evt Event) error { return nil }); err == nil {
		t.Fatalf("expected error subscribing after start")
	}
}
