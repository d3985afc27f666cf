package broker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/logger"
)

func TestMemoryBrokerFanOut(t *testing.T) {
	b := NewMemoryBroker(logger.NewNop())
	defer b.Close()
	ctx := context.Background()

	subA, err := b.Subscribe(ctx, "document_progress:doc-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer subA.Close()
	subB, err := b.Subscribe(ctx, "document_progress:doc-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer subB.Close()

	event := domain.ProgressEvent{DocumentID: "doc-1", Step: domain.StepDownloading, Progress: 10}
	if err := b.Publish(ctx, "document_progress:doc-1", event); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for _, sub := range []Subscription{subA, subB} {
		got, err := sub.Next(ctx, time.Second)
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		if got != event {
			t.Fatalf("event: got=%+v want=%+v", got, event)
		}
	}
}

func TestMemoryBrokerChannelIsolation(t *testing.T) {
	b := NewMemoryBroker(logger.NewNop())
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "document_progress:doc-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	if err := b.Publish(ctx, "document_progress:doc-2", domain.ProgressEvent{DocumentID: "doc-2"}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if _, err := sub.Next(ctx, 50*time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestMemoryBrokerNextTimeout(t *testing.T) {
	b := NewMemoryBroker(logger.NewNop())
	defer b.Close()

	sub, err := b.Subscribe(context.Background(), "document_progress:doc-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	start := time.Now()
	_, err = sub.Next(context.Background(), 30*time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if time.Since(start) < 30*time.Millisecond {
		t.Fatal("Next returned before the wait elapsed")
	}
}

func TestMemoryBrokerNextHonorsContext(t *testing.T) {
	b := NewMemoryBroker(logger.NewNop())
	defer b.Close()

	sub, err := b.Subscribe(context.Background(), "document_progress:doc-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	if _, err := sub.Next(ctx, time.Minute); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMemoryBrokerSlowSubscriberKeepsTerminalEvent(t *testing.T) {
	b := NewMemoryBroker(logger.NewNop())
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "document_progress:doc-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	defer sub.Close()

	// Overflow the subscriber buffer without draining, ending with the
	// terminal event. Overflow sheds the oldest events, never the newest.
	for i := 0; i < 40; i++ {
		event := domain.ProgressEvent{DocumentID: "doc-1", Step: domain.StepVectorizing, Progress: 20 + i}
		if i == 39 {
			event = domain.ProgressEvent{DocumentID: "doc-1", Step: domain.StepCompleted, Progress: 100, Done: true}
		}
		if err := b.Publish(ctx, "document_progress:doc-1", event); err != nil {
			t.Fatalf("Publish %d: %v", i, err)
		}
	}

	var last domain.ProgressEvent
	for {
		event, err := sub.Next(ctx, 50*time.Millisecond)
		if errors.Is(err, ErrTimeout) {
			break
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		last = event
	}
	if !last.Done || last.Step != domain.StepCompleted {
		t.Fatalf("terminal event lost to backpressure: last=%+v", last)
	}
}

func TestMemoryBrokerUnsubscribeStopsDelivery(t *testing.T) {
	b := NewMemoryBroker(logger.NewNop())
	defer b.Close()
	ctx := context.Background()

	sub, err := b.Subscribe(ctx, "document_progress:doc-1")
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	// Publishing to a channel with no subscribers is a no-op, not an error.
	if err := b.Publish(ctx, "document_progress:doc-1", domain.ProgressEvent{}); err != nil {
		t.Fatalf("Publish after unsubscribe: %v", err)
	}
}
