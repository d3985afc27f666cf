package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abdel7517/ragdocs/internal/domain"
	"github.com/abdel7517/ragdocs/internal/logger"
)

// MemoryBroker is an in-process Broker for tests and single-process runs.
// Same fan-out semantics as the redis broker, minus durability.
type MemoryBroker struct {
	log    *logger.Logger
	mu     sync.RWMutex
	subs   map[string]map[*memorySubscription]struct{}
	closed bool
}

func NewMemoryBroker(log *logger.Logger) *MemoryBroker {
	return &MemoryBroker{
		log:  log.With("service", "MemoryProgressBroker"),
		subs: make(map[string]map[*memorySubscription]struct{}),
	}
}

func (b *MemoryBroker) Publish(ctx context.Context, channel string, event domain.ProgressEvent) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return fmt.Errorf("memory progress broker closed")
	}
	for sub := range b.subs[channel] {
		select {
		case sub.ch <- event:
			continue
		default:
		}
		// Buffer full: shed the oldest event instead of the newest, so a
		// slow subscriber still sees the terminal event.
		select {
		case dropped := <-sub.ch:
			b.log.Warn("Subscriber buffer full; dropped oldest progress event",
				"channel", channel,
				"dropped_step", dropped.Step,
			)
		default:
		}
		select {
		case sub.ch <- event:
		default:
			b.log.Warn("Dropping progress event; subscriber buffer full", "channel", channel)
		}
	}
	return nil
}

func (b *MemoryBroker) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("memory progress broker closed")
	}
	sub := &memorySubscription{
		broker:  b,
		channel: channel,
		ch:      make(chan domain.ProgressEvent, 32),
	}
	if b.subs[channel] == nil {
		b.subs[channel] = make(map[*memorySubscription]struct{})
	}
	b.subs[channel][sub] = struct{}{}
	return sub, nil
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subs = make(map[string]map[*memorySubscription]struct{})
	return nil
}

func (b *MemoryBroker) remove(sub *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subs[sub.channel]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(b.subs, sub.channel)
		}
	}
}

type memorySubscription struct {
	broker  *MemoryBroker
	channel string
	ch      chan domain.ProgressEvent

	closeOnce sync.Once
}

func (s *memorySubscription) Next(ctx context.Context, wait time.Duration) (domain.ProgressEvent, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return domain.ProgressEvent{}, ctx.Err()
	case <-timer.C:
		return domain.ProgressEvent{}, ErrTimeout
	case event := <-s.ch:
		return event, nil
	}
}

func (s *memorySubscription) Close() error {
	s.closeOnce.Do(func() {
		s.broker.remove(s)
	})
	return nil
}
