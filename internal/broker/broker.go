package broker

import (
	"context"
	"errors"
	"time"

	"github.com/abdel7517/ragdocs/internal/domain"
)

// ErrTimeout is returned by Subscription.Next when the bounded wait expires
// before an event arrives. The relay turns it into a heartbeat.
var ErrTimeout = errors.New("timed out waiting for progress event")

// Broker is the topic-based pub/sub channel carrying progress events. Every
// subscriber on a channel receives every published event (fan-out, not
// competing consumers).
type Broker interface {
	Publish(ctx context.Context, channel string, event domain.ProgressEvent) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
	Close() error
}

// Subscription is a scoped, blocking pull interface over one channel. Close
// must be called on every exit path.
type Subscription interface {
	Next(ctx context.Context, wait time.Duration) (domain.ProgressEvent, error)
	Close() error
}
