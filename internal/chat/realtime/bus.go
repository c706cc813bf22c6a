package realtime

import (
	"context"
)

// Bus is the publish/subscribe transport channels are built on. Production
// uses Redis; tests use the in-memory implementation in this package.
type Bus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

// Subscription is one live subscription to a named channel. Messages is
// closed when the subscription is closed.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// StateStore holds the shared presence state so late subscribers can sync
// the current membership without waiting for join events.
type StateStore interface {
	Put(ctx context.Context, field string, value []byte) error
	Remove(ctx context.Context, field string) error
	All(ctx context.Context) (map[string][]byte, error)
}
