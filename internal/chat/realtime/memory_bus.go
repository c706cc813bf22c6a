package realtime

import (
	"context"
	"sync"
)

// InMemoryBus is a process-local Bus used by tests and single-node
// development setups.
type InMemoryBus struct {
	mu   sync.Mutex
	subs map[string][]*memorySubscription
}

func NewInMemoryBus() *InMemoryBus {
	return &InMemoryBus{
		subs: make(map[string][]*memorySubscription),
	}
}

func (b *InMemoryBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	subs := make([]*memorySubscription, len(b.subs[channel]))
	copy(subs, b.subs[channel])
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(payload)
	}
	return nil
}

func (b *InMemoryBus) Subscribe(ctx context.Context, channel string) (Subscription, error) {
	sub := &memorySubscription{
		bus:      b,
		channel:  channel,
		messages: make(chan []byte, 64),
	}
	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], sub)
	b.mu.Unlock()
	return sub, nil
}

func (b *InMemoryBus) remove(target *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[target.channel]
	for i, sub := range subs {
		if sub == target {
			b.subs[target.channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

type memorySubscription struct {
	bus      *InMemoryBus
	channel  string
	messages chan []byte
	closed   sync.Once
}

func (s *memorySubscription) deliver(payload []byte) {
	defer func() {
		// a concurrent Close may have closed the channel
		recover()
	}()
	s.messages <- payload
}

func (s *memorySubscription) Messages() <-chan []byte {
	return s.messages
}

func (s *memorySubscription) Close() error {
	s.closed.Do(func() {
		s.bus.remove(s)
		close(s.messages)
	})
	return nil
}

// InMemoryStateStore is a map-backed StateStore for tests.
type InMemoryStateStore struct {
	mu    sync.Mutex
	state map[string][]byte
}

func NewInMemoryStateStore() *InMemoryStateStore {
	return &InMemoryStateStore{state: make(map[string][]byte)}
}

func (s *InMemoryStateStore) Put(ctx context.Context, field string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[field] = value
	return nil
}

func (s *InMemoryStateStore) Remove(ctx context.Context, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.state, field)
	return nil
}

func (s *InMemoryStateStore) All(ctx context.Context) (map[string][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string][]byte, len(s.state))
	for k, v := range s.state {
		out[k] = v
	}
	return out, nil
}
