package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
)

// PresenceChannelName is the fixed process-wide presence channel.
const PresenceChannelName = "chats"

// ConversationChannelName derives the channel name owned by one conversation.
func ConversationChannelName(connectionID string) string {
	return "chat:" + connectionID
}

// ErrHandlerRegistered is returned when a handler kind is registered twice on
// the same channel without releasing the first registration. Exactly one
// active handler per kind per channel.
var ErrHandlerRegistered = errors.New("realtime: handler already registered on channel")

// Manager creates and tears down named channels over a shared Bus. One
// Manager instance is owned by the application session.
type Manager struct {
	bus Bus

	mu       sync.Mutex
	channels map[string]*Channel
}

func NewManager(bus Bus) *Manager {
	return &Manager{
		bus:      bus,
		channels: make(map[string]*Channel),
	}
}

// Channel returns the channel registered under name, creating it if needed.
// Creation does not connect; the subscription is opened when the first
// handler is registered.
func (m *Manager) Channel(name string) *Channel {
	m.mu.Lock()
	defer m.mu.Unlock()

	if ch, ok := m.channels[name]; ok {
		return ch
	}
	ch := &Channel{
		name:    name,
		bus:     m.bus,
		manager: m,
	}
	m.channels[name] = ch
	return ch
}

// Release closes the channel and drops it from the registry.
func (m *Manager) Release(ch *Channel) {
	m.mu.Lock()
	delete(m.channels, ch.name)
	m.mu.Unlock()
	ch.Close()
}

// Close tears down every channel. Called on application shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	channels := make([]*Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		channels = append(channels, ch)
	}
	m.channels = make(map[string]*Channel)
	m.mu.Unlock()

	for _, ch := range channels {
		ch.Close()
	}
}

// Channel is one named bidirectional event stream. Handlers run on the
// channel's pump goroutine, so they must not block.
type Channel struct {
	name    string
	bus     Bus
	manager *Manager

	mu         sync.Mutex
	sub        Subscription
	onInsert   func(InsertEvent)
	onDelete   func(DeleteEvent)
	onPresence func(PresenceEvent)
	closed     bool
}

func (c *Channel) Name() string {
	return c.name
}

// OnInsert registers the single insert handler for this channel.
func (c *Channel) OnInsert(ctx context.Context, handler func(InsertEvent)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onInsert != nil {
		return ErrHandlerRegistered
	}
	if err := c.ensureSubscribedLocked(ctx); err != nil {
		return err
	}
	c.onInsert = handler
	return nil
}

// OnDelete registers the single delete handler for this channel.
func (c *Channel) OnDelete(ctx context.Context, handler func(DeleteEvent)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onDelete != nil {
		return ErrHandlerRegistered
	}
	if err := c.ensureSubscribedLocked(ctx); err != nil {
		return err
	}
	c.onDelete = handler
	return nil
}

// OnPresence registers the single presence handler for this channel.
func (c *Channel) OnPresence(ctx context.Context, handler func(PresenceEvent)) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.onPresence != nil {
		return ErrHandlerRegistered
	}
	if err := c.ensureSubscribedLocked(ctx); err != nil {
		return err
	}
	c.onPresence = handler
	return nil
}

func (c *Channel) ensureSubscribedLocked(ctx context.Context) error {
	if c.closed {
		return fmt.Errorf("realtime: channel %q is closed", c.name)
	}
	if c.sub != nil {
		return nil
	}
	sub, err := c.bus.Subscribe(ctx, c.name)
	if err != nil {
		return fmt.Errorf("realtime: subscribe %q: %w", c.name, err)
	}
	c.sub = sub
	go c.pump(sub)
	return nil
}

func (c *Channel) pump(sub Subscription) {
	for payload := range sub.Messages() {
		var env envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			log.Printf("realtime: bad payload on %q: %v", c.name, err)
			continue
		}

		c.mu.Lock()
		onInsert, onDelete, onPresence := c.onInsert, c.onDelete, c.onPresence
		c.mu.Unlock()

		switch {
		case env.Kind == kindInsert && env.Insert != nil:
			if onInsert != nil {
				onInsert(*env.Insert)
			}
		case env.Kind == kindDelete && env.Delete != nil:
			if onDelete != nil {
				onDelete(*env.Delete)
			}
		case env.Kind == kindPresence && env.Presence != nil:
			if onPresence != nil {
				onPresence(*env.Presence)
			}
		default:
			log.Printf("realtime: unknown event kind %q on %q", env.Kind, c.name)
		}
	}
}

// PublishInsert fans out a committed message to subscribers.
func (c *Channel) PublishInsert(ctx context.Context, ev InsertEvent) error {
	return c.publish(ctx, envelope{Kind: kindInsert, Insert: &ev})
}

// PublishDelete fans out a removed message id to subscribers.
func (c *Channel) PublishDelete(ctx context.Context, ev DeleteEvent) error {
	return c.publish(ctx, envelope{Kind: kindDelete, Delete: &ev})
}

// PublishPresence fans out a presence join/leave announcement.
func (c *Channel) PublishPresence(ctx context.Context, ev PresenceEvent) error {
	return c.publish(ctx, envelope{Kind: kindPresence, Presence: &ev})
}

func (c *Channel) publish(ctx context.Context, env envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("realtime: encode event: %w", err)
	}
	return c.bus.Publish(ctx, c.name, payload)
}

// Close releases all handlers and the underlying subscription. A closed
// channel cannot be reused; ask the Manager for a fresh one.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.onInsert = nil
	c.onDelete = nil
	c.onPresence = nil
	if c.sub != nil {
		err := c.sub.Close()
		c.sub = nil
		return err
	}
	return nil
}
