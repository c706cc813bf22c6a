package session

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"

	"devlink/internal/chat/realtime"
	"devlink/internal/chat/store"
)

const DefaultPageSize = 10

// ErrEmptySend is returned when a send carries neither content nor
// attachments. The composer guards this client-side; the controller never
// forwards an empty send to the store.
var ErrEmptySend = errors.New("session: empty send rejected")

// Snapshot is an immutable view of the controller state handed to observers.
type Snapshot struct {
	ConnectionID string           `json:"connection_id"`
	Messages     []*store.Message `json:"messages"`
	Loading      bool             `json:"loading"`
	HasMore      bool             `json:"has_more"`
	Page         int              `json:"page"`
}

// Controller owns the observable message list for one active conversation
// view. It reconciles paged fetches, local sends and remote push events into
// a single de-duplicated, time-ordered sequence.
//
// Messages are held in ascending time order. A fetched page is older than
// everything on screen, so it is spliced at the head; sends and remote
// inserts append at the tail.
type Controller struct {
	store    store.Store
	channels *realtime.Manager
	viewer   string
	pageSize int

	mu           sync.Mutex
	connectionID string
	epoch        int
	channel      *realtime.Channel
	messages     []*store.Message
	loading      bool
	hasMore      bool
	page         int
	onChange     func(Snapshot)
	closed       bool
}

func NewController(st store.Store, channels *realtime.Manager, viewer string, pageSize int) *Controller {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Controller{
		store:    st,
		channels: channels,
		viewer:   viewer,
		pageSize: pageSize,
	}
}

// OnChange registers the observer notified after every settled transition.
// Register before Open; the callback must not block.
func (c *Controller) OnChange(fn func(Snapshot)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Open switches the controller to a new conversation: all state resets, the
// previous conversation's channel is released, the new one is subscribed,
// and the first page is fetched.
func (c *Controller) Open(ctx context.Context, connectionID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return errors.New("session: controller is closed")
	}
	prev := c.channel
	c.epoch++
	epoch := c.epoch
	c.connectionID = connectionID
	c.channel = nil
	c.messages = nil
	c.loading = false
	c.hasMore = true
	c.page = 1
	c.mu.Unlock()

	if prev != nil {
		c.channels.Release(prev)
	}

	ch := c.channels.Channel(realtime.ConversationChannelName(connectionID))
	if err := ch.OnInsert(ctx, func(ev realtime.InsertEvent) {
		c.handleRemoteInsert(epoch, ev)
	}); err != nil {
		c.channels.Release(ch)
		return err
	}
	if err := ch.OnDelete(ctx, func(ev realtime.DeleteEvent) {
		c.handleRemoteDelete(epoch, ev)
	}); err != nil {
		c.channels.Release(ch)
		return err
	}

	c.mu.Lock()
	if c.epoch != epoch {
		// a newer Open won the race; this channel is not ours to keep
		c.mu.Unlock()
		c.channels.Release(ch)
		return nil
	}
	c.channel = ch
	c.mu.Unlock()

	return c.loadPage(ctx, epoch, 1)
}

// LoadOlder fetches the next older page. No-op while a load is in flight or
// when the history is exhausted.
func (c *Controller) LoadOlder(ctx context.Context) error {
	c.mu.Lock()
	if c.loading || !c.hasMore || c.closed {
		c.mu.Unlock()
		return nil
	}
	epoch := c.epoch
	next := c.page + 1
	c.mu.Unlock()

	return c.loadPage(ctx, epoch, next)
}

func (c *Controller) loadPage(ctx context.Context, epoch, page int) error {
	c.mu.Lock()
	if c.epoch != epoch || c.loading || !c.hasMore {
		c.mu.Unlock()
		return nil
	}
	c.loading = true
	connectionID := c.connectionID
	c.mu.Unlock()
	c.notify()

	batch, err := c.store.LoadPage(ctx, connectionID, page, c.pageSize, c.viewer)

	c.mu.Lock()
	if c.epoch != epoch {
		// the conversation changed while the request was in flight
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		// leave hasMore untouched so the user can retry
		c.loading = false
		c.mu.Unlock()
		c.notify()
		log.Printf("session: load page %d of %s: %v", page, connectionID, err)
		return err
	}

	c.spliceOlderLocked(batch)
	c.hasMore = len(batch) >= c.pageSize
	c.page = page
	c.loading = false
	c.mu.Unlock()
	c.notify()
	return nil
}

// spliceOlderLocked inserts a fetched batch before everything currently held,
// normalizing the batch to ascending time order and dropping ids already on
// screen.
func (c *Controller) spliceOlderLocked(batch []*store.Message) {
	incoming := make([]*store.Message, 0, len(batch))
	seen := make(map[uint64]bool, len(c.messages))
	for _, m := range c.messages {
		seen[m.ID] = true
	}
	for _, m := range batch {
		if m == nil || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		incoming = append(incoming, m)
	}
	sort.SliceStable(incoming, func(i, j int) bool {
		if incoming[i].CreatedAt.Equal(incoming[j].CreatedAt) {
			return incoming[i].ID < incoming[j].ID
		}
		return incoming[i].CreatedAt.Before(incoming[j].CreatedAt)
	})
	c.messages = append(incoming, c.messages...)
}

// Send validates, commits through the store, and appends the confirmed
// message at the tail. The composer keeps its state on failure so nothing
// the user typed is lost.
func (c *Controller) Send(ctx context.Context, content string, files []store.File) (*store.Message, error) {
	if content == "" && len(files) == 0 {
		return nil, ErrEmptySend
	}

	c.mu.Lock()
	epoch := c.epoch
	connectionID := c.connectionID
	c.mu.Unlock()

	msg, err := c.store.Send(ctx, connectionID, content, c.viewer, files)
	if err != nil {
		log.Printf("session: send to %s: %v", connectionID, err)
		return nil, err
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.appendTailLocked(msg)
	}
	c.mu.Unlock()
	c.notify()
	return msg, nil
}

// DeleteMessage removes one of the viewer's own messages. The local removal
// is idempotent with the delete event that follows it on the channel.
func (c *Controller) DeleteMessage(ctx context.Context, messageID uint64) error {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	if err := c.store.Delete(ctx, messageID, c.viewer); err != nil {
		log.Printf("session: delete message %d: %v", messageID, err)
		return err
	}

	c.mu.Lock()
	changed := false
	if c.epoch == epoch {
		changed = c.removeLocked(messageID)
	}
	c.mu.Unlock()
	if changed {
		c.notify()
	}
	return nil
}

// MarkSeen flags a counterparty message as seen and mirrors it locally.
func (c *Controller) MarkSeen(ctx context.Context, messageID uint64) error {
	if err := c.store.MarkSeen(ctx, messageID, c.viewer); err != nil {
		return err
	}

	c.mu.Lock()
	for _, m := range c.messages {
		if m.ID == messageID {
			m.Seen = true
			break
		}
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

func (c *Controller) handleRemoteInsert(epoch int, ev realtime.InsertEvent) {
	// self-sent inserts are suppressed; Send already appended them
	if ev.Sender == c.viewer {
		return
	}

	var msg store.Message
	if err := json.Unmarshal(ev.Message, &msg); err != nil {
		log.Printf("session: bad insert payload on %s: %v", ev.ConnectionID, err)
		return
	}
	msg.ResolveSenderKind(c.viewer)
	if msg.Attachments == nil {
		msg.Attachments = []*store.Attachment{}
	}

	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		return
	}
	c.appendTailLocked(&msg)
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) handleRemoteDelete(epoch int, ev realtime.DeleteEvent) {
	c.mu.Lock()
	changed := false
	if c.epoch == epoch {
		changed = c.removeLocked(ev.MessageID)
	}
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

func (c *Controller) appendTailLocked(msg *store.Message) {
	for _, m := range c.messages {
		if m.ID == msg.ID {
			return
		}
	}
	c.messages = append(c.messages, msg)
}

// removeLocked drops a message id if present. Removing an absent id is a
// no-op, never an error.
func (c *Controller) removeLocked(messageID uint64) bool {
	for i, m := range c.messages {
		if m.ID == messageID {
			c.messages = append(c.messages[:i], c.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	messages := make([]*store.Message, len(c.messages))
	copy(messages, c.messages)
	return Snapshot{
		ConnectionID: c.connectionID,
		Messages:     messages,
		Loading:      c.loading,
		HasMore:      c.hasMore,
		Page:         c.page,
	}
}

// Grouped returns the date-grouped derived view of the current messages.
func (c *Controller) Grouped() []DateGroup {
	snap := c.Snapshot()
	return GroupByDate(snap.Messages)
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.onChange
	var snap Snapshot
	if fn != nil {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()
	if fn != nil {
		fn(snap)
	}
}

// Close tears down the view: the conversation channel is released and the
// controller refuses further transitions.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.epoch++
	ch := c.channel
	c.channel = nil
	c.mu.Unlock()

	if ch != nil {
		c.channels.Release(ch)
	}
}
