package presence

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"devlink/internal/chat/realtime"
)

// Tracker maintains the live set of online usernames over the shared
// presence channel. One user may announce from several concurrent sessions;
// the exposed set reports each username once.
type Tracker struct {
	channels *realtime.Manager
	state    realtime.StateStore

	mu         sync.Mutex
	channel    *realtime.Channel
	sessionKey string
	username   string
	members    map[string]realtime.PresenceEvent // session key -> announcement
	onChange   func(online []string)
	lastSet    []string
	started    bool
}

func NewTracker(channels *realtime.Manager, state realtime.StateStore) *Tracker {
	return &Tracker{
		channels: channels,
		state:    state,
		members:  make(map[string]realtime.PresenceEvent),
	}
}

// OnChange registers the observer invoked with the de-duplicated online set
// whenever channel membership changes. Register before Start or Observe.
func (t *Tracker) OnChange(fn func(online []string)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Start announces this session's presence and begins tracking membership.
// Call once per active session, paired with Stop on logout or teardown.
func (t *Tracker) Start(ctx context.Context, username string) error {
	if username == "" {
		return errors.New("presence: username is required")
	}
	if err := t.subscribe(ctx); err != nil {
		return err
	}

	announcement := realtime.PresenceEvent{
		Action:     realtime.PresenceJoin,
		SessionKey: uuid.NewString(),
		Username:   username,
		OnlineAt:   time.Now(),
	}

	t.mu.Lock()
	if t.started {
		t.mu.Unlock()
		return errors.New("presence: tracker already started")
	}
	t.started = true
	t.sessionKey = announcement.SessionKey
	t.username = username
	ch := t.channel
	t.mu.Unlock()

	payload, err := json.Marshal(announcement)
	if err != nil {
		return err
	}
	if err := t.state.Put(ctx, announcement.SessionKey, payload); err != nil {
		return err
	}
	return ch.PublishPresence(ctx, announcement)
}

// Observe begins tracking membership without announcing presence. Used by
// read-only consumers of online status.
func (t *Tracker) Observe(ctx context.Context) error {
	return t.subscribe(ctx)
}

func (t *Tracker) subscribe(ctx context.Context) error {
	t.mu.Lock()
	if t.channel != nil {
		t.mu.Unlock()
		return nil
	}
	ch := t.channels.Channel(realtime.PresenceChannelName)
	t.channel = ch
	t.mu.Unlock()

	if err := ch.OnPresence(ctx, t.handlePresence); err != nil {
		t.mu.Lock()
		t.channel = nil
		t.mu.Unlock()
		t.channels.Release(ch)
		return err
	}

	// sync the membership that was announced before we subscribed
	existing, err := t.state.All(ctx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	for key, raw := range existing {
		var ev realtime.PresenceEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			log.Printf("presence: bad state entry %q: %v", key, err)
			continue
		}
		t.members[key] = ev
	}
	t.mu.Unlock()
	t.emitIfChanged()
	return nil
}

func (t *Tracker) handlePresence(ev realtime.PresenceEvent) {
	t.mu.Lock()
	switch ev.Action {
	case realtime.PresenceJoin:
		t.members[ev.SessionKey] = ev
	case realtime.PresenceLeave:
		delete(t.members, ev.SessionKey)
	default:
		t.mu.Unlock()
		log.Printf("presence: unknown action %q", ev.Action)
		return
	}
	t.mu.Unlock()
	t.emitIfChanged()
}

// Online returns the current de-duplicated, sorted set of online usernames.
func (t *Tracker) Online() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.onlineLocked()
}

func (t *Tracker) onlineLocked() []string {
	unique := make(map[string]bool, len(t.members))
	for _, ev := range t.members {
		unique[ev.Username] = true
	}
	online := make([]string, 0, len(unique))
	for username := range unique {
		online = append(online, username)
	}
	sort.Strings(online)
	return online
}

func (t *Tracker) emitIfChanged() {
	t.mu.Lock()
	online := t.onlineLocked()
	fn := t.onChange
	if equalSets(online, t.lastSet) {
		fn = nil
	} else {
		t.lastSet = online
	}
	t.mu.Unlock()

	if fn != nil {
		fn(online)
	}
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Stop withdraws this session's announcement and releases the channel.
func (t *Tracker) Stop(ctx context.Context) error {
	t.mu.Lock()
	ch := t.channel
	sessionKey := t.sessionKey
	username := t.username
	started := t.started
	t.channel = nil
	t.started = false
	t.sessionKey = ""
	t.mu.Unlock()

	if ch == nil {
		return nil
	}

	var err error
	if started {
		if rerr := t.state.Remove(ctx, sessionKey); rerr != nil {
			err = rerr
		}
		if perr := ch.PublishPresence(ctx, realtime.PresenceEvent{
			Action:     realtime.PresenceLeave,
			SessionKey: sessionKey,
			Username:   username,
			OnlineAt:   time.Now(),
		}); perr != nil && err == nil {
			err = perr
		}
	}

	t.channels.Release(ch)
	return err
}
