package realtime

import (
	"encoding/json"
	"time"
)

// InsertEvent announces a newly committed message to every subscriber of the
// owning conversation channel. Message carries the full serialized record so
// receivers can render without a store round-trip.
type InsertEvent struct {
	ConnectionID string          `json:"connection_id"`
	Sender       string          `json:"sender"`
	Message      json.RawMessage `json:"message"`
}

// DeleteEvent announces a removed message id.
type DeleteEvent struct {
	ConnectionID string `json:"connection_id"`
	MessageID    uint64 `json:"message_id"`
}

// PresenceEvent announces a session joining or leaving the shared presence
// channel. One user may own several concurrent sessions, so SessionKey is
// the identity here, not Username.
type PresenceEvent struct {
	Action     string    `json:"action"` // join or leave
	SessionKey string    `json:"session_key"`
	Username   string    `json:"username"`
	OnlineAt   time.Time `json:"online_at"`
}

const (
	PresenceJoin  = "join"
	PresenceLeave = "leave"
)

// envelope is the wire format for channel payloads. Exactly one event field
// is set per envelope.
type envelope struct {
	Kind     string         `json:"kind"`
	Insert   *InsertEvent   `json:"insert,omitempty"`
	Delete   *DeleteEvent   `json:"delete,omitempty"`
	Presence *PresenceEvent `json:"presence,omitempty"`
}

const (
	kindInsert   = "insert"
	kindDelete   = "delete"
	kindPresence = "presence"
)
