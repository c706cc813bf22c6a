package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"devlink/internal/chat/presence"
	"devlink/internal/chat/realtime"
	"devlink/internal/chat/session"
	"devlink/internal/common"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// clientCommand is what the browser sends over the socket.
type clientCommand struct {
	Type      string `json:"type"` // send | delete | seen | load_more
	Content   string `json:"content,omitempty"`
	MessageID uint64 `json:"message_id,omitempty"`
}

// serverPush is what the server writes back.
type serverPush struct {
	Type     string            `json:"type"` // snapshot | presence | error
	Snapshot *session.Snapshot `json:"snapshot,omitempty"`
	Online   []string          `json:"online,omitempty"`
	Error    string            `json:"error,omitempty"`
}

// serveWS runs one chat session over a websocket. Browsers cannot set an
// Authorization header on the upgrade request, so the token rides in the
// query string.
func (h *ChatHandler) serveWS(w http.ResponseWriter, r *http.Request) {
	connectionID := mux.Vars(r)["connectionID"]

	claims, err := common.ValidToken(r.URL.Query().Get("token"))
	if err != nil {
		http.Error(w, "invalid or expired token", http.StatusUnauthorized)
		return
	}

	allowed, err := h.access.CanAccessConnection(r.Context(), connectionID, claims.UserID)
	if err != nil {
		http.Error(w, "authorization check failed", http.StatusInternalServerError)
		return
	}
	if !allowed {
		http.Error(w, "not a participant of this conversation", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade: %v", err)
		return
	}

	ws := newWSSession(conn, h, connectionID, claims.Handle)
	go ws.write()
	ws.read()
}

// wsSession binds one websocket to one session controller and one presence
// tracker. Each socket gets its own channel manager over the shared bus so
// its handler registrations never collide with another socket's.
type wsSession struct {
	conn         *websocket.Conn
	handler      *ChatHandler
	connectionID string
	viewer       string

	channels   *realtime.Manager
	controller *session.Controller
	tracker    *presence.Tracker

	send chan serverPush
	stop chan struct{}
}

func newWSSession(conn *websocket.Conn, h *ChatHandler, connectionID, viewer string) *wsSession {
	channels := realtime.NewManager(h.bus)
	ws := &wsSession{
		conn:         conn,
		handler:      h,
		connectionID: connectionID,
		viewer:       viewer,
		channels:     channels,
		controller:   session.NewController(h.store, channels, viewer, session.DefaultPageSize),
		tracker:      presence.NewTracker(channels, h.state),
		send:         make(chan serverPush, 64),
		stop:         make(chan struct{}),
	}

	ws.controller.OnChange(func(snap session.Snapshot) {
		ws.queue(serverPush{Type: "snapshot", Snapshot: &snap})
	})
	ws.tracker.OnChange(func(online []string) {
		ws.queue(serverPush{Type: "presence", Online: online})
	})

	return ws
}

func (ws *wsSession) open(ctx context.Context) {
	if err := ws.controller.Open(ctx, ws.connectionID); err != nil {
		ws.queue(serverPush{Type: "error", Error: err.Error()})
	}
	if err := ws.tracker.Start(ctx, ws.viewer); err != nil {
		ws.queue(serverPush{Type: "error", Error: err.Error()})
	}
}

func (ws *wsSession) read() {
	defer func() {
		ws.cleanup()
		ws.conn.Close()
	}()

	ws.conn.SetReadLimit(maxMessageSize)
	ws.conn.SetReadDeadline(time.Now().Add(pongWait))
	ws.conn.SetPongHandler(func(string) error {
		ws.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	ctx := context.Background()
	ws.open(ctx)

	for {
		_, raw, err := ws.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("ws: read: %v", err)
			}
			return
		}

		var cmd clientCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			ws.queue(serverPush{Type: "error", Error: "malformed command"})
			continue
		}

		ws.dispatch(ctx, cmd)
	}
}

func (ws *wsSession) dispatch(ctx context.Context, cmd clientCommand) {
	var err error
	switch cmd.Type {
	case "send":
		_, err = ws.controller.Send(ctx, cmd.Content, nil)
	case "delete":
		err = ws.controller.DeleteMessage(ctx, cmd.MessageID)
	case "seen":
		err = ws.controller.MarkSeen(ctx, cmd.MessageID)
	case "load_more":
		err = ws.controller.LoadOlder(ctx)
	default:
		ws.queue(serverPush{Type: "error", Error: "unknown command " + cmd.Type})
		return
	}
	if err != nil {
		ws.queue(serverPush{Type: "error", Error: err.Error()})
	}
}

func (ws *wsSession) write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		ws.conn.Close()
	}()

	for {
		select {
		case push, ok := <-ws.send:
			if !ok {
				return
			}
			ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteJSON(push); err != nil {
				return
			}
		case <-ws.stop:
			return
		case <-ticker.C:
			ws.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (ws *wsSession) queue(push serverPush) {
	select {
	case ws.send <- push:
	default:
		log.Printf("ws: dropping push to %s, buffer full", ws.viewer)
	}
}

func (ws *wsSession) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := ws.tracker.Stop(ctx); err != nil {
		log.Printf("ws: presence stop: %v", err)
	}
	ws.controller.Close()
	ws.channels.Close()
	close(ws.stop)
}
