// Package handler exposes the chat core over HTTP and WebSocket.
package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"devlink/internal/chat/realtime"
	"devlink/internal/chat/session"
	"devlink/internal/chat/store"
	"devlink/internal/common"
)

// ConnectionAccess answers whether a user participates in a conversation.
// Satisfied by user.UserService.
type ConnectionAccess interface {
	CanAccessConnection(ctx context.Context, connectionID string, userID uint64) (bool, error)
}

type ChatHandler struct {
	store  store.Store
	bus    realtime.Bus
	state  realtime.StateStore
	access ConnectionAccess
}

func NewChatHandler(st store.Store, bus realtime.Bus, state realtime.StateStore, access ConnectionAccess) *ChatHandler {
	return &ChatHandler{store: st, bus: bus, state: state, access: access}
}

// Routes mounts every chat endpoint behind the auth middleware.
func (h *ChatHandler) Routes(router *mux.Router) {
	api := router.PathPrefix("/api/chat").Subrouter()
	api.Use(common.AuthMiddleware)
	api.HandleFunc("/{connectionID}/messages", h.getMessages).Methods("GET")
	api.HandleFunc("/{connectionID}/messages", h.sendMessage).Methods("POST")
	api.HandleFunc("/messages/{id}", h.deleteMessage).Methods("DELETE")
	api.HandleFunc("/messages/{id}/seen", h.markSeen).Methods("POST")

	router.HandleFunc("/ws/chat/{connectionID}", h.serveWS).Methods("GET")
}

type messagesResponse struct {
	Messages []*store.Message    `json:"messages"`
	Groups   []session.DateGroup `json:"groups"`
	HasMore  bool                `json:"has_more"`
	Page     int                 `json:"page"`
}

func (h *ChatHandler) getMessages(w http.ResponseWriter, r *http.Request) {
	connectionID := mux.Vars(r)["connectionID"]
	userID, handle, ok := identity(r)
	if !ok {
		http.Error(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	if !h.authorize(w, r, connectionID, userID) {
		return
	}

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
		page = parsed
	}

	messages, err := h.store.LoadPage(r.Context(), connectionID, page, session.DefaultPageSize, handle)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, messagesResponse{
		Messages: messages,
		Groups:   session.GroupByDate(messages),
		HasMore:  len(messages) >= session.DefaultPageSize,
		Page:     page,
	})
}

// sendMessage accepts multipart form data: a "content" field plus any number
// of "files" parts.
func (h *ChatHandler) sendMessage(w http.ResponseWriter, r *http.Request) {
	connectionID := mux.Vars(r)["connectionID"]
	userID, handle, ok := identity(r)
	if !ok {
		http.Error(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	if !h.authorize(w, r, connectionID, userID) {
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, "invalid multipart form", http.StatusBadRequest)
		return
	}

	content := r.FormValue("content")

	var files []store.File
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				http.Error(w, "unreadable file part", http.StatusBadRequest)
				return
			}
			defer f.Close()
			files = append(files, store.File{
				Name:     fh.Filename,
				MimeType: fh.Header.Get("Content-Type"),
				Size:     fh.Size,
				Content:  f,
			})
		}
	}

	msg, err := h.store.Send(r.Context(), connectionID, content, handle, files)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func (h *ChatHandler) deleteMessage(w http.ResponseWriter, r *http.Request) {
	_, handle, ok := identity(r)
	if !ok {
		http.Error(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	messageID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}

	if err := h.store.Delete(r.Context(), messageID, handle); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) markSeen(w http.ResponseWriter, r *http.Request) {
	_, handle, ok := identity(r)
	if !ok {
		http.Error(w, "user not authenticated", http.StatusUnauthorized)
		return
	}

	messageID, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		http.Error(w, "invalid message id", http.StatusBadRequest)
		return
	}

	if err := h.store.MarkSeen(r.Context(), messageID, handle); err != nil {
		writeStoreError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) authorize(w http.ResponseWriter, r *http.Request, connectionID string, userID uint64) bool {
	allowed, err := h.access.CanAccessConnection(r.Context(), connectionID, userID)
	if err != nil {
		http.Error(w, "authorization check failed", http.StatusInternalServerError)
		return false
	}
	if !allowed {
		http.Error(w, "not a participant of this conversation", http.StatusForbidden)
		return false
	}
	return true
}

func identity(r *http.Request) (uint64, string, bool) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		return 0, "", false
	}
	handle, ok := common.HandleFromContext(r.Context())
	if !ok {
		return 0, "", false
	}
	return userID, handle, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("handler: encode response: %v", err)
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	status := store.ErrStatus(err)
	if status == 0 {
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
