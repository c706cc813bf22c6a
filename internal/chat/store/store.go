package store

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"devlink/internal/common"
)

// SenderKind classifies a message's sender relative to the viewing user. It
// is resolved at read time by comparing handles, never stored.
type SenderKind string

const (
	SenderSelf  SenderKind = "self"
	SenderOther SenderKind = "other"
)

// Message is one chat message as seen by a particular viewer.
type Message struct {
	ID           uint64        `json:"id"`
	ConnectionID string        `json:"connection_id"`
	Content      string        `json:"content"`
	Sender       string        `json:"sender"`
	SenderKind   SenderKind    `json:"sender_kind"`
	Seen         bool          `json:"seen"`
	Attachments  []*Attachment `json:"attachments"` // never nil
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ResolveSenderKind recomputes SenderKind for the given viewer. Receivers of
// pushed insert events call this before display.
func (m *Message) ResolveSenderKind(viewer string) {
	if m.Sender == viewer {
		m.SenderKind = SenderSelf
	} else {
		m.SenderKind = SenderOther
	}
}

// Attachment is a resolved attachment record. When the point lookup for an
// id failed, the record is kept as an explicit placeholder with Unavailable
// set instead of being dropped from the message.
type Attachment struct {
	ID          uint64                `json:"id"`
	Type        common.AttachmentType `json:"type"`
	URL         string                `json:"url"`
	Name        string                `json:"name"`
	Size        int64                 `json:"size"`
	Unavailable bool                  `json:"unavailable,omitempty"`
}

// File is one staged upload accompanying a send.
type File struct {
	Name     string
	MimeType string
	Size     int64
	Content  io.Reader
}

// StoreError is the failure type every store operation surfaces. Status uses
// HTTP status semantics so the transport layer can forward it unchanged.
type StoreError struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s (status %d)", e.Message, e.Status)
}

func newStoreError(status int, format string, args ...interface{}) *StoreError {
	return &StoreError{Status: status, Message: fmt.Sprintf(format, args...)}
}

// ErrStatus extracts the status code from a store failure, 0 otherwise.
func ErrStatus(err error) int {
	if se, ok := err.(*StoreError); ok {
		return se.Status
	}
	return 0
}

const (
	StatusBadRequest = http.StatusBadRequest
	StatusForbidden  = http.StatusForbidden
	StatusNotFound   = http.StatusNotFound
	StatusInternal   = http.StatusInternalServerError
)

// Store is the durable CRUD boundary for messages and attachments.
type Store interface {
	// LoadPage returns one page of messages for a conversation, newest
	// first within the page; higher page numbers reach further into the
	// past. Attachment ids are resolved to full records before returning.
	LoadPage(ctx context.Context, connectionID string, page, pageSize int, viewer string) ([]*Message, error)

	// Send uploads every staged file, records the attachment rows, then
	// inserts the message referencing them. All-or-nothing: any attachment
	// failure aborts the send and compensates already-created artifacts.
	Send(ctx context.Context, connectionID, content, sender string, files []File) (*Message, error)

	// Delete removes a message after verifying the requester authored it.
	Delete(ctx context.Context, messageID uint64, requester string) error

	// MarkSeen sets the seen flag; only the recipient may set it.
	MarkSeen(ctx context.Context, messageID uint64, viewer string) error

	// ResolveAttachmentURL maps a storage key to its public URL. Pure.
	ResolveAttachmentURL(storageKey string) string
}
