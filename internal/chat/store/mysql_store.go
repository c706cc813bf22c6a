package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"devlink/internal/chat/realtime"
	"devlink/internal/common"
	"devlink/internal/dbmongo"
	"devlink/internal/dbmysql"
)

// ObjectStorage is the binary storage boundary, satisfied by
// dbmongo.AttachmentStorage in production.
type ObjectStorage interface {
	Upload(ctx context.Context, storageKey, filename, mimeType, uploaderHandle string, content io.Reader) (*dbmongo.StoredFile, error)
	Delete(ctx context.Context, storageKey string) error
}

type mysqlStore struct {
	db           *gorm.DB
	objects      ObjectStorage
	channels     *realtime.Manager
	mediaBaseURL string
}

// NewStore builds the production Store over MySQL rows, GridFS objects and
// the realtime channel manager used to fan out commits.
func NewStore(db *gorm.DB, objects ObjectStorage, channels *realtime.Manager, mediaBaseURL string) Store {
	return &mysqlStore{
		db:           db,
		objects:      objects,
		channels:     channels,
		mediaBaseURL: mediaBaseURL,
	}
}

func (s *mysqlStore) LoadPage(ctx context.Context, connectionID string, page, pageSize int, viewer string) ([]*Message, error) {
	if connectionID == "" {
		return nil, newStoreError(StatusBadRequest, "connection id is required")
	}
	if page < 1 {
		return nil, newStoreError(StatusBadRequest, "page must be >= 1")
	}
	if pageSize < 1 {
		return nil, newStoreError(StatusBadRequest, "page size must be >= 1")
	}

	var rows []*dbmysql.ChatMessage
	err := s.db.WithContext(ctx).
		Where("connection_id = ?", connectionID).
		Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error
	if err != nil {
		return nil, newStoreError(StatusInternal, "fetch messages: %v", err)
	}

	messages := make([]*Message, len(rows))
	for i, row := range rows {
		msg, err := s.toMessage(ctx, row, viewer)
		if err != nil {
			return nil, err
		}
		messages[i] = msg
	}
	return messages, nil
}

// toMessage converts a row, resolving its attachment ids with parallel point
// lookups. A failed lookup yields an "attachment unavailable" placeholder so
// the message still renders honestly.
func (s *mysqlStore) toMessage(ctx context.Context, row *dbmysql.ChatMessage, viewer string) (*Message, error) {
	ids, err := row.GetAttachmentIDs()
	if err != nil {
		return nil, newStoreError(StatusInternal, "decode attachment ids for message %d: %v", row.ID, err)
	}

	attachments := make([]*Attachment, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uint64) {
			defer wg.Done()
			attachments[i] = s.resolveAttachment(ctx, id)
		}(i, id)
	}
	wg.Wait()

	msg := &Message{
		ID:           row.ID,
		ConnectionID: row.ConnectionID,
		Content:      row.Content,
		Sender:       row.Sender,
		Seen:         row.Seen,
		Attachments:  attachments,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}
	msg.ResolveSenderKind(viewer)
	return msg, nil
}

func (s *mysqlStore) resolveAttachment(ctx context.Context, id uint64) *Attachment {
	var row dbmysql.Attachment
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		log.Printf("store: attachment %d lookup failed: %v", id, err)
		return &Attachment{
			ID:          id,
			Type:        common.AttachmentTypeFile,
			Name:        "attachment unavailable",
			Unavailable: true,
		}
	}
	return &Attachment{
		ID:   row.ID,
		Type: common.AttachmentType(row.Type),
		URL:  row.URL,
		Name: row.Name,
		Size: row.Size,
	}
}

func (s *mysqlStore) Send(ctx context.Context, connectionID, content, sender string, files []File) (*Message, error) {
	if connectionID == "" {
		return nil, newStoreError(StatusBadRequest, "connection id is required")
	}
	if sender == "" {
		return nil, newStoreError(StatusBadRequest, "sender is required")
	}
	if content == "" && len(files) == 0 {
		return nil, newStoreError(StatusBadRequest, "message needs content or attachments")
	}

	attachments, err := s.commitAttachments(ctx, sender, files)
	if err != nil {
		return nil, err
	}

	row := &dbmysql.ChatMessage{
		ConnectionID: connectionID,
		Content:      content,
		Sender:       sender,
	}
	ids := make([]uint64, len(attachments))
	for i, a := range attachments {
		ids[i] = a.row.ID
	}
	if err := row.SetAttachmentIDs(ids); err != nil {
		s.compensate(ctx, attachments)
		return nil, newStoreError(StatusInternal, "encode attachment ids: %v", err)
	}

	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		s.compensate(ctx, attachments)
		return nil, newStoreError(StatusInternal, "insert message: %v", err)
	}

	resolved := make([]*Attachment, len(attachments))
	for i, a := range attachments {
		resolved[i] = &Attachment{
			ID:   a.row.ID,
			Type: common.AttachmentType(a.row.Type),
			URL:  a.row.URL,
			Name: a.row.Name,
			Size: a.row.Size,
		}
	}

	msg := &Message{
		ID:           row.ID,
		ConnectionID: row.ConnectionID,
		Content:      row.Content,
		Sender:       row.Sender,
		SenderKind:   SenderSelf,
		Attachments:  resolved,
		CreatedAt:    row.CreatedAt,
		UpdatedAt:    row.UpdatedAt,
	}

	s.publishInsert(ctx, msg)
	return msg, nil
}

type committedAttachment struct {
	row        *dbmysql.Attachment
	storageKey string
}

// commitAttachments uploads every file and records its attachment row.
// Uploads run concurrently; if any of them fails, every artifact the others
// already committed is rolled back so nothing leaks.
func (s *mysqlStore) commitAttachments(ctx context.Context, sender string, files []File) ([]*committedAttachment, error) {
	if len(files) == 0 {
		return nil, nil
	}

	results := make([]*committedAttachment, len(files))
	errs := make([]error, len(files))

	var wg sync.WaitGroup
	for i := range files {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = s.commitOne(ctx, sender, files[i])
		}(i)
	}
	wg.Wait()

	var failure error
	for _, err := range errs {
		if err != nil {
			failure = err
			break
		}
	}
	if failure == nil {
		return results, nil
	}

	var committed []*committedAttachment
	for _, r := range results {
		if r != nil {
			committed = append(committed, r)
		}
	}
	s.compensate(ctx, committed)

	var se *StoreError
	if errors.As(failure, &se) {
		return nil, se
	}
	return nil, newStoreError(StatusInternal, "attachment commit failed: %v", failure)
}

func (s *mysqlStore) commitOne(ctx context.Context, sender string, file File) (*committedAttachment, error) {
	storageKey := uuid.NewString()

	stored, err := s.objects.Upload(ctx, storageKey, file.Name, file.MimeType, sender, file.Content)
	if err != nil {
		return nil, fmt.Errorf("upload %q: %w", file.Name, err)
	}

	row := &dbmysql.Attachment{
		StorageKey: storageKey,
		URL:        s.ResolveAttachmentURL(storageKey),
		Name:       stored.Filename,
		Size:       stored.Size,
		Type:       stored.Type.String(),
		UploadedBy: sender,
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		// the object made it to storage; remove it again
		if derr := s.objects.Delete(ctx, storageKey); derr != nil {
			log.Printf("store: orphan cleanup of %q failed: %v", storageKey, derr)
		}
		return nil, fmt.Errorf("insert attachment %q: %w", file.Name, err)
	}

	return &committedAttachment{row: row, storageKey: storageKey}, nil
}

// compensate removes attachment rows and storage objects created by a send
// that did not fully commit.
func (s *mysqlStore) compensate(ctx context.Context, committed []*committedAttachment) {
	for _, a := range committed {
		if err := s.db.WithContext(ctx).Delete(&dbmysql.Attachment{}, a.row.ID).Error; err != nil {
			log.Printf("store: compensation delete of attachment %d failed: %v", a.row.ID, err)
		}
		if err := s.objects.Delete(ctx, a.storageKey); err != nil {
			log.Printf("store: compensation delete of object %q failed: %v", a.storageKey, err)
		}
	}
}

func (s *mysqlStore) Delete(ctx context.Context, messageID uint64, requester string) error {
	var row dbmysql.ChatMessage
	if err := s.db.WithContext(ctx).First(&row, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newStoreError(StatusNotFound, "message %d not found", messageID)
		}
		return newStoreError(StatusInternal, "fetch message %d: %v", messageID, err)
	}

	// only the author may delete
	if row.Sender != requester {
		return newStoreError(StatusForbidden, "message %d does not belong to requester", messageID)
	}

	if err := s.db.WithContext(ctx).Delete(&dbmysql.ChatMessage{}, messageID).Error; err != nil {
		return newStoreError(StatusInternal, "delete message %d: %v", messageID, err)
	}

	ch := s.channels.Channel(realtime.ConversationChannelName(row.ConnectionID))
	if err := ch.PublishDelete(ctx, realtime.DeleteEvent{
		ConnectionID: row.ConnectionID,
		MessageID:    messageID,
	}); err != nil {
		log.Printf("store: publish delete of message %d: %v", messageID, err)
	}
	return nil
}

func (s *mysqlStore) MarkSeen(ctx context.Context, messageID uint64, viewer string) error {
	var row dbmysql.ChatMessage
	if err := s.db.WithContext(ctx).First(&row, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newStoreError(StatusNotFound, "message %d not found", messageID)
		}
		return newStoreError(StatusInternal, "fetch message %d: %v", messageID, err)
	}

	// the seen flag is recipient-set
	if row.Sender == viewer {
		return newStoreError(StatusForbidden, "sender cannot mark own message seen")
	}
	if row.Seen {
		return nil
	}

	if err := s.db.WithContext(ctx).
		Model(&dbmysql.ChatMessage{}).
		Where("id = ?", messageID).
		Update("seen", true).Error; err != nil {
		return newStoreError(StatusInternal, "mark message %d seen: %v", messageID, err)
	}
	return nil
}

func (s *mysqlStore) ResolveAttachmentURL(storageKey string) string {
	return fmt.Sprintf("%s/attachments/%s", s.mediaBaseURL, storageKey)
}

func (s *mysqlStore) publishInsert(ctx context.Context, msg *Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		log.Printf("store: encode insert event for message %d: %v", msg.ID, err)
		return
	}
	ch := s.channels.Channel(realtime.ConversationChannelName(msg.ConnectionID))
	if err := ch.PublishInsert(ctx, realtime.InsertEvent{
		ConnectionID: msg.ConnectionID,
		Sender:       msg.Sender,
		Message:      payload,
	}); err != nil {
		log.Printf("store: publish insert of message %d: %v", msg.ID, err)
	}
}
