package dbmongo

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
	"go.mongodb.org/mongo-driver/mongo/options"

	"devlink/internal/common"
)

// AttachmentStorage stores attachment binaries in GridFS. Each object is
// filed under a randomized storage key chosen by the caller, never under the
// user-supplied filename.
type AttachmentStorage struct {
	gridFS *gridfs.Bucket
}

func NewAttachmentStorage(mongoClient *MongoClient) *AttachmentStorage {
	return &AttachmentStorage{
		gridFS: mongoClient.GridFS,
	}
}

// StoredFile describes one object in the attachments bucket.
type StoredFile struct {
	StorageKey string                `json:"storage_key"`
	Filename   string                `json:"filename"` // original upload name
	MimeType   string                `json:"mime_type"`
	Size       int64                 `json:"size"`
	Type       common.AttachmentType `json:"type"`
	UploadedBy string                `json:"uploaded_by"`
	UploadedAt time.Time             `json:"uploaded_at"`
}

func (as *AttachmentStorage) Upload(ctx context.Context, storageKey, filename, mimeType, uploaderHandle string, content io.Reader) (*StoredFile, error) {
	attachmentType := common.DetectAttachmentType(mimeType)

	metadata := bson.M{
		"type":        attachmentType.String(),
		"filename":    filename,
		"mime_type":   mimeType,
		"uploaded_by": uploaderHandle,
		"uploaded_at": time.Now(),
	}

	opts := options.GridFSUpload().SetMetadata(metadata)
	stream, err := as.gridFS.OpenUploadStream(storageKey, opts)
	if err != nil {
		return nil, fmt.Errorf("upload failed: %w", err)
	}
	defer stream.Close()

	size, err := io.Copy(stream, content)
	if err != nil {
		return nil, fmt.Errorf("file copy failed: %w", err)
	}

	return &StoredFile{
		StorageKey: storageKey,
		Filename:   filename,
		MimeType:   mimeType,
		Size:       size,
		Type:       attachmentType,
		UploadedBy: uploaderHandle,
		UploadedAt: time.Now(),
	}, nil
}

// Download opens a read stream for the object stored under storageKey.
func (as *AttachmentStorage) Download(ctx context.Context, storageKey string) (io.ReadCloser, *StoredFile, error) {
	stream, err := as.gridFS.OpenDownloadStreamByName(storageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("download failed: %w", err)
	}

	fileInfo := stream.GetFile()
	var metadata bson.M
	if fileInfo.Metadata != nil {
		bson.Unmarshal(fileInfo.Metadata, &metadata)
	}

	stored := &StoredFile{
		StorageKey: storageKey,
		Filename:   getStringFromMap(metadata, "filename"),
		MimeType:   getStringFromMap(metadata, "mime_type"),
		Size:       fileInfo.Length,
		Type:       common.AttachmentType(getStringFromMap(metadata, "type")),
		UploadedBy: getStringFromMap(metadata, "uploaded_by"),
		UploadedAt: fileInfo.UploadDate,
	}
	if stored.Filename == "" {
		stored.Filename = fileInfo.Name
	}

	return stream, stored, nil
}

// Delete removes the object stored under storageKey. Used by the send
// compensation path when a multi-attachment send aborts midway.
func (as *AttachmentStorage) Delete(ctx context.Context, storageKey string) error {
	cursor, err := as.gridFS.Find(bson.M{"filename": storageKey})
	if err != nil {
		return fmt.Errorf("lookup failed: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var file struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cursor.Decode(&file); err != nil {
			return fmt.Errorf("decode failed: %w", err)
		}
		if err := as.gridFS.Delete(file.ID); err != nil {
			return fmt.Errorf("delete failed: %w", err)
		}
	}

	return cursor.Err()
}

// Helper function for metadata extraction
func getStringFromMap(m bson.M, key string) string {
	if m == nil {
		return ""
	}
	if val, ok := m[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
