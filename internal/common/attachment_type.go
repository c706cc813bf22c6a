package common

import "strings"

// AttachmentType classifies an uploaded file for display purposes.
type AttachmentType string

const (
	AttachmentTypeImage    AttachmentType = "image"
	AttachmentTypeDocument AttachmentType = "document"
	AttachmentTypeFile     AttachmentType = "file"
)

// String returns the string representation
func (at AttachmentType) String() string {
	return string(at)
}

// IsValid checks if the attachment type is valid
func (at AttachmentType) IsValid() bool {
	return at == AttachmentTypeImage || at == AttachmentTypeDocument || at == AttachmentTypeFile
}

// documentMimeTypes are the MIME types rendered with a document affordance.
// Video, audio, plaintext and spreadsheets all fall through to the generic
// file type.
var documentMimeTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// DetectAttachmentType maps a MIME type to its display classification.
func DetectAttachmentType(mimeType string) AttachmentType {
	lowerMimeType := strings.ToLower(strings.TrimSpace(mimeType))
	if strings.HasPrefix(lowerMimeType, "image/") {
		return AttachmentTypeImage
	}
	if documentMimeTypes[lowerMimeType] {
		return AttachmentTypeDocument
	}
	return AttachmentTypeFile // Default fallback
}
