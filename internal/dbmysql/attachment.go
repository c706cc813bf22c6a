package dbmysql

import (
	"time"
)

// Attachment is the metadata row for one uploaded file. The binary itself
// lives in object storage under StorageKey; the row id is assigned at insert
// time and is immutable.
type Attachment struct {
	ID         uint64    `gorm:"primaryKey;column:id;autoIncrement" json:"id"`
	StorageKey string    `gorm:"column:storage_key;uniqueIndex;size:64;not null" json:"storage_key"`
	URL        string    `gorm:"column:url;size:512;not null" json:"url"`
	Name       string    `gorm:"column:name;size:255" json:"name"`
	Size       int64     `gorm:"column:size" json:"size"`
	Type       string    `gorm:"column:type;type:enum('image','document','file');default:'file'" json:"type"`
	UploadedBy string    `gorm:"column:uploaded_by;size:50" json:"uploaded_by"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
