package dbmysql

import (
	"encoding/json"
	"time"
)

// ChatMessage is one row in the chats table. The attachments column holds a
// JSON array of attachment row ids; full records are resolved at read time.
type ChatMessage struct {
	ID            uint64    `gorm:"primaryKey;column:id;autoIncrement" json:"id"`
	ConnectionID  string    `gorm:"column:connection_id;index;size:36;not null" json:"connection_id"`
	Content       string    `gorm:"column:content;type:text" json:"content"`
	Sender        string    `gorm:"column:sender;index;size:50;not null" json:"sender"`
	AttachmentIDs string    `gorm:"column:attachments;type:json" json:"-"`
	Seen          bool      `gorm:"column:seen;not null" json:"seen"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (ChatMessage) TableName() string {
	return "chats"
}

// SetAttachmentIDs encodes ids into the attachments JSON column. An empty
// slice encodes as "[]", never null.
func (m *ChatMessage) SetAttachmentIDs(ids []uint64) error {
	if ids == nil {
		ids = []uint64{}
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	m.AttachmentIDs = string(raw)
	return nil
}

// GetAttachmentIDs decodes the attachments JSON column. A missing or empty
// column yields an empty slice.
func (m *ChatMessage) GetAttachmentIDs() ([]uint64, error) {
	if m.AttachmentIDs == "" || m.AttachmentIDs == "null" {
		return []uint64{}, nil
	}
	var ids []uint64
	if err := json.Unmarshal([]byte(m.AttachmentIDs), &ids); err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}
