package dbmysql

import (
	"time"

	"gorm.io/gorm"
)

// Connection is a developer-to-developer link. An accepted connection is the
// conversation key for the messaging core: its ID partitions both the chats
// table and the realtime channel name.
type Connection struct {
	ID              string         `gorm:"primaryKey;column:id;size:36" json:"id"`
	UserID          uint64         `gorm:"column:user_id;not null;index:idx_user_conn,unique" json:"user_id"`
	ConnectedUserID uint64         `gorm:"column:connected_user_id;not null;index:idx_user_conn,unique" json:"connected_user_id"`
	Status          string         `gorm:"column:status;type:enum('pending','accepted','blocked');default:'pending'" json:"status"`
	RequestedAt     time.Time      `gorm:"column:requested_at;autoCreateTime" json:"requested_at"`
	AcceptedAt      *time.Time     `gorm:"column:accepted_at" json:"accepted_at"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`

	User          *User `gorm:"-" json:"user,omitempty"`
	ConnectedUser *User `gorm:"-" json:"connected_user,omitempty"`
}
