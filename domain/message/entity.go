package message

import (
	"time"

	"github.com/poornimasewak/nook/domain/user"
)

// Message type tags.
const (
	TypeText   = "text"
	TypeSystem = "system"
)

// SystemSenderID is the reserved sender marker for synthetic system notices.
// It can never collide with a real identity because user ids are UUIDs.
const SystemSenderID = "system"

// Message represents a chat message in a nook.
//
// The Sender field is hydrated from the users table before broadcast and is
// not itself persisted.
type Message struct {
	ID          string       `gorm:"primaryKey;type:text" json:"id"`
	NookID      string       `gorm:"index;not null;type:text" json:"nook_id"`
	SenderID    string       `gorm:"index;not null;type:text" json:"sender_id"`
	MessageType string       `gorm:"type:text;not null;default:text" json:"message_type"`
	Content     string       `gorm:"type:text;not null" json:"content"`
	ReplyTo     *string      `gorm:"type:text" json:"reply_to,omitempty"`
	IsDeleted   bool         `gorm:"not null;default:false" json:"is_deleted"`
	Timestamp   time.Time    `gorm:"index;not null" json:"timestamp"`
	Sender      user.Profile `gorm:"-" json:"sender"`
}

// TableName returns the table name for the Message entity.
func (Message) TableName() string {
	return "messages"
}

// IsSystem reports whether the message is a synthetic system notice.
func (m *Message) IsSystem() bool {
	return m.SenderID == SystemSenderID
}
