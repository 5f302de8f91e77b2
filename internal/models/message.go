package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message represents a private message between two users. Immutable
// once sent, except for the is_read flag.
type Message struct {
	ID         int64     `gorm:"primaryKey;column:id"`
	PublicID   string    `gorm:"type:varchar(100);not null;uniqueIndex:messages_ux_public_id;column:public_id"`
	SenderID   int64     `gorm:"not null;index:messages_ix_sender;column:sender_id"`
	ReceiverID int64     `gorm:"not null;index:messages_ix_receiver;column:receiver_id"`
	Content    string    `gorm:"type:text;not null;column:content"`
	IsRead     bool      `gorm:"not null;default:false;column:is_read"`
	CreatedAt  time.Time `gorm:"not null;index:messages_ix_created_at;column:created_at"`

	// Relationships
	Sender   *User `gorm:"foreignKey:SenderID;references:ID"`
	Receiver *User `gorm:"foreignKey:ReceiverID;references:ID"`
}

// TableName specifies the table name for Message
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate assigns a public identifier if none is set
func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.PublicID == "" {
		m.PublicID = uuid.NewString()
	}
	return nil
}
