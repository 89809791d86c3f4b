package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

type Chat struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"chat_id"`
	UserID    string    `gorm:"type:varchar(128);not null;index:idx_chats_user_updated,priority:1" json:"user_id"`
	Title     string    `gorm:"type:varchar(255)" json:"title"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index:idx_chats_user_updated,priority:2" json:"updated_at"`
}

func (Chat) TableName() string {
	return "chats"
}

func (c *Chat) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}

	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = now
	}

	return nil
}

type Message struct {
	ID        string    `gorm:"type:varchar(64);primaryKey" json:"message_id"`
	ChatID    string    `gorm:"type:varchar(64);not null;index:idx_messages_chat_ts,priority:1" json:"chat_id"`
	UserID    string    `gorm:"type:varchar(128);not null" json:"-"`
	Sender    Sender    `gorm:"type:varchar(8);not null" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Tone      Tone      `gorm:"type:varchar(20)" json:"tone,omitempty"`
	Timestamp time.Time `gorm:"not null;index:idx_messages_chat_ts,priority:2" json:"timestamp"`
}

func (Message) TableName() string {
	return "messages"
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}

// ChatTitle derives a chat title from its opening message.
func ChatTitle(content string) string {
	const maxRunes = 50
	r := []rune(content)
	if len(r) <= maxRunes {
		return content
	}
	return string(r[:maxRunes]) + "..."
}
