package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Message is an inbox entry delivered to a user by the notification sink.
type Message struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	ConversationID string     `json:"conversationId" gorm:"index;not null"`
	OrderID        *string    `json:"orderId,omitempty"`
	SenderID       string     `json:"sender" gorm:"not null"`
	ReceiverID     string     `json:"receiver" gorm:"index;not null"`
	Kind           string     `json:"kind"`
	Body           string     `json:"message" gorm:"size:1000;not null"`
	IsRead         bool       `json:"isRead"`
	ReadAt         *time.Time `json:"readAt,omitempty"`
	CreatedAt      time.Time  `json:"createdAt" gorm:"index"`
}

func (m *Message) BeforeCreate(*gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// ConversationID is the stable id of the conversation between two users.
func ConversationID(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "_")
}

// All lists every persisted model, in migration order.
func All() []any {
	return []any{
		&User{},
		&Food{},
		&Order{},
		&Cart{},
		&CartItem{},
		&Message{},
	}
}
