package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"food-marketplace-api/apperr"
	"food-marketplace-api/models"

	"gorm.io/gorm"
)

// SystemEmail identifies the account that sends inbox notifications.
const SystemEmail = "system@app.internal"

// StoreSink persists events as inbox messages sent by the system user.
type StoreSink struct {
	db *gorm.DB

	mu       sync.Mutex
	systemID string
}

func NewStoreSink(db *gorm.DB) *StoreSink {
	return &StoreSink{db: db}
}

// systemUser returns the id of the system account, creating it on first use.
// A failed lookup is retried on the next call.
func (s *StoreSink) systemUser(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.systemID != "" {
		return s.systemID, nil
	}

	user := models.User{
		Name:         "System",
		Email:        SystemEmail,
		Role:         models.RoleAdmin,
		PasswordHash: "!",
	}
	err := s.db.WithContext(ctx).
		Where(models.User{Email: SystemEmail}).
		FirstOrCreate(&user).Error
	if err != nil {
		return "", fmt.Errorf("get system user: %w", err)
	}

	s.systemID = user.ID
	return s.systemID, nil
}

func (s *StoreSink) Deliver(ctx context.Context, ev Event) error {
	senderID, err := s.systemUser(ctx)
	if err != nil {
		return err
	}

	msg := models.Message{
		ConversationID: models.ConversationID(senderID, ev.UserID),
		SenderID:       senderID,
		ReceiverID:     ev.UserID,
		Kind:           string(ev.Kind),
		Body:           ev.Text,
		CreatedAt:      ev.At,
	}
	if ev.Payload.OrderID != "" {
		orderID := ev.Payload.OrderID
		msg.OrderID = &orderID
	}

	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	return nil
}

// Inbox returns the newest messages received by userID.
func (s *StoreSink) Inbox(ctx context.Context, userID string, limit int) ([]models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages := []models.Message{}
	err := s.db.WithContext(ctx).
		Where("receiver_id = ?", userID).
		Order("created_at desc").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return messages, nil
}

// MarkRead flags a message of userID as read.
func (s *StoreSink) MarkRead(ctx context.Context, userID, messageID string) error {
	now := time.Now()
	res := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("id = ? AND receiver_id = ?", messageID, userID).
		Updates(map[string]any{"is_read": true, "read_at": now})
	if res.Error != nil {
		return fmt.Errorf("mark message read: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFound("Message")
	}
	return nil
}

// UnreadCount is the number of unread messages of userID.
func (s *StoreSink) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count unread messages: %w", err)
	}
	return n, nil
}
