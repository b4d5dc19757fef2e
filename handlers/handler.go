package handlers

import (
	"context"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/reports"
	"food-marketplace-api/services"
	"food-marketplace-api/tracking"
)

// Inbox is the read side of the persisted notification sink.
type Inbox interface {
	Inbox(ctx context.Context, userID string, limit int) ([]models.Message, error)
	MarkRead(ctx context.Context, userID, messageID string) error
	UnreadCount(ctx context.Context, userID string) (int64, error)
}

// Handler carries the collaborators every HTTP handler needs.
type Handler struct {
	svc     *services.Services
	reports *reports.Reports
	tokens  *middleware.TokenIssuer
	hub     *tracking.Hub
	inbox   Inbox
}

func New(svc *services.Services, rep *reports.Reports, tokens *middleware.TokenIssuer, hub *tracking.Hub, inbox Inbox) *Handler {
	return &Handler{
		svc:     svc,
		reports: rep,
		tokens:  tokens,
		hub:     hub,
		inbox:   inbox,
	}
}
