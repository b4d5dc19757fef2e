package handlers

import (
	"net/http"
	"strconv"

	"food-marketplace-api/middleware"

	"github.com/gin-gonic/gin"
)

// GetMessages returns the caller's notification inbox, newest first
func (h *Handler) GetMessages(c *gin.Context) {
	actor := middleware.GetActor(c)
	limit, _ := strconv.Atoi(c.Query("limit"))

	messages, err := h.inbox.Inbox(c.Request.Context(), actor.ID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := h.inbox.UnreadCount(c.Request.Context(), actor.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(messages),
		"unread":   unread,
		"messages": messages,
	})
}

func (h *Handler) GetUnreadCount(c *gin.Context) {
	unread, err := h.inbox.UnreadCount(c.Request.Context(), middleware.GetActor(c).ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread": unread})
}

func (h *Handler) MarkMessageRead(c *gin.Context) {
	if err := h.inbox.MarkRead(c.Request.Context(), middleware.GetActor(c).ID, c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Message marked as read"})
}
