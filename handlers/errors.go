package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"food-marketplace-api/apperr"

	"github.com/gin-gonic/gin"
)

// respondError maps a service error onto its HTTP status.
func respondError(c *gin.Context, err error) {
	var e *apperr.Error
	if !errors.As(err, &e) {
		slog.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	body := gin.H{"error": e.Error()}
	switch e.Kind {
	case apperr.KindValidation:
		c.JSON(http.StatusBadRequest, body)
	case apperr.KindNotFound:
		c.JSON(http.StatusNotFound, body)
	case apperr.KindForbidden:
		c.JSON(http.StatusForbidden, body)
	case apperr.KindUnauthenticated:
		c.JSON(http.StatusUnauthorized, body)
	case apperr.KindStateConflict:
		body["error"] = e.Message
		body["current_status"] = e.Current
		c.JSON(http.StatusConflict, body)
	case apperr.KindRestaurantConflict:
		for k, v := range e.Details {
			body[k] = v
		}
		c.JSON(http.StatusConflict, body)
	case apperr.KindConflict:
		c.JSON(http.StatusConflict, body)
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// bindOptionalJSON binds a request body that may be absent.
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return false
	}
	return true
}
