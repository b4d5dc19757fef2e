package handlers

import (
	"log/slog"
	"net/http"

	"food-marketplace-api/middleware"

	"github.com/gin-gonic/gin"
)

type LocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
}

type DeliveryLocationRequest struct {
	Latitude  *float64 `json:"latitude" binding:"required"`
	Longitude *float64 `json:"longitude" binding:"required"`
	Address   string   `json:"address"`
}

type EstimateRequest struct {
	EstimatedMinutes *int `json:"estimatedMinutes" binding:"required"`
}

// UpdateDriverLocation stores the assigned driver's position and pushes it to live followers
func (h *Handler) UpdateDriverLocation(c *gin.Context) {
	var req LocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	loc, err := h.svc.Tracking.UpdateDriverLocation(c.Request.Context(), middleware.GetActor(c), c.Param("id"),
		*req.Latitude, *req.Longitude)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Driver location updated", "driverLocation": loc})
}

func (h *Handler) SetDeliveryLocation(c *gin.Context) {
	var req DeliveryLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	loc, err := h.svc.Tracking.SetDeliveryLocation(c.Request.Context(), middleware.GetActor(c), c.Param("id"),
		*req.Latitude, *req.Longitude, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Delivery location set", "deliveryLocation": loc})
}

func (h *Handler) UpdateEstimatedTime(c *gin.Context) {
	var req EstimateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	eta, err := h.svc.Tracking.UpdateEstimatedTime(c.Request.Context(), middleware.GetActor(c), c.Param("id"), *req.EstimatedMinutes)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Estimated delivery time updated", "estimatedDeliveryTime": eta})
}

// GetTracking returns the tracking view of an order
func (h *Handler) GetTracking(c *gin.Context) {
	view, err := h.svc.Tracking.GetTracking(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracking": view})
}

// LiveTracking streams driver positions of an order over a websocket
func (h *Handler) LiveTracking(c *gin.Context) {
	orderID := c.Param("id")
	if err := h.svc.Tracking.Authorize(c.Request.Context(), middleware.GetActor(c), orderID); err != nil {
		respondError(c, err)
		return
	}
	// The upgrader has already answered the request when Serve fails.
	if err := h.hub.Serve(c.Writer, c.Request, orderID); err != nil {
		slog.Warn("Live tracking connection failed", "order_id", orderID, "error", err)
	}
}
