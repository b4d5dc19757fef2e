package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"

	"github.com/gin-gonic/gin"
)

type DeliverRequest struct {
	Notes string `json:"notes"`
}

// GetAvailableOrders lists ready orders waiting for a driver
func (h *Handler) GetAvailableOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListAvailable(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetDriverOrders lists the orders assigned to the driver
func (h *Handler) GetDriverOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListForDriver(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// AcceptDelivery lets a driver pick up a ready order
func (h *Handler) AcceptDelivery(c *gin.Context) {
	order, err := h.svc.Orders.AcceptDelivery(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	respondOrder(c, order, err, "Delivery accepted")
}

func (h *Handler) MarkDelivered(c *gin.Context) {
	var req DeliverRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.MarkDelivered(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Notes)
	respondOrder(c, order, err, "Order delivered")
}

func (h *Handler) GetDriverStats(c *gin.Context) {
	stats, err := h.reports.DriverStats(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
