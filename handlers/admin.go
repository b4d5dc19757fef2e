package handlers

import (
	"net/http"
	"time"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
)

type UpdateRoleRequest struct {
	Role           models.UserRole `json:"role" binding:"required"`
	RestaurantName string          `json:"restaurantName"`
}

type OverrideStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
	Notes  string             `json:"notes"`
}

// ListUsers returns all users, optionally filtered by role
func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.svc.Users.List(c.Request.Context(), middleware.GetActor(c), models.UserRole(c.Query("role")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(users), "users": users})
}

func (h *Handler) UpdateUserRole(c *gin.Context) {
	var req UpdateRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.svc.Users.UpdateRole(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Role, req.RestaurantName)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User role updated", "user": user})
}

// ToggleUserStatus activates or deactivates a user account
func (h *Handler) ToggleUserStatus(c *gin.Context) {
	user, err := h.svc.Users.ToggleActive(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	status := "deactivated"
	if user.IsActive {
		status = "activated"
	}
	c.JSON(http.StatusOK, gin.H{"message": "User " + status, "user": user})
}

func (h *Handler) DeleteUser(c *gin.Context) {
	if err := h.svc.Users.Delete(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

// ListAllOrders returns every order, filtered by status and date range
func (h *Handler) ListAllOrders(c *gin.Context) {
	filter := services.OrderFilter{Status: models.OrderStatus(c.Query("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}
	var ok bool
	if filter.From, ok = dateQuery(c, "from"); !ok {
		return
	}
	if filter.To, ok = dateQuery(c, "to"); !ok {
		return
	}
	if filter.To != nil {
		end := filter.To.AddDate(0, 0, 1)
		filter.To = &end
	}

	orders, err := h.svc.Orders.ListAll(c.Request.Context(), middleware.GetActor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// dateQuery parses an optional YYYY-MM-DD query parameter.
func dateQuery(c *gin.Context, key string) (*time.Time, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	t, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key + " date, expected YYYY-MM-DD"})
		return nil, false
	}
	return &t, true
}

// OverrideOrderStatus sets any status on an order, bypassing the state machine
func (h *Handler) OverrideOrderStatus(c *gin.Context) {
	var req OverrideStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.svc.Orders.Override(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Status, req.Notes)
	respondOrder(c, order, err, "Order status updated")
}

func (h *Handler) DeleteOrder(c *gin.Context) {
	if err := h.svc.Orders.Delete(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}
