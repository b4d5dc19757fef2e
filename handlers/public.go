package handlers

import (
	"net/http"

	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/statemachine"

	"github.com/gin-gonic/gin"
)

// ListFoods returns the catalog, optionally filtered (public)
func (h *Handler) ListFoods(c *gin.Context) {
	foods, err := h.svc.Catalog.List(c.Request.Context(), services.FoodFilter{
		Restaurant: c.Query("restaurant"),
		Category:   c.Query("category"),
		Search:     c.Query("search"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(foods),
		"foods": foods,
	})
}

// GetFood returns a single menu item
func (h *Handler) GetFood(c *gin.Context) {
	food, err := h.svc.Catalog.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"food": food})
}

// GetStateMachineInfo returns the full state machine for informational purposes
func (h *Handler) GetStateMachineInfo(c *gin.Context) {
	next := make(map[models.OrderStatus][]models.OrderStatus, len(models.AllStatuses))
	for _, s := range models.AllStatuses {
		next[s] = statemachine.ValidTransitionsFrom(s)
	}
	c.JSON(http.StatusOK, gin.H{
		"states":      models.AllStatuses,
		"transitions": statemachine.GetAllTransitions(),
		"next":        next,
		"notes": []string{
			"Admins may perform any merchant or driver transition.",
			"Admins may override an order to any status.",
			"Offering a substitute keeps the current status.",
		},
	})
}
