package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreateFoodRequest struct {
	Name        string          `json:"name" binding:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
}

type UpdateFoodRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
}

type MerchantNotesRequest struct {
	MerchantNotes string `json:"merchantNotes"`
}

type RejectOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

type UnavailableRequest struct {
	Action         string `json:"action" binding:"required,oneof=cancel substitute"`
	Reason         string `json:"reason" binding:"required"`
	SubstituteItem string `json:"substituteItem"`
}

// ListMyFoods returns the menu items owned by the merchant
func (h *Handler) ListMyFoods(c *gin.Context) {
	foods, err := h.svc.Catalog.ListByMerchant(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count": len(foods),
		"foods": foods,
	})
}

// CreateFood adds a menu item to the merchant's restaurant
func (h *Handler) CreateFood(c *gin.Context) {
	var req CreateFoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	food, err := h.svc.Catalog.Create(c.Request.Context(), middleware.GetActor(c), services.FoodInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Food item created", "food": food})
}

// UpdateFood changes the provided fields of a menu item
func (h *Handler) UpdateFood(c *gin.Context) {
	var req UpdateFoodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	food, err := h.svc.Catalog.Update(c.Request.Context(), middleware.GetActor(c), c.Param("id"), services.FoodUpdate{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Food item updated", "food": food})
}

func (h *Handler) DeleteFood(c *gin.Context) {
	if err := h.svc.Catalog.Delete(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Food item deleted"})
}

// GetMerchantOrders returns orders for the merchant's foods, with a status summary
func (h *Handler) GetMerchantOrders(c *gin.Context) {
	status := models.OrderStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}

	orders, err := h.svc.Orders.ListForMerchant(c.Request.Context(), middleware.GetActor(c), status)
	if err != nil {
		respondError(c, err)
		return
	}

	summary := map[models.OrderStatus]int{}
	for _, o := range orders {
		summary[o.Status]++
	}

	c.JSON(http.StatusOK, gin.H{
		"order_summary": summary,
		"count":         len(orders),
		"orders":        orders,
	})
}

func (h *Handler) AcceptOrder(c *gin.Context) {
	var req MerchantNotesRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.Accept(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.MerchantNotes)
	respondOrder(c, order, err, "Order accepted")
}

func (h *Handler) RejectOrder(c *gin.Context) {
	var req RejectOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.svc.Orders.Reject(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.Reason)
	respondOrder(c, order, err, "Order rejected")
}

func (h *Handler) StartPreparing(c *gin.Context) {
	var req MerchantNotesRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.StartPreparing(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.MerchantNotes)
	respondOrder(c, order, err, "Order is being prepared")
}

func (h *Handler) MarkReady(c *gin.Context) {
	var req MerchantNotesRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	order, err := h.svc.Orders.MarkReady(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req.MerchantNotes)
	respondOrder(c, order, err, "Order is ready for pickup")
}

// HandleUnavailable cancels an order or offers a substitute when the item is out
func (h *Handler) HandleUnavailable(c *gin.Context) {
	var req UnavailableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.svc.Orders.HandleUnavailable(c.Request.Context(), middleware.GetActor(c), c.Param("id"),
		req.Action, req.Reason, req.SubstituteItem)
	msg := "Substitute offered to customer"
	if req.Action == services.UnavailableCancel {
		msg = "Order cancelled"
	}
	respondOrder(c, order, err, msg)
}

// GetMerchantStats returns order counts and both revenue figures
func (h *Handler) GetMerchantStats(c *gin.Context) {
	stats, err := h.reports.MerchantStats(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

func respondOrder(c *gin.Context, order *models.Order, err error, msg string) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": msg, "order": order})
}
