package handlers

import (
	"net/http"

	"food-marketplace-api/middleware"
	"food-marketplace-api/models"
	"food-marketplace-api/services"
	"food-marketplace-api/statemachine"

	"github.com/gin-gonic/gin"
)

type AddCartItemRequest struct {
	FoodID   string `json:"foodId" binding:"required"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes"`
}

type UpdateCartItemRequest struct {
	Quantity *int    `json:"quantity"`
	Notes    *string `json:"notes"`
}

type CheckoutRequest struct {
	DeliveryAddress string `json:"deliveryAddress"`
	CustomerPhone   string `json:"customerPhone"`
}

type PlaceOrderRequest struct {
	FoodID          string `json:"foodId" binding:"required"`
	Quantity        int    `json:"quantity"`
	CustomerNotes   string `json:"customerNotes"`
	DeliveryAddress string `json:"deliveryAddress"`
	CustomerPhone   string `json:"customerPhone"`
}

func respondCart(c *gin.Context, cart *models.Cart, err error, msg string) {
	if err != nil {
		respondError(c, err)
		return
	}
	body := gin.H{"cart": cart}
	if msg != "" {
		body["message"] = msg
	}
	c.JSON(http.StatusOK, body)
}

// GetCart returns the caller's cart, empty when none exists
func (h *Handler) GetCart(c *gin.Context) {
	cart, err := h.svc.Carts.Get(c.Request.Context(), middleware.GetActor(c))
	respondCart(c, cart, err, "")
}

// GetCartCount returns the number of units in the cart
func (h *Handler) GetCartCount(c *gin.Context) {
	n, err := h.svc.Carts.Count(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *Handler) AddCartItem(c *gin.Context) {
	var req AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cart, err := h.svc.Carts.AddItem(c.Request.Context(), middleware.GetActor(c), req.FoodID, req.Quantity, req.Notes)
	respondCart(c, cart, err, "Item added to cart")
}

func (h *Handler) UpdateCartItem(c *gin.Context) {
	var req UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cart, err := h.svc.Carts.UpdateItem(c.Request.Context(), middleware.GetActor(c), c.Param("itemId"), services.ItemUpdate{
		Quantity: req.Quantity,
		Notes:    req.Notes,
	})
	respondCart(c, cart, err, "Cart updated")
}

func (h *Handler) RemoveCartItem(c *gin.Context) {
	cart, err := h.svc.Carts.RemoveItem(c.Request.Context(), middleware.GetActor(c), c.Param("itemId"))
	respondCart(c, cart, err, "Item removed from cart")
}

func (h *Handler) ClearCart(c *gin.Context) {
	cleared, err := h.svc.Carts.Clear(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Cart cleared", "cleared": cleared})
}

// Checkout turns the cart into one order per merchant
func (h *Handler) Checkout(c *gin.Context) {
	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	orders, err := h.svc.Carts.Checkout(c.Request.Context(), middleware.GetActor(c), req.DeliveryAddress, req.CustomerPhone)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"count":   len(orders),
		"orders":  orders,
	})
}

// PlaceOrder creates a single-item order directly from the catalog
func (h *Handler) PlaceOrder(c *gin.Context) {
	var req PlaceOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := h.svc.Orders.Create(c.Request.Context(), middleware.GetActor(c), services.CreateOrderInput{
		FoodID:          req.FoodID,
		Quantity:        req.Quantity,
		Notes:           req.CustomerNotes,
		DeliveryAddress: req.DeliveryAddress,
		CustomerPhone:   req.CustomerPhone,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Order placed successfully", "order": order})
}

// GetMyOrders returns the customer's order history
func (h *Handler) GetMyOrders(c *gin.Context) {
	orders, err := h.svc.Orders.ListForCustomer(c.Request.Context(), middleware.GetActor(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(orders), "orders": orders})
}

// GetOrder returns one order to anyone allowed to see it
func (h *Handler) GetOrder(c *gin.Context) {
	order, err := h.svc.Orders.Get(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"order":             order,
		"valid_next_states": statemachine.ValidTransitionsFrom(order.Status),
	})
}
