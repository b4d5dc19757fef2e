package routes

import (
	"food-marketplace-api/handlers"
	"food-marketplace-api/middleware"
	"food-marketplace-api/models"

	"github.com/gin-gonic/gin"
)

// SetupRoutes registers the API. authRequired is the AuthRequired middleware
// bound to the token issuer and user directory.
func SetupRoutes(r *gin.Engine, h *handlers.Handler, authRequired gin.HandlerFunc) {
	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		// Auth
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		// Catalog (no auth needed)
		public.GET("/foods", h.ListFoods)
		public.GET("/foods/:id", h.GetFood)

		// State machine info
		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(authRequired)
	{
		auth.GET("/profile", h.GetProfile)

		// Orders are visible to their customer, merchant, driver and admins
		auth.GET("/orders/:id", h.GetOrder)

		// Notification inbox
		auth.GET("/messages", h.GetMessages)
		auth.GET("/messages/unread-count", h.GetUnreadCount)
		auth.PUT("/messages/:id/read", h.MarkMessageRead)

		// Tracking; the service decides who may do what
		auth.GET("/tracking/:id", h.GetTracking)
		auth.GET("/tracking/:id/live", h.LiveTracking)
		auth.PUT("/tracking/:id/driver-location", h.UpdateDriverLocation)
		auth.PUT("/tracking/:id/delivery-location", h.SetDeliveryLocation)
		auth.PUT("/tracking/:id/eta", h.UpdateEstimatedTime)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api")
	customer.Use(authRequired, middleware.RoleRequired(models.RoleCustomer))
	{
		customer.GET("/cart", h.GetCart)
		customer.GET("/cart/count", h.GetCartCount)
		customer.POST("/cart/items", h.AddCartItem)
		customer.PUT("/cart/items/:itemId", h.UpdateCartItem)
		customer.DELETE("/cart/items/:itemId", h.RemoveCartItem)
		customer.DELETE("/cart", h.ClearCart)
		customer.POST("/cart/checkout", h.Checkout)

		customer.POST("/orders", h.PlaceOrder)
		customer.GET("/orders", h.GetMyOrders)
	}

	// ── Merchant routes ────────────────────────────────────────────
	merchant := r.Group("/api/merchant")
	merchant.Use(authRequired, middleware.RoleRequired(models.RoleMerchant, models.RoleAdmin))
	{
		// Menu management
		merchant.GET("/foods", h.ListMyFoods)
		merchant.POST("/foods", h.CreateFood)
		merchant.PUT("/foods/:id", h.UpdateFood)
		merchant.DELETE("/foods/:id", h.DeleteFood)

		// Order management
		merchant.GET("/orders", h.GetMerchantOrders)
		merchant.PUT("/orders/:id/accept", h.AcceptOrder)
		merchant.PUT("/orders/:id/reject", h.RejectOrder)
		merchant.PUT("/orders/:id/prepare", h.StartPreparing)
		merchant.PUT("/orders/:id/ready", h.MarkReady)
		merchant.PUT("/orders/:id/unavailable", h.HandleUnavailable)

		merchant.GET("/stats", h.GetMerchantStats)
	}

	// ── Driver routes ──────────────────────────────────────────────
	driver := r.Group("/api/driver")
	driver.Use(authRequired, middleware.RoleRequired(models.RoleDriver, models.RoleAdmin))
	{
		driver.GET("/orders/available", h.GetAvailableOrders)
		driver.GET("/orders", h.GetDriverOrders)
		driver.PUT("/orders/:id/accept", h.AcceptDelivery)
		driver.PUT("/orders/:id/deliver", h.MarkDelivered)
		driver.GET("/stats", h.GetDriverStats)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(authRequired, middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/users", h.ListUsers)
		admin.PUT("/users/:id/role", h.UpdateUserRole)
		admin.PUT("/users/:id/toggle-status", h.ToggleUserStatus)
		admin.DELETE("/users/:id", h.DeleteUser)

		admin.GET("/orders", h.ListAllOrders)
		admin.PUT("/orders/:id/status", h.OverrideOrderStatus)
		admin.DELETE("/orders/:id", h.DeleteOrder)
	}
}
