package routes

import (
	"net/http"

	"foodconnect/handlers"
	"foodconnect/middleware"
	"foodconnect/models"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

func SetupRoutes(r *gin.Engine, h *handlers.Handler) {
	authRequired := middleware.AuthRequired(h.Auth)

	r.GET("/health", h.Health)
	r.GET("/storage/v1/object/public/:bucket/*path", h.GetObject)

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.POST("/auth/register", h.Register)
		public.POST("/auth/login", h.Login)

		public.GET("/restaurants", h.ListRestaurants)
		public.GET("/restaurants/:id", h.GetRestaurant)
		public.GET("/restaurants/:id/menu", h.GetMenu)
		public.GET("/menu-categories", h.MenuCategories)

		public.GET("/state-machine", h.GetStateMachineInfo)
	}

	// ── Authenticated routes ───────────────────────────────────────
	auth := r.Group("/api")
	auth.Use(authRequired)
	{
		auth.POST("/auth/logout", h.Logout)
		auth.GET("/auth/session", h.GetSession)
		auth.GET("/profile", h.GetProfile)
	}

	r.GET("/realtime/v1/:table", authRequired, h.StreamChanges)

	// ── Vendor routes ──────────────────────────────────────────────
	vendor := r.Group("/api/vendor")
	vendor.Use(authRequired, middleware.RoleRequired(models.RoleVendor))
	{
		vendor.GET("/restaurant", h.GetMyRestaurant)
		vendor.POST("/restaurant", h.CreateRestaurant)
		vendor.PUT("/restaurant", h.UpdateRestaurant)
		vendor.GET("/restaurant/qrcode", h.RestaurantQRCode)

		vendor.GET("/profile", h.GetVendorProfile)
		vendor.POST("/profile", h.CreateVendorProfile)
		vendor.PUT("/profile", h.UpdateVendorProfile)

		vendor.GET("/menu", h.GetMyMenu)
		vendor.POST("/menu", h.AddMenuItem)
		vendor.PUT("/menu/:itemId", h.UpdateMenuItem)
		vendor.DELETE("/menu/:itemId", h.DeleteMenuItem)
		vendor.PATCH("/menu/:itemId/availability", h.SetMenuItemAvailability)

		vendor.GET("/orders", h.GetRestaurantOrders)
		vendor.GET("/orders/notifications", h.OrderNotifications)
		vendor.GET("/orders/:id", h.GetRestaurantOrder)
		vendor.PUT("/orders/:id/status", h.UpdateOrderStatus)

		vendor.GET("/analytics", h.GetAnalytics)
	}

	// ── Customer routes ────────────────────────────────────────────
	customer := r.Group("/api/customer")
	customer.Use(authRequired, middleware.RoleRequired(models.RoleCustomer))
	{
		customer.POST("/orders", h.PlaceOrder)
		customer.GET("/orders", h.GetMyOrders)
		customer.GET("/orders/:id", h.GetOrderDetail)
		customer.PUT("/orders/:id/cancel", h.CancelOrder)
	}

	// ── Driver routes ──────────────────────────────────────────────
	driver := r.Group("/api/driver")
	driver.Use(authRequired, middleware.RoleRequired(models.RoleDriver))
	{
		driver.GET("/orders/available", h.GetAvailableOrders)
		driver.GET("/orders/my-deliveries", h.GetMyDeliveries)
		driver.PUT("/orders/:id/pickup", h.PickupOrder)
		driver.PUT("/orders/:id/deliver", h.DeliverOrder)
	}

	// ── Admin routes ───────────────────────────────────────────────
	admin := r.Group("/api/admin")
	admin.Use(authRequired, middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/restaurants", h.AdminListRestaurants)
		admin.PUT("/restaurants/:id/featured", h.AdminSetFeatured)
		admin.GET("/users", h.AdminGetAllUsers)
		admin.DELETE("/users/:id", h.AdminDeleteUser)
		admin.GET("/orders", h.AdminGetAllOrders)
		admin.PUT("/orders/:id/status", h.AdminForceOrderStatus)
	}
}

// WithCORS lets the browser dashboard on origins call the API
func WithCORS(next http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length", "Accept-Encoding", "Authorization"},
		AllowCredentials: true,
	}).Handler(next)
}
