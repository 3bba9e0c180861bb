package routes

import (
	"context"

	"github.com/01moynul/storefront/internal/handlers"
	"github.com/01moynul/storefront/internal/metrics"
	"github.com/01moynul/storefront/internal/middleware"
	"github.com/01moynul/storefront/internal/models"
	"github.com/gin-gonic/gin"
)

// SetupRouter wires every route. ctx bounds background work owned by the
// router (the rate limiter sweeper).
func SetupRouter(ctx context.Context, h *handlers.Handlers, m *metrics.Metrics) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	if m != nil {
		router.Use(m.Middleware())
	}

	// --- APPLY THE CORS GUARD ---
	router.Use(middleware.CORSMiddleware(h.Config.CORSOrigins))

	limiter := middleware.RateLimit(ctx, h.Config.RateLimitRPS, h.Config.RateLimitBurst)

	// --- Health & Metrics (Public) ---
	router.GET("/health", h.Health)
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// --- Uploaded images (Public) ---
	if h.Config.UploadDir != "" {
		router.Static("/uploads", h.Config.UploadDir)
	}

	// --- Stripe Checkout (Public, cart is client-side) ---
	router.POST("/create-checkout-session", limiter, h.CreateCheckoutSession)

	api := router.Group("/api")
	{
		// --- Auth Routes (Public) ---
		authRoutes := api.Group("/auth")
		authRoutes.Use(limiter)
		{
			authRoutes.POST("/signup", h.Signup)
			authRoutes.POST("/login", h.Login)
			authRoutes.GET("/user-by-token", h.UserByToken)

			authRoutes.GET("/google", h.GoogleLogin)
			authRoutes.GET("/google/callback", h.GoogleCallback)
			authRoutes.GET("/google/failure", h.GoogleFailure)

			// Protected
			authRoutes.GET("/profile", middleware.AuthMiddleware(h.Auth), h.Profile)
		}

		// --- Product Routes (Login Required) ---
		products := api.Group("/products")
		products.Use(middleware.AuthMiddleware(h.Auth))
		{
			products.GET("", h.ListProducts)
			products.GET("/:id", h.GetProduct)

			adminOnly := middleware.RequireRole(models.RoleAdmin)
			products.POST("", adminOnly, h.CreateProduct)
			products.PUT("/:id", adminOnly, h.UpdateProduct)
			products.DELETE("/:id", adminOnly, h.DeleteProduct)
		}

		// --- Admin-Only Routes ---
		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(h.Auth))
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.PATCH("/users/:id/role", h.UpdateUserRole)
		}
	}

	return router
}
