package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/flicky/go-marketplace-api/internal/metrics"
	"github.com/flicky/go-marketplace-api/internal/middleware"
)

// Handlers groups every HTTP handler served by the API. Health may be nil.
type Handlers struct {
	Auth     *AuthHandler
	Category *CategoryHandler
	Product  *ProductHandler
	Shop     *ShopHandler
	Order    *OrderHandler
	Health   *HealthHandler
}

func NewRouter(h Handlers, jwtSecret string, log *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), metrics.Middleware())

	router.GET("/metrics", metrics.Handler())
	if h.Health != nil {
		router.GET("/healthz", h.Health.Healthz)
		router.GET("/readyz", h.Health.Readyz)
	}

	authRequired := middleware.AuthMiddleware(jwtSecret)
	adminOnly := middleware.AdminOnly()

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.GET("/profile", authRequired, h.Auth.Profile)
		auth.PATCH("/profile", authRequired, h.Auth.UpdateProfile)

		categories := v1.Group("/categories")
		categories.GET("", h.Category.List)
		categories.GET("/:id", h.Category.GetByID)
		categories.POST("", authRequired, adminOnly, h.Category.Create)
		categories.PUT("/:id", authRequired, adminOnly, h.Category.Update)
		categories.DELETE("/:id", authRequired, adminOnly, h.Category.Delete)

		products := v1.Group("/products")
		products.GET("", h.Product.List)
		products.GET("/my_products", authRequired, h.Product.MyProducts)
		products.GET("/:id", h.Product.GetByID)
		products.POST("", authRequired, adminOnly, h.Product.Create)
		products.PUT("/:id", authRequired, h.Product.Update)
		products.DELETE("/:id", authRequired, h.Product.Delete)

		shops := v1.Group("/shops")
		shops.GET("", h.Shop.List)
		shops.POST("", authRequired, h.Shop.Create)
		shops.GET("/my_shop", authRequired, h.Shop.MyShop)
		shops.GET("/:slug", middleware.OptionalAuth(jwtSecret), h.Shop.GetBySlug)
		shops.GET("/:slug/products", h.Shop.Products)

		owned := shops.Group("/:slug", authRequired)
		owned.PUT("", h.Shop.Update)
		owned.POST("/add_product", h.Shop.AddProduct)
		owned.GET("/orders", h.Shop.Orders)
		owned.POST("/orders/:id/advance", h.Shop.AdvanceOrder)
		owned.GET("/stats", h.Shop.Stats)
		owned.POST("/follow", h.Shop.Follow)
		owned.POST("/unfollow", h.Shop.Unfollow)

		orders := v1.Group("/orders", authRequired)
		orders.POST("", h.Order.CreateOrder)
		orders.GET("", h.Order.ListOrders)
		orders.GET("/my_orders", h.Order.ListOrders)
		orders.GET("/:id", h.Order.GetOrder)
		orders.POST("/:id/cancel", h.Order.CancelOrder)
	}

	return router
}
