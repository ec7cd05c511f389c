// internal/router/router.go
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/myecomstore/backend/internal/config"
	"github.com/myecomstore/backend/internal/gateway"
	"github.com/myecomstore/backend/internal/handlers"
	"github.com/myecomstore/backend/internal/inventory"
	"github.com/myecomstore/backend/internal/metrics"
	"github.com/myecomstore/backend/internal/middleware"
	"github.com/myecomstore/backend/internal/services"
)

// Setup wires services, handlers and middleware into the HTTP surface.
func Setup(db *gorm.DB, cfg *config.Config, checkoutMetrics *metrics.CheckoutMetrics) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ledger := inventory.NewLedger()
	gw := gateway.NewRazorpayClient(cfg.Gateway.KeyID, cfg.Gateway.KeySecret)
	holdTTL := time.Duration(cfg.Checkout.HoldTTLMinutes) * time.Minute

	notificationService := services.NewNotificationService(db)
	checkoutService := services.NewCheckoutService(db, ledger, gw, checkoutMetrics, holdTTL, cfg.Gateway.Currency)
	settlementService := services.NewSettlementService(db, ledger, gw, notificationService, checkoutMetrics)
	catalogService := services.NewCatalogService(db, ledger)
	orderService := services.NewOrderService(db, notificationService)
	authService := services.NewAuthService(db, cfg.JWT.AccessTokenTTL)

	authHandler := handlers.NewAuthHandler(authService)
	productHandler := handlers.NewProductHandler(catalogService)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, settlementService)
	orderHandler := handlers.NewOrderHandler(orderService, notificationService)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := r.Group("/v1")
	v1.Use(middleware.GeneralRateLimit())
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		// Browse endpoints are public; OptionalAuth still resolves the
		// customer when a token is present so request logs carry identity.
		products := v1.Group("/products")
		{
			products.GET("", middleware.OptionalAuth(), productHandler.List)
			products.GET("/:id", middleware.OptionalAuth(), productHandler.Get)
			products.POST("", middleware.AuthRequired(), middleware.AdminRequired(), productHandler.Create)
			products.PUT("/:id/stock", middleware.AuthRequired(), middleware.AdminRequired(), productHandler.Restock)
		}
		v1.GET("/categories/:category/products", middleware.OptionalAuth(), productHandler.ListByCategory)

		checkout := v1.Group("/checkout")
		checkout.Use(middleware.AuthRequired(), middleware.CheckoutRateLimit())
		{
			checkout.POST("/reserve", checkoutHandler.Reserve)
			checkout.POST("/verify", checkoutHandler.Verify)
			checkout.POST("/cod", checkoutHandler.CashOnDelivery)
		}

		orders := v1.Group("/orders")
		orders.Use(middleware.AuthRequired())
		{
			orders.GET("", orderHandler.List)
			orders.GET("/:id", orderHandler.Get)
			orders.PUT("/:id/status", middleware.AdminRequired(), orderHandler.UpdateStatus)
		}

		payments := v1.Group("/payments")
		payments.Use(middleware.AuthRequired())
		{
			payments.GET("/history", orderHandler.PaymentHistory)
		}

		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthRequired())
		{
			notifications.GET("", orderHandler.Notifications)
			notifications.PUT("/:id/read", orderHandler.MarkNotificationRead)
		}
	}

	return r
}
