package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/courseloop/enrollflow/internal/validation"
)

// RegisterRoutes registers the payment API surface.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.Use(corsMiddleware())

	r.POST("/price", priceHandler(cfg, v))

	r.POST("/orders/razorpay", createOrderHandler(cfg, v, cfg.Razorpay))
	r.POST("/orders/stripe", createOrderHandler(cfg, v, cfg.Stripe))
	r.POST("/orders/paypal", createOrderHandler(cfg, v, cfg.Paypal))
	r.POST("/orders/claim", claimHandler(cfg))

	r.POST("/webhooks/razorpay", razorpayWebhookHandler(cfg))
	r.POST("/webhooks/stripe", stripeWebhookHandler(cfg))
	r.POST("/paypal/capture", paypalCaptureHandler(cfg, v))

	r.GET("/payments/return", returnHandler(cfg))

	admin := r.Group("/admin", adminOnly(cfg))
	admin.POST("/manual-fix", manualFixHandler(cfg, v))
	admin.POST("/manual-confirm", manualConfirmHandler(cfg, v))
}

// corsMiddleware is deliberately permissive: every endpoint is called from
// the marketing site's origin as well as gateway dashboards during testing.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Admin-Token")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// adminOnly gates the manual reconciliation endpoints: trusted callers only,
// never browser traffic.
func adminOnly(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AdminToken == "" || c.GetHeader("X-Admin-Token") != cfg.AdminToken {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
