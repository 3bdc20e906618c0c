package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/courseloop/enrollflow/internal/checkout"
	"github.com/courseloop/enrollflow/internal/gateways"
	"github.com/courseloop/enrollflow/internal/pricing"
	"github.com/courseloop/enrollflow/internal/validation"
	"go.uber.org/zap"
)

// createOrderHandler is shared by the three gateways: same auth, same pricing,
// same persistence; only the adapter (and thus the client directives) differ.
func createOrderHandler(cfg HandlerConfig, v *validatorv10.Validate, adapter gateways.Adapter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		user, err := cfg.Verifier.GetUser(c.GetHeader("Authorization"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		sess, err := cfg.Checkout.CreateOrder(ctx, adapter, user, checkout.Request{
			CourseID:   req.CourseID,
			Region:     resolveRegion(c, cfg, req.Region),
			CouponCode: req.Coupon,
		})
		if err != nil {
			writeCreateOrderError(c, cfg, adapter.Name(), err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"gateway":     sess.Gateway,
			"orderId":     sess.OrderID,
			"amount":      sess.Amount,
			"currency":    sess.Currency,
			"sessionId":   sess.Directives.SessionID,
			"checkoutUrl": sess.Directives.CheckoutURL,
			"keyId":       sess.Directives.KeyID,
			"approvalUrl": sess.Directives.ApprovalURL,
		})
	}
}

func writeCreateOrderError(c *gin.Context, cfg HandlerConfig, gateway string, err error) {
	log := cfg.Logger.With(zap.String("gateway", gateway))
	switch {
	case errors.Is(err, pricing.ErrNoActivePricing):
		c.JSON(http.StatusNotFound, gin.H{"error": "no active pricing"})
	case errors.Is(err, gateways.ErrAccountRestricted):
		// stable code so the UI can show actionable guidance
		log.Error("wallet account restricted", zap.String("step", "provider-create"), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PAYPAL_ACCOUNT_RESTRICTED"})
	case errors.Is(err, checkout.ErrPersistence):
		log.Error("order creation failed", zap.String("step", "persist"), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		log.Error("order creation failed", zap.String("step", "provider-create"), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func claimHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		user, err := cfg.Verifier.GetUser(c.GetHeader("Authorization"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
			return
		}

		claimed, err := cfg.Engine.ClaimByEmail(ctx, user.ID, user.Email)
		if err != nil {
			cfg.Logger.Error("claim failed", zap.String("user_id", user.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"claimed": claimed})
	}
}
