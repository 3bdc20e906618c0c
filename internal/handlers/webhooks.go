package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/courseloop/enrollflow/internal/aws"
	"github.com/courseloop/enrollflow/internal/gateways"
	"github.com/courseloop/enrollflow/internal/reconcile"
	"github.com/courseloop/enrollflow/internal/validation"
	"go.uber.org/zap"
)

// razorpayWebhookHandler verifies the signature over the raw body, then feeds
// payment.captured events to the reconciliation engine. The provider retries
// on anything but 2xx, so every handled outcome acks with 200.
func razorpayWebhookHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		if err := cfg.Razorpay.VerifyWebhook(payload, c.GetHeader("X-Razorpay-Signature")); err != nil {
			cfg.Logger.Warn("razorpay webhook signature rejected", zap.String("step", "verify"))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bad signature"})
			return
		}

		captured, ok, err := cfg.Razorpay.ParseCapturedEvent(payload)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
			return
		}
		if !ok {
			// uninteresting event type; ack so the provider stops retrying
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		cfg.Logger.Info("razorpay payment captured",
			zap.String("step", "webhook"),
			zap.String("order_id", captured.OrderID),
			zap.String("payment_id", captured.PaymentID),
			zap.Int64("reported_amount", captured.Amount))

		reconcileFromWebhook(c, cfg, cfg.Razorpay.Name(), captured.OrderID, captured.PaymentID)
	}
}

// stripeWebhookHandler handles checkout.session.completed. Same contract as
// the razorpay handler: verify, parse, reconcile, always ack handled events.
func stripeWebhookHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}

		if err := cfg.Stripe.VerifyWebhook(payload, c.GetHeader("Stripe-Signature")); err != nil {
			cfg.Logger.Warn("stripe webhook signature rejected", zap.String("step", "verify"))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "bad signature"})
			return
		}

		sessionID, paymentID, ok, err := cfg.Stripe.ParseCompletedSession(payload)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "malformed event"})
			return
		}
		if !ok {
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		cfg.Logger.Info("stripe session completed",
			zap.String("step", "webhook"),
			zap.String("order_id", sessionID),
			zap.String("payment_id", paymentID))

		reconcileFromWebhook(c, cfg, cfg.Stripe.Name(), sessionID, paymentID)
	}
}

// reconcileFromWebhook maps engine outcomes to webhook responses. Unknown
// orders and already-terminal orders are acknowledged: a non-2xx would only
// make the provider redeliver an event we can never apply.
func reconcileFromWebhook(c *gin.Context, cfg HandlerConfig, gateway, orderID, paymentID string) {
	ctx := c.Request.Context()
	log := cfg.Logger.With(zap.String("gateway", gateway), zap.String("order_id", orderID))

	_, err := cfg.Engine.Confirm(ctx, gateway, orderID, paymentID)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, reconcile.ErrOrderNotFound):
		log.Warn("webhook for unknown order", zap.String("step", "reconcile"))
		if cfg.Metrics != nil {
			if merr := cfg.Metrics.Count(ctx, aws.MetricUnknownOrderWebhooks, gateway); merr != nil {
				log.Warn("metric emission failed", zap.Error(merr))
			}
		}
		c.JSON(http.StatusOK, gin.H{"received": true})
	case errors.Is(err, reconcile.ErrOrderFailed):
		log.Warn("webhook for failed order ignored", zap.String("step", "reconcile"))
		c.JSON(http.StatusOK, gin.H{"received": true})
	default:
		log.Error("webhook reconciliation failed", zap.String("step", "reconcile"), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// paypalCaptureHandler runs the buyer-return capture: capture the approved
// order at the provider, then reconcile locally. Capture is idempotent on the
// provider side, so a retry after a local failure is safe.
func paypalCaptureHandler(cfg HandlerConfig, v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.CaptureRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}
		log := cfg.Logger.With(zap.String("gateway", cfg.Paypal.Name()), zap.String("order_id", req.OrderID))

		captureID, err := cfg.Paypal.Capture(ctx, req.OrderID)
		if err != nil {
			if errors.Is(err, gateways.ErrAccountRestricted) {
				log.Error("capture rejected, account restricted", zap.String("step", "capture"), zap.Error(err))
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": "PAYPAL_ACCOUNT_RESTRICTED"})
				return
			}
			log.Error("capture failed", zap.String("step", "capture"), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		res, err := cfg.Engine.Confirm(ctx, cfg.Paypal.Name(), req.OrderID, captureID)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, gin.H{
				"status":       "captured",
				"orderId":      req.OrderID,
				"captureId":    captureID,
				"reconciled":   true,
				"transitioned": res.Transitioned,
			})
		case errors.Is(err, reconcile.ErrOrderNotFound):
			// money moved but no local row: surface loudly, never fail the buyer
			log.Error("captured payment has no local order",
				zap.String("step", "reconcile"), zap.String("capture_id", captureID))
			c.JSON(http.StatusOK, gin.H{
				"status":     "captured",
				"orderId":    req.OrderID,
				"captureId":  captureID,
				"reconciled": false,
			})
		default:
			log.Error("capture reconciliation failed", zap.String("step", "reconcile"), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
	}
}
