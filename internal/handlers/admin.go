package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/courseloop/enrollflow/internal/reconcile"
	"github.com/courseloop/enrollflow/internal/validation"
	"go.uber.org/zap"
)

// manualFixHandler forces reconciliation for a payment the webhooks missed,
// located by (email, order id). It reuses the engine's single transition
// path, so running it against an already-paid order is a harmless no-op.
func manualFixHandler(cfg HandlerConfig, v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.ManualFixRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		res, err := cfg.Engine.ConfirmByEmail(c.Request.Context(), req.UserEmail, req.OrderID)
		writeManualResult(c, cfg, req.OrderID, res, err)
	}
}

// manualConfirmHandler forces reconciliation by (order id, payment id), for
// cases where the operator has the provider payment reference in hand.
func manualConfirmHandler(cfg HandlerConfig, v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req validation.ManualConfirmRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		res, err := cfg.Engine.ConfirmByPaymentID(c.Request.Context(), req.OrderID, req.PaymentID)
		writeManualResult(c, cfg, req.OrderID, res, err)
	}
}

func writeManualResult(c *gin.Context, cfg HandlerConfig, orderID string, res *reconcile.Result, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"orderId":      orderID,
			"status":       res.Order.Status,
			"transitioned": res.Transitioned,
		})
	case errors.Is(err, reconcile.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
	case errors.Is(err, reconcile.ErrOrderFailed):
		c.JSON(http.StatusConflict, gin.H{"error": "order already failed"})
	default:
		cfg.Logger.Error("manual reconciliation failed", zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
