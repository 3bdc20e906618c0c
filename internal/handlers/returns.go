package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/courseloop/enrollflow/internal/orders"
	"go.uber.org/zap"
)

// returnHandler answers the browser's post-payment redirect. It only reads:
// confirmation comes from webhooks and captures, never from a user-controlled
// return URL. An order the webhook has not caught up with yet reports
// assumed_pending so the page can show the "processing" state.
func returnHandler(cfg HandlerConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		gateway := c.Query("gateway")
		orderID := c.Query("order_id")
		if gateway == "" || orderID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "gateway and order_id are required"})
			return
		}

		order, err := cfg.Orders.Get(c.Request.Context(), gateway, orderID)
		if err != nil {
			cfg.Logger.Error("return lookup failed",
				zap.String("gateway", gateway), zap.String("order_id", orderID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		if order != nil && order.Status == orders.StatusPaid {
			c.JSON(http.StatusOK, gin.H{"state": "confirmed", "orderId": orderID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"state": "assumed_pending", "orderId": orderID})
	}
}
