package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/courseloop/enrollflow/internal/pricing"
	"github.com/courseloop/enrollflow/internal/validation"
	"go.uber.org/zap"
)

// viewerCountryHeader is stamped by the CDN in front of the API.
const viewerCountryHeader = "CloudFront-Viewer-Country"

// resolveRegion derives the pricing region server-side. The body override is
// honored only when explicitly enabled (staging); production pricing never
// trusts a client-supplied region.
func resolveRegion(c *gin.Context, cfg HandlerConfig, bodyRegion string) string {
	if cfg.AllowRegionOverride && bodyRegion != "" {
		return bodyRegion
	}
	if country := strings.ToUpper(c.GetHeader(viewerCountryHeader)); country == pricing.RegionIN {
		return pricing.RegionIN
	} else if country != "" {
		return pricing.RegionUS
	}
	if cfg.DefaultRegion != "" {
		return cfg.DefaultRegion
	}
	return pricing.RegionUS
}

func priceHandler(cfg HandlerConfig, v *validatorv10.Validate) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		var req validation.PriceRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			return
		}

		region := resolveRegion(c, cfg, req.Region)
		res, err := cfg.Resolver.Resolve(ctx, pricing.Input{
			CourseID:   req.CourseID,
			Region:     region,
			CouponCode: req.Coupon,
		})
		if err != nil {
			if errors.Is(err, pricing.ErrNoActivePricing) {
				c.JSON(http.StatusNotFound, gin.H{"error": "no active pricing"})
				return
			}
			cfg.Logger.Error("price resolution failed", zap.String("step", "resolve"), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"region":        res.Region,
			"currency":      res.Currency,
			"amount":        res.Amount,
			"display":       res.Display,
			"earlyBird":     res.EarlyBird,
			"couponApplied": res.CouponApplied,
		})
	}
}
