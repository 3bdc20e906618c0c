package handlers

import (
	"github.com/courseloop/enrollflow/internal/auth"
	"github.com/courseloop/enrollflow/internal/aws"
	"github.com/courseloop/enrollflow/internal/checkout"
	"github.com/courseloop/enrollflow/internal/gateways"
	"github.com/courseloop/enrollflow/internal/orders"
	"github.com/courseloop/enrollflow/internal/pricing"
	"github.com/courseloop/enrollflow/internal/reconcile"
	"go.uber.org/zap"
)

// HandlerConfig groups dependencies for the payment endpoints. Everything is
// injected per instance; there are no package-level clients.
type HandlerConfig struct {
	Logger   *zap.Logger
	Verifier *auth.Verifier
	Resolver *pricing.Resolver
	Checkout *checkout.Service
	Engine   *reconcile.Engine
	Orders   *orders.Store
	Metrics  *aws.Metrics

	Stripe   *gateways.StripeAdapter
	Razorpay *gateways.RazorpayAdapter
	Paypal   *gateways.PaypalAdapter

	// AdminToken gates the manual reconciliation endpoints. Empty disables them.
	AdminToken string

	// AllowRegionOverride lets request bodies pick a region (staging only).
	AllowRegionOverride bool
	DefaultRegion       string
}
