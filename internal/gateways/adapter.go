package gateways

import (
	"context"
	"errors"
	"fmt"
)

// ErrAccountRestricted is the distinct wallet-provider failure that the client
// UI must surface with operator guidance instead of a generic error.
var ErrAccountRestricted = errors.New("paypal account restricted")

// ErrBadSignature indicates a webhook signature did not verify.
var ErrBadSignature = errors.New("bad webhook signature")

// GatewayError is an upstream provider HTTP failure.
type GatewayError struct {
	Gateway string
	Status  int
	Body    string
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s gateway error: status=%d body=%s", e.Gateway, e.Status, e.Body)
}

// ClientDirectives is what the browser needs to continue the payment,
// provider-specific by nature.
type ClientDirectives struct {
	SessionID   string `json:"sessionId,omitempty"`   // stripe hosted checkout
	CheckoutURL string `json:"checkoutUrl,omitempty"` // stripe hosted checkout
	OrderID     string `json:"orderId,omitempty"`     // razorpay widget
	KeyID       string `json:"keyId,omitempty"`       // razorpay widget
	ApprovalURL string `json:"approvalUrl,omitempty"` // paypal redirect
}

// CreateOrderInput is the resolved charge an adapter turns into a
// provider-side order or session.
type CreateOrderInput struct {
	UserID    string
	UserEmail string
	CourseID  string
	Amount    int64 // minor units
	Currency  string
}

// ProviderOrder is the provider-side order an adapter created.
type ProviderOrder struct {
	OrderID    string
	Directives ClientDirectives
}

// Adapter is the per-provider capability set. One implementation per gateway;
// everything downstream of order creation is shared so the three providers
// cannot drift in behavior.
type Adapter interface {
	// Name is the gateway identifier used as the order partition key.
	Name() string
	// SupportsCurrency reports whether the provider can charge in currency.
	SupportsCurrency(currency string) bool
	// CreateOrder creates the provider-side order/session.
	CreateOrder(ctx context.Context, in CreateOrderInput) (*ProviderOrder, error)
}
