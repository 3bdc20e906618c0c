package gateways

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/courseloop/enrollflow/internal/orders"
)

const defaultStripeBaseURL = "https://api.stripe.com"

// StripeConfig configures the card-checkout adapter.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string // empty disables signature verification
	SuccessURL    string
	CancelURL     string
	ProductName   string
	BaseURL       string // override for tests
}

// StripeAdapter creates hosted checkout sessions. The session id is the local
// order id; the provider renders its own payment page.
type StripeAdapter struct {
	cfg        StripeConfig
	httpClient *http.Client
}

func NewStripeAdapter(cfg StripeConfig) *StripeAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultStripeBaseURL
	}
	return &StripeAdapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *StripeAdapter) Name() string { return orders.GatewayStripe }

func (a *StripeAdapter) SupportsCurrency(currency string) bool { return true }

// CreateOrder creates a checkout session via the form-encoded sessions API.
func (a *StripeAdapter) CreateOrder(ctx context.Context, in CreateOrderInput) (*ProviderOrder, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", a.cfg.SuccessURL)
	form.Set("cancel_url", a.cfg.CancelURL)
	form.Set("customer_email", in.UserEmail)
	form.Set("client_reference_id", in.UserID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(in.Currency))
	form.Set("line_items[0][price_data][unit_amount]", fmt.Sprintf("%d", in.Amount))
	form.Set("line_items[0][price_data][product_data][name]", a.cfg.ProductName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/checkout/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.cfg.SecretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, &GatewayError{Gateway: a.Name(), Status: resp.StatusCode, Body: string(body)}
	}

	var session struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}

	return &ProviderOrder{
		OrderID: session.ID,
		Directives: ClientDirectives{
			SessionID:   session.ID,
			CheckoutURL: session.URL,
		},
	}, nil
}

// VerifyWebhook checks the Stripe-Signature header (t=...,v1=...) against an
// HMAC-SHA256 of "<t>.<payload>". A blank configured secret skips verification.
func (a *StripeAdapter) VerifyWebhook(payload []byte, header string) error {
	if a.cfg.WebhookSecret == "" {
		return nil
	}
	var ts, v1 string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "v1":
			v1 = kv[1]
		}
	}
	if ts == "" || v1 == "" {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, []byte(a.cfg.WebhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(v1)) {
		return ErrBadSignature
	}
	return nil
}

// ParseCompletedSession extracts (sessionID, paymentIntent) from a
// checkout.session.completed event. ok is false for other event types.
func (a *StripeAdapter) ParseCompletedSession(payload []byte) (orderID, paymentID string, ok bool, err error) {
	var event struct {
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID            string `json:"id"`
				PaymentIntent string `json:"payment_intent"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return "", "", false, fmt.Errorf("decode stripe event: %w", err)
	}
	if event.Type != "checkout.session.completed" {
		return "", "", false, nil
	}
	return event.Data.Object.ID, event.Data.Object.PaymentIntent, true, nil
}
