package gateways

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/courseloop/enrollflow/internal/orders"
	"github.com/google/uuid"
)

const defaultRazorpayBaseURL = "https://api.razorpay.com"

// RazorpayConfig configures the regional-order adapter.
type RazorpayConfig struct {
	KeyID         string
	KeySecret     string
	WebhookSecret string // empty disables signature verification
	BaseURL       string // override for tests
}

// RazorpayAdapter creates provider-side orders paid through a client-side
// widget; the approval target is the (orderId, keyId) pair, not a URL.
type RazorpayAdapter struct {
	cfg        RazorpayConfig
	httpClient *http.Client
}

func NewRazorpayAdapter(cfg RazorpayConfig) *RazorpayAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultRazorpayBaseURL
	}
	return &RazorpayAdapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (a *RazorpayAdapter) Name() string { return orders.GatewayRazorpay }

func (a *RazorpayAdapter) SupportsCurrency(currency string) bool {
	return currency == "INR"
}

// CreateOrder creates an order via POST /v1/orders with basic auth.
func (a *RazorpayAdapter) CreateOrder(ctx context.Context, in CreateOrderInput) (*ProviderOrder, error) {
	payload := map[string]interface{}{
		"amount":   in.Amount,
		"currency": in.Currency,
		"receipt":  "rcpt_" + uuid.NewString()[:18],
		"notes": map[string]string{
			"course_id": in.CourseID,
			"email":     in.UserEmail,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.SetBasicAuth(a.cfg.KeyID, a.cfg.KeySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create razorpay order: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, &GatewayError{Gateway: a.Name(), Status: resp.StatusCode, Body: string(respBody)}
	}

	var order struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}

	return &ProviderOrder{
		OrderID: order.ID,
		Directives: ClientDirectives{
			OrderID: order.ID,
			KeyID:   a.cfg.KeyID,
		},
	}, nil
}

// VerifyWebhook checks X-Razorpay-Signature: hex HMAC-SHA256 of the raw body.
// A blank configured secret skips verification.
func (a *RazorpayAdapter) VerifyWebhook(payload []byte, signature string) error {
	if a.cfg.WebhookSecret == "" {
		return nil
	}
	mac := hmac.New(sha256.New, []byte(a.cfg.WebhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}

// CapturedPayment is the payment entity carried by a payment.captured event.
// Amount is logged for correlation only; the stored order amount stays
// authoritative.
type CapturedPayment struct {
	PaymentID string
	OrderID   string
	Amount    int64
}

// ParseCapturedEvent extracts the payment entity from a payment.captured
// event. ok is false for other event types.
func (a *RazorpayAdapter) ParseCapturedEvent(payload []byte) (*CapturedPayment, bool, error) {
	var event struct {
		Event   string `json:"event"`
		Payload struct {
			Payment struct {
				Entity struct {
					ID      string `json:"id"`
					OrderID string `json:"order_id"`
					Amount  int64  `json:"amount"`
				} `json:"entity"`
			} `json:"payment"`
		} `json:"payload"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, false, fmt.Errorf("decode razorpay event: %w", err)
	}
	if event.Event != "payment.captured" {
		return nil, false, nil
	}
	e := event.Payload.Payment.Entity
	return &CapturedPayment{PaymentID: e.ID, OrderID: e.OrderID, Amount: e.Amount}, true, nil
}
