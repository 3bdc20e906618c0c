package gateways

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/courseloop/enrollflow/internal/orders"
)

const defaultPaypalBaseURL = "https://api-m.paypal.com"

// paypal only settles the currencies it lists; INR is notably absent, which
// is what triggers the currency-downgrade fallback at checkout time.
var paypalCurrencies = map[string]bool{
	"USD": true, "EUR": true, "GBP": true, "AUD": true, "CAD": true, "SGD": true,
}

// PaypalConfig configures the wallet adapter.
type PaypalConfig struct {
	ClientID  string
	Secret    string
	ReturnURL string
	CancelURL string
	BaseURL   string // override for tests
}

// PaypalAdapter creates wallet orders and performs the explicit capture the
// user-return callback requires (capture is not automatic for this provider).
type PaypalAdapter struct {
	cfg        PaypalConfig
	httpClient *http.Client
}

func NewPaypalAdapter(cfg PaypalConfig) *PaypalAdapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultPaypalBaseURL
	}
	return &PaypalAdapter{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 20 * time.Second},
	}
}

func (a *PaypalAdapter) Name() string { return orders.GatewayPaypal }

func (a *PaypalAdapter) SupportsCurrency(currency string) bool {
	return paypalCurrencies[currency]
}

func (a *PaypalAdapter) token(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v1/oauth2/token",
		strings.NewReader("grant_type=client_credentials"))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.SetBasicAuth(a.cfg.ClientID, a.cfg.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", &GatewayError{Gateway: a.Name(), Status: resp.StatusCode, Body: string(body)}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}
	return tok.AccessToken, nil
}

// CreateOrder creates a CAPTURE-intent order and extracts the approval link.
func (a *PaypalAdapter) CreateOrder(ctx context.Context, in CreateOrderInput) (*ProviderOrder, error) {
	accessToken, err := a.token(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"intent": "CAPTURE",
		"purchase_units": []map[string]interface{}{
			{
				"amount": map[string]string{
					"currency_code": in.Currency,
					"value":         minorToDecimal(in.Amount),
				},
				"custom_id": in.CourseID,
			},
		},
		"application_context": map[string]string{
			"return_url": a.cfg.ReturnURL,
			"cancel_url": a.cfg.CancelURL,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal order payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.BaseURL+"/v2/checkout/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build order request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("create paypal order: %w", err)
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, a.asGatewayError(resp.StatusCode, respBody)
	}

	var order struct {
		ID    string `json:"id"`
		Links []struct {
			Rel  string `json:"rel"`
			Href string `json:"href"`
		} `json:"links"`
	}
	if err := json.Unmarshal(respBody, &order); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}

	approval := ""
	for _, link := range order.Links {
		if link.Rel == "approve" {
			approval = link.Href
		}
	}

	return &ProviderOrder{
		OrderID: order.ID,
		Directives: ClientDirectives{
			ApprovalURL: approval,
		},
	}, nil
}

// Capture confirms a wallet order after buyer approval and returns the
// capture id. The order is not paid until this call succeeds.
func (a *PaypalAdapter) Capture(ctx context.Context, orderID string) (string, error) {
	accessToken, err := a.token(ctx)
	if err != nil {
		return "", err
	}

	captureURL := fmt.Sprintf("%s/v2/checkout/orders/%s/capture", a.cfg.BaseURL, orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, captureURL, bytes.NewReader([]byte("{}")))
	if err != nil {
		return "", fmt.Errorf("build capture request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("capture paypal order: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return "", a.asGatewayError(resp.StatusCode, body)
	}

	var captured struct {
		Status        string `json:"status"`
		PurchaseUnits []struct {
			Payments struct {
				Captures []struct {
					ID string `json:"id"`
				} `json:"captures"`
			} `json:"payments"`
		} `json:"purchase_units"`
	}
	if err := json.Unmarshal(body, &captured); err != nil {
		return "", fmt.Errorf("decode capture: %w", err)
	}
	if captured.Status != "COMPLETED" {
		return "", &GatewayError{Gateway: a.Name(), Status: resp.StatusCode, Body: fmt.Sprintf("capture status %s", captured.Status)}
	}

	captureID := ""
	if len(captured.PurchaseUnits) > 0 && len(captured.PurchaseUnits[0].Payments.Captures) > 0 {
		captureID = captured.PurchaseUnits[0].Payments.Captures[0].ID
	}
	return captureID, nil
}

// asGatewayError maps the restricted-account issue code to its distinct
// sentinel so the client can show actionable guidance.
func (a *PaypalAdapter) asGatewayError(status int, body []byte) error {
	if strings.Contains(string(body), "PAYEE_ACCOUNT_RESTRICTED") {
		return fmt.Errorf("%w: %s", ErrAccountRestricted, string(body))
	}
	return &GatewayError{Gateway: a.Name(), Status: status, Body: string(body)}
}

// minorToDecimal renders minor units as the provider's "79.00" style value.
func minorToDecimal(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}
