package gateways

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// paypalStub serves token, create and capture endpoints.
func paypalStub(t *testing.T, captureStatus int, captureBody string) (*httptest.Server, *map[string]interface{}) {
	t.Helper()
	var createBody map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/oauth2/token":
			if _, _, ok := r.BasicAuth(); !ok {
				t.Errorf("token call missing basic auth")
			}
			fmt.Fprint(w, `{"access_token":"A21AA-test","token_type":"Bearer"}`)
		case r.URL.Path == "/v2/checkout/orders":
			if r.Header.Get("Authorization") != "Bearer A21AA-test" {
				t.Errorf("order call missing bearer token")
			}
			raw, _ := io.ReadAll(r.Body)
			if err := json.Unmarshal(raw, &createBody); err != nil {
				t.Fatalf("unmarshal create body: %v", err)
			}
			fmt.Fprint(w, `{"id":"5O190127TN364715T","links":[
				{"rel":"self","href":"https://api.example.com/self"},
				{"rel":"approve","href":"https://paypal.example.com/checkoutnow?token=5O190127TN364715T"}
			]}`)
		case r.URL.Path == "/v2/checkout/orders/5O190127TN364715T/capture":
			w.WriteHeader(captureStatus)
			fmt.Fprint(w, captureBody)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	return srv, &createBody
}

func TestPaypalCreateOrder(t *testing.T) {
	srv, createBody := paypalStub(t, http.StatusOK, "")
	defer srv.Close()

	a := NewPaypalAdapter(PaypalConfig{ClientID: "cid", Secret: "sec", BaseURL: srv.URL})
	po, err := a.CreateOrder(context.Background(), CreateOrderInput{
		CourseID: "fullstack-2026",
		Amount:   7900,
		Currency: "USD",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if po.OrderID != "5O190127TN364715T" {
		t.Fatalf("unexpected order id: %s", po.OrderID)
	}
	if po.Directives.ApprovalURL == "" {
		t.Fatal("approval link not extracted")
	}

	units := (*createBody)["purchase_units"].([]interface{})
	amount := units[0].(map[string]interface{})["amount"].(map[string]interface{})
	if amount["value"] != "79.00" || amount["currency_code"] != "USD" {
		t.Fatalf("amount not rendered as decimal: %v", amount)
	}
}

func TestPaypalCapture(t *testing.T) {
	srv, _ := paypalStub(t, http.StatusCreated, `{
		"status":"COMPLETED",
		"purchase_units":[{"payments":{"captures":[{"id":"3C679366HH908993F"}]}}]
	}`)
	defer srv.Close()

	a := NewPaypalAdapter(PaypalConfig{ClientID: "cid", Secret: "sec", BaseURL: srv.URL})
	captureID, err := a.Capture(context.Background(), "5O190127TN364715T")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if captureID != "3C679366HH908993F" {
		t.Fatalf("unexpected capture id: %s", captureID)
	}
}

func TestPaypalCapture_AccountRestricted(t *testing.T) {
	srv, _ := paypalStub(t, http.StatusUnprocessableEntity, `{
		"name":"UNPROCESSABLE_ENTITY",
		"details":[{"issue":"PAYEE_ACCOUNT_RESTRICTED"}]
	}`)
	defer srv.Close()

	a := NewPaypalAdapter(PaypalConfig{ClientID: "cid", Secret: "sec", BaseURL: srv.URL})
	_, err := a.Capture(context.Background(), "5O190127TN364715T")
	if !errors.Is(err, ErrAccountRestricted) {
		t.Fatalf("expected ErrAccountRestricted, got %v", err)
	}
}

func TestPaypalSupportsCurrency(t *testing.T) {
	a := NewPaypalAdapter(PaypalConfig{})
	if a.SupportsCurrency("INR") {
		t.Fatal("INR must trigger the currency fallback")
	}
	if !a.SupportsCurrency("USD") {
		t.Fatal("USD should be supported")
	}
}

func TestMinorToDecimal(t *testing.T) {
	cases := map[int64]string{7900: "79.00", 649900: "6499.00", 5: "0.05", 105: "1.05"}
	for in, want := range cases {
		if got := minorToDecimal(in); got != want {
			t.Errorf("minorToDecimal(%d) = %s, want %s", in, got, want)
		}
	}
}
