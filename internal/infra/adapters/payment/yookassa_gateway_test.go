//go:build !integration

package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestYooKassaGateway_CreateIntent(t *testing.T) {
	ctx := context.Background()

	var gotBody map[string]any
	var gotIdemKey string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/payments" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		user, pass, _ := r.BasicAuth()
		if user != "shop-1" || pass != "secret" {
			t.Errorf("bad basic auth: %s/%s", user, pass)
		}
		gotIdemKey = r.Header.Get("Idempotence-Key")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "2c9f1a3b-000f-5000-8000-18db351245c7",
			"status": "pending",
			"paid": false,
			"amount": {"value": "990.00", "currency": "RUB"},
			"confirmation": {"confirmation_url": "https://yookassa.test/confirm"}
		}`))
	}))
	defer srv.Close()

	gw, err := NewYooKassaGateway("shop-1", "secret", "https://bot.test/payment/return")
	if err != nil {
		t.Fatal(err)
	}
	gw.SetBaseURL(srv.URL)

	created, err := gw.CreateIntent(ctx, 990, "Purchase of 150 tokens", map[string]string{"tokens": "150"})
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if created.ID != "2c9f1a3b-000f-5000-8000-18db351245c7" {
		t.Errorf("unexpected intent ID: %s", created.ID)
	}
	if created.RedirectURL != "https://yookassa.test/confirm" {
		t.Errorf("unexpected redirect url: %s", created.RedirectURL)
	}
	if gotIdemKey == "" {
		t.Error("missing Idempotence-Key header")
	}

	amount, _ := gotBody["amount"].(map[string]any)
	if amount["value"] != "990.00" || amount["currency"] != "RUB" {
		t.Errorf("unexpected amount payload: %v", amount)
	}
	if capture, _ := gotBody["capture"].(bool); !capture {
		t.Error("expected capture=true")
	}
}

func TestYooKassaGateway_GetStatus(t *testing.T) {
	ctx := context.Background()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/payments/paid-id":
			_, _ = w.Write([]byte(`{"id":"paid-id","status":"succeeded","paid":true,"amount":{"value":"990.00","currency":"RUB"},"metadata":{"tokens":"150"}}`))
		case "/payments/missing-id":
			w.WriteHeader(http.StatusNotFound)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer srv.Close()

	gw, err := NewYooKassaGateway("shop-1", "secret", "https://bot.test/payment/return")
	if err != nil {
		t.Fatal(err)
	}
	gw.SetBaseURL(srv.URL)

	state, err := gw.GetStatus(ctx, "paid-id")
	if err != nil {
		t.Fatalf("GetStatus: %v", err)
	}
	if !state.Paid || state.Status != "succeeded" {
		t.Errorf("unexpected state: %+v", state)
	}
	if state.Amount != 990 {
		t.Errorf("expected amount 990, got %d", state.Amount)
	}
	if state.Meta["tokens"] != "150" {
		t.Errorf("metadata lost: %v", state.Meta)
	}

	if _, err := gw.GetStatus(ctx, "missing-id"); err == nil {
		t.Error("expected an error for a missing payment")
	}
}

func TestNewYooKassaGateway_Validation(t *testing.T) {
	if _, err := NewYooKassaGateway("", "secret", "https://bot.test"); err == nil {
		t.Error("expected error for empty shop id")
	}
	if _, err := NewYooKassaGateway("shop-1", "", "https://bot.test"); err == nil {
		t.Error("expected error for empty secret")
	}
}
