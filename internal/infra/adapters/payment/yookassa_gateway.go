// File: internal/infra/adapters/payment/yookassa_gateway.go
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"telegram-style-bot/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*YooKassaGateway)(nil)

const yooKassaBaseURL = "https://api.yookassa.ru/v3"

// YooKassaGateway implements adapter.PaymentGateway over the YooKassa REST v3
// API. Payments are created with capture=true and a redirect confirmation, so
// a succeeded payment needs no extra capture step.
type YooKassaGateway struct {
	shopID    string
	secretKey string
	returnURL string
	baseURL   string
	client    *http.Client
}

func NewYooKassaGateway(shopID, secretKey, returnURL string) (*YooKassaGateway, error) {
	if shopID == "" || secretKey == "" {
		return nil, errors.New("yookassa: shop id or secret key empty")
	}
	if _, err := url.Parse(returnURL); err != nil {
		return nil, fmt.Errorf("invalid return url: %w", err)
	}
	return &YooKassaGateway{
		shopID:    shopID,
		secretKey: secretKey,
		returnURL: returnURL,
		baseURL:   yooKassaBaseURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// SetBaseURL overrides the API endpoint, used by tests.
func (y *YooKassaGateway) SetBaseURL(base string) { y.baseURL = base }

func (y *YooKassaGateway) Name() string { return "yookassa" }

type yooKassaPayment struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Paid   bool   `json:"paid"`
	Amount struct {
		Value    string `json:"value"`
		Currency string `json:"currency"`
	} `json:"amount"`
	Confirmation struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
	Metadata map[string]string `json:"metadata"`
}

// CreateIntent creates a pending payment for amountRUB rubles and returns the
// provider intent ID plus the redirect URL the user must visit.
func (y *YooKassaGateway) CreateIntent(ctx context.Context, amountRUB int64, description string, meta map[string]string) (adapter.CreatedIntent, error) {
	payload := map[string]any{
		"amount": map[string]string{
			"value":    fmt.Sprintf("%d.00", amountRUB),
			"currency": "RUB",
		},
		"capture": true,
		"confirmation": map[string]string{
			"type":       "redirect",
			"return_url": y.returnURL,
		},
		"description": description,
	}
	if meta != nil {
		payload["metadata"] = meta
	}
	b, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, y.baseURL+"/payments", bytes.NewReader(b))
	if err != nil {
		return adapter.CreatedIntent{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotence-Key", uuid.NewString())
	req.SetBasicAuth(y.shopID, y.secretKey)

	resp, err := y.client.Do(req)
	if err != nil {
		return adapter.CreatedIntent{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return adapter.CreatedIntent{}, fmt.Errorf("yookassa create http %d", resp.StatusCode)
	}
	var out yooKassaPayment
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.CreatedIntent{}, err
	}
	if out.ID == "" || out.Confirmation.ConfirmationURL == "" {
		return adapter.CreatedIntent{}, errors.New("yookassa create: incomplete response")
	}
	return adapter.CreatedIntent{
		ID:          out.ID,
		RedirectURL: out.Confirmation.ConfirmationURL,
		Status:      out.Status,
	}, nil
}

// GetStatus fetches the current provider-side state of a payment.
func (y *YooKassaGateway) GetStatus(ctx context.Context, intentID string) (adapter.IntentState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+"/payments/"+intentID, nil)
	if err != nil {
		return adapter.IntentState{}, err
	}
	req.SetBasicAuth(y.shopID, y.secretKey)

	resp, err := y.client.Do(req)
	if err != nil {
		return adapter.IntentState{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return adapter.IntentState{}, fmt.Errorf("yookassa: payment %s not found", intentID)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return adapter.IntentState{}, fmt.Errorf("yookassa status http %d", resp.StatusCode)
	}
	var out yooKassaPayment
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return adapter.IntentState{}, err
	}
	var amount int64
	fmt.Sscanf(out.Amount.Value, "%d", &amount)
	return adapter.IntentState{
		Status: out.Status,
		Paid:   out.Paid || out.Status == "succeeded",
		Amount: amount,
		Meta:   out.Metadata,
	}, nil
}
