package adapter

import "context"

// CreatedIntent is the provider's answer to a payment request.
type CreatedIntent struct {
	ID          string
	RedirectURL string
	Status      string
}

// IntentState is a point-in-time provider view of an intent.
type IntentState struct {
	Status string
	Paid   bool
	Amount int64
	Meta   map[string]string
}

// PaymentGateway is the hex port for payment providers.
type PaymentGateway interface {
	Name() string

	// CreateIntent opens a payable transaction and returns the provider id
	// plus a user-facing redirect URL.
	CreateIntent(ctx context.Context, amount int64, description string, meta map[string]string) (CreatedIntent, error)

	// GetStatus polls the provider for the current state of an intent.
	GetStatus(ctx context.Context, intentID string) (IntentState, error)
}
