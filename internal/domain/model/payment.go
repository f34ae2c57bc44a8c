package model

import "time"

type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"   // created at provider; awaiting payment
	IntentStatusCompleted IntentStatus = "completed" // paid and tokens credited
	IntentStatusCancelled IntentStatus = "cancelled" // provider reported cancel
	IntentStatusExpired   IntentStatus = "expired"   // attempt budget exhausted without resolution
)

// PaymentIntent records an outstanding request to exchange money for tokens.
// The ID is issued by the payment provider. Intents live in process memory
// only; after a restart they are re-derived from the provider on a manual
// check.
type PaymentIntent struct {
	ID          string
	UserID      int64
	Tokens      int
	Amount      int64 // whole currency units (RUB)
	RedirectURL string
	Status      IntentStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TokenPack is a purchasable bundle shown in the purchase menu.
type TokenPack struct {
	Tokens int   `yaml:"tokens"`
	Price  int64 `yaml:"price"`
}
