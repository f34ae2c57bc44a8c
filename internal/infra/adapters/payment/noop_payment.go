package payment

import (
	"context"
	"fmt"
	"sync"

	"telegram-style-bot/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*NoopPaymentGateway)(nil)

// NoopPaymentGateway is a simple in-memory gateway to use in dev mode and tests.
type NoopPaymentGateway struct {
	mu      sync.Mutex
	seq     int64
	intents map[string]noopIntent
}

type noopIntent struct {
	amount int64
	status string
	meta   map[string]string
}

func NewNoopPaymentGateway() *NoopPaymentGateway {
	return &NoopPaymentGateway{intents: make(map[string]noopIntent)}
}

func (g *NoopPaymentGateway) Name() string { return "noop" }

func (g *NoopPaymentGateway) next() string {
	g.seq++
	return fmt.Sprintf("noop-%d", g.seq)
}

func (g *NoopPaymentGateway) CreateIntent(ctx context.Context, amountRUB int64, description string, meta map[string]string) (adapter.CreatedIntent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next()
	g.intents[id] = noopIntent{amount: amountRUB, status: "pending", meta: meta}
	return adapter.CreatedIntent{
		ID:          id,
		RedirectURL: "https://example.test/pay/" + id,
		Status:      "pending",
	}, nil
}

func (g *NoopPaymentGateway) GetStatus(ctx context.Context, intentID string) (adapter.IntentState, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	in, ok := g.intents[intentID]
	if !ok {
		return adapter.IntentState{}, fmt.Errorf("noop: intent %s not found", intentID)
	}
	return adapter.IntentState{
		Status: in.status,
		Paid:   in.status == "succeeded",
		Amount: in.amount,
		Meta:   in.meta,
	}, nil
}

// MarkPaid flips an intent to succeeded, used by tests and manual dev flows.
func (g *NoopPaymentGateway) MarkPaid(intentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if in, ok := g.intents[intentID]; ok {
		in.status = "succeeded"
		g.intents[intentID] = in
	}
}

// MarkCancelled flips an intent to canceled.
func (g *NoopPaymentGateway) MarkCancelled(intentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if in, ok := g.intents[intentID]; ok {
		in.status = "canceled"
		g.intents[intentID] = in
	}
}
