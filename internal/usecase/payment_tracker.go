// File: internal/usecase/payment_tracker.go
package usecase

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/model"
	"telegram-style-bot/internal/domain/ports/adapter"
	"telegram-style-bot/internal/infra/logging"
	"telegram-style-bot/internal/infra/metrics"
	"telegram-style-bot/internal/infra/worker"
)

// TrackerOptions bound the reconciliation loops.
type TrackerOptions struct {
	PollInterval time.Duration // sleep between gateway polls
	MaxAttempts  int           // polls before the loop gives up (intent expires)
	Retention    time.Duration // how long an intent stays in memory after creation
}

func (o *TrackerOptions) normalize() {
	if o.PollInterval <= 0 {
		o.PollInterval = 30 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 60
	}
	if o.Retention <= 0 {
		o.Retention = time.Hour
	}
}

// trackedIntent pairs an intent with its own lock. Every status transition
// and the settle credit happen under this lock, so the background loop and a
// manual check can never both act on the same observation.
type trackedIntent struct {
	mu     sync.Mutex
	intent model.PaymentIntent
}

// PaymentTracker owns the outstanding payment intents. The map is exclusive
// to the tracker; nothing else reaches into it. Intents are volatile: after a
// restart they are re-derived from the gateway via CheckNow.
type PaymentTracker struct {
	gateway  adapter.PaymentGateway
	ledger   LedgerUseCase
	notifier adapter.TelegramBotAdapter
	registry *worker.Registry
	opts     TrackerOptions
	log      *zerolog.Logger

	mu      sync.Mutex
	intents map[string]*trackedIntent
}

func NewPaymentTracker(
	gateway adapter.PaymentGateway,
	ledger LedgerUseCase,
	notifier adapter.TelegramBotAdapter,
	registry *worker.Registry,
	opts TrackerOptions,
	logger *zerolog.Logger,
) *PaymentTracker {
	opts.normalize()
	return &PaymentTracker{
		gateway:  gateway,
		ledger:   ledger,
		notifier: notifier,
		registry: registry,
		opts:     opts,
		log:      logger,
		intents:  make(map[string]*trackedIntent),
	}
}

// SetNotifier wires the outbound chat port after construction. The Telegram
// adapter depends on the facade, which depends on the tracker, so the
// notifier arrives last during startup.
func (t *PaymentTracker) SetNotifier(n adapter.TelegramBotAdapter) {
	t.notifier = n
}

func (t *PaymentTracker) notify(ctx context.Context, userID int64, text string) error {
	if t.notifier == nil {
		return nil
	}
	return t.notifier.SendMessage(ctx, userID, text)
}

// CreateIntent opens a payable transaction at the gateway, registers a
// pending record and schedules its reconciliation loop.
func (t *PaymentTracker) CreateIntent(ctx context.Context, tgID int64, tokens int, amount int64) (*model.PaymentIntent, error) {
	defer logging.TraceDuration(t.log, "PaymentTracker.CreateIntent")()
	if tokens <= 0 || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	desc := fmt.Sprintf("Purchase of %d tokens", tokens)
	created, err := t.gateway.CreateIntent(ctx, amount, desc, map[string]string{
		"user_id": strconv.FormatInt(tgID, 10),
		"tokens":  strconv.Itoa(tokens),
	})
	if err != nil {
		return nil, fmt.Errorf("gateway create intent: %w", err)
	}

	now := time.Now()
	ti := &trackedIntent{intent: model.PaymentIntent{
		ID:          created.ID,
		UserID:      tgID,
		Tokens:      tokens,
		Amount:      amount,
		RedirectURL: created.RedirectURL,
		Status:      model.IntentStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}}

	t.mu.Lock()
	t.intents[created.ID] = ti
	count := len(t.intents)
	t.mu.Unlock()
	metrics.SetOutstandingIntents(count)

	if err := t.registry.Go("reconcile:"+created.ID, func(ctx context.Context) error {
		return t.reconcile(ctx, created.ID)
	}); err != nil {
		t.log.Warn().Err(err).Str("intent_id", created.ID).Msg("reconcile loop not scheduled; manual check remains available")
	}

	t.log.Info().Str("intent_id", created.ID).Int64("tg_id", tgID).Int("tokens", tokens).
		Int64("amount", amount).Msg("payment intent created")
	out := ti.intent
	return &out, nil
}

// Recover registers a pending record for an intent this process does not
// know, typically after a restart when the user taps "check payment". The
// authoritative state still comes from the gateway.
func (t *PaymentTracker) Recover(intentID string, tgID int64, tokens int) {
	if intentID == "" || tgID <= 0 || tokens <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.intents[intentID]; ok {
		return
	}
	now := time.Now()
	t.intents[intentID] = &trackedIntent{intent: model.PaymentIntent{
		ID:        intentID,
		UserID:    tgID,
		Tokens:    tokens,
		Status:    model.IntentStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}}
}

// Get returns a copy of a tracked intent.
func (t *PaymentTracker) Get(intentID string) (*model.PaymentIntent, error) {
	ti := t.lookup(intentID)
	if ti == nil {
		return nil, domain.ErrIntentNotFound
	}
	ti.mu.Lock()
	defer ti.mu.Unlock()
	out := ti.intent
	return &out, nil
}

func (t *PaymentTracker) lookup(intentID string) *trackedIntent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.intents[intentID]
}

// reconcile polls the gateway until the intent resolves or the attempt
// budget runs out. Gateway errors count as attempts and are retried on the
// same interval. No lock is held while sleeping.
func (t *PaymentTracker) reconcile(ctx context.Context, intentID string) error {
	ticker := time.NewTicker(t.opts.PollInterval)
	defer ticker.Stop()

	for attempt := 0; attempt < t.opts.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		ti := t.lookup(intentID)
		if ti == nil {
			return nil // swept away
		}
		if done := t.observe(ctx, ti); done {
			return nil
		}
	}

	// Budget exhausted: expire without crediting. A later manual check can
	// still settle through the gateway.
	if ti := t.lookup(intentID); ti != nil {
		ti.mu.Lock()
		if ti.intent.Status == model.IntentStatusPending {
			ti.intent.Status = model.IntentStatusExpired
			ti.intent.UpdatedAt = time.Now()
			metrics.IncPayment(string(model.IntentStatusExpired))
			t.log.Info().Str("intent_id", intentID).Msg("payment intent expired")
		}
		ti.mu.Unlock()
	}
	return nil
}

// observe performs one gateway poll and applies the outcome. Returns true
// when the intent reached a resolved state and polling should stop.
func (t *PaymentTracker) observe(ctx context.Context, ti *trackedIntent) bool {
	ti.mu.Lock()
	id := ti.intent.ID
	status := ti.intent.Status
	ti.mu.Unlock()

	if status != model.IntentStatusPending {
		return true
	}

	state, err := t.gateway.GetStatus(ctx, id)
	if err != nil {
		t.log.Warn().Err(err).Str("intent_id", id).Msg("gateway poll failed; will retry")
		return false
	}

	switch {
	case state.Paid:
		if err := t.settle(ctx, ti); err != nil && !errors.Is(err, domain.ErrAlreadySettled) {
			// Credit failed: the intent stays pending so a later poll or a
			// manual check retries the credit instead of losing it.
			t.log.Error().Err(err).Str("intent_id", id).Msg("settlement failed; intent left pending")
			return false
		}
		return true
	case isCancelled(state.Status):
		t.markCancelled(ctx, ti)
		return true
	default:
		return false
	}
}

// settle is the single choke point that credits tokens. The status flip
// Pending|Expired -> Completed and the ledger credit happen under the
// per-intent lock, so a racing background poll and manual check produce
// exactly one credit and one notification.
func (t *PaymentTracker) settle(ctx context.Context, ti *trackedIntent) error {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	switch ti.intent.Status {
	case model.IntentStatusPending, model.IntentStatusExpired:
		// An expired intent paid late may still settle; the user paid for it.
	default:
		return domain.ErrAlreadySettled
	}

	balance, err := t.ledger.Credit(ctx, ti.intent.UserID, ti.intent.Tokens)
	if err != nil {
		return fmt.Errorf("credit %d tokens: %w", ti.intent.Tokens, err)
	}

	ti.intent.Status = model.IntentStatusCompleted
	ti.intent.UpdatedAt = time.Now()
	metrics.IncPayment(string(model.IntentStatusCompleted))
	metrics.AddPaymentRevenue("RUB", ti.intent.Amount)
	t.log.Info().Str("intent_id", ti.intent.ID).Int64("tg_id", ti.intent.UserID).
		Int("tokens", ti.intent.Tokens).Int("balance", balance).Msg("payment settled")

	text := fmt.Sprintf("✅ Payment received!\n\nCredited tokens: %d\nYour balance: %d tokens\n\nThank you for the purchase!",
		ti.intent.Tokens, balance)
	if err := t.notify(ctx, ti.intent.UserID, text); err != nil {
		// Tokens are already credited; a lost notification is not a lost payment.
		t.log.Error().Err(err).Str("intent_id", ti.intent.ID).Msg("settlement notification failed")
	}
	return nil
}

func (t *PaymentTracker) markCancelled(ctx context.Context, ti *trackedIntent) {
	ti.mu.Lock()
	if ti.intent.Status != model.IntentStatusPending {
		ti.mu.Unlock()
		return
	}
	ti.intent.Status = model.IntentStatusCancelled
	ti.intent.UpdatedAt = time.Now()
	id, userID := ti.intent.ID, ti.intent.UserID
	ti.mu.Unlock()

	metrics.IncPayment(string(model.IntentStatusCancelled))
	t.log.Info().Str("intent_id", id).Int64("tg_id", userID).Msg("payment cancelled")
	if err := t.notify(ctx, userID,
		"❌ Payment cancelled.\n\nYour payment was cancelled or not completed. Contact support if this looks wrong."); err != nil {
		t.log.Warn().Err(err).Str("intent_id", id).Msg("cancel notification failed")
	}
}

// CheckNow is the synchronous on-demand poll behind the "check payment"
// button. It short-circuits on already resolved intents and otherwise applies
// one gateway observation.
func (t *PaymentTracker) CheckNow(ctx context.Context, intentID string) (model.IntentStatus, error) {
	defer logging.TraceDuration(t.log, "PaymentTracker.CheckNow")()

	ti := t.lookup(intentID)
	if ti == nil {
		return "", domain.ErrIntentNotFound
	}

	ti.mu.Lock()
	status := ti.intent.Status
	ti.mu.Unlock()
	switch status {
	case model.IntentStatusCompleted, model.IntentStatusCancelled:
		return status, nil
	}

	state, err := t.gateway.GetStatus(ctx, intentID)
	if err != nil {
		return status, fmt.Errorf("gateway status: %w", err)
	}
	switch {
	case state.Paid:
		if err := t.settle(ctx, ti); err != nil && !errors.Is(err, domain.ErrAlreadySettled) {
			return status, err
		}
		return model.IntentStatusCompleted, nil
	case isCancelled(state.Status):
		t.markCancelled(ctx, ti)
		return model.IntentStatusCancelled, nil
	default:
		return model.IntentStatusPending, nil
	}
}

// SweepExpired removes intents past the retention window regardless of
// status, bounding the map. Returns how many were removed.
func (t *PaymentTracker) SweepExpired() int {
	cutoff := time.Now().Add(-t.opts.Retention)

	t.mu.Lock()
	var stale []string
	for id, ti := range t.intents {
		ti.mu.Lock()
		if ti.intent.CreatedAt.Before(cutoff) {
			stale = append(stale, id)
		}
		ti.mu.Unlock()
	}
	for _, id := range stale {
		delete(t.intents, id)
	}
	count := len(t.intents)
	t.mu.Unlock()

	metrics.SetOutstandingIntents(count)
	if len(stale) > 0 {
		t.log.Info().Int("removed", len(stale)).Int("remaining", count).Msg("swept stale payment intents")
	}
	return len(stale)
}

// RunSweeper is the periodic janitor loop, meant to run under the registry.
func (t *PaymentTracker) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			t.SweepExpired()
		}
	}
}

func isCancelled(providerStatus string) bool {
	switch providerStatus {
	case "canceled", "cancelled":
		return true
	}
	return false
}
