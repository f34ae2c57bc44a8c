//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/domain/model"
	"telegram-style-bot/internal/domain/ports/adapter"
	"telegram-style-bot/internal/infra/worker"
	"telegram-style-bot/internal/usecase"
)

type trackerTestDeps struct {
	repo     *memUserRepo
	gateway  *mockGateway
	notifier *mockNotifier
	registry *worker.Registry
	tracker  *usecase.PaymentTracker
}

func newTrackerDeps(t *testing.T, opts usecase.TrackerOptions) *trackerTestDeps {
	t.Helper()
	deps := &trackerTestDeps{
		repo:     newMemUserRepo(),
		gateway:  newMockGateway(),
		notifier: &mockNotifier{},
		registry: worker.NewRegistry(newTestLogger()),
	}
	ctx, cancel := context.WithCancel(context.Background())
	deps.registry.Start(ctx)
	t.Cleanup(func() {
		cancel()
		deps.registry.Stop(time.Second)
	})

	ledger := usecase.NewLedgerUseCase(deps.repo, newTestLogger())
	deps.tracker = usecase.NewPaymentTracker(deps.gateway, ledger, deps.notifier, deps.registry, opts, newTestLogger())
	return deps
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return cond()
}

func TestPaymentTracker_CreateIntent(t *testing.T) {
	ctx := context.Background()
	deps := newTrackerDeps(t, usecase.TrackerOptions{PollInterval: time.Hour})
	deps.repo.seed(42, 0)

	intent, err := deps.tracker.CreateIntent(ctx, 42, 150, 990)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if intent.Status != model.IntentStatusPending {
		t.Errorf("expected pending intent, got %s", intent.Status)
	}
	if intent.RedirectURL == "" {
		t.Error("expected a redirect url")
	}

	got, err := deps.tracker.Get(intent.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.UserID != 42 || got.Tokens != 150 || got.Amount != 990 {
		t.Errorf("intent fields lost: %+v", got)
	}

	t.Run("should reject invalid packs", func(t *testing.T) {
		if _, err := deps.tracker.CreateIntent(ctx, 42, 0, 990); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for zero tokens, got: %v", err)
		}
		if _, err := deps.tracker.CreateIntent(ctx, 42, 150, 0); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument for zero amount, got: %v", err)
		}
	})
}

func TestPaymentTracker_CheckNow(t *testing.T) {
	ctx := context.Background()

	t.Run("should credit exactly once and notify on payment", func(t *testing.T) {
		deps := newTrackerDeps(t, usecase.TrackerOptions{PollInterval: time.Hour})
		deps.repo.seed(42, 0)

		intent, err := deps.tracker.CreateIntent(ctx, 42, 150, 990)
		if err != nil {
			t.Fatal(err)
		}
		deps.gateway.setStatus(intent.ID, "succeeded")

		status, err := deps.tracker.CheckNow(ctx, intent.ID)
		if err != nil {
			t.Fatalf("CheckNow: %v", err)
		}
		if status != model.IntentStatusCompleted {
			t.Fatalf("expected completed, got %s", status)
		}
		if got := deps.repo.balance(42); got != 150 {
			t.Errorf("expected 150 tokens credited, got %d", got)
		}

		// A second check reports completion without touching the ledger again.
		status, err = deps.tracker.CheckNow(ctx, intent.ID)
		if err != nil || status != model.IntentStatusCompleted {
			t.Fatalf("second check: status=%s err=%v", status, err)
		}
		if got := deps.repo.balance(42); got != 150 {
			t.Errorf("double credit: balance %d", got)
		}
		if n := len(deps.notifier.sent()); n != 1 {
			t.Errorf("expected exactly 1 notification, got %d", n)
		}
	})

	t.Run("should report pending while unpaid", func(t *testing.T) {
		deps := newTrackerDeps(t, usecase.TrackerOptions{PollInterval: time.Hour})
		deps.repo.seed(42, 0)

		intent, err := deps.tracker.CreateIntent(ctx, 42, 150, 990)
		if err != nil {
			t.Fatal(err)
		}
		status, err := deps.tracker.CheckNow(ctx, intent.ID)
		if err != nil || status != model.IntentStatusPending {
			t.Fatalf("status=%s err=%v", status, err)
		}
		if got := deps.repo.balance(42); got != 0 {
			t.Errorf("unpaid intent credited tokens: %d", got)
		}
	})

	t.Run("should mark provider cancellation without crediting", func(t *testing.T) {
		deps := newTrackerDeps(t, usecase.TrackerOptions{PollInterval: time.Hour})
		deps.repo.seed(42, 0)

		intent, err := deps.tracker.CreateIntent(ctx, 42, 150, 990)
		if err != nil {
			t.Fatal(err)
		}
		deps.gateway.setStatus(intent.ID, "canceled")

		status, err := deps.tracker.CheckNow(ctx, intent.ID)
		if err != nil || status != model.IntentStatusCancelled {
			t.Fatalf("status=%s err=%v", status, err)
		}
		if got := deps.repo.balance(42); got != 0 {
			t.Errorf("cancelled intent credited tokens: %d", got)
		}
		// Cancellation is terminal: a late paid flip must not settle it.
		deps.gateway.setStatus(intent.ID, "succeeded")
		status, err = deps.tracker.CheckNow(ctx, intent.ID)
		if err != nil || status != model.IntentStatusCancelled {
			t.Fatalf("post-cancel status=%s err=%v", status, err)
		}
	})

	t.Run("should return ErrIntentNotFound for unknown intents", func(t *testing.T) {
		deps := newTrackerDeps(t, usecase.TrackerOptions{PollInterval: time.Hour})
		if _, err := deps.tracker.CheckNow(ctx, "nope"); !errors.Is(err, domain.ErrIntentNotFound) {
			t.Fatalf("expected ErrIntentNotFound, got: %v", err)
		}
	})
}

// Two racing manual checks over a paid intent produce one credit and one
// settlement notification.
func TestPaymentTracker_ConcurrentChecksSettleOnce(t *testing.T) {
	ctx := context.Background()
	deps := newTrackerDeps(t, usecase.TrackerOptions{PollInterval: time.Hour})
	deps.repo.seed(42, 0)

	intent, err := deps.tracker.CreateIntent(ctx, 42, 150, 990)
	if err != nil {
		t.Fatal(err)
	}
	deps.gateway.setStatus(intent.ID, "succeeded")

	const racers = 8
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := deps.tracker.CheckNow(ctx, intent.ID); err != nil {
				t.Errorf("CheckNow: %v", err)
			}
		}()
	}
	wg.Wait()

	if got := deps.repo.balance(42); got != 150 {
		t.Errorf("expected exactly one 150-token credit, balance %d", got)
	}
	settled := 0
	for _, msg := range deps.notifier.sent() {
		if strings.Contains(msg, "Payment received") {
			settled++
		}
	}
	if settled != 1 {
		t.Errorf("expected exactly 1 settlement notification, got %d", settled)
	}
}

// The background loop settles a paid intent without any manual check.
func TestPaymentTracker_ReconcileSettles(t *testing.T) {
	ctx := context.Background()
	deps := newTrackerDeps(t, usecase.TrackerOptions{PollInterval: 5 * time.Millisecond})
	deps.repo.seed(42, 0)

	intent, err := deps.tracker.CreateIntent(ctx, 42, 350, 1990)
	if err != nil {
		t.Fatal(err)
	}
	deps.gateway.setStatus(intent.ID, "succeeded")

	ok := waitFor(t, 2*time.Second, func() bool {
		got, err := deps.tracker.Get(intent.ID)
		return err == nil && got.Status == model.IntentStatusCompleted
	})
	if !ok {
		t.Fatal("reconcile loop never settled the intent")
	}
	if got := deps.repo.balance(42); got != 350 {
		t.Errorf("expected 350 tokens, got %d", got)
	}
}

// An intent whose attempt budget runs out expires, but a late payment can
// still settle through the manual check.
func TestPaymentTracker_ExpiryAndLateSettlement(t *testing.T) {
	ctx := context.Background()
	deps := newTrackerDeps(t, usecase.TrackerOptions{PollInterval: 3 * time.Millisecond, MaxAttempts: 3})
	deps.repo.seed(42, 0)

	intent, err := deps.tracker.CreateIntent(ctx, 42, 150, 990)
	if err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 2*time.Second, func() bool {
		got, err := deps.tracker.Get(intent.ID)
		return err == nil && got.Status == model.IntentStatusExpired
	})
	if !ok {
		t.Fatal("intent never expired")
	}
	if got := deps.repo.balance(42); got != 0 {
		t.Errorf("expiry credited tokens: %d", got)
	}

	// The user paid after all; their money still buys tokens.
	deps.gateway.setStatus(intent.ID, "succeeded")
	status, err := deps.tracker.CheckNow(ctx, intent.ID)
	if err != nil {
		t.Fatalf("late CheckNow: %v", err)
	}
	if status != model.IntentStatusCompleted {
		t.Fatalf("expected completed, got %s", status)
	}
	if got := deps.repo.balance(42); got != 150 {
		t.Errorf("expected 150 tokens after late settlement, got %d", got)
	}
}

// A failed ledger credit leaves the intent pending so a retry can credit it
// later, still exactly once.
func TestPaymentTracker_CreditFailureRetries(t *testing.T) {
	ctx := context.Background()
	deps := newTrackerDeps(t, usecase.TrackerOptions{PollInterval: time.Hour})
	deps.repo.seed(42, 0)

	var mu sync.Mutex
	failures := 1
	real := newMemUserRepo()
	real.seed(42, 0)
	deps.repo.AdjustFunc = func(ctx context.Context, tgID int64, delta int) (int, error) {
		mu.Lock()
		if failures > 0 {
			failures--
			mu.Unlock()
			return 0, errors.New("db down")
		}
		mu.Unlock()
		return real.AdjustTokens(ctx, tgID, delta)
	}

	intent, err := deps.tracker.CreateIntent(ctx, 42, 150, 990)
	if err != nil {
		t.Fatal(err)
	}
	deps.gateway.setStatus(intent.ID, "succeeded")

	if _, err := deps.tracker.CheckNow(ctx, intent.ID); err == nil {
		t.Fatal("expected the first check to surface the credit failure")
	}
	got, _ := deps.tracker.Get(intent.ID)
	if got.Status != model.IntentStatusPending {
		t.Fatalf("expected intent left pending, got %s", got.Status)
	}

	status, err := deps.tracker.CheckNow(ctx, intent.ID)
	if err != nil || status != model.IntentStatusCompleted {
		t.Fatalf("retry: status=%s err=%v", status, err)
	}
	if got := real.balance(42); got != 150 {
		t.Errorf("expected one 150-token credit after retry, got %d", got)
	}
}

func TestPaymentTracker_Recover(t *testing.T) {
	ctx := context.Background()
	deps := newTrackerDeps(t, usecase.TrackerOptions{PollInterval: time.Hour})
	deps.repo.seed(42, 0)

	// Simulates a restart: the gateway knows the payment, the tracker does not.
	deps.gateway.GetStatusFunc = func(ctx context.Context, intentID string) (adapter.IntentState, error) {
		return adapter.IntentState{Status: "succeeded", Paid: true}, nil
	}

	if _, err := deps.tracker.Get("pay-lost"); !errors.Is(err, domain.ErrIntentNotFound) {
		t.Fatalf("expected unknown intent, got: %v", err)
	}
	deps.tracker.Recover("pay-lost", 42, 150)

	status, err := deps.tracker.CheckNow(ctx, "pay-lost")
	if err != nil || status != model.IntentStatusCompleted {
		t.Fatalf("status=%s err=%v", status, err)
	}
	if got := deps.repo.balance(42); got != 150 {
		t.Errorf("expected 150 tokens after recovery, got %d", got)
	}
}

func TestPaymentTracker_SweepExpired(t *testing.T) {
	ctx := context.Background()
	deps := newTrackerDeps(t, usecase.TrackerOptions{PollInterval: time.Hour, Retention: 10 * time.Millisecond})
	deps.repo.seed(42, 0)

	intent, err := deps.tracker.CreateIntent(ctx, 42, 150, 990)
	if err != nil {
		t.Fatal(err)
	}
	if removed := deps.tracker.SweepExpired(); removed != 0 {
		t.Fatalf("fresh intent swept: removed=%d", removed)
	}

	time.Sleep(20 * time.Millisecond)
	if removed := deps.tracker.SweepExpired(); removed != 1 {
		t.Fatalf("expected 1 swept intent, got %d", removed)
	}
	if _, err := deps.tracker.Get(intent.ID); !errors.Is(err, domain.ErrIntentNotFound) {
		t.Errorf("swept intent still tracked: %v", err)
	}
}
