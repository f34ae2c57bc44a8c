//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"telegram-style-bot/internal/domain"
	"telegram-style-bot/internal/usecase"
)

func TestLedgerUseCase_Debit(t *testing.T) {
	ctx := context.Background()

	t.Run("should debit and return the new balance", func(t *testing.T) {
		repo := newMemUserRepo()
		repo.seed(1, 10)
		uc := usecase.NewLedgerUseCase(repo, newTestLogger())

		balance, err := uc.Debit(ctx, 1, 3)
		if err != nil {
			t.Fatalf("expected no error, got: %v", err)
		}
		if balance != 7 {
			t.Errorf("expected balance 7, got %d", balance)
		}
	})

	t.Run("should refuse a debit past zero and leave the balance intact", func(t *testing.T) {
		repo := newMemUserRepo()
		repo.seed(1, 2)
		uc := usecase.NewLedgerUseCase(repo, newTestLogger())

		_, err := uc.Debit(ctx, 1, 3)
		if !errors.Is(err, domain.ErrInsufficientTokens) {
			t.Fatalf("expected ErrInsufficientTokens, got: %v", err)
		}
		if got := repo.balance(1); got != 2 {
			t.Errorf("balance changed on refused debit: %d", got)
		}
	})

	t.Run("should reject non-positive amounts", func(t *testing.T) {
		repo := newMemUserRepo()
		repo.seed(1, 5)
		uc := usecase.NewLedgerUseCase(repo, newTestLogger())

		for _, amount := range []int{0, -1} {
			if _, err := uc.Debit(ctx, 1, amount); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("Debit(%d): expected ErrInvalidArgument, got: %v", amount, err)
			}
			if _, err := uc.Credit(ctx, 1, amount); !errors.Is(err, domain.ErrInvalidArgument) {
				t.Errorf("Credit(%d): expected ErrInvalidArgument, got: %v", amount, err)
			}
		}
	})

	t.Run("should report missing users", func(t *testing.T) {
		repo := newMemUserRepo()
		uc := usecase.NewLedgerUseCase(repo, newTestLogger())

		if _, err := uc.Debit(ctx, 99, 1); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestLedgerUseCase_Credit(t *testing.T) {
	ctx := context.Background()
	repo := newMemUserRepo()
	repo.seed(1, 0)
	uc := usecase.NewLedgerUseCase(repo, newTestLogger())

	balance, err := uc.Credit(ctx, 1, 150)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if balance != 150 {
		t.Errorf("expected balance 150, got %d", balance)
	}
}

// Concurrent debits against a small balance must never drive it negative and
// must succeed exactly balance/amount times.
func TestLedgerUseCase_ConcurrentDebits(t *testing.T) {
	ctx := context.Background()
	repo := newMemUserRepo()
	repo.seed(1, 5)
	uc := usecase.NewLedgerUseCase(repo, newTestLogger())

	const attempts = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, refused := 0, 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := uc.Debit(ctx, 1, 1)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientTokens):
				refused++
			default:
				t.Errorf("unexpected debit error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 5 {
		t.Errorf("expected exactly 5 successful debits, got %d", succeeded)
	}
	if refused != attempts-5 {
		t.Errorf("expected %d refused debits, got %d", attempts-5, refused)
	}
	if got := repo.balance(1); got != 0 {
		t.Errorf("expected final balance 0, got %d", got)
	}
}
