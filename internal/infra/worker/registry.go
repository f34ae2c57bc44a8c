// File: internal/infra/worker/registry.go
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Task func(ctx context.Context) error

// Registry supervises long-lived background tasks (one reconcile loop per
// payment intent, the janitor, ...). Shutdown enumerates and cancels them
// deterministically instead of leaking fire-and-forget goroutines.
type Registry struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
	count  int
	log    *zerolog.Logger
}

func NewRegistry(log *zerolog.Logger) *Registry {
	return &Registry{log: log}
}

// Start derives the registry context. Tasks submitted before Start are rejected.
func (r *Registry) Start(parent context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ctx != nil {
		return
	}
	r.ctx, r.cancel = context.WithCancel(parent)
}

// Go runs fn in a supervised goroutine. The task owns its own loop and must
// return promptly when its context is cancelled.
func (r *Registry) Go(name string, fn Task) error {
	if fn == nil {
		return errors.New("nil task")
	}
	r.mu.Lock()
	if r.ctx == nil || r.ctx.Err() != nil {
		r.mu.Unlock()
		return errors.New("registry not running")
	}
	ctx := r.ctx
	r.count++
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			r.count--
			r.mu.Unlock()
		}()
		if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.log.Error().Err(err).Str("task", name).Msg("background task failed")
		}
	}()
	return nil
}

// Count reports how many tasks are currently running.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Stop cancels all tasks and waits up to timeout for them to drain.
// In-flight work past the deadline is abandoned.
func (r *Registry) Stop(timeout time.Duration) {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		r.log.Warn().Msg("background tasks did not drain before deadline")
	}
}
