// Package guard serializes access to the single leaderboard store handle.
//
// The store is reachable only through Do, so every statement runs while the
// guard is held, and the guard is released on every exit path.
package guard

import (
	"context"
	"sync"
	"time"

	"github.com/okian/highscores/internal/adapters/repository"
	"github.com/okian/highscores/pkg/metrics"
)

// Func is a critical section run against the guarded store.
type Func func(ctx context.Context, store repository.Store) error

// Guard owns a Store and grants exclusive access to it.
type Guard struct {
	mu    sync.Mutex
	store repository.Store
}

// New takes ownership of store. Callers must not keep other references to it.
func New(store repository.Store) *Guard {
	return &Guard{store: store}
}

// Do blocks until the guard is free, then runs fn with exclusive access to
// the store. Once acquired, fn runs to completion: the context it receives
// keeps ctx's values but not its cancellation.
func (g *Guard) Do(ctx context.Context, fn Func) error {
	metrics.AddGuardWaiters(1)
	waitStart := time.Now()
	g.mu.Lock()
	holdStart := time.Now()
	metrics.AddGuardWaiters(-1)
	metrics.RecordGuardWait(millis(holdStart.Sub(waitStart)))
	defer func() {
		metrics.RecordGuardHold(millis(time.Since(holdStart)))
		g.mu.Unlock()
	}()

	return fn(context.WithoutCancel(ctx), g.store)
}

// Query runs a critical section that produces a value.
func Query[T any](ctx context.Context, g *Guard, fn func(ctx context.Context, store repository.Store) (T, error)) (T, error) {
	var out T
	err := g.Do(ctx, func(ctx context.Context, store repository.Store) error {
		var err error
		out, err = fn(ctx, store)
		return err
	})
	return out, err
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
