package settings

import (
	"context"
	"errors"

	"github.com/MrWong99/lastman/internal/resilience"
)

// Guarded wraps a [Store] so that reads and writes go through a circuit
// breaker. [ErrNotFound] is an answer, not a failure, and never trips it.
// Ping and Close bypass the breaker so health checks see the backend
// itself.
type Guarded struct {
	Store
	cb *resilience.CircuitBreaker
}

var _ Store = (*Guarded)(nil)

// NewGuarded wraps s. cfg.IsFailure is replaced.
func NewGuarded(s Store, cfg resilience.CircuitBreakerConfig) *Guarded {
	cfg.IsFailure = func(err error) bool {
		return err != nil && !errors.Is(err, ErrNotFound) && !errors.Is(err, context.Canceled)
	}
	return &Guarded{Store: s, cb: resilience.NewCircuitBreaker(cfg)}
}

// Breaker returns the breaker guarding the store.
func (g *Guarded) Breaker() *resilience.CircuitBreaker { return g.cb }

// Get implements [Store.Get].
func (g *Guarded) Get(ctx context.Context, group, key string) (v string, err error) {
	err = g.cb.Execute(ctx, func(ctx context.Context) error {
		v, err = g.Store.Get(ctx, group, key)
		return err
	})
	return v, err
}

// Set implements [Store.Set].
func (g *Guarded) Set(ctx context.Context, group, key, value string) error {
	return g.cb.Execute(ctx, func(ctx context.Context) error {
		return g.Store.Set(ctx, group, key, value)
	})
}

// Unset implements [Store.Unset].
func (g *Guarded) Unset(ctx context.Context, group, key string) error {
	return g.cb.Execute(ctx, func(ctx context.Context) error {
		return g.Store.Unset(ctx, group, key)
	})
}

// List implements [Store.List].
func (g *Guarded) List(ctx context.Context, group string) (m map[string]string, err error) {
	err = g.cb.Execute(ctx, func(ctx context.Context) error {
		m, err = g.Store.List(ctx, group)
		return err
	})
	return m, err
}
