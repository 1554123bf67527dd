package settings_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/MrWong99/lastman/internal/resilience"
	"github.com/MrWong99/lastman/internal/settings"
)

func guardedConfig() resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Name:         "settings",
		MaxFailures:  2,
		ResetTimeout: time.Hour,
		Logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestGuarded(t *testing.T) {
	t.Parallel()
	exerciseStore(t, settings.NewGuarded(settings.NewMemStore(), guardedConfig()))
}

func TestGuarded_NotFoundDoesNotTrip(t *testing.T) {
	t.Parallel()
	g := settings.NewGuarded(settings.NewMemStore(), guardedConfig())
	ctx := context.Background()
	for range 5 {
		if _, err := g.Get(ctx, "lastman", "missing"); !errors.Is(err, settings.ErrNotFound) {
			t.Fatalf("Get: %v", err)
		}
	}
	if st := g.Breaker().State(); st != resilience.StateClosed {
		t.Errorf("breaker = %v, want closed", st)
	}
}

func TestGuarded_OpensOnBackendFailures(t *testing.T) {
	t.Parallel()
	boom := errors.New("connection refused")
	backend := &failingStore{err: boom}
	g := settings.NewGuarded(backend, guardedConfig())
	ctx := context.Background()

	for range 2 {
		if err := g.Set(ctx, "lastman", "npcBlacklist", "1"); !errors.Is(err, boom) {
			t.Fatalf("Set: %v", err)
		}
	}
	if err := g.Set(ctx, "lastman", "npcBlacklist", "1"); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("Set with open breaker = %v, want ErrCircuitOpen", err)
	}
	if _, err := g.List(ctx, "lastman"); !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("List with open breaker = %v, want ErrCircuitOpen", err)
	}
	if err := g.Ping(ctx); err != nil {
		t.Errorf("Ping bypasses the breaker, got %v", err)
	}
}
