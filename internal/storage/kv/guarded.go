package kv

import (
	"context"
	"errors"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/resilience"
	"go.uber.org/zap"
)

// Guarded wraps a Store with a circuit breaker so a failing backend fails fast.
// ErrNotFound and context cancellation do not count as backend failures.
type Guarded struct {
	inner   Store
	breaker *resilience.Breaker
}

// NewGuarded wraps inner. Three consecutive backend failures open the circuit
// for cooldown.
func NewGuarded(inner Store, cooldown time.Duration, logger *zap.Logger) *Guarded {
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker := resilience.New("kv", resilience.Settings{
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrNotFound) ||
				errors.Is(err, context.Canceled) ||
				errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("store circuit changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
	return &Guarded{inner: inner, breaker: breaker}
}

// Name is the breaker name shown on the health endpoint
func (g *Guarded) Name() string {
	return g.breaker.Name()
}

// State reports the breaker state
func (g *Guarded) State() resilience.State {
	return g.breaker.State()
}

// Get implements Store
func (g *Guarded) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := g.breaker.Do(func() error {
		var err error
		value, err = g.inner.Get(ctx, key)
		return err
	})
	return value, err
}

// Set implements Store
func (g *Guarded) Set(ctx context.Context, key string, value []byte) error {
	return g.breaker.Do(func() error {
		return g.inner.Set(ctx, key, value)
	})
}

// Delete implements Store
func (g *Guarded) Delete(ctx context.Context, keys ...string) error {
	return g.breaker.Do(func() error {
		return g.inner.Delete(ctx, keys...)
	})
}

// Keys implements Store
func (g *Guarded) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := g.breaker.Do(func() error {
		var err error
		keys, err = g.inner.Keys(ctx, prefix)
		return err
	})
	return keys, err
}
