package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/resilience"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	calls int
	err   error
}

func (f *failingStore) Get(context.Context, string) ([]byte, error) {
	f.calls++
	return nil, f.err
}

func (f *failingStore) Set(context.Context, string, []byte) error {
	f.calls++
	return f.err
}

func (f *failingStore) Delete(context.Context, ...string) error {
	f.calls++
	return f.err
}

func (f *failingStore) Keys(context.Context, string) ([]string, error) {
	f.calls++
	return nil, f.err
}

func TestGuardedPassesThrough(t *testing.T) {
	ctx := context.Background()
	guarded := NewGuarded(newTestStore(t), time.Minute, nil)

	require.NoError(t, guarded.Set(ctx, "k", []byte("v")))
	value, err := guarded.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(value))

	keys, err := guarded.Keys(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"k"}, keys)

	require.NoError(t, guarded.Delete(ctx, "k"))
}

func TestGuardedNotFoundDoesNotTrip(t *testing.T) {
	ctx := context.Background()
	guarded := NewGuarded(newTestStore(t), time.Minute, nil)

	for i := 0; i < 10; i++ {
		_, err := guarded.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	}
	assert.Equal(t, resilience.StateClosed, guarded.State())
}

func TestGuardedOpensOnBackendFailure(t *testing.T) {
	ctx := context.Background()
	backend := &failingStore{err: errors.New("disk gone")}
	guarded := NewGuarded(backend, time.Minute, nil)

	for i := 0; i < 3; i++ {
		assert.Error(t, guarded.Set(ctx, "k", nil))
	}
	require.Equal(t, resilience.StateOpen, guarded.State())

	_, err := guarded.Get(ctx, "k")
	assert.ErrorIs(t, err, resilience.ErrCircuitOpen)
	assert.Equal(t, 3, backend.calls)
}
