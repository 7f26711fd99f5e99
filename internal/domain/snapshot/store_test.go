package snapshot

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/GriffinCanCode/TabSuspender/internal/storage/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

type scrollFunc func(ctx context.Context, id types.TabID) (types.ScrollOffset, error)

func (f scrollFunc) ScrollPosition(ctx context.Context, id types.TabID) (types.ScrollOffset, error) {
	return f(ctx, id)
}

func fixedScroll(x, y float64) ScrollReader {
	return scrollFunc(func(context.Context, types.TabID) (types.ScrollOffset, error) {
		return types.ScrollOffset{X: x, Y: y}, nil
	})
}

func newKV(t *testing.T) kv.Store {
	t.Helper()
	store, err := kv.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func sampleTab() types.Tab {
	return types.Tab{
		ID:         4,
		URL:        "https://example.com/article",
		Title:      "An article",
		FavIconURL: "https://example.com/favicon.ico",
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newKV(t), fixedScroll(0, 1200), time.Second, WithClock(func() time.Time { return epoch }))

	saved, err := store.Save(ctx, sampleTab())
	require.NoError(t, err)
	assert.Equal(t, types.ScrollOffset{Y: 1200}, saved.ScrollPosition)

	got, ok, err := store.Load(ctx, "https://example.com/article")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, "https://example.com/article", got.URL)
	assert.Equal(t, "An article", got.Title)
	assert.Equal(t, "https://example.com/favicon.ico", got.FavIconURL)
	assert.Equal(t, types.ScrollOffset{Y: 1200}, got.ScrollPosition)
	assert.True(t, epoch.Equal(got.CapturedAt))
}

func TestSaveWithUnreachableContent(t *testing.T) {
	ctx := context.Background()
	failing := scrollFunc(func(context.Context, types.TabID) (types.ScrollOffset, error) {
		return types.ScrollOffset{}, fmt.Errorf("tab 4: %w", types.ErrUnreachable)
	})
	store := NewStore(newKV(t), failing, time.Second)

	snap, err := store.Save(ctx, sampleTab())
	require.NoError(t, err)
	assert.True(t, snap.ScrollPosition.IsZero())

	got, ok, err := store.Load(ctx, sampleTab().URL)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, got.ScrollPosition.IsZero())
}

func TestSaveScrollTimeout(t *testing.T) {
	hang := scrollFunc(func(ctx context.Context, _ types.TabID) (types.ScrollOffset, error) {
		<-ctx.Done()
		return types.ScrollOffset{}, ctx.Err()
	})
	store := NewStore(newKV(t), hang, 10*time.Millisecond)

	snap, err := store.Save(context.Background(), sampleTab())
	require.NoError(t, err)
	assert.True(t, snap.ScrollPosition.IsZero())
}

func TestSaveOverwritesSameLocation(t *testing.T) {
	ctx := context.Background()
	backing := newKV(t)
	store := NewStore(backing, nil, time.Second)

	tab := sampleTab()
	_, err := store.Save(ctx, tab)
	require.NoError(t, err)
	tab.Title = "Updated"
	_, err = store.Save(ctx, tab)
	require.NoError(t, err)

	keys, err := backing.Keys(ctx, KeyPrefix)
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	got, _, err := store.Load(ctx, tab.URL)
	require.NoError(t, err)
	assert.Equal(t, "Updated", got.Title)
}

func TestLoadMissing(t *testing.T) {
	store := NewStore(newKV(t), nil, time.Second)

	_, ok, err := store.Load(context.Background(), "https://nowhere.example")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKeyIsStable(t *testing.T) {
	a := NewStore(nil, nil, time.Second)
	b := NewStore(nil, nil, time.Second)

	assert.Equal(t, a.Key("https://example.com"), b.Key("https://example.com"))
	assert.Regexp(t, `^snapshot_[0-9a-f]{16}$`, a.Key("https://example.com"))
}

func TestPurgeOlderThan(t *testing.T) {
	ctx := context.Background()
	backing := newKV(t)
	now := epoch
	store := NewStore(backing, nil, time.Second, WithClock(func() time.Time { return now }))

	old := sampleTab()
	old.URL = "https://old.example"
	_, err := store.Save(ctx, old)
	require.NoError(t, err)

	now = epoch.Add(6 * 24 * time.Hour)
	_, err = store.Save(ctx, sampleTab())
	require.NoError(t, err)

	require.NoError(t, backing.Set(ctx, KeyPrefix+"garbage", []byte("not json")))
	require.NoError(t, backing.Set(ctx, "settings", []byte("{}")))

	now = epoch.Add(8 * 24 * time.Hour)
	removed := store.PurgeOlderThan(ctx, DefaultRetention)
	assert.Equal(t, 2, removed)

	_, ok, err := store.Load(ctx, "https://old.example")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = store.Load(ctx, sampleTab().URL)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = backing.Get(ctx, "settings")
	assert.NoError(t, err, "non-snapshot keys are untouched")
}

type downStore struct{ kv.Store }

func (downStore) Keys(context.Context, string) ([]string, error) {
	return nil, errors.New("store down")
}

func TestPurgeWithStoreDown(t *testing.T) {
	store := NewStore(downStore{}, nil, time.Second)

	assert.NotPanics(t, func() {
		assert.Zero(t, store.PurgeOlderThan(context.Background(), time.Hour))
	})
}
