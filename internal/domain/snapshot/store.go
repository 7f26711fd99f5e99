// Package snapshot persists the recovery data of suspended tabs.
//
// Records are keyed by "snapshot_" plus a stable hash of the original
// location. The location itself, never the key, is the navigation target,
// so a hash collision can only surface a wrong scroll offset.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/GriffinCanCode/TabSuspender/internal/shared/utils"
	"github.com/GriffinCanCode/TabSuspender/internal/storage/kv"
	"go.uber.org/zap"
)

// KeyPrefix prefixes every snapshot key
const KeyPrefix = "snapshot_"

// DefaultRetention is how long snapshots are kept
const DefaultRetention = 7 * 24 * time.Hour

// ScrollReader fetches the scroll offset of a tab's content
type ScrollReader interface {
	ScrollPosition(ctx context.Context, id types.TabID) (types.ScrollOffset, error)
}

// Store saves, loads and expires snapshots
type Store struct {
	kv            kv.Store
	scroll        ScrollReader
	scrollTimeout time.Duration
	hasher        *utils.Hasher
	now           func() time.Time
	metrics       *monitoring.Metrics
	logger        *zap.Logger
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics records saves and purges
func WithMetrics(m *monitoring.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a snapshot store
func NewStore(store kv.Store, scroll ScrollReader, scrollTimeout time.Duration, opts ...Option) *Store {
	s := &Store{
		kv:            store,
		scroll:        scroll,
		scrollTimeout: scrollTimeout,
		hasher:        utils.DefaultHasher(),
		now:           time.Now,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the storage key for location
func (s *Store) Key(location string) string {
	return KeyPrefix + s.hasher.LocationKey(location)
}

// Save captures tab and persists it, replacing any snapshot for the same
// location. A failed scroll round trip records the origin offset.
func (s *Store) Save(ctx context.Context, tab types.Tab) (types.Snapshot, error) {
	snap := types.Snapshot{
		URL:            tab.URL,
		Title:          tab.Title,
		FavIconURL:     tab.FavIconURL,
		ScrollPosition: s.readScroll(ctx, tab.ID),
		CapturedAt:     s.now(),
	}

	if err := kv.SetJSON(ctx, s.kv, s.Key(tab.URL), snap); err != nil {
		return types.Snapshot{}, fmt.Errorf("save snapshot for tab %d: %w", tab.ID, err)
	}
	s.metrics.IncSnapshotsSaved()
	return snap, nil
}

func (s *Store) readScroll(ctx context.Context, id types.TabID) types.ScrollOffset {
	if s.scroll == nil {
		return types.ScrollOffset{}
	}
	ctx, cancel := context.WithTimeout(ctx, s.scrollTimeout)
	defer cancel()

	offset, err := s.scroll.ScrollPosition(ctx, id)
	if err != nil {
		s.logger.Debug("scroll position unavailable", zap.Int("tab_id", int(id)), zap.Error(err))
		return types.ScrollOffset{}
	}
	return offset
}

// Load returns the snapshot for location. A missing snapshot is not an error.
func (s *Store) Load(ctx context.Context, location string) (types.Snapshot, bool, error) {
	var snap types.Snapshot
	err := kv.GetJSON(ctx, s.kv, s.Key(location), &snap)
	if errors.Is(err, kv.ErrNotFound) {
		return types.Snapshot{}, false, nil
	}
	if err != nil {
		return types.Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, true, nil
}

// PurgeOlderThan removes snapshots captured more than maxAge ago, and any
// that cannot be decoded. Storage failures are logged, never returned.
func (s *Store) PurgeOlderThan(ctx context.Context, maxAge time.Duration) int {
	keys, err := s.kv.Keys(ctx, KeyPrefix)
	if err != nil {
		s.logger.Warn("snapshot purge skipped", zap.Error(err))
		return 0
	}

	now := s.now()
	var expired []string
	for _, key := range keys {
		if !strings.HasPrefix(key, KeyPrefix) {
			continue
		}
		var snap types.Snapshot
		err := kv.GetJSON(ctx, s.kv, key, &snap)
		switch {
		case errors.Is(err, kv.ErrNotFound):
			continue
		case errors.Is(err, kv.ErrDecode):
			expired = append(expired, key)
		case err != nil:
			s.logger.Warn("snapshot read failed during purge", zap.String("key", key), zap.Error(err))
		case snap.Age(now) > maxAge:
			expired = append(expired, key)
		}
	}

	if len(expired) == 0 {
		return 0
	}
	if err := s.kv.Delete(ctx, expired...); err != nil {
		s.logger.Warn("snapshot purge delete failed", zap.Int("count", len(expired)), zap.Error(err))
		return 0
	}

	s.metrics.AddSnapshotsPurged(len(expired))
	s.logger.Info("purged expired snapshots", zap.Int("count", len(expired)))
	return len(expired)
}
