// Package usage keeps the running suspension counters and the memory
// savings estimate read by display surfaces.
package usage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"github.com/GriffinCanCode/TabSuspender/internal/storage/kv"
	"go.uber.org/zap"
)

// CountersKey is the storage key of the counters blob
const CountersKey = "memoryStats"

// DefaultMemoryPerTab is the fixed per-suspension estimate
const DefaultMemoryPerTab uint64 = 50 * 1024 * 1024

// MemoryReporter reports host-wide memory. Optional.
type MemoryReporter interface {
	MemoryInfo(ctx context.Context) (types.MemoryInfo, error)
}

// Accountant owns the persisted counters. Mutations are serialized so
// concurrent suspensions never lose an increment.
type Accountant struct {
	store    kv.Store
	reporter MemoryReporter
	perTab   uint64
	now      func() time.Time
	logger   *zap.Logger

	mu sync.Mutex
}

// NewAccountant creates an accountant. reporter may be nil.
func NewAccountant(store kv.Store, reporter MemoryReporter, perTab uint64, logger *zap.Logger) *Accountant {
	if perTab == 0 {
		perTab = DefaultMemoryPerTab
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accountant{
		store:    store,
		reporter: reporter,
		perTab:   perTab,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock overrides time.Now
func (a *Accountant) SetClock(now func() time.Time) {
	a.now = now
}

// MemoryPerTab returns the per-suspension estimate
func (a *Accountant) MemoryPerTab() uint64 {
	return a.perTab
}

// load reads the counters, creating zero counters when absent or unreadable.
// Must hold mu.
func (a *Accountant) load(ctx context.Context) (types.UsageCounters, error) {
	var c types.UsageCounters
	err := kv.GetJSON(ctx, a.store, CountersKey, &c)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, kv.ErrNotFound):
		return types.UsageCounters{LastUpdated: a.now()}, nil
	case errors.Is(err, kv.ErrDecode):
		a.logger.Warn("usage counters malformed, starting from zero", zap.Error(err))
		return types.UsageCounters{LastUpdated: a.now()}, nil
	default:
		return types.UsageCounters{}, fmt.Errorf("load usage counters: %w", err)
	}
}

// Counters returns the persisted counters
func (a *Accountant) Counters(ctx context.Context) (types.UsageCounters, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.load(ctx)
}

// RecordSuspension adds one suspension and one unit of estimated savings
func (a *Accountant) RecordSuspension(ctx context.Context) (types.UsageCounters, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.load(ctx)
	if err != nil {
		return types.UsageCounters{}, err
	}
	c.TotalSuspensions++
	c.EstimatedMemorySaved += a.perTab
	c.LastUpdated = a.now()

	if err := kv.SetJSON(ctx, a.store, CountersKey, c); err != nil {
		return types.UsageCounters{}, fmt.Errorf("save usage counters: %w", err)
	}
	return c, nil
}

// CurrentStats merges the counters with a point-in-time estimate for
// liveSuspended tabs and, when available, host memory totals.
func (a *Accountant) CurrentStats(ctx context.Context, liveSuspended int) (types.MemoryStats, error) {
	counters, err := a.Counters(ctx)
	if err != nil {
		return types.MemoryStats{}, err
	}
	if liveSuspended < 0 {
		liveSuspended = 0
	}

	stats := types.MemoryStats{
		UsageCounters:           counters,
		CurrentSuspendedTabs:    liveSuspended,
		EstimatedCurrentSavings: uint64(liveSuspended) * a.perTab,
	}

	if a.reporter == nil {
		return stats, nil
	}
	info, err := a.reporter.MemoryInfo(ctx)
	if err != nil || info.Capacity == 0 {
		a.logger.Debug("host memory unavailable", zap.Error(err))
		return stats, nil
	}

	total := info.Capacity
	available := info.AvailableCapacity
	percent := float64(total-min(available, total)) / float64(total) * 100
	stats.TotalMemory = &total
	stats.AvailableMemory = &available
	stats.MemoryUsagePercent = &percent
	return stats, nil
}

// Reset zeroes the counters and keeps lastUpdated
func (a *Accountant) Reset(ctx context.Context) (types.UsageCounters, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, err := a.load(ctx)
	if err != nil {
		return types.UsageCounters{}, err
	}
	reset := types.UsageCounters{LastUpdated: c.LastUpdated}
	if err := kv.SetJSON(ctx, a.store, CountersKey, reset); err != nil {
		return types.UsageCounters{}, fmt.Errorf("save usage counters: %w", err)
	}
	a.logger.Info("usage counters reset", zap.Int64("previous_suspensions", c.TotalSuspensions))
	return reset, nil
}
