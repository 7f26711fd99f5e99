package suspension

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Run drives periodic scans and snapshot purges until ctx is cancelled.
// Scans run off the timer goroutine so a slow scan never delays the next
// tick; the non-reentrant guard drops overlapping ticks. On return every
// pending scroll restore has been cancelled.
func (c *Controller) Run(ctx context.Context) error {
	scanTicker := time.NewTicker(c.cfg.ScanInterval)
	defer scanTicker.Stop()
	purgeTicker := time.NewTicker(c.cfg.PurgeInterval)
	defer purgeTicker.Stop()

	c.logger.Info("suspension controller started",
		zap.Duration("scan_interval", c.cfg.ScanInterval),
		zap.Duration("purge_interval", c.cfg.PurgeInterval),
		zap.Int("concurrency", c.cfg.Concurrency))

	var background sync.WaitGroup
	spawn := func(fn func()) {
		background.Add(1)
		go func() {
			defer background.Done()
			fn()
		}()
	}

	// Expired snapshots from a previous run are cleared right away
	spawn(func() { c.Purge(ctx) })

	for {
		select {
		case <-ctx.Done():
			background.Wait()
			c.cancelAllScrolls()
			c.tasks.Wait()
			c.logger.Info("suspension controller stopped")
			return nil

		case <-scanTicker.C:
			spawn(func() {
				_, err := c.Scan(ctx)
				switch {
				case err == nil, errors.Is(err, ErrScanInProgress):
				case errIsContext(err) && ctx.Err() != nil:
				default:
					c.logger.Warn("scheduled scan failed", zap.Error(err))
				}
			})

		case <-purgeTicker.C:
			spawn(func() { c.Purge(ctx) })
		}
	}
}

// Purge removes snapshots older than the retention window
func (c *Controller) Purge(ctx context.Context) int {
	return c.snapshots.PurgeOlderThan(ctx, c.cfg.Retention)
}
