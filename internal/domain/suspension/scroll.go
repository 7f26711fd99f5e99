package suspension

import (
	"context"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
	"go.uber.org/zap"
)

// scrollTask is a deferred scroll restore for one tab
type scrollTask struct {
	timer  *time.Timer
	cancel context.CancelFunc
}

// scheduleScroll replaces any pending task for id with a new one
func (c *Controller) scheduleScroll(id types.TabID, offset types.ScrollOffset, logger *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	task := &scrollTask{cancel: cancel}

	c.mu.Lock()
	defer c.mu.Unlock()

	if old := c.pending[id]; old != nil {
		c.stopTask(old)
	}

	c.tasks.Add(1)
	task.timer = time.AfterFunc(c.cfg.ScrollRestoreDelay, func() {
		defer c.tasks.Done()
		defer c.finishTask(id, task)

		if ctx.Err() != nil {
			return
		}
		rctx, rcancel := context.WithTimeout(ctx, c.cfg.ScrollTimeout)
		defer rcancel()

		if err := c.messenger.RestoreScroll(rctx, id, offset); err != nil {
			logger.Debug("scroll restore not delivered", zap.Error(err))
		}
	})
	c.pending[id] = task
}

// cancelScroll cancels the pending task for id, if any
func (c *Controller) cancelScroll(id types.TabID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if task := c.pending[id]; task != nil {
		c.stopTask(task)
		delete(c.pending, id)
	}
}

// cancelAllScrolls cancels every pending task. Used on shutdown.
func (c *Controller) cancelAllScrolls() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, task := range c.pending {
		c.stopTask(task)
		delete(c.pending, id)
	}
}

// stopTask cancels task. Must hold mu.
func (c *Controller) stopTask(task *scrollTask) {
	task.cancel()
	if task.timer.Stop() {
		// never fired, so its Done will not run
		c.tasks.Done()
	}
}

func (c *Controller) finishTask(id types.TabID, task *scrollTask) {
	task.cancel()
	c.mu.Lock()
	if c.pending[id] == task {
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

// PendingScrolls returns the number of scheduled scroll restores
func (c *Controller) PendingScrolls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
