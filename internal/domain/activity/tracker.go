// Package activity records when each tab was last active.
//
// A tab with no record is treated as active now rather than idle since the
// epoch, so newly created tabs are not suspended before their first event.
package activity

import (
	"sync"
	"time"

	"github.com/GriffinCanCode/TabSuspender/internal/shared/types"
)

// Clock returns the current time
type Clock func() time.Time

// Tracker maps tab ids to their last-active timestamp.
// Safe for concurrent use; writes are last-writer-wins.
type Tracker struct {
	mu   sync.RWMutex
	seen map[types.TabID]time.Time
	now  Clock
}

// NewTracker creates a tracker. A nil clock uses time.Now.
func NewTracker(now Clock) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		seen: make(map[types.TabID]time.Time),
		now:  now,
	}
}

// MarkActive records now for id, replacing any earlier value
func (t *Tracker) MarkActive(id types.TabID) {
	ts := t.now()
	t.mu.Lock()
	t.seen[id] = ts
	t.mu.Unlock()
}

// IdleDuration returns how long id has been idle at now. Without a record it
// measures from fallback, and a zero fallback yields zero idle time.
func (t *Tracker) IdleDuration(id types.TabID, now, fallback time.Time) time.Duration {
	t.mu.RLock()
	last, ok := t.seen[id]
	t.mu.RUnlock()

	if !ok {
		if fallback.IsZero() {
			return 0
		}
		last = fallback
	}

	idle := now.Sub(last)
	if idle < 0 {
		return 0
	}
	return idle
}

// LastActive returns the recorded timestamp for id
func (t *Tracker) LastActive(id types.TabID) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ts, ok := t.seen[id]
	return ts, ok
}

// Forget drops the record for a destroyed tab
func (t *Tracker) Forget(id types.TabID) {
	t.mu.Lock()
	delete(t.seen, id)
	t.mu.Unlock()
}

// Len returns the number of tracked tabs
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.seen)
}

// Prune drops records for which live returns false and reports how many went.
// Scans use it to shed tabs whose close event was missed.
func (t *Tracker) Prune(live func(types.TabID) bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for id := range t.seen {
		if !live(id) {
			delete(t.seen, id)
			n++
		}
	}
	return n
}
