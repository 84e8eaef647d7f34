package bridge

import (
	"sync"
	"time"
)

// Debouncer is a single-slot delayed-task scheduler. Submitting a new task
// cancels and replaces any pending one, so only the last submission within
// a quiet period ever fires.
// Params: fixed delay and one pending timer slot.
// Returns: debouncer instance.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

// NewDebouncer creates a single-slot debouncer.
// Params: delay quiet period before a pending task fires.
// Returns: debouncer instance.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Submit schedules fn after the quiet period, replacing any pending task.
// Params: fn deferred work item.
// Returns: none.
func (d *Debouncer) Submit(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels any pending task without running it.
// Params: none.
// Returns: none.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
