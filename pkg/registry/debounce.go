package registry

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of events into a single call made after a
// quiet period. The most recent callback wins.
type Debouncer struct {
	interval time.Duration

	mu       sync.Mutex
	timer    *time.Timer
	callback func()
	stopped  bool
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{interval: interval}
}

// Trigger schedules callback to run once no further Trigger call has been
// made for the debounce interval. Triggers after Stop are ignored.
func (d *Debouncer) Trigger(callback func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.callback = callback
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.interval, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	cb := d.callback
	d.callback = nil
	stopped := d.stopped
	d.mu.Unlock()

	if cb != nil && !stopped {
		cb()
	}
}

// Stop cancels any pending callback. It is safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.callback = nil
}
