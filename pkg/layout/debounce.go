package layout

import (
	"sync"
	"time"
)

// Debouncer runs a function once a quiet period has elapsed with no further
// Schedule calls. Each Schedule cancels the pending run and restarts the
// wait, so at most one timer is pending at a time.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	fn    func()
	timer *time.Timer
	gen   uint64

	// running counts fired timers whose fn has not returned.
	running int
}

// NewDebouncer creates a debouncer that calls fn after delay of quiet.
func NewDebouncer(delay time.Duration, fn func()) *Debouncer {
	return &Debouncer{delay: delay, fn: fn}
}

// Schedule (re)starts the quiet period.
func (d *Debouncer) Schedule() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		// A Schedule or Stop after this timer fired supersedes it.
		stale := gen != d.gen
		if !stale {
			d.timer = nil
			d.running++
		}
		d.mu.Unlock()
		if stale {
			return
		}
		defer func() {
			d.mu.Lock()
			d.running--
			d.mu.Unlock()
		}()
		d.fn()
	})
}

// Pending reports whether a run is scheduled or has fired and not yet
// returned.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil || d.running > 0
}

// Stop cancels any pending run. It reports whether a run was cancelled or
// had already fired without returning. A run that already fired cannot be
// cancelled; fn must check for itself whether it is still wanted.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.gen++
	if d.timer == nil {
		return d.running > 0
	}
	d.timer.Stop()
	d.timer = nil
	return true
}
