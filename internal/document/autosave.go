package document

import (
	"sync"
	"time"
)

// Debouncer coalesces change notifications arriving within one window into a
// single persist call. The persist callback runs when the window elapses and
// must read current state itself, so text streamed in after the triggering
// edit is still captured.
type Debouncer struct {
	window  time.Duration
	persist func()

	mu      sync.Mutex
	timer   *time.Timer
	pending bool
	stopped bool
}

func NewDebouncer(window time.Duration, persist func()) *Debouncer {
	return &Debouncer{window: window, persist: persist}
}

// Notify records a change and (re)starts the window.
func (d *Debouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.mu.Unlock()
	d.persist()
}

// Flush persists any pending change immediately, for use before navigating
// away or shutting down.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	wasPending := d.pending
	d.pending = false
	d.mu.Unlock()
	if wasPending {
		d.persist()
	}
}

// Stop cancels any pending persist without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = false
	if d.timer != nil {
		d.timer.Stop()
	}
}
