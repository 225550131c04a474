package listing

import (
	"sync"
	"time"
)

// DefaultSearchDebounce is the pause after the last keystroke before a search fires.
const DefaultSearchDebounce = 300 * time.Millisecond

// Debouncer runs at most one pending task; scheduling a new one cancels the old.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given delay.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultSearchDebounce
	}
	return &Debouncer{delay: delay}
}

// Trigger schedules fn after the delay, replacing any pending task. It
// reports whether a pending task was cancelled before it ran.
func (d *Debouncer) Trigger(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	replaced := false
	if d.timer != nil {
		replaced = d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
	return replaced
}

// Stop cancels the pending task. It reports whether one was cancelled.
func (d *Debouncer) Stop() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil {
		return false
	}
	stopped := d.timer.Stop()
	d.timer = nil
	return stopped
}
