package fetcher

import (
	"sync"
	"time"
)

// Debouncer delays propagation of a rapidly-changing value until it has been
// quiet for a full window. Every Update resets the timer; only the most
// recent value is ever emitted.
//
// The initial value of a stream is propagated immediately via Prime: a fresh
// session should not wait a full window before its first request. Subsequent
// edits always wait out the window.
type Debouncer[T any] struct {
	window time.Duration
	emit   func(T)

	mu     sync.Mutex
	timer  *time.Timer
	latest T
	closed bool
}

// NewDebouncer creates a debouncer that calls emit with the settled value.
func NewDebouncer[T any](window time.Duration, emit func(T)) *Debouncer[T] {
	return &Debouncer[T]{window: window, emit: emit}
}

// Prime emits the value synchronously, bypassing the quiet window. Meant for
// the first value of a stream.
func (d *Debouncer[T]) Prime(v T) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.stopTimerLocked()
	d.latest = v
	d.mu.Unlock()

	d.emit(v)
}

// Update records a new value and restarts the quiet window.
func (d *Debouncer[T]) Update(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.latest = v
	d.stopTimerLocked()
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer[T]) fire() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	v := d.latest
	d.timer = nil
	d.mu.Unlock()

	d.emit(v)
}

// Close cancels any pending emission. Further updates are dropped.
func (d *Debouncer[T]) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.stopTimerLocked()
}

func (d *Debouncer[T]) stopTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
