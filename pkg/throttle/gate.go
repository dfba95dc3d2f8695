package throttle

import (
	"sync"
	"time"
)

// Gate is a leading-edge throttle. The first Allow in a window returns
// true and closes the gate; subsequent calls return false until the
// window elapses and the gate reopens. A zero or negative window
// disables throttling entirely.
type Gate struct {
	mu sync.Mutex

	window time.Duration
	closed bool

	// Pending reopen, nil while the gate is open
	reopenTimer *time.Timer

	// Set by Stop; a stopped gate admits nothing
	stopped bool
}

// NewGate creates a gate with the given throttle window.
func NewGate(window time.Duration) *Gate {
	return &Gate{window: window}
}

// Allow reports whether the caller may fire now. A true result closes
// the gate for one window.
func (g *Gate) Allow() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return false
	}
	if g.window <= 0 {
		return true
	}
	if g.closed {
		return false
	}

	g.closed = true
	g.reopenTimer = time.AfterFunc(g.window, g.reopen)
	return true
}

// reopen is called when the window elapses.
func (g *Gate) reopen() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	g.closed = false
	g.reopenTimer = nil
}

// Open reports whether the next Allow would fire.
func (g *Gate) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return !g.stopped && !g.closed
}

// Window returns the configured throttle window.
func (g *Gate) Window() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.window
}

// Stop cancels any pending reopen and permanently closes the gate.
// Safe to call more than once.
func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.stopped {
		return
	}
	g.stopped = true
	g.closed = true

	if g.reopenTimer != nil {
		g.reopenTimer.Stop()
		g.reopenTimer = nil
	}
}
