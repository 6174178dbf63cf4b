// Package perf provides allocation-free timing handles for hot paths.
package perf

import "time"

// Timer measures a single interval. Timers are owned by a TimerPool and must
// not be used after they are released.
type Timer struct {
	start   time.Time
	elapsed time.Duration
	running bool
	slot    int // index in TimerPool.timers
}

// Start begins (or restarts) the measurement.
func (t *Timer) Start() {
	t.start = time.Now()
	t.elapsed = 0
	t.running = true
}

// Stop ends the measurement and returns the elapsed time.
// Stopping a stopped timer returns the previous result.
func (t *Timer) Stop() time.Duration {
	if t.running {
		t.elapsed = time.Since(t.start)
		t.running = false
	}
	return t.elapsed
}

// Elapsed returns the time since Start while running, or the measured
// interval after Stop.
func (t *Timer) Elapsed() time.Duration {
	if t.running {
		return time.Since(t.start)
	}
	return t.elapsed
}

// Running reports whether the timer was started and not yet stopped.
func (t *Timer) Running() bool { return t.running }

func (t *Timer) reset() {
	t.start = time.Time{}
	t.elapsed = 0
	t.running = false
}
