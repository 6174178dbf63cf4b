// Package stats collects engine self-instrumentation: counters, moving
// averages and per-second rates. Nothing in this package feeds back into
// containment results.
package stats

// MovingAverage is a fixed-window average backed by a ring buffer.
// Add and Value are O(1): a running sum is kept and the oldest sample is
// overwritten once the window is full.
type MovingAverage struct {
	samples []float64
	next    int
	count   int
	sum     float64
}

// NewMovingAverage creates an average over the last window samples (at least one).
func NewMovingAverage(window int) *MovingAverage {
	return &MovingAverage{samples: make([]float64, max(window, 1))}
}

// Add records a sample, evicting the oldest one when the window is full.
func (m *MovingAverage) Add(v float64) {
	if m.count == len(m.samples) {
		m.sum -= m.samples[m.next]
	} else {
		m.count++
	}

	m.samples[m.next] = v
	m.sum += v
	m.next = (m.next + 1) % len(m.samples)
}

// Value returns the average of the samples in the window, or 0 when empty.
func (m *MovingAverage) Value() float64 {
	if m.count == 0 {
		return 0
	}
	return m.sum / float64(m.count)
}

// Count returns the number of samples currently in the window.
func (m *MovingAverage) Count() int { return m.count }

// Window returns the window size.
func (m *MovingAverage) Window() int { return len(m.samples) }

// Reset drops every sample.
func (m *MovingAverage) Reset() {
	clear(m.samples)
	m.next = 0
	m.count = 0
	m.sum = 0
}
