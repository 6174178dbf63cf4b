package stats

import "time"

// RateCounter counts events per wall-clock second and keeps the totals of
// the last N completed seconds. The counter advances lazily: whenever it is
// touched in a new second the finished second is pushed into the history,
// and seconds that saw no events are recorded as zero.
type RateCounter struct {
	history []int64
	pos     int // next write position in history
	filled  int
	current int64
	second  int64 // unix second of current; 0 until first use
}

// NewRateCounter creates a counter remembering the last history seconds.
func NewRateCounter(history int) *RateCounter {
	return &RateCounter{history: make([]int64, max(history, 1))}
}

// Inc counts one event at now.
func (r *RateCounter) Inc(now time.Time) {
	r.Advance(now)
	r.current++
}

// Advance moves the counter to the second containing now. Clocks going
// backwards are ignored.
func (r *RateCounter) Advance(now time.Time) {
	sec := now.Unix()
	if r.second == 0 {
		r.second = sec
		return
	}
	if sec <= r.second {
		return
	}

	r.push(r.current)
	gap := sec - r.second - 1
	for i := int64(0); i < gap && i < int64(len(r.history)); i++ {
		r.push(0)
	}

	r.current = 0
	r.second = sec
}

// Current returns the number of events in the second in progress.
func (r *RateCounter) Current() int64 { return r.current }

// Last returns the total of the most recent completed second.
func (r *RateCounter) Last() int64 {
	if r.filled == 0 {
		return 0
	}
	i := (r.pos - 1 + len(r.history)) % len(r.history)
	return r.history[i]
}

// Average returns the mean per-second rate over the recorded history.
func (r *RateCounter) Average() float64 {
	if r.filled == 0 {
		return 0
	}

	var sum int64
	for _, v := range r.History() {
		sum += v
	}

	return float64(sum) / float64(r.filled)
}

// History returns completed seconds, oldest first.
func (r *RateCounter) History() []int64 {
	out := make([]int64, 0, r.filled)
	start := (r.pos - r.filled + len(r.history)) % len(r.history)
	for i := range r.filled {
		out = append(out, r.history[(start+i)%len(r.history)])
	}
	return out
}

// Reset drops the history and the current second.
func (r *RateCounter) Reset() {
	clear(r.history)
	r.pos = 0
	r.filled = 0
	r.current = 0
	r.second = 0
}

func (r *RateCounter) push(v int64) {
	r.history[r.pos] = v
	r.pos = (r.pos + 1) % len(r.history)
	if r.filled < len(r.history) {
		r.filled++
	}
}
