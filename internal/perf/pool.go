package perf

// TimerPool is a grow-only pool of reusable timers.
//
// The backing slice is split in two regions: timers[:active] are handed out,
// timers[active:] are free. Release swaps the released timer to the boundary,
// so no separate free list is kept. The pool never shrinks.
//
// TimerPool is not safe for concurrent use.
type TimerPool struct {
	timers []*Timer
	active int
}

// NewTimerPool creates a pool with capacity timers preallocated.
func NewTimerPool(capacity int) *TimerPool {
	p := &TimerPool{timers: make([]*Timer, 0, max(capacity, 0))}
	for i := range capacity {
		p.timers = append(p.timers, &Timer{slot: i})
	}
	return p
}

// Acquire returns a reset timer, growing the pool by one when every timer is in use.
func (p *TimerPool) Acquire() *Timer {
	if p.active < len(p.timers) {
		t := p.timers[p.active]
		t.reset()
		t.slot = p.active
		p.active++
		return t
	}

	t := &Timer{slot: len(p.timers)}
	p.timers = append(p.timers, t)
	p.active++

	return t
}

// Release returns t to the free region. Releasing a timer that is not
// currently acquired from this pool is a no-op.
func (p *TimerPool) Release(t *Timer) {
	if t == nil || p.active == 0 {
		return
	}

	i := t.slot
	if i < 0 || i >= p.active || p.timers[i] != t {
		i = p.indexOf(t)
		if i < 0 {
			return
		}
	}

	last := p.active - 1
	p.timers[i], p.timers[last] = p.timers[last], p.timers[i]
	p.timers[i].slot = i
	p.timers[last].slot = last
	p.active--
}

// ReleaseAll marks every timer free. Timers are reset when next acquired.
func (p *TimerPool) ReleaseAll() {
	p.active = 0
}

// ActiveCount returns the number of acquired timers.
func (p *TimerPool) ActiveCount() int { return p.active }

// PoolSize returns the number of timers ever allocated by the pool.
func (p *TimerPool) PoolSize() int { return len(p.timers) }

// indexOf ищет таймер среди активных, если индекс слота устарел.
func (p *TimerPool) indexOf(t *Timer) int {
	for i := range p.active {
		if p.timers[i] == t {
			return i
		}
	}
	return -1
}
