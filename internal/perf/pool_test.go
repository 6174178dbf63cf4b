package perf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerPoolGrowth(t *testing.T) {
	p := NewTimerPool(2)
	require.Equal(t, 2, p.PoolSize())
	require.Zero(t, p.ActiveCount())

	a := p.Acquire()
	b := p.Acquire()
	c := p.Acquire()
	assert.Equal(t, 3, p.ActiveCount())
	assert.Equal(t, 3, p.PoolSize(), "pool grows by one when exhausted")
	assert.NotSame(t, a, b)
	assert.NotSame(t, b, c)
}

func TestTimerPoolBalance(t *testing.T) {
	p := NewTimerPool(0)

	timers := make([]*Timer, 0, 8)
	for range 8 {
		timers = append(timers, p.Acquire())
	}
	highWater := p.PoolSize()

	// Освобождаем в произвольном порядке.
	for _, i := range []int{3, 0, 7, 5, 1, 2, 6, 4} {
		p.Release(timers[i])
	}

	assert.Zero(t, p.ActiveCount())
	assert.Equal(t, highWater, p.PoolSize())

	// Повторный цикл не растит пул.
	for range 8 {
		p.Acquire()
	}
	assert.Equal(t, highWater, p.PoolSize())
}

func TestTimerPoolReleaseSwapsToBoundary(t *testing.T) {
	p := NewTimerPool(0)
	a, b, c := p.Acquire(), p.Acquire(), p.Acquire()

	p.Release(a)
	assert.Equal(t, 2, p.ActiveCount())

	// a is now the first free timer and comes back on the next acquire.
	assert.Same(t, a, p.Acquire())

	p.Release(b)
	p.Release(c)
	p.Release(a)
	assert.Zero(t, p.ActiveCount())
}

func TestTimerPoolDoubleRelease(t *testing.T) {
	p := NewTimerPool(0)
	a := p.Acquire()
	b := p.Acquire()

	p.Release(a)
	p.Release(a)
	assert.Equal(t, 1, p.ActiveCount(), "second release of the same timer is ignored")

	p.Release(nil)
	p.Release(&Timer{})
	assert.Equal(t, 1, p.ActiveCount())

	p.Release(b)
	assert.Zero(t, p.ActiveCount())
}

func TestTimerPoolReleaseAll(t *testing.T) {
	p := NewTimerPool(0)
	for range 5 {
		p.Acquire().Start()
	}

	p.ReleaseAll()
	assert.Zero(t, p.ActiveCount())
	assert.Equal(t, 5, p.PoolSize())

	tm := p.Acquire()
	assert.False(t, tm.Running(), "reused timer is reset lazily")
	assert.Zero(t, tm.Elapsed())
}

func TestTimerMeasures(t *testing.T) {
	p := NewTimerPool(1)
	tm := p.Acquire()

	tm.Start()
	assert.True(t, tm.Running())
	time.Sleep(2 * time.Millisecond)
	d := tm.Stop()

	assert.GreaterOrEqual(t, d, 2*time.Millisecond)
	assert.Equal(t, d, tm.Stop(), "stop is idempotent")
	assert.Equal(t, d, tm.Elapsed())
	p.Release(tm)
}

func BenchmarkTimerPool_AcquireRelease(b *testing.B) {
	b.ReportAllocs()

	p := NewTimerPool(16)

	b.ResetTimer()
	for range b.N {
		tm := p.Acquire()
		tm.Start()
		tm.Stop()
		p.Release(tm)
	}
}
