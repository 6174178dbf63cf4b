package stats

import (
	"fmt"
	"strings"
	"time"
)

// Default sizes used when Options leaves them zero.
const (
	DefaultWindow      = 100
	DefaultRateHistory = 60
)

// Options configures a Collector.
type Options struct {
	Window      int              // moving average window, samples
	RateHistory int              // per-second history length, seconds
	Clock       func() time.Time // defaults to time.Now
}

// Collector aggregates engine counters, latency averages and throughput.
//
// Recording is best effort: a nil *Collector ignores every call, and a panic
// inside a recording method is swallowed and counted in Metrics.Dropped.
// Collector is not safe for concurrent use.
type Collector struct {
	clock func() time.Time

	queries        int64
	checks         int64
	zonesCreated   int64
	zonesRemoved   int64
	zonesUpdated   int64
	enters         int64
	exits          int64
	insides        int64
	cacheHits      int64
	cacheMisses    int64
	movementChecks int64
	movementSkips  int64
	verifyMisses   int64
	dropped        int64

	queryLatency  *MovingAverage
	checkLatency  *MovingAverage
	updateLatency *MovingAverage

	qps *RateCounter
	cps *RateCounter

	startedAt time.Time
}

// NewCollector creates a collector.
func NewCollector(opts Options) *Collector {
	if opts.Window <= 0 {
		opts.Window = DefaultWindow
	}
	if opts.RateHistory <= 0 {
		opts.RateHistory = DefaultRateHistory
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	return &Collector{
		clock:         opts.Clock,
		queryLatency:  NewMovingAverage(opts.Window),
		checkLatency:  NewMovingAverage(opts.Window),
		updateLatency: NewMovingAverage(opts.Window),
		qps:           NewRateCounter(opts.RateHistory),
		cps:           NewRateCounter(opts.RateHistory),
		startedAt:     opts.Clock(),
	}
}

// absorb подавляет панику при записи метрики.
func (c *Collector) absorb() {
	if r := recover(); r != nil {
		c.dropped++
	}
}

// RecordQuery counts one index query that took d.
func (c *Collector) RecordQuery(d time.Duration) {
	if c == nil {
		return
	}
	defer c.absorb()

	c.queries++
	c.queryLatency.Add(micros(d))
	c.qps.Inc(c.clock())
}

// RecordCheck counts one containment check that took d, skipped or not.
func (c *Collector) RecordCheck(d time.Duration) {
	if c == nil {
		return
	}
	defer c.absorb()

	c.checks++
	c.checkLatency.Add(micros(d))
	c.cps.Inc(c.clock())
}

// RecordUpdate records the duration of an index rebuild.
func (c *Collector) RecordUpdate(d time.Duration) {
	if c == nil {
		return
	}
	defer c.absorb()

	c.updateLatency.Add(micros(d))
}

// RecordZoneCreated counts a zone registration.
func (c *Collector) RecordZoneCreated() {
	if c == nil {
		return
	}
	c.zonesCreated++
}

// RecordZoneRemoved counts a zone removal.
func (c *Collector) RecordZoneRemoved() {
	if c == nil {
		return
	}
	c.zonesRemoved++
}

// RecordZoneUpdated counts a zone whose definition was replaced.
func (c *Collector) RecordZoneUpdated() {
	if c == nil {
		return
	}
	c.zonesUpdated++
}

// RecordEvents counts emitted transition events by kind.
func (c *Collector) RecordEvents(enters, exits, insides int) {
	if c == nil {
		return
	}
	c.enters += int64(enters)
	c.exits += int64(exits)
	c.insides += int64(insides)
}

// RecordCache counts a query cache lookup.
func (c *Collector) RecordCache(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.cacheHits++
	} else {
		c.cacheMisses++
	}
}

// RecordMovement counts one movement-delta evaluation and whether it skipped the query.
func (c *Collector) RecordMovement(skipped bool) {
	if c == nil {
		return
	}
	c.movementChecks++
	if skipped {
		c.movementSkips++
	}
}

// RecordVerifyMismatch counts an index result rejected by exact verification.
func (c *Collector) RecordVerifyMismatch() {
	if c == nil {
		return
	}
	c.verifyMisses++
}

// Reset zeroes every counter, average and history.
func (c *Collector) Reset() {
	if c == nil {
		return
	}

	clock := c.clock
	qa, ca, ua := c.queryLatency, c.checkLatency, c.updateLatency
	qps, cps := c.qps, c.cps

	*c = Collector{
		clock:         clock,
		queryLatency:  qa,
		checkLatency:  ca,
		updateLatency: ua,
		qps:           qps,
		cps:           cps,
		startedAt:     clock(),
	}

	qa.Reset()
	ca.Reset()
	ua.Reset()
	qps.Reset()
	cps.Reset()
}

// Metrics is a read-only snapshot of a Collector.
type Metrics struct {
	Queries        int64 `json:"queries"`
	Checks         int64 `json:"checks"`
	ZonesCreated   int64 `json:"zones_created"`
	ZonesRemoved   int64 `json:"zones_removed"`
	ZonesUpdated   int64 `json:"zones_updated"`
	Enters         int64 `json:"enter_events"`
	Exits          int64 `json:"exit_events"`
	Insides        int64 `json:"inside_events"`
	CacheHits      int64 `json:"cache_hits"`
	CacheMisses    int64 `json:"cache_misses"`
	MovementChecks int64 `json:"movement_checks"`
	MovementSkips  int64 `json:"movement_skips"`
	VerifyMisses   int64 `json:"verify_mismatches"`
	Dropped        int64 `json:"dropped_records"`

	CacheHitRate     float64 `json:"cache_hit_rate"`
	MovementSkipRate float64 `json:"movement_skip_rate"`

	QueryLatencyUs  float64 `json:"query_latency_us"`
	CheckLatencyUs  float64 `json:"check_latency_us"`
	UpdateLatencyUs float64 `json:"update_latency_us"`

	QPS        int64   `json:"qps"`
	CPS        int64   `json:"cps"`
	AvgQPS     float64 `json:"avg_qps"`
	AvgCPS     float64 `json:"avg_cps"`
	QPSHistory []int64 `json:"qps_history"`
	CPSHistory []int64 `json:"cps_history"`

	Uptime time.Duration `json:"uptime_ns"`
}

// Metrics returns a snapshot. The per-second counters are advanced to the
// current second first so idle periods read as zero.
func (c *Collector) Metrics() Metrics {
	if c == nil {
		return Metrics{}
	}

	now := c.clock()
	c.qps.Advance(now)
	c.cps.Advance(now)

	return Metrics{
		Queries:          c.queries,
		Checks:           c.checks,
		ZonesCreated:     c.zonesCreated,
		ZonesRemoved:     c.zonesRemoved,
		ZonesUpdated:     c.zonesUpdated,
		Enters:           c.enters,
		Exits:            c.exits,
		Insides:          c.insides,
		CacheHits:        c.cacheHits,
		CacheMisses:      c.cacheMisses,
		MovementChecks:   c.movementChecks,
		MovementSkips:    c.movementSkips,
		VerifyMisses:     c.verifyMisses,
		Dropped:          c.dropped,
		CacheHitRate:     ratio(c.cacheHits, c.cacheHits+c.cacheMisses),
		MovementSkipRate: ratio(c.movementSkips, c.movementChecks),
		QueryLatencyUs:   c.queryLatency.Value(),
		CheckLatencyUs:   c.checkLatency.Value(),
		UpdateLatencyUs:  c.updateLatency.Value(),
		QPS:              c.qps.Last(),
		CPS:              c.cps.Last(),
		AvgQPS:           c.qps.Average(),
		AvgCPS:           c.cps.Average(),
		QPSHistory:       c.qps.History(),
		CPSHistory:       c.cps.History(),
		Uptime:           now.Sub(c.startedAt),
	}
}

// Report renders the snapshot as a multi-line, human-readable block
// suitable for a console command or a log line.
func (c *Collector) Report() string {
	m := c.Metrics()

	var b strings.Builder
	fmt.Fprintf(&b, "uptime: %s\n", m.Uptime.Truncate(time.Second))
	fmt.Fprintf(&b, "queries: %d (%.1f qps avg, %d last second)\n", m.Queries, m.AvgQPS, m.QPS)
	fmt.Fprintf(&b, "checks: %d (%.1f cps avg, %d last second)\n", m.Checks, m.AvgCPS, m.CPS)
	fmt.Fprintf(&b, "latency: query %.2fus, check %.2fus, update %.2fus\n",
		m.QueryLatencyUs, m.CheckLatencyUs, m.UpdateLatencyUs)
	fmt.Fprintf(&b, "zones: +%d -%d ~%d\n", m.ZonesCreated, m.ZonesRemoved, m.ZonesUpdated)
	fmt.Fprintf(&b, "events: enter %d, exit %d, inside %d\n", m.Enters, m.Exits, m.Insides)
	fmt.Fprintf(&b, "cache: %d hits, %d misses (%.1f%%)\n", m.CacheHits, m.CacheMisses, m.CacheHitRate*100)
	fmt.Fprintf(&b, "movement: %d checks, %d skips (%.1f%%)\n", m.MovementChecks, m.MovementSkips, m.MovementSkipRate*100)
	if m.VerifyMisses > 0 || m.Dropped > 0 {
		fmt.Fprintf(&b, "anomalies: %d verify mismatches, %d dropped records\n", m.VerifyMisses, m.Dropped)
	}

	return b.String()
}

func micros(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func ratio(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
