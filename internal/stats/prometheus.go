package stats

import "github.com/prometheus/client_golang/prometheus"

const namespace = "geozone"

type promMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(m *Metrics) float64
}

// PromCollector exposes Metrics snapshots as Prometheus metrics.
// Every scrape takes exactly one snapshot from source.
type PromCollector struct {
	source  func() Metrics
	metrics []promMetric
}

var _ prometheus.Collector = (*PromCollector)(nil)

// NewPromCollector creates a collector reading snapshots from source.
// source must be safe to call from the scrape goroutine.
func NewPromCollector(source func() Metrics) *PromCollector {
	counter := func(name, help string, v func(m *Metrics) float64) promMetric {
		return promMetric{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil),
			kind:  prometheus.CounterValue,
			value: v,
		}
	}
	gauge := func(name, help string, v func(m *Metrics) float64) promMetric {
		return promMetric{
			desc:  prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, nil, nil),
			kind:  prometheus.GaugeValue,
			value: v,
		}
	}

	return &PromCollector{
		source: source,
		metrics: []promMetric{
			counter("queries_total", "Spatial index queries.", func(m *Metrics) float64 { return float64(m.Queries) }),
			counter("checks_total", "Containment checks.", func(m *Metrics) float64 { return float64(m.Checks) }),
			counter("zones_created_total", "Zones registered.", func(m *Metrics) float64 { return float64(m.ZonesCreated) }),
			counter("zones_removed_total", "Zones removed.", func(m *Metrics) float64 { return float64(m.ZonesRemoved) }),
			counter("zones_updated_total", "Zones whose definition was replaced.", func(m *Metrics) float64 { return float64(m.ZonesUpdated) }),
			counter("enter_events_total", "Enter events emitted.", func(m *Metrics) float64 { return float64(m.Enters) }),
			counter("exit_events_total", "Exit events emitted.", func(m *Metrics) float64 { return float64(m.Exits) }),
			counter("inside_events_total", "Inside heartbeat events emitted.", func(m *Metrics) float64 { return float64(m.Insides) }),
			counter("cache_hits_total", "Query cache hits.", func(m *Metrics) float64 { return float64(m.CacheHits) }),
			counter("cache_misses_total", "Query cache misses.", func(m *Metrics) float64 { return float64(m.CacheMisses) }),
			counter("movement_checks_total", "Movement-delta evaluations.", func(m *Metrics) float64 { return float64(m.MovementChecks) }),
			counter("movement_skips_total", "Checks skipped by the movement delta.", func(m *Metrics) float64 { return float64(m.MovementSkips) }),
			counter("verify_mismatches_total", "Index results rejected by exact verification.", func(m *Metrics) float64 { return float64(m.VerifyMisses) }),
			gauge("query_latency_microseconds", "Moving average query latency.", func(m *Metrics) float64 { return m.QueryLatencyUs }),
			gauge("check_latency_microseconds", "Moving average check latency.", func(m *Metrics) float64 { return m.CheckLatencyUs }),
			gauge("update_latency_microseconds", "Moving average index rebuild latency.", func(m *Metrics) float64 { return m.UpdateLatencyUs }),
			gauge("queries_per_second", "Queries in the last completed second.", func(m *Metrics) float64 { return float64(m.QPS) }),
			gauge("checks_per_second", "Checks in the last completed second.", func(m *Metrics) float64 { return float64(m.CPS) }),
		},
	}
}

// Describe implements prometheus.Collector.
func (p *PromCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range p.metrics {
		ch <- m.desc
	}
}

// Collect implements prometheus.Collector.
func (p *PromCollector) Collect(ch chan<- prometheus.Metric) {
	snap := p.source()
	for _, m := range p.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(&snap))
	}
}
