// Package engine composes the zone registry, spatial index, containment
// tracker and stats into one facade safe for concurrent use.
package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/udisondev/geozone/internal/config"
	"github.com/udisondev/geozone/internal/geom"
	"github.com/udisondev/geozone/internal/perf"
	"github.com/udisondev/geozone/internal/stats"
	"github.com/udisondev/geozone/internal/tracker"
	"github.com/udisondev/geozone/internal/zone"
)

// Engine guards all geofencing state behind a single mutex. None of the
// underlying components are safe for concurrent use on their own.
type Engine struct {
	mu        sync.Mutex
	registry  *zone.Registry
	tracker   *tracker.Tracker
	scheduler *tracker.Scheduler
	stats     *stats.Collector
	logger    *slog.Logger
}

// New builds an engine from cfg. A nil logger means slog.Default().
func New(cfg config.Engine, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := zone.NewBackend(cfg.Backend, cfg.BackendOptions)
	if err != nil {
		return nil, fmt.Errorf("creating backend: %w", err)
	}

	st := stats.NewCollector(stats.Options{Window: cfg.StatsWindow, RateHistory: cfg.StatsRateHistory})
	idx := zone.NewIndex(backend, cfg.QueryCacheSize, st)
	reg := zone.NewRegistry(idx, zone.RegistryOptions{
		SimplifyTolerance: cfg.SimplifyTolerance,
		Stats:             st,
		Logger:            logger,
	})
	tr := tracker.New(reg.Querier(), tracker.Options{
		MovementEpsilon: cfg.MovementEpsilon,
		Verify:          cfg.Verify,
		Stats:           st,
		Timers:          perf.NewTimerPool(4),
		Logger:          logger,
	})

	logger.Info("engine created",
		"backend", backend.Name(),
		"query_cache", cfg.QueryCacheSize,
		"movement_epsilon", cfg.MovementEpsilon,
		"verify", cfg.Verify)

	return &Engine{
		registry:  reg,
		tracker:   tr,
		scheduler: tracker.NewScheduler(cfg.Schedule),
		stats:     st,
		logger:    logger,
	}, nil
}

// AddZone registers or replaces a zone. See zone.Registry.Add.
func (e *Engine) AddZone(id string, points []geom.Point, meta zone.Metadata) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Add(id, points, meta)
}

// RemoveZone unregisters a zone and reports whether it existed.
func (e *Engine) RemoveZone(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Remove(id)
}

// SyncZones makes the engine hold exactly defs.
func (e *Engine) SyncZones(defs []zone.Definition) (zone.SyncResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.registry.Sync(defs)
}

// ClearZones removes every zone. Tracked entities receive exits on their next check.
func (e *Engine) ClearZones() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.registry.Clear()
}

// Zone returns the definition of a registered zone.
func (e *Engine) Zone(id string) (zone.Definition, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Definition(id)
}

// Zones returns sorted ids of all registered zones.
func (e *Engine) Zones() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.List()
}

// Query returns ids of all zones containing (x, y), in unspecified order.
func (e *Engine) Query(x, y float64) []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	ids := e.registry.Querier().Query(x, y)
	e.stats.RecordQuery(time.Since(start))
	return ids
}

// Check updates containment of entityID at (x, y).
func (e *Engine) Check(entityID string, x, y float64, now time.Time) []tracker.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Check(entityID, x, y, now)
}

// Untrack drops entity state without exit events.
func (e *Engine) Untrack(entityID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.tracker.Untrack(entityID)
	e.scheduler.Forget(entityID)
}

// Leave emits exits for the entity's current zones and untracks it.
func (e *Engine) Leave(entityID string, now time.Time) []tracker.Event {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.scheduler.Forget(entityID)
	return e.tracker.Leave(entityID, now)
}

// Inside returns ids of the zones the entity was inside at its last check.
func (e *Engine) Inside(entityID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Inside(entityID)
}

// Tracked returns the number of tracked entities.
func (e *Engine) Tracked() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Len()
}

// Metrics returns a stats snapshot.
func (e *Engine) Metrics() stats.Metrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.Metrics()
}

// Report returns the human-readable stats report.
func (e *Engine) Report() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats.Report()
}

// ResetStats zeroes all stats.
func (e *Engine) ResetStats() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stats.Reset()
}
