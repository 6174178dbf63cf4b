package zone

import (
	"log/slog"
	"maps"

	"github.com/udisondev/geozone/internal/geom"
	"github.com/udisondev/geozone/internal/stats"
)

// Registry is the single writer of zone definitions. All mutations go through
// it so that the index dirty flag stays consistent with the zone set.
type Registry struct {
	index     *Index
	stats     *stats.Collector
	logger    *slog.Logger
	tolerance float64
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// SimplifyTolerance > 0 reduces vertices with Douglas-Peucker before
	// registration. Zero keeps geometry as supplied.
	SimplifyTolerance float64
	Stats             *stats.Collector
	Logger            *slog.Logger
}

// NewRegistry creates a registry writing into index.
func NewRegistry(index *Index, opts RegistryOptions) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Registry{
		index:     index,
		stats:     opts.Stats,
		logger:    logger,
		tolerance: opts.SimplifyTolerance,
	}
}

// Querier returns the read-only view of the underlying index.
func (r *Registry) Querier() Querier { return r.index }

// Index returns the underlying index.
func (r *Registry) Index() *Index { return r.index }

// Add registers a zone. Registering an existing id replaces its definition
// and counts as an update. An invalid polygon yields *InvalidPolygonError
// and leaves the registry unchanged.
func (r *Registry) Add(id string, points []geom.Point, meta Metadata) error {
	z, err := newZone(id, points, meta)
	if err != nil {
		r.logger.Warn("zone rejected", "id", id, "vertices", len(points), "err", err)
		return err
	}

	if r.tolerance > 0 {
		// SimplifyPolygon сам возвращает исходник, если осталось < 3 точек.
		z.Points = geom.SimplifyPolygon(z.Points, r.tolerance)
		z.Bounds = geom.BoundsOf(z.Points)
	}

	_, existed := r.index.Zone(id)
	r.index.put(z)

	if existed {
		r.stats.RecordZoneUpdated()
		r.logger.Debug("zone updated", "id", id, "vertices", len(z.Points))
	} else {
		r.stats.RecordZoneCreated()
		r.logger.Debug("zone added", "id", id, "vertices", len(z.Points))
	}

	return nil
}

// AddDefinition registers d.
func (r *Registry) AddDefinition(d Definition) error {
	return r.Add(d.ID, d.Points, d.Metadata)
}

// Remove deletes a zone and reports whether it was registered.
func (r *Registry) Remove(id string) bool {
	if !r.index.Remove(id) {
		return false
	}

	r.stats.RecordZoneRemoved()
	r.logger.Debug("zone removed", "id", id)

	return true
}

// Get returns a copy of the zone metadata.
func (r *Registry) Get(id string) (Metadata, bool) {
	z, ok := r.index.Zone(id)
	if !ok {
		return nil, false
	}
	return maps.Clone(z.Metadata), true
}

// Definition returns the registered definition of a zone.
func (r *Registry) Definition(id string) (Definition, bool) {
	z, ok := r.index.Zone(id)
	if !ok {
		return Definition{}, false
	}
	return z.Definition(), true
}

// List returns registered zone ids in ascending order.
func (r *Registry) List() []string { return r.index.IDs() }

// Len returns the number of registered zones.
func (r *Registry) Len() int { return r.index.Len() }

// Clear removes every zone.
func (r *Registry) Clear() {
	n := r.index.Len()
	r.index.Clear()
	for range n {
		r.stats.RecordZoneRemoved()
	}
	r.logger.Info("zone registry cleared", "zones", n)
}
