package zone

import (
	"cmp"
	"slices"
	"time"

	"github.com/udisondev/geozone/internal/geom"
	"github.com/udisondev/geozone/internal/stats"
)

// Querier is the read side of an Index.
type Querier interface {
	Query(x, y float64) []string
	Lookup(dst []*Zone, x, y float64) []*Zone
	Zone(id string) (*Zone, bool)
}

// Index holds the current zone set and a lazily rebuilt Backend snapshot.
//
// Add, Remove and Clear only flip the dirty flag. Query rebuilds first when
// dirty, so any number of mutations are paid for with a single rebuild.
type Index struct {
	zones   map[string]*Zone
	dirty   bool
	backend Backend
	stats   *stats.Collector

	cache     map[geom.Point][]*Zone
	cacheSize int

	ordered []*Zone // snapshot passed to the backend, reused between rebuilds
	scratch []*Zone
}

var _ Querier = (*Index)(nil)

// NewIndex creates an empty index over backend. cacheSize bounds the exact
// coordinate query cache; zero disables it. st may be nil.
func NewIndex(backend Backend, cacheSize int, st *stats.Collector) *Index {
	if backend == nil {
		backend = NewGridBackend(0, 0)
	}

	idx := &Index{
		zones:     make(map[string]*Zone),
		backend:   backend,
		stats:     st,
		cacheSize: max(cacheSize, 0),
	}
	if idx.cacheSize > 0 {
		idx.cache = make(map[geom.Point][]*Zone, idx.cacheSize)
	}

	return idx
}

// Backend returns the lookup backend.
func (idx *Index) Backend() Backend { return idx.backend }

// Add validates and stores a zone, replacing any zone with the same id.
// It returns *InvalidPolygonError for fewer than three vertices after closing
// and leaves the index untouched in that case. Add never rebuilds.
func (idx *Index) Add(id string, points []geom.Point, meta Metadata) error {
	z, err := newZone(id, points, meta)
	if err != nil {
		return err
	}

	idx.put(z)
	return nil
}

func (idx *Index) put(z *Zone) {
	idx.zones[z.ID] = z
	idx.dirty = true
}

// Remove deletes a zone and reports whether it existed.
func (idx *Index) Remove(id string) bool {
	if _, ok := idx.zones[id]; !ok {
		return false
	}

	delete(idx.zones, id)
	idx.dirty = true

	return true
}

// Clear drops every zone and the built snapshot.
func (idx *Index) Clear() {
	clear(idx.zones)
	clear(idx.ordered)
	idx.ordered = idx.ordered[:0]
	idx.backend.Build(nil)
	idx.resetCache()
	idx.dirty = false
}

// Dirty reports whether the next query will rebuild.
func (idx *Index) Dirty() bool { return idx.dirty }

// Len returns the number of zones.
func (idx *Index) Len() int { return len(idx.zones) }

// Zone returns a registered zone.
func (idx *Index) Zone(id string) (*Zone, bool) {
	z, ok := idx.zones[id]
	return z, ok
}

// IDs returns zone ids in ascending order.
func (idx *Index) IDs() []string {
	ids := make([]string, 0, len(idx.zones))
	for id := range idx.zones {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Rebuild reconstructs the backend snapshot from every registered zone.
// It is a no-op when the index is clean. Cost is linear in total vertices.
func (idx *Index) Rebuild() {
	if !idx.dirty {
		return
	}

	start := time.Now()

	clear(idx.ordered)
	idx.ordered = idx.ordered[:0]
	for _, z := range idx.zones {
		idx.ordered = append(idx.ordered, z)
	}
	// Стабильный порядок результатов между перестроениями.
	slices.SortFunc(idx.ordered, func(a, b *Zone) int { return cmp.Compare(a.ID, b.ID) })

	idx.backend.Build(idx.ordered)
	idx.resetCache()
	idx.dirty = false

	idx.stats.RecordUpdate(time.Since(start))
}

// Lookup appends every zone containing (x, y) to dst, rebuilding first if
// needed. Zones may overlap, so zero or more zones are returned.
func (idx *Index) Lookup(dst []*Zone, px, py float64) []*Zone {
	idx.Rebuild()

	if len(idx.zones) == 0 {
		return dst
	}

	if idx.cache == nil {
		return idx.backend.Search(dst, px, py)
	}

	key := geom.Point{X: px, Y: py}
	if hit, ok := idx.cache[key]; ok {
		idx.stats.RecordCache(true)
		return append(dst, hit...)
	}
	idx.stats.RecordCache(false)

	start := len(dst)
	dst = idx.backend.Search(dst, px, py)

	if len(idx.cache) >= idx.cacheSize {
		clear(idx.cache)
	}
	idx.cache[key] = slices.Clone(dst[start:])

	return dst
}

// QueryInto appends the ids of every zone containing (x, y) to dst.
func (idx *Index) QueryInto(dst []string, px, py float64) []string {
	idx.scratch = idx.Lookup(idx.scratch[:0], px, py)
	for _, z := range idx.scratch {
		dst = append(dst, z.ID)
	}
	clear(idx.scratch)
	return dst
}

// Query returns the ids of every zone containing (x, y). Order is
// unspecified; an empty index yields an empty result.
func (idx *Index) Query(px, py float64) []string {
	return idx.QueryInto(nil, px, py)
}

func (idx *Index) resetCache() {
	if idx.cache != nil {
		clear(idx.cache)
	}
}
