package zone

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/geozone/internal/geom"
	"github.com/udisondev/geozone/internal/stats"
)

func squarePts(x0, y0, size float64) []geom.Point {
	return []geom.Point{{X: x0, Y: y0}, {X: x0 + size, Y: y0}, {X: x0 + size, Y: y0 + size}, {X: x0, Y: y0 + size}}
}

// backends returns a fresh instance of every backend for table tests.
func backends() map[string]func() Backend {
	return map[string]func() Backend{
		BackendGrid:  func() Backend { return NewGridBackend(4, 64) },
		BackendRTree: func() Backend { return NewRTreeBackend(2, 4) },
	}
}

func TestIndexSquareScenario(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			idx := NewIndex(mk(), 0, nil)
			require.NoError(t, idx.Add("square", squarePts(0, 0, 10), nil))

			assert.Equal(t, []string{"square"}, idx.Query(5, 5))
			assert.Empty(t, idx.Query(15, 15))

			require.True(t, idx.Remove("square"))
			assert.Empty(t, idx.Query(20, 20))
			assert.Empty(t, idx.Query(5, 5))
		})
	}
}

func TestIndexEmpty(t *testing.T) {
	idx := NewIndex(nil, 16, nil)
	assert.Empty(t, idx.Query(0, 0))
	assert.False(t, idx.Remove("missing"))
	assert.Zero(t, idx.Len())
}

func TestIndexRejectsInvalidPolygon(t *testing.T) {
	idx := NewIndex(nil, 0, nil)

	err := idx.Add("line", []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, nil)
	require.ErrorIs(t, err, ErrInvalidPolygon)

	var ipe *InvalidPolygonError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, "line", ipe.ZoneID)
	assert.Equal(t, 2, ipe.Vertices)
	assert.Equal(t, "invalid_polygon", ipe.Code())

	// Закрытый двухточечный контур тоже невалиден.
	err = idx.Add("closed-line", []geom.Point{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 0}}, nil)
	require.ErrorIs(t, err, ErrInvalidPolygon)

	assert.Zero(t, idx.Len())
	assert.False(t, idx.Dirty(), "rejected zone does not dirty the index")
}

func TestIndexDirtyFlag(t *testing.T) {
	idx := NewIndex(nil, 0, nil)
	assert.False(t, idx.Dirty())

	require.NoError(t, idx.Add("a", squarePts(0, 0, 10), nil))
	require.NoError(t, idx.Add("b", squarePts(20, 0, 10), nil))
	assert.True(t, idx.Dirty(), "add does not rebuild")

	idx.Query(1, 1)
	assert.False(t, idx.Dirty(), "query rebuilds lazily")

	assert.False(t, idx.Remove("missing"))
	assert.False(t, idx.Dirty(), "removing an unknown id changes nothing")

	idx.Remove("a")
	assert.True(t, idx.Dirty())
	idx.Rebuild()
	assert.False(t, idx.Dirty())
}

// countingBackend считает вызовы Build поверх сетки.
type countingBackend struct {
	*GridBackend
	builds int
}

func (c *countingBackend) Build(zones []*Zone) {
	c.builds++
	c.GridBackend.Build(zones)
}

func TestIndexRebuildBatches(t *testing.T) {
	backend := &countingBackend{GridBackend: NewGridBackend(16, 64)}
	st := stats.NewCollector(stats.Options{Window: 8})
	idx := NewIndex(backend, 0, st)

	for i := range 10 {
		require.NoError(t, idx.Add(fmt.Sprintf("z%d", i), squarePts(float64(i*20), 0, 10), nil))
	}
	assert.Zero(t, backend.builds)

	idx.Query(5, 5)
	idx.Query(25, 5)
	idx.Rebuild()

	assert.Equal(t, 1, backend.builds, "one rebuild for a batch of mutations")
}

func TestIndexOverlappingZones(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			idx := NewIndex(mk(), 0, nil)
			require.NoError(t, idx.Add("town", squarePts(0, 0, 1000), Metadata{"category": "town"}))
			require.NoError(t, idx.Add("siege", squarePts(500, 500, 1000), Metadata{"category": "pvp"}))

			assert.ElementsMatch(t, []string{"town", "siege"}, idx.Query(750, 750))
			assert.Equal(t, []string{"town"}, idx.Query(100, 100))
			assert.Equal(t, []string{"siege"}, idx.Query(1200, 1200))
			assert.Empty(t, idx.Query(2000, 2000))

			zones := idx.Lookup(nil, 100, 100)
			require.Len(t, zones, 1)
			assert.Equal(t, "town", zones[0].Metadata["category"])
		})
	}
}

func TestIndexCentroidProperty(t *testing.T) {
	polys := map[string][]geom.Point{
		"triangle": {{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 100}},
		"square":   squarePts(-50, -50, 20),
		"hexagon":  {{X: 10, Y: 0}, {X: 5, Y: 8.66}, {X: -5, Y: 8.66}, {X: -10, Y: 0}, {X: -5, Y: -8.66}, {X: 5, Y: -8.66}},
		"sliver":   {{X: 0, Y: 0}, {X: 1000, Y: 0}, {X: 1000, Y: 3}},
	}

	for name, mk := range backends() {
		for id, pts := range polys {
			t.Run(name+"/"+id, func(t *testing.T) {
				idx := NewIndex(mk(), 0, nil)
				require.NoError(t, idx.Add(id, pts, nil))

				c := geom.Centroid(pts)
				assert.Contains(t, idx.Query(c.X, c.Y), id)
			})
		}
	}
}

func TestIndexOutsideConvexHull(t *testing.T) {
	tri := []geom.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 100}}

	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			idx := NewIndex(mk(), 0, nil)
			require.NoError(t, idx.Add("tri", tri, nil))

			for _, p := range []geom.Point{{X: -1, Y: 0.5}, {X: 101, Y: 0.5}, {X: 50, Y: 101}, {X: 10, Y: 50}, {X: 90, Y: 50}, {X: 50, Y: -0.1}} {
				assert.NotContains(t, idx.Query(p.X, p.Y), "tri", "point %v", p)
			}
		})
	}
}

func TestBackendsAgree(t *testing.T) {
	defs := []Definition{
		{ID: "square", Points: squarePts(0, 0, 40)},
		{ID: "triangle", Points: []geom.Point{{X: 0, Y: 0}, {X: 100, Y: 0}, {X: 50, Y: 100}}},
		{ID: "u", Points: []geom.Point{{X: 0, Y: 0}, {X: 30, Y: 0}, {X: 30, Y: 30}, {X: 20, Y: 30}, {X: 20, Y: 10}, {X: 10, Y: 10}, {X: 10, Y: 30}, {X: 0, Y: 30}}},
		{ID: "far", Points: squarePts(-200, -200, 50)},
	}

	grid := NewIndex(NewGridBackend(8, 64), 0, nil)
	rtree := NewIndex(NewRTreeBackend(2, 4), 0, nil)
	for _, d := range defs {
		require.NoError(t, grid.Add(d.ID, d.Points, nil))
		require.NoError(t, rtree.Add(d.ID, d.Points, nil))
	}

	// Точки сдвинуты с целочисленной решетки, чтобы не попадать на границы.
	for x := -210; x < 110; x += 3 {
		for y := -210; y < 110; y += 3 {
			px, py := float64(x)+0.37, float64(y)+0.61
			assert.ElementsMatch(t, grid.Query(px, py), rtree.Query(px, py), "point (%v, %v)", px, py)
		}
	}
}

func TestIndexQueryCache(t *testing.T) {
	st := stats.NewCollector(stats.Options{})
	idx := NewIndex(nil, 2, st)
	require.NoError(t, idx.Add("square", squarePts(0, 0, 10), nil))

	assert.Equal(t, []string{"square"}, idx.Query(5, 5))
	assert.Equal(t, []string{"square"}, idx.Query(5, 5))
	assert.Empty(t, idx.Query(50, 50))
	assert.Empty(t, idx.Query(50, 50))

	m := st.Metrics()
	assert.Equal(t, int64(2), m.CacheHits)
	assert.Equal(t, int64(2), m.CacheMisses)

	// Кэш сбрасывается при перестроении.
	require.NoError(t, idx.Add("big", squarePts(0, 0, 100), nil))
	assert.ElementsMatch(t, []string{"square", "big"}, idx.Query(5, 5))
	assert.Equal(t, int64(3), st.Metrics().CacheMisses)

	// Overflow clears the cache instead of growing it.
	idx.Query(1, 1)
	idx.Query(2, 2)
	assert.LessOrEqual(t, len(idx.cache), 2)
}

func TestIndexClear(t *testing.T) {
	for name, mk := range backends() {
		t.Run(name, func(t *testing.T) {
			idx := NewIndex(mk(), 4, nil)
			require.NoError(t, idx.Add("square", squarePts(0, 0, 10), nil))
			assert.NotEmpty(t, idx.Query(5, 5))

			idx.Clear()
			assert.Zero(t, idx.Len())
			assert.False(t, idx.Dirty())
			assert.Empty(t, idx.Query(5, 5))

			require.NoError(t, idx.Add("square", squarePts(0, 0, 10), nil))
			assert.Equal(t, []string{"square"}, idx.Query(5, 5))
		})
	}
}

func TestIndexQueryIntoAppends(t *testing.T) {
	idx := NewIndex(nil, 0, nil)
	require.NoError(t, idx.Add("a", squarePts(0, 0, 10), nil))

	dst := []string{"existing"}
	dst = idx.QueryInto(dst, 5, 5)
	assert.Equal(t, []string{"existing", "a"}, dst)
}

func TestIndexIDsSorted(t *testing.T) {
	idx := NewIndex(nil, 0, nil)
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, idx.Add(id, squarePts(0, 0, 1), nil))
	}
	assert.Equal(t, []string{"a", "b", "c"}, idx.IDs())
}

func BenchmarkIndexQuery(b *testing.B) {
	for name, mk := range backends() {
		b.Run(name, func(b *testing.B) {
			idx := NewIndex(mk(), 0, nil)
			for i := range 100 {
				for j := range 100 {
					_ = idx.Add(fmt.Sprintf("%d:%d", i, j), squarePts(float64(i*10), float64(j*10), 8), nil)
				}
			}
			idx.Rebuild()

			var dst []string
			b.ReportAllocs()
			b.ResetTimer()
			for n := range b.N {
				dst = idx.QueryInto(dst[:0], float64(n%1000)+0.5, float64((n/1000)%1000)+0.5)
			}
		})
	}
}
