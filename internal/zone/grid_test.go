package zone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/geozone/internal/geom"
)

func mustZone(t *testing.T, id string, pts []geom.Point) *Zone {
	t.Helper()
	z, err := newZone(id, pts, nil)
	require.NoError(t, err)
	return z
}

func TestGridNegativeCoordinates(t *testing.T) {
	g := NewGridBackend(100, 64)
	z := mustZone(t, "neg", squarePts(-150, -150, 100))
	g.Build([]*Zone{z})

	// Ячейки -2..-1 по обеим осям.
	assert.Equal(t, 4, g.CellCount())
	assert.Len(t, g.Search(nil, -100, -100), 1)
	assert.Empty(t, g.Search(nil, -10, -10))
	assert.Equal(t, int64(-1), g.cell(-0.5), "floor division rounds towards -inf")
}

func TestGridOversizedZones(t *testing.T) {
	g := NewGridBackend(10, 16)
	small := mustZone(t, "small", squarePts(0, 0, 15))
	huge := mustZone(t, "huge", squarePts(-1e6, -1e6, 2e6))
	g.Build([]*Zone{small, huge})

	assert.Equal(t, 1, g.OversizedCount())
	assert.Equal(t, 4, g.CellCount())

	got := g.Search(nil, 5, 5)
	require.Len(t, got, 2)
	assert.Len(t, g.Search(nil, 5e5, 5e5), 1)
}

func TestGridRebuildDropsStaleCells(t *testing.T) {
	g := NewGridBackend(10, 16)
	g.Build([]*Zone{mustZone(t, "a", squarePts(0, 0, 5))})
	g.Build(nil)

	assert.Zero(t, g.CellCount())
	assert.Empty(t, g.Search(nil, 1, 1))
}

func TestGridDefaults(t *testing.T) {
	g := NewGridBackend(-1, 0)
	def := DefaultBackendConfig()
	assert.Equal(t, def.CellSize, g.cellSize)
	assert.Equal(t, int64(def.MaxCellsPerZone), g.maxCells)
}

func TestRTreeDegenerateBounds(t *testing.T) {
	r := NewRTreeBackend(2, 4)
	// Вертикальный "полигон" нулевой ширины: валиден по числу вершин.
	flat := mustZone(t, "flat", []geom.Point{{X: 5, Y: 0}, {X: 5, Y: 10}, {X: 5, Y: 5}})
	sq := mustZone(t, "sq", squarePts(0, 0, 10))
	r.Build([]*Zone{flat, sq})

	assert.Equal(t, 2, r.Size())
	got := r.Search(nil, 2, 2)
	require.Len(t, got, 1)
	assert.Equal(t, "sq", got[0].ID)

	r.Build(nil)
	assert.Zero(t, r.Size())
	assert.Empty(t, r.Search(nil, 2, 2))
}

func TestNewBackend(t *testing.T) {
	cfg := DefaultBackendConfig()

	b, err := NewBackend("", cfg)
	require.NoError(t, err)
	assert.Equal(t, BackendGrid, b.Name())

	b, err = NewBackend(BackendRTree, cfg)
	require.NoError(t, err)
	assert.Equal(t, BackendRTree, b.Name())

	_, err = NewBackend("kd", cfg)
	assert.Error(t, err)
}
