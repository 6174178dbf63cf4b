package zone

import "math"

type gridKey struct {
	gx, gy int64
}

// GridBackend is a uniform grid over zone bounding boxes with an exact
// ray-casting test per candidate. It is the reference backend: every other
// backend must agree with it away from polygon boundaries.
//
// Each zone is registered in every cell its bounding box touches. Zones that
// would cover more than maxCells cells are kept in a separate list that is
// scanned on every query instead.
type GridBackend struct {
	cellSize  float64
	maxCells  int64
	cells     map[gridKey][]*Zone
	oversized []*Zone
}

// NewGridBackend creates a grid with the given cell size in world units.
func NewGridBackend(cellSize float64, maxCellsPerZone int) *GridBackend {
	def := DefaultBackendConfig()
	if cellSize <= 0 || math.IsNaN(cellSize) || math.IsInf(cellSize, 0) {
		cellSize = def.CellSize
	}
	if maxCellsPerZone <= 0 {
		maxCellsPerZone = def.MaxCellsPerZone
	}

	return &GridBackend{
		cellSize: cellSize,
		maxCells: int64(maxCellsPerZone),
		cells:    make(map[gridKey][]*Zone),
	}
}

// Name implements Backend.
func (g *GridBackend) Name() string { return BackendGrid }

// Build implements Backend.
func (g *GridBackend) Build(zones []*Zone) {
	g.cells = make(map[gridKey][]*Zone, len(zones))
	g.oversized = nil

	for _, z := range zones {
		gxMin, gxMax := g.cell(z.Bounds.Min.X), g.cell(z.Bounds.Max.X)
		gyMin, gyMax := g.cell(z.Bounds.Min.Y), g.cell(z.Bounds.Max.Y)

		// Переполнение при огромных координатах тоже уводит зону в oversized.
		w, h := gxMax-gxMin+1, gyMax-gyMin+1
		if w <= 0 || h <= 0 || w > g.maxCells || h > g.maxCells || w*h > g.maxCells {
			g.oversized = append(g.oversized, z)
			continue
		}

		for gx := gxMin; gx <= gxMax; gx++ {
			for gy := gyMin; gy <= gyMax; gy++ {
				key := gridKey{gx: gx, gy: gy}
				g.cells[key] = append(g.cells[key], z)
			}
		}
	}
}

// Search implements Backend.
func (g *GridBackend) Search(dst []*Zone, x, y float64) []*Zone {
	for _, z := range g.cells[gridKey{gx: g.cell(x), gy: g.cell(y)}] {
		if z.Contains(x, y) {
			dst = append(dst, z)
		}
	}

	for _, z := range g.oversized {
		if z.Contains(x, y) {
			dst = append(dst, z)
		}
	}

	return dst
}

// CellCount returns the number of non-empty grid cells.
func (g *GridBackend) CellCount() int { return len(g.cells) }

// OversizedCount returns the number of zones scanned on every query.
func (g *GridBackend) OversizedCount() int { return len(g.oversized) }

// cell возвращает индекс ячейки с округлением к -inf для отрицательных координат.
func (g *GridBackend) cell(v float64) int64 {
	return int64(math.Floor(v / g.cellSize))
}
