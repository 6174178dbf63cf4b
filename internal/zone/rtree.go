package zone

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/udisondev/geozone/internal/geom"
)

// minExtent pads degenerate (zero width or height) bounding boxes, which
// rtreego rejects.
const minExtent = 1e-9

type rtreeEntry struct {
	zone *Zone
	ring orb.Ring
	rect rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (e *rtreeEntry) Bounds() rtreego.Rect { return e.rect }

// RTreeBackend bulk-loads an R-tree over zone bounding boxes and confirms
// candidates with orb's planar ring test. It trades a slightly different
// boundary behaviour for logarithmic candidate lookup on large zone sets.
type RTreeBackend struct {
	minChildren int
	maxChildren int
	tree        *rtreego.Rtree
}

// NewRTreeBackend creates an R-tree backend with the given node fan-out.
func NewRTreeBackend(minChildren, maxChildren int) *RTreeBackend {
	def := DefaultBackendConfig()
	if minChildren <= 0 {
		minChildren = def.RTreeMinChildren
	}
	if maxChildren < 2*minChildren {
		maxChildren = 2 * minChildren
	}

	return &RTreeBackend{minChildren: minChildren, maxChildren: maxChildren}
}

// Name implements Backend.
func (r *RTreeBackend) Name() string { return BackendRTree }

// Build implements Backend.
func (r *RTreeBackend) Build(zones []*Zone) {
	if len(zones) == 0 {
		r.tree = nil
		return
	}

	objs := make([]rtreego.Spatial, 0, len(zones))
	for _, z := range zones {
		rect, err := rtreego.NewRect(
			rtreego.Point{z.Bounds.Min.X, z.Bounds.Min.Y},
			[]float64{max(z.Bounds.Width(), minExtent), max(z.Bounds.Height(), minExtent)},
		)
		if err != nil {
			continue
		}

		closed := geom.Close(z.Points)
		ring := make(orb.Ring, len(closed))
		for i, p := range closed {
			ring[i] = orb.Point{p.X, p.Y}
		}

		objs = append(objs, &rtreeEntry{zone: z, ring: ring, rect: rect})
	}

	r.tree = rtreego.NewTree(2, r.minChildren, r.maxChildren, objs...)
}

// Search implements Backend.
func (r *RTreeBackend) Search(dst []*Zone, x, y float64) []*Zone {
	if r.tree == nil {
		return dst
	}

	pt := orb.Point{x, y}
	for _, obj := range r.tree.SearchIntersect(rtreego.Point{x, y}.ToRect(0)) {
		e := obj.(*rtreeEntry)
		if planar.RingContains(e.ring, pt) {
			dst = append(dst, e.zone)
		}
	}

	return dst
}

// Size returns the number of zones in the tree.
func (r *RTreeBackend) Size() int {
	if r.tree == nil {
		return 0
	}
	return r.tree.Size()
}
