// Package zone owns zone definitions and the spatial index that answers
// "which zones contain point (x, y)".
//
// Mutations only mark the index dirty; the lookup structure is rebuilt
// lazily, once, before the next query. None of the types in this package are
// safe for concurrent use.
package zone

import (
	"errors"
	"fmt"
	"maps"

	"github.com/udisondev/geozone/internal/geom"
)

// Metadata is caller-defined zone data. The engine never interprets it; it is
// carried through to query results and events.
type Metadata map[string]any

// Definition describes a zone as supplied by a caller or a zone store.
type Definition struct {
	ID       string       `yaml:"id" json:"id"`
	Points   []geom.Point `yaml:"points" json:"points"`
	Metadata Metadata     `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Zone is a registered, immutable zone.
type Zone struct {
	ID       string
	Points   []geom.Point // open ring, at least geom.MinVertices
	Metadata Metadata
	Bounds   geom.Bounds

	// Fingerprint of the definition as supplied, before simplification.
	Fingerprint Fingerprint
}

// Contains reports whether (x, y) lies inside the zone polygon.
// Boundary points have an undefined result, see geom.PointInPolygon.
func (z *Zone) Contains(x, y float64) bool {
	if !z.Bounds.Contains(x, y) {
		return false
	}
	return geom.PointInPolygon(geom.Point{X: x, Y: y}, z.Points)
}

// Definition returns a copy of the zone as a Definition.
func (z *Zone) Definition() Definition {
	pts := make([]geom.Point, len(z.Points))
	copy(pts, z.Points)
	return Definition{ID: z.ID, Points: pts, Metadata: maps.Clone(z.Metadata)}
}

// ErrInvalidPolygon is matched by every *InvalidPolygonError.
var ErrInvalidPolygon = errors.New("invalid_polygon")

// InvalidPolygonError reports a zone rejected at registration.
type InvalidPolygonError struct {
	ZoneID   string
	Vertices int // vertex count after closing
}

// Code is the stable failure tag.
func (e *InvalidPolygonError) Code() string { return "invalid_polygon" }

func (e *InvalidPolygonError) Error() string {
	return fmt.Sprintf("zone %q: invalid polygon: %d vertices, need at least %d",
		e.ZoneID, e.Vertices, geom.MinVertices)
}

// Is makes errors.Is(err, ErrInvalidPolygon) work.
func (e *InvalidPolygonError) Is(target error) bool {
	return target == ErrInvalidPolygon
}

// Validate reports whether d would be accepted by Registry.Add.
func (d Definition) Validate() error {
	if ring := geom.Normalize(d.Points); !geom.IsValidPolygon(ring) {
		return &InvalidPolygonError{ZoneID: d.ID, Vertices: len(ring)}
	}
	return nil
}

// FilterValid splits defs into those Validate accepts and the joined
// rejection errors. Order is preserved.
func FilterValid(defs []Definition) ([]Definition, error) {
	valid := make([]Definition, 0, len(defs))
	var errs []error
	for _, d := range defs {
		if err := d.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		valid = append(valid, d)
	}
	return valid, errors.Join(errs...)
}

// newZone нормализует вершины и проверяет полигон.
func newZone(id string, points []geom.Point, meta Metadata) (*Zone, error) {
	if err := (Definition{ID: id, Points: points}).Validate(); err != nil {
		return nil, err
	}
	ring := geom.Normalize(points)

	return &Zone{
		ID:          id,
		Points:      ring,
		Metadata:    maps.Clone(meta),
		Bounds:      geom.BoundsOf(ring),
		Fingerprint: FingerprintOf(id, ring, meta),
	}, nil
}
