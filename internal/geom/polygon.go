package geom

import "math"

// MinVertices is the smallest vertex count of a valid polygon.
const MinVertices = 3

// IsValidPolygon reports whether points can describe a polygon.
// Only the vertex count is checked; self-intersection is not detected.
func IsValidPolygon(points []Point) bool {
	return len(points) >= MinVertices
}

// Normalize returns the open ring form of points: a trailing vertex equal to
// the first one is dropped. Polygons are implicitly closed, so the open form
// is what the rest of the package works with.
func Normalize(points []Point) []Point {
	n := len(points)
	if n > 1 && points[0] == points[n-1] {
		n--
	}

	out := make([]Point, n)
	copy(out, points[:n])

	return out
}

// Close returns a copy of points with the first vertex repeated at the end,
// unless the ring is already closed.
func Close(points []Point) []Point {
	n := len(points)
	if n == 0 {
		return nil
	}
	if points[0] == points[n-1] {
		out := make([]Point, n)
		copy(out, points)
		return out
	}

	out := make([]Point, n, n+1)
	copy(out, points)

	return append(out, points[0])
}

// PointInPolygon reports whether p lies inside the polygon using ray casting:
// a ray from p towards +X toggles the result on every edge it crosses.
//
// Points exactly on an edge or a vertex have an undefined result. Callers must
// not depend on which side boundary points fall.
func PointInPolygon(p Point, points []Point) bool {
	n := len(points)
	if n < MinVertices {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := points[i], points[j]
		if (a.Y > p.Y) != (b.Y > p.Y) {
			// X координата пересечения ребра с горизонталью через p.
			xCross := (b.X-a.X)*(p.Y-a.Y)/(b.Y-a.Y) + a.X
			if p.X < xCross {
				inside = !inside
			}
		}
	}

	return inside
}

// signedArea returns the shoelace sum halved; positive for counter-clockwise rings.
func signedArea(points []Point) float64 {
	n := len(points)
	if n < MinVertices {
		return 0
	}

	var sum float64
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		sum += points[j].X*points[i].Y - points[i].X*points[j].Y
	}

	return sum / 2
}

// PolygonArea returns the polygon area (shoelace formula) regardless of orientation.
func PolygonArea(points []Point) float64 {
	return math.Abs(signedArea(points))
}

// Centroid returns the area centroid of the polygon. Degenerate (zero area)
// input falls back to the vertex average.
func Centroid(points []Point) Point {
	n := len(points)
	if n == 0 {
		return Point{}
	}

	a := signedArea(points)
	if a == 0 {
		var c Point
		for _, p := range points {
			c.X += p.X
			c.Y += p.Y
		}
		return Point{X: c.X / float64(n), Y: c.Y / float64(n)}
	}

	var cx, cy float64
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		f := points[j].X*points[i].Y - points[i].X*points[j].Y
		cx += (points[j].X + points[i].X) * f
		cy += (points[j].Y + points[i].Y) * f
	}

	return Point{X: cx / (6 * a), Y: cy / (6 * a)}
}
