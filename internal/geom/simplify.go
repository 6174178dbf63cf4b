package geom

import "math"

// SimplifyPolygon reduces the vertex count with the Douglas-Peucker algorithm.
// A vertex is kept when its perpendicular distance from the chord of the
// current segment exceeds tolerance.
//
// The result is never an invalid polygon: when fewer than MinVertices points
// survive, a copy of the input is returned instead.
func SimplifyPolygon(points []Point, tolerance float64) []Point {
	n := len(points)
	if n < MinVertices {
		out := make([]Point, n)
		copy(out, points)
		return out
	}

	keep := make([]bool, n)
	keep[0] = true
	keep[n-1] = true
	douglasPeucker(points, 0, n-1, tolerance, keep)

	out := make([]Point, 0, n)
	for i, k := range keep {
		if k {
			out = append(out, points[i])
		}
	}

	if len(out) < MinVertices {
		out = out[:0]
		return append(out, points...)
	}

	return out
}

// douglasPeucker помечает в keep точки отрезка (first, last), которые нужно сохранить.
func douglasPeucker(points []Point, first, last int, tolerance float64, keep []bool) {
	if last-first < 2 {
		return
	}

	maxDist := -1.0
	index := first
	for i := first + 1; i < last; i++ {
		d := perpendicularDistance(points[i], points[first], points[last])
		if d > maxDist {
			maxDist = d
			index = i
		}
	}

	if maxDist > tolerance {
		keep[index] = true
		douglasPeucker(points, first, index, tolerance, keep)
		douglasPeucker(points, index, last, tolerance, keep)
	}
}

// perpendicularDistance is the distance from p to the line through a and b,
// or to a itself when a == b.
func perpendicularDistance(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return p.Dist(a)
	}

	return math.Abs(dy*p.X-dx*p.Y+b.X*a.Y-b.Y*a.X) / length
}
