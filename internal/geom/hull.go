package geom

import (
	"cmp"
	"slices"
)

// ConvexHull returns the convex hull of points in counter-clockwise order
// using Andrew's monotone chain. Collinear points on the hull are dropped.
// Fewer than three input points are returned as a copy.
func ConvexHull(points []Point) []Point {
	n := len(points)
	if n < MinVertices {
		out := make([]Point, n)
		copy(out, points)
		return out
	}

	sorted := make([]Point, n)
	copy(sorted, points)
	slices.SortFunc(sorted, func(a, b Point) int {
		if c := cmp.Compare(a.X, b.X); c != 0 {
			return c
		}
		return cmp.Compare(a.Y, b.Y)
	})

	hull := make([]Point, 0, 2*n)

	// Нижняя цепочка.
	for _, p := range sorted {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Верхняя цепочка.
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := sorted[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// Последняя точка совпадает с первой.
	return hull[:len(hull)-1]
}
