// Package geom implements the planar polygon primitives used by the zone
// index: point-in-polygon, area, simplification and convex hulls.
// All functions are pure and never retain the slices they are given.
package geom

import "math"

// Point is a position on the 2-D plane.
type Point struct {
	X float64 `yaml:"x" json:"x"`
	Y float64 `yaml:"y" json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Bounds is an axis-aligned bounding box.
type Bounds struct {
	Min, Max Point
}

// BoundsOf returns the bounding box of points. Empty input yields a zero Bounds.
func BoundsOf(points []Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}

	b := Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = min(b.Min.X, p.X)
		b.Min.Y = min(b.Min.Y, p.Y)
		b.Max.X = max(b.Max.X, p.X)
		b.Max.Y = max(b.Max.Y, p.Y)
	}

	return b
}

// Contains reports whether (x, y) lies inside b, edges included.
func (b Bounds) Contains(x, y float64) bool {
	return x >= b.Min.X && x <= b.Max.X && y >= b.Min.Y && y <= b.Max.Y
}

// Width returns the X extent.
func (b Bounds) Width() float64 { return b.Max.X - b.Min.X }

// Height returns the Y extent.
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

// cross возвращает z-компоненту векторного произведения (a-o) x (b-o).
// Положительное значение означает поворот против часовой стрелки.
func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}
