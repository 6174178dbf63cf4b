// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"io"
	"log/slog"

	"github.com/udisondev/geozone/internal/geom"
)

// DiscardLogger возвращает logger, который ничего не пишет.
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Rect возвращает прямоугольник (x0,y0)-(x0+w,y0+h) против часовой стрелки.
func Rect(x0, y0, w, h float64) []geom.Point {
	return []geom.Point{
		{X: x0, Y: y0},
		{X: x0 + w, Y: y0},
		{X: x0 + w, Y: y0 + h},
		{X: x0, Y: y0 + h},
	}
}

// Square возвращает квадрат со стороной size с углом в начале координат.
func Square(size float64) []geom.Point {
	return Rect(0, 0, size, size)
}
