// Package geometry maps pointer input onto canvas pixels and derives bounding
// boxes for user selections. Every function here is pure.
package geometry

import (
	"errors"
	"math"
)

var (
	// ErrNonFinite is returned when a coordinate is NaN or infinite.
	ErrNonFinite = errors.New("geometry: non-finite coordinate")
	// ErrEmptyPath is returned for a freehand shape without points.
	ErrEmptyPath = errors.New("geometry: freehand path has no points")
	// ErrInvalidSize is returned for zero or negative canvas/image sizes.
	ErrInvalidSize = errors.New("geometry: invalid size")
)

// Point is a coordinate in canvas backing-store pixels unless stated otherwise.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Finite reports whether both coordinates are real numbers.
func (p Point) Finite() bool {
	return finite(p.X) && finite(p.Y)
}

// Scale multiplies both coordinates by f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Distance returns the euclidean distance between p and q.
func (p Point) Distance(q Point) float64 {
	return math.Hypot(q.X-p.X, q.Y-p.Y)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func allFinite(values ...float64) bool {
	for _, v := range values {
		if !finite(v) {
			return false
		}
	}
	return true
}
