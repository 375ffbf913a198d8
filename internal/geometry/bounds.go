package geometry

import "fmt"

// Bounds is an axis-aligned box with non-negative Width and Height.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Contains reports whether p lies inside b, edges included.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.X && p.X <= b.X+b.Width && p.Y >= b.Y && p.Y <= b.Y+b.Height
}

// Area returns Width*Height.
func (b Bounds) Area() float64 {
	return b.Width * b.Height
}

// ComputeBounds derives the bounding box of shape. It fails for non-finite
// input and for a freehand path without points.
func ComputeBounds(shape Shape) (Bounds, error) {
	if shape == nil {
		return Bounds{}, fmt.Errorf("geometry: nil shape")
	}
	if err := shape.Validate(); err != nil {
		return Bounds{}, err
	}
	switch s := shape.(type) {
	case Rectangle:
		n := s.Normalized()
		return Bounds{X: n.X, Y: n.Y, Width: n.Width, Height: n.Height}, nil
	case Circle:
		return Bounds{X: s.CenterX - s.Radius, Y: s.CenterY - s.Radius, Width: 2 * s.Radius, Height: 2 * s.Radius}, nil
	case Freehand:
		minX, minY := s.Points[0].X, s.Points[0].Y
		maxX, maxY := minX, minY
		for _, p := range s.Points[1:] {
			minX, maxX = min(minX, p.X), max(maxX, p.X)
			minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		}
		return Bounds{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, nil
	default:
		return Bounds{}, fmt.Errorf("geometry: unsupported shape %T", shape)
	}
}

func minMax(a, b float64) (float64, float64) {
	if a < b {
		return a, b
	}
	return b, a
}
