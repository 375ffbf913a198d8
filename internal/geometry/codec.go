package geometry

import (
	"encoding/json"
	"fmt"
)

type wireShape struct {
	Type    ShapeKind `json:"type"`
	X       *float64  `json:"x,omitempty"`
	Y       *float64  `json:"y,omitempty"`
	Width   *float64  `json:"width,omitempty"`
	Height  *float64  `json:"height,omitempty"`
	CenterX *float64  `json:"centerX,omitempty"`
	CenterY *float64  `json:"centerY,omitempty"`
	Radius  *float64  `json:"radius,omitempty"`
	Points  []Point   `json:"points,omitempty"`
}

// MarshalShape encodes a shape with its "type" tag. A nil shape encodes as JSON null.
func MarshalShape(s Shape) ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	var w wireShape
	switch v := s.(type) {
	case Rectangle:
		w = wireShape{Type: KindRectangle, X: ptr(v.X), Y: ptr(v.Y), Width: ptr(v.Width), Height: ptr(v.Height)}
	case Circle:
		w = wireShape{Type: KindCircle, CenterX: ptr(v.CenterX), CenterY: ptr(v.CenterY), Radius: ptr(v.Radius)}
	case Freehand:
		points := v.Points
		if points == nil {
			points = []Point{}
		}
		w = wireShape{Type: KindFreehand, Points: points}
	default:
		return nil, fmt.Errorf("geometry: unsupported shape %T", s)
	}
	return json.Marshal(w)
}

// UnmarshalShape decodes a tagged shape. JSON null decodes to a nil Shape.
func UnmarshalShape(data []byte) (Shape, error) {
	if len(data) == 0 || string(data) == "null" {
		return nil, nil
	}
	var w wireShape
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("geometry: decode shape: %w", err)
	}
	var s Shape
	switch w.Type {
	case KindRectangle:
		if w.X == nil || w.Y == nil || w.Width == nil || w.Height == nil {
			return nil, fmt.Errorf("geometry: rectangle requires x, y, width and height")
		}
		s = Rectangle{X: *w.X, Y: *w.Y, Width: *w.Width, Height: *w.Height}
	case KindCircle:
		if w.CenterX == nil || w.CenterY == nil || w.Radius == nil {
			return nil, fmt.Errorf("geometry: circle requires centerX, centerY and radius")
		}
		s = Circle{CenterX: *w.CenterX, CenterY: *w.CenterY, Radius: *w.Radius}
	case KindFreehand:
		s = Freehand{Points: w.Points}
	default:
		return nil, fmt.Errorf("geometry: unknown shape type %q", w.Type)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func ptr(v float64) *float64 { return &v }
