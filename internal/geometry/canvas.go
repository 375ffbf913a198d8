package geometry

import "math"

// PointerEvent carries the viewport position of a pointer event in CSS pixels.
type PointerEvent struct {
	ClientX float64
	ClientY float64
}

// CanvasRect describes where a canvas element sits on screen and how large its
// backing store is. CSS values come from the element's bounding rect; Pixel
// values are the canvas width/height attributes.
type CanvasRect struct {
	Left        float64
	Top         float64
	CSSWidth    float64
	CSSHeight   float64
	PixelWidth  int
	PixelHeight int
}

// ScaleX returns backing-store pixels per CSS pixel along x.
func (r CanvasRect) ScaleX() float64 {
	return float64(r.PixelWidth) / r.CSSWidth
}

// ScaleY returns backing-store pixels per CSS pixel along y.
func (r CanvasRect) ScaleY() float64 {
	return float64(r.PixelHeight) / r.CSSHeight
}

func (r CanvasRect) valid() bool {
	return allFinite(r.Left, r.Top, r.CSSWidth, r.CSSHeight) &&
		r.CSSWidth > 0 && r.CSSHeight > 0 && r.PixelWidth > 0 && r.PixelHeight > 0
}

// ToCanvasCoordinates converts a pointer position into canvas backing-store
// pixels. The backing store rarely matches the CSS size on high-DPI screens, so
// both axes are scaled independently.
func ToCanvasCoordinates(ev PointerEvent, rect CanvasRect) (Point, error) {
	if !allFinite(ev.ClientX, ev.ClientY) {
		return Point{}, ErrNonFinite
	}
	if !rect.valid() {
		return Point{}, ErrInvalidSize
	}
	return Point{
		X: (ev.ClientX - rect.Left) * rect.ScaleX(),
		Y: (ev.ClientY - rect.Top) * rect.ScaleY(),
	}, nil
}

// Display is the on-screen size of an image fitted into a display box. Scale
// is canvas pixels per native image pixel.
type Display struct {
	ImageWidth  int     `json:"imageWidth"`
	ImageHeight int     `json:"imageHeight"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Scale       float64 `json:"scale"`
}

// FitWithin scales an image to the largest size that fits the box while
// preserving its aspect ratio. Images smaller than the box are scaled up.
func FitWithin(imageW, imageH, boxW, boxH int) (Display, error) {
	if imageW <= 0 || imageH <= 0 || boxW <= 0 || boxH <= 0 {
		return Display{}, ErrInvalidSize
	}
	scale := math.Min(float64(boxW)/float64(imageW), float64(boxH)/float64(imageH))
	w := int(math.Round(float64(imageW) * scale))
	h := int(math.Round(float64(imageH) * scale))
	// Rounding may overshoot the box by one pixel on awkward ratios.
	w = max(1, min(w, boxW))
	h = max(1, min(h, boxH))
	return Display{ImageWidth: imageW, ImageHeight: imageH, Width: w, Height: h, Scale: scale}, nil
}

// ToImage maps a canvas point to native image pixels.
func (d Display) ToImage(p Point) Point {
	if d.Scale == 0 {
		return p
	}
	return p.Scale(1 / d.Scale)
}

// ToCanvas maps a native image point to canvas pixels.
func (d Display) ToCanvas(p Point) Point {
	return p.Scale(d.Scale)
}

// ShapeToImage maps a canvas-space shape to native image pixels.
func (d Display) ShapeToImage(s Shape) Shape {
	if s == nil || d.Scale == 0 {
		return s
	}
	return s.Scaled(1 / d.Scale)
}

// Clamp pins p inside the displayed canvas.
func (d Display) Clamp(p Point) Point {
	return Point{
		X: math.Max(0, math.Min(p.X, float64(d.Width))),
		Y: math.Max(0, math.Min(p.Y, float64(d.Height))),
	}
}
