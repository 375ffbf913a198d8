package selection

import (
	"bytes"
	"fmt"
	"image"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/Knouxai/Knoux-versa-sub002/internal/geometry"
)

// DefaultBrushWidth is the stroke width, in canvas pixels, of brush selections.
const DefaultBrushWidth = 24.0

// RenderMask rasterizes sel into a width x height alpha mask where selected
// pixels are opaque. A nil selection selects the whole image. Coordinates must
// already be in the target pixel space.
func RenderMask(sel *Selection, width, height int, brushWidth float64) (*image.Alpha, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("selection: invalid mask size %dx%d", width, height)
	}
	if brushWidth <= 0 {
		brushWidth = DefaultBrushWidth
	}
	dc := gg.NewContext(width, height)
	dc.SetRGBA(0, 0, 0, 0)
	dc.Clear()
	dc.SetRGBA(1, 1, 1, 1)
	if sel == nil {
		dc.DrawRectangle(0, 0, float64(width), float64(height))
		dc.Fill()
		return dc.AsMask(), nil
	}
	traceShape(dc, sel.Shape, brushWidth)
	return dc.AsMask(), nil
}

// EncodeMaskPNG renders sel as a grayscale PNG (white = selected).
func EncodeMaskPNG(sel *Selection, width, height int, brushWidth float64) ([]byte, error) {
	mask, err := RenderMask(sel, width, height, brushWidth)
	if err != nil {
		return nil, err
	}
	dc := gg.NewContext(width, height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	if err := dc.SetMask(mask); err != nil {
		return nil, fmt.Errorf("selection: apply mask: %w", err)
	}
	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(0, 0, float64(width), float64(height))
	dc.Fill()
	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("selection: encode mask: %w", err)
	}
	return buf.Bytes(), nil
}

// Preview tints the selected region of base. The mask must match base's size.
func Preview(base image.Image, mask *image.Alpha, tintHex string, alpha float64) (image.Image, error) {
	tint, err := colorful.Hex(tintHex)
	if err != nil {
		return nil, fmt.Errorf("selection: preview tint: %w", err)
	}
	dc := gg.NewContextForImage(base)
	if err := dc.SetMask(mask); err != nil {
		return nil, fmt.Errorf("selection: preview mask: %w", err)
	}
	dc.SetRGBA(tint.R, tint.G, tint.B, alpha)
	dc.DrawRectangle(0, 0, float64(dc.Width()), float64(dc.Height()))
	dc.Fill()
	return dc.Image(), nil
}

func traceShape(dc *gg.Context, shape geometry.Shape, lineWidth float64) {
	switch s := shape.(type) {
	case geometry.Rectangle:
		n := s.Normalized()
		dc.DrawRectangle(n.X, n.Y, n.Width, n.Height)
		dc.Fill()
	case geometry.Circle:
		dc.DrawCircle(s.CenterX, s.CenterY, s.Radius)
		dc.Fill()
	case geometry.Freehand:
		if len(s.Points) == 0 {
			return
		}
		if len(s.Points) == 1 {
			dc.DrawCircle(s.Points[0].X, s.Points[0].Y, lineWidth/2)
			dc.Fill()
			return
		}
		dc.SetLineWidth(lineWidth)
		dc.SetLineCapRound()
		dc.SetLineJoinRound()
		dc.MoveTo(s.Points[0].X, s.Points[0].Y)
		for _, p := range s.Points[1:] {
			dc.LineTo(p.X, p.Y)
		}
		dc.Stroke()
	}
}
