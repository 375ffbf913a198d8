package selection

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/fogleman/gg"
	"github.com/lucasb-eyer/go-colorful"

	"github.com/Knouxai/Knoux-versa-sub002/internal/geometry"
)

// Overlay renders the in-progress selection above the image.
type Overlay interface {
	// Resize matches the overlay to the fitted canvas of a new image.
	Resize(d geometry.Display)
	// Clear erases everything drawn so far.
	Clear()
	// DrawSegments appends brush segments joining consecutive points.
	DrawSegments(points []geometry.Point)
	// DrawShape replaces the preview with shape.
	DrawShape(shape geometry.Shape)
}

// NopOverlay discards every call.
type NopOverlay struct{}

func (NopOverlay) Resize(geometry.Display) {}
func (NopOverlay) Clear() {}
func (NopOverlay) DrawSegments([]geometry.Point) {}
func (NopOverlay) DrawShape(geometry.Shape) {}

// DefaultTint is the overlay colour used for selections.
const DefaultTint = "#8b5cf6"

// RasterOverlay draws the selection preview into an RGBA image. Brush segments
// are stroked onto the existing raster, so the cost of a repaint depends on the
// new segments only. Strokes are laid down opaque and the translucency is
// applied when the raster is read, so batches that share an end point do not
// darken where they overlap.
type RasterOverlay struct {
	mu        sync.Mutex
	dc        *gg.Context
	tint      colorful.Color
	alpha     float64
	lineWidth float64
}

// NewRasterOverlay parses the hex tint and prepares an empty 1x1 surface until
// Resize is called.
func NewRasterOverlay(tintHex string, alpha, lineWidth float64) (*RasterOverlay, error) {
	if tintHex == "" {
		tintHex = DefaultTint
	}
	tint, err := colorful.Hex(tintHex)
	if err != nil {
		return nil, fmt.Errorf("selection: overlay tint: %w", err)
	}
	if alpha <= 0 || alpha > 1 {
		alpha = 0.5
	}
	if lineWidth <= 0 {
		lineWidth = DefaultBrushWidth
	}
	return &RasterOverlay{dc: gg.NewContext(1, 1), tint: tint, alpha: alpha, lineWidth: lineWidth}, nil
}

func (o *RasterOverlay) Resize(d geometry.Display) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.dc = gg.NewContext(max(d.Width, 1), max(d.Height, 1))
}

func (o *RasterOverlay) Clear() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clearLocked()
}

func (o *RasterOverlay) clearLocked() {
	o.dc.SetRGBA(0, 0, 0, 0)
	o.dc.Clear()
}

func (o *RasterOverlay) DrawSegments(points []geometry.Point) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(points) == 0 {
		return
	}
	o.setPaintLocked()
	o.dc.SetLineWidth(o.lineWidth)
	o.dc.SetLineCapRound()
	o.dc.SetLineJoinRound()
	if len(points) == 1 {
		o.dc.DrawCircle(points[0].X, points[0].Y, o.lineWidth/2)
		o.dc.Fill()
		return
	}
	o.dc.MoveTo(points[0].X, points[0].Y)
	for _, p := range points[1:] {
		o.dc.LineTo(p.X, p.Y)
	}
	o.dc.Stroke()
}

func (o *RasterOverlay) DrawShape(shape geometry.Shape) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.clearLocked()
	o.setPaintLocked()
	traceShape(o.dc, shape, o.lineWidth)
}

// Image returns a copy of the current overlay raster.
func (o *RasterOverlay) Image() image.Image {
	o.mu.Lock()
	defer o.mu.Unlock()
	src := o.dc.Image()
	dst := image.NewRGBA(src.Bounds())
	opacity := image.NewUniform(color.Alpha{A: uint8(o.alpha*255 + 0.5)})
	draw.DrawMask(dst, dst.Bounds(), src, src.Bounds().Min, opacity, image.Point{}, draw.Src)
	return dst
}

func (o *RasterOverlay) setPaintLocked() {
	o.dc.SetRGBA(o.tint.R, o.tint.G, o.tint.B, 1)
}

var (
	_ Overlay = NopOverlay{}
	_ Overlay = (*RasterOverlay)(nil)
)
