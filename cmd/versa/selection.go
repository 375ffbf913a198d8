package main

import (
	"fmt"
	"image/png"
	"os"
	"strconv"
	"strings"

	"github.com/Knouxai/Knoux-versa-sub002/internal/geometry"
	"github.com/Knouxai/Knoux-versa-sub002/internal/selection"
)

// gesture is a selection drawn in native image pixels, replayed through the
// canvas controller as pointer events.
type gesture struct {
	tool   selection.Tool
	points []geometry.Point
}

func parseFloats(v string, n int) ([]float64, error) {
	parts := strings.Split(v, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma separated numbers, got %q", n, v)
	}
	out := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", p, err)
		}
		out[i] = f
	}
	return out, nil
}

// parseGesture reads at most one of the -rect, -circle and -brush flags.
func parseGesture(rect, circle, brush string) (*gesture, error) {
	set := 0
	for _, v := range []string{rect, circle, brush} {
		if v != "" {
			set++
		}
	}
	switch {
	case set == 0:
		return nil, nil
	case set > 1:
		return nil, fmt.Errorf("use only one of -rect, -circle and -brush")
	}
	switch {
	case rect != "":
		f, err := parseFloats(rect, 4)
		if err != nil {
			return nil, fmt.Errorf("-rect: %w", err)
		}
		return &gesture{tool: selection.ToolRectangle, points: []geometry.Point{
			{X: f[0], Y: f[1]},
			{X: f[0] + f[2], Y: f[1] + f[3]},
		}}, nil
	case circle != "":
		f, err := parseFloats(circle, 3)
		if err != nil {
			return nil, fmt.Errorf("-circle: %w", err)
		}
		return &gesture{tool: selection.ToolCircle, points: []geometry.Point{
			{X: f[0], Y: f[1]},
			{X: f[0] + f[2], Y: f[1]},
		}}, nil
	default:
		var pts []geometry.Point
		for _, pair := range strings.Split(brush, ";") {
			if strings.TrimSpace(pair) == "" {
				continue
			}
			f, err := parseFloats(pair, 2)
			if err != nil {
				return nil, fmt.Errorf("-brush: %w", err)
			}
			pts = append(pts, geometry.Point{X: f[0], Y: f[1]})
		}
		if len(pts) == 0 {
			return nil, fmt.Errorf("-brush: no points")
		}
		return &gesture{tool: selection.ToolBrush, points: pts}, nil
	}
}

// draw replays g on a controller sized for the image and returns the
// finalized selection in canvas pixels with the display it was drawn on.
func (g *gesture) draw(src selection.ImageSource, overlay selection.Overlay) (*selection.Selection, geometry.Display, error) {
	opts := []selection.Option{}
	if overlay != nil {
		opts = append(opts, selection.WithOverlay(overlay))
	}
	ctrl := selection.NewController(opts...)
	var final *selection.Selection
	unsubscribe := ctrl.Subscribe(func(sel *selection.Selection) { final = sel })
	defer unsubscribe()

	display, err := ctrl.LoadImage(src)
	if err != nil {
		return nil, geometry.Display{}, err
	}
	if err := ctrl.SelectTool(g.tool); err != nil {
		return nil, geometry.Display{}, err
	}
	first, last := g.points[0], g.points[len(g.points)-1]
	ctrl.PointerDown(display.ToCanvas(first))
	for i := 1; i < len(g.points)-1; i++ {
		ctrl.PointerMove(display.ToCanvas(g.points[i]))
	}
	ctrl.PointerUp(display.ToCanvas(last))
	if final == nil {
		return nil, display, fmt.Errorf("selection is empty")
	}
	return final, display, nil
}

func writeOverlay(path string, o *selection.RasterOverlay) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, o.Image()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
