// Package filters runs deterministic local image filters keyed by tool id.
// A selection restricts every filter to the masked region.
package filters

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"github.com/Knouxai/Knoux-versa-sub002/internal/domain"
	"github.com/Knouxai/Knoux-versa-sub002/internal/geometry"
	"github.com/Knouxai/Knoux-versa-sub002/internal/infra"
	"github.com/Knouxai/Knoux-versa-sub002/internal/selection"
)

// ErrUnsupportedTool is returned for tool ids without a registered filter.
var ErrUnsupportedTool = errors.New("filters: unsupported tool")

// Job is one filter invocation. Selection is in native pixel space.
type Job struct {
	ToolID     string
	Prompt     string
	Quality    domain.Quality
	Source     image.Image
	Second     image.Image
	Selection  geometry.Shape
	BrushWidth float64
	Settings   domain.Settings
}

// Filter produces the transformed image. mask is nil for whole-image jobs.
type Filter func(ctx context.Context, job Job, mask *image.Alpha) (image.Image, error)

// Engine dispatches jobs to registered filters.
type Engine struct {
	mu      sync.RWMutex
	filters map[string]Filter
	logger  *infra.Logger
}

// NewEngine returns an engine with the built-in filters registered.
func NewEngine(logger *infra.Logger) *Engine {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	e := &Engine{filters: make(map[string]Filter), logger: logger}
	for id, f := range builtin() {
		e.filters[id] = f
	}
	return e
}

// Register adds or replaces the filter for toolID.
func (e *Engine) Register(toolID string, f Filter) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.filters[toolID] = f
}

// Supports reports whether toolID has a filter.
func (e *Engine) Supports(toolID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.filters[toolID]
	return ok
}

// Tools lists registered tool ids in order.
func (e *Engine) Tools() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.filters))
	for id := range e.filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Apply runs the filter for job.ToolID, reporting coarse progress.
func (e *Engine) Apply(ctx context.Context, job Job, report func(float64)) (image.Image, error) {
	if report == nil {
		report = func(float64) {}
	}
	e.mu.RLock()
	f, ok := e.filters[job.ToolID]
	e.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTool, job.ToolID)
	}
	if job.Source == nil {
		return nil, errors.New("filters: source image is required")
	}
	bounds := job.Source.Bounds()
	var mask *image.Alpha
	if job.Selection != nil {
		m, err := selection.RenderMask(&selection.Selection{Shape: job.Selection}, bounds.Dx(), bounds.Dy(), job.BrushWidth)
		if err != nil {
			return nil, fmt.Errorf("filters: render mask: %w", err)
		}
		mask = m
	}
	report(0.1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := f(ctx, job, mask)
	if err != nil {
		return nil, fmt.Errorf("filters: %s: %w", job.ToolID, err)
	}
	report(0.9)
	e.logger.Debug().
		Str("tool", job.ToolID).
		Bool("masked", mask != nil).
		Int("width", out.Bounds().Dx()).
		Int("height", out.Bounds().Dy()).
		Msg("filters: applied")
	return out, nil
}

// Composite blends effect over base where mask is opaque. A nil mask
// returns effect unchanged.
func Composite(base, effect image.Image, mask *image.Alpha) image.Image {
	if mask == nil {
		return effect
	}
	dst := imaging.Clone(base)
	draw.DrawMask(dst, dst.Bounds(), effect, effect.Bounds().Min, mask, mask.Bounds().Min, draw.Over)
	return dst
}

// Feather softens mask edges with a gaussian of the given sigma.
func Feather(mask *image.Alpha, sigma float64) *image.Alpha {
	if mask == nil || sigma <= 0 {
		return mask
	}
	blurred := imaging.Blur(mask, sigma)
	out := image.NewAlpha(mask.Bounds())
	draw.Draw(out, out.Bounds(), blurred, blurred.Bounds().Min, draw.Src)
	return out
}
