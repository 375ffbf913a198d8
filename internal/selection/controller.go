// Package selection implements the canvas controller that turns pointer input
// into a finalized selection shape for the currently loaded image.
package selection

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Knouxai/Knoux-versa-sub002/internal/geometry"
)

// Tool enumerates the drawing tools.
type Tool int

const (
	ToolBrush Tool = iota
	ToolRectangle
	ToolCircle
)

func (t Tool) String() string {
	switch t {
	case ToolBrush:
		return "brush"
	case ToolRectangle:
		return "rectangle"
	case ToolCircle:
		return "circle"
	default:
		return fmt.Sprintf("tool(%d)", int(t))
	}
}

// ParseTool maps a tool name to a Tool.
func ParseTool(name string) (Tool, error) {
	switch name {
	case "brush":
		return ToolBrush, nil
	case "rectangle", "rect":
		return ToolRectangle, nil
	case "circle":
		return ToolCircle, nil
	default:
		return 0, fmt.Errorf("selection: unknown tool %q", name)
	}
}

// State is the controller's position in its state machine.
type State int

const (
	StateNoImage State = iota
	StateIdle
	StateDrawing
)

func (s State) String() string {
	switch s {
	case StateNoImage:
		return "no_image"
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	ErrNoImage        = errors.New("selection: no image loaded")
	ErrDrawInProgress = errors.New("selection: drawing in progress")
)

const (
	DefaultMaxDisplayWidth  = 800
	DefaultMaxDisplayHeight = 600
	// DefaultFrameBudget caps overlay repaints to roughly one per 60Hz frame.
	DefaultFrameBudget = 16 * time.Millisecond
)

// ImageSource identifies the image being edited and its native pixel size.
type ImageSource struct {
	Ref    string
	Width  int
	Height int
}

// Selection is an immutable snapshot of a finalized shape in canvas pixels.
type Selection struct {
	Shape  geometry.Shape
	Bounds geometry.Bounds
}

// Clone returns a deep copy, or nil for a nil selection.
func (s *Selection) Clone() *Selection {
	if s == nil {
		return nil
	}
	return &Selection{Shape: s.Shape.Clone(), Bounds: s.Bounds}
}

// Listener receives finalized selections. A nil selection means "whole image".
type Listener func(sel *Selection)

// Option configures a Controller.
type Option func(*Controller)

// WithMaxDisplay bounds the on-screen canvas size.
func WithMaxDisplay(width, height int) Option {
	return func(c *Controller) { c.maxW, c.maxH = width, height }
}

// WithOverlay attaches the surface that renders the in-progress shape.
func WithOverlay(o Overlay) Option { return func(c *Controller) { c.overlay = o } }

// WithFrameBudget sets the minimum spacing between overlay repaints.
func WithFrameBudget(d time.Duration) Option { return func(c *Controller) { c.frameBudget = d } }

// WithClock injects the time source used by the repaint throttle.
func WithClock(now func() time.Time) Option { return func(c *Controller) { c.now = now } }

// WithLogger sets the controller logger.
func WithLogger(l zerolog.Logger) Option { return func(c *Controller) { c.logger = l } }

// Controller owns the in-progress shape of one editing session.
type Controller struct {
	mu sync.Mutex

	state   State
	tool    Tool
	image   ImageSource
	display geometry.Display

	start   geometry.Point
	current geometry.Point
	path    []geometry.Point
	painted int

	selection *Selection
	listeners map[int]Listener
	nextID    int

	overlay     Overlay
	limiter     *rate.Limiter
	frameBudget time.Duration
	maxW, maxH  int
	now         func() time.Time
	logger      zerolog.Logger
}

// NewController creates a controller in StateNoImage with the brush tool.
func NewController(opts ...Option) *Controller {
	c := &Controller{
		tool:        ToolBrush,
		listeners:   make(map[int]Listener),
		frameBudget: DefaultFrameBudget,
		maxW:        DefaultMaxDisplayWidth,
		maxH:        DefaultMaxDisplayHeight,
		now:         time.Now,
		logger:      zerolog.New(io.Discard),
	}
	for _, o := range opts {
		o(c)
	}
	if c.overlay == nil {
		c.overlay = NopOverlay{}
	}
	c.limiter = rate.NewLimiter(rate.Every(c.frameBudget), 1)
	return c
}

// Subscribe registers l and returns a function that removes it.
func (c *Controller) Subscribe(l Listener) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = l
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// LoadImage sizes the canvas for src and discards any previous selection.
func (c *Controller) LoadImage(src ImageSource) (geometry.Display, error) {
	display, err := geometry.FitWithin(src.Width, src.Height, c.maxW, c.maxH)
	if err != nil {
		return geometry.Display{}, fmt.Errorf("selection: load image: %w", err)
	}
	c.mu.Lock()
	hadSelection := c.selection != nil
	c.image = src
	c.display = display
	c.state = StateIdle
	c.selection = nil
	c.resetDraftLocked()
	c.overlay.Resize(display)
	c.overlay.Clear()
	listeners := c.snapshotListenersLocked()
	c.mu.Unlock()

	c.logger.Debug().
		Str("image", src.Ref).
		Int("width", display.Width).
		Int("height", display.Height).
		Float64("scale", display.Scale).
		Msg("selection: image loaded")
	if hadSelection {
		notify(listeners, nil)
	}
	return display, nil
}

// SelectTool switches the drawing tool. An existing selection is kept until
// the next gesture starts.
func (c *Controller) SelectTool(t Tool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case StateNoImage:
		return ErrNoImage
	case StateDrawing:
		return ErrDrawInProgress
	}
	c.tool = t
	return nil
}

// PointerDown starts a gesture. It is ignored without an image, while already
// drawing, or for non-finite coordinates.
func (c *Controller) PointerDown(p geometry.Point) {
	c.mu.Lock()
	if c.state != StateIdle || !p.Finite() {
		c.mu.Unlock()
		return
	}
	p = c.display.Clamp(p)
	hadSelection := c.selection != nil
	c.selection = nil
	c.resetDraftLocked()
	c.state = StateDrawing
	c.start, c.current = p, p
	c.overlay.Clear()
	if c.tool == ToolBrush {
		c.path = append(c.path, p)
		c.paintLocked(true)
	}
	listeners := c.snapshotListenersLocked()
	c.mu.Unlock()

	if hadSelection {
		notify(listeners, nil)
	}
}

// PointerMove extends the gesture and repaints the overlay at most once per
// frame budget. Brush strokes only send the segments added since the last paint.
func (c *Controller) PointerMove(p geometry.Point) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDrawing || !p.Finite() {
		return
	}
	p = c.display.Clamp(p)
	c.current = p
	if c.tool == ToolBrush {
		c.path = append(c.path, p)
	}
	c.paintLocked(false)
}

// PointerUp finalizes the gesture and emits the selection to listeners.
func (c *Controller) PointerUp(p geometry.Point) {
	c.mu.Lock()
	if c.state != StateDrawing {
		c.mu.Unlock()
		return
	}
	if p.Finite() {
		p = c.display.Clamp(p)
		c.current = p
		if c.tool == ToolBrush && (len(c.path) == 0 || c.path[len(c.path)-1] != p) {
			c.path = append(c.path, p)
		}
	}
	c.paintLocked(true)

	shape := c.draftShapeLocked()
	if r, ok := shape.(geometry.Rectangle); ok {
		shape = r.Normalized()
	}
	c.state = StateIdle
	bounds, err := geometry.ComputeBounds(shape)
	if err != nil {
		c.logger.Warn().Err(err).Str("tool", c.tool.String()).Msg("selection: discarding invalid shape")
		c.resetDraftLocked()
		c.overlay.Clear()
		c.mu.Unlock()
		return
	}
	c.selection = &Selection{Shape: shape, Bounds: bounds}
	c.resetDraftLocked()
	emitted := c.selection.Clone()
	listeners := c.snapshotListenersLocked()
	c.mu.Unlock()

	notify(listeners, emitted)
}

// PointerCancel abandons the current gesture without emitting anything.
func (c *Controller) PointerCancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateDrawing {
		return
	}
	c.state = StateIdle
	c.resetDraftLocked()
	c.overlay.Clear()
}

// Clear discards the selection (or the gesture in progress) and emits nil.
func (c *Controller) Clear() {
	c.mu.Lock()
	if c.state == StateNoImage || (c.state == StateIdle && c.selection == nil) {
		c.mu.Unlock()
		return
	}
	c.state = StateIdle
	c.selection = nil
	c.resetDraftLocked()
	c.overlay.Clear()
	listeners := c.snapshotListenersLocked()
	c.mu.Unlock()

	notify(listeners, nil)
}

// Selection returns a copy of the finalized selection, or nil.
func (c *Controller) Selection() *Selection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection.Clone()
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Tool returns the active tool.
func (c *Controller) Tool() Tool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tool
}

// Display returns the fitted canvas size of the loaded image.
func (c *Controller) Display() geometry.Display {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.display
}

// Image returns the loaded image source.
func (c *Controller) Image() (ImageSource, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.image, c.state != StateNoImage
}

func (c *Controller) draftShapeLocked() geometry.Shape {
	switch c.tool {
	case ToolRectangle:
		return geometry.RectFromCorners(c.start, c.current)
	case ToolCircle:
		return geometry.CircleFromDrag(c.start, c.current)
	default:
		return geometry.Freehand{Points: append([]geometry.Point(nil), c.path...)}
	}
}

// paintLocked pushes the draft to the overlay when the frame budget allows it
// or when force is set.
func (c *Controller) paintLocked(force bool) {
	if !force && !c.limiter.AllowN(c.now(), 1) {
		return
	}
	switch c.tool {
	case ToolBrush:
		if c.painted >= len(c.path) {
			return
		}
		// Restart at the last painted point so batches join. Overlays must draw
		// the shared point idempotently.
		from := max(c.painted-1, 0)
		c.overlay.DrawSegments(append([]geometry.Point(nil), c.path[from:]...))
		c.painted = len(c.path)
	default:
		c.overlay.DrawShape(c.draftShapeLocked())
	}
}

func (c *Controller) resetDraftLocked() {
	c.path = nil
	c.painted = 0
	c.start, c.current = geometry.Point{}, geometry.Point{}
}

func (c *Controller) snapshotListenersLocked() []Listener {
	out := make([]Listener, 0, len(c.listeners))
	for id := 0; id < c.nextID; id++ {
		if l, ok := c.listeners[id]; ok {
			out = append(out, l)
		}
	}
	return out
}

func notify(listeners []Listener, sel *Selection) {
	for _, l := range listeners {
		l(sel.Clone())
	}
}
