package geometry

// ShapeKind tags the concrete type of a Shape.
type ShapeKind string

const (
	KindRectangle ShapeKind = "rectangle"
	KindCircle    ShapeKind = "circle"
	KindFreehand  ShapeKind = "freehand"
)

// Shape is the closed set of selection shapes: Rectangle, Circle and Freehand.
type Shape interface {
	Kind() ShapeKind
	// Clone returns a deep copy that shares no memory with the receiver.
	Clone() Shape
	// Scaled returns a copy with every coordinate multiplied by f.
	Scaled(f float64) Shape
	// Validate rejects non-finite coordinates and degenerate input.
	Validate() error

	shape()
}

// Rectangle is stored as drawn: Width and Height are negative when the drag
// ended above or left of its start corner.
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// RectFromCorners builds the rectangle spanned by a drag from start to end.
func RectFromCorners(start, end Point) Rectangle {
	return Rectangle{X: start.X, Y: start.Y, Width: end.X - start.X, Height: end.Y - start.Y}
}

func (Rectangle) Kind() ShapeKind { return KindRectangle }
func (r Rectangle) Clone() Shape { return r }
func (Rectangle) shape() {}

func (r Rectangle) Scaled(f float64) Shape {
	return Rectangle{X: r.X * f, Y: r.Y * f, Width: r.Width * f, Height: r.Height * f}
}

func (r Rectangle) Validate() error {
	if !allFinite(r.X, r.Y, r.Width, r.Height) {
		return ErrNonFinite
	}
	return nil
}

// Normalized returns the same region with non-negative width and height.
func (r Rectangle) Normalized() Rectangle {
	x0, x1 := minMax(r.X, r.X+r.Width)
	y0, y1 := minMax(r.Y, r.Y+r.Height)
	return Rectangle{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// Circle is a center and a non-negative radius.
type Circle struct {
	CenterX float64 `json:"centerX"`
	CenterY float64 `json:"centerY"`
	Radius  float64 `json:"radius"`
}

// CircleFromDrag builds the circle centred on center whose edge passes through edge.
func CircleFromDrag(center, edge Point) Circle {
	return Circle{CenterX: center.X, CenterY: center.Y, Radius: center.Distance(edge)}
}

func (Circle) Kind() ShapeKind { return KindCircle }
func (c Circle) Clone() Shape { return c }
func (Circle) shape() {}

func (c Circle) Scaled(f float64) Shape {
	return Circle{CenterX: c.CenterX * f, CenterY: c.CenterY * f, Radius: c.Radius * f}
}

func (c Circle) Validate() error {
	if !allFinite(c.CenterX, c.CenterY, c.Radius) {
		return ErrNonFinite
	}
	if c.Radius < 0 {
		return ErrInvalidSize
	}
	return nil
}

// Freehand is an ordered brush path.
type Freehand struct {
	Points []Point `json:"points"`
}

func (Freehand) Kind() ShapeKind { return KindFreehand }
func (Freehand) shape() {}

func (f Freehand) Clone() Shape {
	return Freehand{Points: append([]Point(nil), f.Points...)}
}

func (f Freehand) Scaled(factor float64) Shape {
	points := make([]Point, len(f.Points))
	for i, p := range f.Points {
		points[i] = p.Scale(factor)
	}
	return Freehand{Points: points}
}

func (f Freehand) Validate() error {
	if len(f.Points) == 0 {
		return ErrEmptyPath
	}
	for _, p := range f.Points {
		if !p.Finite() {
			return ErrNonFinite
		}
	}
	return nil
}

var (
	_ Shape = Rectangle{}
	_ Shape = Circle{}
	_ Shape = Freehand{}
)
