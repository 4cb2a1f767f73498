package shape

import (
	"fmt"

	"oss.terrastruct.com/sketchpad/lib/geo"
)

const (
	CIRCLE_TYPE    = "circle"
	RECTANGLE_TYPE = "rectangle"
	TRIANGLE_TYPE  = "triangle"
	STAR_TYPE      = "star"
)

type Shape interface {
	Is(shape string) bool
	GetType() string

	GetBox() *geo.Box
	GetRotation() float64
	SetRotation(degrees float64)

	// Outline is the shape's geometry centered on the local origin, before placement.
	Outline() *Path
	// Placement maps local outline coordinates onto the canvas.
	Placement() geo.Matrix
	// Contains reports whether the canvas point lies inside the placed outline.
	Contains(p geo.Point) bool

	GetSVGPathData() string
}

type baseShape struct {
	Type     string
	Box      *geo.Box
	Rotation float64

	outline func(h float64) *Path
}

func (s *baseShape) Is(shapeType string) bool {
	return s.Type == shapeType
}

func (s *baseShape) GetType() string {
	return s.Type
}

func (s *baseShape) GetBox() *geo.Box {
	return s.Box
}

func (s *baseShape) GetRotation() float64 {
	return s.Rotation
}

func (s *baseShape) SetRotation(degrees float64) {
	s.Rotation = degrees
}

// halfSize is h in the outline definitions. Shapes are always square, width wins otherwise.
func (s *baseShape) halfSize() float64 {
	return s.Box.Width / 2
}

func (s *baseShape) Outline() *Path {
	return s.outline(s.halfSize())
}

func (s *baseShape) Placement() geo.Matrix {
	c := s.Box.Center()
	return geo.Identity().Translate(c.X, c.Y).Rotate(s.Rotation)
}

func (s *baseShape) Contains(p geo.Point) bool {
	inv, ok := s.Placement().Invert()
	if !ok {
		return false
	}
	local := inv.Apply(p)
	if local.X < -s.halfSize() || local.X > s.halfSize() || local.Y < -s.halfSize() || local.Y > s.halfSize() {
		return false
	}
	return s.Outline().Flatten().Contains(local)
}

func (s *baseShape) GetSVGPathData() string {
	return s.Outline().SVGData()
}

func New(shapeType string, box *geo.Box) (Shape, error) {
	switch shapeType {
	case CIRCLE_TYPE:
		return NewCircle(box), nil
	case RECTANGLE_TYPE:
		return NewRectangle(box), nil
	case TRIANGLE_TYPE:
		return NewTriangle(box), nil
	case STAR_TYPE:
		return NewStar(box), nil
	}
	return nil, fmt.Errorf("unknown shape type %q", shapeType)
}
