package sptarget

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"

	"oss.terrastruct.com/sketchpad/lib/geo"
	"oss.terrastruct.com/sketchpad/lib/shape"
)

const (
	DEFAULT_COLOR    = "#3B82F6"
	DEFAULT_SIZE     = 100
	DEFAULT_ROTATION = 0
	DEFAULT_OPACITY  = 1.

	MIN_SIZE = 20
	MAX_SIZE = 200

	CANVAS_WIDTH      = 800
	CANVAS_HEIGHT     = 600
	GRID_SIZE         = 20
	CANVAS_BACKGROUND = "#2D2D2D"
	GRID_COLOR        = "#808080"
	GRID_OPACITY      = 0.2

	// Duplicates are placed this far right and down of the original.
	DuplicateOffset = 20

	ExportFilename = "canvas-export.png"
)

type Kind string

const (
	KindCircle    Kind = shape.CIRCLE_TYPE
	KindRectangle Kind = shape.RECTANGLE_TYPE
	KindTriangle  Kind = shape.TRIANGLE_TYPE
	KindStar      Kind = shape.STAR_TYPE
)

var Kinds = []Kind{
	KindCircle,
	KindRectangle,
	KindTriangle,
	KindStar,
}

func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, string(k)) {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown shape kind %q, expected one of circle, rectangle, triangle, star", s)
}

type Style struct {
	Color    string  `json:"color" yaml:"color"`
	Size     int     `json:"size" yaml:"size"`
	Rotation int     `json:"rotation" yaml:"rotation"`
	Opacity  float64 `json:"opacity" yaml:"opacity"`
}

func DefaultStyle() Style {
	return Style{
		Color:    DEFAULT_COLOR,
		Size:     DEFAULT_SIZE,
		Rotation: DEFAULT_ROTATION,
		Opacity:  DEFAULT_OPACITY,
	}
}

// StylePatch is a partial Style. Nil fields are left alone by Apply.
type StylePatch struct {
	Color    *string  `json:"color,omitempty" yaml:"color,omitempty"`
	Size     *int     `json:"size,omitempty" yaml:"size,omitempty"`
	Rotation *int     `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Opacity  *float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
}

func (p StylePatch) IsEmpty() bool {
	return p.Color == nil && p.Size == nil && p.Rotation == nil && p.Opacity == nil
}

// Clamp brings every set field into the range the properties panel allows:
// size [20,200], rotation [0,360) and opacity [0,1].
func (p StylePatch) Clamp() StylePatch {
	if p.Size != nil {
		v := *p.Size
		if v < MIN_SIZE {
			v = MIN_SIZE
		} else if v > MAX_SIZE {
			v = MAX_SIZE
		}
		p.Size = &v
	}
	if p.Rotation != nil {
		v := *p.Rotation % 360
		if v < 0 {
			v += 360
		}
		p.Rotation = &v
	}
	if p.Opacity != nil {
		v := geo.Clamp(*p.Opacity, 0, 1)
		p.Opacity = &v
	}
	return p
}

func (s Style) Apply(p StylePatch) Style {
	if p.Color != nil {
		s.Color = *p.Color
	}
	if p.Size != nil {
		s.Size = *p.Size
	}
	if p.Rotation != nil {
		s.Rotation = *p.Rotation
	}
	if p.Opacity != nil {
		s.Opacity = *p.Opacity
	}
	return s
}

// Shape holds no pointers so that assigning a Shape copies it entirely.
type Shape struct {
	ID       string    `json:"id"`
	Kind     Kind      `json:"kind"`
	Position geo.Point `json:"position"`
	Style    Style     `json:"style"`
}

func (s Shape) Box() *geo.Box {
	size := float64(s.Style.Size)
	return geo.NewBox(geo.NewPoint(s.Position.X, s.Position.Y), size, size)
}

func (s Shape) Center() geo.Point {
	return *s.Box().Center()
}

// Geometry returns the drawable outline of s, placed on the canvas.
func (s Shape) Geometry() shape.Shape {
	g, err := shape.New(string(s.Kind), s.Box())
	if err != nil {
		// Kinds are validated at the input boundary.
		panic(err)
	}
	g.SetRotation(float64(s.Style.Rotation))
	return g
}

func CopyShapes(shapes []Shape) []Shape {
	if shapes == nil {
		return []Shape{}
	}
	out := make([]Shape, len(shapes))
	copy(out, shapes)
	return out
}

type Document struct {
	Shapes []Shape `json:"shapes"`
	// Empty when nothing is selected.
	SelectedID string `json:"selectedID"`
}

func NewDocument() *Document {
	return &Document{
		Shapes: []Shape{},
	}
}

func (d Document) Copy() *Document {
	return &Document{
		Shapes:     CopyShapes(d.Shapes),
		SelectedID: d.SelectedID,
	}
}

func (d Document) Index(id string) int {
	if id == "" {
		return -1
	}
	for i, s := range d.Shapes {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func (d Document) Find(id string) (Shape, bool) {
	i := d.Index(id)
	if i == -1 {
		return Shape{}, false
	}
	return d.Shapes[i], true
}

func (d Document) Bytes() ([]byte, error) {
	return json.Marshal(d)
}

// ExportID identifies what an export of d looks like on c with or without the
// grid. The selection does not change it.
func (d Document) ExportID(c Canvas, showGrid bool) (string, error) {
	b, err := json.Marshal(struct {
		Shapes   []Shape `json:"shapes"`
		Canvas   Canvas  `json:"canvas"`
		ShowGrid bool    `json:"showGrid"`
	}{d.Shapes, c, showGrid})
	if err != nil {
		return "", err
	}
	h := fnv.New64a()
	h.Write(b)
	return fmt.Sprintf("sp-%x", h.Sum64()), nil
}

type Canvas struct {
	Width      int    `json:"width" yaml:"width"`
	Height     int    `json:"height" yaml:"height"`
	GridSize   int    `json:"gridSize" yaml:"gridSize"`
	Background string `json:"background" yaml:"background"`
}

func DefaultCanvas() Canvas {
	return Canvas{
		Width:      CANVAS_WIDTH,
		Height:     CANVAS_HEIGHT,
		GridSize:   GRID_SIZE,
		Background: CANVAS_BACKGROUND,
	}
}

// Centered returns the top-left position that centers a box of the given size.
func (c Canvas) Centered(size int) geo.Point {
	return geo.Point{
		X: float64(c.Width-size) / 2,
		Y: float64(c.Height-size) / 2,
	}
}

// GridLines returns the offsets of the vertical and horizontal grid lines:
// every GridSize pixels starting at 0, the far edges excluded.
func (c Canvas) GridLines() (xs, ys []int) {
	if c.GridSize <= 0 {
		return nil, nil
	}
	for x := 0; x < c.Width; x += c.GridSize {
		xs = append(xs, x)
	}
	for y := 0; y < c.Height; y += c.GridSize {
		ys = append(ys, y)
	}
	return xs, ys
}
