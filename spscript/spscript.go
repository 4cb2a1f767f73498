// Package spscript replays a recorded editing session, written in YAML, onto a
// Controller.
//
//	canvas: {width: 800, height: 600}
//	grid: true
//	events:
//	  - add: circle
//	  - press: [450, 350]
//	  - move: [760, 560]
//	  - release: true
//	  - key: ctrl+z
package spscript

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"cdr.dev/slog"
	"gopkg.in/yaml.v3"

	"oss.terrastruct.com/xdefer"

	"oss.terrastruct.com/sketchpad/lib/color"
	"oss.terrastruct.com/sketchpad/lib/geo"
	"oss.terrastruct.com/sketchpad/lib/log"
	"oss.terrastruct.com/sketchpad/spinput"
	"oss.terrastruct.com/sketchpad/spstate"
	"oss.terrastruct.com/sketchpad/sptarget"
)

type Script struct {
	Canvas *CanvasConfig `yaml:"canvas,omitempty"`
	Grid   *bool         `yaml:"grid,omitempty"`
	Snap   *bool         `yaml:"snap,omitempty"`
	Events []Event       `yaml:"events"`
}

type CanvasConfig struct {
	Width      int    `yaml:"width,omitempty"`
	Height     int    `yaml:"height,omitempty"`
	GridSize   int    `yaml:"grid_size,omitempty"`
	Background string `yaml:"background,omitempty"`
}

// Point is a screen position written as [x, y].
type Point [2]float64

func (p Point) geo() geo.Point {
	return geo.Point{X: p[0], Y: p[1]}
}

// StyleEvent is a properties panel edit. Opacity is in percent, like the panel's
// slider.
type StyleEvent struct {
	Color    *string  `json:"color,omitempty" yaml:"color,omitempty"`
	Size     *int     `json:"size,omitempty" yaml:"size,omitempty"`
	Rotation *int     `json:"rotation,omitempty" yaml:"rotation,omitempty"`
	Opacity  *float64 `json:"opacity,omitempty" yaml:"opacity,omitempty"`
}

// Validate rejects colors that are not valid CSS colors and edits that set
// nothing.
func (e StyleEvent) Validate() error {
	if e.Color != nil && !color.IsValid(*e.Color) {
		return fmt.Errorf("invalid color %q", *e.Color)
	}
	if (sptarget.StylePatch{Color: e.Color, Size: e.Size, Rotation: e.Rotation, Opacity: e.Opacity}).IsEmpty() {
		return fmt.Errorf("style event sets nothing")
	}
	return nil
}

func (e StyleEvent) Patch() sptarget.StylePatch {
	p := sptarget.StylePatch{
		Color:    e.Color,
		Size:     e.Size,
		Rotation: e.Rotation,
	}
	if e.Opacity != nil {
		o := *e.Opacity / 100
		p.Opacity = &o
	}
	return p.Clamp()
}

// Event holds exactly one action.
type Event struct {
	Add         *string     `yaml:"add,omitempty"`
	Style       *StyleEvent `yaml:"style,omitempty"`
	CommitStyle *bool       `yaml:"commit_style,omitempty"`
	Press       *Point      `yaml:"press,omitempty"`
	Move        *Point      `yaml:"move,omitempty"`
	Release     *bool       `yaml:"release,omitempty"`
	Click       *Point      `yaml:"click,omitempty"`
	Select      *int        `yaml:"select,omitempty"`
	Key         *string     `yaml:"key,omitempty"`
	ToggleGrid  *bool       `yaml:"toggle_grid,omitempty"`
	ToggleSnap  *bool       `yaml:"toggle_snap,omitempty"`
	Origin      *Point      `yaml:"origin,omitempty"`

	line int
	kind sptarget.Kind
	key  spinput.KeyEvent
}

func (e *Event) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping with one action", value.Line)
	}
	if n := len(value.Content) / 2; n != 1 {
		return fmt.Errorf("line %d: expected exactly one action, got %d", value.Line, n)
	}
	type plain Event
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*e = Event(p)
	e.line = value.Line
	if e.Action() == "" {
		return fmt.Errorf("line %d: unknown action %q", value.Line, value.Content[0].Value)
	}
	return nil
}

// Action returns the yaml name of the event's action.
func (e Event) Action() string {
	v := reflect.ValueOf(e)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || v.Field(i).IsNil() {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		return name
	}
	return ""
}

func (e Event) Line() int {
	return e.line
}

func Parse(b []byte) (_ *Script, err error) {
	defer xdefer.Errorf(&err, "failed to parse script")

	var s Script
	err = yaml.Unmarshal(b, &s)
	if err != nil {
		return nil, err
	}
	if s.Canvas != nil {
		if s.Canvas.Width < 0 || s.Canvas.Height < 0 || s.Canvas.GridSize < 0 {
			return nil, fmt.Errorf("canvas dimensions must be positive")
		}
		if s.Canvas.Background != "" && !color.IsValid(s.Canvas.Background) {
			return nil, fmt.Errorf("invalid canvas background %q", s.Canvas.Background)
		}
	}
	for i := range s.Events {
		err = s.Events[i].validate()
		if err != nil {
			return nil, fmt.Errorf("event %d (line %d): %w", i, s.Events[i].line, err)
		}
	}
	return &s, nil
}

func (e *Event) validate() error {
	switch {
	case e.Add != nil:
		k, err := sptarget.ParseKind(*e.Add)
		if err != nil {
			return err
		}
		e.kind = k
	case e.Key != nil:
		k, err := spinput.ParseKey(*e.Key)
		if err != nil {
			return err
		}
		e.key = k
	case e.Style != nil:
		return e.Style.Validate()
	case e.Select != nil:
		if *e.Select < 0 {
			return fmt.Errorf("invalid layer index %d", *e.Select)
		}
	}
	return nil
}

// CanvasOver merges the script's canvas settings over base.
func (s *Script) CanvasOver(base sptarget.Canvas) sptarget.Canvas {
	if s.Canvas == nil {
		return base
	}
	if s.Canvas.Width > 0 {
		base.Width = s.Canvas.Width
	}
	if s.Canvas.Height > 0 {
		base.Height = s.Canvas.Height
	}
	if s.Canvas.GridSize > 0 {
		base.GridSize = s.Canvas.GridSize
	}
	if s.Canvas.Background != "" {
		base.Background = s.Canvas.Background
	}
	return base
}

// SessionOpts returns options for a Session matching the script's settings.
func (s *Script) SessionOpts(base sptarget.Canvas) *spstate.Opts {
	canvas := s.CanvasOver(base)
	opts := &spstate.Opts{
		Canvas: &canvas,
	}
	if s.Grid != nil {
		opts.ShowGrid = *s.Grid
	}
	if s.Snap != nil {
		opts.SnapToGrid = *s.Snap
	}
	return opts
}

// Run replays the script's events in order.
func Run(ctx context.Context, s *Script, c *spinput.Controller) (err error) {
	defer xdefer.Errorf(&err, "failed to run script")

	for i, e := range s.Events {
		if err := ctx.Err(); err != nil {
			return err
		}
		err = apply(c, e)
		if err != nil {
			return fmt.Errorf("event %d (line %d): %w", i, e.line, err)
		}
		log.Debug(ctx, "replayed", slog.F("event", i), slog.F("action", e.Action()))
	}
	return nil
}

func apply(c *spinput.Controller, e Event) error {
	sess := c.Session()
	switch {
	case e.Add != nil:
		kind := e.kind
		if kind == "" {
			k, err := sptarget.ParseKind(*e.Add)
			if err != nil {
				return err
			}
			kind = k
		}
		sess.AddShape(kind)
	case e.Style != nil:
		sess.UpdateSelectedStyle(e.Style.Patch())
	case e.CommitStyle != nil:
		if *e.CommitStyle {
			sess.CommitStyle()
		}
	case e.Press != nil:
		c.PointerDownAt(e.Press.geo())
	case e.Move != nil:
		c.PointerMove(e.Move.geo())
	case e.Release != nil:
		if *e.Release {
			c.PointerUp()
		}
	case e.Click != nil:
		c.PointerDownAt(e.Click.geo())
		c.PointerUp()
	case e.Select != nil:
		shapes := sess.Shapes()
		if *e.Select >= len(shapes) {
			return fmt.Errorf("layer %d does not exist, there are %d", *e.Select, len(shapes))
		}
		sess.SelectShape(shapes[*e.Select].ID)
	case e.Key != nil:
		k := e.key
		if k.Key == "" {
			var err error
			k, err = spinput.ParseKey(*e.Key)
			if err != nil {
				return err
			}
		}
		c.KeyDown(k)
	case e.ToggleGrid != nil:
		if *e.ToggleGrid {
			sess.ToggleGrid()
		}
	case e.ToggleSnap != nil:
		if *e.ToggleSnap {
			sess.ToggleSnap()
		}
	case e.Origin != nil:
		c.SetCanvasOrigin(e.Origin.geo())
	}
	return nil
}
