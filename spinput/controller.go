// Package spinput turns pointer and keyboard input into Session operations.
package spinput

import (
	"context"
	"strings"

	"cdr.dev/slog"

	"oss.terrastruct.com/sketchpad/lib/geo"
	"oss.terrastruct.com/sketchpad/lib/log"
	"oss.terrastruct.com/sketchpad/spstate"
)

type Controller struct {
	ctx     context.Context
	session *spstate.Session

	origin   geo.Point
	dragging bool
	dragID   string
	offset   geo.Point

	// OnExport is called for the export shortcut.
	OnExport func() error
}

func New(ctx context.Context, s *spstate.Session) *Controller {
	return &Controller{
		ctx:     log.Named(ctx, "spinput"),
		session: s,
	}
}

func (c *Controller) Session() *spstate.Session {
	return c.session
}

// SetCanvasOrigin sets the screen position of the canvas' top left corner.
func (c *Controller) SetCanvasOrigin(p geo.Point) {
	c.origin = p
}

func (c *Controller) canvasLocal(screen geo.Point) geo.Point {
	return screen.Sub(c.origin)
}

// PointerDown starts dragging shape id. The pointer keeps its offset from the
// shape's top left corner for the rest of the drag.
func (c *Controller) PointerDown(id string, screen geo.Point) bool {
	sh, ok := c.session.Shape(id)
	if !ok {
		return false
	}
	c.dragging = true
	c.dragID = id
	c.offset = c.canvasLocal(screen).Sub(sh.Position)
	c.session.SelectShape(id)
	return true
}

// PointerDownAt presses at a screen position: on a shape it starts a drag,
// on empty canvas it clears the selection.
func (c *Controller) PointerDownAt(screen geo.Point) bool {
	id, ok := c.session.HitTest(c.canvasLocal(screen))
	if !ok {
		c.CanvasClick()
		return false
	}
	return c.PointerDown(id, screen)
}

func (c *Controller) PointerMove(screen geo.Point) {
	if !c.dragging {
		return
	}
	sh, ok := c.session.Shape(c.dragID)
	if !ok {
		return
	}
	pos := c.canvasLocal(screen).Sub(c.offset)
	c.session.MoveShape(c.dragID, c.constrain(pos, float64(sh.Style.Size)))
}

// constrain snaps pos to the grid when enabled and keeps a box of the given
// size inside the canvas.
func (c *Controller) constrain(pos geo.Point, size float64) geo.Point {
	canvas := c.session.Canvas()
	maxX := float64(canvas.Width) - size
	maxY := float64(canvas.Height) - size
	if c.session.SnapToGrid() && canvas.GridSize > 0 {
		grid := float64(canvas.GridSize)
		pos.X = geo.SnapToGrid(pos.X, grid)
		pos.Y = geo.SnapToGrid(pos.Y, grid)
		// The last multiple that still fits, so the result is on the grid and in bounds.
		maxX = geo.FloorToGrid(maxX, grid)
		maxY = geo.FloorToGrid(maxY, grid)
	}
	return geo.Point{
		X: geo.Clamp(pos.X, 0, maxX),
		Y: geo.Clamp(pos.Y, 0, maxY),
	}
}

// PointerUp ends a drag and commits the document once. A history or edit
// shortcut during the drag ends it without a commit.
func (c *Controller) PointerUp() bool {
	if !c.dragging {
		return false
	}
	c.endDrag()
	c.session.Commit()
	return true
}

func (c *Controller) endDrag() {
	c.dragging = false
	c.dragID = ""
	c.offset = geo.Point{}
}

func (c *Controller) Dragging() bool {
	return c.dragging
}

func (c *Controller) CanvasClick() {
	c.session.SelectShape("")
}

// KeyDown runs the shortcut bound to e and reports whether it was handled, in
// which case the host must suppress the default action. Shortcuts require Ctrl
// or Meta.
func (c *Controller) KeyDown(e KeyEvent) bool {
	if !e.Ctrl && !e.Meta {
		return false
	}
	key := strings.ToLower(e.Key)
	// changed reports whether the shortcut checkpointed or restored the
	// document itself, which ends a drag without a commit on release.
	var changed bool
	switch {
	case key == "z" && e.Shift, key == "y":
		changed = c.session.Redo()
	case key == "z":
		changed = c.session.Undo()
	case key == "c":
		_, changed = c.session.DuplicateSelected()
	case key == "delete", key == "backspace":
		changed = c.session.DeleteSelected()
	case key == "s":
		c.export()
	default:
		return false
	}
	if changed && c.dragging {
		c.endDrag()
	}
	log.Debug(c.ctx, "shortcut", slog.F("key", e.String()))
	return true
}

func (c *Controller) export() {
	if c.OnExport == nil {
		log.Warn(c.ctx, "export requested but no exporter is set")
		return
	}
	if err := c.OnExport(); err != nil {
		log.Error(c.ctx, "export failed", slog.Error(err))
	}
}
