package spinput

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"cdr.dev/slog/sloggers/slogtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oss.terrastruct.com/sketchpad/lib/geo"
	"oss.terrastruct.com/sketchpad/lib/log"
	"oss.terrastruct.com/sketchpad/spstate"
	"oss.terrastruct.com/sketchpad/sptarget"
)

func newController(t *testing.T, opts *spstate.Opts) *Controller {
	t.Helper()
	ctx := log.WithTB(context.Background(), t, nil)
	if opts == nil {
		opts = &spstate.Opts{}
	}
	n := 0
	opts.NewID = func() string {
		n++
		return fmt.Sprintf("shape-%d", n)
	}
	return New(ctx, spstate.New(ctx, opts))
}

func pt(x, y float64) geo.Point {
	return geo.Point{X: x, Y: y}
}

func key(t *testing.T, s string) KeyEvent {
	t.Helper()
	e, err := ParseKey(s)
	require.NoError(t, err)
	return e
}

func TestCircleDragClamped(t *testing.T) {
	t.Parallel()

	c := newController(t, nil)
	c.SetCanvasOrigin(pt(10, 20))
	s := c.Session()
	id := s.AddShape(sptarget.KindCircle)

	require.True(t, c.PointerDown(id, pt(460, 370)))
	assert.True(t, c.Dragging())
	// canvas (850,650) minus the (100,100) grab offset is (750,550)
	c.PointerMove(pt(860, 670))
	assert.True(t, c.PointerUp())
	assert.False(t, c.Dragging())

	sh, ok := s.Shape(id)
	require.True(t, ok)
	assert.Equal(t, pt(700, 500), sh.Position)
	assert.Equal(t, 3, s.History().Len())
}

func TestDragKeepsOffset(t *testing.T) {
	t.Parallel()

	c := newController(t, nil)
	s := c.Session()
	id := s.AddShape(sptarget.KindRectangle)

	c.PointerDown(id, pt(360, 270))
	c.PointerMove(pt(365, 275))
	sh, _ := s.Shape(id)
	assert.Equal(t, pt(355, 255), sh.Position)

	// intermediate frames are not committed
	c.PointerMove(pt(100, 100))
	assert.Equal(t, 2, s.History().Len())
	c.PointerUp()
	assert.Equal(t, 3, s.History().Len())

	sh, _ = s.Shape(id)
	assert.Equal(t, pt(90, 80), sh.Position)
	assert.False(t, c.PointerUp())
	assert.Equal(t, 3, s.History().Len())
}

func TestDragBounds(t *testing.T) {
	t.Parallel()

	for _, snap := range []bool{false, true} {
		snap := snap
		t.Run(fmt.Sprintf("snap=%v", snap), func(t *testing.T) {
			t.Parallel()

			c := newController(t, &spstate.Opts{SnapToGrid: snap})
			s := c.Session()
			canvas := s.Canvas()
			for _, size := range []int{20, 55, 90, 100, 137, 200} {
				s.AddShape(sptarget.KindStar)
				s.UpdateSelectedStyle(sptarget.StylePatch{Size: &size})
				s.CommitStyle()
				id := s.SelectedID()
				sh, _ := s.Shape(id)

				for _, target := range []geo.Point{pt(-500, -500), pt(9999, 9999), pt(791, 3), pt(13, 587), pt(409.5, 290.5), pt(-10, 1000)} {
					c.PointerDown(id, sh.Center())
					c.PointerMove(target)
					c.PointerUp()

					sh, _ = s.Shape(id)
					maxX := float64(canvas.Width - size)
					maxY := float64(canvas.Height - size)
					assert.True(t, sh.Position.X >= 0 && sh.Position.X <= maxX, "size %d target %v: x %v", size, target, sh.Position.X)
					assert.True(t, sh.Position.Y >= 0 && sh.Position.Y <= maxY, "size %d target %v: y %v", size, target, sh.Position.Y)
					if snap {
						assert.Equal(t, 0., math.Mod(sh.Position.X, 20), "size %d target %v", size, target)
						assert.Equal(t, 0., math.Mod(sh.Position.Y, 20), "size %d target %v", size, target)
					}
				}
			}
		})
	}
}

func TestSnapRoundsHalfUp(t *testing.T) {
	t.Parallel()

	c := newController(t, &spstate.Opts{SnapToGrid: true})
	s := c.Session()
	id := s.AddShape(sptarget.KindCircle)

	c.PointerDown(id, pt(350, 250))
	c.PointerMove(pt(30, 29.9))
	sh, _ := s.Shape(id)
	assert.Equal(t, pt(40, 20), sh.Position)
}

func TestPointerDownAt(t *testing.T) {
	t.Parallel()

	c := newController(t, nil)
	s := c.Session()
	id := s.AddShape(sptarget.KindTriangle)
	s.SelectShape("")

	assert.True(t, c.PointerDownAt(pt(400, 330)))
	assert.Equal(t, id, s.SelectedID())
	c.PointerUp()

	assert.False(t, c.PointerDownAt(pt(5, 5)))
	assert.Equal(t, "", s.SelectedID())
	assert.False(t, c.Dragging())

	assert.False(t, c.PointerDown("nope", pt(0, 0)))
	assert.False(t, c.Dragging())
}

func TestUndoRedoShortcuts(t *testing.T) {
	t.Parallel()

	c := newController(t, nil)
	s := c.Session()
	id := s.AddShape(sptarget.KindRectangle)
	before, _ := s.Shape(id)

	assert.True(t, c.KeyDown(key(t, "ctrl+z")))
	assert.Empty(t, s.Shapes())

	assert.True(t, c.KeyDown(key(t, "ctrl+shift+z")))
	require.Len(t, s.Shapes(), 1)
	after := s.Shapes()[0]
	assert.Equal(t, before.ID, after.ID)
	assert.Equal(t, before.Style, after.Style)

	assert.True(t, c.KeyDown(key(t, "ctrl+z")))
	assert.True(t, c.KeyDown(key(t, "meta+y")))
	assert.Len(t, s.Shapes(), 1)
}

func TestUndoDuringDrag(t *testing.T) {
	t.Parallel()

	c := newController(t, nil)
	s := c.Session()
	id := s.AddShape(sptarget.KindRectangle)
	require.True(t, c.PointerDown(id, pt(400, 300)))
	c.PointerMove(pt(500, 300))
	require.True(t, c.PointerUp())
	require.Equal(t, 3, s.History().Len())

	require.True(t, c.PointerDown(id, pt(450, 300)))
	c.PointerMove(pt(550, 400))
	assert.True(t, c.KeyDown(key(t, "ctrl+z")))
	assert.False(t, c.Dragging())

	// The release after the undo neither commits nor drops the redo entry.
	assert.False(t, c.PointerUp())
	assert.Equal(t, 3, s.History().Len())
	assert.Equal(t, 1, s.History().Step())
	assert.True(t, s.History().CanRedo())
	sh, _ := s.Shape(id)
	assert.Equal(t, pt(350, 250), sh.Position)

	assert.True(t, c.KeyDown(key(t, "ctrl+y")))
	sh, _ = s.Shape(id)
	assert.Equal(t, pt(450, 250), sh.Position)
}

func TestRedoDuringDragWithoutRedo(t *testing.T) {
	t.Parallel()

	c := newController(t, nil)
	s := c.Session()
	id := s.AddShape(sptarget.KindRectangle)
	require.True(t, c.PointerDown(id, pt(400, 300)))
	c.PointerMove(pt(420, 300))

	// Nothing to redo, so the drag goes on and the release commits it.
	assert.True(t, c.KeyDown(key(t, "ctrl+y")))
	assert.True(t, c.Dragging())
	assert.True(t, c.PointerUp())
	assert.Equal(t, 3, s.History().Len())
}

func TestShortcuts(t *testing.T) {
	t.Parallel()

	c := newController(t, nil)
	s := c.Session()
	s.AddShape(sptarget.KindCircle)

	assert.False(t, c.KeyDown(KeyEvent{Key: "c"}))
	assert.Len(t, s.Shapes(), 1)

	assert.True(t, c.KeyDown(key(t, "cmd+c")))
	assert.Len(t, s.Shapes(), 2)
	assert.Equal(t, "shape-2", s.SelectedID())

	assert.True(t, c.KeyDown(KeyEvent{Key: "Backspace", Ctrl: true}))
	assert.Len(t, s.Shapes(), 1)
	assert.True(t, c.KeyDown(KeyEvent{Key: "Delete", Ctrl: true}))
	assert.Len(t, s.Shapes(), 1)

	assert.False(t, c.KeyDown(key(t, "ctrl+q")))

	exports := 0
	c.OnExport = func() error {
		exports++
		return nil
	}
	assert.True(t, c.KeyDown(key(t, "ctrl+s")))
	assert.Equal(t, 1, exports)
}

func TestShortcutsSeeLatestState(t *testing.T) {
	t.Parallel()

	c := newController(t, nil)
	s := c.Session()

	var exported []int
	c.OnExport = func() error {
		exported = append(exported, len(s.Shapes()))
		return nil
	}
	c.KeyDown(key(t, "ctrl+s"))
	s.AddShape(sptarget.KindStar)
	s.AddShape(sptarget.KindStar)
	c.KeyDown(key(t, "ctrl+s"))
	assert.Equal(t, []int{0, 2}, exported)
}

func TestExportError(t *testing.T) {
	t.Parallel()

	ctx := log.WithTB(context.Background(), t, &slogtest.Options{IgnoreErrors: true})
	c := New(ctx, spstate.New(ctx, nil))
	c.OnExport = func() error {
		return errors.New("disk full")
	}
	assert.True(t, c.KeyDown(key(t, "ctrl+s")))

	c.OnExport = nil
	assert.True(t, c.KeyDown(key(t, "ctrl+s")))
}
