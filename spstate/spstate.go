// Package spstate owns the editable document of one editing session.
//
// A Session is not safe for concurrent use. Hosts that receive events from
// several goroutines must serialize calls themselves.
package spstate

import (
	"context"

	"cdr.dev/slog"
	"github.com/google/uuid"

	"oss.terrastruct.com/sketchpad/lib/geo"
	"oss.terrastruct.com/sketchpad/lib/log"
	"oss.terrastruct.com/sketchpad/sphistory"
	"oss.terrastruct.com/sketchpad/sptarget"
)

const (
	OpAdd       = "add"
	OpDuplicate = "duplicate"
	OpDelete    = "delete"
	OpStyle     = "style"
	OpSelect    = "select"
	OpMove      = "move"
	OpCommit    = "commit"
	OpUndo      = "undo"
	OpRedo      = "redo"
	OpGrid      = "grid"
)

// Change is sent to subscribers after every state change.
type Change struct {
	Op string `json:"op"`
	// Committed is true when the change appended a history entry.
	Committed bool `json:"committed"`
}

type Opts struct {
	Canvas       *sptarget.Canvas
	PendingStyle *sptarget.Style
	ShowGrid     bool
	SnapToGrid   bool
	// NewID generates shape ids. Defaults to random UUIDs.
	NewID func() string
}

type Session struct {
	ctx context.Context

	doc          *sptarget.Document
	history      *sphistory.History
	pendingStyle sptarget.Style
	styleDirty   bool
	canvas       sptarget.Canvas
	showGrid     bool
	snapToGrid   bool
	newID        func() string

	subscribers map[int]func(Change)
	nextSub     int
}

func New(ctx context.Context, opts *Opts) *Session {
	if opts == nil {
		opts = &Opts{}
	}
	s := &Session{
		ctx:          log.Named(ctx, "spstate"),
		doc:          sptarget.NewDocument(),
		history:      sphistory.New(),
		pendingStyle: sptarget.DefaultStyle(),
		canvas:       sptarget.DefaultCanvas(),
		showGrid:     opts.ShowGrid,
		snapToGrid:   opts.SnapToGrid,
		newID:        opts.NewID,
		subscribers:  make(map[int]func(Change)),
	}
	if opts.Canvas != nil {
		s.canvas = *opts.Canvas
	}
	if opts.PendingStyle != nil {
		s.pendingStyle = *opts.PendingStyle
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	return s
}

// Subscribe registers fn to be called after every change. The returned func
// removes it.
func (s *Session) Subscribe(fn func(Change)) func() {
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		delete(s.subscribers, id)
	}
}

func (s *Session) notify(op string, committed bool) {
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subscribers[i]; ok {
			fn(Change{Op: op, Committed: committed})
		}
	}
}

// commit checkpoints the live shapes and notifies subscribers.
func (s *Session) commit(op string, id string) {
	s.styleDirty = false
	s.history.Commit(s.doc.Shapes)
	log.Debug(s.ctx, "committed",
		slog.F("op", op),
		slog.F("id", id),
		slog.F("step", s.history.Step()),
	)
	s.notify(op, true)
}

func (s *Session) AddShape(kind sptarget.Kind) string {
	st := s.pendingStyle
	sh := sptarget.Shape{
		ID:       s.newID(),
		Kind:     kind,
		Position: s.canvas.Centered(st.Size),
		Style:    st,
	}
	s.doc.Shapes = append(s.doc.Shapes, sh)
	s.doc.SelectedID = sh.ID
	s.commit(OpAdd, sh.ID)
	return sh.ID
}

// DuplicateSelected appends a copy of the selected shape offset by
// sptarget.DuplicateOffset on both axes. The copy is not clamped to the canvas.
func (s *Session) DuplicateSelected() (string, bool) {
	sel, ok := s.Selected()
	if !ok {
		return "", false
	}
	sel.ID = s.newID()
	sel.Position = sel.Position.Add(sptarget.DuplicateOffset, sptarget.DuplicateOffset)
	s.doc.Shapes = append(s.doc.Shapes, sel)
	s.doc.SelectedID = sel.ID
	s.commit(OpDuplicate, sel.ID)
	return sel.ID, true
}

func (s *Session) DeleteSelected() bool {
	i := s.doc.Index(s.doc.SelectedID)
	if i == -1 {
		return false
	}
	id := s.doc.SelectedID
	s.doc.Shapes = append(s.doc.Shapes[:i], s.doc.Shapes[i+1:]...)
	s.doc.SelectedID = ""
	s.commit(OpDelete, id)
	return true
}

// UpdateSelectedStyle merges patch into the selected shape and into the
// pending style. The edit is held until CommitStyle, Undo, Redo or any other
// committing operation.
func (s *Session) UpdateSelectedStyle(patch sptarget.StylePatch) bool {
	i := s.doc.Index(s.doc.SelectedID)
	if i == -1 {
		return false
	}
	s.doc.Shapes[i].Style = s.doc.Shapes[i].Style.Apply(patch)
	s.pendingStyle = s.pendingStyle.Apply(patch)
	s.styleDirty = true
	s.notify(OpStyle, false)
	return true
}

// CommitStyle checkpoints a pending style edit. It is called when a panel
// input is released.
func (s *Session) CommitStyle() bool {
	if !s.styleDirty {
		return false
	}
	s.commit(OpStyle, s.doc.SelectedID)
	return true
}

// SelectShape selects id. An unknown or empty id clears the selection.
func (s *Session) SelectShape(id string) {
	if s.doc.Index(id) == -1 {
		id = ""
	}
	if s.doc.SelectedID == id {
		return
	}
	s.doc.SelectedID = id
	s.notify(OpSelect, false)
}

// MoveShape writes pos without committing. The caller is responsible for
// keeping pos inside the canvas.
func (s *Session) MoveShape(id string, pos geo.Point) bool {
	i := s.doc.Index(id)
	if i == -1 {
		return false
	}
	s.doc.Shapes[i].Position = pos
	s.notify(OpMove, false)
	return true
}

// Commit checkpoints the live document.
func (s *Session) Commit() {
	s.commit(OpCommit, s.doc.SelectedID)
}

func (s *Session) flushStyle() {
	if s.styleDirty {
		s.commit(OpStyle, s.doc.SelectedID)
	}
}

func (s *Session) Undo() bool {
	s.flushStyle()
	shapes, ok := s.history.Undo()
	if !ok {
		return false
	}
	s.restore(OpUndo, shapes)
	return true
}

func (s *Session) Redo() bool {
	s.flushStyle()
	shapes, ok := s.history.Redo()
	if !ok {
		return false
	}
	s.restore(OpRedo, shapes)
	return true
}

func (s *Session) restore(op string, shapes []sptarget.Shape) {
	s.doc.Shapes = shapes
	if s.doc.Index(s.doc.SelectedID) == -1 {
		s.doc.SelectedID = ""
	}
	log.Debug(s.ctx, "restored",
		slog.F("op", op),
		slog.F("step", s.history.Step()),
		slog.F("len", s.history.Len()),
	)
	s.notify(op, false)
}

func (s *Session) ToggleGrid() bool {
	s.SetShowGrid(!s.showGrid)
	return s.showGrid
}

func (s *Session) ToggleSnap() bool {
	s.SetSnapToGrid(!s.snapToGrid)
	return s.snapToGrid
}

func (s *Session) SetShowGrid(v bool) {
	s.showGrid = v
	s.notify(OpGrid, false)
}

func (s *Session) SetSnapToGrid(v bool) {
	s.snapToGrid = v
	s.notify(OpGrid, false)
}

func (s *Session) ShowGrid() bool {
	return s.showGrid
}

func (s *Session) SnapToGrid() bool {
	return s.snapToGrid
}

func (s *Session) Document() *sptarget.Document {
	return s.doc.Copy()
}

func (s *Session) Shapes() []sptarget.Shape {
	return sptarget.CopyShapes(s.doc.Shapes)
}

func (s *Session) Selected() (sptarget.Shape, bool) {
	return s.doc.Find(s.doc.SelectedID)
}

func (s *Session) SelectedID() string {
	return s.doc.SelectedID
}

func (s *Session) Shape(id string) (sptarget.Shape, bool) {
	return s.doc.Find(id)
}

func (s *Session) PendingStyle() sptarget.Style {
	return s.pendingStyle
}

func (s *Session) Canvas() sptarget.Canvas {
	return s.canvas
}

// StyleDirty reports whether a style edit is waiting for CommitStyle.
func (s *Session) StyleDirty() bool {
	return s.styleDirty
}

// History is a read only view of the session's history.
type History interface {
	Step() int
	Len() int
	CanUndo() bool
	CanRedo() bool
	At(i int) []sptarget.Shape
	Entries() [][]sptarget.Shape
}

func (s *Session) History() History {
	return s.history
}

// HitTest returns the topmost shape containing the canvas point p.
func (s *Session) HitTest(p geo.Point) (string, bool) {
	for i := len(s.doc.Shapes) - 1; i >= 0; i-- {
		sh := s.doc.Shapes[i]
		if sh.Geometry().Contains(p) {
			return sh.ID, true
		}
	}
	return "", false
}
