// Package sphistory is the linear undo/redo log of shape list snapshots.
//
// Every entry is an independent copy: neither Commit nor the values returned by
// Undo, Redo and At share memory with the log.
package sphistory

import "oss.terrastruct.com/sketchpad/sptarget"

type History struct {
	entries [][]sptarget.Shape
	step    int
}

// New returns a history holding a single empty entry at step 0.
func New() *History {
	return &History{
		entries: [][]sptarget.Shape{{}},
	}
}

// Commit drops every entry after the current step, appends a copy of shapes and
// moves the step onto it. The log is not bounded.
func (h *History) Commit(shapes []sptarget.Shape) {
	h.entries = append(h.entries[:h.step+1], sptarget.CopyShapes(shapes))
	h.step = len(h.entries) - 1
}

func (h *History) Undo() ([]sptarget.Shape, bool) {
	if !h.CanUndo() {
		return nil, false
	}
	h.step--
	return sptarget.CopyShapes(h.entries[h.step]), true
}

func (h *History) Redo() ([]sptarget.Shape, bool) {
	if !h.CanRedo() {
		return nil, false
	}
	h.step++
	return sptarget.CopyShapes(h.entries[h.step]), true
}

func (h *History) CanUndo() bool {
	return h.step > 0
}

func (h *History) CanRedo() bool {
	return h.step < len(h.entries)-1
}

func (h *History) Step() int {
	return h.step
}

func (h *History) Len() int {
	return len(h.entries)
}

// At returns a copy of entry i. It panics when i is out of range.
func (h *History) At(i int) []sptarget.Shape {
	return sptarget.CopyShapes(h.entries[i])
}

// Current is At(Step()).
func (h *History) Current() []sptarget.Shape {
	return h.At(h.step)
}

func (h *History) Entries() [][]sptarget.Shape {
	out := make([][]sptarget.Shape, len(h.entries))
	for i := range h.entries {
		out[i] = sptarget.CopyShapes(h.entries[i])
	}
	return out
}
