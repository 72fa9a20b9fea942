package engine

import (
	"boxlabel/internal/annotation"
)

// History maintains an undo stack of full annotation-list snapshots. A
// snapshot is pushed exactly once at the start of each discrete destructive
// or gesture-initiating action, never per pointer-move tick. There is no
// redo stack; this is a deliberate simplification.
type History struct {
	stack [][]annotation.Box
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{}
}

// Snapshot pushes a deep value-copy of the given annotation list.
func (h *History) Snapshot(boxes []annotation.Box) {
	snap := make([]annotation.Box, len(boxes))
	copy(snap, boxes)
	h.stack = append(h.stack, snap)
}

// Undo pops the most recent snapshot. Returns false when the stack is empty,
// in which case undo is a no-op.
func (h *History) Undo() ([]annotation.Box, bool) {
	if len(h.stack) == 0 {
		return nil, false
	}
	snap := h.stack[len(h.stack)-1]
	h.stack = h.stack[:len(h.stack)-1]
	return snap, true
}

// Len returns the number of stored snapshots.
func (h *History) Len() int {
	return len(h.stack)
}

// Clear drops all snapshots, e.g. when a new image is loaded.
func (h *History) Clear() {
	h.stack = nil
}
