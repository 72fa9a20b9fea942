package engine

import (
	"boxlabel/internal/annotation"
)

// Discrete actions: each one pushes a history snapshot before mutating,
// mutates the set, prunes the selection and fires exactly one commit.
// All of them are no-ops in read-only mode.

// Delete removes the selected boxes, or the hovered box when nothing is
// selected.
func (e *Editor) Delete() {
	if e.closed || e.readOnly {
		return
	}
	targets := e.selection.IDs()
	if len(targets) == 0 && e.hoveredID != "" {
		targets = []string{e.hoveredID}
	}
	if len(targets) == 0 {
		return
	}

	e.history.Snapshot(e.set.Boxes())
	for _, id := range targets {
		e.set.Remove(id)
	}
	e.afterDeletion()
	e.commit()
}

// DeleteBox removes a single box by id (the right-click affordance).
func (e *Editor) DeleteBox(id string) {
	if e.closed || e.readOnly || !e.set.Contains(id) {
		return
	}
	e.history.Snapshot(e.set.Boxes())
	e.set.Remove(id)
	e.afterDeletion()
	e.commit()
}

// DeleteAll removes every box.
func (e *Editor) DeleteAll() {
	if e.closed || e.readOnly || e.set.Len() == 0 {
		return
	}
	e.history.Snapshot(e.set.Boxes())
	e.set.Clear()
	e.afterDeletion()
	e.commit()
}

// Copy stores a deep copy of the selected boxes on the clipboard. Requires a
// non-empty selection.
func (e *Editor) Copy() {
	if e.closed {
		return
	}
	var boxes []annotation.Box
	for _, id := range e.selection.IDs() {
		if b, ok := e.set.Get(id); ok {
			boxes = append(boxes, b)
		}
	}
	if len(boxes) == 0 {
		return
	}
	e.clipboard.Copy(boxes)
}

// Paste appends the clipboard contents with fresh ids and sets the selection
// to exactly the new boxes. Requires a non-empty clipboard. The pasted ids
// carry a transient highlight that expires on its own.
func (e *Editor) Paste() {
	if e.closed || e.readOnly || e.clipboard.IsEmpty() {
		return
	}

	e.history.Snapshot(e.set.Boxes())

	pasted := e.clipboard.Items()
	ids := make([]string, len(pasted))
	for i, b := range pasted {
		e.set.Append(b)
		ids[i] = b.ID
	}
	e.selection.Replace(ids)
	e.notifySelection()
	e.highlight(ids)
	e.commit()
}

// Undo pops the most recent snapshot and replaces the live annotation list
// with it. A no-op when the stack is empty. There is no redo.
func (e *Editor) Undo() {
	if e.closed || e.readOnly {
		return
	}
	snap, ok := e.history.Undo()
	if !ok {
		return
	}
	e.set.Replace(snap)
	e.afterDeletion()
	e.commit()
}

// ChangeClass assigns the active class to every selected box, or to the
// hovered box when nothing is selected. Edited boxes lose their auto-label
// flag.
func (e *Editor) ChangeClass() {
	if e.closed || e.readOnly {
		return
	}
	targets := e.selection.IDs()
	if len(targets) == 0 && e.hoveredID != "" {
		targets = []string{e.hoveredID}
	}

	changed := false
	var pending []annotation.Box
	for _, id := range targets {
		b, ok := e.set.Get(id)
		if !ok || b.ClassID == e.currentClass {
			continue
		}
		b.ClassID = e.currentClass
		b.AutoLabel = false
		pending = append(pending, b)
		changed = true
	}
	if !changed {
		return
	}

	e.history.Snapshot(e.set.Boxes())
	for _, b := range pending {
		e.set.Update(b)
	}
	e.commit()
}

// ImportCandidates appends externally supplied candidate boxes, marking them
// as machine-generated. Degenerate candidates are dropped; ids are always
// regenerated so imports can never collide with existing boxes. The
// selection is untouched.
func (e *Editor) ImportCandidates(candidates []annotation.Box) int {
	if e.closed || e.readOnly {
		return 0
	}

	var accepted []annotation.Box
	for _, b := range candidates {
		b.SetRect(b.Rect().ClampUnit())
		if b.Width < annotation.MinSize || b.Height < annotation.MinSize {
			continue
		}
		b.ID = annotation.NewID()
		b.AutoLabel = true
		accepted = append(accepted, b)
	}
	if len(accepted) == 0 {
		return 0
	}

	e.history.Snapshot(e.set.Boxes())
	for _, b := range accepted {
		e.set.Append(b)
	}
	e.commit()
	return len(accepted)
}

// LoadBoxes replaces the working annotation list wholesale, clearing the
// selection, hover, highlight and undo history. Used when switching images.
// The clipboard survives so boxes can be pasted across images.
func (e *Editor) LoadBoxes(boxes []annotation.Box) {
	if e.closed {
		return
	}
	e.cancelGesture()
	if e.cancelHighlight != nil {
		e.cancelHighlight()
		e.cancelHighlight = nil
	}
	e.highlighted = make(map[string]bool)
	e.set.Replace(boxes)
	e.history.Clear()
	e.hoveredID = ""
	if e.selection.Len() > 0 {
		e.selection.Clear()
		e.notifySelection()
	}
}

// EscapeAction is the full escape behavior: cancel any active gesture, clear
// the selection and revert the tool to select. Available in read-only mode.
func (e *Editor) EscapeAction() {
	if e.closed {
		return
	}
	e.cancelGesture()
	if e.selection.Len() > 0 {
		e.selection.Clear()
		e.notifySelection()
	}
	e.tool = ToolSelect
}

// ToggleDimUnselected flips the dim-unselected view toggle.
func (e *Editor) ToggleDimUnselected() {
	e.dimUnselected = !e.dimUnselected
}

// ToggleLabels flips label visibility.
func (e *Editor) ToggleLabels() {
	e.showLabels = !e.showLabels
}

// TogglePanTool switches between the pan and select tools.
func (e *Editor) TogglePanTool() {
	if e.tool == ToolPan {
		e.tool = ToolSelect
	} else {
		e.tool = ToolPan
	}
}

// SelectAll selects every box. Convenience for hosts; not part of the
// default shortcut table.
func (e *Editor) SelectAll() {
	if e.closed {
		return
	}
	e.selection.Replace(e.set.IDs())
	e.notifySelection()
}

// Select replaces the selection with the given id, for host-side list
// panels. Unknown ids clear the selection.
func (e *Editor) Select(id string) {
	if e.closed {
		return
	}
	if e.set.Contains(id) {
		e.selection.Replace([]string{id})
	} else {
		e.selection.Clear()
	}
	e.notifySelection()
}

// afterDeletion prunes every piece of state that may reference ids no longer
// in the set: the selection, the hover target and the paste highlight.
func (e *Editor) afterDeletion() {
	before := e.selection.Len()
	e.selection.Prune(e.set.Contains)
	if e.selection.Len() != before {
		e.notifySelection()
	}
	if e.hoveredID != "" && !e.set.Contains(e.hoveredID) {
		e.hoveredID = ""
	}
	for id := range e.highlighted {
		if !e.set.Contains(id) {
			delete(e.highlighted, id)
		}
	}
}

// highlight marks ids with the transient paste highlight and schedules its
// expiry. The expiry callback checks that the editor is still alive and the
// targets still exist before touching state.
func (e *Editor) highlight(ids []string) {
	if e.cancelHighlight != nil {
		e.cancelHighlight()
	}
	e.highlighted = make(map[string]bool, len(ids))
	for _, id := range ids {
		e.highlighted[id] = true
	}
	e.cancelHighlight = e.schedule(HighlightDuration, func() {
		if e.closed {
			return
		}
		e.highlighted = make(map[string]bool)
		e.cancelHighlight = nil
	})
}
