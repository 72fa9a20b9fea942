package engine

import (
	"strings"

	"boxlabel/internal/keymap"
)

// Dispatcher maps keyboard input to editor actions through a configurable
// keymap. It also maintains the held-key flags (space, shift) the controller
// reads synchronously on pointer-down.
type Dispatcher struct {
	editor *Editor
	keys   *keymap.Keymap
}

// NewDispatcher creates a dispatcher over the given editor and keymap.
// A nil keymap selects the default table.
func NewDispatcher(editor *Editor, keys *keymap.Keymap) *Dispatcher {
	if keys == nil {
		keys = keymap.Default()
	}
	return &Dispatcher{editor: editor, keys: keys}
}

// Keymap returns the active shortcut table.
func (d *Dispatcher) Keymap() *keymap.Keymap {
	return d.keys
}

// KeyDown handles a key press. Returns true when the key resolved to an
// action that ran; unrecognized combinations are ignored. Mutating shortcuts
// are suppressed in read-only mode while escape and the view toggles remain
// active.
func (d *Dispatcher) KeyDown(key string, mods Modifiers) bool {
	key = strings.ToLower(key)

	// Held-modifier bookkeeping happens regardless of bindings.
	switch key {
	case "space":
		d.editor.SetSpaceHeld(true)
		return true
	case "shift":
		d.editor.SetShiftHeld(true)
		return false
	}

	action, ok := d.keys.Lookup(keymap.Chord{Key: key, Mod: mods.Mod, Shift: mods.Shift})
	if !ok {
		return false
	}

	if d.editor.ReadOnly() && mutating(action) {
		return false
	}

	switch action {
	case keymap.ActionUndo:
		d.editor.Undo()
	case keymap.ActionCopy:
		d.editor.Copy()
	case keymap.ActionPaste:
		d.editor.Paste()
	case keymap.ActionDelete:
		d.editor.Delete()
	case keymap.ActionDeleteAll:
		d.editor.DeleteAll()
	case keymap.ActionChangeClass:
		d.editor.ChangeClass()
	case keymap.ActionEscape:
		d.editor.EscapeAction()
	case keymap.ActionToggleDim:
		d.editor.ToggleDimUnselected()
	case keymap.ActionToggleLabels:
		d.editor.ToggleLabels()
	case keymap.ActionTogglePan:
		d.editor.TogglePanTool()
	case keymap.ActionResetView:
		d.editor.ResetView()
	default:
		return false
	}
	return true
}

// KeyUp handles a key release, clearing held-key flags.
func (d *Dispatcher) KeyUp(key string) {
	switch strings.ToLower(key) {
	case "space":
		d.editor.SetSpaceHeld(false)
	case "shift":
		d.editor.SetShiftHeld(false)
	}
}

// mutating reports whether an action edits the annotation list.
func mutating(a keymap.Action) bool {
	switch a {
	case keymap.ActionUndo, keymap.ActionPaste, keymap.ActionDelete,
		keymap.ActionDeleteAll, keymap.ActionChangeClass:
		return true
	}
	return false
}
