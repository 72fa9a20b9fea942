// Package keymap provides the configurable keyboard shortcut table.
//
// Bindings are written as chord strings: a key name optionally prefixed with
// "mod+" (ctrl on Linux/Windows, cmd on macOS) and/or "shift+", e.g.
// "mod+z", "shift+delete", "x". The default table:
//
//	undo:         mod+z
//	copy:         mod+c
//	paste:        mod+v
//	delete:       delete, backspace, x
//	delete-all:   shift+delete
//	change-class: e
//	escape:       escape
//	toggle-dim:   d
//	toggle-labels: l
//	toggle-pan:   p
//	reset-view:   0
package keymap

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action names an editor operation a key chord can trigger.
type Action string

const (
	ActionUndo         Action = "undo"
	ActionCopy         Action = "copy"
	ActionPaste        Action = "paste"
	ActionDelete       Action = "delete"
	ActionDeleteAll    Action = "delete-all"
	ActionChangeClass  Action = "change-class"
	ActionEscape       Action = "escape"
	ActionToggleDim    Action = "toggle-dim"
	ActionToggleLabels Action = "toggle-labels"
	ActionTogglePan    Action = "toggle-pan"
	ActionResetView    Action = "reset-view"
)

// Chord is a normalized key plus modifier combination.
type Chord struct {
	Key   string
	Mod   bool
	Shift bool
}

// ParseChord parses a chord string like "mod+shift+z".
func ParseChord(s string) (Chord, error) {
	var c Chord
	parts := strings.Split(strings.ToLower(strings.TrimSpace(s)), "+")
	for i, part := range parts {
		switch part {
		case "mod", "ctrl", "cmd":
			c.Mod = true
		case "shift":
			c.Shift = true
		default:
			if i != len(parts)-1 || part == "" {
				return Chord{}, fmt.Errorf("invalid chord %q", s)
			}
			c.Key = part
		}
	}
	if c.Key == "" {
		return Chord{}, fmt.Errorf("chord %q has no key", s)
	}
	return c, nil
}

// String formats the chord back into its canonical text form.
func (c Chord) String() string {
	var sb strings.Builder
	if c.Mod {
		sb.WriteString("mod+")
	}
	if c.Shift {
		sb.WriteString("shift+")
	}
	sb.WriteString(c.Key)
	return sb.String()
}

// Keymap maps chords to actions.
type Keymap struct {
	bindings map[Chord]Action
}

// Default returns the built-in shortcut table.
func Default() *Keymap {
	km := &Keymap{bindings: make(map[Chord]Action)}
	defaults := map[Action][]string{
		ActionUndo:         {"mod+z"},
		ActionCopy:         {"mod+c"},
		ActionPaste:        {"mod+v"},
		ActionDelete:       {"delete", "backspace", "x"},
		ActionDeleteAll:    {"shift+delete"},
		ActionChangeClass:  {"e"},
		ActionEscape:       {"escape"},
		ActionToggleDim:    {"d"},
		ActionToggleLabels: {"l"},
		ActionTogglePan:    {"p"},
		ActionResetView:    {"0"},
	}
	for action, chords := range defaults {
		for _, s := range chords {
			c, err := ParseChord(s)
			if err != nil {
				panic(err) // defaults are compile-time constants
			}
			km.bindings[c] = action
		}
	}
	return km
}

// fileFormat is the YAML shape: action name to list of chord strings.
type fileFormat map[string][]string

// Load reads a YAML keymap file and overlays it on the defaults. Actions
// listed in the file replace all their default chords; unlisted actions keep
// theirs.
func Load(path string) (*Keymap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ff fileFormat
	if err := yaml.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("parse keymap %s: %w", path, err)
	}

	km := Default()
	for name, chords := range ff {
		action := Action(name)
		if !validAction(action) {
			return nil, fmt.Errorf("keymap %s: unknown action %q", path, name)
		}
		// Drop the action's default chords before installing its own.
		for c, a := range km.bindings {
			if a == action {
				delete(km.bindings, c)
			}
		}
		for _, s := range chords {
			c, err := ParseChord(s)
			if err != nil {
				return nil, fmt.Errorf("keymap %s: %w", path, err)
			}
			km.bindings[c] = action
		}
	}
	return km, nil
}

// Lookup resolves a chord to an action.
func (km *Keymap) Lookup(c Chord) (Action, bool) {
	c.Key = strings.ToLower(c.Key)
	a, ok := km.bindings[c]
	return a, ok
}

// Chords returns every chord bound to an action, for help display.
func (km *Keymap) Chords(action Action) []string {
	var out []string
	for c, a := range km.bindings {
		if a == action {
			out = append(out, c.String())
		}
	}
	return out
}

func validAction(a Action) bool {
	switch a {
	case ActionUndo, ActionCopy, ActionPaste, ActionDelete, ActionDeleteAll,
		ActionChangeClass, ActionEscape, ActionToggleDim, ActionToggleLabels,
		ActionTogglePan, ActionResetView:
		return true
	}
	return false
}
