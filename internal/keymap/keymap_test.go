package keymap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChord(t *testing.T) {
	cases := []struct {
		in   string
		want Chord
	}{
		{"mod+z", Chord{Key: "z", Mod: true}},
		{"ctrl+c", Chord{Key: "c", Mod: true}},
		{"cmd+v", Chord{Key: "v", Mod: true}},
		{"shift+delete", Chord{Key: "delete", Shift: true}},
		{"mod+shift+a", Chord{Key: "a", Mod: true, Shift: true}},
		{"x", Chord{Key: "x"}},
		{"Escape", Chord{Key: "escape"}},
	}
	for _, tc := range cases {
		got, err := ParseChord(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseChord_Invalid(t *testing.T) {
	for _, in := range []string{"", "mod+", "z+mod", "+"} {
		_, err := ParseChord(in)
		assert.Error(t, err, "expected error for %q", in)
	}
}

func TestDefault_Lookup(t *testing.T) {
	km := Default()

	a, ok := km.Lookup(Chord{Key: "z", Mod: true})
	require.True(t, ok)
	assert.Equal(t, ActionUndo, a)

	a, ok = km.Lookup(Chord{Key: "x"})
	require.True(t, ok)
	assert.Equal(t, ActionDelete, a)

	a, ok = km.Lookup(Chord{Key: "delete", Shift: true})
	require.True(t, ok)
	assert.Equal(t, ActionDeleteAll, a)

	_, ok = km.Lookup(Chord{Key: "q", Mod: true})
	assert.False(t, ok, "unbound chord should not resolve")
}

func TestLoad_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keymap.yaml")
	data := `delete:
  - r
undo:
  - mod+u
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	km, err := Load(path)
	require.NoError(t, err)

	// Overridden actions drop their default chords entirely.
	_, ok := km.Lookup(Chord{Key: "x"})
	assert.False(t, ok, "default delete binding should be replaced")
	a, ok := km.Lookup(Chord{Key: "r"})
	require.True(t, ok)
	assert.Equal(t, ActionDelete, a)

	a, ok = km.Lookup(Chord{Key: "u", Mod: true})
	require.True(t, ok)
	assert.Equal(t, ActionUndo, a)
	_, ok = km.Lookup(Chord{Key: "z", Mod: true})
	assert.False(t, ok)

	// Untouched actions keep their defaults.
	a, ok = km.Lookup(Chord{Key: "v", Mod: true})
	require.True(t, ok)
	assert.Equal(t, ActionPaste, a)
}

func TestLoad_UnknownAction(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keymap.yaml")
	require.NoError(t, os.WriteFile(path, []byte("explode:\n  - mod+k\n"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
