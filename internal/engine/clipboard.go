package engine

import (
	"time"

	"boxlabel/internal/annotation"
)

const (
	// pasteOffset is the normalized offset applied to pasted boxes so a
	// paste is visible next to its source.
	pasteOffset = 0.01

	// HighlightDuration is how long freshly pasted boxes stay visually
	// highlighted. Purely cosmetic state with automatic expiry.
	HighlightDuration = 800 * time.Millisecond
)

// Clipboard holds a deep value-copy of the last copied selection. The stored
// boxes are independent of any later mutation of the annotation set.
type Clipboard struct {
	boxes []annotation.Box
}

// NewClipboard creates an empty clipboard.
func NewClipboard() *Clipboard {
	return &Clipboard{}
}

// Copy stores a deep value-copy of the given boxes.
func (c *Clipboard) Copy(boxes []annotation.Box) {
	c.boxes = make([]annotation.Box, len(boxes))
	copy(c.boxes, boxes)
}

// IsEmpty reports whether nothing has been copied yet.
func (c *Clipboard) IsEmpty() bool {
	return len(c.boxes) == 0
}

// Len returns the number of stored boxes.
func (c *Clipboard) Len() int {
	return len(c.boxes)
}

// Items returns fresh copies of the stored boxes, each with a new unique id,
// the paste offset applied (clamped into the unit square), and the auto-label
// flag cleared.
func (c *Clipboard) Items() []annotation.Box {
	out := make([]annotation.Box, len(c.boxes))
	for i, b := range c.boxes {
		b.ID = annotation.NewID()
		b.AutoLabel = false
		b.X += pasteOffset
		b.Y += pasteOffset
		b.SetRect(b.Rect().ClampUnit())
		out[i] = b
	}
	return out
}
