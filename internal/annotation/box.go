// Package annotation provides the bounding-box annotation data model.
package annotation

import (
	"github.com/google/uuid"

	"boxlabel/pkg/geometry"
)

// MinSize is the smallest normalized width/height an annotation box may have.
// Roughly 2-4 px on common image sizes.
const MinSize = 0.002

// Box is a single axis-aligned bounding-box annotation in normalized image
// coordinates. X,Y is the top-left corner; all fields are fractions of the
// image dimensions in [0,1].
type Box struct {
	ID      string  `json:"id"`
	ClassID int     `json:"class_id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`

	// AutoLabel is true only for machine-generated boxes that no user has
	// touched. Any geometry or class edit clears it.
	AutoLabel bool `json:"auto_label,omitempty"`
}

// NewBox creates a box with a fresh unique id.
func NewBox(classID int, r geometry.Rect) Box {
	return Box{
		ID:      NewID(),
		ClassID: classID,
		X:       r.X,
		Y:       r.Y,
		Width:   r.Width,
		Height:  r.Height,
	}
}

// NewID returns a fresh unique annotation id.
func NewID() string {
	return uuid.NewString()
}

// Rect returns the box geometry.
func (b Box) Rect() geometry.Rect {
	return geometry.Rect{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
}

// SetRect replaces the box geometry.
func (b *Box) SetRect(r geometry.Rect) {
	b.X = r.X
	b.Y = r.Y
	b.Width = r.Width
	b.Height = r.Height
}

// Contains reports whether the normalized point lies inside the box.
func (b Box) Contains(p geometry.Point2D) bool {
	return b.Rect().Contains(p)
}

// Valid reports whether the box satisfies the steady-state invariant:
// inside the unit square and at least MinSize in each dimension.
func (b Box) Valid() bool {
	return b.X >= 0 && b.Y >= 0 &&
		b.X+b.Width <= 1 && b.Y+b.Height <= 1 &&
		b.Width >= MinSize && b.Height >= MinSize
}
