// Package engine implements the interactive bounding-box editing core: the
// pointer/keyboard-driven gesture state machine, coordinate mapping,
// selection, undo history and clipboard. The engine owns no rendering and no
// persistence; hosts feed it raw viewport events and receive committed
// annotation lists through a callback.
package engine

import (
	"boxlabel/pkg/geometry"
)

const (
	// MinZoom and MaxZoom bound the view scale.
	MinZoom = 0.1
	MaxZoom = 10.0

	// ZoomSpeed converts wheel delta units into scale change.
	ZoomSpeed = 0.001
)

// ViewTransform describes the pan/zoom state of the view. It is owned by the
// engine and never serialized with annotations.
type ViewTransform struct {
	Scale float64
	PanX  float64
	PanY  float64
}

// NewViewTransform returns the identity view: scale 1, no pan.
func NewViewTransform() ViewTransform {
	return ViewTransform{Scale: 1}
}

// Mapper converts viewport pointer positions into normalized image-space
// coordinates, honoring the pan offset and zoom scale.
type Mapper struct {
	// ViewportOrigin is the position of the unscaled image content box
	// within the viewport, in pixels.
	ViewportOrigin geometry.Point2D

	// ContentSize is the unscaled content size in pixels.
	ContentSize geometry.Size

	View ViewTransform
}

// NewMapper creates a mapper for the given content size with an identity view.
func NewMapper(contentW, contentH float64) Mapper {
	return Mapper{
		ContentSize: geometry.NewSize(contentW, contentH),
		View:        NewViewTransform(),
	}
}

// ToNormalized maps a viewport pointer position to normalized image
// coordinates, clamping each axis independently to [0,1].
func (m *Mapper) ToNormalized(px, py float64) geometry.Point2D {
	w := m.ContentSize.Width * m.View.Scale
	h := m.ContentSize.Height * m.View.Scale
	if w <= 0 || h <= 0 {
		return geometry.Point2D{}
	}
	x := (px - m.ViewportOrigin.X - m.View.PanX) / w
	y := (py - m.ViewportOrigin.Y - m.View.PanY) / h
	return geometry.Point2D{X: geometry.Clamp01(x), Y: geometry.Clamp01(y)}
}

// ToViewport maps a normalized point back to viewport pixels.
func (m *Mapper) ToViewport(p geometry.Point2D) (px, py float64) {
	px = p.X*m.ContentSize.Width*m.View.Scale + m.ViewportOrigin.X + m.View.PanX
	py = p.Y*m.ContentSize.Height*m.View.Scale + m.ViewportOrigin.Y + m.View.PanY
	return px, py
}

// Zoom applies a wheel delta to the scale. Pan is untouched by zoom.
func (m *Mapper) Zoom(wheelDelta float64) {
	m.View.Scale = geometry.Clamp(m.View.Scale+wheelDelta*ZoomSpeed, MinZoom, MaxZoom)
}

// Pan shifts the view by a pixel delta. Pan is unconstrained.
func (m *Mapper) Pan(dx, dy float64) {
	m.View.PanX += dx
	m.View.PanY += dy
}

// Reset restores scale 1 and zero pan.
func (m *Mapper) Reset() {
	m.View = NewViewTransform()
}

// pixelsToNormalized converts a pixel distance to normalized units per axis.
// Used for handle hit radii, which are sized in screen pixels.
func (m *Mapper) pixelsToNormalized(px float64) (nx, ny float64) {
	w := m.ContentSize.Width * m.View.Scale
	h := m.ContentSize.Height * m.View.Scale
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	return px / w, px / h
}
