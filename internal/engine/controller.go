package engine

import (
	"time"

	"boxlabel/internal/annotation"
	"boxlabel/pkg/geometry"
)

// State identifies the active gesture. At most one gesture is active at a
// time; every gesture starts from StateIdle and returns to it on release.
type State int

const (
	StateIdle State = iota
	StateDrawing
	StateDragging
	StateResizing
	StatePanning
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateDrawing:
		return "drawing"
	case StateDragging:
		return "dragging"
	case StateResizing:
		return "resizing"
	case StatePanning:
		return "panning"
	default:
		return "unknown"
	}
}

// Tool is the active interaction tool.
type Tool int

const (
	ToolSelect Tool = iota
	ToolPan
)

// Button identifies a pointer button.
type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// Modifiers carries the modifier-key state delivered with an event.
type Modifiers struct {
	Shift bool
	Mod   bool // ctrl on Linux/Windows, cmd on macOS
}

// Handle identifies one of the four corner resize affordances.
type Handle int

const (
	HandleNone Handle = iota
	HandleTopLeft
	HandleTopRight
	HandleBottomLeft
	HandleBottomRight
)

// handleHitRadiusPx is the pick radius around a corner handle, in screen
// pixels, converted per-axis to normalized units at the current zoom.
const handleHitRadiusPx = 6.0

// CommitFunc receives the full annotation list whenever a discrete action
// completes. The slice is a fresh copy; the receiver may treat it as an
// immutable snapshot for this tick.
type CommitFunc func(boxes []annotation.Box)

// Editor is the interaction controller: it consumes pointer and keyboard
// events, resolves geometry through its Mapper, mutates the annotation set
// and pushes snapshots to its History.
//
// All methods must be called from a single goroutine (the UI event loop).
type Editor struct {
	set       *annotation.Set
	selection *Selection
	history   *History
	clipboard *Clipboard
	mapper    Mapper

	state        State
	tool         Tool
	readOnly     bool
	currentClass int

	// Held-key flags tracked outside the event stream so pointer-down can
	// read them synchronously.
	spaceHeld bool
	shiftHeld bool

	// Gesture-transient data, cleared on every return to StateIdle.
	dragAnchor    geometry.Point2D
	drawAnchor    geometry.Point2D
	drawCurrent   geometry.Point2D
	lastPointerX  float64
	lastPointerY  float64
	resizeHandle  Handle
	resizeTarget  string
	resizeStart   annotation.Box
	dragStart     []annotation.Box
	gestureDirty  bool
	gestureDepth  int

	hoveredID string

	// View toggles mirrored by the host UI.
	dimUnselected bool
	showLabels    bool

	// Paste highlight: cosmetic, expires on its own. The cancel func guards
	// against a stale timer mutating state after teardown.
	highlighted     map[string]bool
	cancelHighlight func()
	schedule        func(d time.Duration, f func()) (cancel func())

	closed bool

	onCommit          CommitFunc
	onSelectionChange func(ids []string)
	onViewChange      func(view ViewTransform)
	onGestureStart    func(s State)
	onGestureEnd      func(s State)
}

// NewEditor creates an editor over the given initial annotation list.
func NewEditor(boxes []annotation.Box) *Editor {
	return &Editor{
		set:         annotation.NewSet(boxes),
		selection:   NewSelection(),
		history:     NewHistory(),
		clipboard:   NewClipboard(),
		mapper:      NewMapper(1, 1),
		showLabels:  true,
		highlighted: make(map[string]bool),
		schedule: func(d time.Duration, f func()) func() {
			t := time.AfterFunc(d, f)
			return func() { t.Stop() }
		},
	}
}

// Close tears the editor down. Any pending highlight timer is cancelled and
// no callback fires afterwards.
func (e *Editor) Close() {
	e.cancelGesture()
	if e.cancelHighlight != nil {
		e.cancelHighlight()
		e.cancelHighlight = nil
	}
	e.closed = true
}

// Configuration ---------------------------------------------------------

// SetContent sets the unscaled content size in pixels and the content box
// origin within the viewport.
func (e *Editor) SetContent(originX, originY, width, height float64) {
	e.mapper.ViewportOrigin = geometry.NewPoint2D(originX, originY)
	e.mapper.ContentSize = geometry.NewSize(width, height)
}

// SetReadOnly toggles review mode: panning and view toggles stay available,
// every mutating operation becomes a no-op.
func (e *Editor) SetReadOnly(ro bool) {
	e.readOnly = ro
}

// ReadOnly reports whether the editor is in review mode.
func (e *Editor) ReadOnly() bool {
	return e.readOnly
}

// SetCurrentClass sets the class id assigned to newly drawn boxes.
func (e *Editor) SetCurrentClass(classID int) {
	e.currentClass = classID
}

// CurrentClass returns the active class id.
func (e *Editor) CurrentClass() int {
	return e.currentClass
}

// SetTool switches between the select and pan tools.
func (e *Editor) SetTool(t Tool) {
	e.tool = t
}

// Tool returns the active tool.
func (e *Editor) Tool() Tool {
	return e.tool
}

// SetScheduler replaces the timer used for the paste highlight expiry.
// Hosts use this to hop expiry back onto the UI thread; tests use it to
// stay deterministic.
func (e *Editor) SetScheduler(schedule func(d time.Duration, f func()) (cancel func())) {
	e.schedule = schedule
}

// OnCommit registers the callback invoked once per completed discrete action.
func (e *Editor) OnCommit(fn CommitFunc) {
	e.onCommit = fn
}

// OnSelectionChange registers a callback for selection updates.
func (e *Editor) OnSelectionChange(fn func(ids []string)) {
	e.onSelectionChange = fn
}

// OnViewChange registers a callback for pan/zoom updates.
func (e *Editor) OnViewChange(fn func(view ViewTransform)) {
	e.onViewChange = fn
}

// OnGestureStart registers the subscribe hook called when a gesture begins.
// Hosts attach their global pointer listeners here.
func (e *Editor) OnGestureStart(fn func(s State)) {
	e.onGestureStart = fn
}

// OnGestureEnd registers the unsubscribe hook called when a gesture ends.
func (e *Editor) OnGestureEnd(fn func(s State)) {
	e.onGestureEnd = fn
}

// Read-only state for host-side UI mirroring ----------------------------

// State returns the active gesture state.
func (e *Editor) State() State {
	return e.state
}

// Boxes returns a copy of the current annotation list.
func (e *Editor) Boxes() []annotation.Box {
	return e.set.Boxes()
}

// SelectedIDs returns the current selection.
func (e *Editor) SelectedIDs() []string {
	return e.selection.IDs()
}

// HoveredID returns the id under the pointer while idle, or "".
func (e *Editor) HoveredID() string {
	return e.hoveredID
}

// View returns the current view transform.
func (e *Editor) View() ViewTransform {
	return e.mapper.View
}

// DimUnselected reports the dim-unselected view toggle.
func (e *Editor) DimUnselected() bool {
	return e.dimUnselected
}

// ShowLabels reports the label-visibility view toggle.
func (e *Editor) ShowLabels() bool {
	return e.showLabels
}

// IsHighlighted reports whether a box carries the transient paste highlight.
func (e *Editor) IsHighlighted(id string) bool {
	return e.highlighted[id]
}

// DrawRect returns the in-progress rubber-band rectangle while drawing.
func (e *Editor) DrawRect() (geometry.Rect, bool) {
	if e.state != StateDrawing {
		return geometry.Rect{}, false
	}
	return geometry.RectFromCorners(e.drawAnchor, e.drawCurrent), true
}

// HistoryLen returns the undo depth, for host UI (menu enablement).
func (e *Editor) HistoryLen() int {
	return e.history.Len()
}

// ClipboardLen returns the number of boxes on the clipboard.
func (e *Editor) ClipboardLen() int {
	return e.clipboard.Len()
}

// Pointer events --------------------------------------------------------

// PointerDown starts a gesture. Coordinates are viewport-relative pixels.
// The transition is selected in fixed priority order: right-button delete
// affordance, pan trigger, read-only gate, resize handle, box hit
// (cycle-select), then empty space (draw).
func (e *Editor) PointerDown(px, py float64, btn Button, mods Modifiers) {
	if e.closed || e.state != StateIdle {
		return
	}

	p := e.mapper.ToNormalized(px, py)

	// Right button is a discrete delete affordance, not a gesture.
	if btn == ButtonRight {
		if id := e.set.TopAt(p); id != "" {
			e.DeleteBox(id)
		}
		return
	}

	shift := mods.Shift || e.shiftHeld

	if e.tool == ToolPan || btn == ButtonMiddle || e.spaceHeld ||
		(shift && e.set.TopAt(p) == "") {
		e.lastPointerX, e.lastPointerY = px, py
		e.enterState(StatePanning)
		return
	}

	if e.readOnly {
		return
	}

	if handle, id := e.handleAt(p); handle != HandleNone {
		target, ok := e.set.Get(id)
		if !ok {
			return
		}
		if !e.selection.Has(id) {
			e.selection.Replace([]string{id})
			e.notifySelection()
		}
		e.history.Snapshot(e.set.Boxes())
		e.resizeHandle = handle
		e.resizeTarget = id
		e.resizeStart = target
		e.dragAnchor = p
		e.enterState(StateResizing)
		return
	}

	if hits := e.set.IDsAt(p); len(hits) > 0 {
		target := e.selection.CycleNext(hits)
		if shift {
			e.selection.Toggle(target)
		} else {
			e.selection.Replace([]string{target})
		}
		e.notifySelection()

		e.dragStart = nil
		for _, id := range e.selection.IDs() {
			if b, ok := e.set.Get(id); ok {
				e.dragStart = append(e.dragStart, b)
			}
		}
		e.history.Snapshot(e.set.Boxes())
		e.dragAnchor = p
		e.enterState(StateDragging)
		return
	}

	// Empty space: begin drawing a new box.
	e.history.Snapshot(e.set.Boxes())
	if !shift {
		e.selection.Clear()
		e.notifySelection()
	}
	e.drawAnchor = p
	e.drawCurrent = p
	e.enterState(StateDrawing)
}

// PointerMove advances the active gesture. While idle it only tracks the
// hovered box.
func (e *Editor) PointerMove(px, py float64) {
	if e.closed {
		return
	}

	switch e.state {
	case StateIdle:
		p := e.mapper.ToNormalized(px, py)
		e.hoveredID = e.set.TopAt(p)

	case StatePanning:
		e.mapper.Pan(px-e.lastPointerX, py-e.lastPointerY)
		e.lastPointerX, e.lastPointerY = px, py
		e.notifyView()

	case StateResizing:
		p := e.mapper.ToNormalized(px, py)
		e.applyResize(p)

	case StateDragging:
		p := e.mapper.ToNormalized(px, py)
		e.applyDrag(p)

	case StateDrawing:
		e.drawCurrent = e.mapper.ToNormalized(px, py)
	}
}

// PointerUp finishes the active gesture and returns to idle.
func (e *Editor) PointerUp(px, py float64) {
	if e.closed || e.state == StateIdle {
		return
	}

	prev := e.state
	switch prev {
	case StatePanning:
		// Nothing to commit.

	case StateResizing, StateDragging:
		if e.gestureDirty {
			e.commit()
		}

	case StateDrawing:
		e.drawCurrent = e.mapper.ToNormalized(px, py)
		r := geometry.RectFromCorners(e.drawAnchor, e.drawCurrent)
		if r.Width > annotation.MinSize && r.Height > annotation.MinSize {
			b := annotation.NewBox(e.currentClass, r)
			e.set.Append(b)
			e.selection.Replace([]string{b.ID})
			e.notifySelection()
			e.commit()
		}
		// Degenerate draws are discarded silently.
	}

	e.exitState(prev)
}

// Wheel applies a zoom wheel delta.
func (e *Editor) Wheel(delta float64) {
	if e.closed {
		return
	}
	e.mapper.Zoom(delta)
	e.notifyView()
}

// ResetView restores scale 1 and zero pan.
func (e *Editor) ResetView() {
	if e.closed {
		return
	}
	e.mapper.Reset()
	e.notifyView()
}

// Cancel forces a return to idle from any state and clears transient
// anchors. Bound to Escape.
func (e *Editor) Cancel() {
	if e.closed {
		return
	}
	e.cancelGesture()
}

// Key tracking ----------------------------------------------------------

// SetSpaceHeld records the space key state for synchronous pan-trigger reads.
func (e *Editor) SetSpaceHeld(held bool) {
	e.spaceHeld = held
}

// SetShiftHeld records the shift key state.
func (e *Editor) SetShiftHeld(held bool) {
	e.shiftHeld = held
}

// Gesture internals -----------------------------------------------------

func (e *Editor) enterState(s State) {
	e.state = s
	e.gestureDirty = false
	e.gestureDepth = e.history.Len()
	if e.onGestureStart != nil && !e.closed {
		e.onGestureStart(s)
	}
}

func (e *Editor) exitState(prev State) {
	e.state = StateIdle
	e.clearAnchors()
	if e.onGestureEnd != nil && !e.closed {
		e.onGestureEnd(prev)
	}
}

// cancelGesture aborts the active gesture. Mutating gestures pushed a
// snapshot on pointer-down; restoring it makes cancel mean revert, so the
// set never diverges from the last committed list.
func (e *Editor) cancelGesture() {
	if e.state == StateIdle {
		return
	}
	prev := e.state
	switch prev {
	case StateDrawing, StateDragging, StateResizing:
		// Only pop when the gesture's own snapshot is still on top; a
		// discrete action that ran mid-gesture keeps its history.
		if e.history.Len() == e.gestureDepth {
			if snap, ok := e.history.Undo(); ok {
				e.set.Replace(snap)
			}
		}
	}
	e.state = StateIdle
	e.clearAnchors()
	if e.onGestureEnd != nil && !e.closed {
		e.onGestureEnd(prev)
	}
}

func (e *Editor) clearAnchors() {
	e.dragAnchor = geometry.Point2D{}
	e.drawAnchor = geometry.Point2D{}
	e.drawCurrent = geometry.Point2D{}
	e.resizeHandle = HandleNone
	e.resizeTarget = ""
	e.resizeStart = annotation.Box{}
	e.dragStart = nil
	e.gestureDirty = false
	e.gestureDepth = 0
}

// handleAt hit-tests the four corner handles of every selected box. The pick
// radius is sized in screen pixels so handles stay clickable at any zoom.
func (e *Editor) handleAt(p geometry.Point2D) (Handle, string) {
	rx, ry := e.mapper.pixelsToNormalized(handleHitRadiusPx)
	for _, id := range e.selection.IDs() {
		b, ok := e.set.Get(id)
		if !ok {
			continue
		}
		r := b.Rect()
		corners := []struct {
			h Handle
			p geometry.Point2D
		}{
			{HandleTopLeft, r.TopLeft()},
			{HandleTopRight, r.TopRight()},
			{HandleBottomLeft, r.BottomLeft()},
			{HandleBottomRight, r.BottomRight()},
		}
		for _, c := range corners {
			if absF(p.X-c.p.X) <= rx && absF(p.Y-c.p.Y) <= ry {
				return c.h, id
			}
		}
	}
	return HandleNone, ""
}

// applyDrag moves every snapshotted box by the pointer delta, clamping each
// so it stays fully inside the unit square. Boxes deleted mid-gesture are
// skipped; the frame degrades to a no-op for them.
func (e *Editor) applyDrag(p geometry.Point2D) {
	delta := p.Sub(e.dragAnchor)
	for _, start := range e.dragStart {
		if !e.set.Contains(start.ID) {
			continue
		}
		b := start
		b.X = geometry.Clamp(start.X+delta.X, 0, 1-start.Width)
		b.Y = geometry.Clamp(start.Y+delta.Y, 0, 1-start.Height)
		b.AutoLabel = false
		e.set.Update(b)
		e.gestureDirty = true
	}
}

// applyResize recomputes the target box from its gesture-start snapshot and
// the raw pointer delta. Each handle moves exactly the two edges it touches;
// the opposite edges stay fixed.
func (e *Editor) applyResize(p geometry.Point2D) {
	if !e.set.Contains(e.resizeTarget) {
		// Target deleted mid-gesture: degrade to a no-op.
		return
	}

	delta := p.Sub(e.dragAnchor)
	r := resizeRect(e.resizeStart.Rect(), e.resizeHandle, delta.X, delta.Y)

	b := e.resizeStart
	b.SetRect(r)
	b.AutoLabel = false
	e.set.Update(b)
	e.gestureDirty = true
}

// resizeRect applies one corner handle's resize formula to the snapshot
// rectangle, enforcing the minimum size on the moving edges and then
// clamping the result into the unit square (shrinking the far edge inward,
// shifting+shrinking at the near edge).
func resizeRect(r geometry.Rect, h Handle, dx, dy float64) geometry.Rect {
	switch h {
	case HandleBottomRight:
		r.Width = maxF(annotation.MinSize, r.Width+dx)
		r.Height = maxF(annotation.MinSize, r.Height+dy)

	case HandleBottomLeft:
		dxc := minF(dx, r.Width-annotation.MinSize)
		r.X += dxc
		r.Width -= dxc
		r.Height = maxF(annotation.MinSize, r.Height+dy)

	case HandleTopRight:
		dyc := minF(dy, r.Height-annotation.MinSize)
		r.Y += dyc
		r.Height -= dyc
		r.Width = maxF(annotation.MinSize, r.Width+dx)

	case HandleTopLeft:
		dxc := minF(dx, r.Width-annotation.MinSize)
		dyc := minF(dy, r.Height-annotation.MinSize)
		r.X += dxc
		r.Width -= dxc
		r.Y += dyc
		r.Height -= dyc
	}

	// Never allow the box to leave the unit square.
	if r.X < 0 {
		r.Width += r.X
		r.X = 0
	}
	if r.Y < 0 {
		r.Height += r.Y
		r.Y = 0
	}
	if r.X+r.Width > 1 {
		r.Width = 1 - r.X
	}
	if r.Y+r.Height > 1 {
		r.Height = 1 - r.Y
	}
	r.Width = maxF(r.Width, annotation.MinSize)
	r.Height = maxF(r.Height, annotation.MinSize)
	return r
}

// commit reports the current annotation list to the host.
func (e *Editor) commit() {
	if e.onCommit != nil && !e.closed {
		e.onCommit(e.set.Boxes())
	}
}

func (e *Editor) notifySelection() {
	if e.onSelectionChange != nil && !e.closed {
		e.onSelectionChange(e.selection.IDs())
	}
}

func (e *Editor) notifyView() {
	if e.onViewChange != nil && !e.closed {
		e.onViewChange(e.mapper.View)
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
