package engine

import (
	"reflect"
	"testing"
	"time"

	"boxlabel/internal/annotation"
)

// Test editors map the unit square onto a 1000x1000 px viewport, so one
// pixel equals 0.001 normalized units.
func newTestEditor(boxes ...annotation.Box) *Editor {
	e := NewEditor(boxes)
	e.SetContent(0, 0, 1000, 1000)
	return e
}

// press/drag/release express gestures in normalized coordinates.
func press(e *Editor, x, y float64) { e.PointerDown(x*1000, y*1000, ButtonLeft, Modifiers{}) }
func shiftPress(e *Editor, x, y float64) {
	e.PointerDown(x*1000, y*1000, ButtonLeft, Modifiers{Shift: true})
}
func moveTo(e *Editor, x, y float64)  { e.PointerMove(x*1000, y*1000) }
func release(e *Editor, x, y float64) { e.PointerUp(x*1000, y*1000) }

func click(e *Editor, x, y float64) {
	press(e, x, y)
	release(e, x, y)
}

func drawBox(e *Editor, x1, y1, x2, y2 float64) {
	press(e, x1, y1)
	moveTo(e, x2, y2)
	release(e, x2, y2)
}

func singleBox(t *testing.T, e *Editor) annotation.Box {
	t.Helper()
	boxes := e.Boxes()
	if len(boxes) != 1 {
		t.Fatalf("expected exactly 1 box, got %d", len(boxes))
	}
	return boxes[0]
}

func approx(t *testing.T, got, want float64, what string) {
	t.Helper()
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("%s = %v, want %v", what, got, want)
	}
}

// Scenario A: drawing from (0.10,0.10) to (0.30,0.40) commits the spanned box.
func TestDraw_CommitsSpannedBox(t *testing.T) {
	e := newTestEditor()
	var commits int
	e.OnCommit(func([]annotation.Box) { commits++ })

	drawBox(e, 0.10, 0.10, 0.30, 0.40)

	b := singleBox(t, e)
	approx(t, b.X, 0.10, "x")
	approx(t, b.Y, 0.10, "y")
	approx(t, b.Width, 0.20, "w")
	approx(t, b.Height, 0.30, "h")
	if b.AutoLabel {
		t.Error("drawn box marked auto-label")
	}
	if commits != 1 {
		t.Errorf("commits = %d, want 1", commits)
	}
	if !reflect.DeepEqual(e.SelectedIDs(), []string{b.ID}) {
		t.Error("new box not auto-selected")
	}
	if e.State() != StateIdle {
		t.Errorf("state after release = %v", e.State())
	}
}

func TestDraw_ReversedCornersNormalize(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.30, 0.40, 0.10, 0.10)

	b := singleBox(t, e)
	approx(t, b.X, 0.10, "x")
	approx(t, b.Y, 0.10, "y")
	approx(t, b.Width, 0.20, "w")
	approx(t, b.Height, 0.30, "h")
}

// Boundary: a draw at or below the minimum size commits nothing, silently.
func TestDraw_DegenerateDiscarded(t *testing.T) {
	e := newTestEditor()
	var commits int
	e.OnCommit(func([]annotation.Box) { commits++ })

	drawBox(e, 0.100, 0.100, 0.1015, 0.400) // dx below MinSize
	drawBox(e, 0.100, 0.100, 0.400, 0.101)  // dy below MinSize

	if n := len(e.Boxes()); n != 0 {
		t.Errorf("degenerate draws committed %d boxes", n)
	}
	if commits != 0 {
		t.Errorf("commits = %d, want 0", commits)
	}
}

func TestDraw_NewBoxUsesCurrentClass(t *testing.T) {
	e := newTestEditor()
	e.SetCurrentClass(4)
	drawBox(e, 0.1, 0.1, 0.3, 0.3)

	if b := singleBox(t, e); b.ClassID != 4 {
		t.Errorf("class = %d, want 4", b.ClassID)
	}
}

// Scenario B: bottom-right resize moves only the right and bottom edges.
func TestResize_BottomRight(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.10, 0.10, 0.30, 0.40)

	press(e, 0.30, 0.40) // on the bottom-right handle
	if e.State() != StateResizing {
		t.Fatalf("state = %v, want resizing", e.State())
	}
	moveTo(e, 0.40, 0.45)
	release(e, 0.40, 0.45)

	b := singleBox(t, e)
	approx(t, b.X, 0.10, "x")
	approx(t, b.Y, 0.10, "y")
	approx(t, b.Width, 0.30, "w")
	approx(t, b.Height, 0.35, "h")
}

func TestResize_TopLeftPreservesOppositeEdges(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.20, 0.20, 0.60, 0.60)

	press(e, 0.20, 0.20)
	moveTo(e, 0.30, 0.25)
	release(e, 0.30, 0.25)

	b := singleBox(t, e)
	approx(t, b.X, 0.30, "x")
	approx(t, b.Y, 0.25, "y")
	// The bottom-right corner must not move.
	approx(t, b.X+b.Width, 0.60, "right edge")
	approx(t, b.Y+b.Height, 0.60, "bottom edge")
}

func TestResize_ClampsToMinimumSize(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.10, 0.10, 0.30, 0.30)

	// Drag the bottom-left handle far past the right edge.
	press(e, 0.10, 0.30)
	moveTo(e, 0.90, 0.30)
	release(e, 0.90, 0.30)

	b := singleBox(t, e)
	approx(t, b.Width, annotation.MinSize, "w")
	// Right edge is the pivot and must not move.
	approx(t, b.X+b.Width, 0.30, "right edge")
	if !b.Valid() {
		t.Errorf("box invariant violated: %+v", b)
	}
}

func TestResize_ClampsToUnitSquare(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.70, 0.70, 0.90, 0.90)

	// Drag bottom-right far outside: pointer clamps to (1,1).
	press(e, 0.90, 0.90)
	moveTo(e, 2.0, 2.0)
	release(e, 2.0, 2.0)

	b := singleBox(t, e)
	approx(t, b.X, 0.70, "x")
	approx(t, b.Y, 0.70, "y")
	if b.X+b.Width > 1 || b.Y+b.Height > 1 {
		t.Errorf("box leaves unit square: %+v", b)
	}
	if !b.Valid() {
		t.Errorf("box invariant violated: %+v", b)
	}
}

func TestResize_ClearsAutoLabel(t *testing.T) {
	e := newTestEditor(annotation.Box{
		ID: "m", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2, AutoLabel: true,
	})
	e.Select("m")

	press(e, 0.30, 0.30)
	moveTo(e, 0.35, 0.35)
	release(e, 0.35, 0.35)

	if b := e.Boxes()[0]; b.AutoLabel {
		t.Error("resize kept auto-label flag")
	}
}

// Scenario C: dragging moves the box by the pointer delta.
func TestDrag_MovesBox(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.10, 0.10, 0.40, 0.45)

	press(e, 0.25, 0.25)
	if e.State() != StateDragging {
		t.Fatalf("state = %v, want dragging", e.State())
	}
	moveTo(e, 0.20, 0.25)
	release(e, 0.20, 0.25)

	b := singleBox(t, e)
	approx(t, b.X, 0.05, "x")
	approx(t, b.Y, 0.10, "y")
	approx(t, b.Width, 0.30, "w")
	approx(t, b.Height, 0.35, "h")
}

func TestDrag_ClampedInsideUnitSquare(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.10, 0.10, 0.30, 0.30)

	press(e, 0.20, 0.20)
	moveTo(e, 0.0, 0.0) // pointer clamps at the top-left corner
	release(e, 0.0, 0.0)

	b := singleBox(t, e)
	approx(t, b.X, 0, "x")
	approx(t, b.Y, 0, "y")
	approx(t, b.Width, 0.20, "w")
	if !b.Valid() {
		t.Errorf("box invariant violated: %+v", b)
	}
}

func TestDrag_MultiSelectionMovesTogether(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.10, 0.10, 0.20, 0.20)
	drawBox(e, 0.50, 0.50, 0.60, 0.60)

	click(e, 0.15, 0.15)
	shiftPress(e, 0.55, 0.55)
	moveTo(e, 0.60, 0.55) // drag both by +0.05 in x
	release(e, 0.60, 0.55)

	boxes := e.Boxes()
	approx(t, boxes[0].X, 0.15, "first x")
	approx(t, boxes[1].X, 0.55, "second x")
	approx(t, boxes[0].Y, 0.10, "first y")
}

func TestDrag_CommitOnlyOnRelease(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.10, 0.10, 0.30, 0.30)

	var commits int
	e.OnCommit(func([]annotation.Box) { commits++ })

	press(e, 0.20, 0.20)
	moveTo(e, 0.25, 0.20)
	moveTo(e, 0.30, 0.20)
	moveTo(e, 0.35, 0.20)
	if commits != 0 {
		t.Fatalf("commit fired during pointer-move: %d", commits)
	}
	release(e, 0.35, 0.20)
	if commits != 1 {
		t.Errorf("commits = %d, want 1", commits)
	}
}

// Scenario D: delete then undo restores the box exactly.
func TestDeleteUndo_RestoresExactState(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.10, 0.10, 0.40, 0.45)
	press(e, 0.25, 0.25)
	moveTo(e, 0.20, 0.25)
	release(e, 0.20, 0.25)

	before := e.Boxes()
	e.Delete()
	if len(e.Boxes()) != 0 {
		t.Fatal("delete left boxes behind")
	}
	if len(e.SelectedIDs()) != 0 {
		t.Error("selection not pruned after delete")
	}

	e.Undo()
	if !reflect.DeepEqual(e.Boxes(), before) {
		t.Errorf("undo did not restore state:\n got %+v\nwant %+v", e.Boxes(), before)
	}
}

// Undo immediately after any committed action restores the previous list.
func TestUndo_AfterEachActionKind(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.10, 0.10, 0.30, 0.30)

	steps := []func(){
		func() { // drag
			press(e, 0.2, 0.2)
			moveTo(e, 0.25, 0.2)
			release(e, 0.25, 0.2)
		},
		func() { // resize
			press(e, 0.2, 0.2)
			release(e, 0.2, 0.2) // reselect
			b := e.Boxes()[0]
			press(e, b.X+b.Width, b.Y+b.Height)
			moveTo(e, b.X+b.Width+0.05, b.Y+b.Height+0.05)
			release(e, b.X+b.Width+0.05, b.Y+b.Height+0.05)
		},
		func() { // paste
			e.SelectAll()
			e.Copy()
			e.Paste()
		},
		func() { // delete all
			e.DeleteAll()
		},
	}

	for i, step := range steps {
		before := e.Boxes()
		step()
		e.Undo()
		if !reflect.DeepEqual(e.Boxes(), before) {
			t.Fatalf("step %d: undo did not restore previous state", i)
		}
	}
}

func TestUndo_EmptyStackIsNoop(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})
	var commits int
	e.OnCommit(func([]annotation.Box) { commits++ })

	e.Undo()
	if commits != 0 {
		t.Error("undo on empty stack fired a commit")
	}
	if len(e.Boxes()) != 1 {
		t.Error("undo on empty stack mutated the set")
	}
}

// Scenario E: repeated clicks on overlapping boxes cycle through them.
func TestCycleSelect_TwoBoxes(t *testing.T) {
	e := newTestEditor(
		annotation.Box{ID: "bottom", X: 0.10, Y: 0.10, Width: 0.30, Height: 0.30},
		annotation.Box{ID: "top", X: 0.20, Y: 0.20, Width: 0.30, Height: 0.30},
	)
	idA, idB := "bottom", "top"

	click(e, 0.30, 0.30)
	if got := e.SelectedIDs(); len(got) != 1 || got[0] != idB {
		t.Fatalf("first click selected %v, want topmost %q", got, idB)
	}
	click(e, 0.30, 0.30)
	if got := e.SelectedIDs(); len(got) != 1 || got[0] != idA {
		t.Fatalf("second click selected %v, want %q", got, idA)
	}
	click(e, 0.30, 0.30)
	if got := e.SelectedIDs(); len(got) != 1 || got[0] != idB {
		t.Fatalf("third click selected %v, want %q again", got, idB)
	}
}

// Cycle property: N overlapping boxes are visited exactly once each before
// the cycle repeats.
func TestCycleSelect_VisitsAllBeforeRepeating(t *testing.T) {
	const n = 4
	// Stacked boxes all covering the point (0.3,0.3).
	e := newTestEditor(
		annotation.Box{ID: "b0", X: 0.10, Y: 0.10, Width: 0.5, Height: 0.5},
		annotation.Box{ID: "b1", X: 0.15, Y: 0.15, Width: 0.5, Height: 0.5},
		annotation.Box{ID: "b2", X: 0.20, Y: 0.20, Width: 0.5, Height: 0.5},
		annotation.Box{ID: "b3", X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5},
	)

	seen := make(map[string]int)
	var order []string
	for i := 0; i < n; i++ {
		click(e, 0.30, 0.30)
		ids := e.SelectedIDs()
		if len(ids) != 1 {
			t.Fatalf("click %d: selection %v", i, ids)
		}
		seen[ids[0]]++
		order = append(order, ids[0])
	}
	if len(seen) != n {
		t.Fatalf("%d clicks visited %d distinct boxes (%v)", n, len(seen), order)
	}
	// The next click restarts the cycle.
	click(e, 0.30, 0.30)
	if got := e.SelectedIDs()[0]; got != order[0] {
		t.Errorf("cycle did not wrap: got %q, want %q", got, order[0])
	}
}

func TestShiftClick_TogglesMembership(t *testing.T) {
	e := newTestEditor(
		annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.1, Height: 0.1},
		annotation.Box{ID: "b", X: 0.5, Y: 0.5, Width: 0.1, Height: 0.1},
	)

	click(e, 0.15, 0.15)
	shiftPress(e, 0.55, 0.55)
	release(e, 0.55, 0.55)
	ids := e.SelectedIDs()
	if len(ids) != 2 {
		t.Fatalf("selection = %v, want both boxes", ids)
	}

	// Shift-clicking a selected box removes it.
	shiftPress(e, 0.55, 0.55)
	release(e, 0.55, 0.55)
	ids = e.SelectedIDs()
	if len(ids) != 1 || ids[0] != "a" {
		t.Errorf("selection = %v, want [a]", ids)
	}
}

// Paste property: new ids are disjoint from pre-existing ids and the
// selection equals exactly the new ids.
func TestPaste_FreshIDsAndSelection(t *testing.T) {
	e := newTestEditor(
		annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2},
		annotation.Box{ID: "b", X: 0.5, Y: 0.5, Width: 0.2, Height: 0.2},
	)
	existing := map[string]bool{"a": true, "b": true}

	e.SelectAll()
	e.Copy()
	e.Paste()

	boxes := e.Boxes()
	if len(boxes) != 4 {
		t.Fatalf("expected 4 boxes after paste, got %d", len(boxes))
	}

	var newIDs []string
	for _, b := range boxes {
		if !existing[b.ID] {
			newIDs = append(newIDs, b.ID)
		}
	}
	if len(newIDs) != 2 {
		t.Fatalf("expected 2 fresh ids, got %v", newIDs)
	}

	sel := e.SelectedIDs()
	if !reflect.DeepEqual(sel, newIDs) {
		t.Errorf("selection %v != pasted ids %v", sel, newIDs)
	}
	for _, id := range newIDs {
		if !e.IsHighlighted(id) {
			t.Errorf("pasted id %q not highlighted", id)
		}
	}
}

func TestCopy_RequiresSelection(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})
	e.Copy()
	if e.ClipboardLen() != 0 {
		t.Error("copy with empty selection stored boxes")
	}
	e.Paste() // empty clipboard: no-op
	if len(e.Boxes()) != 1 {
		t.Error("paste with empty clipboard mutated the set")
	}
}

func TestPan_ByTrigger(t *testing.T) {
	triggers := []struct {
		name  string
		begin func(e *Editor)
	}{
		{"pan tool", func(e *Editor) {
			e.SetTool(ToolPan)
			press(e, 0.5, 0.5)
		}},
		{"middle button", func(e *Editor) {
			e.PointerDown(500, 500, ButtonMiddle, Modifiers{})
		}},
		{"space held", func(e *Editor) {
			e.SetSpaceHeld(true)
			press(e, 0.5, 0.5)
		}},
		{"shift on empty space", func(e *Editor) {
			shiftPress(e, 0.5, 0.5)
		}},
	}

	for _, tc := range triggers {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})
			tc.begin(e)
			if e.State() != StatePanning {
				t.Fatalf("state = %v, want panning", e.State())
			}
			e.PointerMove(520, 510)
			v := e.View()
			if v.PanX != 20 || v.PanY != 10 {
				t.Errorf("pan = (%v,%v), want (20,10)", v.PanX, v.PanY)
			}
			e.PointerUp(520, 510)
			if e.State() != StateIdle {
				t.Errorf("state after release = %v", e.State())
			}
			// Panning never touches the annotations.
			if len(e.Boxes()) != 1 || e.Boxes()[0].X != 0.1 {
				t.Error("pan mutated the annotation set")
			}
		})
	}
}

func TestRightClick_DeletesHitBox(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})
	var commits int
	e.OnCommit(func([]annotation.Box) { commits++ })

	e.PointerDown(150, 150, ButtonRight, Modifiers{})
	if len(e.Boxes()) != 0 {
		t.Fatal("right click did not delete the box")
	}
	if e.State() != StateIdle {
		t.Errorf("right click changed state to %v", e.State())
	}
	if commits != 1 {
		t.Errorf("commits = %d, want 1", commits)
	}

	// Right click on empty space does nothing.
	e.PointerDown(900, 900, ButtonRight, Modifiers{})
	if commits != 1 {
		t.Error("right click on empty space fired a commit")
	}
}

func TestReadOnly_OnlyPanningAllowed(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})
	e.SetReadOnly(true)

	press(e, 0.15, 0.15) // down on the box
	if e.State() != StateIdle {
		t.Errorf("read-only click entered %v", e.State())
	}
	if len(e.SelectedIDs()) != 0 {
		t.Error("read-only click changed selection")
	}

	press(e, 0.9, 0.9) // empty space: no drawing either
	if e.State() != StateIdle {
		t.Errorf("read-only empty-space click entered %v", e.State())
	}

	e.SetSpaceHeld(true)
	press(e, 0.5, 0.5)
	if e.State() != StatePanning {
		t.Error("read-only mode blocked panning")
	}
	release(e, 0.5, 0.5)

	e.Delete()
	e.DeleteAll()
	e.Paste()
	if len(e.Boxes()) != 1 {
		t.Error("read-only mode allowed a mutation")
	}
}

func TestEscape_CancelsGestureAndClearsState(t *testing.T) {
	e := newTestEditor()
	press(e, 0.1, 0.1)
	moveTo(e, 0.3, 0.3)
	if e.State() != StateDrawing {
		t.Fatalf("state = %v", e.State())
	}

	e.Cancel()
	if e.State() != StateIdle {
		t.Errorf("escape left state %v", e.State())
	}
	// The release that follows the cancelled gesture must not commit a box.
	release(e, 0.3, 0.3)
	if len(e.Boxes()) != 0 {
		t.Error("cancelled draw still committed")
	}

	e.SetTool(ToolPan)
	e.EscapeAction()
	if e.Tool() != ToolSelect {
		t.Error("escape did not revert the tool")
	}
}

func TestCancel_RevertsDragGeometry(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})
	var commits int
	e.OnCommit(func([]annotation.Box) { commits++ })

	press(e, 0.2, 0.2)
	moveTo(e, 0.6, 0.6)
	if e.State() != StateDragging {
		t.Fatalf("state = %v, want dragging", e.State())
	}

	e.Cancel()

	b := singleBox(t, e)
	approx(t, b.X, 0.1, "x")
	approx(t, b.Y, 0.1, "y")
	if commits != 0 {
		t.Errorf("cancelled drag committed %d times", commits)
	}
	if e.HistoryLen() != 0 {
		t.Error("cancelled drag left its snapshot on the stack")
	}

	// The release that follows the cancel is inert.
	release(e, 0.6, 0.6)
	if commits != 0 {
		t.Error("release after cancel committed")
	}
}

func TestCancel_RevertsResizeGeometry(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.10, 0.10, 0.30, 0.40)

	press(e, 0.30, 0.40) // bottom-right handle
	if e.State() != StateResizing {
		t.Fatalf("state = %v, want resizing", e.State())
	}
	moveTo(e, 0.50, 0.60)

	e.Cancel()

	b := singleBox(t, e)
	approx(t, b.Width, 0.20, "w")
	approx(t, b.Height, 0.30, "h")
	if e.HistoryLen() != 1 {
		t.Errorf("history len = %d, want just the draw snapshot", e.HistoryLen())
	}
}

func TestCancel_KeepsMidGestureActionHistory(t *testing.T) {
	e := newTestEditor(
		annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2},
		annotation.Box{ID: "b", X: 0.6, Y: 0.6, Width: 0.2, Height: 0.2},
	)

	press(e, 0.2, 0.2)
	moveTo(e, 0.4, 0.4)

	// A discrete deletion lands while the drag is active; its snapshot must
	// survive the cancel.
	e.DeleteBox("b")
	e.Cancel()

	if len(e.Boxes()) != 1 {
		t.Fatalf("boxes = %d, want 1", len(e.Boxes()))
	}
	if e.HistoryLen() != 2 {
		t.Errorf("history len = %d, want 2", e.HistoryLen())
	}
}

func TestHover_TrackedWhileIdle(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})

	moveTo(e, 0.15, 0.15)
	if e.HoveredID() != "a" {
		t.Errorf("hovered = %q, want a", e.HoveredID())
	}
	moveTo(e, 0.9, 0.9)
	if e.HoveredID() != "" {
		t.Errorf("hovered = %q, want empty", e.HoveredID())
	}
}

func TestDelete_FallsBackToHoveredBox(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})
	moveTo(e, 0.15, 0.15)
	e.Delete()
	if len(e.Boxes()) != 0 {
		t.Error("delete ignored the hovered box")
	}
	if e.HoveredID() != "" {
		t.Error("hovered id survived its box")
	}
}

func TestChangeClass_MarksEdited(t *testing.T) {
	e := newTestEditor(annotation.Box{
		ID: "a", ClassID: 0, X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2, AutoLabel: true,
	})
	e.Select("a")
	e.SetCurrentClass(2)

	before := e.Boxes()
	e.ChangeClass()

	b := e.Boxes()[0]
	if b.ClassID != 2 {
		t.Errorf("class = %d, want 2", b.ClassID)
	}
	if b.AutoLabel {
		t.Error("class change kept auto-label flag")
	}

	e.Undo()
	if !reflect.DeepEqual(e.Boxes(), before) {
		t.Error("undo did not revert class change")
	}
}

func TestChangeClass_NoopWhenAlreadyCurrent(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", ClassID: 1, X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})
	e.Select("a")
	e.SetCurrentClass(1)

	var commits int
	e.OnCommit(func([]annotation.Box) { commits++ })
	e.ChangeClass()
	if commits != 0 {
		t.Error("no-op class change fired a commit")
	}
	if e.HistoryLen() != 0 {
		t.Error("no-op class change pushed a snapshot")
	}
}

func TestMissingTarget_DragDegradesToNoop(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})

	press(e, 0.15, 0.15)
	if e.State() != StateDragging {
		t.Fatalf("state = %v", e.State())
	}

	// The target disappears mid-gesture.
	e.DeleteBox("a")

	var commits int
	e.OnCommit(func([]annotation.Box) { commits++ })
	moveTo(e, 0.5, 0.5) // must not panic, must not resurrect the box
	release(e, 0.5, 0.5)

	if len(e.Boxes()) != 0 {
		t.Error("drag on deleted box resurrected it")
	}
	if commits != 0 {
		t.Error("no-op gesture still committed")
	}
	if e.State() != StateIdle {
		t.Errorf("state = %v", e.State())
	}
}

func TestMissingTarget_ResizeDegradesToNoop(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})
	e.Select("a")

	press(e, 0.3, 0.3) // bottom-right handle
	if e.State() != StateResizing {
		t.Fatalf("state = %v", e.State())
	}
	e.DeleteBox("a")

	moveTo(e, 0.5, 0.5)
	release(e, 0.5, 0.5)
	if len(e.Boxes()) != 0 {
		t.Error("resize on deleted box resurrected it")
	}
}

func TestImportCandidates(t *testing.T) {
	e := newTestEditor()
	n := e.ImportCandidates([]annotation.Box{
		{ClassID: 1, X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2},
		{ClassID: 1, X: 0.5, Y: 0.5, Width: 0.001, Height: 0.2}, // degenerate
	})
	if n != 1 {
		t.Fatalf("imported %d, want 1", n)
	}

	b := singleBox(t, e)
	if !b.AutoLabel {
		t.Error("imported candidate not marked auto-label")
	}
	if b.ID == "" {
		t.Error("imported candidate has no id")
	}
	if len(e.SelectedIDs()) != 0 {
		t.Error("import changed the selection")
	}

	e.Undo()
	if len(e.Boxes()) != 0 {
		t.Error("undo did not revert the import")
	}
}

func TestGestureHooks_SubscribeUnsubscribePairs(t *testing.T) {
	e := newTestEditor()
	var started, ended []State
	e.OnGestureStart(func(s State) { started = append(started, s) })
	e.OnGestureEnd(func(s State) { ended = append(ended, s) })

	drawBox(e, 0.1, 0.1, 0.3, 0.3)
	press(e, 0.2, 0.2)
	release(e, 0.2, 0.2)

	if len(started) != 2 || len(ended) != 2 {
		t.Fatalf("hooks fired %d/%d times, want 2/2", len(started), len(ended))
	}
	if started[0] != StateDrawing || ended[0] != StateDrawing {
		t.Errorf("first gesture hooks: %v/%v", started[0], ended[0])
	}
	if started[1] != StateDragging || ended[1] != StateDragging {
		t.Errorf("second gesture hooks: %v/%v", started[1], ended[1])
	}
}

// No handler may fire after teardown.
func TestClose_NoCallbacksAfterTeardown(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})

	var fired int
	count := func() { fired++ }
	e.OnCommit(func([]annotation.Box) { count() })
	e.OnSelectionChange(func([]string) { count() })
	e.OnViewChange(func(ViewTransform) { count() })
	e.OnGestureStart(func(State) { count() })
	e.OnGestureEnd(func(State) { count() })

	press(e, 0.15, 0.15) // active gesture at teardown
	e.Close()
	fired = 0

	moveTo(e, 0.5, 0.5)
	release(e, 0.5, 0.5)
	press(e, 0.15, 0.15)
	e.Wheel(100)
	e.Delete()
	e.Undo()
	e.Paste()

	if fired != 0 {
		t.Errorf("%d callbacks fired after Close", fired)
	}
	if e.Boxes()[0].X != 0.1 {
		t.Error("editor mutated after Close")
	}
}

func TestPasteHighlight_ExpiresAndGuardsStaleTimer(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})

	var expire func()
	e.SetScheduler(func(d time.Duration, f func()) func() {
		if d != HighlightDuration {
			t.Errorf("highlight duration = %v, want %v", d, HighlightDuration)
		}
		expire = f
		return func() { expire = nil }
	})

	e.Select("a")
	e.Copy()
	e.Paste()

	pasted := e.SelectedIDs()[0]
	if !e.IsHighlighted(pasted) {
		t.Fatal("pasted box not highlighted")
	}

	expire()
	if e.IsHighlighted(pasted) {
		t.Error("highlight survived expiry")
	}

	// A timer surviving teardown must not touch state.
	e.Paste()
	stale := expire
	e.Close()
	stale() // must be a silent no-op
}

func TestWheelZoom_AndResetView(t *testing.T) {
	e := newTestEditor()
	e.Wheel(500)
	if e.View().Scale != 1.5 {
		t.Errorf("scale = %v, want 1.5", e.View().Scale)
	}

	e.ResetView()
	v := e.View()
	if v.Scale != 1 || v.PanX != 0 || v.PanY != 0 {
		t.Errorf("reset view = %+v", v)
	}
}

// Invariant: every box satisfies the geometry bounds after any sequence of
// committed edits.
func TestInvariant_AfterEditSequence(t *testing.T) {
	e := newTestEditor()
	drawBox(e, 0.05, 0.05, 0.95, 0.95)
	press(e, 0.95, 0.95) // bottom-right handle
	moveTo(e, 1.5, 1.5)
	release(e, 1.5, 1.5)
	press(e, 0.5, 0.5)
	moveTo(e, 0.0, 0.9)
	release(e, 0.0, 0.9)
	e.SelectAll()
	e.Copy()
	e.Paste()

	for _, b := range e.Boxes() {
		if !b.Valid() {
			t.Errorf("invariant violated: %+v", b)
		}
	}
}

func TestLoadBoxes_ResetsSessionButKeepsClipboard(t *testing.T) {
	e := newTestEditor(annotation.Box{ID: "a", X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2})
	e.Select("a")
	e.Copy()
	e.Delete()

	e.LoadBoxes([]annotation.Box{
		{ID: "b", X: 0.4, Y: 0.4, Width: 0.2, Height: 0.2},
	})

	if got := e.Boxes(); len(got) != 1 || got[0].ID != "b" {
		t.Fatalf("boxes after load = %+v", got)
	}
	if e.HistoryLen() != 0 {
		t.Error("history survived image switch")
	}
	if len(e.SelectedIDs()) != 0 {
		t.Error("selection survived image switch")
	}

	// The clipboard crosses images.
	e.Paste()
	if len(e.Boxes()) != 2 {
		t.Error("clipboard did not survive image switch")
	}
}

func TestDrawRect_ExposedWhileDrawing(t *testing.T) {
	e := newTestEditor()
	if _, ok := e.DrawRect(); ok {
		t.Error("DrawRect reported active while idle")
	}

	press(e, 0.1, 0.1)
	moveTo(e, 0.3, 0.4)
	r, ok := e.DrawRect()
	if !ok {
		t.Fatal("DrawRect inactive while drawing")
	}
	approx(t, r.X, 0.1, "x")
	approx(t, r.Y, 0.1, "y")
	approx(t, r.Width, 0.2, "w")
	approx(t, r.Height, 0.3, "h")
	release(e, 0.3, 0.4)
}
