// Package canvas provides the annotation canvas widget: it renders the
// current image with its bounding boxes and feeds pointer events into the
// editing engine.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"boxlabel/internal/app"
	"boxlabel/internal/engine"
	"boxlabel/pkg/colorutil"
)

var (
	backgroundColor = color.RGBA{R: 0x1A, G: 0x1A, B: 0x1A, A: 0xFF}
	rubberBandColor = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
	highlightColor  = color.RGBA{R: 0xFF, G: 0xD5, B: 0x4F, A: 0xFF}
	handleFillColor = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// AnnotationCanvas displays the current image and its annotations and routes
// all pointer input to the editing engine. Rendering happens in a single
// raster draw callback so the frame is always consistent with engine state.
type AnnotationCanvas struct {
	widget.BaseWidget

	state  *app.State
	editor *engine.Editor
	raster *fynecanvas.Raster

	// Content box of the unscaled image within the widget, in Fyne units.
	// Recomputed on resize and image change; mirrored into the engine via
	// SetContent so pointer math and rendering agree.
	originX, originY   float64
	contentW, contentH float64
}

// NewAnnotationCanvas creates the canvas bound to the application state.
func NewAnnotationCanvas(state *app.State) *AnnotationCanvas {
	ac := &AnnotationCanvas{
		state:  state,
		editor: state.Editor,
	}
	ac.raster = fynecanvas.NewRaster(ac.draw)
	ac.raster.ScaleMode = fynecanvas.ImageScalePixels
	ac.ExtendBaseWidget(ac)

	// The editor expects its highlight expiry on the UI thread, and the
	// fading highlight needs a repaint nothing else would trigger.
	state.Editor.SetScheduler(ac.scheduleHighlightExpiry)

	state.On(app.EventImageLoaded, func(interface{}) {
		ac.recomputeContent(ac.Size())
		ac.raster.Refresh()
	})
	state.On(app.EventAnnotationsChanged, func(interface{}) {
		ac.raster.Refresh()
	})
	state.On(app.EventSelectionChanged, func(interface{}) {
		ac.raster.Refresh()
	})
	state.On(app.EventViewChanged, func(interface{}) {
		ac.raster.Refresh()
	})
	state.On(app.EventClassesChanged, func(interface{}) {
		ac.raster.Refresh()
	})

	return ac
}

// CreateRenderer implements fyne.Widget.
func (ac *AnnotationCanvas) CreateRenderer() fyne.WidgetRenderer {
	return &annotationCanvasRenderer{canvas: ac}
}

// Refresh redraws the canvas.
func (ac *AnnotationCanvas) Refresh() {
	ac.raster.Refresh()
}

// recomputeContent fits the current image into the widget at scale 1,
// centered, and pushes the resulting content box into the engine.
func (ac *AnnotationCanvas) recomputeContent(size fyne.Size) {
	w := float64(size.Width)
	h := float64(size.Height)
	if w <= 0 || h <= 0 {
		return
	}

	item := ac.state.Image
	if item == nil || item.Image == nil {
		ac.originX, ac.originY = 0, 0
		ac.contentW, ac.contentH = w, h
		ac.editor.SetContent(0, 0, w, h)
		return
	}

	iw := float64(item.Width())
	ih := float64(item.Height())
	fit := w / iw
	if h/ih < fit {
		fit = h / ih
	}
	ac.contentW = iw * fit
	ac.contentH = ih * fit
	ac.originX = (w - ac.contentW) / 2
	ac.originY = (h - ac.contentH) / 2
	ac.editor.SetContent(ac.originX, ac.originY, ac.contentW, ac.contentH)
}

// scheduleHighlightExpiry hops a deferred editor callback onto the UI
// thread and redraws once it has run.
func (ac *AnnotationCanvas) scheduleHighlightExpiry(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, func() {
		fyne.Do(func() {
			f()
			ac.raster.Refresh()
		})
	})
	return func() { t.Stop() }
}

// pointerMove forwards a pointer position change and redraws.
func (ac *AnnotationCanvas) pointerMove(pos fyne.Position) {
	ac.editor.PointerMove(float64(pos.X), float64(pos.Y))
	ac.raster.Refresh()
}

// MouseDown implements desktop.Mouseable.
func (ac *AnnotationCanvas) MouseDown(ev *desktop.MouseEvent) {
	var btn engine.Button
	switch ev.Button {
	case desktop.MouseButtonSecondary:
		btn = engine.ButtonRight
	case desktop.MouseButtonTertiary:
		btn = engine.ButtonMiddle
	default:
		btn = engine.ButtonLeft
	}
	mods := engine.Modifiers{
		Shift: ev.Modifier&fyne.KeyModifierShift != 0,
		Mod:   ev.Modifier&fyne.KeyModifierShortcutDefault != 0,
	}
	ac.editor.PointerDown(float64(ev.Position.X), float64(ev.Position.Y), btn, mods)
	ac.raster.Refresh()
}

// MouseUp implements desktop.Mouseable.
func (ac *AnnotationCanvas) MouseUp(ev *desktop.MouseEvent) {
	ac.editor.PointerUp(float64(ev.Position.X), float64(ev.Position.Y))
	ac.raster.Refresh()
}

// MouseIn implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseIn(ev *desktop.MouseEvent) {
	ac.pointerMove(ev.Position)
}

// MouseMoved implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseMoved(ev *desktop.MouseEvent) {
	ac.pointerMove(ev.Position)
}

// MouseOut implements desktop.Hoverable.
func (ac *AnnotationCanvas) MouseOut() {}

// Dragged implements fyne.Draggable. The desktop driver routes moves here
// while a button is held, so both paths feed the same engine call.
func (ac *AnnotationCanvas) Dragged(ev *fyne.DragEvent) {
	ac.pointerMove(ev.Position)
}

// DragEnd implements fyne.Draggable. The matching MouseUp carries the final
// position, nothing to do here.
func (ac *AnnotationCanvas) DragEnd() {}

// Scrolled implements fyne.Scrollable and maps wheel movement to zoom.
func (ac *AnnotationCanvas) Scrolled(ev *fyne.ScrollEvent) {
	ac.editor.Wheel(float64(ev.Scrolled.DY))
	ac.raster.Refresh()
}

// draw renders one frame: background, image, then annotation overlays. The
// raster hands us the true pixel size, which may differ from the widget size
// on HiDPI displays, so everything is positioned through pxScale.
func (ac *AnnotationCanvas) draw(w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(backgroundColor), image.Point{}, draw.Src)

	size := ac.Size()
	if size.Width <= 0 || size.Height <= 0 || w <= 0 || h <= 0 {
		return dst
	}
	pxScale := float64(w) / float64(size.Width)
	view := ac.editor.View()

	ac.drawImage(dst, pxScale, view)
	ac.drawBoxes(dst, pxScale, view)

	if r, ok := ac.editor.DrawRect(); ok {
		x0, y0 := ac.toRaster(r.X, r.Y, pxScale, view)
		x1, y1 := ac.toRaster(r.X+r.Width, r.Y+r.Height, pxScale, view)
		drawDashedRect(dst, x0, y0, x1, y1, rubberBandColor)
	}

	return dst
}

// toRaster maps a normalized image coordinate to raster pixels.
func (ac *AnnotationCanvas) toRaster(nx, ny, pxScale float64, view engine.ViewTransform) (int, int) {
	x := (nx*ac.contentW*view.Scale + ac.originX + view.PanX) * pxScale
	y := (ny*ac.contentH*view.Scale + ac.originY + view.PanY) * pxScale
	return int(x + 0.5), int(y + 0.5)
}

// drawImage samples the source image with nearest-neighbor lookup so zoom
// shows crisp pixels instead of interpolation blur.
func (ac *AnnotationCanvas) drawImage(dst *image.RGBA, pxScale float64, view engine.ViewTransform) {
	item := ac.state.Image
	if item == nil || item.Image == nil {
		return
	}
	src := item.Image
	srcBounds := src.Bounds()
	srcW := srcBounds.Dx()
	srcH := srcBounds.Dy()
	if srcW == 0 || srcH == 0 {
		return
	}

	cw := ac.contentW * view.Scale
	chh := ac.contentH * view.Scale
	if cw <= 0 || chh <= 0 {
		return
	}

	bounds := dst.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		ny := (float64(y)/pxScale - ac.originY - view.PanY) / chh
		if ny < 0 || ny >= 1 {
			continue
		}
		sy := srcBounds.Min.Y + int(ny*float64(srcH))
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			nx := (float64(x)/pxScale - ac.originX - view.PanX) / cw
			if nx < 0 || nx >= 1 {
				continue
			}
			sx := srcBounds.Min.X + int(nx*float64(srcW))
			r, g, b, _ := src.At(sx, sy).RGBA()
			dst.SetRGBA(x, y, color.RGBA{
				R: uint8(r >> 8),
				G: uint8(g >> 8),
				B: uint8(b >> 8),
				A: 255,
			})
		}
	}
}

// drawBoxes renders every annotation: class-colored outlines, selection
// handles, hover emphasis, paste highlight and optional class labels.
func (ac *AnnotationCanvas) drawBoxes(dst *image.RGBA, pxScale float64, view engine.ViewTransform) {
	boxes := ac.editor.Boxes()
	if len(boxes) == 0 {
		return
	}

	selected := make(map[string]bool)
	for _, id := range ac.editor.SelectedIDs() {
		selected[id] = true
	}
	hovered := ac.editor.HoveredID()
	dim := ac.editor.DimUnselected()
	showLabels := ac.editor.ShowLabels()
	classes := ac.state.Classes

	handleSize := int(6 * pxScale)
	if handleSize < 5 {
		handleSize = 5
	}

	for _, b := range boxes {
		x0, y0 := ac.toRaster(b.X, b.Y, pxScale, view)
		x1, y1 := ac.toRaster(b.X+b.Width, b.Y+b.Height, pxScale, view)

		col := colorutil.ForClassIndex(b.ClassID)
		if classes != nil {
			col = classes.ColorOf(b.ClassID)
		}
		if ac.editor.IsHighlighted(b.ID) {
			col = highlightColor
		}
		if dim && !selected[b.ID] {
			col = colorutil.Dim(col, 0.35)
		}

		thickness := 1
		if selected[b.ID] {
			thickness = 2
		}

		if selected[b.ID] || b.ID == hovered {
			fillRect(dst, x0, y0, x1, y1, colorutil.WithAlpha(col, 0x30))
		}

		if b.AutoLabel {
			// Machine-suggested boxes stay dashed until a user edit
			// confirms them.
			drawDashedRect(dst, x0, y0, x1, y1, col)
		} else {
			drawRectOutline(dst, x0, y0, x1, y1, thickness, col)
		}

		if showLabels {
			name := ""
			if classes != nil {
				name = classes.Name(b.ClassID)
			}
			if name != "" {
				ac.drawBoxLabel(dst, x0, y0, name, col)
			}
		}

		if selected[b.ID] {
			drawHandle(dst, x0, y0, handleSize, handleFillColor, col)
			drawHandle(dst, x1, y0, handleSize, handleFillColor, col)
			drawHandle(dst, x0, y1, handleSize, handleFillColor, col)
			drawHandle(dst, x1, y1, handleSize, handleFillColor, col)
		}
	}
}

// drawBoxLabel paints the class name on a solid tag above the box top-left
// corner, falling back to inside the box near the top of the viewport.
func (ac *AnnotationCanvas) drawBoxLabel(dst *image.RGBA, x0, y0 int, name string, col color.RGBA) {
	const scale = 2
	const pad = 2
	tw := textWidth(name, scale)
	th := 5 * scale

	lx := x0
	ly := y0 - th - 2*pad
	if ly < dst.Bounds().Min.Y {
		ly = y0 + 1
	}

	fillRect(dst, lx, ly, lx+tw+2*pad, ly+th+2*pad, colorutil.WithAlpha(col, 0xC0))
	drawText(dst, lx+pad, ly+pad, name, scale, color.RGBA{A: 0xFF})
}

type annotationCanvasRenderer struct {
	canvas *AnnotationCanvas
}

func (r *annotationCanvasRenderer) Layout(size fyne.Size) {
	r.canvas.raster.Resize(size)
	r.canvas.recomputeContent(size)
}

func (r *annotationCanvasRenderer) MinSize() fyne.Size {
	return fyne.NewSize(240, 240)
}

func (r *annotationCanvasRenderer) Refresh() {
	r.canvas.raster.Refresh()
}

func (r *annotationCanvasRenderer) Objects() []fyne.CanvasObject {
	return []fyne.CanvasObject{r.canvas.raster}
}

func (r *annotationCanvasRenderer) Destroy() {}
