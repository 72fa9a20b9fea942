// Package panels provides the side panel sections of the application window.
package panels

import (
	"context"
	"fmt"
	"image"
	"path/filepath"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"boxlabel/internal/annotation"
	"boxlabel/internal/app"
	"boxlabel/internal/autolabel"
	"boxlabel/internal/imageio"
	"boxlabel/ui/canvas"
	"boxlabel/ui/dialogs"
)

// SidePanel is the tabbed panel beside the annotation canvas.
type SidePanel struct {
	state     *app.State
	canvas    *canvas.AnnotationCanvas
	container *container.AppTabs

	classesPanel     *ClassesPanel
	annotationsPanel *AnnotationsPanel
	imagesPanel      *ImagesPanel
	autoLabelPanel   *AutoLabelPanel
}

// NewSidePanel creates the side panel with all sections.
func NewSidePanel(state *app.State, cvs *canvas.AnnotationCanvas) *SidePanel {
	sp := &SidePanel{
		state:  state,
		canvas: cvs,
	}

	sp.classesPanel = NewClassesPanel(state)
	sp.annotationsPanel = NewAnnotationsPanel(state)
	sp.imagesPanel = NewImagesPanel(state)
	sp.autoLabelPanel = NewAutoLabelPanel(state)

	sp.container = container.NewAppTabs(
		container.NewTabItem("Classes", sp.classesPanel.Container()),
		container.NewTabItem("Boxes", sp.annotationsPanel.Container()),
		container.NewTabItem("Images", sp.imagesPanel.Container()),
		container.NewTabItem("Auto Label", sp.autoLabelPanel.Container()),
	)

	return sp
}

// Container returns the panel container.
func (sp *SidePanel) Container() fyne.CanvasObject {
	return sp.container
}

// SetWindow sets the parent window for dialogs.
func (sp *SidePanel) SetWindow(w fyne.Window) {
	sp.classesPanel.SetWindow(w)
}

// ClassesPanel lists the annotation classes and selects the class applied to
// newly drawn boxes.
type ClassesPanel struct {
	state     *app.State
	window    fyne.Window
	container fyne.CanvasObject

	list         *widget.List
	currentLabel *widget.Label
}

// NewClassesPanel creates the class list panel.
func NewClassesPanel(state *app.State) *ClassesPanel {
	cp := &ClassesPanel{state: state}

	cp.currentLabel = widget.NewLabel("")

	cp.list = widget.NewList(
		func() int {
			return len(state.Classes.Classes)
		},
		func() fyne.CanvasObject {
			swatch := fynecanvas.NewRectangle(nil)
			swatch.SetMinSize(fyne.NewSize(16, 16))
			return container.NewHBox(swatch, widget.NewLabel("class"))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			classes := state.Classes.Classes
			if id >= len(classes) {
				return
			}
			c := classes[id]
			row := obj.(*fyne.Container)
			swatch := row.Objects[0].(*fynecanvas.Rectangle)
			swatch.FillColor = state.Classes.ColorOf(c.ID)
			swatch.Refresh()
			row.Objects[1].(*widget.Label).SetText(fmt.Sprintf("%d  %s", c.ID, c.Name))
		},
	)

	cp.list.OnSelected = func(id widget.ListItemID) {
		classes := state.Classes.Classes
		if id < len(classes) {
			state.Editor.SetCurrentClass(classes[id].ID)
			cp.updateCurrentLabel()
		}
	}

	editBtn := widget.NewButton("Edit Classes...", func() {
		if cp.window == nil {
			return
		}
		dialogs.NewClassEditorDialog(state.Classes, cp.window, func(updated *annotation.ClassList) {
			state.SetClasses(updated)
		}).Show()
	})

	applyBtn := widget.NewButton("Apply to Selection", func() {
		state.Editor.ChangeClass()
	})

	cp.container = container.NewBorder(
		cp.currentLabel,
		container.NewVBox(applyBtn, editBtn),
		nil, nil,
		cp.list,
	)

	state.On(app.EventClassesChanged, func(interface{}) {
		cp.list.Refresh()
		cp.updateCurrentLabel()
	})

	cp.updateCurrentLabel()
	return cp
}

// Container returns the panel container.
func (cp *ClassesPanel) Container() fyne.CanvasObject {
	return cp.container
}

// SetWindow sets the parent window for the class editor dialog.
func (cp *ClassesPanel) SetWindow(w fyne.Window) {
	cp.window = w
}

func (cp *ClassesPanel) updateCurrentLabel() {
	id := cp.state.Editor.CurrentClass()
	cp.currentLabel.SetText("Drawing: " + cp.state.Classes.Name(id))
}

// AnnotationsPanel lists the boxes on the current image.
type AnnotationsPanel struct {
	state     *app.State
	container fyne.CanvasObject

	list       *widget.List
	countLabel *widget.Label
}

// NewAnnotationsPanel creates the annotation list panel.
func NewAnnotationsPanel(state *app.State) *AnnotationsPanel {
	ap := &AnnotationsPanel{state: state}

	ap.countLabel = widget.NewLabel("No boxes")

	ap.list = widget.NewList(
		func() int {
			return len(state.Editor.Boxes())
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("box")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			boxes := state.Editor.Boxes()
			if id >= len(boxes) {
				return
			}
			b := boxes[id]
			text := fmt.Sprintf("%s  %.3f,%.3f  %.3fx%.3f",
				state.Classes.Name(b.ClassID), b.X, b.Y, b.Width, b.Height)
			if b.AutoLabel {
				text += "  [auto]"
			}
			obj.(*widget.Label).SetText(text)
		},
	)

	ap.list.OnSelected = func(id widget.ListItemID) {
		boxes := state.Editor.Boxes()
		if id < len(boxes) {
			state.Editor.Select(boxes[id].ID)
		}
	}

	deleteBtn := widget.NewButton("Delete Selected", func() {
		state.Editor.Delete()
	})
	undoBtn := widget.NewButton("Undo", func() {
		state.Editor.Undo()
	})

	ap.container = container.NewBorder(
		ap.countLabel,
		container.NewVBox(deleteBtn, undoBtn),
		nil, nil,
		ap.list,
	)

	refresh := func(interface{}) {
		ap.list.Refresh()
		ap.updateCount()
	}
	state.On(app.EventAnnotationsChanged, refresh)
	state.On(app.EventImageLoaded, refresh)
	state.On(app.EventSelectionChanged, func(interface{}) {
		ap.syncSelection()
	})

	return ap
}

// Container returns the panel container.
func (ap *AnnotationsPanel) Container() fyne.CanvasObject {
	return ap.container
}

func (ap *AnnotationsPanel) updateCount() {
	n := len(ap.state.Editor.Boxes())
	switch n {
	case 0:
		ap.countLabel.SetText("No boxes")
	case 1:
		ap.countLabel.SetText("1 box")
	default:
		ap.countLabel.SetText(fmt.Sprintf("%d boxes", n))
	}
}

// syncSelection mirrors the editor's single selection into the list widget.
// Multi-selection has no list equivalent, so the list just clears.
func (ap *AnnotationsPanel) syncSelection() {
	ids := ap.state.Editor.SelectedIDs()
	if len(ids) != 1 {
		ap.list.UnselectAll()
		return
	}
	for i, b := range ap.state.Editor.Boxes() {
		if b.ID == ids[0] {
			ap.list.Select(i)
			return
		}
	}
	ap.list.UnselectAll()
}

// thumbnailDim is the longer side of an image-list thumbnail in pixels.
const thumbnailDim = 64

// ImagesPanel lists the project images with thumbnails and navigates
// between them.
type ImagesPanel struct {
	state     *app.State
	container fyne.CanvasObject

	list *widget.List

	// Thumbnails decode on worker goroutines; both maps are touched only
	// on the UI thread.
	thumbs  map[string]image.Image
	pending map[string]bool
}

// NewImagesPanel creates the image list panel.
func NewImagesPanel(state *app.State) *ImagesPanel {
	ip := &ImagesPanel{
		state:   state,
		thumbs:  make(map[string]image.Image),
		pending: make(map[string]bool),
	}

	ip.list = widget.NewList(
		func() int {
			return len(state.Images)
		},
		func() fyne.CanvasObject {
			thumb := &fynecanvas.Image{FillMode: fynecanvas.ImageFillContain}
			thumb.SetMinSize(fyne.NewSize(48, 32))
			return container.NewHBox(thumb, widget.NewLabel("image"))
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(state.Images) {
				return
			}
			path := state.Images[id]
			row := obj.(*fyne.Container)
			thumb := row.Objects[0].(*fynecanvas.Image)
			row.Objects[1].(*widget.Label).SetText(filepath.Base(path))

			thumb.Image = ip.thumbs[path]
			thumb.Refresh()
			if thumb.Image == nil {
				ip.fetchThumbnail(path)
			}
		},
	)

	ip.list.OnSelected = func(id widget.ListItemID) {
		if id != state.Current {
			state.OpenImage(id)
		}
	}

	prevBtn := widget.NewButton("Previous", func() {
		state.PrevImage()
	})
	nextBtn := widget.NewButton("Next", func() {
		state.NextImage()
	})

	ip.container = container.NewBorder(
		nil,
		container.NewGridWithColumns(2, prevBtn, nextBtn),
		nil, nil,
		ip.list,
	)

	state.On(app.EventProjectLoaded, func(interface{}) {
		ip.thumbs = make(map[string]image.Image)
		ip.list.Refresh()
	})
	state.On(app.EventImageLoaded, func(interface{}) {
		ip.list.Refresh()
		if state.Current >= 0 {
			ip.list.Select(state.Current)
		}
	})

	return ip
}

// fetchThumbnail decodes one list thumbnail off the UI thread and refreshes
// the list when it lands. Duplicate requests for an in-flight path are
// dropped.
func (ip *ImagesPanel) fetchThumbnail(path string) {
	if ip.pending[path] {
		return
	}
	ip.pending[path] = true

	go func() {
		var thumb image.Image
		if item, err := imageio.Load(path); err == nil {
			thumb = item.Thumbnail(thumbnailDim)
		}
		fyne.Do(func() {
			delete(ip.pending, path)
			if thumb != nil {
				ip.thumbs[path] = thumb
				ip.list.Refresh()
			}
		})
	}()
}

// Container returns the panel container.
func (ip *ImagesPanel) Container() fyne.CanvasObject {
	return ip.container
}

// AutoLabelPanel drives the remote detection service.
type AutoLabelPanel struct {
	state     *app.State
	container fyne.CanvasObject

	urlEntry  *widget.Entry
	threshold *widget.Slider
	thLabel   *widget.Label
	status    *widget.Label
	detectBtn *widget.Button
}

// NewAutoLabelPanel creates the auto-label panel.
func NewAutoLabelPanel(state *app.State) *AutoLabelPanel {
	alp := &AutoLabelPanel{state: state}

	alp.urlEntry = widget.NewEntry()
	alp.urlEntry.SetPlaceHolder("http://localhost:8000")
	alp.urlEntry.OnChanged = func(s string) {
		if state.Project != nil {
			state.Project.Settings.AutoLabelURL = s
		}
	}

	alp.thLabel = widget.NewLabel("Min confidence: 0.50")
	alp.threshold = widget.NewSlider(0, 1)
	alp.threshold.Step = 0.05
	alp.threshold.SetValue(0.5)
	alp.threshold.OnChanged = func(v float64) {
		alp.thLabel.SetText(fmt.Sprintf("Min confidence: %.2f", v))
		if state.Project != nil {
			state.Project.Settings.MinConfidence = v
		}
	}

	alp.status = widget.NewLabel("")
	alp.status.Wrapping = fyne.TextWrapWord

	alp.detectBtn = widget.NewButton("Detect Boxes", func() {
		alp.runDetection()
	})

	checkBtn := widget.NewButton("Check Server", func() {
		alp.checkServer()
	})

	alp.container = container.NewVBox(
		widget.NewCard("Detection Server", "", container.NewVBox(
			alp.urlEntry,
			checkBtn,
		)),
		widget.NewCard("Detection", "", container.NewVBox(
			alp.thLabel,
			alp.threshold,
			alp.detectBtn,
			alp.status,
		)),
	)

	state.On(app.EventProjectLoaded, func(interface{}) {
		if state.Project != nil {
			alp.urlEntry.SetText(state.Project.Settings.AutoLabelURL)
			alp.threshold.SetValue(state.Project.Settings.MinConfidence)
		}
	})
	state.On(app.EventAutoLabelComplete, func(data interface{}) {
		if n, ok := data.(int); ok {
			alp.status.SetText(fmt.Sprintf("Imported %d boxes", n))
		}
	})

	return alp
}

// Container returns the panel container.
func (alp *AutoLabelPanel) Container() fyne.CanvasObject {
	return alp.container
}

func (alp *AutoLabelPanel) runDetection() {
	if alp.state.Image == nil {
		alp.status.SetText("No image loaded")
		return
	}
	alp.status.SetText("Detecting...")
	alp.detectBtn.Disable()

	// Detection runs remotely and can take seconds; only the network call
	// leaves the UI thread. The editor mutation and the widget updates hop
	// back via fyne.Do.
	go func() {
		candidates, err := alp.state.DetectBoxes(context.Background())
		fyne.Do(func() {
			alp.detectBtn.Enable()
			if err != nil {
				alp.status.SetText("Detection failed: " + err.Error())
				return
			}
			n := alp.state.ImportDetections(candidates)
			alp.status.SetText(fmt.Sprintf("Imported %d boxes", n))
		})
	}()
}

func (alp *AutoLabelPanel) checkServer() {
	url := alp.urlEntry.Text
	if url == "" {
		alp.status.SetText("No server URL configured")
		return
	}
	alp.status.SetText("Checking...")

	go func() {
		client := autolabel.NewClient(url, 0)
		err := client.CheckHealth(context.Background())
		fyne.Do(func() {
			if err != nil {
				alp.status.SetText("Server unreachable: " + err.Error())
				return
			}
			alp.status.SetText("Server OK")
		})
	}()
}
