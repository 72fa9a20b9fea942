// Package mainwindow provides the main application window.
package mainwindow

import (
	"fmt"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"boxlabel/internal/annotation"
	"boxlabel/internal/app"
	"boxlabel/internal/engine"
	"boxlabel/internal/export"
	"boxlabel/internal/imageio"
	"boxlabel/internal/keymap"
	"boxlabel/internal/version"
	"boxlabel/ui/canvas"
	"boxlabel/ui/panels"
	"boxlabel/ui/prefs"
)

const (
	prefKeyLastDir        = "lastDirectory"
	prefKeyLastProject    = "lastProject"
	prefKeyRecentProjects = "recentProjects"

	maxRecentProjects = 8
)

// MainWindow is the primary application window.
type MainWindow struct {
	fyne.Window
	app        fyne.App
	state      *app.State
	prefs      *prefs.Prefs
	canvas     *canvas.AnnotationCanvas
	sidePanel  *panels.SidePanel
	statusBar  *widget.Label
	dispatcher *engine.Dispatcher

	// Modifier state assembled from raw key events; fyne key callbacks do
	// not carry modifier flags.
	shiftHeld bool
	modHeld   bool
}

// New creates the main window over the given application state. A nil
// keymap selects the default shortcut table.
func New(fyneApp fyne.App, state *app.State, p *prefs.Prefs, keys *keymap.Keymap) *MainWindow {
	win := fyneApp.NewWindow(version.AppName)

	mw := &MainWindow{
		Window:     win,
		app:        fyneApp,
		state:      state,
		prefs:      p,
		dispatcher: engine.NewDispatcher(state.Editor, keys),
	}

	mw.setupUI()
	mw.setupMenus()
	mw.setupKeyboard()
	mw.setupEventHandlers()

	return mw
}

// setupUI creates the main layout: side panel | canvas, status bar below.
func (mw *MainWindow) setupUI() {
	mw.canvas = canvas.NewAnnotationCanvas(mw.state)

	mw.sidePanel = panels.NewSidePanel(mw.state, mw.canvas)
	mw.sidePanel.SetWindow(mw.Window)

	mw.statusBar = widget.NewLabel("Ready")

	toolbar := mw.createToolbar()

	canvasArea := container.NewBorder(
		toolbar,
		nil,
		nil,
		nil,
		mw.canvas,
	)

	split := container.NewHSplit(
		mw.sidePanel.Container(),
		canvasArea,
	)
	split.SetOffset(0.25)

	content := container.NewBorder(
		nil,
		container.NewPadded(mw.statusBar),
		nil,
		nil,
		split,
	)

	mw.SetContent(content)
	mw.Resize(fyne.NewSize(1280, 840))
}

// createToolbar builds the zoom and navigation controls above the canvas.
func (mw *MainWindow) createToolbar() fyne.CanvasObject {
	zoomOutBtn := widget.NewButton("-", func() {
		mw.state.Editor.Wheel(-100)
	})
	zoomInBtn := widget.NewButton("+", func() {
		mw.state.Editor.Wheel(100)
	})
	resetBtn := widget.NewButton("1:1", func() {
		mw.state.Editor.ResetView()
	})
	prevBtn := widget.NewButton("<", func() {
		mw.state.PrevImage()
	})
	nextBtn := widget.NewButton(">", func() {
		mw.state.NextImage()
	})

	return container.NewHBox(
		prevBtn,
		nextBtn,
		widget.NewSeparator(),
		widget.NewLabel("Zoom:"),
		zoomOutBtn,
		zoomInBtn,
		resetBtn,
	)
}

// setupMenus creates the application menus.
func (mw *MainWindow) setupMenus() {
	openRecent := fyne.NewMenuItem("Open Recent", nil)
	openRecent.ChildMenu = mw.recentMenu()

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New Project...", mw.onNewProject),
		fyne.NewMenuItem("Open Project...", mw.onOpenProject),
		openRecent,
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save Project", mw.onSaveProject),
		fyne.NewMenuItem("Save Project As...", mw.onSaveProjectAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export YOLO Labels...", mw.onExportYOLO),
		fyne.NewMenuItem("Export CSV...", mw.onExportCSV),
		fyne.NewMenuItem("Export Selected Crops...", mw.onExportCrops),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", func() { mw.app.Quit() }),
	)

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", func() { mw.state.Editor.Undo() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Copy", func() { mw.state.Editor.Copy() }),
		fyne.NewMenuItem("Paste", func() { mw.state.Editor.Paste() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Select All", func() { mw.state.Editor.SelectAll() }),
		fyne.NewMenuItem("Delete Selected", func() { mw.state.Editor.Delete() }),
		fyne.NewMenuItem("Delete All", func() { mw.state.Editor.DeleteAll() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Change Class", func() { mw.state.Editor.ChangeClass() }),
	)

	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Zoom In", func() { mw.state.Editor.Wheel(100) }),
		fyne.NewMenuItem("Zoom Out", func() { mw.state.Editor.Wheel(-100) }),
		fyne.NewMenuItem("Reset View", func() { mw.state.Editor.ResetView() }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Dim Unselected", func() {
			mw.state.Editor.ToggleDimUnselected()
			mw.canvas.Refresh()
		}),
		fyne.NewMenuItem("Show Labels", func() {
			mw.state.Editor.ToggleLabels()
			mw.canvas.Refresh()
		}),
		fyne.NewMenuItem("Pan Tool", func() { mw.state.Editor.TogglePanTool() }),
	)

	imageMenu := fyne.NewMenu("Image",
		fyne.NewMenuItem("Next Image", func() { mw.state.NextImage() }),
		fyne.NewMenuItem("Previous Image", func() { mw.state.PrevImage() }),
	)

	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", mw.onAbout),
	)

	mw.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, viewMenu, imageMenu, helpMenu))
}

// recentMenu builds the Open Recent submenu from the stored MRU list.
func (mw *MainWindow) recentMenu() *fyne.Menu {
	paths := mw.prefs.Strings(prefKeyRecentProjects)
	if len(paths) == 0 {
		empty := fyne.NewMenuItem("(none)", nil)
		empty.Disabled = true
		return fyne.NewMenu("", empty)
	}

	items := make([]*fyne.MenuItem, 0, len(paths))
	for _, p := range paths {
		path := p
		items = append(items, fyne.NewMenuItem(filepath.Base(path), func() {
			if err := mw.state.LoadProject(path); err != nil {
				dialog.ShowError(err, mw.Window)
			}
		}))
	}
	return fyne.NewMenu("", items...)
}

// pushRecent moves path to the front of the most-recently-used list,
// dropping duplicates and capping the length.
func pushRecent(list []string, path string, max int) []string {
	out := make([]string, 0, len(list)+1)
	out = append(out, path)
	for _, p := range list {
		if p != path && len(out) < max {
			out = append(out, p)
		}
	}
	return out
}

// setupKeyboard routes raw key events into the shortcut dispatcher. Modifier
// keys are tracked here because fyne's key callbacks carry only the key name.
func (mw *MainWindow) setupKeyboard() {
	dc, ok := mw.Canvas().(desktop.Canvas)
	if !ok {
		return
	}

	dc.SetOnKeyDown(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case desktop.KeyShiftLeft, desktop.KeyShiftRight:
			mw.shiftHeld = true
			mw.dispatcher.KeyDown("shift", mw.modifiers())
			return
		case desktop.KeyControlLeft, desktop.KeyControlRight,
			desktop.KeySuperLeft, desktop.KeySuperRight:
			mw.modHeld = true
			return
		}
		if mw.dispatcher.KeyDown(strings.ToLower(string(ev.Name)), mw.modifiers()) {
			mw.canvas.Refresh()
		}
	})

	dc.SetOnKeyUp(func(ev *fyne.KeyEvent) {
		switch ev.Name {
		case desktop.KeyShiftLeft, desktop.KeyShiftRight:
			mw.shiftHeld = false
			mw.dispatcher.KeyUp("shift")
		case desktop.KeyControlLeft, desktop.KeyControlRight,
			desktop.KeySuperLeft, desktop.KeySuperRight:
			mw.modHeld = false
		case fyne.KeySpace:
			mw.dispatcher.KeyUp("space")
		}
	})
}

func (mw *MainWindow) modifiers() engine.Modifiers {
	return engine.Modifiers{Shift: mw.shiftHeld, Mod: mw.modHeld}
}

// setupEventHandlers registers for application events.
func (mw *MainWindow) setupEventHandlers() {
	mw.state.On(app.EventProjectLoaded, func(data interface{}) {
		if path, ok := data.(string); ok {
			mw.SetTitle(version.AppName + " - " + filepath.Base(path))
			mw.prefs.SetString(prefKeyLastProject, path)
			mw.prefs.SetStrings(prefKeyRecentProjects,
				pushRecent(mw.prefs.Strings(prefKeyRecentProjects), path, maxRecentProjects))
			mw.prefs.Save()
			mw.setupMenus() // the Open Recent submenu changed
			mw.updateStatus("Project loaded: " + path)
		}
	})

	mw.state.On(app.EventImageLoaded, func(interface{}) {
		mw.updateImageStatus()
	})

	mw.state.On(app.EventSelectionChanged, func(data interface{}) {
		ids, ok := data.([]string)
		switch {
		case !ok || len(ids) == 0:
			mw.updateImageStatus()
		case len(ids) == 1:
			mw.updateStatus(mw.describeBox(ids[0]))
		default:
			mw.updateStatus(fmt.Sprintf("%d selected", len(ids)))
		}
	})

	mw.state.On(app.EventModified, func(data interface{}) {
		if modified, ok := data.(bool); ok && modified {
			title := mw.Title()
			if len(title) > 0 && title[len(title)-1] != '*' {
				mw.SetTitle(title + " *")
			}
		}
	})

	mw.state.On(app.EventViewChanged, func(data interface{}) {
		if view, ok := data.(engine.ViewTransform); ok {
			mw.updateStatus(fmt.Sprintf("Zoom %.0f%%", view.Scale*100))
		}
	})

	mw.state.On(app.EventAutoLabelComplete, func(data interface{}) {
		if n, ok := data.(int); ok {
			mw.updateStatus(fmt.Sprintf("Auto label: imported %d boxes", n))
		}
	})
}

func (mw *MainWindow) updateStatus(text string) {
	mw.statusBar.SetText(text)
}

// describeBox formats a single selected box: class name plus its size in
// image pixels when an image is open.
func (mw *MainWindow) describeBox(id string) string {
	for _, b := range mw.state.Editor.Boxes() {
		if b.ID != id {
			continue
		}
		name := mw.state.Classes.Name(b.ClassID)
		if img := mw.state.Image; img != nil {
			w := b.Width * float64(img.Width())
			h := b.Height * float64(img.Height())
			return fmt.Sprintf("%s  %.0fx%.0f px", name, w, h)
		}
		return name
	}
	return "1 selected"
}

func (mw *MainWindow) updateImageStatus() {
	path := mw.state.CurrentImagePath()
	if path == "" {
		mw.updateStatus("No image")
		return
	}
	n := len(mw.state.Editor.Boxes())
	mw.updateStatus(fmt.Sprintf("%s (%d/%d) - %d boxes",
		filepath.Base(path), mw.state.Current+1, len(mw.state.Images), n))
}

// getLastDir returns the last used directory as a ListableURI, or nil.
func (mw *MainWindow) getLastDir() fyne.ListableURI {
	path := mw.prefs.String(prefKeyLastDir, "")
	if path == "" {
		return nil
	}
	listable, err := storage.ListerForURI(storage.NewFileURI(path))
	if err != nil {
		return nil
	}
	return listable
}

// saveLastDir remembers the directory of the given file path.
func (mw *MainWindow) saveLastDir(filePath string) {
	mw.prefs.SetString(prefKeyLastDir, filepath.Dir(filePath))
	mw.prefs.Save()
}

// RestoreLastProject reopens the project used in the previous session.
func (mw *MainWindow) RestoreLastProject() {
	path := mw.prefs.String(prefKeyLastProject, "")
	if path == "" {
		return
	}
	if err := mw.state.LoadProject(path); err != nil {
		mw.updateStatus("Could not reopen " + filepath.Base(path))
		return
	}
	mw.state.SetModified(false)
}

// Menu action handlers

func (mw *MainWindow) onNewProject() {
	fd := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		path := dir.Path()
		mw.prefs.SetString(prefKeyLastDir, path)
		mw.prefs.Save()
		if err := mw.state.NewProject(filepath.Base(path), path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.SetTitle(version.AppName + " - " + filepath.Base(path))
		mw.updateImageStatus()
	}, mw.Window)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onOpenProject() {
	fd := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil || reader == nil {
			return
		}
		reader.Close()
		path := reader.URI().Path()
		mw.saveLastDir(path)
		if err := mw.state.LoadProject(path); err != nil {
			dialog.ShowError(err, mw.Window)
		}
	}, mw.Window)
	fd.SetFilter(storage.NewExtensionFileFilter([]string{".blproj"}))
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onSaveProject() {
	if mw.state.ProjectPath == "" {
		mw.onSaveProjectAs()
		return
	}
	if err := mw.state.SaveProject(mw.state.ProjectPath); err != nil {
		dialog.ShowError(err, mw.Window)
		return
	}
	mw.SetTitle(version.AppName + " - " + filepath.Base(mw.state.ProjectPath))
	mw.updateStatus("Project saved")
}

func (mw *MainWindow) onSaveProjectAs() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".blproj" {
			path += ".blproj"
		}
		mw.saveLastDir(path)
		if err := mw.state.SaveProject(path); err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.SetTitle(version.AppName + " - " + filepath.Base(path))
		mw.updateStatus("Project saved")
	}, mw.Window)
	fd.SetFileName("project.blproj")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExportYOLO() {
	fd := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		summary, err := export.WriteYOLO(mw.state.DB, mw.state.Classes, dir.Path())
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus(fmt.Sprintf("Exported %d boxes from %d images", summary.Boxes, summary.Images))
	}, mw.Window)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExportCSV() {
	fd := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil || writer == nil {
			return
		}
		writer.Close()
		path := writer.URI().Path()
		if filepath.Ext(path) != ".csv" {
			path += ".csv"
		}
		summary, err := export.WriteCSV(mw.state.DB, mw.state.Classes, path)
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus(fmt.Sprintf("Exported %d boxes to %s", summary.Boxes, filepath.Base(path)))
	}, mw.Window)
	fd.SetFileName("dataset.csv")
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onExportCrops() {
	item := mw.state.Image
	if item == nil {
		mw.updateStatus("No image open")
		return
	}

	// Selected boxes only; the whole image when nothing is selected.
	selected := make(map[string]bool)
	for _, id := range mw.state.Editor.SelectedIDs() {
		selected[id] = true
	}
	var boxes []annotation.Box
	for _, b := range mw.state.Editor.Boxes() {
		if len(selected) == 0 || selected[b.ID] {
			boxes = append(boxes, b)
		}
	}
	if len(boxes) == 0 {
		mw.updateStatus("Nothing to export")
		return
	}

	fd := dialog.NewFolderOpen(func(dir fyne.ListableURI, err error) {
		if err != nil || dir == nil {
			return
		}
		paths, err := imageio.SaveCrops(item, boxes, dir.Path(), 90)
		if err != nil {
			dialog.ShowError(err, mw.Window)
			return
		}
		mw.updateStatus(fmt.Sprintf("Wrote %d crops to %s", len(paths), dir.Path()))
	}, mw.Window)
	if loc := mw.getLastDir(); loc != nil {
		fd.SetLocation(loc)
	}
	fd.Show()
}

func (mw *MainWindow) onAbout() {
	dialog.ShowInformation("About "+version.AppName,
		fmt.Sprintf("%s v%s\n\n"+
			"A bounding-box image annotation tool.\n\n"+
			"Built: %s\n"+
			"Commit: %s",
			version.AppName, version.Version, version.BuildTime, version.GitCommit),
		mw.Window)
}
