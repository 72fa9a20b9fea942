// Package dialogs provides application dialogs.
package dialogs

import (
	"fmt"
	"strconv"

	"fyne.io/fyne/v2"
	fynecanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"boxlabel/internal/annotation"
	"boxlabel/pkg/colorutil"
)

// ClassEditorDialog edits the project's class list: names, colors and the
// set of ids. It works on a copy; nothing is applied until Save.
type ClassEditorDialog struct {
	classes *annotation.ClassList
	window  fyne.Window
	onSave  func(*annotation.ClassList)

	list       *widget.List
	nameEntry  *widget.Entry
	colorEntry *widget.Entry
	swatch     *fynecanvas.Rectangle
	selected   int
}

// NewClassEditorDialog creates the dialog over a copy of the given list.
func NewClassEditorDialog(classes *annotation.ClassList, window fyne.Window, onSave func(*annotation.ClassList)) *ClassEditorDialog {
	copied := &annotation.ClassList{Classes: append([]annotation.Class(nil), classes.Classes...)}
	return &ClassEditorDialog{
		classes:  copied,
		window:   window,
		onSave:   onSave,
		selected: -1,
	}
}

// Show displays the dialog.
func (d *ClassEditorDialog) Show() {
	content := d.createContent()

	dlg := dialog.NewCustomWithoutButtons("Edit Classes", content, d.window)

	saveBtn := widget.NewButton("Save", func() {
		d.applySelected()
		if d.onSave != nil {
			d.onSave(d.classes)
		}
		dlg.Hide()
	})
	saveBtn.Importance = widget.HighImportance

	cancelBtn := widget.NewButton("Cancel", func() {
		dlg.Hide()
	})

	buttons := container.NewHBox(cancelBtn, saveBtn)
	full := container.NewBorder(nil, buttons, nil, nil, content)

	dlg = dialog.NewCustomWithoutButtons("Edit Classes", full, d.window)
	dlg.Resize(fyne.NewSize(420, 480))
	dlg.Show()
}

func (d *ClassEditorDialog) createContent() fyne.CanvasObject {
	d.nameEntry = widget.NewEntry()
	d.colorEntry = widget.NewEntry()
	d.colorEntry.SetPlaceHolder("#RRGGBB (empty for palette color)")
	d.swatch = fynecanvas.NewRectangle(nil)
	d.swatch.SetMinSize(fyne.NewSize(24, 24))

	d.colorEntry.OnChanged = func(s string) {
		if rgba, err := colorutil.ParseHex(s); err == nil {
			d.swatch.FillColor = rgba
			d.swatch.Refresh()
		}
	}

	d.list = widget.NewList(
		func() int {
			return len(d.classes.Classes)
		},
		func() fyne.CanvasObject {
			return widget.NewLabel("class")
		},
		func(id widget.ListItemID, obj fyne.CanvasObject) {
			if id >= len(d.classes.Classes) {
				return
			}
			c := d.classes.Classes[id]
			obj.(*widget.Label).SetText(strconv.Itoa(c.ID) + "  " + c.Name)
		},
	)

	d.list.OnSelected = func(id widget.ListItemID) {
		d.applySelected()
		d.selected = id
		c := d.classes.Classes[id]
		d.nameEntry.SetText(c.Name)
		d.colorEntry.SetText(c.Color)
		d.swatch.FillColor = d.classes.ColorOf(c.ID)
		d.swatch.Refresh()
	}

	addBtn := widget.NewButton("Add", func() {
		d.applySelected()
		next := 0
		for _, c := range d.classes.Classes {
			if c.ID >= next {
				next = c.ID + 1
			}
		}
		d.classes.Classes = append(d.classes.Classes, annotation.Class{
			ID:   next,
			Name: fmt.Sprintf("class %d", next),
		})
		d.list.Refresh()
		d.list.Select(len(d.classes.Classes) - 1)
	})

	removeBtn := widget.NewButton("Remove", func() {
		if d.selected < 0 || d.selected >= len(d.classes.Classes) {
			return
		}
		if len(d.classes.Classes) == 1 {
			// An empty class list would leave new boxes unlabelable.
			return
		}
		d.classes.Classes = append(
			d.classes.Classes[:d.selected],
			d.classes.Classes[d.selected+1:]...)
		d.selected = -1
		d.nameEntry.SetText("")
		d.colorEntry.SetText("")
		d.list.UnselectAll()
		d.list.Refresh()
	})
	removeBtn.Importance = widget.DangerImportance

	form := container.NewVBox(
		widget.NewLabel("Name:"),
		d.nameEntry,
		widget.NewLabel("Color:"),
		container.NewBorder(nil, nil, nil, d.swatch, d.colorEntry),
		container.NewHBox(addBtn, removeBtn),
	)

	return container.NewBorder(nil, form, nil, nil, d.list)
}

// applySelected writes the form fields back into the selected class.
func (d *ClassEditorDialog) applySelected() {
	if d.selected < 0 || d.selected >= len(d.classes.Classes) {
		return
	}
	c := &d.classes.Classes[d.selected]
	if d.nameEntry.Text != "" {
		c.Name = d.nameEntry.Text
	}
	c.Color = d.colorEntry.Text
}
