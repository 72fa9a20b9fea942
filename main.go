// Package main provides the entry point for the BoxLabel application.
package main

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"boxlabel/internal/app"
	"boxlabel/internal/keymap"
	"boxlabel/internal/store"
	"boxlabel/internal/version"
	"boxlabel/ui/mainwindow"
	"boxlabel/ui/prefs"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Printf("Starting %s v%s", version.AppName, version.Version)

	db, err := store.Open()
	if err != nil {
		log.Fatalf("open annotation store: %v", err)
	}
	defer db.Close()

	fyneApp := fyneapp.NewWithID("io.boxlabel.app")
	fyneApp.Settings().SetTheme(&app.BoxLabelTheme{})

	appState := app.NewState(db)
	defer appState.Close()
	appPrefs := prefs.Load()

	win := mainwindow.New(fyneApp, appState, appPrefs, loadKeymap())

	if len(os.Args) > 1 {
		if err := appState.LoadProject(os.Args[1]); err != nil {
			log.Printf("Failed to load project %s: %v", os.Args[1], err)
		}
	} else {
		win.RestoreLastProject()
	}

	setupHotReload(win)

	win.ShowAndRun()
}

// loadKeymap overlays the user's shortcut table when one exists. Missing or
// broken files fall back to the defaults.
func loadKeymap() *keymap.Keymap {
	dir, err := os.UserConfigDir()
	if err != nil {
		return nil
	}
	path := filepath.Join(dir, "boxlabel", "keymap.yaml")
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	km, err := keymap.Load(path)
	if err != nil {
		log.Printf("Ignoring keymap %s: %v", path, err)
		return nil
	}
	log.Printf("Loaded keymap %s", path)
	return km
}

// setupHotReload restarts the application when a newer binary appears, which
// keeps edit-compile-test loops short during development.
func setupHotReload(win *mainwindow.MainWindow) {
	reloader := app.NewHotReloader(2 * time.Second)
	if reloader == nil {
		log.Println("Hot reload: unable to determine executable path")
		return
	}

	// The watcher fires on its own goroutine; the dialog belongs on the
	// UI thread.
	reloader.OnNewBinary(func() {
		fyne.Do(func() {
			dialog.ShowConfirm("New Version Available",
				"The application binary has been updated.\nRestart now?",
				func(restart bool) {
					if !restart {
						reloader.ResetBaseline()
						reloader.Start()
						return
					}
					log.Println("Hot reload: restarting...")
					if err := reloader.Restart(); err != nil {
						log.Printf("Hot reload: restart failed: %v", err)
					}
				}, win.Window)
		})
	})

	reloader.Start()
}
