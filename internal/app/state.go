// Package app provides application lifecycle management, project files, and
// events.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"boxlabel/internal/annotation"
	"boxlabel/internal/autolabel"
	"boxlabel/internal/engine"
	"boxlabel/internal/imageio"
	"boxlabel/internal/store"
)

// State holds the application state: the open project, the current image and
// its editor, the class list and the annotation database.
type State struct {
	mu sync.RWMutex

	// Project
	ProjectPath string
	Project     *ProjectFile
	Modified    bool

	// Image set
	Images  []string // absolute paths, sorted
	Current int      // index into Images, -1 when nothing is open
	Image   *imageio.Item

	Classes *annotation.ClassList
	Editor  *engine.Editor
	DB      *store.DB

	// Event listeners
	listeners map[EventType][]EventListener
}

// EventType identifies different application events.
type EventType int

const (
	EventProjectLoaded EventType = iota
	EventProjectSaved
	EventImageLoaded
	EventAnnotationsChanged
	EventClassesChanged
	EventModified
	EventAutoLabelComplete
	EventSelectionChanged
	EventViewChanged
)

// EventListener is called when an event occurs.
type EventListener func(data interface{})

// NewState creates the application state over an open annotation database.
// The editor's committed annotation lists are persisted automatically.
func NewState(db *store.DB) *State {
	s := &State{
		Current:   -1,
		Classes:   annotation.DefaultClassList(),
		Editor:    engine.NewEditor(nil),
		DB:        db,
		listeners: make(map[EventType][]EventListener),
	}

	s.Editor.OnCommit(func(boxes []annotation.Box) {
		s.mu.RLock()
		path := s.currentImagePathLocked()
		s.mu.RUnlock()
		if path != "" && s.DB != nil {
			if err := s.DB.Save(path, boxes); err != nil {
				s.Emit(EventAnnotationsChanged, err)
				return
			}
		}
		s.SetModified(true)
		s.Emit(EventAnnotationsChanged, boxes)
	})

	// The editor exposes single callback slots; fan them out through the
	// event emitter so multiple UI listeners can subscribe.
	s.Editor.OnSelectionChange(func(ids []string) {
		s.Emit(EventSelectionChanged, ids)
	})
	s.Editor.OnViewChange(func(view engine.ViewTransform) {
		s.Emit(EventViewChanged, view)
	})

	return s
}

// On registers an event listener for the specified event type.
func (s *State) On(event EventType, listener EventListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners[event] = append(s.listeners[event], listener)
}

// Emit triggers all listeners for the specified event type.
func (s *State) Emit(event EventType, data interface{}) {
	s.mu.RLock()
	listeners := s.listeners[event]
	s.mu.RUnlock()

	for _, listener := range listeners {
		listener(data)
	}
}

// SetModified marks the project as modified and emits an event.
func (s *State) SetModified(modified bool) {
	s.mu.Lock()
	s.Modified = modified
	s.mu.Unlock()
	s.Emit(EventModified, modified)
}

// ProjectFile represents the JSON structure of a .blproj file.
type ProjectFile struct {
	Version  int       `json:"version"`
	Name     string    `json:"name"`
	Created  time.Time `json:"created"`
	Modified time.Time `json:"modified"`

	// ImageDir is the annotated image directory, relative to the project file.
	ImageDir string `json:"image_dir"`

	// ClassesPath points at the YAML class list, relative to the project file.
	// Empty means the built-in default classes.
	ClassesPath string `json:"classes,omitempty"`

	// CurrentImage restores the image open when the project was saved.
	CurrentImage string `json:"current_image,omitempty"`

	ReadOnly bool `json:"read_only,omitempty"`

	Settings ProjectSettings `json:"settings,omitempty"`
}

// ProjectSettings holds per-project preferences.
type ProjectSettings struct {
	AutoLabelURL  string  `json:"auto_label_url,omitempty"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
}

// NewProject initializes a fresh project over an image directory.
func (s *State) NewProject(name, imageDir string) error {
	now := time.Now()
	proj := &ProjectFile{
		Version:  1,
		Name:     name,
		Created:  now,
		Modified: now,
		ImageDir: imageDir,
		Settings: ProjectSettings{MinConfidence: 0.5},
	}

	images, err := scanImages(imageDir)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.Project = proj
	s.ProjectPath = ""
	s.Images = images
	s.Current = -1
	s.Image = nil
	s.mu.Unlock()

	s.Editor.LoadBoxes(nil)
	s.SetModified(true)

	if len(images) > 0 {
		return s.OpenImage(0)
	}
	return nil
}

// LoadProject loads a project from a .blproj file, restoring the class list
// and the last open image.
func (s *State) LoadProject(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var proj ProjectFile
	if err := json.Unmarshal(data, &proj); err != nil {
		return fmt.Errorf("parse project %s: %w", path, err)
	}

	projectDir := filepath.Dir(path)
	imageDir := proj.ImageDir
	if !filepath.IsAbs(imageDir) {
		imageDir = filepath.Join(projectDir, imageDir)
	}

	images, err := scanImages(imageDir)
	if err != nil {
		return err
	}

	classes := annotation.DefaultClassList()
	if proj.ClassesPath != "" {
		classesPath := proj.ClassesPath
		if !filepath.IsAbs(classesPath) {
			classesPath = filepath.Join(projectDir, classesPath)
		}
		classes, err = annotation.LoadClassList(classesPath)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.ProjectPath = path
	s.Project = &proj
	s.Images = images
	s.Current = -1
	s.Image = nil
	s.Classes = classes
	s.Modified = false
	s.mu.Unlock()

	s.Editor.SetReadOnly(proj.ReadOnly)
	s.Emit(EventClassesChanged, classes)
	s.Emit(EventProjectLoaded, path)

	// Reopen the image that was current at save time, or the first one.
	start := 0
	if proj.CurrentImage != "" {
		for i, p := range images {
			if filepath.Base(p) == proj.CurrentImage {
				start = i
				break
			}
		}
	}
	if len(images) > 0 {
		return s.OpenImage(start)
	}
	return nil
}

// SaveProject saves the project to the specified path.
func (s *State) SaveProject(path string) error {
	s.mu.RLock()
	proj := s.Project
	if proj == nil {
		s.mu.RUnlock()
		return fmt.Errorf("no project open")
	}
	saved := *proj
	saved.Modified = time.Now()
	if s.Current >= 0 && s.Current < len(s.Images) {
		saved.CurrentImage = filepath.Base(s.Images[s.Current])
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(&saved, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}

	s.mu.Lock()
	s.ProjectPath = path
	s.Project = &saved
	s.Modified = false
	s.mu.Unlock()

	s.Emit(EventProjectSaved, path)
	return nil
}

// OpenImage loads the image at the given index and its stored annotations.
func (s *State) OpenImage(index int) error {
	s.mu.RLock()
	if index < 0 || index >= len(s.Images) {
		s.mu.RUnlock()
		return fmt.Errorf("image index %d out of range", index)
	}
	path := s.Images[index]
	s.mu.RUnlock()

	item, err := imageio.Load(path)
	if err != nil {
		return err
	}

	var boxes []annotation.Box
	if s.DB != nil {
		boxes, err = s.DB.Load(path)
		if err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.Current = index
	s.Image = item
	s.mu.Unlock()

	s.Editor.LoadBoxes(boxes)
	s.Emit(EventImageLoaded, item)
	return nil
}

// NextImage advances to the next image in the set.
func (s *State) NextImage() error {
	s.mu.RLock()
	next := s.Current + 1
	n := len(s.Images)
	s.mu.RUnlock()
	if next >= n {
		return nil
	}
	return s.OpenImage(next)
}

// PrevImage steps back to the previous image in the set.
func (s *State) PrevImage() error {
	s.mu.RLock()
	prev := s.Current - 1
	s.mu.RUnlock()
	if prev < 0 {
		return nil
	}
	return s.OpenImage(prev)
}

// CurrentImagePath returns the path of the open image, or "".
func (s *State) CurrentImagePath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentImagePathLocked()
}

func (s *State) currentImagePathLocked() string {
	if s.Current < 0 || s.Current >= len(s.Images) {
		return ""
	}
	return s.Images[s.Current]
}

// DetectBoxes sends the current image to the detection service and returns
// the raw proposals. It touches no editor state, so hosts may call it from a
// background goroutine; the result goes to ImportDetections on the UI
// thread.
func (s *State) DetectBoxes(ctx context.Context) ([]annotation.Box, error) {
	s.mu.RLock()
	item := s.Image
	var url string
	minConf := 0.5
	if s.Project != nil {
		url = s.Project.Settings.AutoLabelURL
		if s.Project.Settings.MinConfidence > 0 {
			minConf = s.Project.Settings.MinConfidence
		}
	}
	s.mu.RUnlock()

	if item == nil {
		return nil, fmt.Errorf("no image open")
	}
	if url == "" {
		return nil, fmt.Errorf("no auto-label service configured")
	}

	client := autolabel.NewClient(url, minConf)
	return client.Detect(ctx, item.Image, item.Path)
}

// ImportDetections feeds detection proposals into the editor and returns the
// number of boxes added. Like every editor call this must run on the UI
// thread.
func (s *State) ImportDetections(candidates []annotation.Box) int {
	n := s.Editor.ImportCandidates(candidates)
	s.Emit(EventAutoLabelComplete, n)
	return n
}

// SetClasses replaces the class list.
func (s *State) SetClasses(classes *annotation.ClassList) {
	s.mu.Lock()
	s.Classes = classes
	s.mu.Unlock()
	s.SetModified(true)
	s.Emit(EventClassesChanged, classes)
}

// Close releases the editor and database.
func (s *State) Close() {
	s.Editor.Close()
	if s.DB != nil {
		_ = s.DB.Close()
	}
}

// scanImages lists every supported image file directly under dir, sorted by
// name so the set order is stable across sessions.
func scanImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image directory %s: %w", dir, err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() || !imageio.IsSupportedFormat(entry.Name()) {
			continue
		}
		images = append(images, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(images)
	return images, nil
}
