package annotation

import (
	"fmt"
	"image/color"
	"os"

	"gopkg.in/yaml.v3"

	"boxlabel/pkg/colorutil"
)

// Class describes one annotation class (label category).
type Class struct {
	ID    int    `yaml:"id" json:"id"`
	Name  string `yaml:"name" json:"name"`
	Color string `yaml:"color,omitempty" json:"color,omitempty"` // "#RRGGBB"
}

// ClassList is an ordered list of classes.
type ClassList struct {
	Classes []Class `yaml:"classes"`
}

// DefaultClassList returns a single generic class so a fresh project is
// immediately usable.
func DefaultClassList() *ClassList {
	return &ClassList{Classes: []Class{{ID: 0, Name: "object"}}}
}

// LoadClassList reads a YAML class list file.
func LoadClassList(path string) (*ClassList, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cl ClassList
	if err := yaml.Unmarshal(data, &cl); err != nil {
		return nil, fmt.Errorf("parse class list %s: %w", path, err)
	}
	if len(cl.Classes) == 0 {
		return nil, fmt.Errorf("class list %s defines no classes", path)
	}
	seen := make(map[int]bool, len(cl.Classes))
	for _, c := range cl.Classes {
		if seen[c.ID] {
			return nil, fmt.Errorf("class list %s: duplicate class id %d", path, c.ID)
		}
		seen[c.ID] = true
	}
	return &cl, nil
}

// Save writes the class list as YAML.
func (cl *ClassList) Save(path string) error {
	data, err := yaml.Marshal(cl)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Get returns the class with the given id.
func (cl *ClassList) Get(id int) (Class, bool) {
	for _, c := range cl.Classes {
		if c.ID == id {
			return c, true
		}
	}
	return Class{}, false
}

// Name returns the class name, or "class N" for unknown ids.
func (cl *ClassList) Name(id int) string {
	if c, ok := cl.Get(id); ok {
		return c.Name
	}
	return fmt.Sprintf("class %d", id)
}

// ColorOf returns the display color for a class. Classes without an explicit
// color get a stable palette color by position.
func (cl *ClassList) ColorOf(id int) color.RGBA {
	for i, c := range cl.Classes {
		if c.ID == id {
			if c.Color != "" {
				if rgba, err := colorutil.ParseHex(c.Color); err == nil {
					return rgba
				}
			}
			return colorutil.ForClassIndex(i)
		}
	}
	return colorutil.ForClassIndex(id)
}

// IndexOf returns the position of a class id in the list, or -1.
// Export formats (YOLO) key off the position, not the id.
func (cl *ClassList) IndexOf(id int) int {
	for i, c := range cl.Classes {
		if c.ID == id {
			return i
		}
	}
	return -1
}
