package annotation

import (
	"boxlabel/pkg/geometry"
)

// Set is an ordered list of boxes with unique ids. Order is insertion order;
// it has no meaning beyond stable iteration for z-order hit testing
// (later-inserted boxes sit visually on top).
type Set struct {
	boxes []Box
}

// NewSet creates a Set holding a copy of the given boxes.
func NewSet(boxes []Box) *Set {
	s := &Set{boxes: make([]Box, len(boxes))}
	copy(s.boxes, boxes)
	return s
}

// Len returns the number of boxes.
func (s *Set) Len() int {
	return len(s.boxes)
}

// Boxes returns a copy of the box list. Callers may hold the returned slice
// across later mutations of the set.
func (s *Set) Boxes() []Box {
	out := make([]Box, len(s.boxes))
	copy(out, s.boxes)
	return out
}

// At returns the box at index i.
func (s *Set) At(i int) Box {
	return s.boxes[i]
}

// Get returns the box with the given id.
func (s *Set) Get(id string) (Box, bool) {
	for _, b := range s.boxes {
		if b.ID == id {
			return b, true
		}
	}
	return Box{}, false
}

// Contains reports whether a box with the given id exists.
func (s *Set) Contains(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Append adds a box at the end (top of the z-order).
func (s *Set) Append(b Box) {
	s.boxes = append(s.boxes, b)
}

// Update replaces the box with the same id. Returns false if the id is
// no longer present.
func (s *Set) Update(b Box) bool {
	for i := range s.boxes {
		if s.boxes[i].ID == b.ID {
			s.boxes[i] = b
			return true
		}
	}
	return false
}

// Remove deletes the box with the given id. Returns false if absent.
func (s *Set) Remove(id string) bool {
	for i := range s.boxes {
		if s.boxes[i].ID == id {
			s.boxes = append(s.boxes[:i], s.boxes[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes all boxes.
func (s *Set) Clear() {
	s.boxes = nil
}

// Replace swaps the entire contents for a copy of the given boxes.
func (s *Set) Replace(boxes []Box) {
	s.boxes = make([]Box, len(boxes))
	copy(s.boxes, boxes)
}

// Clone returns a deep value-copy of the set.
func (s *Set) Clone() []Box {
	return s.Boxes()
}

// IDs returns the ids in insertion order.
func (s *Set) IDs() []string {
	ids := make([]string, len(s.boxes))
	for i, b := range s.boxes {
		ids[i] = b.ID
	}
	return ids
}

// IDsAt returns the ids of all boxes containing the normalized point,
// topmost (most recently inserted) first.
func (s *Set) IDsAt(p geometry.Point2D) []string {
	var ids []string
	for i := len(s.boxes) - 1; i >= 0; i-- {
		if s.boxes[i].Contains(p) {
			ids = append(ids, s.boxes[i].ID)
		}
	}
	return ids
}

// TopAt returns the topmost box id at the point, or "" if none.
func (s *Set) TopAt(p geometry.Point2D) string {
	for i := len(s.boxes) - 1; i >= 0; i-- {
		if s.boxes[i].Contains(p) {
			return s.boxes[i].ID
		}
	}
	return ""
}
