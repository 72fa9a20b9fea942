package engine

// Selection tracks which annotation ids are currently selected. It must stay
// a subset of the annotation set's ids; the controller prunes it whenever a
// referenced id is deleted. Order only matters for the single-selection case
// used by cycle-select.
type Selection struct {
	ids []string
}

// NewSelection creates an empty selection.
func NewSelection() *Selection {
	return &Selection{}
}

// Replace sets the selection to exactly the given ids.
func (s *Selection) Replace(ids []string) {
	s.ids = make([]string, len(ids))
	copy(s.ids, ids)
}

// Toggle flips the membership of one id.
func (s *Selection) Toggle(id string) {
	for i, existing := range s.ids {
		if existing == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return
		}
	}
	s.ids = append(s.ids, id)
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = nil
}

// Has reports whether an id is selected.
func (s *Selection) Has(id string) bool {
	for _, existing := range s.ids {
		if existing == id {
			return true
		}
	}
	return false
}

// IDs returns a copy of the selected ids.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of selected ids.
func (s *Selection) Len() int {
	return len(s.ids)
}

// Single returns the id when exactly one box is selected.
func (s *Selection) Single() (string, bool) {
	if len(s.ids) == 1 {
		return s.ids[0], true
	}
	return "", false
}

// CycleNext resolves which candidate a click should select. Candidates are
// the hit-tested ids under the pointer, topmost first. If the current single
// selection appears among them the next candidate is chosen, wrapping around,
// so repeated clicks on a stack of overlapping boxes step through all of
// them. Otherwise the topmost candidate wins.
func (s *Selection) CycleNext(candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	if current, ok := s.Single(); ok {
		for i, id := range candidates {
			if id == current {
				return candidates[(i+1)%len(candidates)]
			}
		}
	}
	return candidates[0]
}

// Prune drops every id for which exists returns false.
func (s *Selection) Prune(exists func(id string) bool) {
	kept := s.ids[:0]
	for _, id := range s.ids {
		if exists(id) {
			kept = append(kept, id)
		}
	}
	s.ids = kept
}
