package graph

import "slices"

// Selection is the transient set of node and edge IDs the user is operating
// on. IDs keep the order in which they were selected.
//
// The zero value is an empty selection ready to use.
type Selection struct {
	ids []string
}

// NewSelection creates a selection holding ids (duplicates are dropped).
func NewSelection(ids ...string) *Selection {
	s := &Selection{}
	s.Add(ids...)
	return s
}

// Add appends ids that are not already selected.
func (s *Selection) Add(ids ...string) {
	for _, id := range ids {
		if id != "" && !slices.Contains(s.ids, id) {
			s.ids = append(s.ids, id)
		}
	}
}

// Remove drops ids from the selection. Unknown IDs are ignored.
func (s *Selection) Remove(ids ...string) {
	s.ids = slices.DeleteFunc(s.ids, func(id string) bool { return slices.Contains(ids, id) })
}

// Set replaces the selection with ids.
func (s *Selection) Set(ids ...string) {
	s.ids = nil
	s.Add(ids...)
}

// Clear empties the selection.
func (s *Selection) Clear() { s.ids = nil }

// IDs returns a copy of the selected IDs in selection order.
func (s *Selection) IDs() []string { return slices.Clone(s.ids) }

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool { return slices.Contains(s.ids, id) }

// Len returns the number of selected IDs.
func (s *Selection) Len() int { return len(s.ids) }

// IsEmpty reports whether nothing is selected.
func (s *Selection) IsEmpty() bool { return len(s.ids) == 0 }
