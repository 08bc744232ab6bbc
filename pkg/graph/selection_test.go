package graph

import (
	"slices"
	"testing"
)

func TestSelection(t *testing.T) {
	s := NewSelection("a", "b", "a", "")
	if got := s.IDs(); !slices.Equal(got, []string{"a", "b"}) {
		t.Fatalf("IDs() = %v, want [a b]", got)
	}

	s.Add("c", "b")
	if s.Len() != 3 {
		t.Errorf("Len() = %d, want 3", s.Len())
	}

	s.Remove("a", "zz")
	if s.Contains("a") || !s.Contains("c") {
		t.Errorf("after Remove: %v", s.IDs())
	}

	s.Set("x")
	if got := s.IDs(); !slices.Equal(got, []string{"x"}) {
		t.Errorf("after Set: %v", got)
	}

	s.Clear()
	if !s.IsEmpty() {
		t.Error("selection not empty after Clear")
	}
}

func TestSelectionZeroValue(t *testing.T) {
	var s Selection
	if !s.IsEmpty() {
		t.Error("zero value should be empty")
	}
	s.Add("a")
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}
}

func TestSelectionIDsIsCopy(t *testing.T) {
	s := NewSelection("a")
	ids := s.IDs()
	ids[0] = "mutated"
	if !s.Contains("a") {
		t.Error("IDs() must return a copy")
	}
}
