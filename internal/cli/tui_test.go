package cli

import (
	"slices"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/matzehuels/metricgraph/pkg/graph"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m NodePickerModel, keys ...string) NodePickerModel {
	for _, k := range keys {
		next, _ := m.Update(keyMsg(k))
		m = next.(NodePickerModel)
	}
	return m
}

func pickerNodes() []graph.Node {
	return []graph.Node{
		{ID: "a", Type: graph.TypeMetric, Title: "Revenue"},
		{ID: "b", Type: graph.TypeMetric, Title: "Churn", Tags: []string{"kpi"}},
		{ID: "c", Type: graph.TypeChart, Title: "Revenue chart"},
	}
}

func TestNodePickerToggleAndConfirm(t *testing.T) {
	m := press(NewNodePickerModel("Select", pickerNodes()), "space", "down", "down", "space", "enter")

	if got := m.Selected(); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("Selected() = %v, want [a c]", got)
	}
}

func TestNodePickerUntoggle(t *testing.T) {
	m := press(NewNodePickerModel("Select", pickerNodes()), "space", "space", "j", "x", "enter")

	if got := m.Selected(); !slices.Equal(got, []string{"b"}) {
		t.Errorf("Selected() = %v, want [b]", got)
	}
}

func TestNodePickerSelectAll(t *testing.T) {
	m := press(NewNodePickerModel("Select", pickerNodes()), "a", "enter")
	if got := m.Selected(); len(got) != 3 {
		t.Errorf("Selected() = %v, want all three", got)
	}

	m = press(m, "a")
	if len(m.Checked) != 0 {
		t.Errorf("second 'a' should clear, got %v", m.Checked)
	}
}

func TestNodePickerQuitSelectsNothing(t *testing.T) {
	m := press(NewNodePickerModel("Select", pickerNodes()), "space", "q")
	if got := m.Selected(); got != nil {
		t.Errorf("Selected() after quit = %v, want nil", got)
	}
}

func TestNodePickerCursorBounds(t *testing.T) {
	m := press(NewNodePickerModel("Select", pickerNodes()), "k", "down", "down", "down", "down")
	if m.Cursor != 2 {
		t.Errorf("Cursor = %d, want 2", m.Cursor)
	}
}

func TestNodePickerView(t *testing.T) {
	m := press(NewNodePickerModel("Select cards to delete", pickerNodes()), "down", "space")
	view := m.View()
	for _, want := range []string{"Select cards to delete", "Churn", "[x]", "1 selected", "confirm"} {
		if !strings.Contains(view, want) {
			t.Errorf("View() missing %q", want)
		}
	}
}
