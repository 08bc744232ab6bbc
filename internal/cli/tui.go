package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/metricgraph/pkg/graph"
)

// List styles
var (
	listDimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	listCheckedStyle = lipgloss.NewStyle().Foreground(colorGreen)
)

// pickerKeyMap holds the picker's key bindings.
type pickerKeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Toggle  key.Binding
	All     key.Binding
	Confirm key.Binding
	Quit    key.Binding
}

// ShortHelp implements help.KeyMap.
func (k pickerKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.All, k.Confirm, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k pickerKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var pickerKeys = pickerKeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Toggle: key.NewBinding(
		key.WithKeys(" ", "space", "x"),
		key.WithHelp("space", "toggle"),
	),
	All: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "all"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("⏎", "confirm"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "esc", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// =============================================================================
// NodePickerModel - Interactive multi-selection
// =============================================================================

// NodePickerModel is the bubbletea model bulk commands use to build a
// selection when no IDs are given on the command line.
type NodePickerModel struct {
	Title     string
	Nodes     []graph.Node
	Cursor    int
	Height    int
	Offset    int
	Checked   map[string]bool
	Confirmed bool
}

// NewNodePickerModel creates a picker over nodes with nothing checked.
func NewNodePickerModel(title string, nodes []graph.Node) NodePickerModel {
	return NodePickerModel{
		Title:   title,
		Nodes:   nodes,
		Height:  15,
		Checked: make(map[string]bool),
	}
}

// Selected returns the checked IDs in list order, or nil if the picker was
// cancelled.
func (m NodePickerModel) Selected() []string {
	if !m.Confirmed {
		return nil
	}
	var ids []string
	for _, n := range m.Nodes {
		if m.Checked[n.ID] {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

func (m NodePickerModel) Init() tea.Cmd {
	return nil
}

func (m NodePickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, pickerKeys.Quit):
			return m, tea.Quit
		case key.Matches(msg, pickerKeys.Up):
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case key.Matches(msg, pickerKeys.Down):
			if m.Cursor < len(m.Nodes)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case key.Matches(msg, pickerKeys.Toggle):
			if len(m.Nodes) > 0 {
				id := m.Nodes[m.Cursor].ID
				if m.Checked[id] {
					delete(m.Checked, id)
				} else {
					m.Checked[id] = true
				}
			}
		case key.Matches(msg, pickerKeys.All):
			all := len(m.Checked) == len(m.Nodes)
			for _, n := range m.Nodes {
				if all {
					delete(m.Checked, n.ID)
				} else {
					m.Checked[n.ID] = true
				}
			}
		case key.Matches(msg, pickerKeys.Confirm):
			m.Confirmed = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 6
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m NodePickerModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Title))
	b.WriteString("\n")
	b.WriteString(help.New().View(pickerKeys))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Nodes))

	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		n := m.Nodes[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		check := "[ ]"
		if m.Checked[n.ID] {
			check = "[x]"
		}
		rows = append(rows, []string{cursor + check, n.Title, string(n.Type), strings.Join(n.Tags, ",")})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers("", "Title", "Type", "Tags").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == headerRow {
				return styleHeader
			}
			idx := m.Offset + row
			if idx >= len(m.Nodes) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if m.Checked[m.Nodes[idx].ID] {
				base = listCheckedStyle
			}
			if idx == m.Cursor {
				return base.Bold(true)
			}
			if col == 2 || col == 3 {
				return base.Foreground(colorDim)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d selected  [%d/%d]", len(m.Checked), m.Cursor+1, len(m.Nodes))))

	return b.String()
}

// pickNodes runs the picker and returns the confirmed IDs. It returns nil
// when the user quits.
func pickNodes(title string, nodes []graph.Node) ([]string, error) {
	if len(nodes) == 0 {
		return nil, nil
	}
	final, err := tea.NewProgram(NewNodePickerModel(title, nodes)).Run()
	if err != nil {
		return nil, fmt.Errorf("run picker: %w", err)
	}
	return final.(NodePickerModel).Selected(), nil
}
