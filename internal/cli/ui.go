package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/metricgraph/pkg/bulk"
	"github.com/matzehuels/metricgraph/pkg/graph"
	"github.com/matzehuels/metricgraph/pkg/rules"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - commands
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// Category colors keep the three edge categories apart in tables.
var categoryColors = map[graph.EdgeCategory]lipgloss.Color{
	graph.CategoryRelationship: colorCyan,
	graph.CategoryDataFlow:     colorGreen,
	graph.CategoryReference:    colorBlue,
}

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	styleBorder  = lipgloss.NewStyle().Foreground(colorDim)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// printStats prints graph statistics on a single line.
func printStats(nodeCount, edgeCount int) {
	parts := []string{
		fmt.Sprintf("%d nodes", nodeCount),
		fmt.Sprintf("%d edges", edgeCount),
	}
	fmt.Println("  " + StyleDim.Render(strings.Join(parts, " · ")))
}

// =============================================================================
// Bulk Results
// =============================================================================

// printResult reports a bulk result and returns its error, if any, so the
// command exits non-zero when an item failed.
func printResult(r bulk.Result) error {
	if r.Success {
		printSuccess("%s: %s processed", r.Op, StyleNumber.Render(strconv.Itoa(r.Processed)))
	} else {
		printWarning("%s: %d processed, %d failed", r.Op, r.Processed, len(r.Errors))
		for _, e := range r.Errors {
			printError("%s", e)
		}
	}
	if r.Op == bulk.OpDuplicate {
		for _, id := range r.UpdatedIDs {
			printFile(id)
		}
	}
	return r.Err()
}

// =============================================================================
// Tables
// =============================================================================

// headerRow is the row index lipgloss passes to StyleFunc for the header.
const headerRow = -1

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers(headers...)
}

// renderNodes renders nodes as a table.
func renderNodes(nodes []graph.Node) string {
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, []string{
			shortID(n.ID),
			string(n.Type),
			n.Title,
			strings.Join(n.Tags, ","),
			n.Owner,
			fmt.Sprintf("%.0f,%.0f", n.Position.X, n.Position.Y),
		})
	}
	return newTable("ID", "Type", "Title", "Tags", "Owner", "Position").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return styleHeader
			case col == 0 || col == 5:
				return StyleDim
			case col == 1:
				return StyleHighlight
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// renderEdges renders edges with source and target titles.
func renderEdges(edges []graph.Edge, title func(id string) string) string {
	rows := make([][]string, 0, len(edges))
	for _, e := range edges {
		attrs := ""
		if e.IsRelationship() {
			attrs = fmt.Sprintf("%s/%s/%.2g", e.Kind, e.Confidence, e.Weight)
		}
		rows = append(rows, []string{
			shortID(e.ID),
			title(e.SourceID),
			title(e.TargetID),
			string(e.Category),
			e.Label,
			attrs,
		})
	}
	return newTable("ID", "Source", "Target", "Category", "Label", "Kind/Conf/Weight").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return styleHeader
			case col == 0:
				return StyleDim
			case col == 3 && row < len(edges):
				return lipgloss.NewStyle().Foreground(categoryColors[edges[row].Category])
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// renderRules renders the connection rule table in evaluation order.
func renderRules(rs []rules.Rule) string {
	rows := make([][]string, 0, len(rs))
	for _, r := range rs {
		kind := ""
		if r.Category == graph.CategoryRelationship {
			kind = string(r.Kind)
			if kind == "" {
				kind = string(graph.DefaultKind)
			}
		}
		rows = append(rows, []string{r.Name, joinTypes(r.Sources), joinTypes(r.Targets), string(r.Category), kind})
	}
	return newTable("Rule", "Sources", "Targets", "Category", "Kind").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == headerRow:
				return styleHeader
			case col == 0:
				return StyleHighlight
			case col == 3 && row < len(rs):
				return lipgloss.NewStyle().Foreground(categoryColors[rs[row].Category])
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

func joinTypes(ts []graph.NodeType) string {
	s := make([]string, len(ts))
	for i, t := range ts {
		s[i] = string(t)
	}
	return strings.Join(s, ", ")
}
