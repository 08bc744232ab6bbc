package io

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/graph"
)

// Format is an export format.
type Format string

// Supported export formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates an export format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatCSV:
		return f, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported export format %q (want json or csv)", s)
}

// Export is the JSON export document.
type Export struct {
	ExportedAt time.Time    `json:"exported_at"`
	NodeCount  int          `json:"node_count"`
	EdgeCount  int          `json:"edge_count"`
	Nodes      []graph.Node `json:"nodes"`
	Edges      []graph.Edge `json:"edges"`
}

// CSVHeader is the first row of a CSV export.
var CSVHeader = []string{"id", "title", "description", "category", "tags", "owner", "created_at", "updated_at"}

// WriteExport writes nodes and edges to w in format, stamped with at.
func WriteExport(w io.Writer, f Format, nodes []graph.Node, edges []graph.Edge, at time.Time) error {
	switch f {
	case FormatJSON:
		return WriteJSON(w, nodes, edges, at)
	case FormatCSV:
		return WriteCSV(w, nodes)
	}
	return errors.New(errors.ErrCodeInvalidFormat, "unsupported export format %q", f)
}

// WriteJSON writes the JSON export document.
func WriteJSON(w io.Writer, nodes []graph.Node, edges []graph.Edge, at time.Time) error {
	if nodes == nil {
		nodes = []graph.Node{}
	}
	if edges == nil {
		edges = []graph.Edge{}
	}
	out := Export{
		ExportedAt: at.UTC(),
		NodeCount:  len(nodes),
		EdgeCount:  len(edges),
		Nodes:      nodes,
		Edges:      edges,
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

// WriteCSV writes one row per node under [CSVHeader].
func WriteCSV(w io.Writer, nodes []graph.Node) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, n := range nodes {
		row := []string{
			n.ID,
			n.Title,
			n.Description,
			n.Category,
			strings.Join(n.Tags, ";"),
			n.Owner,
			timestamp(n.CreatedAt),
			timestamp(n.UpdatedAt),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write node %s: %w", n.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// FileName returns the default export file name,
// "<project>-export-<timestamp>.<ext>".
func FileName(project string, f Format, at time.Time) string {
	return fmt.Sprintf("%s-export-%s.%s", project, at.UTC().Format("20060102-150405"), f)
}

// ExportFile writes an export to path.
func ExportFile(path string, f Format, nodes []graph.Node, edges []graph.Edge, at time.Time) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteExport(file, f, nodes, edges, at); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
