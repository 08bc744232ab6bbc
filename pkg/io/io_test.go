package io

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/graph"
)

var stamp = time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)

func sampleNodes() []graph.Node {
	return []graph.Node{
		{
			ID: "m1", Type: graph.TypeMetric, Title: "Revenue", Description: "Monthly, net",
			Category: "finance", Tags: []string{"kpi", "north-star"}, Owner: "ana",
			CreatedAt: stamp, UpdatedAt: stamp.Add(time.Hour),
		},
		{ID: "c1", Type: graph.TypeChart, Title: "Revenue chart"},
	}
}

func sampleEdges() []graph.Edge {
	return []graph.Edge{{ID: "e1", SourceID: "m1", TargetID: "c1", Category: graph.CategoryDataFlow, Label: "plots"}}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"json", FormatJSON, false},
		{" CSV ", FormatCSV, false},
		{"xml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
		if tt.wantErr && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ParseFormat(%q) error code = %q", tt.in, errors.GetCode(err))
		}
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExport(&buf, FormatJSON, sampleNodes(), sampleEdges(), stamp); err != nil {
		t.Fatal(err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got["exported_at"] != "2026-03-01T12:30:00Z" {
		t.Errorf("exported_at = %v", got["exported_at"])
	}
	if got["node_count"] != float64(2) || got["edge_count"] != float64(1) {
		t.Errorf("counts = %v/%v", got["node_count"], got["edge_count"])
	}
	if nodes := got["nodes"].([]any); len(nodes) != 2 {
		t.Errorf("nodes = %v", nodes)
	}
}

func TestWriteJSONEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil, nil, stamp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"nodes": []`) || !strings.Contains(buf.String(), `"edges": []`) {
		t.Errorf("empty export should carry empty arrays:\n%s", buf.String())
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExport(&buf, FormatCSV, sampleNodes(), sampleEdges(), stamp); err != nil {
		t.Fatal(err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want header + 2", len(rows))
	}
	if strings.Join(rows[0], ",") != "id,title,description,category,tags,owner,created_at,updated_at" {
		t.Errorf("header = %v", rows[0])
	}
	want := []string{"m1", "Revenue", "Monthly, net", "finance", "kpi;north-star", "ana", "2026-03-01T12:30:00Z", "2026-03-01T13:30:00Z"}
	for i := range want {
		if rows[1][i] != want[i] {
			t.Errorf("row 1 column %s = %q, want %q", CSVHeader[i], rows[1][i], want[i])
		}
	}
	if rows[2][6] != "" {
		t.Errorf("zero timestamp = %q, want empty", rows[2][6])
	}
}

func TestWriteExportUnknownFormat(t *testing.T) {
	err := WriteExport(&bytes.Buffer{}, "xml", nil, nil, stamp)
	if !errors.Is(err, errors.ErrCodeInvalidFormat) {
		t.Errorf("WriteExport error = %v, want INVALID_FORMAT", err)
	}
}

func TestFileName(t *testing.T) {
	if got := FileName("growth", FormatCSV, stamp); got != "growth-export-20260301-123000.csv" {
		t.Errorf("FileName = %q", got)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := ExportFile(path, FormatJSON, sampleNodes(), sampleEdges(), stamp); err != nil {
		t.Fatal(err)
	}

	g, err := ImportJSON(path)
	if err != nil {
		t.Fatalf("ImportJSON: %v", err)
	}
	if g.NodeCount() != 2 || g.EdgeCount() != 1 {
		t.Errorf("imported %d nodes, %d edges", g.NodeCount(), g.EdgeCount())
	}
	if n, _ := g.Node("m1"); len(n.Tags) != 2 || n.Owner != "ana" {
		t.Errorf("m1 = %+v", n)
	}
}

func TestReadJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"malformed", `{"nodes": [`},
		{"dangling edge", `{"nodes": [{"id": "a", "type": "metric"}], "edges": [{"id": "e", "source_id": "a", "target_id": "b", "category": "data-flow"}]}`},
		{"unknown type", `{"nodes": [{"id": "a", "type": "widget"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadJSON(strings.NewReader(tt.in)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestImportJSONMissingFile(t *testing.T) {
	_, err := ImportJSON(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil || !os.IsNotExist(unwrapAll(err)) {
		t.Errorf("ImportJSON error = %v, want not-exist", err)
	}
}

func unwrapAll(err error) error {
	for {
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return err
		}
		next := u.Unwrap()
		if next == nil {
			return err
		}
		err = next
	}
}

func TestDataFlowCycle(t *testing.T) {
	in := `{"nodes": [{"id": "a", "type": "operator"}, {"id": "b", "type": "operator"}],
	        "edges": [{"id": "e1", "source_id": "a", "target_id": "b", "category": "data-flow"},
	                  {"id": "e2", "source_id": "b", "target_id": "a", "category": "data-flow"}]}`
	g, err := ReadJSON(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if cycle := DataFlowCycle(g); len(cycle) == 0 {
		t.Error("DataFlowCycle found no cycle")
	}

	_ = g.RemoveEdge("e2")
	if cycle := DataFlowCycle(g); cycle != nil {
		t.Errorf("DataFlowCycle = %v, want nil", cycle)
	}
}
