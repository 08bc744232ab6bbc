package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/metricgraph/pkg/dag"
	"github.com/matzehuels/metricgraph/pkg/graph"
)

// ReadJSON decodes a snapshot or JSON export from r into a graph.
//
// Data-flow cycles are not rejected here because stored data may predate
// the cycle guard; use [DataFlowCycle] to detect them. ReadJSON does not
// close r.
func ReadJSON(r io.Reader) (*graph.Graph, error) {
	var s graph.Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return graph.FromSnapshot(&s)
}

// ImportJSON reads a JSON file at path. See [ReadJSON].
func ImportJSON(path string) (*graph.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

// DataFlowCycle returns the node IDs of one cycle formed by g's data-flow
// edges, or nil if they are acyclic.
func DataFlowCycle(g *graph.Graph) []string {
	return dag.FindCycle(DataFlowEdges(g))
}

// DataFlowEdges projects g's data-flow edges onto the cycle guard's edge type.
func DataFlowEdges(g *graph.Graph) []dag.Edge {
	flows := g.EdgesByCategory(graph.CategoryDataFlow)
	out := make([]dag.Edge, len(flows))
	for i, e := range flows {
		out[i] = dag.Edge{From: e.SourceID, To: e.TargetID}
	}
	return out
}
