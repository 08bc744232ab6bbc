package graph

import (
	"errors"
	"testing"
)

func TestSnapshotRoundTrip(t *testing.T) {
	g := buildGraph(t)
	if err := g.AddGroup(Group{ID: "g1", Name: "Growth", NodeIDs: []string{"a", "b"}}); err != nil {
		t.Fatal(err)
	}

	s := g.Snapshot("growth-tree")
	if s.ProjectID != "growth-tree" || len(s.Nodes) != 3 || len(s.Edges) != 2 || len(s.Groups) != 1 {
		t.Fatalf("Snapshot = %+v", s)
	}

	back, err := FromSnapshot(s)
	if err != nil {
		t.Fatalf("FromSnapshot: %v", err)
	}
	if back.NodeCount() != 3 || back.EdgeCount() != 2 || len(back.Groups()) != 1 {
		t.Errorf("rebuilt graph has %d nodes, %d edges, %d groups", back.NodeCount(), back.EdgeCount(), len(back.Groups()))
	}
	if n, _ := back.Node("a"); n.Title != "Revenue" || !n.HasTag("north-star") {
		t.Errorf("node a = %+v", n)
	}
}

func TestFromSnapshotRejectsBrokenEdges(t *testing.T) {
	s := &Snapshot{
		Nodes: []Node{{ID: "a", Type: TypeMetric}},
		Edges: []Edge{{ID: "e1", SourceID: "a", TargetID: "ghost", Category: CategoryDataFlow}},
	}
	if _, err := FromSnapshot(s); !errors.Is(err, ErrUnknownTargetNode) {
		t.Errorf("FromSnapshot error = %v, want ErrUnknownTargetNode", err)
	}
}

func TestFromSnapshotNil(t *testing.T) {
	g, err := FromSnapshot(nil)
	if err != nil || g.NodeCount() != 0 {
		t.Errorf("FromSnapshot(nil) = %v, %v", g, err)
	}
}
