package graph

import (
	"errors"
	"math"
	"testing"
)

func relEdge(id, src, tgt string) Edge {
	return Edge{
		ID: id, SourceID: src, TargetID: tgt,
		Category: CategoryRelationship,
		Kind:     DefaultKind, Confidence: DefaultConfidence, Weight: DefaultWeight,
	}
}

func buildGraph(t *testing.T) *Graph {
	t.Helper()
	g := New()
	for _, n := range []Node{
		{ID: "a", Type: TypeMetric, Title: "Revenue", Tags: []string{"north-star"}, Owner: "ana"},
		{ID: "b", Type: TypeMetric, Title: "Active users", Category: "growth"},
		{ID: "c", Type: TypeChart, Title: "Revenue chart"},
	} {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.ID, err)
		}
	}
	if err := g.AddEdge(relEdge("e1", "a", "b")); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	if err := g.AddEdge(Edge{ID: "e2", SourceID: "b", TargetID: "c", Category: CategoryDataFlow, Label: "plots"}); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	return g
}

func TestAddNode(t *testing.T) {
	tests := []struct {
		name    string
		node    Node
		wantErr error
	}{
		{"Valid", Node{ID: "x", Type: TypeValue}, nil},
		{"EmptyID", Node{Type: TypeValue}, ErrInvalidNodeID},
		{"Duplicate", Node{ID: "a", Type: TypeValue}, ErrDuplicateNodeID},
		{"UnknownType", Node{ID: "x", Type: "widget"}, ErrUnknownNodeType},
		{"NaNPosition", Node{ID: "x", Type: TypeValue, Position: Position{X: math.NaN()}}, ErrInvalidPosition},
		{"InfPosition", Node{ID: "x", Type: TypeValue, Position: Position{Y: math.Inf(1)}}, ErrInvalidPosition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t)
			err := g.AddNode(tt.node)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddNode() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddNodeSetsTimestamps(t *testing.T) {
	g := New()
	if err := g.AddNode(Node{ID: "x", Type: TypeAction}); err != nil {
		t.Fatal(err)
	}
	n, _ := g.Node("x")
	if n.CreatedAt.IsZero() || n.UpdatedAt.IsZero() {
		t.Errorf("timestamps not set: created=%v updated=%v", n.CreatedAt, n.UpdatedAt)
	}
}

func TestNodeReturnsCopy(t *testing.T) {
	g := buildGraph(t)
	n, _ := g.Node("a")
	n.Tags[0] = "mutated"
	n.Title = "mutated"

	again, _ := g.Node("a")
	if again.Tags[0] != "north-star" || again.Title != "Revenue" {
		t.Errorf("graph state changed through copy: %+v", again)
	}
}

func TestAddEdge(t *testing.T) {
	tests := []struct {
		name    string
		edge    Edge
		wantErr error
	}{
		{"Valid", relEdge("x", "a", "c"), nil},
		{"EmptyID", relEdge("", "a", "c"), ErrInvalidEdgeID},
		{"Duplicate", relEdge("e1", "a", "c"), ErrDuplicateEdgeID},
		{"UnknownSource", relEdge("x", "zz", "c"), ErrUnknownSourceNode},
		{"UnknownTarget", relEdge("x", "a", "zz"), ErrUnknownTargetNode},
		{"BadCategory", Edge{ID: "x", SourceID: "a", TargetID: "c", Category: "magic"}, ErrInvalidCategory},
		{"BadKind", Edge{ID: "x", SourceID: "a", TargetID: "b", Category: CategoryRelationship, Kind: "fuzzy", Confidence: ConfidenceLow}, ErrInvalidRelationship},
		{"NaNWeight", Edge{ID: "x", SourceID: "a", TargetID: "b", Category: CategoryRelationship, Kind: KindCausal, Confidence: ConfidenceLow, Weight: math.NaN()}, ErrInvalidRelationship},
		{"ReferenceNoAttrs", Edge{ID: "x", SourceID: "a", TargetID: "b", Category: CategoryReference}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := buildGraph(t)
			if err := g.AddEdge(tt.edge); !errors.Is(err, tt.wantErr) {
				t.Fatalf("AddEdge() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRemoveNodeCascades(t *testing.T) {
	g := buildGraph(t)
	if err := g.AddGroup(Group{ID: "g1", Name: "Core", NodeIDs: []string{"a", "b"}}); err != nil {
		t.Fatal(err)
	}

	removed, err := g.RemoveNode("b")
	if err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if len(removed) != 2 {
		t.Errorf("removed edges = %v, want 2 edges", removed)
	}
	if g.EdgeCount() != 0 {
		t.Errorf("EdgeCount() = %d, want 0", g.EdgeCount())
	}
	if g.HasNode("b") {
		t.Error("node b still present")
	}
	grp, _ := g.Group("g1")
	if len(grp.NodeIDs) != 1 || grp.NodeIDs[0] != "a" {
		t.Errorf("group members = %v, want [a]", grp.NodeIDs)
	}

	if _, err := g.RemoveNode("b"); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("second RemoveNode error = %v, want %v", err, ErrNodeNotFound)
	}
}

func TestRemoveNodeSelfLoop(t *testing.T) {
	g := New()
	_ = g.AddNode(Node{ID: "a", Type: TypeMetric})
	_ = g.AddEdge(relEdge("loop", "a", "a"))

	removed, err := g.RemoveNode("a")
	if err != nil {
		t.Fatal(err)
	}
	if len(removed) != 1 {
		t.Errorf("removed = %v, want [loop]", removed)
	}
}

func TestUpdateNode(t *testing.T) {
	g := buildGraph(t)
	before, _ := g.Node("a")

	err := g.UpdateNode("a", func(n *Node) error {
		n.Owner = "bo"
		n.Tags = append(n.Tags, "q3")
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}
	after, _ := g.Node("a")
	if after.Owner != "bo" || len(after.Tags) != 2 {
		t.Errorf("update not applied: %+v", after)
	}
	if after.UpdatedAt.Before(before.UpdatedAt) {
		t.Error("UpdatedAt moved backwards")
	}

	err = g.UpdateNode("a", func(n *Node) error {
		n.Type = TypeChart
		n.Owner = "should-not-stick"
		return nil
	})
	if !errors.Is(err, ErrImmutableField) {
		t.Fatalf("type change error = %v, want %v", err, ErrImmutableField)
	}
	if n, _ := g.Node("a"); n.Owner != "bo" {
		t.Errorf("failed update leaked: owner = %q", n.Owner)
	}

	fnErr := errors.New("boom")
	if err := g.UpdateNode("a", func(*Node) error { return fnErr }); !errors.Is(err, fnErr) {
		t.Errorf("fn error = %v, want %v", err, fnErr)
	}
	if err := g.UpdateNode("zz", func(*Node) error { return nil }); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("missing node error = %v, want %v", err, ErrNodeNotFound)
	}
}

func TestUpdateEdge(t *testing.T) {
	g := buildGraph(t)

	err := g.UpdateEdge("e1", func(e *Edge) error {
		e.Kind = KindCausal
		e.Confidence = ConfidenceHigh
		e.Weight = 0.4
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateEdge: %v", err)
	}
	e, _ := g.Edge("e1")
	if e.Kind != KindCausal || e.Confidence != ConfidenceHigh || e.Weight != 0.4 {
		t.Errorf("update not applied: %+v", e)
	}

	err = g.UpdateEdge("e1", func(e *Edge) error {
		e.Category = CategoryDataFlow
		return nil
	})
	if !errors.Is(err, ErrImmutableField) {
		t.Errorf("category change error = %v, want %v", err, ErrImmutableField)
	}

	err = g.UpdateEdge("e1", func(e *Edge) error {
		e.Weight = math.Inf(-1)
		return nil
	})
	if !errors.Is(err, ErrInvalidRelationship) {
		t.Errorf("inf weight error = %v, want %v", err, ErrInvalidRelationship)
	}
}

func TestRestoreNode(t *testing.T) {
	g := buildGraph(t)
	before, _ := g.Node("a")
	if err := g.UpdateNode("a", func(n *Node) error {
		n.Owner = "bo"
		n.Tags = nil
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	if err := g.RestoreNode(before); err != nil {
		t.Fatalf("RestoreNode: %v", err)
	}
	n, _ := g.Node("a")
	if n.Owner != "ana" || len(n.Tags) != 1 || !n.UpdatedAt.Equal(before.UpdatedAt) {
		t.Errorf("restored = %+v, want %+v", n, before)
	}

	before.Tags[0] = "mutated"
	if n, _ := g.Node("a"); n.Tags[0] != "north-star" {
		t.Error("RestoreNode kept a reference to the caller's tags")
	}

	changed := before
	changed.Type = TypeChart
	if err := g.RestoreNode(changed); !errors.Is(err, ErrImmutableField) {
		t.Errorf("type change error = %v, want %v", err, ErrImmutableField)
	}
	if err := g.RestoreNode(Node{ID: "zz", Type: TypeValue}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("missing node error = %v, want %v", err, ErrNodeNotFound)
	}
}

func TestRestoreEdge(t *testing.T) {
	g := buildGraph(t)
	before, _ := g.Edge("e1")
	if err := g.UpdateEdge("e1", func(e *Edge) error {
		e.Weight = 0.1
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := g.RestoreEdge(before); err != nil {
		t.Fatalf("RestoreEdge: %v", err)
	}
	if e, _ := g.Edge("e1"); e != before {
		t.Errorf("restored = %+v, want %+v", e, before)
	}
}

func TestMoveNode(t *testing.T) {
	g := buildGraph(t)
	if err := g.MoveNode("a", Position{X: 10, Y: 20}); err != nil {
		t.Fatal(err)
	}
	if n, _ := g.Node("a"); n.Position != (Position{X: 10, Y: 20}) {
		t.Errorf("Position = %+v", n.Position)
	}
	if err := g.MoveNode("a", Position{X: math.NaN()}); !errors.Is(err, ErrInvalidPosition) {
		t.Errorf("NaN move error = %v", err)
	}
	if err := g.MoveNode("zz", Position{}); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("missing move error = %v", err)
	}
}

func TestEdgeQueries(t *testing.T) {
	g := buildGraph(t)

	if got := g.EdgesByCategory(CategoryDataFlow); len(got) != 1 || got[0].ID != "e2" {
		t.Errorf("EdgesByCategory(data-flow) = %v", got)
	}
	if got := g.EdgesTouching([]string{"c"}); len(got) != 1 || got[0].ID != "e2" {
		t.Errorf("EdgesTouching(c) = %v", got)
	}
	if got := g.EdgesTouching([]string{"a", "c"}); len(got) != 2 {
		t.Errorf("EdgesTouching(a,c) = %d edges, want 2", len(got))
	}
	if err := g.RemoveEdge("e1"); err != nil {
		t.Fatal(err)
	}
	if err := g.RemoveEdge("e1"); !errors.Is(err, ErrEdgeNotFound) {
		t.Errorf("second RemoveEdge error = %v", err)
	}
}

func TestFilter(t *testing.T) {
	g := buildGraph(t)
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"All", Filter{}, []string{"a", "b", "c"}},
		{"ByType", Filter{Types: []NodeType{TypeChart}}, []string{"c"}},
		{"ByTag", Filter{Tag: "north-star"}, []string{"a"}},
		{"ByOwner", Filter{Owner: "ana"}, []string{"a"}},
		{"ByCategory", Filter{Category: "growth"}, []string{"b"}},
		{"ByQuery", Filter{Query: "REVENUE"}, []string{"a", "c"}},
		{"Combined", Filter{Query: "revenue", Types: []NodeType{TypeMetric}}, []string{"a"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Filter(tt.filter)
			if len(got) != len(tt.want) {
				t.Fatalf("Filter() = %d nodes, want %d", len(got), len(tt.want))
			}
			for i, n := range got {
				if n.ID != tt.want[i] {
					t.Errorf("Filter()[%d] = %s, want %s", i, n.ID, tt.want[i])
				}
			}
		})
	}
}

func TestGroups(t *testing.T) {
	g := buildGraph(t)
	if err := g.AddGroup(Group{ID: "g1", Name: "Pipeline", NodeIDs: []string{"b", "c", "ghost"}}); err != nil {
		t.Fatal(err)
	}
	grp, ok := g.Group("g1")
	if !ok {
		t.Fatal("group missing")
	}
	if len(grp.NodeIDs) != 2 {
		t.Errorf("NodeIDs = %v, want unknown IDs dropped", grp.NodeIDs)
	}
	if err := g.AddGroup(Group{ID: "g1"}); !errors.Is(err, ErrDuplicateGroupID) {
		t.Errorf("duplicate group error = %v", err)
	}
	if err := g.AddGroup(Group{}); !errors.Is(err, ErrInvalidGroupID) {
		t.Errorf("empty group error = %v", err)
	}
	if err := g.RemoveGroup("g1"); err != nil {
		t.Fatal(err)
	}
	if len(g.Groups()) != 0 {
		t.Error("group not removed")
	}
	if g.NodeCount() != 3 {
		t.Error("removing a group must not remove its members")
	}
}

func TestClone(t *testing.T) {
	g := buildGraph(t)
	c := g.Clone()
	if c.NodeCount() != g.NodeCount() || c.EdgeCount() != g.EdgeCount() {
		t.Fatalf("clone counts = %d/%d", c.NodeCount(), c.EdgeCount())
	}
	_, _ = c.RemoveNode("a")
	if !g.HasNode("a") {
		t.Error("mutating the clone changed the original")
	}
}

func TestParseNodeType(t *testing.T) {
	for _, nt := range NodeTypes() {
		got, err := ParseNodeType(string(nt))
		if err != nil || got != nt {
			t.Errorf("ParseNodeType(%q) = %q, %v", nt, got, err)
		}
	}
	if _, err := ParseNodeType("dashboard"); !errors.Is(err, ErrUnknownNodeType) {
		t.Errorf("ParseNodeType(dashboard) error = %v", err)
	}
}
