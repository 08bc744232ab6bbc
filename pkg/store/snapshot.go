package store

import (
	"slices"

	"github.com/matzehuels/metricgraph/pkg/graph"
)

// The helpers below edit a snapshot in place. Puts replace an item with the
// same ID or append it; deletes of missing items are no-ops so replaying a
// mutation is harmless.

func putNode(s *graph.Snapshot, n graph.Node) {
	n = n.Clone()
	if i := slices.IndexFunc(s.Nodes, func(x graph.Node) bool { return x.ID == n.ID }); i >= 0 {
		s.Nodes[i] = n
		return
	}
	s.Nodes = append(s.Nodes, n)
}

func deleteNode(s *graph.Snapshot, id string) {
	s.Nodes = slices.DeleteFunc(s.Nodes, func(n graph.Node) bool { return n.ID == id })
	s.Edges = slices.DeleteFunc(s.Edges, func(e graph.Edge) bool { return e.SourceID == id || e.TargetID == id })
	for i := range s.Groups {
		s.Groups[i].NodeIDs = slices.DeleteFunc(s.Groups[i].NodeIDs, func(m string) bool { return m == id })
	}
}

func putEdge(s *graph.Snapshot, e graph.Edge) {
	if i := slices.IndexFunc(s.Edges, func(x graph.Edge) bool { return x.ID == e.ID }); i >= 0 {
		s.Edges[i] = e
		return
	}
	s.Edges = append(s.Edges, e)
}

func deleteEdge(s *graph.Snapshot, id string) {
	s.Edges = slices.DeleteFunc(s.Edges, func(e graph.Edge) bool { return e.ID == id })
}

func putGroup(s *graph.Snapshot, g graph.Group) {
	g = g.Clone()
	if i := slices.IndexFunc(s.Groups, func(x graph.Group) bool { return x.ID == g.ID }); i >= 0 {
		s.Groups[i] = g
		return
	}
	s.Groups = append(s.Groups, g)
}

func deleteGroup(s *graph.Snapshot, id string) {
	s.Groups = slices.DeleteFunc(s.Groups, func(g graph.Group) bool { return g.ID == id })
}
