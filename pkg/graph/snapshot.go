package graph

import (
	"fmt"
	"time"
)

// Snapshot is the serializable state of one project's canvas. It is the
// unit that stores load and save and that JSON import reads.
type Snapshot struct {
	ProjectID string    `json:"project_id" bson:"_id"`
	Nodes     []Node    `json:"nodes" bson:"nodes"`
	Edges     []Edge    `json:"edges" bson:"edges"`
	Groups    []Group   `json:"groups,omitempty" bson:"groups,omitempty"`
	SavedAt   time.Time `json:"saved_at" bson:"saved_at"`
}

// Snapshot captures the graph's current state under projectID.
func (g *Graph) Snapshot(projectID string) *Snapshot {
	return &Snapshot{
		ProjectID: projectID,
		Nodes:     g.Nodes(),
		Edges:     g.Edges(),
		Groups:    g.Groups(),
		SavedAt:   g.now(),
	}
}

// FromSnapshot rebuilds a graph, checking every node and edge on the way in.
// Errors name the offending node or edge and wrap the graph sentinel.
func FromSnapshot(s *Snapshot) (*Graph, error) {
	g := New()
	if s == nil {
		return g, nil
	}
	for _, n := range s.Nodes {
		if err := g.AddNode(n); err != nil {
			return nil, fmt.Errorf("node %s: %w", n.ID, err)
		}
	}
	for _, e := range s.Edges {
		if err := g.AddEdge(e); err != nil {
			return nil, fmt.Errorf("edge %s (%s->%s): %w", e.ID, e.SourceID, e.TargetID, err)
		}
	}
	for _, grp := range s.Groups {
		if err := g.AddGroup(grp); err != nil {
			return nil, fmt.Errorf("group %s: %w", grp.ID, err)
		}
	}
	return g, nil
}
