package graph

import (
	"errors"
	"math"
	"slices"
	"strings"
	"time"
)

var (
	// ErrInvalidNodeID is returned by [Graph.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.AddNode] when a node with the
	// same ID already exists.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownNodeType is returned when a node type is outside the closed set.
	ErrUnknownNodeType = errors.New("unknown node type")

	// ErrInvalidPosition is returned when a position contains NaN or ±Inf.
	ErrInvalidPosition = errors.New("position must be two finite numbers")

	// ErrNodeNotFound is returned when a node ID does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrImmutableField is returned when an update tries to change a field
	// that is fixed at creation (IDs, node type, edge endpoints, edge category).
	ErrImmutableField = errors.New("field cannot be changed after creation")

	// ErrInvalidEdgeID is returned by [Graph.AddEdge] when the edge ID is empty.
	ErrInvalidEdgeID = errors.New("edge ID must not be empty")

	// ErrDuplicateEdgeID is returned by [Graph.AddEdge] when an edge with the
	// same ID already exists.
	ErrDuplicateEdgeID = errors.New("duplicate edge ID")

	// ErrUnknownSourceNode is returned by [Graph.AddEdge] when the source node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [Graph.AddEdge] when the target node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrInvalidCategory is returned when an edge category is not one of the
	// three known categories.
	ErrInvalidCategory = errors.New("invalid edge category")

	// ErrInvalidRelationship is returned when a relationship edge carries an
	// unknown kind, an unknown confidence, or a non-finite weight.
	ErrInvalidRelationship = errors.New("invalid relationship attributes")

	// ErrEdgeNotFound is returned when an edge ID does not exist.
	ErrEdgeNotFound = errors.New("edge not found")

	// ErrInvalidGroupID is returned by [Graph.AddGroup] when the group ID is empty.
	ErrInvalidGroupID = errors.New("group ID must not be empty")

	// ErrDuplicateGroupID is returned by [Graph.AddGroup] when a group with the
	// same ID already exists.
	ErrDuplicateGroupID = errors.New("duplicate group ID")

	// ErrGroupNotFound is returned when a group ID does not exist.
	ErrGroupNotFound = errors.New("group not found")
)

// Graph is the in-memory model of one canvas: cards, edges and groups.
//
// Nodes, edges and groups are kept in insertion order so listings and
// exports are deterministic. Accessors return copies; mutation goes through
// the Update/Move/Remove methods so invariants are checked on every write.
//
// The zero value is not usable - use New to create a Graph.
// Graph is not safe for concurrent use; the owning session serializes access.
type Graph struct {
	nodes     map[string]*Node
	nodeOrder []string
	edges     map[string]*Edge
	edgeOrder []string
	outgoing  map[string][]string // nodeID -> outgoing edge IDs
	incoming  map[string][]string // nodeID -> incoming edge IDs
	groups    map[string]*Group
	groupOrd  []string
	now       func() time.Time
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		nodes:    make(map[string]*Node),
		edges:    make(map[string]*Edge),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		groups:   make(map[string]*Group),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// Nodes
// =============================================================================

// AddNode adds a card to the graph. CreatedAt and UpdatedAt are set to the
// current time when zero.
//
// Returns ErrInvalidNodeID for an empty ID, ErrDuplicateNodeID if the ID is
// taken, ErrUnknownNodeType for a type outside the closed set, and
// ErrInvalidPosition for a non-finite position.
func (g *Graph) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := g.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if !n.Type.Valid() {
		return ErrUnknownNodeType
	}
	if !n.Position.Finite() {
		return ErrInvalidPosition
	}
	n = n.Clone()
	now := g.now()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = n.CreatedAt
	}
	g.nodes[n.ID] = &n
	g.nodeOrder = append(g.nodeOrder, n.ID)
	return nil
}

// Node returns a copy of the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	n, ok := g.nodes[id]
	if !ok {
		return Node{}, false
	}
	return n.Clone(), true
}

// HasNode reports whether a node with the given ID exists.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Nodes returns copies of all nodes in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		out = append(out, g.nodes[id].Clone())
	}
	return out
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// UpdateNode applies fn to a copy of the node and commits the copy if fn
// succeeds and the result still satisfies the node invariants. UpdatedAt is
// bumped on commit.
//
// The ID and type cannot be changed; attempting to do so returns
// ErrImmutableField and leaves the node untouched.
func (g *Graph) UpdateNode(id string, fn func(n *Node) error) error {
	cur, ok := g.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	next := cur.Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if next.ID != cur.ID || next.Type != cur.Type {
		return ErrImmutableField
	}
	if !next.Position.Finite() {
		return ErrInvalidPosition
	}
	next.UpdatedAt = g.now()
	*cur = next
	return nil
}

// MoveNode sets the node's position.
func (g *Graph) MoveNode(id string, pos Position) error {
	if !pos.Finite() {
		return ErrInvalidPosition
	}
	n, ok := g.nodes[id]
	if !ok {
		return ErrNodeNotFound
	}
	n.Position = pos
	return nil
}

// RestoreNode puts back a node value read earlier with [Graph.Node], keeping
// its timestamps. It is used to undo a change that could not be persisted.
// The ID and type must match the node currently stored.
func (g *Graph) RestoreNode(n Node) error {
	cur, ok := g.nodes[n.ID]
	if !ok {
		return ErrNodeNotFound
	}
	if n.Type != cur.Type {
		return ErrImmutableField
	}
	if !n.Position.Finite() {
		return ErrInvalidPosition
	}
	*cur = n.Clone()
	return nil
}

// RemoveNode deletes a node together with every edge incident to it, and
// drops the node from any group that references it. It returns the IDs of
// the edges removed by the cascade.
func (g *Graph) RemoveNode(id string) ([]string, error) {
	if _, ok := g.nodes[id]; !ok {
		return nil, ErrNodeNotFound
	}

	var removed []string
	for _, eid := range slices.Concat(g.outgoing[id], g.incoming[id]) {
		if _, ok := g.edges[eid]; !ok {
			continue // self-loop already removed via outgoing
		}
		g.removeEdge(eid)
		removed = append(removed, eid)
	}

	delete(g.nodes, id)
	delete(g.outgoing, id)
	delete(g.incoming, id)
	g.nodeOrder = slices.DeleteFunc(g.nodeOrder, func(s string) bool { return s == id })

	for _, grp := range g.groups {
		grp.NodeIDs = slices.DeleteFunc(grp.NodeIDs, func(s string) bool { return s == id })
	}
	return removed, nil
}

// =============================================================================
// Edges
// =============================================================================

// AddEdge adds a directed edge between two existing nodes.
//
// AddEdge only checks structural invariants (IDs, endpoints, category and,
// for relationship edges, the kind/confidence/weight attributes). Whether the
// connection is allowed at all, and whether a data-flow edge keeps the
// pipeline acyclic, is decided before the edge reaches the graph.
func (g *Graph) AddEdge(e Edge) error {
	if e.ID == "" {
		return ErrInvalidEdgeID
	}
	if _, exists := g.edges[e.ID]; exists {
		return ErrDuplicateEdgeID
	}
	if _, ok := g.nodes[e.SourceID]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := g.nodes[e.TargetID]; !ok {
		return ErrUnknownTargetNode
	}
	if err := checkEdge(e); err != nil {
		return err
	}
	g.edges[e.ID] = &e
	g.edgeOrder = append(g.edgeOrder, e.ID)
	g.outgoing[e.SourceID] = append(g.outgoing[e.SourceID], e.ID)
	g.incoming[e.TargetID] = append(g.incoming[e.TargetID], e.ID)
	return nil
}

func checkEdge(e Edge) error {
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if !e.IsRelationship() {
		return nil
	}
	if !e.Kind.Valid() || !e.Confidence.Valid() || math.IsNaN(e.Weight) || math.IsInf(e.Weight, 0) {
		return ErrInvalidRelationship
	}
	return nil
}

// Edge returns a copy of the edge with the given ID.
func (g *Graph) Edge(id string) (Edge, bool) {
	e, ok := g.edges[id]
	if !ok {
		return Edge{}, false
	}
	return *e, true
}

// HasEdge reports whether an edge with the given ID exists.
func (g *Graph) HasEdge(id string) bool {
	_, ok := g.edges[id]
	return ok
}

// Edges returns copies of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edgeOrder))
	for _, id := range g.edgeOrder {
		out = append(out, *g.edges[id])
	}
	return out
}

// EdgesByCategory returns copies of all edges of the given category in
// insertion order.
func (g *Graph) EdgesByCategory(c EdgeCategory) []Edge {
	var out []Edge
	for _, id := range g.edgeOrder {
		if e := g.edges[id]; e.Category == c {
			out = append(out, *e)
		}
	}
	return out
}

// EdgesTouching returns every edge whose source or target is in ids.
func (g *Graph) EdgesTouching(ids []string) []Edge {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	var out []Edge
	for _, eid := range g.edgeOrder {
		e := g.edges[eid]
		_, src := set[e.SourceID]
		_, tgt := set[e.TargetID]
		if src || tgt {
			out = append(out, *e)
		}
	}
	return out
}

// EdgeCount returns the number of edges in the graph.
func (g *Graph) EdgeCount() int { return len(g.edges) }

// UpdateEdge applies fn to a copy of the edge and commits it if the result is
// still valid. ID, endpoints and category are fixed at creation; changing
// them returns ErrImmutableField.
func (g *Graph) UpdateEdge(id string, fn func(e *Edge) error) error {
	cur, ok := g.edges[id]
	if !ok {
		return ErrEdgeNotFound
	}
	next := *cur
	if err := fn(&next); err != nil {
		return err
	}
	if next.ID != cur.ID || next.SourceID != cur.SourceID || next.TargetID != cur.TargetID || next.Category != cur.Category {
		return ErrImmutableField
	}
	if err := checkEdge(next); err != nil {
		return err
	}
	*cur = next
	return nil
}

// RestoreEdge puts back an edge value read earlier with [Graph.Edge].
func (g *Graph) RestoreEdge(e Edge) error {
	return g.UpdateEdge(e.ID, func(cur *Edge) error {
		*cur = e
		return nil
	})
}

// RemoveEdge deletes the edge with the given ID.
func (g *Graph) RemoveEdge(id string) error {
	if _, ok := g.edges[id]; !ok {
		return ErrEdgeNotFound
	}
	g.removeEdge(id)
	return nil
}

func (g *Graph) removeEdge(id string) {
	e := g.edges[id]
	drop := func(s string) bool { return s == id }
	g.outgoing[e.SourceID] = slices.DeleteFunc(g.outgoing[e.SourceID], drop)
	g.incoming[e.TargetID] = slices.DeleteFunc(g.incoming[e.TargetID], drop)
	g.edgeOrder = slices.DeleteFunc(g.edgeOrder, drop)
	delete(g.edges, id)
}

// =============================================================================
// Groups
// =============================================================================

// AddGroup adds a visual group. Member IDs that do not reference an existing
// node are dropped.
func (g *Graph) AddGroup(grp Group) error {
	if grp.ID == "" {
		return ErrInvalidGroupID
	}
	if _, exists := g.groups[grp.ID]; exists {
		return ErrDuplicateGroupID
	}
	if !grp.Position.Finite() {
		return ErrInvalidPosition
	}
	grp = grp.Clone()
	grp.NodeIDs = slices.DeleteFunc(grp.NodeIDs, func(id string) bool { return !g.HasNode(id) })
	g.groups[grp.ID] = &grp
	g.groupOrd = append(g.groupOrd, grp.ID)
	return nil
}

// Group returns a copy of the group with the given ID.
func (g *Graph) Group(id string) (Group, bool) {
	grp, ok := g.groups[id]
	if !ok {
		return Group{}, false
	}
	return grp.Clone(), true
}

// Groups returns copies of all groups in insertion order.
func (g *Graph) Groups() []Group {
	out := make([]Group, 0, len(g.groupOrd))
	for _, id := range g.groupOrd {
		out = append(out, g.groups[id].Clone())
	}
	return out
}

// RemoveGroup deletes a group. Its member nodes are left untouched.
func (g *Graph) RemoveGroup(id string) error {
	if _, ok := g.groups[id]; !ok {
		return ErrGroupNotFound
	}
	delete(g.groups, id)
	g.groupOrd = slices.DeleteFunc(g.groupOrd, func(s string) bool { return s == id })
	return nil
}

// =============================================================================
// Queries
// =============================================================================

// Filter selects nodes for browsing. Zero-valued fields do not filter.
type Filter struct {
	Types    []NodeType
	Tag      string
	Owner    string
	Category string
	// Query matches a case-insensitive substring of the title or description.
	Query string
}

// Match reports whether n passes every non-zero criterion of f.
func (f Filter) Match(n Node) bool {
	if len(f.Types) > 0 && !slices.Contains(f.Types, n.Type) {
		return false
	}
	if f.Tag != "" && !n.HasTag(f.Tag) {
		return false
	}
	if f.Owner != "" && n.Owner != f.Owner {
		return false
	}
	if f.Category != "" && n.Category != f.Category {
		return false
	}
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(n.Title), q) && !strings.Contains(strings.ToLower(n.Description), q) {
			return false
		}
	}
	return true
}

// Filter returns copies of the nodes matching f, in insertion order.
func (g *Graph) Filter(f Filter) []Node {
	var out []Node
	for _, id := range g.nodeOrder {
		if n := g.nodes[id]; f.Match(*n) {
			out = append(out, n.Clone())
		}
	}
	return out
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := New()
	c.now = g.now
	for _, n := range g.Nodes() {
		_ = c.AddNode(n)
	}
	for _, e := range g.Edges() {
		_ = c.AddEdge(e)
	}
	for _, grp := range g.Groups() {
		_ = c.AddGroup(grp)
	}
	return c
}
