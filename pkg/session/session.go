// Package session owns one open project canvas.
//
// A [Session] is the single owner of a project's graph, its selection, the
// rule engine, the layout engine and the store the graph is mirrored to.
// Every caller (CLI command, HTTP handler, auto-layout timer) goes through
// the session, which serializes them with one mutex.
//
// # Usage
//
//	s, err := session.Open(ctx, st, "growth", cfg)
//	if err != nil {
//	    return err
//	}
//	defer s.Close(ctx)
//
//	a, _ := s.AddNode(ctx, graph.Node{Type: graph.TypeMetric, Title: "Revenue"})
//	c, _ := s.AddNode(ctx, graph.Node{Type: graph.TypeChart, Title: "Revenue chart"})
//	edge, err := s.Connect(ctx, a.ID, c.ID) // data-flow edge labelled "plots"
//
// Connection requests pass the rule engine first and, for data-flow edges,
// the cycle guard. A rejection leaves the graph untouched and is reported
// with code RULE_VIOLATION or CYCLE_VIOLATION.
//
// # Auto-layout
//
// When auto-layout is enabled, any change to the node count schedules a
// layout pass after the configured debounce delay. Close runs a pass that
// is still pending so short-lived callers such as CLI commands keep it.
package session

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/metricgraph/pkg/bulk"
	"github.com/matzehuels/metricgraph/pkg/config"
	"github.com/matzehuels/metricgraph/pkg/dag"
	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/graph"
	mgio "github.com/matzehuels/metricgraph/pkg/io"
	"github.com/matzehuels/metricgraph/pkg/layout"
	"github.com/matzehuels/metricgraph/pkg/observability"
	"github.com/matzehuels/metricgraph/pkg/rules"
	"github.com/matzehuels/metricgraph/pkg/store"
)

// Session is an open project. It is safe for concurrent use.
type Session struct {
	mu sync.Mutex

	projectID  string
	cfg        config.Config
	configPath string

	graph     *graph.Graph
	selection *graph.Selection
	store     store.Store
	rules     *rules.Engine
	layout    *layout.Engine
	bulk      *bulk.Coordinator
	auto      *layout.Debouncer

	logger *log.Logger
	newID  func() string

	nodeCount int
	closed    bool
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRules replaces the default rule table.
func WithRules(e *rules.Engine) Option {
	return func(s *Session) { s.rules = e }
}

// WithLayoutEngine replaces the default layout engine, typically to add a cache.
func WithLayoutEngine(e *layout.Engine) Option {
	return func(s *Session) { s.layout = e }
}

// WithIDGenerator replaces the UUID generator for new nodes, edges and copies.
func WithIDGenerator(fn func() string) Option {
	return func(s *Session) { s.newID = fn }
}

// WithConfigPath makes SetLayoutConfig write the project file at path.
func WithConfigPath(path string) Option {
	return func(s *Session) { s.configPath = path }
}

// Open loads projectID from st, or starts an empty canvas if the project
// does not exist yet. cfg must be valid.
func Open(ctx context.Context, st store.Store, projectID string, cfg config.Config, opts ...Option) (*Session, error) {
	if err := errors.ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Session{
		projectID: projectID,
		cfg:       cfg,
		selection: graph.NewSelection(),
		store:     st,
		rules:     rules.Default(),
		logger:    log.Default(),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.layout == nil {
		s.layout = layout.NewEngine(layout.WithLogger(s.logger))
	}

	snap, err := st.Load(ctx, projectID)
	switch {
	case errors.Is(err, errors.ErrCodeProjectNotFound):
		s.graph = graph.New()
		s.logger.Debug("starting empty project", "project", projectID)
	case err != nil:
		return nil, err
	default:
		g, err := graph.FromSnapshot(snap)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInternal, err, "rebuild project %s", projectID)
		}
		s.graph = g
		if cycle := mgio.DataFlowCycle(g); cycle != nil {
			s.logger.Warn("stored data-flow edges contain a cycle", "project", projectID, "cycle", cycle)
		}
	}
	s.nodeCount = s.graph.NodeCount()

	s.bulk = bulk.New(s.graph, s.selection,
		bulk.WithListener(mirror{s}),
		bulk.WithLogger(s.logger),
		bulk.WithIDGenerator(s.newID),
	)
	s.auto = layout.NewDebouncer(cfg.Layout.Debounce.Duration, s.autoLayout)

	s.logger.Debug("session opened", "project", projectID,
		"nodes", s.graph.NodeCount(), "edges", s.graph.EdgeCount())
	return s, nil
}

// ProjectID returns the project this session edits.
func (s *Session) ProjectID() string { return s.projectID }

// Config returns the current project configuration.
func (s *Session) Config() config.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Rules returns the rule engine gating connections.
func (s *Session) Rules() *rules.Engine { return s.rules }

// Close cancels the auto-layout timer. A pass that was still pending runs
// before Close returns. Close does not close the store.
func (s *Session) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeLocked(ctx)
	return nil
}

func (s *Session) closeLocked(ctx context.Context) {
	if s.closed {
		return
	}
	// Stop also reports a timer that fired and is waiting for s.mu; that
	// callback sees closed and leaves the pass to us.
	if s.auto.Stop() {
		if _, err := s.layoutLocked(ctx); err != nil {
			s.logger.Warn("final auto-layout failed", "err", err)
		}
	}
	s.closed = true
}

// =============================================================================
// Reads
// =============================================================================

// Node returns a copy of one node.
func (s *Session) Node(id string) (graph.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Node(id)
}

// Nodes returns the nodes matching f in insertion order.
func (s *Session) Nodes(f graph.Filter) []graph.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Filter(f)
}

// Edges returns every edge in insertion order.
func (s *Session) Edges() []graph.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Edges()
}

// Snapshot returns the whole canvas.
func (s *Session) Snapshot() *graph.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Snapshot(s.projectID)
}

// =============================================================================
// Nodes
// =============================================================================

// AddNode adds n to the canvas and mirrors it to the store. An empty ID is
// replaced with a fresh UUID. The stored node is returned.
func (s *Session) AddNode(ctx context.Context, n graph.Node) (graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.ID == "" {
		n.ID = s.newID()
	}
	if err := errors.ValidateID("node", n.ID); err != nil {
		return graph.Node{}, err
	}
	for _, t := range n.Tags {
		if err := errors.ValidateTag(t); err != nil {
			return graph.Node{}, err
		}
	}
	if err := s.graph.AddNode(n); err != nil {
		return graph.Node{}, graphError(err, "add node %s", n.ID)
	}
	added, _ := s.graph.Node(n.ID)
	if err := s.store.PutNode(ctx, s.projectID, added); err != nil {
		_, _ = s.graph.RemoveNode(n.ID)
		return graph.Node{}, err
	}
	s.structureChanged()
	return added, nil
}

// UpdateNode applies fn to node id and mirrors the result. The node's ID and
// type are fixed.
func (s *Session) UpdateNode(ctx context.Context, id string, fn func(n *graph.Node) error) (graph.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.graph.Node(id)
	if !ok {
		return graph.Node{}, errors.New(errors.ErrCodeNotFound, "node %q not found", id)
	}
	if err := s.graph.UpdateNode(id, fn); err != nil {
		return graph.Node{}, graphError(err, "update node %s", id)
	}
	after, _ := s.graph.Node(id)
	if err := s.store.PutNode(ctx, s.projectID, after); err != nil {
		_ = s.graph.RestoreNode(before)
		return graph.Node{}, err
	}
	return after, nil
}

// MoveNode sets the position of node id.
func (s *Session) MoveNode(ctx context.Context, id string, pos graph.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, ok := s.graph.Node(id)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "node %q not found", id)
	}
	if err := s.graph.MoveNode(id, pos); err != nil {
		return graphError(err, "move node %s", id)
	}
	moved, _ := s.graph.Node(id)
	if err := s.store.PutNode(ctx, s.projectID, moved); err != nil {
		_ = s.graph.MoveNode(id, before.Position)
		return err
	}
	return nil
}

// RemoveNode deletes node id together with its edges. It returns the IDs of
// the edges removed with it.
func (s *Session) RemoveNode(ctx context.Context, id string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.graph.HasNode(id) {
		return nil, errors.New(errors.ErrCodeNotFound, "node %q not found", id)
	}
	if err := s.store.DeleteNode(ctx, s.projectID, id); err != nil {
		return nil, err
	}
	removed, err := s.graph.RemoveNode(id)
	if err != nil {
		return nil, graphError(err, "remove node %s", id)
	}
	s.selection.Remove(append(removed, id)...)
	s.structureChanged()
	return removed, nil
}

// =============================================================================
// Edges
// =============================================================================

// Connect creates an edge from sourceID to targetID. The rule engine picks
// the category from the two node types; a data-flow edge must also keep the
// data-flow edges acyclic. Relationship edges start with the default kind,
// confidence and weight.
//
// Returns an error with code RULE_VIOLATION when no rule covers the pair and
// CYCLE_VIOLATION when a data-flow edge would close a cycle. In both cases
// the graph and the store are unchanged.
func (s *Session) Connect(ctx context.Context, sourceID, targetID string) (graph.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.graph.Node(sourceID)
	if !ok {
		return graph.Edge{}, errors.New(errors.ErrCodeNotFound, "source node %q not found", sourceID)
	}
	tgt, ok := s.graph.Node(targetID)
	if !ok {
		return graph.Edge{}, errors.New(errors.ErrCodeNotFound, "target node %q not found", targetID)
	}

	d := s.rules.Evaluate(src.Type, tgt.Type)
	if !d.Allowed {
		observability.Graph().OnConnection(ctx, "", string(errors.ErrCodeRuleViolation))
		return graph.Edge{}, errors.New(errors.ErrCodeRuleViolation, "%s", d.Reason)
	}
	if d.Category == graph.CategoryDataFlow && dag.WouldCreateCycle(sourceID, targetID, mgio.DataFlowEdges(s.graph)) {
		observability.Graph().OnConnection(ctx, string(d.Category), string(errors.ErrCodeCycleViolation))
		return graph.Edge{}, errors.New(errors.ErrCodeCycleViolation,
			"data-flow edge from %q to %q would create a cycle", src.Title, tgt.Title)
	}

	e := d.Edge(s.newID(), sourceID, targetID)
	if err := s.graph.AddEdge(e); err != nil {
		return graph.Edge{}, errors.Wrap(errors.ErrCodeInvalidEdge, err, "add edge")
	}
	if err := s.store.PutEdge(ctx, s.projectID, e); err != nil {
		_ = s.graph.RemoveEdge(e.ID)
		return graph.Edge{}, err
	}

	observability.Graph().OnConnection(ctx, string(d.Category), "")
	s.logger.Debug("connected", "edge", e.ID, "category", e.Category, "rule", d.Rule)
	return e, nil
}

// RemoveEdge deletes edge id.
func (s *Session) RemoveEdge(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.graph.HasEdge(id) {
		return errors.New(errors.ErrCodeNotFound, "edge %q not found", id)
	}
	if err := s.store.DeleteEdge(ctx, s.projectID, id); err != nil {
		return err
	}
	s.selection.Remove(id)
	return s.graph.RemoveEdge(id)
}

// =============================================================================
// Groups
// =============================================================================

// AddGroup adds a visual group. Members that are not nodes are dropped.
func (s *Session) AddGroup(ctx context.Context, grp graph.Group) (graph.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if grp.ID == "" {
		grp.ID = s.newID()
	}
	if err := s.graph.AddGroup(grp); err != nil {
		return graph.Group{}, graphError(err, "add group %s", grp.ID)
	}
	added, _ := s.graph.Group(grp.ID)
	if err := s.store.PutGroup(ctx, s.projectID, added); err != nil {
		_ = s.graph.RemoveGroup(grp.ID)
		return graph.Group{}, err
	}
	return added, nil
}

// RemoveGroup deletes a group and leaves its members alone.
func (s *Session) RemoveGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.graph.Group(id); !ok {
		return errors.New(errors.ErrCodeNotFound, "group %q not found", id)
	}
	if err := s.store.DeleteGroup(ctx, s.projectID, id); err != nil {
		return err
	}
	return s.graph.RemoveGroup(id)
}

// =============================================================================
// Selection
// =============================================================================

// Select replaces the selection. Every ID must name a node or an edge;
// otherwise the selection is left unchanged.
func (s *Session) Select(ids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		if !s.graph.HasNode(id) && !s.graph.HasEdge(id) {
			return errors.New(errors.ErrCodeNotFound, "cannot select %q: no such node or edge", id)
		}
	}
	s.selection.Set(ids...)
	return nil
}

// Selection returns the selected IDs in selection order.
func (s *Session) Selection() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection.IDs()
}

// ClearSelection empties the selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selection.Clear()
}

// =============================================================================
// Layout
// =============================================================================

// LayoutResult reports a layout pass.
type LayoutResult struct {
	// Moved counts nodes whose position changed.
	Moved int `json:"moved"`
	// Issues lists layout invariants the computed positions violate. When
	// the engine fails every node keeps its position, so Issues describes
	// the positions as they were.
	Issues []string `json:"issues,omitempty"`
}

// Layout recomputes every node position from the graph topology using the
// project's layout settings. Each node is written to the store before it
// moves in memory. If a write fails the pass stops there: nodes placed so
// far keep their new position and the rest keep the old one.
func (s *Session) Layout(ctx context.Context) (LayoutResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.layoutLocked(ctx)
}

func (s *Session) layoutLocked(ctx context.Context) (LayoutResult, error) {
	opts := s.cfg.LayoutOptions()
	nodes := s.graph.Nodes()
	placed := s.layout.Compute(ctx, nodes, s.graph.Edges(), opts)

	var res LayoutResult
	res.Issues = layout.Validate(nodes, placed, opts)
	for i, n := range placed {
		if n.Position == nodes[i].Position {
			continue
		}
		if !n.Position.Finite() {
			return res, graphError(graph.ErrInvalidPosition, "place node %s", n.ID)
		}
		moved, _ := s.graph.Node(n.ID)
		moved.Position = n.Position
		if err := s.store.PutNode(ctx, s.projectID, moved); err != nil {
			return res, err
		}
		if err := s.graph.MoveNode(n.ID, n.Position); err != nil {
			return res, graphError(err, "place node %s", n.ID)
		}
		res.Moved++
	}
	if len(res.Issues) > 0 {
		s.logger.Warn("layout result has issues", "issues", res.Issues)
	}
	s.logger.Debug("layout applied", "direction", opts.Direction, "moved", res.Moved)
	return res, nil
}

// autoLayout is the debouncer callback.
func (s *Session) autoLayout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if _, err := s.layoutLocked(context.Background()); err != nil {
		s.logger.Warn("auto-layout failed", "err", err)
	}
}

// structureChanged schedules an auto-layout pass if the node count moved.
// s.mu must be held.
func (s *Session) structureChanged() {
	n := s.graph.NodeCount()
	if n == s.nodeCount {
		return
	}
	s.nodeCount = n
	if s.cfg.Layout.Auto && !s.closed {
		s.auto.Schedule()
	}
}

// LayoutPending reports whether an auto-layout pass is waiting to run.
func (s *Session) LayoutPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.auto.Pending()
}

// SetLayoutConfig replaces the layout settings. With WithConfigPath the
// whole project configuration is saved.
func (s *Session) SetLayoutConfig(lc config.LayoutConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.cfg
	next.Layout = lc
	if err := next.Validate(); err != nil {
		return err
	}
	if s.configPath != "" {
		if err := config.Save(s.configPath, next); err != nil {
			return err
		}
	}
	if next.Layout.Debounce != s.cfg.Layout.Debounce {
		pending := s.auto.Stop()
		s.auto = layout.NewDebouncer(next.Layout.Debounce.Duration, s.autoLayout)
		if pending && next.Layout.Auto {
			s.auto.Schedule()
		}
	}
	if !next.Layout.Auto {
		s.auto.Stop()
	}
	s.cfg = next
	return nil
}

// graphError maps graph sentinel errors onto error codes.
func graphError(err error, format string, args ...any) error {
	code := errors.ErrCodeInvalidInput
	switch {
	case stderrors.Is(err, graph.ErrNodeNotFound), stderrors.Is(err, graph.ErrEdgeNotFound), stderrors.Is(err, graph.ErrGroupNotFound):
		code = errors.ErrCodeNotFound
	case stderrors.Is(err, graph.ErrDuplicateNodeID), stderrors.Is(err, graph.ErrDuplicateEdgeID), stderrors.Is(err, graph.ErrDuplicateGroupID):
		code = errors.ErrCodeDuplicateID
	}
	return errors.Wrap(code, err, format, args...)
}
