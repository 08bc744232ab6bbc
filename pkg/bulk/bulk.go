// Package bulk applies one logical operation across many nodes or edges and
// aggregates per-item outcomes into a single [Result].
//
// Operations take explicit IDs; a nil ID list means "the current
// selection". Items are processed one at a time and a failing item never
// stops the loop: its error is recorded and the next item is tried.
//
// Node-only operations (Duplicate, AddTags, RemoveTags, Export) skip edge
// IDs silently, since a rubber-band selection usually contains both. Update
// is explicit about its target, so an ID of the other kind is an error there.
package bulk

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"slices"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/graph"
	mgio "github.com/matzehuels/metricgraph/pkg/io"
	"github.com/matzehuels/metricgraph/pkg/observability"
)

// Duplicate placement.
const (
	CopySuffix  = " (copy)"
	CopyOffsetX = 40.0
	CopyOffsetY = 40.0
)

// Operation names, as reported to hooks and logs.
const (
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpDuplicate  = "duplicate"
	OpAddTags    = "add-tags"
	OpRemoveTags = "remove-tags"
	OpExport     = "export"
)

// Result aggregates the outcome of one bulk operation.
type Result struct {
	Op        string   `json:"op"`
	Success   bool     `json:"success"`
	Processed int      `json:"processed"`
	Errors    []string `json:"errors,omitempty"`
	// UpdatedIDs lists the items written by the operation. For Duplicate
	// these are the IDs of the new copies.
	UpdatedIDs []string `json:"updated_ids,omitempty"`
}

// Err summarizes a failed result as a BULK_ITEM_FAILED error, or returns nil.
func (r Result) Err() error {
	if r.Success {
		return nil
	}
	return errors.New(errors.ErrCodeBulkItemFailed, "%s: %d item(s) failed: %s",
		r.Op, len(r.Errors), r.Errors[0])
}

// Listener is told about every change so it can mirror the graph elsewhere,
// typically to a store. A listener error marks the item failed and the item
// is left in the graph as it was before the operation. Deletes are reported
// before the graph is touched.
type Listener interface {
	NodeSaved(ctx context.Context, n graph.Node) error
	NodeDeleted(ctx context.Context, id string) error
	EdgeSaved(ctx context.Context, e graph.Edge) error
	EdgeDeleted(ctx context.Context, id string) error
}

// Coordinator runs bulk operations against one graph and its selection.
// Like the graph it is not safe for concurrent use; the owning session
// serializes calls. IsProcessing and LastResult may be read concurrently.
type Coordinator struct {
	graph     *graph.Graph
	selection *graph.Selection
	listener  Listener
	logger    *log.Logger
	newID     func() string
	now       func() time.Time

	processing atomic.Bool
	last       atomic.Pointer[Result]
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithListener mirrors committed changes to l.
func WithListener(l Listener) Option {
	return func(c *Coordinator) { c.listener = l }
}

// WithLogger sets the logger. Defaults to log.Default().
func WithLogger(l *log.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithIDGenerator replaces the UUID generator used for duplicates.
func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) { c.newID = fn }
}

// New creates a coordinator over g and sel. A nil sel gets an empty selection.
func New(g *graph.Graph, sel *graph.Selection, opts ...Option) *Coordinator {
	if sel == nil {
		sel = &graph.Selection{}
	}
	c := &Coordinator{
		graph:     g,
		selection: sel,
		logger:    log.Default(),
		newID:     uuid.NewString,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsProcessing reports whether an operation is running.
func (c *Coordinator) IsProcessing() bool { return c.processing.Load() }

// LastResult returns the result of the most recent operation until it is
// cleared.
func (c *Coordinator) LastResult() (Result, bool) {
	r := c.last.Load()
	if r == nil {
		return Result{}, false
	}
	return *r, true
}

// ClearResult forgets the last result.
func (c *Coordinator) ClearResult() { c.last.Store(nil) }

// run brackets an operation: it resolves the IDs, flips the processing
// flag, and records the result. fn may receive an empty ID list.
func (c *Coordinator) run(ctx context.Context, op string, ids []string, fn func(ids []string, r *Result)) Result {
	c.processing.Store(true)
	start := time.Now()

	if ids == nil {
		ids = c.selection.IDs()
	}
	r := Result{Op: op}
	fn(ids, &r)
	r.Success = len(r.Errors) == 0

	c.last.Store(&r)
	c.processing.Store(false)

	observability.Graph().OnBulkComplete(ctx, op, r.Processed, len(r.Errors), time.Since(start))
	if r.Success {
		c.logger.Debug("bulk operation complete", "op", op, "processed", r.Processed)
	} else {
		c.logger.Warn("bulk operation had failures", "op", op, "processed", r.Processed, "failed", len(r.Errors))
	}
	return r
}

func (r *Result) fail(id string, err error) {
	r.Errors = append(r.Errors, fmt.Sprintf("%s: %v", id, err))
}

func (r *Result) ok(id string) {
	r.Processed++
	r.UpdatedIDs = append(r.UpdatedIDs, id)
}

// errUnknownItem marks an ID that is neither a node nor an edge.
var errUnknownItem = fmt.Errorf("no such node or edge")

// =============================================================================
// Update
// =============================================================================

// Target selects what an update patches.
type Target string

// Update targets.
const (
	TargetNodes Target = "nodes"
	TargetEdges Target = "edges"
)

// NodePatch lists node fields to overwrite. Nil fields are left alone.
type NodePatch struct {
	Category  *string  `json:"category,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Owner     *string  `json:"owner,omitempty"`
	Assignees []string `json:"assignees,omitempty"`
}

// EdgePatch lists relationship attributes to overwrite. Nil fields are left
// alone. It only applies to relationship edges.
type EdgePatch struct {
	Kind       *graph.RelationshipKind `json:"kind,omitempty"`
	Confidence *graph.Confidence       `json:"confidence,omitempty"`
	Weight     *float64                `json:"weight,omitempty"`
}

// Patch is the argument of Update.
type Patch struct {
	Target Target    `json:"target"`
	Node   NodePatch `json:"node"`
	Edge   EdgePatch `json:"edge"`
}

// Update applies patch to every item in ids.
func (c *Coordinator) Update(ctx context.Context, ids []string, patch Patch) Result {
	return c.run(ctx, OpUpdate, ids, func(ids []string, r *Result) {
		if len(ids) == 0 {
			return
		}
		switch patch.Target {
		case TargetNodes:
			if err := patch.Node.validate(); err != nil {
				r.Errors = append(r.Errors, errors.UserMessage(err))
				return
			}
			for _, id := range ids {
				c.updateNode(ctx, id, patch.Node, r)
			}
		case TargetEdges:
			if err := patch.Edge.validate(); err != nil {
				r.Errors = append(r.Errors, errors.UserMessage(err))
				return
			}
			for _, id := range ids {
				c.updateEdge(ctx, id, patch.Edge, r)
			}
		default:
			r.Errors = append(r.Errors, fmt.Sprintf("unknown update target %q", patch.Target))
		}
	})
}

func (p NodePatch) validate() error {
	for _, t := range p.Tags {
		if err := errors.ValidateTag(t); err != nil {
			return err
		}
	}
	return nil
}

func (p EdgePatch) validate() error {
	if p.Kind != nil && !p.Kind.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "unknown relationship kind %q", *p.Kind)
	}
	if p.Confidence != nil && !p.Confidence.Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "unknown confidence %q", *p.Confidence)
	}
	if p.Weight != nil && (math.IsNaN(*p.Weight) || math.IsInf(*p.Weight, 0)) {
		return errors.New(errors.ErrCodeInvalidInput, "weight must be a finite number")
	}
	return nil
}

func (c *Coordinator) updateNode(ctx context.Context, id string, p NodePatch, r *Result) {
	if !c.graph.HasNode(id) {
		if c.graph.HasEdge(id) {
			r.fail(id, fmt.Errorf("is an edge, not a node"))
		} else {
			r.fail(id, graph.ErrNodeNotFound)
		}
		return
	}
	before, _ := c.graph.Node(id)
	err := c.graph.UpdateNode(id, func(n *graph.Node) error {
		if p.Category != nil {
			n.Category = *p.Category
		}
		if p.Tags != nil {
			n.Tags = dedupe(p.Tags)
		}
		if p.Owner != nil {
			n.Owner = *p.Owner
		}
		if p.Assignees != nil {
			n.Assignees = dedupe(p.Assignees)
		}
		return nil
	})
	if err != nil {
		r.fail(id, err)
		return
	}
	c.commitNode(ctx, id, r, func() error { return c.graph.RestoreNode(before) })
}

func (c *Coordinator) updateEdge(ctx context.Context, id string, p EdgePatch, r *Result) {
	e, ok := c.graph.Edge(id)
	if !ok {
		if c.graph.HasNode(id) {
			r.fail(id, fmt.Errorf("is a node, not an edge"))
		} else {
			r.fail(id, graph.ErrEdgeNotFound)
		}
		return
	}
	if !e.IsRelationship() {
		r.fail(id, fmt.Errorf("%s edge has no relationship attributes", e.Category))
		return
	}
	err := c.graph.UpdateEdge(id, func(e *graph.Edge) error {
		if p.Kind != nil {
			e.Kind = *p.Kind
		}
		if p.Confidence != nil {
			e.Confidence = *p.Confidence
		}
		if p.Weight != nil {
			e.Weight = *p.Weight
		}
		return nil
	})
	if err != nil {
		r.fail(id, err)
		return
	}
	updated, _ := c.graph.Edge(id)
	if c.listener != nil {
		if err := c.listener.EdgeSaved(ctx, updated); err != nil {
			c.undo(id, func() error { return c.graph.RestoreEdge(e) })
			r.fail(id, err)
			return
		}
	}
	r.ok(id)
}

// commitNode mirrors a node that changed in the graph and counts it. If the
// listener refuses the node, undo reverts the graph.
func (c *Coordinator) commitNode(ctx context.Context, id string, r *Result, undo func() error) {
	n, _ := c.graph.Node(id)
	if c.listener != nil {
		if err := c.listener.NodeSaved(ctx, n); err != nil {
			c.undo(id, undo)
			r.fail(id, err)
			return
		}
	}
	r.ok(id)
}

func (c *Coordinator) undo(id string, fn func() error) {
	if err := fn(); err != nil {
		c.logger.Error("undo failed", "id", id, "err", err)
	}
}

// =============================================================================
// Delete
// =============================================================================

// Delete removes every node in ids, then every edge, and finally clears the
// selection whatever the outcome. An edge already removed because one of
// its endpoints was deleted counts as processed.
func (c *Coordinator) Delete(ctx context.Context, ids []string) Result {
	defer c.selection.Clear()

	return c.run(ctx, OpDelete, ids, func(ids []string, r *Result) {
		var nodes, edges, unknown []string
		for _, id := range ids {
			switch {
			case c.graph.HasNode(id):
				nodes = append(nodes, id)
			case c.graph.HasEdge(id):
				edges = append(edges, id)
			default:
				unknown = append(unknown, id)
			}
		}

		cascaded := make(map[string]bool)
		for _, id := range nodes {
			if c.listener != nil {
				if err := c.listener.NodeDeleted(ctx, id); err != nil {
					r.fail(id, err)
					continue
				}
			}
			removed, err := c.graph.RemoveNode(id)
			if err != nil {
				r.fail(id, err)
				continue
			}
			for _, eid := range removed {
				cascaded[eid] = true
			}
			r.ok(id)
		}

		for _, id := range edges {
			if cascaded[id] {
				r.ok(id)
				continue
			}
			if c.listener != nil {
				if err := c.listener.EdgeDeleted(ctx, id); err != nil {
					r.fail(id, err)
					continue
				}
			}
			if err := c.graph.RemoveEdge(id); err != nil {
				r.fail(id, err)
				continue
			}
			r.ok(id)
		}

		for _, id := range unknown {
			r.fail(id, errUnknownItem)
		}
	})
}

// =============================================================================
// Duplicate
// =============================================================================

// Duplicate copies every node in ids with a fresh ID, the title suffixed with
// CopySuffix and the position shifted by (CopyOffsetX, CopyOffsetY). Edges
// are never copied. UpdatedIDs holds the IDs of the copies.
func (c *Coordinator) Duplicate(ctx context.Context, ids []string) Result {
	return c.run(ctx, OpDuplicate, ids, func(ids []string, r *Result) {
		for _, id := range ids {
			src, ok := c.graph.Node(id)
			if !ok {
				if !c.graph.HasEdge(id) {
					r.fail(id, graph.ErrNodeNotFound)
				}
				continue
			}

			cp := src.Clone()
			cp.ID = c.newID()
			cp.Title = src.Title + CopySuffix
			cp.Position = src.Position.Offset(CopyOffsetX, CopyOffsetY)
			cp.CreatedAt = time.Time{}
			cp.UpdatedAt = time.Time{}
			if err := c.graph.AddNode(cp); err != nil {
				r.fail(id, err)
				continue
			}
			c.commitNode(ctx, cp.ID, r, func() error {
				_, err := c.graph.RemoveNode(cp.ID)
				return err
			})
		}
	})
}

// =============================================================================
// Tags
// =============================================================================

// AddTags adds tags to every node in ids. Tags a node already carries are
// left as they are, so repeating the call changes nothing.
func (c *Coordinator) AddTags(ctx context.Context, ids []string, tags []string) Result {
	return c.retag(ctx, OpAddTags, ids, tags, func(cur []string) []string {
		out := slices.Clone(cur)
		for _, t := range tags {
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
		return out
	})
}

// RemoveTags removes tags from every node in ids. Removing a tag a node does
// not carry is not an error.
func (c *Coordinator) RemoveTags(ctx context.Context, ids []string, tags []string) Result {
	return c.retag(ctx, OpRemoveTags, ids, tags, func(cur []string) []string {
		return slices.DeleteFunc(slices.Clone(cur), func(t string) bool { return slices.Contains(tags, t) })
	})
}

func (c *Coordinator) retag(ctx context.Context, op string, ids, tags []string, next func([]string) []string) Result {
	return c.run(ctx, op, ids, func(ids []string, r *Result) {
		if len(ids) == 0 {
			return
		}
		if len(tags) == 0 {
			r.Errors = append(r.Errors, "no tags given")
			return
		}
		for _, t := range tags {
			if err := errors.ValidateTag(t); err != nil {
				r.Errors = append(r.Errors, errors.UserMessage(err))
				return
			}
		}

		for _, id := range ids {
			n, ok := c.graph.Node(id)
			if !ok {
				if !c.graph.HasEdge(id) {
					r.fail(id, graph.ErrNodeNotFound)
				}
				continue
			}
			tagged := next(n.Tags)
			if slices.Equal(tagged, n.Tags) {
				r.Processed++
				continue
			}
			if err := c.graph.UpdateNode(id, func(n *graph.Node) error {
				n.Tags = tagged
				return nil
			}); err != nil {
				r.fail(id, err)
				continue
			}
			c.commitNode(ctx, id, r, func() error { return c.graph.RestoreNode(n) })
		}
	})
}

// =============================================================================
// Export
// =============================================================================

// Export serializes the nodes in ids plus every edge touching one of them.
// It never modifies the graph.
func (c *Coordinator) Export(ctx context.Context, ids []string, f mgio.Format) ([]byte, Result) {
	var buf bytes.Buffer
	r := c.run(ctx, OpExport, ids, func(ids []string, r *Result) {
		var nodes []graph.Node
		var nodeIDs []string
		for _, id := range ids {
			n, ok := c.graph.Node(id)
			if !ok {
				if !c.graph.HasEdge(id) {
					r.fail(id, graph.ErrNodeNotFound)
				}
				continue
			}
			nodes = append(nodes, n)
			nodeIDs = append(nodeIDs, id)
			r.Processed++
		}

		if err := mgio.WriteExport(&buf, f, nodes, c.graph.EdgesTouching(nodeIDs), c.now()); err != nil {
			r.Errors = append(r.Errors, errors.UserMessage(err))
		}
	})
	return buf.Bytes(), r
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}
