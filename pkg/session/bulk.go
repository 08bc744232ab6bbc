package session

import (
	"context"

	"github.com/matzehuels/metricgraph/pkg/bulk"
	"github.com/matzehuels/metricgraph/pkg/graph"
	mgio "github.com/matzehuels/metricgraph/pkg/io"
)

// Bulk runs bulk operations under the session lock. A nil ID list means the
// current selection.
type Bulk struct {
	s *Session
}

// Bulk returns the session's bulk operation surface.
func (s *Session) Bulk() Bulk { return Bulk{s: s} }

// Update patches nodes or edges.
func (b Bulk) Update(ctx context.Context, ids []string, p bulk.Patch) bulk.Result {
	return b.do(func(c *bulk.Coordinator) bulk.Result { return c.Update(ctx, ids, p) })
}

// Delete removes nodes, then edges, and clears the selection.
func (b Bulk) Delete(ctx context.Context, ids []string) bulk.Result {
	return b.do(func(c *bulk.Coordinator) bulk.Result { return c.Delete(ctx, ids) })
}

// Duplicate copies nodes. Result.UpdatedIDs holds the new IDs.
func (b Bulk) Duplicate(ctx context.Context, ids []string) bulk.Result {
	return b.do(func(c *bulk.Coordinator) bulk.Result { return c.Duplicate(ctx, ids) })
}

// AddTags adds tags to nodes.
func (b Bulk) AddTags(ctx context.Context, ids, tags []string) bulk.Result {
	return b.do(func(c *bulk.Coordinator) bulk.Result { return c.AddTags(ctx, ids, tags) })
}

// RemoveTags removes tags from nodes.
func (b Bulk) RemoveTags(ctx context.Context, ids, tags []string) bulk.Result {
	return b.do(func(c *bulk.Coordinator) bulk.Result { return c.RemoveTags(ctx, ids, tags) })
}

// Export serializes nodes and the edges touching them.
func (b Bulk) Export(ctx context.Context, ids []string, f mgio.Format) ([]byte, bulk.Result) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	return b.s.bulk.Export(ctx, ids, f)
}

// IsProcessing reports whether a bulk operation is running.
func (b Bulk) IsProcessing() bool { return b.s.bulk.IsProcessing() }

// LastResult returns the most recent result until ClearResult.
func (b Bulk) LastResult() (bulk.Result, bool) { return b.s.bulk.LastResult() }

// ClearResult forgets the most recent result.
func (b Bulk) ClearResult() { b.s.bulk.ClearResult() }

func (b Bulk) do(fn func(c *bulk.Coordinator) bulk.Result) bulk.Result {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	r := fn(b.s.bulk)
	b.s.structureChanged()
	return r
}

// mirror forwards bulk changes to the store. It runs with the
// session lock held.
type mirror struct{ s *Session }

func (m mirror) NodeSaved(ctx context.Context, n graph.Node) error {
	return m.s.store.PutNode(ctx, m.s.projectID, n)
}

func (m mirror) NodeDeleted(ctx context.Context, id string) error {
	return m.s.store.DeleteNode(ctx, m.s.projectID, id)
}

func (m mirror) EdgeSaved(ctx context.Context, e graph.Edge) error {
	return m.s.store.PutEdge(ctx, m.s.projectID, e)
}

func (m mirror) EdgeDeleted(ctx context.Context, id string) error {
	return m.s.store.DeleteEdge(ctx, m.s.projectID, id)
}

var _ bulk.Listener = mirror{}
