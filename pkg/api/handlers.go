package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/metricgraph/pkg/bulk"
	"github.com/matzehuels/metricgraph/pkg/graph"
	mgio "github.com/matzehuels/metricgraph/pkg/io"
	"github.com/matzehuels/metricgraph/pkg/session"
)

// =============================================================================
// Project and nodes
// =============================================================================

type projectView struct {
	*graph.Snapshot
	Direction     string `json:"direction"`
	AutoLayout    bool   `json:"auto_layout"`
	LayoutPending bool   `json:"layout_pending"`
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	lc := sess.Config().Layout
	respondJSON(w, http.StatusOK, projectView{
		Snapshot:      sess.Snapshot(),
		Direction:     lc.Direction,
		AutoLayout:    lc.Auto,
		LayoutPending: sess.LayoutPending(),
	})
}

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query()
	f := graph.Filter{
		Tag:      q.Get("tag"),
		Owner:    q.Get("owner"),
		Category: q.Get("category"),
		Query:    q.Get("q"),
	}
	for _, t := range q["type"] {
		nt, err := graph.ParseNodeType(t)
		if err != nil {
			s.respondError(w, r, invalid("unknown node type %q", t))
			return
		}
		f.Types = append(f.Types, nt)
	}
	nodes := sess.Nodes(f)
	if nodes == nil {
		nodes = []graph.Node{}
	}
	respondJSON(w, http.StatusOK, nodes)
}

type createNodeRequest struct {
	ID          string         `json:"id,omitempty"`
	Type        string         `json:"type" validate:"required"`
	Title       string         `json:"title" validate:"max=500"`
	Description string         `json:"description,omitempty"`
	Position    graph.Position `json:"position"`
	Category    string         `json:"category,omitempty"`
	Tags        []string       `json:"tags,omitempty" validate:"dive,required,max=64"`
	Owner       string         `json:"owner,omitempty"`
	Assignees   []string       `json:"assignees,omitempty" validate:"dive,required"`
	Data        map[string]any `json:"data,omitempty"`
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req createNodeRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	typ, err := graph.ParseNodeType(req.Type)
	if err != nil {
		s.respondError(w, r, invalid("unknown node type %q", req.Type))
		return
	}
	n, err := sess.AddNode(r.Context(), graph.Node{
		ID:          req.ID,
		Type:        typ,
		Title:       req.Title,
		Description: req.Description,
		Position:    req.Position,
		Category:    req.Category,
		Tags:        req.Tags,
		Owner:       req.Owner,
		Assignees:   req.Assignees,
		Data:        req.Data,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, n)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id := chi.URLParam(r, "nodeID")
	n, ok := sess.Node(id)
	if !ok {
		s.respondError(w, r, notFound("node %q not found", id))
		return
	}
	respondJSON(w, http.StatusOK, n)
}

// updateNodeRequest lists editable node fields. Absent fields are kept.
type updateNodeRequest struct {
	Title       *string        `json:"title,omitempty" validate:"omitnil,max=500"`
	Description *string        `json:"description,omitempty"`
	Category    *string        `json:"category,omitempty"`
	Owner       *string        `json:"owner,omitempty"`
	Tags        []string       `json:"tags,omitempty" validate:"dive,required,max=64"`
	Assignees   []string       `json:"assignees,omitempty" validate:"dive,required"`
	Data        map[string]any `json:"data,omitempty"`
}

func (s *Server) updateNode(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req updateNodeRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	n, err := sess.UpdateNode(r.Context(), chi.URLParam(r, "nodeID"), func(n *graph.Node) error {
		if req.Title != nil {
			n.Title = *req.Title
		}
		if req.Description != nil {
			n.Description = *req.Description
		}
		if req.Category != nil {
			n.Category = *req.Category
		}
		if req.Owner != nil {
			n.Owner = *req.Owner
		}
		if req.Tags != nil {
			n.Tags = req.Tags
		}
		if req.Assignees != nil {
			n.Assignees = req.Assignees
		}
		if req.Data != nil {
			n.Data = req.Data
		}
		return nil
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (s *Server) moveNode(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var pos graph.Position
	if err := decode(r, &pos); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := sess.MoveNode(r.Context(), chi.URLParam(r, "nodeID"), pos); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	removed, err := sess.RemoveNode(r.Context(), chi.URLParam(r, "nodeID"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if removed == nil {
		removed = []string{}
	}
	respondJSON(w, http.StatusOK, map[string][]string{"removed_edges": removed})
}

// =============================================================================
// Edges
// =============================================================================

func (s *Server) listEdges(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	edges := sess.Edges()
	if edges == nil {
		edges = []graph.Edge{}
	}
	respondJSON(w, http.StatusOK, edges)
}

type connectRequest struct {
	SourceID string `json:"source_id" validate:"required"`
	TargetID string `json:"target_id" validate:"required"`
}

// createEdge handles a connection drag. The category is decided by the
// rule engine, never by the caller.
func (s *Server) createEdge(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req connectRequest
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	e, err := sess.Connect(r.Context(), req.SourceID, req.TargetID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}

func (s *Server) deleteEdge(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.RemoveEdge(r.Context(), chi.URLParam(r, "edgeID")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Layout and selection
// =============================================================================

func (s *Server) runLayout(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	res, err := sess.Layout(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

type selectionBody struct {
	IDs []string `json:"ids" validate:"dive,required"`
}

func (s *Server) getSelection(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ids := sess.Selection()
	if ids == nil {
		ids = []string{}
	}
	respondJSON(w, http.StatusOK, selectionBody{IDs: ids})
}

func (s *Server) setSelection(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var req selectionBody
	if err := decode(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := sess.Select(req.IDs...); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.getSelection(w, r, sess)
}

func (s *Server) clearSelection(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Bulk
// =============================================================================

// bulkRequest carries the target IDs. Omitting ids targets the selection.
type bulkRequest struct {
	IDs   []string   `json:"ids" validate:"dive,required"`
	Patch bulk.Patch `json:"patch"`
	Tags  []string   `json:"tags" validate:"dive,required,max=64"`
}

func (s *Server) bulkOp(fn func(r *http.Request, b session.Bulk, req bulkRequest) bulk.Result) sessionHandler {
	return func(w http.ResponseWriter, r *http.Request, sess *session.Session) {
		var req bulkRequest
		if err := decodeOptional(r, &req); err != nil {
			s.respondError(w, r, err)
			return
		}
		res := fn(r, sess.Bulk(), req)
		respondJSON(w, http.StatusOK, res)
	}
}

func (s *Server) bulkUpdate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.bulkOp(func(r *http.Request, b session.Bulk, req bulkRequest) bulk.Result {
		return b.Update(r.Context(), req.IDs, req.Patch)
	})(w, r, sess)
}

func (s *Server) bulkDelete(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.bulkOp(func(r *http.Request, b session.Bulk, req bulkRequest) bulk.Result {
		return b.Delete(r.Context(), req.IDs)
	})(w, r, sess)
}

func (s *Server) bulkDuplicate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.bulkOp(func(r *http.Request, b session.Bulk, req bulkRequest) bulk.Result {
		return b.Duplicate(r.Context(), req.IDs)
	})(w, r, sess)
}

func (s *Server) bulkAddTags(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.bulkOp(func(r *http.Request, b session.Bulk, req bulkRequest) bulk.Result {
		return b.AddTags(r.Context(), req.IDs, req.Tags)
	})(w, r, sess)
}

func (s *Server) bulkRemoveTags(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.bulkOp(func(r *http.Request, b session.Bulk, req bulkRequest) bulk.Result {
		return b.RemoveTags(r.Context(), req.IDs, req.Tags)
	})(w, r, sess)
}

// bulkExport answers with the export document as a download. The format
// comes from the ?format= query parameter and defaults to json.
func (s *Server) bulkExport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	name := r.URL.Query().Get("format")
	if name == "" {
		name = string(mgio.FormatJSON)
	}
	f, err := mgio.ParseFormat(name)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var req bulkRequest
	if err := decodeOptional(r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}

	data, res := sess.Bulk().Export(r.Context(), req.IDs, f)
	if !res.Success {
		s.respondError(w, r, res.Err())
		return
	}
	contentType := "application/json"
	if f == mgio.FormatCSV {
		contentType = "text/csv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", mgio.FileName(sess.ProjectID(), f, time.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) lastResult(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	res, ok := sess.Bulk().LastResult()
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) clearResult(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	sess.Bulk().ClearResult()
	w.WriteHeader(http.StatusNoContent)
}
