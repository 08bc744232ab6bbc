// Package api serves project canvases over HTTP.
//
// The server keeps one [session.Session] per project, opened on first use,
// and exposes it as a JSON API:
//
//	GET    /health
//	GET    /rules
//	GET    /rules/{nodeType}/{targets,sources}
//	GET    /projects/{projectID}
//	GET    /projects/{projectID}/nodes
//	POST   /projects/{projectID}/nodes
//	GET    /projects/{projectID}/nodes/{nodeID}
//	PATCH  /projects/{projectID}/nodes/{nodeID}
//	PUT    /projects/{projectID}/nodes/{nodeID}/position
//	DELETE /projects/{projectID}/nodes/{nodeID}
//	POST   /projects/{projectID}/edges
//	DELETE /projects/{projectID}/edges/{edgeID}
//	POST   /projects/{projectID}/layout
//	GET    /projects/{projectID}/selection
//	PUT    /projects/{projectID}/selection
//	DELETE /projects/{projectID}/selection
//	POST   /projects/{projectID}/bulk/{update,delete,duplicate,add-tags,remove-tags,export}
//	GET    /projects/{projectID}/bulk/last
//	DELETE /projects/{projectID}/bulk/last
//	GET    /metrics                      (with [WithMetrics])
//
// Errors are returned as {"error": {"code": ..., "message": ...}}. Rejected
// connections (RULE_VIOLATION, CYCLE_VIOLATION) answer 422.
package api

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/metricgraph/pkg/buildinfo"
	"github.com/matzehuels/metricgraph/pkg/errors"
	"github.com/matzehuels/metricgraph/pkg/graph"
	"github.com/matzehuels/metricgraph/pkg/observability"
	"github.com/matzehuels/metricgraph/pkg/rules"
	"github.com/matzehuels/metricgraph/pkg/session"
)

// Opener opens the session for a project.
type Opener func(ctx context.Context, projectID string) (*session.Session, error)

// Server routes HTTP requests to project sessions.
type Server struct {
	open    Opener
	rules   *rules.Engine
	logger  *log.Logger
	metrics *observability.Metrics
	origins []string

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics records request metrics in m and serves m at /metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithCORS allows cross-origin requests from origins. "*" allows any.
func WithCORS(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// New creates a server that opens projects with open.
func New(open Opener, logger *log.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{
		open:     open,
		rules:    rules.Default(),
		logger:   logger,
		sessions: make(map[string]*session.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}
	r.Use(s.logRequests)

	r.Get("/health", s.health)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	r.Get("/rules", s.listRules)
	r.Get("/rules/{nodeType}/targets", s.ruleTargets)
	r.Get("/rules/{nodeType}/sources", s.ruleSources)

	r.Route("/projects/{projectID}", func(r chi.Router) {
		r.Get("/", s.withSession(s.getProject))

		r.Route("/nodes", func(r chi.Router) {
			r.Get("/", s.withSession(s.listNodes))
			r.Post("/", s.withSession(s.createNode))
			r.Get("/{nodeID}", s.withSession(s.getNode))
			r.Patch("/{nodeID}", s.withSession(s.updateNode))
			r.Put("/{nodeID}/position", s.withSession(s.moveNode))
			r.Delete("/{nodeID}", s.withSession(s.deleteNode))
		})

		r.Route("/edges", func(r chi.Router) {
			r.Get("/", s.withSession(s.listEdges))
			r.Post("/", s.withSession(s.createEdge))
			r.Delete("/{edgeID}", s.withSession(s.deleteEdge))
		})

		r.Post("/layout", s.withSession(s.runLayout))

		r.Route("/selection", func(r chi.Router) {
			r.Get("/", s.withSession(s.getSelection))
			r.Put("/", s.withSession(s.setSelection))
			r.Delete("/", s.withSession(s.clearSelection))
		})

		r.Route("/bulk", func(r chi.Router) {
			r.Post("/update", s.withSession(s.bulkUpdate))
			r.Post("/delete", s.withSession(s.bulkDelete))
			r.Post("/duplicate", s.withSession(s.bulkDuplicate))
			r.Post("/add-tags", s.withSession(s.bulkAddTags))
			r.Post("/remove-tags", s.withSession(s.bulkRemoveTags))
			r.Post("/export", s.withSession(s.bulkExport))
			r.Get("/last", s.withSession(s.lastResult))
			r.Delete("/last", s.withSession(s.clearResult))
		})
	})
	return r
}

// Close closes every open session in parallel, flushing pending
// auto-layouts, and returns the first error.
func (s *Server) Close(ctx context.Context) error {
	s.mu.Lock()
	open := s.sessions
	s.sessions = make(map[string]*session.Session)
	s.mu.Unlock()

	var g errgroup.Group
	for id, sess := range open {
		g.Go(func() error {
			if err := sess.Close(ctx); err != nil {
				s.logger.Warn("close session", "project", id, "err", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}

// session returns the open session for projectID, opening it if needed.
func (s *Server) session(ctx context.Context, projectID string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[projectID]; ok {
		return sess, nil
	}
	sess, err := s.open(ctx, projectID)
	if err != nil {
		return nil, err
	}
	s.sessions[projectID] = sess
	s.logger.Info("project opened", "project", projectID)
	return sess, nil
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := s.session(r.Context(), chi.URLParam(r, "projectID"))
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(r.Method, routePattern(r), ww.Status(), time.Since(start))
		}
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

// routePattern is the matched chi pattern, or "unmatched" for 404s.
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, struct {
		Status string         `json:"status"`
		Build  buildinfo.Info `json:"build"`
	}{"ok", buildinfo.Get()})
}

type ruleView struct {
	Name     string   `json:"name"`
	Sources  []string `json:"sources"`
	Targets  []string `json:"targets"`
	Category string   `json:"category"`
	Kind     string   `json:"kind,omitempty"`
}

func (s *Server) listRules(w http.ResponseWriter, r *http.Request) {
	var out []ruleView
	for _, rule := range s.rules.Rules() {
		v := ruleView{Name: rule.Name, Category: string(rule.Category), Kind: string(rule.Kind)}
		for _, t := range rule.Sources {
			v.Sources = append(v.Sources, string(t))
		}
		for _, t := range rule.Targets {
			v.Targets = append(v.Targets, string(t))
		}
		out = append(out, v)
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) ruleTargets(w http.ResponseWriter, r *http.Request) {
	s.ruleNeighbors(w, r, s.rules.ValidTargets)
}

func (s *Server) ruleSources(w http.ResponseWriter, r *http.Request) {
	s.ruleNeighbors(w, r, s.rules.ValidSources)
}

// ruleNeighbors answers with the node types fn allows next to the type in
// the URL.
func (s *Server) ruleNeighbors(w http.ResponseWriter, r *http.Request, fn func(graph.NodeType) []graph.NodeType) {
	raw := chi.URLParam(r, "nodeType")
	t, err := graph.ParseNodeType(raw)
	if err != nil {
		s.respondError(w, r, invalid("unknown node type %q", raw))
		return
	}
	out := []string{}
	for _, nt := range fn(t) {
		out = append(out, string(nt))
	}
	respondJSON(w, http.StatusOK, out)
}

// =============================================================================
// Responses
// =============================================================================

type errorBody struct {
	Error struct {
		Code    errors.Code `json:"code"`
		Message string      `json:"message"`
	} `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	if code == "" {
		code = errors.ErrCodeInternal
	}
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}

	var body errorBody
	body.Error.Code = code
	body.Error.Message = strings.TrimPrefix(err.Error(), string(code)+": ")
	respondJSON(w, status, body)
}

func statusFor(code errors.Code) int {
	switch code {
	case errors.ErrCodeNotFound, errors.ErrCodeProjectNotFound:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidFormat, errors.ErrCodeInvalidConfig, errors.ErrCodeInvalidEdge:
		return http.StatusBadRequest
	case errors.ErrCodeDuplicateID:
		return http.StatusConflict
	case errors.ErrCodeRuleViolation, errors.ErrCodeCycleViolation, errors.ErrCodeBulkItemFailed:
		return http.StatusUnprocessableEntity
	case errors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "invalid request body")
	}
	return validateRequest(v)
}

// decodeOptional is decode for endpoints whose body may be empty.
func decodeOptional(r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := decode(r, v)
	if stderrors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func invalid(format string, args ...any) error {
	return errors.New(errors.ErrCodeInvalidInput, format, args...)
}

func notFound(format string, args ...any) error {
	return errors.New(errors.ErrCodeNotFound, format, args...)
}
