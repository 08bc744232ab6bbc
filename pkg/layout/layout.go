package layout

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/metricgraph/pkg/cache"
	"github.com/matzehuels/metricgraph/pkg/graph"
	"github.com/matzehuels/metricgraph/pkg/observability"
)

// Direction is the overall flow direction of the layered drawing.
type Direction string

// Flow directions. The values double as Graphviz rankdir values.
const (
	TopToBottom Direction = "TB"
	BottomToTop Direction = "BT"
	LeftToRight Direction = "LR"
	RightToLeft Direction = "RL"
)

// ParseDirection accepts both the short rankdir form ("LR") and the long
// form ("left-to-right"), case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tb", "top-to-bottom":
		return TopToBottom, nil
	case "bt", "bottom-to-top":
		return BottomToTop, nil
	case "lr", "left-to-right":
		return LeftToRight, nil
	case "rl", "right-to-left":
		return RightToLeft, nil
	}
	return "", fmt.Errorf("unknown layout direction %q", s)
}

// Layout constants, in canvas units.
const (
	DefaultNodeWidth  = 280
	DefaultNodeHeight = 160
	DefaultRankSep    = 120
	DefaultNodeSep    = 60
	DefaultMargin     = 40

	// MinCenterDistance is the overlap threshold used by Validate: two node
	// centers closer than this on both axes count as overlapping.
	MinCenterDistance = 10
)

// Options configures a layout pass. Zero-valued fields other than Margin
// take the defaults; a zero Margin means no margin.
type Options struct {
	Direction  Direction
	NodeWidth  float64
	NodeHeight float64
	RankSep    float64
	NodeSep    float64
	Margin     float64
}

// DefaultOptions returns top-to-bottom options with the default spacing.
func DefaultOptions() Options {
	return Options{Margin: DefaultMargin}.withDefaults()
}

func (o Options) withDefaults() Options {
	if o.Direction == "" {
		o.Direction = TopToBottom
	}
	if o.NodeWidth <= 0 {
		o.NodeWidth = DefaultNodeWidth
	}
	if o.NodeHeight <= 0 {
		o.NodeHeight = DefaultNodeHeight
	}
	if o.RankSep <= 0 {
		o.RankSep = DefaultRankSep
	}
	if o.NodeSep <= 0 {
		o.NodeSep = DefaultNodeSep
	}
	if o.Margin < 0 {
		o.Margin = 0
	}
	return o
}

// Engine computes layered layouts with Graphviz's dot algorithm.
// An Engine is safe for concurrent use if its cache is.
type Engine struct {
	logger *log.Logger
	cache  cache.Cache
	keyer  cache.Keyer
	render renderFunc
}

// renderFunc turns DOT source into Graphviz "plain" output.
type renderFunc func(ctx context.Context, dot string) ([]byte, error)

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the logger used for warnings. Defaults to log.Default().
func WithLogger(l *log.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithCache caches computed positions. A nil keyer uses the default keyer.
func WithCache(c cache.Cache, k cache.Keyer) EngineOption {
	return func(e *Engine) {
		e.cache = c
		if k == nil {
			k = cache.NewDefaultKeyer()
		}
		e.keyer = k
	}
}

// NewEngine creates a layout engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger: log.Default(),
		cache:  cache.NewNullCache(),
		keyer:  cache.NewDefaultKeyer(),
		render: renderPlain,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Compute returns a copy of nodes with positions assigned by a layered
// layout of the graph formed by nodes and edges.
//
// Compute never fails. An empty node list is returned unchanged. Edges with
// a missing endpoint are skipped with a warning. If the underlying
// computation fails, including by panicking, the failure is logged and the
// original nodes are returned as they were, so callers should treat an
// unchanged result as a failed pass. A node the algorithm did not place keeps
// its original position.
func (e *Engine) Compute(ctx context.Context, nodes []graph.Node, edges []graph.Edge, opts Options) (result []graph.Node) {
	if len(nodes) == 0 {
		return nodes
	}
	opts = opts.withDefaults()

	start := time.Now()
	observability.Layout().OnLayoutStart(ctx, string(opts.Direction), len(nodes))

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("layout panicked: %v", r)
			result = nodes
		}
		if err != nil {
			e.logger.Warn("layout failed, keeping original positions", "nodes", len(nodes), "err", err)
		}
		observability.Layout().OnLayoutComplete(ctx, string(opts.Direction), len(nodes), time.Since(start), err)
	}()

	positions, err := e.Positions(ctx, nodes, edges, opts)
	if err != nil {
		return nodes
	}

	result = make([]graph.Node, len(nodes))
	for i, n := range nodes {
		n = n.Clone()
		if pos, ok := positions[n.ID]; ok {
			n.Position = pos
		} else {
			e.logger.Warn("no position computed, keeping original", "node", n.ID)
		}
		result[i] = n
	}
	return result
}

// Positions runs the layered layout and returns the top-left position of
// every node it placed. Unlike Compute it reports failures to the caller.
func (e *Engine) Positions(ctx context.Context, nodes []graph.Node, edges []graph.Edge, opts Options) (map[string]graph.Position, error) {
	opts = opts.withDefaults()
	if len(nodes) == 0 {
		return map[string]graph.Position{}, nil
	}

	p, skipped, err := newProblem(nodes, edges)
	if err != nil {
		return nil, err
	}
	for _, id := range skipped {
		e.logger.Warn("skipping edge with missing endpoint", "edge", id)
		observability.Layout().OnEdgeSkipped(ctx, id)
	}

	key := e.keyer.LayoutKey(p.fingerprint(), keyOpts(opts))
	if data, ok, _ := e.cache.Get(ctx, key); ok {
		var cached map[string]graph.Position
		if err := json.Unmarshal(data, &cached); err == nil {
			observability.Cache().OnCacheHit(ctx, "layout")
			return cached, nil
		}
	}
	observability.Cache().OnCacheMiss(ctx, "layout")

	out, err := e.render(ctx, p.dot(opts))
	if err != nil {
		return nil, err
	}
	plain, err := parsePlain(out)
	if err != nil {
		return nil, err
	}
	positions := p.positions(plain, opts)

	if data, err := json.Marshal(positions); err == nil {
		if err := e.cache.Set(ctx, key, data, cache.DefaultLayoutTTL); err != nil {
			e.logger.Debug("layout cache write failed", "err", err)
		} else {
			observability.Cache().OnCacheSet(ctx, "layout", len(data))
		}
	}
	return positions, nil
}

func keyOpts(o Options) cache.LayoutKeyOpts {
	return cache.LayoutKeyOpts{
		Direction:  string(o.Direction),
		NodeWidth:  o.NodeWidth,
		NodeHeight: o.NodeHeight,
		RankSep:    o.RankSep,
		NodeSep:    o.NodeSep,
		Margin:     o.Margin,
	}
}
