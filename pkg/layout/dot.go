package layout

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/metricgraph/pkg/cache"
	"github.com/matzehuels/metricgraph/pkg/graph"
)

// pointsPerInch converts canvas units to Graphviz inches. Graphviz measures
// node sizes and separations in inches and positions in points.
const pointsPerInch = 72

// plainFormat asks Graphviz for its line-oriented "plain" output.
const plainFormat graphviz.Format = "plain"

// problem is one layout input with nodes renamed to n0, n1, ... so that
// arbitrary card IDs never need DOT quoting.
type problem struct {
	ids   []string
	index map[string]int
	edges [][2]int
}

func newProblem(nodes []graph.Node, edges []graph.Edge) (*problem, []string, error) {
	p := &problem{
		ids:   make([]string, 0, len(nodes)),
		index: make(map[string]int, len(nodes)),
	}
	for _, n := range nodes {
		if _, dup := p.index[n.ID]; dup {
			return nil, nil, fmt.Errorf("duplicate node %q", n.ID)
		}
		p.index[n.ID] = len(p.ids)
		p.ids = append(p.ids, n.ID)
	}

	var skipped []string
	for _, e := range edges {
		src, okSrc := p.index[e.SourceID]
		tgt, okTgt := p.index[e.TargetID]
		if !okSrc || !okTgt {
			skipped = append(skipped, e.ID)
			continue
		}
		p.edges = append(p.edges, [2]int{src, tgt})
	}
	return p, skipped, nil
}

// fingerprint identifies the topology independently of node positions.
func (p *problem) fingerprint() string {
	var buf bytes.Buffer
	for _, id := range p.ids {
		buf.WriteString(id)
		buf.WriteByte(0)
	}
	buf.WriteByte(1)
	for _, e := range p.edges {
		fmt.Fprintf(&buf, "%d>%d;", e[0], e[1])
	}
	return cache.Hash(buf.Bytes())
}

func (p *problem) dot(opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	fmt.Fprintf(&buf, "  rankdir=%s;\n", opts.Direction)
	fmt.Fprintf(&buf, "  ranksep=%s;\n", inches(opts.RankSep))
	fmt.Fprintf(&buf, "  nodesep=%s;\n", inches(opts.NodeSep))
	fmt.Fprintf(&buf, "  node [shape=box, fixedsize=true, width=%s, height=%s, label=\"\"];\n",
		inches(opts.NodeWidth), inches(opts.NodeHeight))
	buf.WriteString("\n")

	for i := range p.ids {
		fmt.Fprintf(&buf, "  n%d;\n", i)
	}
	for _, e := range p.edges {
		fmt.Fprintf(&buf, "  n%d -> n%d;\n", e[0], e[1])
	}

	buf.WriteString("}\n")
	return buf.String()
}

// positions converts plain output (inches, origin bottom-left, node
// centers) into top-left canvas positions offset by the margin.
func (p *problem) positions(out *plainOutput, opts Options) map[string]graph.Position {
	res := make(map[string]graph.Position, len(out.nodes))
	for name, c := range out.nodes {
		i, ok := nodeIndex(name)
		if !ok || i >= len(p.ids) {
			continue
		}
		cx := c.x * pointsPerInch
		cy := (out.height - c.y) * pointsPerInch
		res[p.ids[i]] = graph.Position{
			X: round2(cx - opts.NodeWidth/2 + opts.Margin),
			Y: round2(cy - opts.NodeHeight/2 + opts.Margin),
		}
	}
	return res
}

func nodeIndex(name string) (int, bool) {
	if !strings.HasPrefix(name, "n") {
		return 0, false
	}
	i, err := strconv.Atoi(name[1:])
	return i, err == nil && i >= 0
}

func inches(units float64) string {
	return strconv.FormatFloat(units/pointsPerInch, 'f', 4, 64)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// renderPlain lays out dot with the Graphviz dot engine.
func renderPlain(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, plainFormat, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

type center struct{ x, y float64 }

type plainOutput struct {
	width, height float64
	nodes         map[string]center
}

// parsePlain reads the "graph" and "node" statements of Graphviz plain
// output. Edge statements are ignored.
//
//	graph 1 4.1667 4.9444
//	node n0 2.0833 3.8333 3.8889 2.2222 "" solid box black lightgrey
func parsePlain(data []byte) (*plainOutput, error) {
	out := &plainOutput{nodes: make(map[string]center)}
	sawGraph := false

	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "graph":
			if len(fields) < 4 {
				return nil, fmt.Errorf("malformed graph line: %q", sc.Text())
			}
			w, err1 := strconv.ParseFloat(fields[2], 64)
			h, err2 := strconv.ParseFloat(fields[3], 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("malformed graph line: %q", sc.Text())
			}
			out.width, out.height = w, h
			sawGraph = true
		case "node":
			if len(fields) < 4 {
				return nil, fmt.Errorf("malformed node line: %q", sc.Text())
			}
			x, err1 := strconv.ParseFloat(fields[2], 64)
			y, err2 := strconv.ParseFloat(fields[3], 64)
			if err1 != nil || err2 != nil {
				return nil, fmt.Errorf("malformed node line: %q", sc.Text())
			}
			out.nodes[strings.Trim(fields[1], `"`)] = center{x, y}
		case "stop":
			return out, checkGraph(sawGraph)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, checkGraph(sawGraph)
}

func checkGraph(saw bool) error {
	if !saw {
		return fmt.Errorf("plain output has no graph statement")
	}
	return nil
}
