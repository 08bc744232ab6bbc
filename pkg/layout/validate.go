package layout

import (
	"fmt"
	"math"

	"github.com/matzehuels/metricgraph/pkg/graph"
)

// Validate checks a computed layout against the nodes it was computed from.
// It returns one message per violated property; an empty result means the
// layout is valid. The properties are:
//   - result has as many nodes as original
//   - the ID sets match, with no duplicates
//   - every position is finite
//   - no two node centers lie within MinCenterDistance on both axes
func Validate(original, result []graph.Node, opts Options) []string {
	opts = opts.withDefaults()
	var issues []string

	if len(original) != len(result) {
		issues = append(issues, fmt.Sprintf("count mismatch: %d nodes in, %d nodes out", len(original), len(result)))
	}

	want := make(map[string]bool, len(original))
	for _, n := range original {
		want[n.ID] = true
	}
	got := make(map[string]bool, len(result))
	for _, n := range result {
		if got[n.ID] {
			issues = append(issues, fmt.Sprintf("duplicate node %q", n.ID))
			continue
		}
		got[n.ID] = true
		if !want[n.ID] {
			issues = append(issues, fmt.Sprintf("unexpected node %q", n.ID))
		}
	}
	for _, n := range original {
		if !got[n.ID] {
			issues = append(issues, fmt.Sprintf("missing node %q", n.ID))
		}
	}

	finite := make([]graph.Node, 0, len(result))
	for _, n := range result {
		if !n.Position.Finite() {
			issues = append(issues, fmt.Sprintf("node %q has non-finite position", n.ID))
			continue
		}
		finite = append(finite, n)
	}

	for i := 0; i < len(finite); i++ {
		a := finite[i].Position
		for j := i + 1; j < len(finite); j++ {
			b := finite[j].Position
			dx := math.Abs((a.X + opts.NodeWidth/2) - (b.X + opts.NodeWidth/2))
			dy := math.Abs((a.Y + opts.NodeHeight/2) - (b.Y + opts.NodeHeight/2))
			if dx < MinCenterDistance && dy < MinCenterDistance {
				issues = append(issues, fmt.Sprintf("nodes %q and %q overlap", finite[i].ID, finite[j].ID))
			}
		}
	}
	return issues
}
