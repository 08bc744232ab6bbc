package dag

import "slices"

// Edge is a directed hop between two node IDs.
type Edge struct {
	From string
	To   string
}

// WouldCreateCycle reports whether adding from→to to edges would close a
// directed cycle.
//
// It runs a depth-first search from the candidate source over edges plus the
// candidate edge, tracking the nodes on the current path (gray) and the nodes
// whose descendants are exhausted (black). Revisiting a gray node means a back
// edge exists. A self-loop is always a cycle. The input is never modified.
//
// Runs in O(V+E).
func WouldCreateCycle(from, to string, edges []Edge) bool {
	if from == to {
		return true
	}
	adj := adjacency(edges)
	adj[from] = append(adj[from], to)

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(adj))

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				return true
			case white:
				if dfs(next) {
					return true
				}
			}
		}
		color[id] = black
		return false
	}
	return dfs(from)
}

// FindCycle returns the node IDs of one directed cycle in edges, starting
// and ending at the same node, or nil if edges form a DAG.
// Traversal order follows edge order, so the result is deterministic.
func FindCycle(edges []Edge) []string {
	adj := adjacency(edges)

	const (
		white = iota
		gray
		black
	)
	color := make(map[string]int, len(adj))
	var path []string

	var dfs func(id string) []string
	dfs = func(id string) []string {
		color[id] = gray
		path = append(path, id)
		for _, next := range adj[id] {
			switch color[next] {
			case gray:
				start := slices.Index(path, next)
				return append(slices.Clone(path[start:]), next)
			case white:
				if c := dfs(next); c != nil {
					return c
				}
			}
		}
		path = path[:len(path)-1]
		color[id] = black
		return nil
	}

	for _, id := range roots(edges) {
		if color[id] == white {
			if c := dfs(id); c != nil {
				return c
			}
		}
	}
	return nil
}

// IsAcyclic reports whether edges form a DAG.
func IsAcyclic(edges []Edge) bool { return FindCycle(edges) == nil }

func adjacency(edges []Edge) map[string][]string {
	adj := make(map[string][]string)
	for _, e := range edges {
		adj[e.From] = append(adj[e.From], e.To)
	}
	return adj
}

// roots lists every node mentioned in edges in first-seen order.
func roots(edges []Edge) []string {
	seen := make(map[string]bool)
	var out []string
	for _, e := range edges {
		for _, id := range [2]string{e.From, e.To} {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
		}
	}
	return out
}
