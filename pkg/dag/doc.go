// Package dag guards the acyclicity of data-flow edges.
//
// # Overview
//
// Data-flow edges describe a data pipeline (data source → operator → chart),
// and the set of all data-flow edges on a canvas must remain a directed
// acyclic graph. This package provides the reachability checks that keep it
// that way:
//
//   - [WouldCreateCycle]: checked before a new data-flow edge is accepted
//   - [FindCycle] / [IsAcyclic]: used when loading stored graphs, to report
//     pipelines that were already corrupted
//
// Both use depth-first search with white/gray/black coloring and run in
// O(V+E). They are pure functions over the given edge list and never modify
// it.
//
// # Scope
//
// Only data-flow edges are cycle-guarded. Relationship and reference edges
// may form cycles; the layout engine breaks those internally when ranking.
package dag
