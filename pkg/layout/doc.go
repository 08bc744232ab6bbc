// Package layout assigns canvas positions to cards with a layered
// (Sugiyama-style) drawing.
//
// # Algorithm
//
// [Engine.Compute] builds one fixed-size rectangle per card and one arc per
// edge and hands the problem to Graphviz's dot engine, which ranks the cards
// along the flow [Direction], breaks any cycles internally, orders each rank
// to reduce crossings and spaces the ranks by [Options.RankSep] and the
// cards within a rank by [Options.NodeSep]. Graphviz reports node centers in
// inches with the origin at the bottom left; the engine converts them to
// top-left anchored canvas coordinates with y pointing down, shifted by
// [Options.Margin].
//
// # Failure
//
// Compute never returns an error. A failed pass, including a panic inside
// the drawing library, is logged and the input nodes are returned unchanged.
// Use [Engine.Positions] to observe the error directly.
//
// # Auto-layout
//
// [Debouncer] implements "lay out again after Δt without structural
// changes": every Schedule call cancels the pending timer and starts a new
// one.
package layout
