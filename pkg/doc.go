// Package pkg provides the core libraries for metricgraph, an editor for
// graphs of business metrics and the pipelines that compute them.
//
// # Overview
//
// A project is a canvas of typed cards (metrics, hypotheses, data sources,
// operators, charts, evidence, ...) joined by directed edges. Every edge is
// classified by a rule table into one of three categories: relationship,
// data-flow or reference. The data-flow subgraph must stay acyclic.
//
// # Architecture
//
//	cmd/metricgraph (CLI)      pkg/api (HTTP)
//	           ↘                  ↙
//	             [session] package (one open project)
//	           ↙        ↓         ↘
//	   [rules] + [dag]  [bulk]   [layout] ← [cache]
//	           ↘        ↓         ↙
//	              [graph] package (in-memory model)
//	                     ↓
//	   [store] package (file, memory, Redis, MongoDB)
//
// # Quick Start
//
//	st := store.NewMemory()
//	sess, _ := session.Open(ctx, st, "growth", config.Default())
//	defer sess.Close(ctx)
//
//	rev, _ := sess.AddNode(ctx, graph.Node{Type: graph.TypeMetric, Title: "Revenue"})
//	chart, _ := sess.AddNode(ctx, graph.Node{Type: graph.TypeChart, Title: "Revenue by month"})
//	e, _ := sess.Connect(ctx, rev.ID, chart.ID)
//	// e.Category == graph.CategoryDataFlow, e.Label == "plots"
//
//	sess.Layout(ctx)
//
// # Main Packages
//
// [graph] - Cards, edges, groups, filters, selection and snapshots.
//
// [rules] - The ordered connection rule table.
//
// [dag] - Reachability and cycle detection for the data-flow guard.
//
// [layout] - Layered layout through Graphviz, with caching and a debouncer
// for auto-layout.
//
// [bulk] - Partial-success operations over many cards or edges.
//
// [io] - JSON and CSV export, JSON import.
//
// [store] - Project persistence behind one interface.
//
// [session] - Ties the above together for one open project.
//
// [api] - The HTTP API served by "metricgraph serve".
//
// [config], [errors], [cache], [observability] and [buildinfo] are shared
// infrastructure.
package pkg
