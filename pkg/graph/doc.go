// Package graph provides the in-memory model of a metric canvas: cards
// (nodes), typed connections (edges) and visual groups.
//
// # Overview
//
// A canvas holds business cards (metric, value, action, hypothesis), data
// pipeline cards (data-source, operator, chart) and annotation cards
// (evidence, metadata, comment). Cards are connected by edges of exactly one
// [EdgeCategory]:
//
//   - [CategoryRelationship]: business-logic dependency with a
//     [RelationshipKind], a [Confidence] and a numeric weight
//   - [CategoryDataFlow]: a data-pipeline hop; these edges must stay acyclic
//   - [CategoryReference]: a loose annotation pointing at a primary card
//
// # Basic Usage
//
//	g := graph.New()
//	g.AddNode(graph.Node{ID: "rev", Type: graph.TypeMetric, Title: "Revenue"})
//	g.AddNode(graph.Node{ID: "arr", Type: graph.TypeMetric, Title: "ARR"})
//	g.AddEdge(graph.Edge{
//	    ID: "e1", SourceID: "arr", TargetID: "rev",
//	    Category: graph.CategoryRelationship,
//	    Kind: graph.DefaultKind, Confidence: graph.DefaultConfidence, Weight: graph.DefaultWeight,
//	})
//
// # Invariants
//
// The graph enforces the structural invariants on every write: unique
// non-empty IDs, types from the closed set, finite positions, edges whose
// endpoints exist, and fields that are fixed at creation (node type, edge
// endpoints and category). Removing a node cascades to its edges.
//
// Which connections are allowed, and whether a data-flow edge keeps the
// pipeline acyclic, is decided outside this package by the rules engine
// (pkg/rules) and the cycle guard (pkg/dag) before an edge is added.
//
// # Concurrency
//
// Graph instances are not safe for concurrent use. A single session owns a
// graph and serializes access to it (see pkg/session).
package graph
