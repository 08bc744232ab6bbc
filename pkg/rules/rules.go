// Package rules decides which card types may be connected and which edge
// category a connection produces.
//
// The engine is an ordered table of immutable [Rule] records scanned
// linearly; the first rule whose source set and target set both contain the
// requested types wins. Evaluation is a pure function of the table and the
// two types, so the same pair always yields the same [Decision].
//
//	d := rules.Default().Evaluate(graph.TypeMetric, graph.TypeChart)
//	// d.Allowed == true, d.Category == graph.CategoryDataFlow, d.Label == "plots"
package rules

import (
	"fmt"
	"slices"

	"github.com/matzehuels/metricgraph/pkg/graph"
)

// Rule maps a set of source types and a set of target types to one edge
// category. Kind is only meaningful for relationship rules; when empty the
// relationship default is used.
type Rule struct {
	Name     string
	Sources  []graph.NodeType
	Targets  []graph.NodeType
	Category graph.EdgeCategory
	Kind     graph.RelationshipKind
}

// Matches reports whether the rule covers the (source, target) pair.
func (r Rule) Matches(source, target graph.NodeType) bool {
	return slices.Contains(r.Sources, source) && slices.Contains(r.Targets, target)
}

// Decision is the outcome of evaluating a prospective connection.
type Decision struct {
	Allowed  bool
	Rule     string
	Category graph.EdgeCategory

	// Relationship defaults; zero for other categories.
	Kind       graph.RelationshipKind
	Confidence graph.Confidence
	Weight     float64

	// Label is inferred for data-flow and reference edges.
	Label string

	// Reason explains a rejection.
	Reason string
}

// Edge builds the edge a successful decision describes. It panics on a
// rejected decision, which is a programming error.
func (d Decision) Edge(id, sourceID, targetID string) graph.Edge {
	if !d.Allowed {
		panic("rules: Edge called on a rejected decision")
	}
	return graph.Edge{
		ID:         id,
		SourceID:   sourceID,
		TargetID:   targetID,
		Category:   d.Category,
		Label:      d.Label,
		Kind:       d.Kind,
		Confidence: d.Confidence,
		Weight:     d.Weight,
	}
}

// Engine evaluates connections against an ordered rule table.
// The zero value rejects every connection.
type Engine struct {
	rules []Rule
}

// New creates an engine over rules, evaluated in the given order.
// The rules are copied; later changes to the argument have no effect.
func New(rules ...Rule) *Engine {
	cp := make([]Rule, len(rules))
	for i, r := range rules {
		r.Sources = slices.Clone(r.Sources)
		r.Targets = slices.Clone(r.Targets)
		cp[i] = r
	}
	return &Engine{rules: cp}
}

// Default returns an engine over [DefaultRules].
func Default() *Engine { return New(DefaultRules()...) }

// Rules returns a copy of the rule table in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	for i, r := range e.rules {
		r.Sources = slices.Clone(r.Sources)
		r.Targets = slices.Clone(r.Targets)
		out[i] = r
	}
	return out
}

// Evaluate decides whether source may connect to target. The first matching
// rule determines the edge category; when no rule matches the decision is a
// rejection whose Reason names both types.
func (e *Engine) Evaluate(source, target graph.NodeType) Decision {
	for _, r := range e.rules {
		if !r.Matches(source, target) {
			continue
		}
		d := Decision{Allowed: true, Rule: r.Name, Category: r.Category}
		switch r.Category {
		case graph.CategoryRelationship:
			d.Kind = r.Kind
			if d.Kind == "" {
				d.Kind = graph.DefaultKind
			}
			d.Confidence = graph.DefaultConfidence
			d.Weight = graph.DefaultWeight
		default:
			d.Label = Label(r.Category, source, target)
		}
		return d
	}
	return Decision{
		Reason: fmt.Sprintf("connection from %q to %q is not allowed", source, target),
	}
}

// Allowed is shorthand for Evaluate(source, target).Allowed.
func (e *Engine) Allowed(source, target graph.NodeType) bool {
	return e.Evaluate(source, target).Allowed
}

// ValidTargets returns every type that some rule lets source connect to,
// in node type declaration order.
func (e *Engine) ValidTargets(source graph.NodeType) []graph.NodeType {
	seen := make(map[graph.NodeType]bool)
	for _, r := range e.rules {
		if slices.Contains(r.Sources, source) {
			for _, t := range r.Targets {
				seen[t] = true
			}
		}
	}
	return ordered(seen)
}

// ValidSources returns every type that some rule lets connect to target,
// in node type declaration order.
func (e *Engine) ValidSources(target graph.NodeType) []graph.NodeType {
	seen := make(map[graph.NodeType]bool)
	for _, r := range e.rules {
		if slices.Contains(r.Targets, target) {
			for _, s := range r.Sources {
				seen[s] = true
			}
		}
	}
	return ordered(seen)
}

func ordered(set map[graph.NodeType]bool) []graph.NodeType {
	var out []graph.NodeType
	for _, t := range graph.NodeTypes() {
		if set[t] {
			out = append(out, t)
		}
	}
	return out
}
