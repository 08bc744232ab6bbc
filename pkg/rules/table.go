package rules

import "github.com/matzehuels/metricgraph/pkg/graph"

// Type sets shared by the default rules.
var (
	businessTypes = []graph.NodeType{
		graph.TypeMetric, graph.TypeValue, graph.TypeAction, graph.TypeHypothesis,
	}
	annotationTypes = []graph.NodeType{
		graph.TypeEvidence, graph.TypeMetadata, graph.TypeComment,
	}
	primaryTypes = []graph.NodeType{
		graph.TypeMetric, graph.TypeValue, graph.TypeAction, graph.TypeHypothesis,
		graph.TypeDataSource, graph.TypeOperator, graph.TypeChart,
	}
)

// DefaultRules returns the canvas connection table in evaluation order.
//
// Business cards relate to each other; data sources, operators and metrics
// feed the pipeline; annotation cards point at any primary card. Group
// containers never connect.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "business",
			Sources:  businessTypes,
			Targets:  businessTypes,
			Category: graph.CategoryRelationship,
			Kind:     graph.DefaultKind,
		},
		{
			Name:     "source-feed",
			Sources:  []graph.NodeType{graph.TypeDataSource},
			Targets:  []graph.NodeType{graph.TypeOperator, graph.TypeChart, graph.TypeMetric},
			Category: graph.CategoryDataFlow,
		},
		{
			Name:     "operator-feed",
			Sources:  []graph.NodeType{graph.TypeOperator},
			Targets:  []graph.NodeType{graph.TypeOperator, graph.TypeChart, graph.TypeMetric},
			Category: graph.CategoryDataFlow,
		},
		{
			Name:     "metric-feed",
			Sources:  []graph.NodeType{graph.TypeMetric},
			Targets:  []graph.NodeType{graph.TypeOperator, graph.TypeChart},
			Category: graph.CategoryDataFlow,
		},
		{
			Name:     "annotation",
			Sources:  annotationTypes,
			Targets:  primaryTypes,
			Category: graph.CategoryReference,
		},
	}
}

type pair struct{ source, target graph.NodeType }

// pairLabels names specific data-flow hops.
var pairLabels = map[pair]string{
	{graph.TypeDataSource, graph.TypeOperator}: "feeds",
	{graph.TypeDataSource, graph.TypeChart}:    "visualizes",
	{graph.TypeDataSource, graph.TypeMetric}:   "sources",
	{graph.TypeOperator, graph.TypeOperator}:   "transforms",
	{graph.TypeOperator, graph.TypeChart}:      "renders",
	{graph.TypeOperator, graph.TypeMetric}:     "computes",
	{graph.TypeMetric, graph.TypeOperator}:     "inputs",
	{graph.TypeMetric, graph.TypeChart}:        "plots",
}

// sourceLabels names reference edges by the annotating card.
var sourceLabels = map[graph.NodeType]string{
	graph.TypeEvidence: "supports",
	graph.TypeMetadata: "describes",
	graph.TypeComment:  "annotates",
}

// Label infers the descriptive label of a data-flow or reference edge from
// its endpoint types. Relationship edges are unlabeled.
func Label(c graph.EdgeCategory, source, target graph.NodeType) string {
	switch c {
	case graph.CategoryDataFlow:
		if l, ok := pairLabels[pair{source, target}]; ok {
			return l
		}
		return "flows to"
	case graph.CategoryReference:
		if l, ok := sourceLabels[source]; ok {
			return l
		}
		return "references"
	}
	return ""
}
