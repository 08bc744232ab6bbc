package rules_test

import (
	"fmt"

	"github.com/matzehuels/metricgraph/pkg/graph"
	"github.com/matzehuels/metricgraph/pkg/rules"
)

func ExampleEngine_Evaluate() {
	e := rules.Default()

	d := e.Evaluate(graph.TypeMetric, graph.TypeMetric)
	fmt.Println(d.Category, d.Kind, d.Confidence, d.Weight)

	d = e.Evaluate(graph.TypeMetric, graph.TypeChart)
	fmt.Println(d.Category, d.Label)

	d = e.Evaluate(graph.TypeChart, graph.TypeMetric)
	fmt.Println(d.Allowed, d.Reason)
	// Output:
	// relationship deterministic medium 1
	// data-flow plots
	// false connection from "chart" to "metric" is not allowed
}

func ExampleEngine_ValidTargets() {
	fmt.Println(rules.Default().ValidTargets(graph.TypeDataSource))
	// Output:
	// [metric chart operator]
}
