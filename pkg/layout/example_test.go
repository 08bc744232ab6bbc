package layout_test

import (
	"fmt"

	"github.com/matzehuels/metricgraph/pkg/graph"
	"github.com/matzehuels/metricgraph/pkg/layout"
)

func ExampleValidate() {
	original := []graph.Node{{ID: "revenue"}, {ID: "churn"}}
	result := []graph.Node{
		{ID: "revenue", Position: graph.Position{X: 40, Y: 40}},
		{ID: "churn", Position: graph.Position{X: 44, Y: 42}},
	}

	for _, issue := range layout.Validate(original, result, layout.DefaultOptions()) {
		fmt.Println(issue)
	}
	// Output:
	// nodes "revenue" and "churn" overlap
}

func ExampleParseDirection() {
	d, _ := layout.ParseDirection("left-to-right")
	fmt.Println(d)
	// Output: LR
}
