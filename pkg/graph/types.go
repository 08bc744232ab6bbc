package graph

import (
	"math"
	"slices"
	"time"
)

// =============================================================================
// Node Types - Closed Set
// =============================================================================

// NodeType tags a card with its role on the canvas. The set is closed;
// [ParseNodeType] rejects anything else.
type NodeType string

// Card types.
const (
	TypeMetric     NodeType = "metric"
	TypeValue      NodeType = "value"
	TypeAction     NodeType = "action"
	TypeHypothesis NodeType = "hypothesis"
	TypeEvidence   NodeType = "evidence"
	TypeMetadata   NodeType = "metadata"
	TypeDataSource NodeType = "data-source"
	TypeChart      NodeType = "chart"
	TypeOperator   NodeType = "operator"
	TypeComment    NodeType = "comment"
	TypeGroup      NodeType = "group"
)

// NodeTypes returns every valid node type in declaration order.
func NodeTypes() []NodeType {
	return []NodeType{
		TypeMetric, TypeValue, TypeAction, TypeHypothesis,
		TypeEvidence, TypeMetadata, TypeDataSource, TypeChart,
		TypeOperator, TypeComment, TypeGroup,
	}
}

// Valid reports whether t belongs to the closed set of node types.
func (t NodeType) Valid() bool { return slices.Contains(NodeTypes(), t) }

// ParseNodeType converts a string into a NodeType, rejecting unknown tags.
func ParseNodeType(s string) (NodeType, error) {
	t := NodeType(s)
	if !t.Valid() {
		return "", ErrUnknownNodeType
	}
	return t, nil
}

// =============================================================================
// Edge Categories and Relationship Attributes
// =============================================================================

// EdgeCategory classifies an edge. It is fixed when the edge is created.
type EdgeCategory string

// Edge categories.
const (
	// CategoryRelationship expresses a business-logic dependency.
	CategoryRelationship EdgeCategory = "relationship"
	// CategoryDataFlow expresses a data-pipeline hop. Data-flow edges form a DAG.
	CategoryDataFlow EdgeCategory = "data-flow"
	// CategoryReference is a loose annotation pointing at a primary card.
	CategoryReference EdgeCategory = "reference"
)

// Valid reports whether c is a known edge category.
func (c EdgeCategory) Valid() bool {
	switch c {
	case CategoryRelationship, CategoryDataFlow, CategoryReference:
		return true
	}
	return false
}

// RelationshipKind describes how a relationship edge relates its endpoints.
type RelationshipKind string

// Relationship kinds.
const (
	KindDeterministic RelationshipKind = "deterministic"
	KindProbabilistic RelationshipKind = "probabilistic"
	KindCausal        RelationshipKind = "causal"
	KindCompositional RelationshipKind = "compositional"
)

// Valid reports whether k is a known relationship kind.
func (k RelationshipKind) Valid() bool {
	switch k {
	case KindDeterministic, KindProbabilistic, KindCausal, KindCompositional:
		return true
	}
	return false
}

// Confidence is the user's confidence in a relationship edge.
type Confidence string

// Confidence levels.
const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Valid reports whether c is a known confidence level.
func (c Confidence) Valid() bool {
	switch c {
	case ConfidenceLow, ConfidenceMedium, ConfidenceHigh:
		return true
	}
	return false
}

// Defaults applied to every new relationship edge. The user edits them later.
const (
	DefaultKind       = KindDeterministic
	DefaultConfidence = ConfidenceMedium
	DefaultWeight     = 1.0
)

// =============================================================================
// Geometry
// =============================================================================

// Position is a top-left anchored canvas coordinate.
type Position struct {
	X float64 `json:"x" bson:"x"`
	Y float64 `json:"y" bson:"y"`
}

// Finite reports whether both coordinates are finite numbers.
func (p Position) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) && !math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}

// Offset returns p shifted by (dx, dy).
func (p Position) Offset(dx, dy float64) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

// Size is a width/height pair in canvas units.
type Size struct {
	Width  float64 `json:"width" bson:"width"`
	Height float64 `json:"height" bson:"height"`
}

// =============================================================================
// Node, Edge, Group
// =============================================================================

// Node is a card on the canvas.
type Node struct {
	ID          string   `json:"id" bson:"id"`
	Type        NodeType `json:"type" bson:"type"`
	Title       string   `json:"title" bson:"title"`
	Description string   `json:"description,omitempty" bson:"description,omitempty"`
	Position    Position `json:"position" bson:"position"`

	// Fields addressed by bulk updates.
	Category  string   `json:"category,omitempty" bson:"category,omitempty"`
	Tags      []string `json:"tags,omitempty" bson:"tags,omitempty"`
	Owner     string   `json:"owner,omitempty" bson:"owner,omitempty"`
	Assignees []string `json:"assignees,omitempty" bson:"assignees,omitempty"`

	// Data holds the type-specific payload (formula, query, chart config, ...).
	Data map[string]any `json:"data,omitempty" bson:"data,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// Clone returns a copy of n that shares no slices or maps with it.
// Values inside Data are copied shallowly.
func (n Node) Clone() Node {
	n.Tags = slices.Clone(n.Tags)
	n.Assignees = slices.Clone(n.Assignees)
	n.Data = copyData(n.Data)
	return n
}

// HasTag reports whether the node carries tag.
func (n Node) HasTag(tag string) bool { return slices.Contains(n.Tags, tag) }

// Edge is a directed connection between two cards.
type Edge struct {
	ID       string       `json:"id" bson:"id"`
	SourceID string       `json:"source_id" bson:"source_id"`
	TargetID string       `json:"target_id" bson:"target_id"`
	Category EdgeCategory `json:"category" bson:"category"`
	Label    string       `json:"label,omitempty" bson:"label,omitempty"`

	// Relationship-only attributes.
	Kind       RelationshipKind `json:"kind,omitempty" bson:"kind,omitempty"`
	Confidence Confidence       `json:"confidence,omitempty" bson:"confidence,omitempty"`
	Weight     float64          `json:"weight,omitempty" bson:"weight,omitempty"`
}

// IsRelationship reports whether the edge carries relationship attributes.
func (e Edge) IsRelationship() bool { return e.Category == CategoryRelationship }

// Group is a visual container around a set of cards. Groups carry no
// topology semantics.
type Group struct {
	ID       string   `json:"id" bson:"id"`
	Name     string   `json:"name" bson:"name"`
	NodeIDs  []string `json:"node_ids" bson:"node_ids"`
	Position Position `json:"position" bson:"position"`
	Size     Size     `json:"size" bson:"size"`
}

// Clone returns a copy of g that does not share its node ID slice.
func (g Group) Clone() Group {
	g.NodeIDs = slices.Clone(g.NodeIDs)
	return g
}

// copyData creates a shallow copy of a payload map to avoid mutation.
func copyData(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}
