// Package model holds the canonical node/link graph returned by every query path.
package model

// GraphNode is one entity of an aggregated result. ID is unique within a Graph.
type GraphNode struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Label      Label          `json:"label"`
	Properties map[string]any `json:"properties"`
}

// GraphLink is a typed relationship between two GraphNode ids.
type GraphLink struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Type   string `json:"type"`
}

// Graph is a node set keyed by id plus the links between them.
type Graph struct {
	Nodes []GraphNode `json:"nodes"`
	Links []GraphLink `json:"links"`
}

// Empty reports whether the graph carries no nodes.
func (g Graph) Empty() bool { return len(g.Nodes) == 0 }

// SearchResult is a ranked candidate of the QA search engine.
// RelatedCount is the number of distinct neighbours with a non-placeholder name
// and breaks score ties.
type SearchResult struct {
	GraphNode
	Score        float64 `json:"score"`
	RelatedCount int64   `json:"relatedCount"`
}

// GraphStats summarises the graph by node label and relationship type.
type GraphStats struct {
	Labels        map[string]int64 `json:"labels"`
	Relationships map[string]int64 `json:"relationships"`
}
