package model

import (
	"strconv"
	"strings"
	"time"
)

// Relationship types the one-hop expansion is allowed to follow.
const (
	RelBelongsToFamily = "BELONGS_TO_FAMILY"
	RelBelongsToGenus  = "BELONGS_TO_GENUS"
	RelBelongsToOrder  = "BELONGS_TO_ORDER"
	RelLocatedIn       = "LOCATED_IN"
)

// ExpansionRelations is the allow-list used by every expanding query.
var ExpansionRelations = []string{RelBelongsToFamily, RelBelongsToGenus, RelBelongsToOrder, RelLocatedIn}

// QueryFilter drives the generic graph browse.
type QueryFilter struct {
	Limit      int
	Labels     []string
	SearchText string
}

// SearchQuery is a keyword search, optionally restricted to one category.
type SearchQuery struct {
	Keywords []string
	Label    string
}

// NewSearchQuery splits raw on whitespace into keywords.
func NewSearchQuery(raw, label string) SearchQuery {
	return SearchQuery{Keywords: strings.Fields(raw), Label: strings.TrimSpace(label)}
}

// ParseNodeID converts a path-supplied id into the database's numeric identity.
func ParseNodeID(s string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// QAResponse is the result of a question.
type QAResponse struct {
	Answer       string         `json:"answer"`
	RelatedNodes []SearchResult `json:"relatedNodes"`
}

// QAExchange is one persisted question/answer round trip.
type QAExchange struct {
	ID             int64     `json:"id"`
	RequestID      string    `json:"requestId"`
	Question       string    `json:"question"`
	Answer         string    `json:"answer,omitempty"`
	RelatedNodeIDs []string  `json:"relatedNodeIds"`
	Provider       string    `json:"provider"`
	DurationMS     int64     `json:"durationMs"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}
