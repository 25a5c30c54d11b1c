package query

import (
	"strings"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/model"
)

// Statement is a ready-to-run Cypher query and its bound parameters.
type Statement struct {
	Cypher string
	Params map[string]any
}

// BuilderConfig bounds the size of generated queries. Zero values take defaults.
type BuilderConfig struct {
	DefaultGraphLimit int
	MaxGraphLimit     int
	ExpansionLimit    int
	InitialFishLimit  int
	SearchLimit       int
	FulltextIndex     string
}

const (
	defaultGraphLimit    = 100
	defaultMaxGraphLimit = 1000
	defaultExpansion     = 100
	defaultInitialFish   = 20
	defaultSearchLimit   = 5
	defaultFulltextIndex = "nodeFulltext"
)

// Builder turns filters and searches into parameterized Cypher. It never runs
// anything. Caller-supplied values are always bound; only labels that passed
// model.ParseLabel are written into query text.
type Builder struct {
	cfg BuilderConfig
}

func NewBuilder(cfg BuilderConfig) *Builder {
	if cfg.DefaultGraphLimit <= 0 {
		cfg.DefaultGraphLimit = defaultGraphLimit
	}
	if cfg.MaxGraphLimit <= 0 {
		cfg.MaxGraphLimit = defaultMaxGraphLimit
	}
	if cfg.ExpansionLimit <= 0 {
		cfg.ExpansionLimit = defaultExpansion
	}
	if cfg.InitialFishLimit <= 0 {
		cfg.InitialFishLimit = defaultInitialFish
	}
	if cfg.SearchLimit <= 0 {
		cfg.SearchLimit = defaultSearchLimit
	}
	if cfg.FulltextIndex == "" {
		cfg.FulltextIndex = defaultFulltextIndex
	}
	return &Builder{cfg: cfg}
}

// SearchLimit is the cap applied to ranked search results.
func (b *Builder) SearchLimit() int { return b.cfg.SearchLimit }

// rowProjection is the shape every graph-producing statement returns; see DecodeRow.
// The related side and relationship columns are null when an optional
// expansion found nothing.
const rowProjection = `
RETURN toString(id(n)) AS sourceId, labels(n) AS sourceLabels, properties(n) AS sourceProps,
       toString(id(related)) AS targetId, labels(related) AS targetLabels, properties(related) AS targetProps,
       type(r) AS relType, toString(id(startNode(r))) AS relStart, toString(id(endNode(r))) AS relEnd`

const expansion = `
OPTIONAL MATCH (n)-[r]-(related)
WHERE type(r) IN $relTypes`

// labelPredicate renders "(n:A OR n:B)". labels must already be validated.
func labelPredicate(variable string, labels []model.Label) string {
	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = variable + ":" + string(l)
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

// keywordPredicate is the case-insensitive per-field match of one keyword
// expression against name, region, description text and labels.
func keywordPredicate(kw string) string {
	fields := []string{"name", "region", "introduction", "description"}
	parts := make([]string, 0, len(fields)+1)
	for _, f := range fields {
		parts = append(parts, "toLower(coalesce(toStringOrNull(n."+f+"), '')) CONTAINS toLower("+kw+")")
	}
	parts = append(parts, "any(lbl IN labels(n) WHERE toLower(lbl) CONTAINS toLower("+kw+"))")
	return "(" + strings.Join(parts, "\n    OR ") + ")"
}

// Filter builds the generic browse over directed relationships.
func (b *Builder) Filter(f model.QueryFilter) (Statement, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = b.cfg.DefaultGraphLimit
	}
	if limit > b.cfg.MaxGraphLimit {
		return Statement{}, apperr.Validation("Filter", "limit must be at most %d", b.cfg.MaxGraphLimit)
	}
	labels, err := model.ParseLabels(f.Labels)
	if err != nil {
		return Statement{}, apperr.Validation("Filter", "%v", err)
	}

	params := map[string]any{"limit": int64(limit)}
	var where []string
	if len(labels) > 0 {
		where = append(where, labelPredicate("n", labels))
	}
	if f.SearchText != "" {
		where = append(where, "n.name CONTAINS $searchText")
		params["searchText"] = f.SearchText
	}

	var sb strings.Builder
	sb.WriteString("MATCH (n)-[r]->(related)")
	if len(where) > 0 {
		sb.WriteString("\nWHERE " + strings.Join(where, " AND "))
	}
	sb.WriteString("\nWITH n, r, related\nLIMIT $limit")
	sb.WriteString(rowProjection)
	return Statement{Cypher: sb.String(), Params: params}, nil
}

// InitialGraph returns the first Fish nodes with their one-hop neighbourhood.
func (b *Builder) InitialGraph() Statement {
	cypher := "MATCH (n:Fish)\nWITH n\nLIMIT $fishLimit" + expansion + rowProjection
	return Statement{Cypher: cypher, Params: map[string]any{
		"fishLimit": int64(b.cfg.InitialFishLimit),
		"relTypes":  model.ExpansionRelations,
	}}
}

// Search matches nodes of the known categories against every keyword and
// expands one hop. An optional label narrows the candidates.
func (b *Builder) Search(q model.SearchQuery) (Statement, error) {
	if len(q.Keywords) == 0 {
		return Statement{}, apperr.Validation("Search", "search query is empty")
	}

	params := map[string]any{
		"relTypes": model.ExpansionRelations,
		"limit":    int64(b.cfg.ExpansionLimit),
	}
	where := []string{labelPredicate("n", model.KnownLabels)}
	if len(q.Keywords) > 1 {
		where = append(where, "all(keyword IN $keywords WHERE "+keywordPredicate("keyword")+")")
		params["keywords"] = q.Keywords
	} else {
		where = append(where, keywordPredicate("$keyword"))
		params["keyword"] = q.Keywords[0]
	}
	if q.Label != "" {
		label, err := model.ParseLabel(q.Label)
		if err != nil {
			return Statement{}, apperr.Validation("Search", "%v", err)
		}
		where = append(where, "n:"+string(label))
	}

	cypher := "MATCH (n)\nWHERE " + strings.Join(where, "\n  AND ") +
		"\nWITH n" + expansion +
		"\nWITH n, r, related\nLIMIT $limit" + rowProjection
	return Statement{Cypher: cypher, Params: params}, nil
}

// SearchByTypes returns nodes carrying any of the given categories.
func (b *Builder) SearchByTypes(types []string) (Statement, error) {
	labels, err := model.ParseLabels(types)
	if err != nil {
		return Statement{}, apperr.Validation("SearchByTypes", "%v", err)
	}
	if len(labels) == 0 {
		return Statement{}, apperr.Validation("SearchByTypes", "at least one type is required")
	}

	cypher := "MATCH (n)\nWHERE any(lbl IN labels(n) WHERE lbl IN $types)\nWITH n" + expansion +
		"\nWITH n, r, related\nLIMIT $limit" + rowProjection
	return Statement{Cypher: cypher, Params: map[string]any{
		"types":    model.LabelStrings(labels),
		"relTypes": model.ExpansionRelations,
		"limit":    int64(b.cfg.ExpansionLimit),
	}}, nil
}

// NodeWithRelations returns the node and its allow-listed neighbours. A missing
// node yields zero rows.
func (b *Builder) NodeWithRelations(nodeID int64) Statement {
	cypher := "MATCH (n)\nWHERE id(n) = $nodeId" + expansion + rowProjection
	return Statement{Cypher: cypher, Params: map[string]any{
		"nodeId":   nodeID,
		"relTypes": model.ExpansionRelations,
	}}
}

// RelationshipTypes lists the distinct relationship types touching a node.
func (b *Builder) RelationshipTypes(nodeID int64) Statement {
	return Statement{
		Cypher: `MATCH (n)
WHERE id(n) = $nodeId
OPTIONAL MATCH (n)-[r]-()
WITH n, type(r) AS relType
ORDER BY relType
RETURN toString(id(n)) AS id, collect(DISTINCT relType) AS types`,
		Params: map[string]any{"nodeId": nodeID},
	}
}

// Related expands one hop along every relationship, whatever its type.
func (b *Builder) Related(nodeID int64) Statement {
	return Statement{Cypher: relatedCypher(""), Params: map[string]any{
		"nodeId": nodeID,
		"limit":  int64(b.cfg.ExpansionLimit),
	}}
}

// RelatedByType expands one hop along a single relationship type.
func (b *Builder) RelatedByType(nodeID int64, relType string) (Statement, error) {
	relType = strings.TrimSpace(relType)
	if relType == "" {
		return Statement{}, apperr.Validation("RelatedByType", "relationship type is required")
	}
	return Statement{Cypher: relatedCypher("\nWHERE type(r) = $relType"), Params: map[string]any{
		"nodeId":  nodeID,
		"relType": relType,
		"limit":   int64(b.cfg.ExpansionLimit),
	}}, nil
}

func relatedCypher(predicate string) string {
	return "MATCH (n)\nWHERE id(n) = $nodeId\nOPTIONAL MATCH (n)-[r]-(related)" + predicate +
		"\nWITH n, r, related\nLIMIT $limit" + rowProjection
}

// rankedProjection is shared by both search tiers. relatedCount counts distinct
// neighbours with a real name.
const rankedProjection = `
OPTIONAL MATCH (node)-[]-(related)
WHERE related.name IS NOT NULL AND related.name <> $placeholder
WITH node, score, count(DISTINCT related) AS relatedCount
RETURN toString(id(node)) AS id, labels(node) AS labels, properties(node) AS props, score, relatedCount
ORDER BY score DESC, relatedCount DESC
LIMIT $limit`

// Fulltext is the indexed search tier.
func (b *Builder) Fulltext(question string) Statement {
	cypher := `CALL db.index.fulltext.queryNodes($index, $question) YIELD node, score
WHERE score > 0
WITH node, score` + rankedProjection
	return Statement{Cypher: cypher, Params: map[string]any{
		"index":       b.cfg.FulltextIndex,
		"question":    question,
		"placeholder": model.PlaceholderName,
		"limit":       int64(b.cfg.SearchLimit),
	}}
}

// Fallback is the substring search tier: 2 points for a name hit, 1 for a hit
// on any other stringifiable property.
func (b *Builder) Fallback(term string) Statement {
	cypher := `MATCH (node)
WHERE node.name IS NOT NULL AND node.name <> $placeholder
WITH node, toLower(coalesce(toStringOrNull(node.name), '')) CONTAINS toLower($term) AS nameHit
WHERE nameHit OR any(key IN keys(node) WHERE key <> 'name'
  AND toLower(coalesce(toStringOrNull(node[key]), '')) CONTAINS toLower($term))
WITH node, CASE WHEN nameHit THEN 2.0 ELSE 1.0 END AS score` + rankedProjection
	return Statement{Cypher: cypher, Params: map[string]any{
		"term":        term,
		"placeholder": model.PlaceholderName,
		"limit":       int64(b.cfg.SearchLimit),
	}}
}

// Context gathers the descriptive fields and named relations of each node.
func (b *Builder) Context(nodeIDs []int64) Statement {
	return Statement{
		Cypher: `MATCH (n)
WHERE id(n) IN $nodeIds
OPTIONAL MATCH (n)-[r]-(m)
WHERE m.name IS NOT NULL AND m.name <> $placeholder
WITH n, collect(DISTINCT type(r) + ': ' + toString(m.name)) AS relations
RETURN toString(id(n)) AS id, coalesce(n.name, n.region) AS name,
       n.description AS description, n.characteristics AS characteristics, n.habitat AS habitat,
       relations`,
		Params: map[string]any{
			"nodeIds":     nodeIDs,
			"placeholder": model.PlaceholderName,
		},
	}
}

// LabelCounts counts nodes per label.
func (b *Builder) LabelCounts() Statement {
	return Statement{Cypher: `MATCH (n)
UNWIND labels(n) AS label
RETURN label AS key, count(*) AS count
ORDER BY key`}
}

// RelationshipCounts counts relationships per type.
func (b *Builder) RelationshipCounts() Statement {
	return Statement{Cypher: `MATCH ()-[r]->()
RETURN type(r) AS key, count(*) AS count
ORDER BY key`}
}
