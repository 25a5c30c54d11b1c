// Package qa answers natural-language questions from the fish graph: it finds
// the most relevant nodes, renders their context and asks a language model.
package qa

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/model"
	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
	"github.com/fishgraph/fishgraph-api/internal/usecase/query"
)

// SearchEngine ranks candidate nodes for a question. The full-text index is
// tried first; substring matching runs only when the index fails or finds nothing.
type SearchEngine struct {
	runner  repository.QueryRunner
	builder *query.Builder
}

func NewSearchEngine(runner repository.QueryRunner, builder *query.Builder) *SearchEngine {
	return &SearchEngine{runner: runner, builder: builder}
}

// Search returns at most the builder's search limit of results, best first.
// An empty result is not an error.
func (e *SearchEngine) Search(ctx context.Context, question string) ([]model.SearchResult, error) {
	results, err := e.indexed(ctx, question)
	if err != nil {
		log.Printf("[Search] %v; falling back to substring search", apperr.IndexUnavailable("Search", err))
	} else if len(results) > 0 {
		log.Printf("[Search] Full-text tier returned %d results", len(results))
		return results, nil
	}

	stmt := e.builder.Fallback(question)
	rows, err := e.runner.Run(ctx, stmt.Cypher, stmt.Params)
	if err != nil {
		return nil, fmt.Errorf("fallback search: %w", err)
	}
	results = e.rank(decodeResults(rows))
	log.Printf("[Search] Fallback tier returned %d results", len(results))
	return results, nil
}

func (e *SearchEngine) indexed(ctx context.Context, question string) ([]model.SearchResult, error) {
	stmt := e.builder.Fulltext(question)
	rows, err := e.runner.Run(ctx, stmt.Cypher, stmt.Params)
	if err != nil {
		return nil, err
	}
	return e.rank(decodeResults(rows)), nil
}

// rank drops non-positive scores, orders by score then related count, and caps.
func (e *SearchEngine) rank(results []model.SearchResult) []model.SearchResult {
	kept := results[:0]
	for _, r := range results {
		if r.Score > 0 {
			kept = append(kept, r)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Score != kept[j].Score {
			return kept[i].Score > kept[j].Score
		}
		return kept[i].RelatedCount > kept[j].RelatedCount
	})
	if limit := e.builder.SearchLimit(); len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

func decodeResults(rows []repository.Row) []model.SearchResult {
	out := make([]model.SearchResult, 0, len(rows))
	seen := make(map[string]bool, len(rows))
	for _, r := range rows {
		id := query.RowString(r, "id")
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		props := query.RowMap(r, "props")
		if props == nil {
			props = map[string]any{}
		}
		label := model.ResolveLabel(query.RowStrings(r, "labels"))
		out = append(out, model.SearchResult{
			GraphNode: model.GraphNode{
				ID:         id,
				Name:       model.ResolveName(label, props),
				Label:      label,
				Properties: props,
			},
			Score:        query.RowFloat64(r, "score"),
			RelatedCount: query.RowInt64(r, "relatedCount"),
		})
	}
	return out
}
