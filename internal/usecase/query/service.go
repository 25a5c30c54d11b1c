package query

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/model"
	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
)

// GraphService answers the graph browsing entry points.
type GraphService struct {
	runner  repository.QueryRunner
	builder *Builder
}

// NewGraphService creates a GraphService over a shared query runner.
func NewGraphService(runner repository.QueryRunner, builder *Builder) *GraphService {
	return &GraphService{runner: runner, builder: builder}
}

func (s *GraphService) graph(ctx context.Context, op string, stmt Statement) (model.Graph, error) {
	rows, err := s.runner.Run(ctx, stmt.Cypher, stmt.Params)
	if err != nil {
		return model.Graph{}, fmt.Errorf("%s: %w", op, err)
	}
	g := Aggregate(rows)
	log.Printf("[Graph] %s: %d rows -> %d nodes, %d links", op, len(rows), len(g.Nodes), len(g.Links))
	return g, nil
}

// FetchGraph browses directed relationships under an optional filter.
func (s *GraphService) FetchGraph(ctx context.Context, filter model.QueryFilter) (model.Graph, error) {
	stmt, err := s.builder.Filter(filter)
	if err != nil {
		return model.Graph{}, err
	}
	return s.graph(ctx, "fetch graph", stmt)
}

// InitialGraph returns a small Fish-centred neighbourhood for a first view.
func (s *GraphService) InitialGraph(ctx context.Context) (model.Graph, error) {
	return s.graph(ctx, "initial graph", s.builder.InitialGraph())
}

// Search runs a keyword search with one-hop expansion.
func (s *GraphService) Search(ctx context.Context, q model.SearchQuery) (model.Graph, error) {
	stmt, err := s.builder.Search(q)
	if err != nil {
		return model.Graph{}, err
	}
	return s.graph(ctx, "search", stmt)
}

// SearchByTypes returns nodes of any of the given categories with one-hop expansion.
func (s *GraphService) SearchByTypes(ctx context.Context, types []string) (model.Graph, error) {
	stmt, err := s.builder.SearchByTypes(types)
	if err != nil {
		return model.Graph{}, err
	}
	return s.graph(ctx, "search by types", stmt)
}

// NodeWithRelations returns a node and its allow-listed neighbours, or a
// NotFound error when the id resolves to nothing.
func (s *GraphService) NodeWithRelations(ctx context.Context, nodeID string) (model.Graph, error) {
	id, ok := model.ParseNodeID(nodeID)
	if !ok {
		return model.Graph{}, apperr.Validation("NodeWithRelations", "invalid node id %q", nodeID)
	}
	g, err := s.graph(ctx, "node with relations", s.builder.NodeWithRelations(id))
	if err != nil {
		return model.Graph{}, err
	}
	if g.Empty() {
		return model.Graph{}, apperr.NotFound("NodeWithRelations", fmt.Sprintf("node %d not found", id))
	}
	return g, nil
}

// RelationshipTypes lists the relationship types touching a node.
func (s *GraphService) RelationshipTypes(ctx context.Context, nodeID string) ([]string, error) {
	id, ok := model.ParseNodeID(nodeID)
	if !ok {
		return nil, apperr.Validation("RelationshipTypes", "invalid node id %q", nodeID)
	}
	stmt := s.builder.RelationshipTypes(id)
	rows, err := s.runner.Run(ctx, stmt.Cypher, stmt.Params)
	if err != nil {
		return nil, fmt.Errorf("relationship types: %w", err)
	}
	if len(rows) == 0 {
		return nil, apperr.NotFound("RelationshipTypes", fmt.Sprintf("node %d not found", id))
	}
	types := RowStrings(rows[0], "types")
	if types == nil {
		types = []string{}
	}
	return types, nil
}

// Related expands a node along all of its relationships.
func (s *GraphService) Related(ctx context.Context, nodeID string) (model.Graph, error) {
	id, ok := model.ParseNodeID(nodeID)
	if !ok {
		return model.Graph{}, apperr.Validation("Related", "invalid node id %q", nodeID)
	}
	g, err := s.graph(ctx, "related", s.builder.Related(id))
	if err != nil {
		return model.Graph{}, err
	}
	if g.Empty() {
		return model.Graph{}, apperr.NotFound("Related", fmt.Sprintf("node %d not found", id))
	}
	return g, nil
}

// RelatedByType expands a node along one relationship type.
func (s *GraphService) RelatedByType(ctx context.Context, nodeID, relType string) (model.Graph, error) {
	id, ok := model.ParseNodeID(nodeID)
	if !ok {
		return model.Graph{}, apperr.Validation("RelatedByType", "invalid node id %q", nodeID)
	}
	stmt, err := s.builder.RelatedByType(id, relType)
	if err != nil {
		return model.Graph{}, err
	}
	g, err := s.graph(ctx, "related by type", stmt)
	if err != nil {
		return model.Graph{}, err
	}
	if g.Empty() {
		return model.Graph{}, apperr.NotFound("RelatedByType", fmt.Sprintf("node %d not found", id))
	}
	return g, nil
}

// Stats counts nodes per label and relationships per type. Both counts run
// concurrently on separate sessions.
func (s *GraphService) Stats(ctx context.Context) (model.GraphStats, error) {
	var labels, rels map[string]int64

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		labels, err = s.counts(ctx, s.builder.LabelCounts())
		if err != nil {
			return fmt.Errorf("label counts: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		rels, err = s.counts(ctx, s.builder.RelationshipCounts())
		if err != nil {
			return fmt.Errorf("relationship counts: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.GraphStats{}, err
	}
	return model.GraphStats{Labels: labels, Relationships: rels}, nil
}

func (s *GraphService) counts(ctx context.Context, stmt Statement) (map[string]int64, error) {
	rows, err := s.runner.Run(ctx, stmt.Cypher, stmt.Params)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[RowString(r, "key")] = RowInt64(r, "count")
	}
	return out, nil
}
