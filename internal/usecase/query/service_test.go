package query

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/model"
	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
)

type fakeRunner struct {
	mu    sync.Mutex
	calls []string
	fn    func(cypher string, params map[string]any) ([]repository.Row, error)
}

func (f *fakeRunner) Run(_ context.Context, cypher string, params map[string]any) ([]repository.Row, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cypher)
	f.mu.Unlock()
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(cypher, params)
}

func TestNodeWithRelations_NotFound(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewGraphService(runner, NewBuilder(BuilderConfig{}))

	g, err := svc.NodeWithRelations(context.Background(), "42")

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.True(t, g.Empty())
	assert.Len(t, runner.calls, 1)
}

func TestNodeWithRelations_InvalidIDSkipsDatabase(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewGraphService(runner, NewBuilder(BuilderConfig{}))

	_, err := svc.NodeWithRelations(context.Background(), "abc")

	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, runner.calls)
}

func TestNodeWithRelations_Found(t *testing.T) {
	runner := &fakeRunner{fn: func(_ string, params map[string]any) ([]repository.Row, error) {
		assert.Equal(t, int64(1), params["nodeId"])
		return []repository.Row{
			row("1", []any{"Fish"}, map[string]any{"name": "carp"}, "2", []any{"Genus"}, map[string]any{"name": "Cyprinus"}, model.RelBelongsToGenus),
		}, nil
	}}
	svc := NewGraphService(runner, NewBuilder(BuilderConfig{}))

	g, err := svc.NodeWithRelations(context.Background(), "1")
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 2)
	assert.Len(t, g.Links, 1)
}

func TestSearch_PropagatesRunnerError(t *testing.T) {
	runner := &fakeRunner{fn: func(string, map[string]any) ([]repository.Row, error) {
		return nil, apperr.Connectivity("Run", errors.New("refused"))
	}}
	svc := NewGraphService(runner, NewBuilder(BuilderConfig{}))

	_, err := svc.Search(context.Background(), model.NewSearchQuery("carp", ""))
	assert.ErrorIs(t, err, apperr.ErrConnectivity)
}

func TestSearch_ValidationSkipsDatabase(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewGraphService(runner, NewBuilder(BuilderConfig{}))

	_, err := svc.Search(context.Background(), model.NewSearchQuery("carp", "Shark"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.SearchByTypes(context.Background(), []string{"Shark"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	_, err = svc.FetchGraph(context.Background(), model.QueryFilter{Labels: []string{"Shark"}})
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Empty(t, runner.calls)
}

func TestRelationshipTypes(t *testing.T) {
	runner := &fakeRunner{fn: func(string, map[string]any) ([]repository.Row, error) {
		return []repository.Row{{"id": "1", "types": []any{"BELONGS_TO_FAMILY", "LOCATED_IN"}}}, nil
	}}
	svc := NewGraphService(runner, NewBuilder(BuilderConfig{}))

	types, err := svc.RelationshipTypes(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, []string{"BELONGS_TO_FAMILY", "LOCATED_IN"}, types)

	svc = NewGraphService(&fakeRunner{}, NewBuilder(BuilderConfig{}))
	_, err = svc.RelationshipTypes(context.Background(), "1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRelatedByType_NodeWithoutMatchesIsNotAnError(t *testing.T) {
	runner := &fakeRunner{fn: func(string, map[string]any) ([]repository.Row, error) {
		return []repository.Row{row("1", []any{"Fish"}, map[string]any{"name": "carp"}, "", nil, nil, "")}, nil
	}}
	svc := NewGraphService(runner, NewBuilder(BuilderConfig{}))

	g, err := svc.RelatedByType(context.Background(), "1", "LOCATED_IN")
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 1)
	assert.Empty(t, g.Links)
}

func TestRelated_FollowsEveryRelationshipType(t *testing.T) {
	runner := &fakeRunner{fn: func(_ string, params map[string]any) ([]repository.Row, error) {
		assert.Equal(t, int64(1), params["nodeId"])
		return []repository.Row{
			row("1", []any{"Fish"}, map[string]any{"name": "carp"}, "2", []any{"Genus"}, map[string]any{"name": "Cyprinus"}, model.RelBelongsToGenus),
			row("1", []any{"Fish"}, map[string]any{"name": "carp"}, "3", []any{"Fish"}, map[string]any{"name": "koi"}, "PREYS_ON"),
		}, nil
	}}
	svc := NewGraphService(runner, NewBuilder(BuilderConfig{}))

	g, err := svc.Related(context.Background(), "1")
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
	require.Len(t, g.Links, 2)
	assert.Equal(t, "PREYS_ON", g.Links[1].Type)
}

func TestRelated_MissingNodeAndInvalidID(t *testing.T) {
	runner := &fakeRunner{}
	svc := NewGraphService(runner, NewBuilder(BuilderConfig{}))

	_, err := svc.Related(context.Background(), "5")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Related(context.Background(), "x")
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Len(t, runner.calls, 1)
}

func TestStats(t *testing.T) {
	runner := &fakeRunner{fn: func(cypher string, _ map[string]any) ([]repository.Row, error) {
		if strings.Contains(cypher, "UNWIND labels(n)") {
			return []repository.Row{{"key": "Fish", "count": int64(12)}, {"key": "Region", "count": int64(3)}}, nil
		}
		return []repository.Row{{"key": "LOCATED_IN", "count": int64(20)}}, nil
	}}
	svc := NewGraphService(runner, NewBuilder(BuilderConfig{}))

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"Fish": 12, "Region": 3}, stats.Labels)
	assert.Equal(t, map[string]int64{"LOCATED_IN": 20}, stats.Relationships)
	assert.Len(t, runner.calls, 2)
}

func TestStats_Error(t *testing.T) {
	runner := &fakeRunner{fn: func(string, map[string]any) ([]repository.Row, error) {
		return nil, apperr.Query("Run", errors.New("boom"))
	}}
	svc := NewGraphService(runner, NewBuilder(BuilderConfig{}))

	_, err := svc.Stats(context.Background())
	assert.ErrorIs(t, err, apperr.ErrQuery)
}
