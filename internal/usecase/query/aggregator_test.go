package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishgraph/fishgraph-api/internal/domain/model"
	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
)

func row(srcID string, srcLabels []any, srcProps map[string]any, tgtID string, tgtLabels []any, tgtProps map[string]any, relType string) repository.Row {
	r := repository.Row{
		"sourceId": srcID, "sourceLabels": srcLabels, "sourceProps": srcProps,
		"targetId": nil, "targetLabels": nil, "targetProps": nil,
		"relType": nil, "relStart": nil, "relEnd": nil,
	}
	if tgtID != "" {
		r["targetId"] = tgtID
		r["targetLabels"] = tgtLabels
		r["targetProps"] = tgtProps
		r["relType"] = relType
		r["relStart"] = srcID
		r["relEnd"] = tgtID
	}
	return r
}

func TestAggregate_DedupFirstSeenWins(t *testing.T) {
	fish := []any{"Fish"}
	family := []any{"Family"}
	rows := []repository.Row{
		row("1", fish, map[string]any{"name": "Common carp"}, "2", family, map[string]any{"name": "Cyprinidae"}, model.RelBelongsToFamily),
		row("1", fish, map[string]any{"name": "Renamed carp"}, "3", []any{"Region"}, map[string]any{"region": "Yangtze"}, model.RelLocatedIn),
		row("4", fish, map[string]any{"name": "Grass carp"}, "2", family, map[string]any{"name": "Other"}, model.RelBelongsToFamily),
	}

	g := Aggregate(rows)

	require.Len(t, g.Nodes, 4)
	byID := map[string]model.GraphNode{}
	for _, n := range g.Nodes {
		byID[n.ID] = n
	}
	assert.Equal(t, "Common carp", byID["1"].Name)
	assert.Equal(t, "Cyprinidae", byID["2"].Name)
	assert.Equal(t, "Yangtze", byID["3"].Name)
	assert.Equal(t, model.LabelRegion, byID["3"].Label)
	assert.Len(t, g.Links, 3)
}

func TestAggregate_LinkUniqueness(t *testing.T) {
	fish := []any{"Fish"}
	genus := []any{"Genus"}
	rows := []repository.Row{
		row("1", fish, map[string]any{"name": "a"}, "2", genus, map[string]any{"name": "g"}, model.RelBelongsToGenus),
		row("1", fish, map[string]any{"name": "a"}, "2", genus, map[string]any{"name": "g"}, model.RelBelongsToGenus),
		row("1", fish, map[string]any{"name": "a"}, "2", genus, map[string]any{"name": "g"}, "OTHER"),
	}

	g := Aggregate(rows)

	assert.Len(t, g.Nodes, 2)
	assert.Equal(t, []model.GraphLink{
		{Source: "1", Target: "2", Type: model.RelBelongsToGenus},
		{Source: "1", Target: "2", Type: "OTHER"},
	}, g.Links)
}

func TestAggregate_NullRelatedEntityIsSkipped(t *testing.T) {
	rows := []repository.Row{
		row("1", []any{"Fish"}, map[string]any{"name": "Loner"}, "", nil, nil, ""),
	}

	g := Aggregate(rows)

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, "1", g.Nodes[0].ID)
	assert.Empty(t, g.Links)
	assert.NotNil(t, g.Links)
}

func TestAggregate_KeepsStoredDirection(t *testing.T) {
	r := row("2", []any{"Family"}, map[string]any{"name": "Cyprinidae"}, "1", []any{"Fish"}, map[string]any{"name": "carp"}, model.RelBelongsToFamily)
	r["relStart"] = "1"
	r["relEnd"] = "2"

	g := Aggregate([]repository.Row{r})

	assert.Equal(t, []model.GraphLink{{Source: "1", Target: "2", Type: model.RelBelongsToFamily}}, g.Links)
}

func TestAggregate_UnknownCategoryAndMissingName(t *testing.T) {
	g := Aggregate([]repository.Row{
		row("9", []any{"Species"}, nil, "", nil, nil, ""),
	})

	require.Len(t, g.Nodes, 1)
	assert.Equal(t, model.LabelUnknown, g.Nodes[0].Label)
	assert.Equal(t, "Unknown", g.Nodes[0].Name)
	assert.NotNil(t, g.Nodes[0].Properties)
}

func TestAggregate_Empty(t *testing.T) {
	g := Aggregate(nil)
	assert.True(t, g.Empty())
	assert.NotNil(t, g.Nodes)
}
