package qa

import (
	"context"
	"fmt"
	"strings"

	"github.com/fishgraph/fishgraph-api/internal/domain/model"
	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
	"github.com/fishgraph/fishgraph-api/internal/usecase/query"
)

// ContextAssembler renders selected nodes as the knowledge block of a prompt.
type ContextAssembler struct {
	runner  repository.QueryRunner
	builder *query.Builder
}

func NewContextAssembler(runner repository.QueryRunner, builder *query.Builder) *ContextAssembler {
	return &ContextAssembler{runner: runner, builder: builder}
}

// Assemble returns one block per node, in the order of ids, separated by a
// blank line. No ids means no query and an empty string.
func (a *ContextAssembler) Assemble(ctx context.Context, ids []string) (string, error) {
	nodeIDs := make([]int64, 0, len(ids))
	for _, s := range ids {
		if id, ok := model.ParseNodeID(s); ok {
			nodeIDs = append(nodeIDs, id)
		}
	}
	if len(nodeIDs) == 0 {
		return "", nil
	}

	stmt := a.builder.Context(nodeIDs)
	rows, err := a.runner.Run(ctx, stmt.Cypher, stmt.Params)
	if err != nil {
		return "", fmt.Errorf("assemble context: %w", err)
	}

	byID := make(map[string]repository.Row, len(rows))
	for _, r := range rows {
		byID[query.RowString(r, "id")] = r
	}

	blocks := make([]string, 0, len(rows))
	for _, id := range nodeIDs {
		if r, ok := byID[fmt.Sprint(id)]; ok {
			blocks = append(blocks, renderBlock(r))
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}

func renderBlock(r repository.Row) string {
	lines := []string{"Node: " + query.RowString(r, "name")}
	for _, f := range []struct{ title, key string }{
		{"Description", "description"},
		{"Characteristics", "characteristics"},
		{"Habitat", "habitat"},
	} {
		if v := query.RowString(r, f.key); v != "" {
			lines = append(lines, f.title+": "+v)
		}
	}
	if rels := query.RowStrings(r, "relations"); len(rels) > 0 {
		lines = append(lines, "Relations: "+strings.Join(rels, ", "))
	}
	return strings.Join(lines, "\n")
}
