package graphdb

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v6/neo4j"

	"github.com/fishgraph/fishgraph-api/internal/domain/repository"
)

// driverSession adapts a driver session. Statements run as auto-commit queries
// so the driver does not layer its own transaction retries under ours.
type driverSession struct {
	run   func(ctx context.Context, cypher string, params map[string]any) ([]repository.Row, error)
	close func(ctx context.Context) error
}

func newDriverSession(ctx context.Context, driver neo4j.Driver, database string, mode AccessMode) *driverSession {
	accessMode := neo4j.AccessModeRead
	if mode == AccessWrite {
		accessMode = neo4j.AccessModeWrite
	}
	sess := driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   accessMode,
		DatabaseName: database,
	})

	return &driverSession{
		run: func(ctx context.Context, cypher string, params map[string]any) ([]repository.Row, error) {
			result, err := sess.Run(ctx, cypher, params)
			if err != nil {
				return nil, err
			}
			records, err := result.Collect(ctx)
			if err != nil {
				return nil, fmt.Errorf("collect records: %w", err)
			}
			rows := make([]repository.Row, 0, len(records))
			for _, rec := range records {
				rows = append(rows, recordToRow(rec.Keys, rec.Values))
			}
			return rows, nil
		},
		close: sess.Close,
	}
}

func (s *driverSession) Run(ctx context.Context, cypher string, params map[string]any) ([]repository.Row, error) {
	return s.run(ctx, cypher, params)
}

func (s *driverSession) Close(ctx context.Context) error {
	return s.close(ctx)
}

func recordToRow(keys []string, values []any) repository.Row {
	row := make(repository.Row, len(keys))
	for i, k := range keys {
		if i < len(values) {
			row[k] = values[i]
		} else {
			row[k] = nil
		}
	}
	return row
}
