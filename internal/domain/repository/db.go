package repository

import (
	"context"
)

// Row is one result record keyed by its RETURN aliases.
type Row map[string]any

// QueryRunner executes a read-only Cypher statement and buffers every record.
// Implementations own session acquisition, release and retries.
type QueryRunner interface {
	Run(ctx context.Context, cypher string, params map[string]any) ([]Row, error)
}
