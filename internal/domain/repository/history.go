package repository

import (
	"context"

	"github.com/fishgraph/fishgraph-api/internal/domain/model"
)

// HistoryStore persists question/answer exchanges.
type HistoryStore interface {
	Record(ctx context.Context, exchange *model.QAExchange) error
	Recent(ctx context.Context, limit int) ([]model.QAExchange, error)
	// GetByRequestID returns a NotFound error for an unknown id.
	GetByRequestID(ctx context.Context, requestID string) (*model.QAExchange, error)
}
