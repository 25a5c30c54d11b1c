package models

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/fishgraph/fishgraph-api/internal/domain/model"
)

// QAExchange is the stored form of one question/answer round trip.
type QAExchange struct {
	bun.BaseModel `bun:"table:qa_exchanges,alias:qa"`

	ID             int64     `bun:",pk,autoincrement"`
	RequestID      string    `bun:",unique,notnull"`
	Question       string    `bun:",notnull"`
	Answer         string    `bun:",nullzero"`
	RelatedNodeIDs []string  `bun:"related_node_ids,type:json"`
	Provider       string    `bun:",notnull"`
	DurationMS     int64     `bun:"duration_ms,notnull"`
	ErrorMessage   string    `bun:",nullzero"`
	CreatedAt      time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

func FromDomain(e *model.QAExchange) *QAExchange {
	return &QAExchange{
		ID:             e.ID,
		RequestID:      e.RequestID,
		Question:       e.Question,
		Answer:         e.Answer,
		RelatedNodeIDs: e.RelatedNodeIDs,
		Provider:       e.Provider,
		DurationMS:     e.DurationMS,
		ErrorMessage:   e.Error,
		CreatedAt:      e.CreatedAt,
	}
}

func (q *QAExchange) ToDomain() model.QAExchange {
	ids := q.RelatedNodeIDs
	if ids == nil {
		ids = []string{}
	}
	return model.QAExchange{
		ID:             q.ID,
		RequestID:      q.RequestID,
		Question:       q.Question,
		Answer:         q.Answer,
		RelatedNodeIDs: ids,
		Provider:       q.Provider,
		DurationMS:     q.DurationMS,
		Error:          q.ErrorMessage,
		CreatedAt:      q.CreatedAt,
	}
}
