package bunstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/schema"

	"github.com/fishgraph/fishgraph-api/internal/database/models"
	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/model"
)

// BunStore implements repository.HistoryStore.
type BunStore struct {
	db *bun.DB
}

func NewBunStore(ctx context.Context, db *sql.DB, dialect schema.Dialect) (*BunStore, error) {
	bunDB := bun.NewDB(db, dialect)

	store := &BunStore{db: bunDB}

	if _, err := bunDB.NewCreateTable().Model((*models.QAExchange)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create qa_exchanges table: %w", err)
	}
	if _, err := bunDB.NewCreateIndex().Model((*models.QAExchange)(nil)).
		Index("idx_qa_exchanges_created_at").IfNotExists().Column("created_at").Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create qa_exchanges index: %w", err)
	}

	return store, nil
}

// Record inserts exchange and sets its ID.
func (s *BunStore) Record(ctx context.Context, exchange *model.QAExchange) error {
	row := models.FromDomain(exchange)
	if _, err := s.db.NewInsert().Model(row).Exec(ctx); err != nil {
		return fmt.Errorf("insert qa exchange %s: %w", exchange.RequestID, err)
	}
	exchange.ID = row.ID
	return nil
}

// Recent returns up to limit exchanges, newest first.
func (s *BunStore) Recent(ctx context.Context, limit int) ([]model.QAExchange, error) {
	var rows []models.QAExchange
	if err := s.db.NewSelect().Model(&rows).
		Order("created_at DESC", "id DESC").
		Limit(limit).
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("select qa exchanges: %w", err)
	}
	out := make([]model.QAExchange, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

// GetByRequestID looks up a single exchange by its correlation id.
func (s *BunStore) GetByRequestID(ctx context.Context, requestID string) (*model.QAExchange, error) {
	row := new(models.QAExchange)
	if err := s.db.NewSelect().Model(row).Where("request_id = ?", requestID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("GetByRequestID", fmt.Sprintf("exchange %s not found", requestID))
		}
		return nil, fmt.Errorf("select qa exchange %s: %w", requestID, err)
	}
	e := row.ToDomain()
	return &e, nil
}

func (s *BunStore) Close() error {
	return s.db.Close()
}
