package bunstore

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/fishgraph/fishgraph-api/internal/database"
	"github.com/fishgraph/fishgraph-api/internal/domain/apperr"
	"github.com/fishgraph/fishgraph-api/internal/domain/model"
)

func newTestStore(t *testing.T) *BunStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(dsn)
	require.NoError(t, err)

	store, err := NewBunStore(context.Background(), db, sqlitedialect.New())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	first := &model.QAExchange{
		RequestID:      "req-1",
		Question:       "where do carp live?",
		Answer:         "In rivers.",
		RelatedNodeIDs: []string{"1", "7"},
		Provider:       "ChatGLM (chatglm_turbo)",
		DurationMS:     812,
		CreatedAt:      base,
	}
	second := &model.QAExchange{
		RequestID:  "req-2",
		Question:   "what is a loach?",
		Provider:   "ChatGLM (chatglm_turbo)",
		Error:      "ChatGLM: upstream_model: invalid api key (status 401)",
		CreatedAt:  base.Add(time.Minute),
		DurationMS: 40,
	}
	require.NoError(t, store.Record(ctx, first))
	require.NoError(t, store.Record(ctx, second))
	assert.NotZero(t, first.ID)
	assert.NotEqual(t, first.ID, second.ID)

	recent, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)

	assert.Equal(t, "req-2", recent[0].RequestID)
	assert.Equal(t, second.Error, recent[0].Error)
	assert.Equal(t, []string{}, recent[0].RelatedNodeIDs)

	assert.Equal(t, "req-1", recent[1].RequestID)
	assert.Equal(t, []string{"1", "7"}, recent[1].RelatedNodeIDs)
	assert.Equal(t, int64(812), recent[1].DurationMS)
	assert.True(t, base.Equal(recent[1].CreatedAt))

	limited, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestGetByRequestID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, &model.QAExchange{
		RequestID: "req-9", Question: "carp?", Provider: "fake", CreatedAt: time.Now().UTC(),
	}))

	got, err := store.GetByRequestID(ctx, "req-9")
	require.NoError(t, err)
	assert.Equal(t, "carp?", got.Question)

	_, err = store.GetByRequestID(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRecord_DuplicateRequestID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	e := &model.QAExchange{RequestID: "dup", Question: "q", Provider: "fake", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Record(ctx, e))

	again := *e
	again.ID = 0
	assert.Error(t, store.Record(ctx, &again))
}
