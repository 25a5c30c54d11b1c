package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsInMemory(t *testing.T) {
	tests := []struct {
		dsn  string
		want bool
	}{
		{":memory:", true},
		{"file::memory:?cache=shared", true},
		{"file:history?mode=memory&cache=shared", true},
		{"file:fishgraph.db", false},
		{"file:memory-notes.db", false},
		{"/data/memory/fish.db", false},
		{"file:fish.db?mode=rwc", false},
	}

	for _, tt := range tests {
		t.Run(tt.dsn, func(t *testing.T) {
			assert.Equal(t, tt.want, isInMemory(tt.dsn))
		})
	}
}

func TestOpen_FileWithMemoryInPathUsesWAL(t *testing.T) {
	db, err := Open("file:" + filepath.Join(t.TempDir(), "memory-history.db"))
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestOpen_InMemorySkipsWAL(t *testing.T) {
	db, err := Open("file::memory:?cache=shared")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var mode string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode;").Scan(&mode))
	assert.Equal(t, "memory", mode)
}
