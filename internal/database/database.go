// Package database opens the local SQLite database that holds the QA history.
package database

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/uptrace/bun/driver/sqliteshim"
)

// Open opens dsn through sqliteshim, which picks whichever SQLite driver the
// build provides.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// WAL is meaningless for in-memory databases.
	if !isInMemory(dsn) {
		if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL: %w", err)
		}
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return db, nil
}

// isInMemory reports whether dsn names an in-memory database, either the
// special ":memory:" filename or a URI carrying mode=memory.
func isInMemory(dsn string) bool {
	if strings.Contains(dsn, ":memory:") {
		return true
	}
	_, query, ok := strings.Cut(dsn, "?")
	if !ok {
		return false
	}
	for _, param := range strings.Split(query, "&") {
		if param == "mode=memory" {
			return true
		}
	}
	return false
}
