//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

const ftsEnabled = false

func initFTS(_ *sql.DB) error {
	// FTS5 not available; search uses LIKE over the tasks table.
	return nil
}

func ftsUpsert(_ *sql.Tx, _ string, _ TaskRow) error {
	return nil
}

func ftsDelete(_ *sql.Tx, _ string) {}

// Search performs a LIKE-based search (fallback when FTS5 is not compiled in).
// Newest days come first.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	rows, err := db.conn.Query(`
		SELECT date, idx, id, text, done, substr(text || ' ' || notes, 1, 200)
		FROM tasks
		WHERE text LIKE ? OR notes LIKE ? OR tags LIKE ?
		ORDER BY date DESC, idx ASC
		LIMIT ?
	`, like, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}
