//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
	"strings"
)

const ftsEnabled = true

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS tasks_fts USING fts5(
			path UNINDEXED,
			idx UNINDEXED,
			text,
			notes,
			tags,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, path string, t TaskRow) error {
	_, err := tx.Exec(`INSERT INTO tasks_fts (path, idx, text, notes, tags) VALUES (?, ?, ?, ?, ?)`,
		path, t.Index, t.Text, t.Notes, strings.Join(t.Tags, " "))
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

func ftsDelete(tx *sql.Tx, path string) {
	_, _ = tx.Exec(`DELETE FROM tasks_fts WHERE path = ?`, path)
}

// Search performs an FTS5 full-text search and returns matching tasks with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT t.date, t.idx, t.id, t.text, t.done,
		       snippet(tasks_fts, -1, '[', ']', '...', 16)
		FROM tasks_fts f
		JOIN tasks t ON t.path = f.path AND t.idx = f.idx
		WHERE tasks_fts MATCH ?
		ORDER BY rank, t.date DESC
		LIMIT ?
	`, matchQuery(query), limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	return scanResults(rows)
}

// matchQuery quotes every word so user input never reaches the FTS5 query
// syntax. Words are ANDed.
func matchQuery(q string) string {
	words := strings.Fields(q)
	for i, w := range words {
		words[i] = `"` + strings.ReplaceAll(w, `"`, `""`) + `"`
	}
	return strings.Join(words, " ")
}
