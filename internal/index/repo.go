package index

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// DayRow represents a row in the days table.
type DayRow struct {
	Path      string
	Date      string
	Checksum  string
	UpdatedAt time.Time
}

// TaskRow is the searchable projection of one task.
type TaskRow struct {
	ID       string
	Index    int
	Text     string
	Notes    string
	Tags     []string
	Priority string
	Done     bool
}

// SearchResult represents one search hit.
type SearchResult struct {
	Date    string `json:"date"`
	Index   int    `json:"index"`
	ID      string `json:"id"`
	Text    string `json:"text"`
	Done    bool   `json:"done"`
	Snippet string `json:"snippet"`
}

// UpsertDay replaces a day and all of its tasks within a transaction.
func (db *DB) UpsertDay(d DayRow, tasks []TaskRow) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO days (path, date, checksum, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			date       = excluded.date,
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, d.Path, d.Date, d.Checksum, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert day: %w", err)
	}

	ftsDelete(tx, d.Path)
	if _, err := tx.Exec(`DELETE FROM tasks WHERE path = ?`, d.Path); err != nil {
		return fmt.Errorf("index: clear tasks: %w", err)
	}
	if len(tasks) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO tasks (path, idx, id, date, text, notes, tags, priority, done)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare task insert: %w", err)
		}
		defer stmt.Close()
		for _, t := range tasks {
			tagsJSON, _ := json.Marshal(t.Tags)
			if _, err := stmt.Exec(d.Path, t.Index, t.ID, d.Date, t.Text, t.Notes, string(tagsJSON), t.Priority, t.Done); err != nil {
				return fmt.Errorf("index: insert task: %w", err)
			}
			if err := ftsUpsert(tx, d.Path, t); err != nil {
				return err
			}
		}
	}

	return tx.Commit()
}

// DeleteDay removes a day and its tasks.
func (db *DB) DeleteDay(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM tasks WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM days WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a day file, or empty string if not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM days WHERE path = ?`, path).Scan(&cs)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("index: checksum: %w", err)
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed day.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM days`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// CountTasks returns the number of indexed tasks.
func (db *DB) CountTasks() (int, error) {
	var n int
	if err := db.conn.QueryRow(`SELECT count(*) FROM tasks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("index: count: %w", err)
	}
	return n, nil
}

func scanResults(rows *sql.Rows) ([]SearchResult, error) {
	defer rows.Close()
	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Date, &r.Index, &r.ID, &r.Text, &r.Done, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
