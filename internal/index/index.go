// Package index mirrors day files into SQLite so tasks can be searched
// across the whole vault, with optional FTS5 full-text search.
package index

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// TaskIndex defines the interface for task indexing operations.
// Consumers should depend on this interface rather than the concrete *DB type.
type TaskIndex interface {
	UpsertDay(d DayRow, tasks []TaskRow) error
	DeleteDay(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	Search(query string, limit int) ([]SearchResult, error)
	Close() error
}

// Verify *DB satisfies TaskIndex at compile time.
var _ TaskIndex = (*DB)(nil)

const coreSchemaSQL = `
CREATE TABLE IF NOT EXISTS days (
	path       TEXT PRIMARY KEY,
	date       TEXT NOT NULL,
	checksum   TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS tasks (
	path     TEXT NOT NULL,
	idx      INTEGER NOT NULL,
	id       TEXT NOT NULL,
	date     TEXT NOT NULL,
	text     TEXT NOT NULL DEFAULT '',
	notes    TEXT NOT NULL DEFAULT '',
	tags     TEXT NOT NULL DEFAULT '[]',
	priority TEXT NOT NULL DEFAULT 'none',
	done     INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (path, idx)
);

CREATE INDEX IF NOT EXISTS idx_tasks_date ON tasks(date);
CREATE INDEX IF NOT EXISTS idx_tasks_id ON tasks(id);
`

// schemaVersion is bumped whenever the tables change shape. The index is a
// cache of the vault, so a mismatch drops everything and the next Sync
// rebuilds it.
const schemaVersion = 1

// userVersion folds the FTS build flag into the stored version. A vault
// indexed by a build without FTS5 has an empty tasks_fts table, so
// switching builds has to rebuild as well.
func userVersion() int {
	v := schemaVersion << 1
	if ftsEnabled {
		v |= 1
	}
	return v
}

type DB struct {
	conn *sql.DB
}

// Open opens or creates the index at dsn and brings its schema up to date.
func Open(dsn string) (*DB, error) {
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("index: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("index: ping: %w", err)
	}
	if err := prepare(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func prepare(conn *sql.DB) error {
	var have int
	if err := conn.QueryRow(`PRAGMA user_version`).Scan(&have); err != nil {
		return fmt.Errorf("index: read schema version: %w", err)
	}
	want := userVersion()
	if have != 0 && have != want {
		// Without the fts5 module SQLite cannot drop the virtual table. It
		// stays behind unused until an FTS5 build rebuilds again.
		if _, err := conn.Exec(`DROP TABLE IF EXISTS tasks_fts`); err != nil && ftsEnabled {
			return fmt.Errorf("index: drop tasks_fts: %w", err)
		}
		for _, table := range []string{"tasks", "days"} {
			if _, err := conn.Exec(`DROP TABLE IF EXISTS ` + table); err != nil {
				return fmt.Errorf("index: drop %s: %w", table, err)
			}
		}
	}
	if _, err := conn.Exec(coreSchemaSQL); err != nil {
		return fmt.Errorf("index: apply core schema: %w", err)
	}
	if err := initFTS(conn); err != nil {
		return fmt.Errorf("index: apply fts schema: %w", err)
	}
	if _, err := conn.Exec(fmt.Sprintf(`PRAGMA user_version = %d`, want)); err != nil {
		return fmt.Errorf("index: write schema version: %w", err)
	}
	return nil
}

func (db *DB) Close() error {
	return db.conn.Close()
}
