package index

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/tusk/internal/daystore"
	"github.com/starford/tusk/internal/storage"
)

const dayExt = ".json"

// Sync compares every day file with the index by checksum. Changed days
// are re-indexed and days gone from disk are dropped. A day that fails to
// decode is logged and skipped so one hand-edited file cannot hide the
// rest of the vault from search.
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	indexed, err := db.AllChecksums()
	if err != nil {
		return err
	}
	metas, err := store.List("", dayExt)
	if err != nil {
		return err
	}

	var changed, failed, removed int
	for _, m := range metas {
		if _, ok := daystore.DateFromPath(m.Path); !ok {
			continue
		}
		have, known := indexed[m.Path]
		delete(indexed, m.Path)
		if known && have == m.Checksum {
			continue
		}

		log := logger.With(slog.String("path", m.Path))
		data, err := store.Read(m.Path)
		if err == nil {
			err = indexFile(db, m.Path, data)
		}
		if err != nil {
			failed++
			log.Warn("sync: skipped day", slog.String("error", err.Error()))
			continue
		}
		changed++
	}

	// Whatever is left in indexed has no file behind it any more.
	for p := range indexed {
		if err := db.DeleteDay(p); err != nil {
			logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			continue
		}
		removed++
	}

	logger.Debug("sync: done",
		slog.Int("days", len(metas)),
		slog.Int("indexed", changed),
		slog.Int("removed", removed),
		slog.Int("failed", failed))
	return nil
}

// indexFile decodes a day file and upserts it into the DB.
func indexFile(db *DB, path string, data []byte) error {
	d, ok := daystore.DateFromPath(path)
	if !ok {
		return fmt.Errorf("index: %s is not a day file", path)
	}
	day, err := daystore.Decode(d, data)
	if err != nil {
		return err
	}

	rows := make([]TaskRow, 0, len(day.Tasks))
	for _, t := range day.Tasks {
		rows = append(rows, TaskRow{
			ID:       t.ID,
			Index:    t.Index,
			Text:     t.Text,
			Notes:    t.Notes,
			Tags:     t.Tags,
			Priority: string(t.Priority),
			Done:     t.Done(),
		})
	}
	return db.UpsertDay(DayRow{
		Path:      path,
		Date:      d.String(),
		Checksum:  storage.Checksum(data),
		UpdatedAt: time.Now().UTC(),
	}, rows)
}
