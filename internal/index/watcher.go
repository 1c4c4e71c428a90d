package index

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/tusk/internal/daystore"
	"github.com/starford/tusk/internal/storage"
)

// Event kinds passed to EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// EventCallback is called after the watcher changes the index. path is the
// day file relative to the vault root.
type EventCallback func(kind string, path string)

// settleDelay batches the burst of events one atomic save produces.
const settleDelay = 75 * time.Millisecond

type watcher struct {
	fsw    *fsnotify.Watcher
	db     *DB
	store  storage.Provider
	root   string
	logger *slog.Logger
	notify EventCallback

	dirty    map[string]struct{}
	rescan   bool
	settle   *time.Timer
	settleCh <-chan time.Time
}

// Watch keeps the index in step with edits made to the vault by other
// processes until ctx is cancelled. Each changed day file is re-read once
// its writes settle. Day files whose checksum matches the index are left
// alone, so a save through tusk itself yields one callback, not several.
func Watch(ctx context.Context, db *DB, store storage.Provider, logger *slog.Logger, cb EventCallback) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	w := &watcher{
		fsw:    fsw,
		db:     db,
		store:  store,
		root:   store.Root(),
		logger: logger,
		notify: cb,
		dirty:  make(map[string]struct{}),
	}
	if err := w.watchTree(w.root); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("root", w.root))

	for {
		select {
		case <-ctx.Done():
			if w.settle != nil {
				w.settle.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)

		case <-w.settleCh:
			w.flush()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", err.Error()))
		}
	}
}

func (w *watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			// A new year or month directory. Its files may have landed
			// before the watch was in place.
			if err := w.watchTree(ev.Name); err != nil {
				w.logger.Warn("watcher: add dir failed",
					slog.String("path", ev.Name),
					slog.String("error", err.Error()))
			}
			w.rescan = true
			w.schedule()
			return
		}
	}

	rel, ok := w.dayPath(ev.Name)
	if !ok {
		// Renaming or removing a year or month directory moves many days
		// at once.
		if ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove) {
			w.rescan = true
			w.schedule()
		}
		return
	}
	if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
		return
	}
	w.dirty[rel] = struct{}{}
	w.schedule()
}

func (w *watcher) schedule() {
	if w.settle == nil {
		w.settle = time.NewTimer(settleDelay)
		w.settleCh = w.settle.C
		return
	}
	w.settle.Reset(settleDelay)
}

// flush applies every pending change. A rescan compares the whole vault
// with the index instead of the dirty set alone.
func (w *watcher) flush() {
	if w.rescan {
		w.rescan = false
		if err := w.markAll(); err != nil {
			w.logger.Warn("watcher: rescan failed", slog.String("error", err.Error()))
		}
	}
	for rel := range w.dirty {
		delete(w.dirty, rel)
		w.apply(rel)
	}
}

// markAll queues every day on disk and every day in the index.
func (w *watcher) markAll() error {
	indexed, err := w.db.AllChecksums()
	if err != nil {
		return err
	}
	for p := range indexed {
		w.dirty[p] = struct{}{}
	}
	metas, err := w.store.List("", dayExt)
	if err != nil {
		return err
	}
	for _, m := range metas {
		if _, ok := daystore.DateFromPath(m.Path); ok {
			w.dirty[m.Path] = struct{}{}
		}
	}
	return nil
}

// apply brings one day's index rows in line with its file.
func (w *watcher) apply(rel string) {
	log := w.logger.With(slog.String("path", rel))

	have, err := w.db.GetChecksum(rel)
	if err != nil {
		log.Warn("watcher: checksum lookup failed", slog.String("error", err.Error()))
		return
	}

	data, err := w.store.Read(rel)
	if errors.Is(err, fs.ErrNotExist) {
		if have == "" {
			return
		}
		if err := w.db.DeleteDay(rel); err != nil {
			log.Warn("watcher: delete failed", slog.String("error", err.Error()))
			return
		}
		log.Debug("watcher: removed")
		w.emit(EventDeleted, rel)
		return
	}
	if err != nil {
		log.Warn("watcher: read failed", slog.String("error", err.Error()))
		return
	}
	if storage.Checksum(data) == have {
		return
	}

	if err := indexFile(w.db, rel, data); err != nil {
		// Usually an editor mid-save. The next write event retries.
		log.Warn("watcher: index failed", slog.String("error", err.Error()))
		return
	}
	kind := EventUpdated
	if have == "" {
		kind = EventCreated
	}
	log.Debug("watcher: indexed", slog.String("op", kind))
	w.emit(kind, rel)
}

func (w *watcher) emit(kind, rel string) {
	if w.notify != nil {
		w.notify(kind, rel)
	}
}

// watchTree adds dir and every directory below it, skipping hidden ones.
func (w *watcher) watchTree(dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != w.root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// dayPath converts an absolute path into the slash form used by the
// store, and reports whether it names a day file.
func (w *watcher) dayPath(abs string) (string, bool) {
	rel, err := filepath.Rel(w.root, abs)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if _, ok := daystore.DateFromPath(rel); !ok {
		return "", false
	}
	return rel, true
}
