// Package daystore owns the per-day record files: loading, appending,
// selector resolution and atomic persistence.
package daystore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/models"
	"github.com/starford/tusk/internal/storage"
)

const fileExt = ".json"

// Store reads and writes day files through a storage.Provider.
type Store struct {
	fs       storage.Provider
	timeZone string
	now      func() time.Time
	newID    func() string
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for created_at.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithIDGenerator overrides task id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) {
		s.newID = gen
	}
}

// New creates a Store. timeZone labels newly created day files.
func New(p storage.Provider, timeZone string, opts ...Option) *Store {
	if timeZone == "" {
		timeZone = "Local"
	}
	s := &Store{
		fs:       p,
		timeZone: timeZone,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Provider exposes the underlying file provider.
func (s *Store) Provider() storage.Provider {
	return s.fs
}

// Now returns the store clock's current instant.
func (s *Store) Now() time.Time {
	return s.now()
}

// Location is the zone that decides which calendar day "today" is.
func (s *Store) Location() *time.Location {
	return dates.Zone(s.timeZone)
}

// ResolveDate accepts an ISO date or today/yesterday/tomorrow relative to
// the store clock.
func (s *Store) ResolveDate(str string) (dates.Date, error) {
	return dates.Resolve(str, s.now().In(s.Location()))
}

// PathFor returns the vault-relative path of d's file: YYYY/MM/YYYY-MM-DD.json.
func PathFor(d dates.Date) string {
	return path.Join(fmt.Sprintf("%04d", d.Year), fmt.Sprintf("%02d", int(d.Month)), d.String()+fileExt)
}

// DateFromPath recovers the date from a vault-relative day file path.
func DateFromPath(p string) (dates.Date, bool) {
	base := path.Base(p)
	if !strings.HasSuffix(base, fileExt) {
		return dates.Date{}, false
	}
	d, err := dates.Parse(strings.TrimSuffix(base, fileExt))
	if err != nil || PathFor(d) != p {
		return dates.Date{}, false
	}
	return d, true
}

// Load reads d's day file. A missing file yields an empty in-memory day
// that is not written until Save.
func (s *Store) Load(d dates.Date) (*models.DayFile, error) {
	data, err := s.fs.Read(PathFor(d))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &models.DayFile{Date: d, TimeZone: s.timeZone, Tasks: []models.Task{}}, nil
		}
		return nil, fmt.Errorf("%w: %w", apperr.ErrStoreFailure, err)
	}
	return Decode(d, data)
}

// Exists reports whether d has a file on disk.
func (s *Store) Exists(d dates.Date) (bool, error) {
	_, err := s.fs.Stat(PathFor(d))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: %w", apperr.ErrStoreFailure, err)
}

// Save writes day atomically. Indices must already be dense.
func (s *Store) Save(day *models.DayFile) error {
	if err := day.CheckDense(); err != nil {
		return fmt.Errorf("daystore: refusing to save: %w", err)
	}
	data, err := encode(day)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %w", apperr.ErrStoreFailure, day.Date, err)
	}
	if err := s.fs.Write(PathFor(day.Date), data); err != nil {
		return fmt.Errorf("%w: %w", apperr.ErrStoreFailure, err)
	}
	return nil
}

// Delete removes d's file. Missing files are not an error.
func (s *Store) Delete(d dates.Date) error {
	if err := s.fs.Delete(PathFor(d)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %w", apperr.ErrStoreFailure, err)
	}
	return nil
}

// Dates lists every date that has a day file, ascending.
func (s *Store) Dates() ([]dates.Date, error) {
	metas, err := s.fs.List("", fileExt)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", apperr.ErrStoreFailure, err)
	}
	var out []dates.Date
	for _, m := range metas {
		if d, ok := DateFromPath(m.Path); ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out, nil
}

// Append adds a new task at the end of day and returns a copy of it. The
// caller is responsible for Save.
func (s *Store) Append(day *models.DayFile, text string, attrs models.Attributes) models.Task {
	tags := attrs.Tags
	if tags == nil {
		tags = []string{}
	}
	prio := attrs.Priority
	if prio == "" {
		prio = models.PriorityNone
	}
	t := models.Task{
		ID:           s.newID(),
		Text:         text,
		CreatedAt:    s.now().UTC(),
		Priority:     prio,
		Tags:         tags,
		Estimate:     attrs.Estimate,
		Due:          attrs.Due,
		Notes:        attrs.Notes,
		Index:        day.NextIndex(),
		MigratedFrom: attrs.MigratedFrom,
	}
	day.Tasks = append(day.Tasks, t)
	return t.Clone()
}

// Resolve returns the slice position of the task sel names within day.
func Resolve(day *models.DayFile, sel models.Selector) (int, error) {
	if n, ok := sel.Index(); ok {
		if n < 1 || n > len(day.Tasks) {
			return 0, fmt.Errorf("%w: no task at index %d on %s (have %d)", apperr.ErrNotFound, n, day.Date, len(day.Tasks))
		}
		for i, t := range day.Tasks {
			if t.Index == n {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: no task at index %d on %s", apperr.ErrNotFound, n, day.Date)
	}
	if id, ok := sel.ID(); ok {
		for i, t := range day.Tasks {
			if t.ID == id {
				return i, nil
			}
		}
		return 0, fmt.Errorf("%w: no task with id %s on %s", apperr.ErrNotFound, id, day.Date)
	}
	return 0, fmt.Errorf("%w: empty selector", apperr.ErrInvalidArgument)
}

func encode(day *models.DayFile) ([]byte, error) {
	out := day.Clone()
	for i := range out.Tasks {
		if out.Tasks[i].Tags == nil {
			out.Tasks[i].Tags = []string{}
		}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode parses a day file read from disk. d is used when the file omits
// its own date.
func Decode(d dates.Date, data []byte) (*models.DayFile, error) {
	var day models.DayFile
	if err := json.Unmarshal(data, &day); err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", apperr.ErrStoreFailure, PathFor(d), err)
	}
	if day.Date.IsZero() {
		day.Date = d
	}
	if day.Tasks == nil {
		day.Tasks = []models.Task{}
	}
	// Hand-edited files may carry gaps; restore the dense order in memory.
	sort.SliceStable(day.Tasks, func(i, j int) bool { return day.Tasks[i].Index < day.Tasks[j].Index })
	day.Renumber()
	return &day, nil
}
