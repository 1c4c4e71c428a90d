// Package query aggregates day files over a date range and filters, sorts
// and limits the result into the view callers render.
package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/models"
)

// Entry is one task together with the day it belongs to.
type Entry struct {
	Date dates.Date  `json:"date"`
	Task models.Task `json:"task"`
}

// Loader is the slice of the day store the aggregator needs.
type Loader interface {
	Load(d dates.Date) (*models.DayFile, error)
	Exists(d dates.Date) (bool, error)
}

// Aggregate loads every existing day file in r in ascending date order and
// flattens them, keeping on-disk index order within each day. Days without
// a file contribute nothing.
func Aggregate(l Loader, r dates.Range) ([]Entry, error) {
	var out []Entry
	for _, d := range r.Days() {
		ok, err := l.Exists(d)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		day, err := l.Load(d)
		if err != nil {
			return nil, err
		}
		for _, t := range day.Tasks {
			out = append(out, Entry{Date: d, Task: t})
		}
	}
	return out, nil
}

// SortKey names the ordering applied by Run.
type SortKey string

const (
	SortIndex    SortKey = "index"
	SortCreated  SortKey = "created"
	SortDue      SortKey = "due"
	SortPriority SortKey = "priority"
	SortStatus   SortKey = "status"
)

// ParseSortKey validates a user supplied sort key. Empty means index.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return SortIndex, nil
	case SortIndex, SortCreated, SortDue, SortPriority, SortStatus:
		return k, nil
	}
	return "", fmt.Errorf("%w: unknown sort key %q", apperr.ErrInvalidArgument, s)
}

// Filter selects entries; all set criteria must match.
type Filter struct {
	Open     bool
	Done     bool
	Tags     []string
	Priority *models.Priority
}

// Validate rejects mutually exclusive criteria.
func (f Filter) Validate() error {
	if f.Open && f.Done {
		return fmt.Errorf("%w: --open and --done are mutually exclusive", apperr.ErrConflict)
	}
	return nil
}

// Match reports whether t satisfies every criterion of f.
func (f Filter) Match(t models.Task) bool {
	if f.Open && t.Done() {
		return false
	}
	if f.Done && !t.Done() {
		return false
	}
	if f.Priority != nil && t.Priority != *f.Priority {
		return false
	}
	if len(f.Tags) > 0 {
		hit := false
		for _, tag := range f.Tags {
			if t.HasTag(tag) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	return true
}

// Options controls Run.
type Options struct {
	Filter  Filter
	Sort    SortKey
	Reverse bool
	Limit   int // <= 0 means unlimited
}

// Result is the ordered view plus the match count before limiting.
type Result struct {
	Entries []Entry `json:"entries"`
	Total   int     `json:"total"`
}

// Run filters, sorts, reverses and limits entries. The input slice is not
// modified.
func Run(entries []Entry, opts Options) (Result, error) {
	if err := opts.Filter.Validate(); err != nil {
		return Result{}, err
	}
	key := opts.Sort
	if key == "" {
		key = SortIndex
	}

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if opts.Filter.Match(e.Task) {
			out = append(out, e)
		}
	}

	cmp := comparator(key)
	sort.SliceStable(out, func(i, j int) bool {
		if c := cmp(out[i], out[j]); c != 0 {
			return c < 0
		}
		return byIndex(out[i], out[j]) < 0
	})

	if opts.Reverse {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}

	total := len(out)
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return Result{Entries: out, Total: total}, nil
}

func comparator(key SortKey) func(a, b Entry) int {
	switch key {
	case SortCreated:
		return func(a, b Entry) int {
			return a.Task.CreatedAt.Compare(b.Task.CreatedAt)
		}
	case SortDue:
		return func(a, b Entry) int {
			switch {
			case a.Task.Due == nil && b.Task.Due == nil:
				return 0
			case a.Task.Due == nil:
				return 1
			case b.Task.Due == nil:
				return -1
			}
			return a.Task.Due.Compare(*b.Task.Due)
		}
	case SortPriority:
		return func(a, b Entry) int {
			return b.Task.Priority.Rank() - a.Task.Priority.Rank()
		}
	case SortStatus:
		return func(a, b Entry) int {
			return boolRank(a.Task.Done()) - boolRank(b.Task.Done())
		}
	default:
		return func(a, b Entry) int {
			if c := compareDates(a.Date, b.Date); c != 0 {
				return c
			}
			return a.Task.Index - b.Task.Index
		}
	}
}

// byIndex is the tie-breaker: index ascending, then date ascending.
func byIndex(a, b Entry) int {
	if c := a.Task.Index - b.Task.Index; c != 0 {
		return c
	}
	return compareDates(a.Date, b.Date)
}

func compareDates(a, b dates.Date) int {
	switch {
	case a.Before(b):
		return -1
	case b.Before(a):
		return 1
	}
	return 0
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}
