// Package taskservice coordinates the parser, the day store and the query
// engine into the verbs the command surface exposes.
package taskservice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/daystore"
	"github.com/starford/tusk/internal/models"
	"github.com/starford/tusk/internal/parser"
	"github.com/starford/tusk/internal/query"
)

// Service executes reads and mutations against the day store.
type Service struct {
	store    *daystore.Store
	priority models.Priority
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithDefaultPriority sets the priority used when add text carries none.
func WithDefaultPriority(p models.Priority) Option {
	return func(s *Service) {
		s.priority = p
	}
}

// WithLogger sets the logger used for recovery diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		s.logger = l
	}
}

// NewService creates a new task service.
func NewService(store *daystore.Store, opts ...Option) *Service {
	s := &Service{store: store, priority: models.PriorityNone, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying day store.
func (s *Service) Store() *daystore.Store {
	return s.store
}

// Day loads a single day file.
func (s *Service) Day(_ context.Context, d dates.Date) (*models.DayFile, error) {
	return s.store.Load(d)
}

// List aggregates r and runs the query engine over it.
func (s *Service) List(_ context.Context, r dates.Range, opts query.Options) (query.Result, error) {
	if err := opts.Filter.Validate(); err != nil {
		return query.Result{}, err
	}
	entries, err := query.Aggregate(s.store, r)
	if err != nil {
		return query.Result{}, err
	}
	return query.Run(entries, opts)
}

// Review summarises every task in r.
func (s *Service) Review(_ context.Context, r dates.Range) (query.Stats, error) {
	entries, err := query.Aggregate(s.store, r)
	if err != nil {
		return query.Stats{}, err
	}
	return query.Summarize(entries, s.store.Now()), nil
}

// AddOptions are the explicit flags accepted by Add.
type AddOptions struct {
	Priority *models.Priority
	Notes    string
}

// AddResult is the created task and any advisory parser warnings.
type AddResult struct {
	Date     dates.Date       `json:"date"`
	Task     models.Task      `json:"task"`
	Warnings []parser.Warning `json:"-"`
}

// Add parses text, appends the task to d and saves the day.
func (s *Service) Add(_ context.Context, d dates.Date, text string, opts AddOptions) (*AddResult, error) {
	day, err := s.store.Load(d)
	if err != nil {
		return nil, err
	}
	res := parser.Parse(text, parser.Options{Date: day.Date, Location: day.Location()})
	if res.Text == "" {
		return nil, fmt.Errorf("%w: task text is empty", apperr.ErrInvalidArgument)
	}

	prio := s.priority
	if res.Priority != nil {
		prio = *res.Priority
	}
	if opts.Priority != nil {
		prio = *opts.Priority
	}

	task := s.store.Append(day, res.Text, models.Attributes{
		Priority: prio,
		Tags:     res.Tags,
		Estimate: res.Estimate,
		Due:      res.Due,
		Notes:    opts.Notes,
	})
	if err := s.store.Save(day); err != nil {
		return nil, err
	}
	return &AddResult{Date: d, Task: task, Warnings: res.Warnings}, nil
}

// resolveAll resolves every selector before anything is changed, so a bad
// selector aborts the whole operation. Duplicates collapse.
func resolveAll(day *models.DayFile, sels []models.Selector) ([]int, error) {
	if len(sels) == 0 {
		return nil, fmt.Errorf("%w: no task selected", apperr.ErrInvalidArgument)
	}
	seen := make(map[int]struct{}, len(sels))
	var out []int
	for _, sel := range sels {
		pos, err := daystore.Resolve(day, sel)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[pos]; dup {
			continue
		}
		seen[pos] = struct{}{}
		out = append(out, pos)
	}
	return out, nil
}
