package taskservice

import (
	"context"
	"fmt"

	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/daystore"
	"github.com/starford/tusk/internal/models"
	"github.com/starford/tusk/internal/parser"
)

// Completion selects how SetDone changes done_at.
type Completion int

const (
	MarkDone Completion = iota
	MarkUndone
	Toggle
)

// SetDone applies c to every selected task on d and saves once.
func (s *Service) SetDone(_ context.Context, d dates.Date, sels []models.Selector, c Completion) ([]models.Task, error) {
	day, err := s.store.Load(d)
	if err != nil {
		return nil, err
	}
	positions, err := resolveAll(day, sels)
	if err != nil {
		return nil, err
	}

	now := s.store.Now().UTC()
	out := make([]models.Task, 0, len(positions))
	for _, pos := range positions {
		t := &day.Tasks[pos]
		done := c == MarkDone || (c == Toggle && !t.Done())
		switch {
		case done && !t.Done():
			stamp := now
			t.DoneAt = &stamp
		case !done:
			t.DoneAt = nil
		}
		out = append(out, t.Clone())
	}
	if err := s.store.Save(day); err != nil {
		return nil, err
	}
	return out, nil
}

// Remove deletes every selected task on d. Either all selectors resolve
// and all tasks go, or nothing changes.
func (s *Service) Remove(_ context.Context, d dates.Date, sels []models.Selector) ([]models.Task, error) {
	day, err := s.store.Load(d)
	if err != nil {
		return nil, err
	}
	positions, err := resolveAll(day, sels)
	if err != nil {
		return nil, err
	}

	drop := make(map[int]struct{}, len(positions))
	for _, pos := range positions {
		drop[pos] = struct{}{}
	}
	var removed []models.Task
	kept := make([]models.Task, 0, len(day.Tasks)-len(drop))
	for i, t := range day.Tasks {
		if _, ok := drop[i]; ok {
			removed = append(removed, t)
			continue
		}
		kept = append(kept, t)
	}
	day.Tasks = kept
	day.Renumber()

	if err := s.store.Save(day); err != nil {
		return nil, err
	}
	return removed, nil
}

// EditOptions carries the optional new values for Edit. Nil means "leave as is".
type EditOptions struct {
	Text     *string
	Notes    *string
	Priority *models.Priority
}

// EditResult is the updated task and any advisory parser warnings.
type EditResult struct {
	Task     models.Task      `json:"task"`
	Warnings []parser.Warning `json:"-"`
}

// Edit merges new values into the selected task. Attributes absent from
// the new text keep their stored values; explicit notes and priority
// always apply.
func (s *Service) Edit(_ context.Context, d dates.Date, sel models.Selector, opts EditOptions) (*EditResult, error) {
	if opts.Text == nil && opts.Notes == nil && opts.Priority == nil {
		return nil, fmt.Errorf("%w: nothing to edit", apperr.ErrInvalidArgument)
	}
	day, err := s.store.Load(d)
	if err != nil {
		return nil, err
	}
	pos, err := daystore.Resolve(day, sel)
	if err != nil {
		return nil, err
	}
	t := &day.Tasks[pos]

	var warnings []parser.Warning
	if opts.Text != nil {
		res := parser.Parse(*opts.Text, parser.Options{Date: day.Date, Location: day.Location()})
		warnings = res.Warnings
		if res.Text != "" {
			t.Text = res.Text
		}
		if res.Priority != nil {
			t.Priority = *res.Priority
		}
		if len(res.Tags) > 0 {
			t.Tags = res.Tags
		}
		if res.Estimate != nil {
			t.Estimate = res.Estimate
		}
		if res.Due != nil {
			t.Due = res.Due
		}
	}
	if opts.Notes != nil {
		t.Notes = *opts.Notes
	}
	if opts.Priority != nil {
		t.Priority = *opts.Priority
	}

	if err := s.store.Save(day); err != nil {
		return nil, err
	}
	return &EditResult{Task: t.Clone(), Warnings: warnings}, nil
}

// MoveTarget says where Move puts the task. Exactly one field must be set.
type MoveTarget struct {
	Index  *int
	Up     bool
	Down   bool
	Before models.Selector
	After  models.Selector
}

func (m MoveTarget) validate() error {
	n := 0
	if m.Index != nil {
		n++
	}
	if m.Up {
		n++
	}
	if m.Down {
		n++
	}
	if !m.Before.IsZero() {
		n++
	}
	if !m.After.IsZero() {
		n++
	}
	switch {
	case n == 0:
		return fmt.Errorf("%w: one of --index, --up, --down, --before or --after is required", apperr.ErrInvalidArgument)
	case n > 1:
		return fmt.Errorf("%w: --index, --up, --down, --before and --after are mutually exclusive", apperr.ErrConflict)
	}
	return nil
}

// Move relocates the selected task and renumbers the day. Targets outside
// 1..N clamp to the nearest bound.
func (s *Service) Move(_ context.Context, d dates.Date, sel models.Selector, target MoveTarget) (models.Task, error) {
	if err := target.validate(); err != nil {
		return models.Task{}, err
	}
	day, err := s.store.Load(d)
	if err != nil {
		return models.Task{}, err
	}
	pos, err := daystore.Resolve(day, sel)
	if err != nil {
		return models.Task{}, err
	}

	var refID string
	if ref := firstSet(target.Before, target.After); !ref.IsZero() {
		refPos, err := daystore.Resolve(day, ref)
		if err != nil {
			return models.Task{}, err
		}
		if refPos == pos {
			return day.Tasks[pos].Clone(), nil
		}
		refID = day.Tasks[refPos].ID
	}

	moving := day.Tasks[pos]
	rest := make([]models.Task, 0, len(day.Tasks)-1)
	rest = append(rest, day.Tasks[:pos]...)
	rest = append(rest, day.Tasks[pos+1:]...)

	var at int
	switch {
	case target.Index != nil:
		at = *target.Index - 1
	case target.Up:
		at = pos - 1
	case target.Down:
		at = pos + 1
	default:
		for i, t := range rest {
			if t.ID == refID {
				at = i
				break
			}
		}
		if !target.After.IsZero() {
			at++
		}
	}
	at = max(0, min(at, len(rest)))

	out := make([]models.Task, 0, len(day.Tasks))
	out = append(out, rest[:at]...)
	out = append(out, moving)
	out = append(out, rest[at:]...)
	day.Tasks = out
	day.Renumber()

	if err := s.store.Save(day); err != nil {
		return models.Task{}, err
	}
	return day.Tasks[at].Clone(), nil
}

func firstSet(sels ...models.Selector) models.Selector {
	for _, s := range sels {
		if !s.IsZero() {
			return s
		}
	}
	return models.Selector{}
}
