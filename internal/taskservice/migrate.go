package taskservice

import (
	"context"
	"errors"
	"log/slog"

	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/models"
)

// MigrateResult reports what Migrate selected and, unless it was a dry
// run, the new records created on the destination day.
type MigrateResult struct {
	From     dates.Date    `json:"from"`
	To       dates.Date    `json:"to"`
	DryRun   bool          `json:"dry_run"`
	Selected []models.Task `json:"selected"`
	Created  []models.Task `json:"created"`
}

// Migrate moves every open task from one day to another. Copies get fresh
// ids and indices on the destination; done tasks stay where they are.
//
// The destination is written first and the source only if that succeeded.
// If the source write then fails, the destination is restored to its
// previous state so neither day shows a partial migration.
func (s *Service) Migrate(_ context.Context, from, to dates.Date, dryRun bool) (*MigrateResult, error) {
	res := &MigrateResult{From: from, To: to, DryRun: dryRun, Selected: []models.Task{}, Created: []models.Task{}}
	if from == to {
		return res, nil
	}

	src, err := s.store.Load(from)
	if err != nil {
		return nil, err
	}
	kept := make([]models.Task, 0, len(src.Tasks))
	for _, t := range src.Tasks {
		if t.Done() {
			kept = append(kept, t)
			continue
		}
		res.Selected = append(res.Selected, t.Clone())
	}
	if dryRun || len(res.Selected) == 0 {
		return res, nil
	}

	dstExisted, err := s.store.Exists(to)
	if err != nil {
		return nil, err
	}
	dst, err := s.store.Load(to)
	if err != nil {
		return nil, err
	}
	before := dst.Clone()

	// Stage both days in memory.
	src.Tasks = kept
	src.Renumber()
	for _, t := range res.Selected {
		origin := from
		c := t.Clone()
		res.Created = append(res.Created, s.store.Append(dst, c.Text, models.Attributes{
			Priority:     c.Priority,
			Tags:         c.Tags,
			Estimate:     c.Estimate,
			Due:          c.Due,
			Notes:        c.Notes,
			MigratedFrom: &origin,
		}))
	}

	if err := s.store.Save(dst); err != nil {
		return nil, err
	}
	if err := s.store.Save(src); err != nil {
		if rbErr := s.restore(before, dstExisted); rbErr != nil {
			s.logger.Error("migrate: destination rollback failed",
				slog.String("date", to.String()),
				slog.String("error", rbErr.Error()))
			return nil, errors.Join(err, rbErr)
		}
		return nil, err
	}

	s.logger.Debug("migrate: done",
		slog.String("from", from.String()),
		slog.String("to", to.String()),
		slog.Int("moved", len(res.Created)))
	return res, nil
}

func (s *Service) restore(day *models.DayFile, existed bool) error {
	if !existed {
		return s.store.Delete(day.Date)
	}
	return s.store.Save(day)
}
