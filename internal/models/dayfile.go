package models

import (
	"fmt"
	"time"

	"github.com/starford/tusk/internal/dates"
)

// DayFile is the persisted record set for one calendar date.
type DayFile struct {
	Date     dates.Date `json:"date"`
	TimeZone string     `json:"tz"`
	Tasks    []Task     `json:"items"`
}

// Location resolves the day's time zone label with dates.Zone.
func (d *DayFile) Location() *time.Location {
	return dates.Zone(d.TimeZone)
}

// NextIndex returns max(existing indices)+1, or 1 for an empty day.
func (d *DayFile) NextIndex() int {
	next := 1
	for _, t := range d.Tasks {
		if t.Index >= next {
			next = t.Index + 1
		}
	}
	return next
}

// Renumber rewrites every index to its 1-based slice position.
func (d *DayFile) Renumber() {
	for i := range d.Tasks {
		d.Tasks[i].Index = i + 1
	}
}

// CheckDense verifies that indices form exactly 1..N in slice order.
func (d *DayFile) CheckDense() error {
	for i, t := range d.Tasks {
		if t.Index != i+1 {
			return fmt.Errorf("day %s: task %s has index %d at position %d", d.Date, t.ID, t.Index, i+1)
		}
	}
	return nil
}

// Clone returns a deep copy safe to mutate independently.
func (d *DayFile) Clone() *DayFile {
	out := &DayFile{Date: d.Date, TimeZone: d.TimeZone, Tasks: make([]Task, len(d.Tasks))}
	for i, t := range d.Tasks {
		out.Tasks[i] = t.Clone()
	}
	return out
}

// Clone returns a deep copy of t.
func (t Task) Clone() Task {
	c := t
	c.Tags = append([]string(nil), t.Tags...)
	if t.Tags != nil && c.Tags == nil {
		c.Tags = []string{}
	}
	if t.DoneAt != nil {
		v := *t.DoneAt
		c.DoneAt = &v
	}
	if t.Estimate != nil {
		v := *t.Estimate
		c.Estimate = &v
	}
	if t.Due != nil {
		v := *t.Due
		c.Due = &v
	}
	if t.MigratedFrom != nil {
		v := *t.MigratedFrom
		c.MigratedFrom = &v
	}
	return c
}
