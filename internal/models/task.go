// Package models defines the domain types for tusk.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/dates"
)

// Priority is the urgency attached to a task.
type Priority string

const (
	PriorityHigh Priority = "high"
	PriorityMed  Priority = "med"
	PriorityLow  Priority = "low"
	PriorityNone Priority = "none"
)

// ParsePriority accepts high, med (or medium), low and none, case-insensitively.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "high":
		return PriorityHigh, nil
	case "med", "medium":
		return PriorityMed, nil
	case "low":
		return PriorityLow, nil
	case "none", "":
		return PriorityNone, nil
	}
	return "", fmt.Errorf("%w: unknown priority %q (want high, med, low or none)", apperr.ErrInvalidArgument, s)
}

// Rank orders priorities from most (3) to least (0) urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMed:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// UnmarshalText implements encoding.TextUnmarshaler. Empty values decode to none.
func (p *Priority) UnmarshalText(b []byte) error {
	v, err := ParsePriority(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Task is one record in a day file.
type Task struct {
	ID           string      `json:"id"`
	Text         string      `json:"text"`
	CreatedAt    time.Time   `json:"created_at"`
	DoneAt       *time.Time  `json:"done_at"`
	Priority     Priority    `json:"priority"`
	Tags         []string    `json:"tags"`
	Estimate     *int64      `json:"estimate,omitempty"`
	Due          *time.Time  `json:"due"`
	Notes        string      `json:"notes,omitempty"`
	Index        int         `json:"index"`
	MigratedFrom *dates.Date `json:"migrated_from,omitempty"`
}

// Done reports whether the task is complete.
func (t Task) Done() bool {
	return t.DoneAt != nil
}

// HasTag reports whether tag is in the task's tag set (case-sensitive).
func (t Task) HasTag(tag string) bool {
	for _, have := range t.Tags {
		if have == tag {
			return true
		}
	}
	return false
}

// Overdue reports whether an open task's due time is before now.
func (t Task) Overdue(now time.Time) bool {
	return !t.Done() && t.Due != nil && t.Due.Before(now)
}

// Attributes are the task fields supplied when a record is created.
type Attributes struct {
	Priority     Priority
	Tags         []string
	Estimate     *int64
	Due          *time.Time
	Notes        string
	MigratedFrom *dates.Date
}
