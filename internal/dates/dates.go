// Package dates provides the calendar-date type used to key day files and
// helpers for resolving user supplied dates and ranges.
package dates

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/tusk/internal/apperr"
)

const layout = "2006-01-02"

// Date is a calendar date without a time of day or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Of returns the calendar date of t in t's own location.
func Of(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse parses an ISO YYYY-MM-DD date.
func Parse(s string) (Date, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q, use YYYY-MM-DD", apperr.ErrInvalidArgument, s)
	}
	return Of(t), nil
}

// Resolve parses s as an ISO date or one of the relative tokens
// today, yesterday and tomorrow, evaluated against now.
func Resolve(s string, now time.Time) (Date, error) {
	today := Of(now)
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "today":
		return today, nil
	case "yesterday":
		return today.AddDays(-1), nil
	case "tomorrow":
		return today.AddDays(1), nil
	}
	return Parse(strings.TrimSpace(s))
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// At returns the instant hour:min on d in loc.
func (d Date) At(hour, min int, loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, hour, min, 0, 0, loc)
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return Of(d.In(time.UTC).AddDate(0, 0, n))
}

// Before reports whether d is strictly before o.
func (d Date) Before(o Date) bool {
	return d.In(time.UTC).Before(o.In(time.UTC))
}

// After reports whether d is strictly after o.
func (d Date) After(o Date) bool {
	return o.Before(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}

// Range is an inclusive span of calendar dates.
type Range struct {
	From Date
	To   Date
}

// Single returns the one-day range covering d.
func Single(d Date) Range {
	return Range{From: d, To: d}
}

// NewRange validates that from does not come after to.
func NewRange(from, to Date) (Range, error) {
	if from.After(to) {
		return Range{}, fmt.Errorf("%w: range start %s is after end %s", apperr.ErrInvalidArgument, from, to)
	}
	return Range{From: from, To: to}, nil
}

// Contains reports whether d falls inside r.
func (r Range) Contains(d Date) bool {
	return !d.Before(r.From) && !d.After(r.To)
}

// Days lists every date in r in ascending order.
func (r Range) Days() []Date {
	var out []Date
	for d := r.From; !d.After(r.To); d = d.AddDays(1) {
		out = append(out, d)
	}
	return out
}

// Zone loads a time zone label as stored in config and day files. An
// empty label or "Local" is the host zone. A label the host cannot load
// falls back to UTC.
func Zone(label string) *time.Location {
	if label == "" || label == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(label)
	if err != nil {
		return time.UTC
	}
	return loc
}
