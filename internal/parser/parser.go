// Package parser extracts inline task metadata (priority, tags, estimate and
// due time) from free-form task text.
package parser

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/models"
)

var (
	estimateRe = regexp.MustCompile(`^@(?:(\d+)h(?:(\d+)m)?|(\d+)m(?:(\d+)h)?)$`)
	dueClockRe = regexp.MustCompile(`^>(\d{1,2}):(\d{2})$`)
	dueFullRe  = regexp.MustCompile(`^>(\d{4}-\d{2}-\d{2}T\d{2}:\d{2})(Z|[+-]\d{2}:\d{2})?$`)
)

var priorityTokens = map[string]models.Priority{
	"!high": models.PriorityHigh,
	"!med":  models.PriorityMed,
	"!low":  models.PriorityLow,
}

// Options carries the context needed to resolve bare due times.
type Options struct {
	// Date is the day the task belongs to.
	Date dates.Date
	// Location is the day's time zone. Nil means UTC.
	Location *time.Location
}

// Result holds the clean text and the attributes found in it. Pointer
// fields are nil when the corresponding token was absent.
type Result struct {
	Text     string
	Priority *models.Priority
	Tags     []string
	Estimate *int64
	Due      *time.Time
	Warnings []Warning
}

// Warning describes a token that looked like metadata but did not parse.
// It is advisory only; the token stays in the clean text.
type Warning struct {
	Token  string
	Reason string
}

func (w Warning) Error() string {
	return fmt.Sprintf("%s: %s", w.Token, w.Reason)
}

// Unwrap lets callers classify warnings with errors.Is.
func (w Warning) Unwrap() error {
	return apperr.ErrParseWarning
}

// Parse scans raw left to right. Repeated priority, estimate and due tokens
// overwrite each other so the last one wins; every tag is collected. Parse
// never fails.
func Parse(raw string, opts Options) Result {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}

	var res Result
	seen := make(map[string]struct{})
	kept := make([]string, 0, 8)

	for _, tok := range strings.Fields(raw) {
		if p, ok := priorityTokens[tok]; ok {
			res.Priority = &p
			continue
		}

		switch tok[0] {
		case '#':
			if len(tok) > 1 {
				tag := tok[1:]
				if _, dup := seen[tag]; !dup {
					seen[tag] = struct{}{}
					res.Tags = append(res.Tags, tag)
				}
				continue
			}
		case '@':
			if len(tok) > 1 {
				if secs, ok := parseEstimate(tok); ok {
					res.Estimate = &secs
					continue
				}
				res.Warnings = append(res.Warnings, Warning{Token: tok, Reason: "not an estimate, expected @1h, @15m or @1h30m"})
			}
		case '>':
			if len(tok) > 1 {
				if due, ok := parseDue(tok, opts.Date, loc); ok {
					res.Due = &due
					continue
				}
				res.Warnings = append(res.Warnings, Warning{Token: tok, Reason: "not a due time, expected >HH:MM or >YYYY-MM-DDTHH:MM"})
			}
		}
		kept = append(kept, tok)
	}

	res.Text = strings.Join(kept, " ")
	return res
}

// parseEstimate converts @<n>h, @<n>m or a combination in either order into seconds.
func parseEstimate(tok string) (int64, bool) {
	m := estimateRe.FindStringSubmatch(tok)
	if m == nil {
		return 0, false
	}
	hours, mins := m[1], m[2]
	if m[3] != "" {
		mins, hours = m[3], m[4]
	}
	var total int64
	for _, part := range []struct {
		digits string
		unit   int64
	}{{hours, 3600}, {mins, 60}} {
		if part.digits == "" {
			continue
		}
		n, err := strconv.ParseInt(part.digits, 10, 64)
		if err != nil || n > (math.MaxInt64-total)/part.unit {
			return 0, false
		}
		total += n * part.unit
	}
	return total, true
}

// parseDue resolves >HH:MM against day in loc, or parses a full local
// timestamp with an optional explicit offset.
func parseDue(tok string, day dates.Date, loc *time.Location) (time.Time, bool) {
	if m := dueClockRe.FindStringSubmatch(tok); m != nil {
		h, _ := strconv.Atoi(m[1])
		mi, _ := strconv.Atoi(m[2])
		if h > 23 || mi > 59 || day.IsZero() {
			return time.Time{}, false
		}
		return day.At(h, mi, loc).UTC(), true
	}
	if m := dueFullRe.FindStringSubmatch(tok); m != nil {
		if m[2] != "" {
			t, err := time.Parse("2006-01-02T15:04Z07:00", m[1]+m[2])
			if err != nil {
				return time.Time{}, false
			}
			return t.UTC(), true
		}
		t, err := time.ParseInLocation("2006-01-02T15:04", m[1], loc)
		if err != nil {
			return time.Time{}, false
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}
