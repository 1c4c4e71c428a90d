package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/models"
)

// Estimate formats seconds the way the parser accepts them: 15m, 2h, 1h30m.
func Estimate(secs int64) string {
	h, m := secs/3600, (secs%3600)/60
	switch {
	case h > 0 && m > 0:
		return fmt.Sprintf("%dh%dm", h, m)
	case h > 0:
		return fmt.Sprintf("%dh", h)
	}
	return fmt.Sprintf("%dm", m)
}

// Due formats a due time relative to the task's day: >HH:MM on that day,
// the full >YYYY-MM-DDTHH:MM form otherwise.
func Due(due time.Time, day dates.Date, loc *time.Location) string {
	local := due.In(loc)
	if dates.Of(local) == day {
		return ">" + local.Format("15:04")
	}
	return ">" + local.Format("2006-01-02T15:04")
}

// Tokens renders t's metadata back into inline syntax, in the order
// priority, tags, estimate, due. Priority none is omitted.
func Tokens(t models.Task, day dates.Date, loc *time.Location) []string {
	var out []string
	if t.Priority != "" && t.Priority != models.PriorityNone {
		out = append(out, "!"+string(t.Priority))
	}
	for _, tag := range t.Tags {
		out = append(out, "#"+tag)
	}
	if t.Estimate != nil {
		out = append(out, "@"+Estimate(*t.Estimate))
	}
	if t.Due != nil {
		out = append(out, Due(*t.Due, day, loc))
	}
	return out
}

// Line is the plain one-line form of t: its text followed by its tokens.
// Parsing Line(t) on the same day yields the same text and metadata.
func Line(t models.Task, day dates.Date, loc *time.Location) string {
	parts := append([]string{t.Text}, Tokens(t, day, loc)...)
	return strings.Join(parts, " ")
}
