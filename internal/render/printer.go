// Package render turns tasks, query results and summaries into terminal
// output, JSON and Markdown/HTML exports.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/index"
	"github.com/starford/tusk/internal/models"
	"github.com/starford/tusk/internal/query"
)

var (
	dateStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	indexStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	doneTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Strikethrough(true)
	overdueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	tagStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	metaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	warnStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	labelStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	priorityStyles = map[models.Priority]lipgloss.Style{
		models.PriorityHigh: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		models.PriorityMed:  lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		models.PriorityLow:  lipgloss.NewStyle().Foreground(lipgloss.Color("82")),
	}
)

// ColorEnabled reports whether f should get ANSI colour: it must be a
// terminal, and neither --no-color nor NO_COLOR may be set.
func ColorEnabled(f *os.File, noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Printer writes human-readable output.
type Printer struct {
	out   io.Writer
	color bool
	loc   *time.Location
	now   time.Time
}

// NewPrinter creates a Printer. loc is used to show due times; now decides
// what counts as overdue.
func NewPrinter(out io.Writer, color bool, loc *time.Location, now time.Time) *Printer {
	if loc == nil {
		loc = time.Local
	}
	return &Printer{out: out, color: color, loc: loc, now: now}
}

func (p *Printer) paint(s lipgloss.Style, text string) string {
	if !p.color {
		return text
	}
	return s.Render(text)
}

// TaskLine formats a single task: index, checkbox, text, then metadata.
func (p *Printer) TaskLine(day dates.Date, t models.Task) string {
	box := "[ ]"
	text := t.Text
	switch {
	case t.Done():
		box = p.paint(doneStyle, "[x]")
		text = p.paint(doneTextStyle, text)
	case t.Overdue(p.now):
		box = p.paint(overdueStyle, "[!]")
	}

	parts := []string{p.paint(indexStyle, fmt.Sprintf("%3d", t.Index)), box, text}
	if st, ok := priorityStyles[t.Priority]; ok {
		parts = append(parts, p.paint(st, "!"+string(t.Priority)))
	}
	for _, tag := range t.Tags {
		parts = append(parts, p.paint(tagStyle, "#"+tag))
	}
	if t.Estimate != nil {
		parts = append(parts, p.paint(metaStyle, "@"+Estimate(*t.Estimate)))
	}
	if t.Due != nil {
		due := Due(*t.Due, day, p.loc)
		if t.Overdue(p.now) {
			parts = append(parts, p.paint(overdueStyle, due))
		} else {
			parts = append(parts, p.paint(metaStyle, due))
		}
	}
	if t.MigratedFrom != nil {
		parts = append(parts, p.paint(metaStyle, "(from "+t.MigratedFrom.String()+")"))
	}
	return strings.Join(parts, " ")
}

// Entries prints a query result. A date header is printed whenever the
// date changes, so sorted multi-day output stays readable.
func (p *Printer) Entries(entries []query.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(p.out, p.paint(metaStyle, "no tasks"))
		return
	}
	var last dates.Date
	for i, e := range entries {
		if i == 0 || e.Date != last {
			if i > 0 {
				fmt.Fprintln(p.out)
			}
			fmt.Fprintln(p.out, p.paint(dateStyle, e.Date.String()))
			last = e.Date
		}
		fmt.Fprintln(p.out, p.TaskLine(e.Date, e.Task))
	}
}

// Count prints the number of matches, honouring limit semantics: total is
// the count before the limit was applied.
func (p *Printer) Count(total int) {
	fmt.Fprintln(p.out, total)
}

// Stats prints the review summary.
func (p *Printer) Stats(r dates.Range, s query.Stats) {
	header := r.From.String()
	if r.To != r.From {
		header += " to " + r.To.String()
	}
	fmt.Fprintln(p.out, p.paint(dateStyle, header))

	row := func(label string, value any) {
		fmt.Fprintf(p.out, "  %s %v\n", p.paint(labelStyle, fmt.Sprintf("%-10s", label)), value)
	}
	row("total", s.Total)
	row("open", s.Open)
	row("done", s.Done)
	if s.Overdue > 0 {
		row("overdue", p.paint(overdueStyle, fmt.Sprint(s.Overdue)))
	} else {
		row("overdue", 0)
	}
	if s.Estimated > 0 {
		row("estimated", fmt.Sprintf("%s over %d tasks (avg %s)",
			Estimate(s.TotalEstimate), s.Estimated, Estimate(s.AverageEstimate)))
	}
	if len(s.Tags) > 0 {
		tags := make([]string, 0, len(s.Tags))
		for _, tc := range s.Tags {
			tags = append(tags, fmt.Sprintf("%s (%d)", p.paint(tagStyle, "#"+tc.Tag), tc.Count))
		}
		row("tags", strings.Join(tags, " "))
	}
}

// SearchResults prints index hits, one per line.
func (p *Printer) SearchResults(results []index.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(p.out, p.paint(metaStyle, "no matches"))
		return
	}
	for _, r := range results {
		box := "[ ]"
		if r.Done {
			box = p.paint(doneStyle, "[x]")
		}
		fmt.Fprintf(p.out, "%s %s %s %s\n",
			p.paint(dateStyle, r.Date), p.paint(indexStyle, fmt.Sprintf("%3d", r.Index)), box, r.Text)
	}
}

// Warning prints an advisory message, typically to stderr.
func Warning(w io.Writer, color bool, msg string) {
	if color {
		msg = warnStyle.Render(msg)
	}
	fmt.Fprintln(w, "warning: "+msg)
}

// JSON writes v as indented JSON with a trailing newline.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
