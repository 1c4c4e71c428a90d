package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/query"
)

var htmlRenderer = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Markdown renders entries as one checklist per day. Days without entries
// are skipped. Notes follow their task as an indented paragraph.
func Markdown(r dates.Range, entries []query.Entry, loc *time.Location) string {
	var b strings.Builder
	title := r.From.String()
	if r.To != r.From {
		title += " to " + r.To.String()
	}
	fmt.Fprintf(&b, "# Tasks %s\n", title)

	var last dates.Date
	for i, e := range entries {
		if i == 0 || e.Date != last {
			fmt.Fprintf(&b, "\n## %s\n\n", e.Date)
			last = e.Date
		}
		box := " "
		if e.Task.Done() {
			box = "x"
		}
		fmt.Fprintf(&b, "- [%s] %s\n", box, Line(e.Task, e.Date, loc))
		if notes := strings.TrimSpace(e.Task.Notes); notes != "" {
			b.WriteString("\n")
			for _, line := range strings.Split(notes, "\n") {
				b.WriteString("  " + line + "\n")
			}
			b.WriteString("\n")
		}
	}
	if len(entries) == 0 {
		b.WriteString("\nNo tasks.\n")
	}
	return b.String()
}

// HTML converts Markdown (as produced by Markdown) to an HTML fragment.
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := htmlRenderer.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("render: html: %w", err)
	}
	return buf.String(), nil
}
