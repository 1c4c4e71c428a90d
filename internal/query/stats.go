package query

import (
	"sort"
	"time"
)

// TagCount is one row of the tag frequency table.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Stats summarises a result set for the review view.
type Stats struct {
	Total           int        `json:"total"`
	Open            int        `json:"open"`
	Done            int        `json:"done"`
	Overdue         int        `json:"overdue"`
	Tags            []TagCount `json:"tags"`
	Estimated       int        `json:"estimated"`
	TotalEstimate   int64      `json:"total_estimate"`
	AverageEstimate int64      `json:"average_estimate"`
}

// Summarize folds entries into Stats. Overdue counts open tasks whose due
// time is before now. The average is taken over tasks that carry an
// estimate and rounds down to whole seconds.
func Summarize(entries []Entry, now time.Time) Stats {
	var s Stats
	counts := make(map[string]int)
	var order []string

	for _, e := range entries {
		t := e.Task
		s.Total++
		if t.Done() {
			s.Done++
		} else {
			s.Open++
		}
		if t.Overdue(now) {
			s.Overdue++
		}
		if t.Estimate != nil {
			s.Estimated++
			s.TotalEstimate += *t.Estimate
		}
		for _, tag := range t.Tags {
			if _, ok := counts[tag]; !ok {
				order = append(order, tag)
			}
			counts[tag]++
		}
	}

	if s.Estimated > 0 {
		s.AverageEstimate = s.TotalEstimate / int64(s.Estimated)
	}

	s.Tags = make([]TagCount, 0, len(order))
	for _, tag := range order {
		s.Tags = append(s.Tags, TagCount{Tag: tag, Count: counts[tag]})
	}
	sort.SliceStable(s.Tags, func(i, j int) bool { return s.Tags[i].Count > s.Tags[j].Count })
	return s
}
