package api

import (
	"github.com/starford/tusk/internal/index"
	"github.com/starford/tusk/internal/models"
	"github.com/starford/tusk/internal/query"
)

// DayResponse is a single day file.
type DayResponse = models.DayFile

// TaskEntry is one task together with the day it lives on.
type TaskEntry = query.Entry

// TaskListResponse wraps a query result. Total counts matches before the limit.
type TaskListResponse struct {
	Entries []TaskEntry `json:"entries" validate:"required"`
	Total   int         `json:"total" example:"42" validate:"required"`
}

// StatsResponse is the review fold over a date range.
type StatsResponse struct {
	From  string      `json:"from" example:"2025-09-01"`
	To    string      `json:"to" example:"2025-09-07"`
	Stats query.Stats `json:"stats"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []index.SearchResult `json:"results" validate:"required"`
}
