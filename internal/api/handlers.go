package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/dates"
	"github.com/starford/tusk/internal/index"
	"github.com/starford/tusk/internal/models"
	"github.com/starford/tusk/internal/query"
	"github.com/starford/tusk/internal/taskservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc    *taskservice.Service
	search index.TaskIndex
}

// NewHandler creates a new Handler.
func NewHandler(svc *taskservice.Service, search index.TaskIndex) *Handler {
	return &Handler{svc: svc, search: search}
}

// GetDay handles GET /api/days/{date}.
//
//	@Summary		Get one day file
//	@Tags			days
//	@Produce		json
//	@Param			date	path		string	true	"YYYY-MM-DD, today, yesterday or tomorrow"
//	@Success		200		{object}	DayResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/days/{date} [get]
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Store().ResolveDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, "get day", err)
		return
	}
	day, err := h.svc.Day(r.Context(), d)
	if err != nil {
		writeError(w, "get day", err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// ListTasks handles GET /api/tasks.
//
//	@Summary		List tasks over a date range
//	@Tags			tasks
//	@Produce		json
//	@Param			from		query		string	false	"First day (default today)"
//	@Param			to			query		string	false	"Last day (default from)"
//	@Param			open		query		bool	false	"Only open tasks"
//	@Param			done		query		bool	false	"Only done tasks"
//	@Param			tag			query		[]string	false	"Required tag (repeatable)"
//	@Param			priority	query		string	false	"Exact priority"	Enums(high, med, low, none)
//	@Param			sort		query		string	false	"Sort key"	Enums(index, created, due, priority, status)
//	@Param			reverse		query		bool	false	"Reverse the order"
//	@Param			limit		query		int		false	"Max entries"
//	@Success		200			{object}	TaskListResponse
//	@Failure		400			{object}	errResponse
//	@Failure		409			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tasks [get]
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rng, err := h.dateRange(q)
	if err != nil {
		writeError(w, "list tasks", err)
		return
	}
	opts, err := queryOptions(q)
	if err != nil {
		writeError(w, "list tasks", err)
		return
	}
	res, err := h.svc.List(r.Context(), rng, opts)
	if err != nil {
		writeError(w, "list tasks", err)
		return
	}
	entries := res.Entries
	if entries == nil {
		entries = []query.Entry{}
	}
	writeJSON(w, http.StatusOK, TaskListResponse{Entries: entries, Total: res.Total})
}

// Stats handles GET /api/stats.
//
//	@Summary		Review summary over a date range
//	@Tags			tasks
//	@Produce		json
//	@Param			from	query		string	false	"First day (default today)"
//	@Param			to		query		string	false	"Last day (default from)"
//	@Success		200		{object}	StatsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	rng, err := h.dateRange(r.URL.Query())
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	stats, err := h.svc.Review(r.Context(), rng)
	if err != nil {
		writeError(w, "stats", err)
		return
	}
	if stats.Tags == nil {
		stats.Tags = []query.TagCount{}
	}
	writeJSON(w, http.StatusOK, StatsResponse{From: rng.From.String(), To: rng.To.String(), Stats: stats})
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search across all days
//	@Tags			search
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	if h.search == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("search index unavailable"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.search.Search(q, limit)
	if err != nil {
		slog.Error("search failed", slog.String("query", q), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

func (h *Handler) dateRange(q url.Values) (dates.Range, error) {
	store := h.svc.Store()
	from, err := store.ResolveDate(q.Get("from"))
	if err != nil {
		return dates.Range{}, err
	}
	to := from
	if s := q.Get("to"); s != "" {
		if to, err = store.ResolveDate(s); err != nil {
			return dates.Range{}, err
		}
	}
	return dates.NewRange(from, to)
}

func queryOptions(q url.Values) (query.Options, error) {
	var opts query.Options
	var err error
	if opts.Filter.Open, err = boolParam(q, "open"); err != nil {
		return opts, err
	}
	if opts.Filter.Done, err = boolParam(q, "done"); err != nil {
		return opts, err
	}
	if opts.Reverse, err = boolParam(q, "reverse"); err != nil {
		return opts, err
	}
	opts.Filter.Tags = q["tag"]
	if s := q.Get("priority"); s != "" {
		p, err := models.ParsePriority(s)
		if err != nil {
			return opts, err
		}
		opts.Filter.Priority = &p
	}
	if opts.Sort, err = query.ParseSortKey(q.Get("sort")); err != nil {
		return opts, err
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("%w: limit must be a non-negative integer", apperr.ErrInvalidArgument)
		}
		opts.Limit = n
	}
	return opts, nil
}

func boolParam(q url.Values, name string) (bool, error) {
	s := q.Get(name)
	if s == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", apperr.ErrInvalidArgument, name)
	}
	return b, nil
}
