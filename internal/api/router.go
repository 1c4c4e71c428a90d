package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tusk/internal/index"
	"github.com/starford/tusk/internal/taskservice"
)

// NewRouter creates a chi router with all viewer routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// search may be nil, in which case /search answers 503.
func NewRouter(svc *taskservice.Service, search index.TaskIndex, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc, search)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/days/{date}", h.GetDay)
	r.Get("/tasks", h.ListTasks)
	r.Get("/stats", h.Stats)
	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
