package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/tusk/internal/apperr"
	"github.com/starford/tusk/internal/render"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := render.JSON(w, v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

var errorStatus = []struct {
	kind   error
	status int
}{
	{apperr.ErrInvalidArgument, http.StatusBadRequest},
	{apperr.ErrConflict, http.StatusConflict},
	{apperr.ErrNotFound, http.StatusNotFound},
}

// writeError answers with the status for err's kind. Store and internal
// failures are logged and reported without detail.
func writeError(w http.ResponseWriter, op string, err error) {
	for _, e := range errorStatus {
		if errors.Is(err, e.kind) {
			writeJSON(w, e.status, errResponse{Error: err.Error(), Code: apperr.Code(err)})
			return
		}
	}
	slog.Error(op+" failed", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, errResponse{Error: "internal error", Code: apperr.Code(err)})
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
	Code  string `json:"code,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}
