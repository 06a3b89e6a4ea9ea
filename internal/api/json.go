package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/seokju-na/geeks-diary-sub001/internal/apperr"
	"github.com/seokju-na/geeks-diary-sub001/internal/store"
)

const maxBody = 10 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decode reads a JSON body into v and validates it. It writes the 400
// response itself and reports whether the handler may continue.
func decode(w http.ResponseWriter, r *http.Request, v validation.Validatable) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return false
	}
	if err := v.Validate(); err != nil {
		writeError(w, r, err)
		return false
	}
	return true
}

// writeError maps domain errors to HTTP statuses. Anything unknown is logged
// and reported as 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verrs validation.Errors
	switch {
	case errors.As(err, &verrs):
		body := errorBody("validation failed")
		body.Fields = make(map[string]string, len(verrs))
		for k, e := range verrs {
			body.Fields[k] = e.Error()
		}
		writeJSON(w, http.StatusBadRequest, body)
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrNoContent):
		writeJSON(w, http.StatusConflict, errorBody("no note is open"))
	case errors.Is(err, store.ErrNoteChanged):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrIndexOutOfRange),
		errors.Is(err, apperr.ErrProtectedSnippet),
		errors.Is(err, apperr.ErrInvalidSnippetSet),
		errors.Is(err, store.ErrNotLoading):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	default:
		slog.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
