package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"reggie/internal/model"
	"reggie/internal/registry"
	"reggie/internal/storage"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error" example:"unknown message type: Foo"`
}

// bodyError is a request body that could not be read as JSON.
type bodyError struct {
	err error
}

func (e *bodyError) Error() string {
	return fmt.Sprintf("invalid request body: %v", e.err)
}

func (e *bodyError) Unwrap() error {
	return e.err
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &bodyError{err: err}
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error category to an HTTP status.
func statusFor(err error) int {
	var (
		unknown    *registry.UnknownTypeError
		decode     *registry.DecodeError
		validation *model.ValidationError
		body       *bodyError
		tooLarge   *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &unknown), errors.As(err, &decode),
		errors.As(err, &validation), errors.As(err, &body):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	default:
		// publish and storage failures
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, log zerolog.Logger, err error) {
	status := statusFor(err)
	ev := log.Warn()
	if status >= http.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).
		Int("status", status).
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("path", r.URL.Path).
		Msg("request failed")
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}
