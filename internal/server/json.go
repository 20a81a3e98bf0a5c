package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tordrt/cfelect/internal/election"
	"github.com/tordrt/cfelect/internal/stream"
)

type apiError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	RequestID        string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, desc string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(apiError{
		Error:            code,
		ErrorDescription: desc,
		RequestID:        middlewareRequestID(r),
	})
}

// errorStatus maps an error onto an HTTP status and error code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, stream.ErrUnparseableLabel):
		return http.StatusBadRequest, "unknown_operation"
	case errors.Is(err, election.ErrInvalidOperation):
		return http.StatusBadRequest, "invalid_operation"
	case errors.Is(err, election.ErrUnknownKeyspace):
		return http.StatusNotFound, "unknown_keyspace"
	case errors.Is(err, election.ErrUnknownView):
		return http.StatusNotFound, "unknown_view"
	case errors.Is(err, election.ErrSchemaMismatch):
		return http.StatusInternalServerError, "schema_mismatch"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
