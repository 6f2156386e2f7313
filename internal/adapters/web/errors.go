package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"stockmaster/internal/core"
)

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	resp := errorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestIDFromContext(r.Context()),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// writeJSON writes a JSON response with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// writeDomainError maps the typed domain errors onto HTTP statuses. Anything
// unrecognized is treated as an internal error without leaking its message.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr  *core.ValidationError
		notFoundErr    *core.NotFoundError
		stockErr       *core.InsufficientStockError
		transitionErr  *core.InvalidStateTransitionError
		concurrencyErr *core.ConcurrencyConflictError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, r, validationErr.Error(), "VALIDATION", http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		writeError(w, r, notFoundErr.Error(), "NOT_FOUND", http.StatusNotFound)
	case errors.As(err, &stockErr):
		writeError(w, r, stockErr.Error(), "INSUFFICIENT_STOCK", http.StatusConflict)
	case errors.As(err, &transitionErr):
		writeError(w, r, transitionErr.Error(), "INVALID_STATE", http.StatusConflict)
	case errors.As(err, &concurrencyErr):
		writeError(w, r, concurrencyErr.Error(), "CONFLICT_RETRY", http.StatusConflict)
	default:
		writeError(w, r, "internal server error", "INTERNAL_ERROR", http.StatusInternalServerError)
	}
}
