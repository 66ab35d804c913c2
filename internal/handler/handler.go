// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mailsub/mailsub/internal/handler/dto"
	"github.com/mailsub/mailsub/internal/validation"
)

// Version is reported by the service info endpoint.
const Version = "1.0.0"

// Handler serves the service info and fallback endpoints.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello reports the service name and version.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	response := map[string]string{
		"message": "mailsub subscription service",
		"version": Version,
	}
	writeJSON(w, http.StatusOK, response)
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "NOT_FOUND", "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Default().Error("failed to encode response", "status", status, "error", err)
	}
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// decodeMailRequest reads and validates a MailRequest body. On failure it
// writes the error response and returns false.
func decodeMailRequest(w http.ResponseWriter, r *http.Request, v *validation.Validator) (dto.MailRequest, bool) {
	var req dto.MailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large")
			return req, false
		}
		writeError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return req, false
	}

	if err := v.Validate(req); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Validation failed",
				Code:    "VALIDATION_FAILED",
				Details: verr.Fields,
			})
			return req, false
		}
		writeError(w, http.StatusBadRequest, "VALIDATION_FAILED", err.Error())
		return req, false
	}

	return req, true
}

// requireQuery returns the named query parameters, or writes a 400 naming
// the first missing one and returns false.
func requireQuery(w http.ResponseWriter, r *http.Request, names ...string) ([]string, bool) {
	query := r.URL.Query()
	values := make([]string, len(names))
	for i, name := range names {
		values[i] = query.Get(name)
		if values[i] == "" {
			writeError(w, http.StatusBadRequest, "MISSING_PARAMETER", "Query parameter '"+name+"' is required")
			return nil, false
		}
	}
	return values, true
}
