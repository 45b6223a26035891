package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/marcus/bujo/internal/bujo"
	"github.com/marcus/bujo/internal/chart"
	"github.com/marcus/bujo/internal/journal"
	"github.com/marcus/bujo/internal/transcribe"
	"github.com/marcus/bujo/internal/vision"
)

// Error code constants for structured API error responses.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeNoData       = "no_data"
	ErrCodeInternal     = "internal"
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeRateLimited  = "rate_limited"
	ErrCodeTooLarge     = "too_large"
	ErrCodeLoginFailed  = "login_failed"
)

// APIError represents a structured error returned by the API.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError for JSON serialization.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// writeError writes a JSON error response with the given HTTP status code.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error: APIError{Code: code, Message: message},
	}); err != nil {
		slog.Error("write error response", "err", err)
	}
}

// writeJSON writes a JSON response with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write json response", "err", err)
	}
}

// badRequestErrors are reported to the caller by their own message.
var badRequestErrors = []error{
	bujo.ErrEmptyText,
	bujo.ErrInvalidDate,
	bujo.ErrEmptyMessage,
	bujo.ErrNoAudio,
	bujo.ErrNoImage,
	journal.ErrInvalidDate,
	transcribe.ErrNoSpeech,
	transcribe.ErrUnsupportedFormat,
	vision.ErrNotImage,
}

// serviceError maps an error from the journal services to a status and code.
func serviceError(err error) (int, string, string) {
	for _, target := range badRequestErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest, ErrCodeBadRequest, target.Error()
		}
	}
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge, ErrCodeTooLarge, "upload too large"
	case errors.Is(err, journal.ErrNotFound):
		return http.StatusNotFound, ErrCodeNotFound, "journal entry not found"
	case errors.Is(err, chart.ErrNoData):
		return http.StatusNotFound, ErrCodeNoData, "not enough data for a chart"
	}
	return http.StatusInternalServerError, ErrCodeInternal, "internal server error"
}

// writeServiceError writes err as a JSON error, logging server faults.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, code, msg := serviceError(err)
	if status >= 500 {
		logFor(r.Context()).Error(op, "err", err)
	}
	writeError(w, status, code, msg)
}
