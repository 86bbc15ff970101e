package response

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/slotline/slotline-api/internal/domain"
	"github.com/slotline/slotline-api/pkg/logger"
)

// ErrorResponse is the structured JSON error body every endpoint returns.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

const (
	CodeInvalidInput  = "INVALID_INPUT"
	CodeUnauthorized  = "UNAUTHORIZED"
	CodeForbidden     = "FORBIDDEN"
	CodeNotFound      = "NOT_FOUND"
	CodeSlotConflict  = "SLOT_CONFLICT"
	CodeRateLimit     = "RATE_LIMIT_EXCEEDED"
	CodeUpstream      = "UPSTREAM_UNAVAILABLE"
	CodeInternalError = "INTERNAL_ERROR"
)

// WriteJSON writes v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// WriteError writes a structured JSON error response.
func WriteError(w http.ResponseWriter, statusCode int, message, code string) {
	WriteJSON(w, statusCode, ErrorResponse{Error: message, Code: code})
}

// FromError maps a service-layer error onto the HTTP surface. Validation is
// the caller's fault, conflict means someone else won the slot, dependency
// failures are upstream trouble the caller cannot fix.
func FromError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		WriteError(w, http.StatusNotFound, "resource not found", CodeNotFound)
	case domain.IsValidation(err):
		WriteError(w, http.StatusBadRequest, err.Error(), CodeInvalidInput)
	case domain.IsConflict(err):
		WriteError(w, http.StatusConflict, err.Error(), CodeSlotConflict)
	case domain.IsDependency(err):
		WriteError(w, http.StatusBadGateway, "a dependency is unavailable", CodeUpstream)
	default:
		WriteError(w, http.StatusInternalServerError, "internal error", CodeInternalError)
	}
}

func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusBadRequest, message, CodeInvalidInput)
}

func Unauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, message, CodeUnauthorized)
}

func Forbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, message, CodeForbidden)
}

func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, message, CodeNotFound)
}

func RateLimit(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusTooManyRequests, message, CodeRateLimit)
}

func InternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, message, CodeInternalError)
}
