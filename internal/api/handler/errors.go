package handler

import (
	"net/http"

	"github.com/hardliner66/MageBattle/internal/api/apierr"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewNotFoundError creates an error for unknown routes
func NewNotFoundError() error {
	return apierr.NewNotFoundError()
}

// NewUnavailableError creates an error for a backend that cannot be reached
func NewUnavailableError(message string) error {
	return apierr.NewUnavailableError(message)
}
