package handler

import (
	"net/http"

	"github.com/mcoot/typerace/internal/api/apierr"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// NotFound handles requests for unknown routes
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, apierr.NewNotFoundError())
}
