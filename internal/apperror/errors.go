// Package apperror provides domain-specific error types for the admin console.
// These errors carry an HTTP status code and a user-safe message. The Echo
// error handler maps them to appropriate HTTP responses automatically.
//
// The backend API is an external collaborator, so most errors here describe
// how a backend call went wrong: it could not be reached (upstream), it said
// no (rejected), or it answered with something we could not read (malformed).
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Error type identifiers.
const (
	TypeBadRequest = "bad_request"
	TypeNotFound   = "not_found"
	TypeUnauth     = "unauthorized"
	TypeValidation = "validation_error"
	TypeRejected   = "backend_rejected"
	TypeUpstream   = "upstream_unavailable"
	TypeMalformed  = "malformed_response"
	TypeInternal   = "internal_error"
)

// GenericFailureMessage is shown for transport and internal failures.
const GenericFailureMessage = "Internal Server Error"

// AppError is the base error type for all domain errors. It carries an
// HTTP status code, a machine-readable error type, and a human-readable
// message safe to show to the client.
type AppError struct {
	// Code is the HTTP status code (e.g., 404, 400, 500).
	Code int `json:"-"`

	// Type is a machine-readable error classifier (e.g., "not_found").
	Type string `json:"type"`

	// Message is a human-readable description safe for the client.
	Message string `json:"message"`

	// Internal holds the underlying error for logging. Never exposed to client.
	Internal error `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Internal != nil {
		return fmt.Sprintf("%s: %s (internal: %v)", e.Type, e.Message, e.Internal)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AppError) Unwrap() error {
	return e.Internal
}

// --- Constructors for common error types ---

// NewNotFound creates a 404 Not Found error.
func NewNotFound(message string) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Type:    TypeNotFound,
		Message: message,
	}
}

// NewBadRequest creates a 400 Bad Request error.
func NewBadRequest(message string) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Type:    TypeBadRequest,
		Message: message,
	}
}

// NewUnauthorized creates a 401 Unauthorized error.
func NewUnauthorized(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Type:    TypeUnauth,
		Message: message,
	}
}

// NewValidation creates a 422 Unprocessable Entity error for field-presence
// failures caught before any backend call.
func NewValidation(message string) *AppError {
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    TypeValidation,
		Message: message,
	}
}

// NewRejected wraps a backend envelope with success:false. The backend's msg
// is shown to the user verbatim, so callers must pass it unmodified (after
// sanitization).
func NewRejected(message string) *AppError {
	if message == "" {
		message = "The request was rejected."
	}
	return &AppError{
		Code:    http.StatusUnprocessableEntity,
		Type:    TypeRejected,
		Message: message,
	}
}

// NewUpstream creates a 502 for a backend call that threw or timed out.
func NewUpstream(err error) *AppError {
	return &AppError{
		Code:     http.StatusBadGateway,
		Type:     TypeUpstream,
		Message:  GenericFailureMessage,
		Internal: err,
	}
}

// NewMalformed creates a 502 for a backend answer that was not JSON or was
// missing expected fields.
func NewMalformed(err error) *AppError {
	return &AppError{
		Code:     http.StatusBadGateway,
		Type:     TypeMalformed,
		Message:  "Unable to load data from the server.",
		Internal: err,
	}
}

// NewInternal creates a 500 Internal Server Error. The real error is stored
// in Internal for logging but the client only sees a generic message.
func NewInternal(err error) *AppError {
	return &AppError{
		Code:     http.StatusInternalServerError,
		Type:     TypeInternal,
		Message:  GenericFailureMessage,
		Internal: err,
	}
}

// IsType reports whether err is an AppError of the given type.
func IsType(err error, typ string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Type == typ
}

// SafeMessage returns the client-safe error message from an error. If the
// error is an AppError, returns its Message field (which is safe to expose).
// For any other error type, returns a generic message to prevent leaking
// internal details.
func SafeMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return GenericFailureMessage
}

// SafeCode returns the HTTP status code from an AppError, or 500 for
// any other error type.
func SafeCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return http.StatusInternalServerError
}
