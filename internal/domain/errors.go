// Package domain provides the core honeypot types and the canonical
// error taxonomy shared by all components.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of an API error.
type ErrorType string

const (
	// ErrorTypeValidation indicates a malformed or incomplete request.
	ErrorTypeValidation ErrorType = "validation"

	// ErrorTypeAuthentication indicates an API key failure.
	ErrorTypeAuthentication ErrorType = "authentication"

	// ErrorTypeNotFound indicates a resource (session) was not found.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeRateLimit indicates the caller exceeded a request window.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeBackend indicates a classification or generation backend
	// failure. Never surfaced to callers; handled by fallback paths.
	ErrorTypeBackend ErrorType = "backend_unavailable"

	// ErrorTypeServer indicates an internal server error.
	ErrorTypeServer ErrorType = "server"
)

// APIError is the canonical error returned by core components and
// translated to an HTTP response by the handlers.
type APIError struct {
	// Type is the category of error.
	Type ErrorType `json:"type"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Field names the missing or invalid request field, if applicable.
	Field string `json:"field,omitempty"`

	// RetryAfterSeconds carries retry guidance for rate limit errors.
	RetryAfterSeconds int `json:"retryAfterSeconds,omitempty"`

	// StatusCode overrides the default HTTP status mapping when set.
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *APIError) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeValidation:
		return http.StatusUnprocessableEntity
	case ErrorTypeAuthentication:
		return http.StatusUnauthorized
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeBackend:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WithField names the offending request field.
func (e *APIError) WithField(field string) *APIError {
	e.Field = field
	return e
}

// WithRetryAfter attaches retry guidance in seconds.
func (e *APIError) WithRetryAfter(seconds int) *APIError {
	e.RetryAfterSeconds = seconds
	return e
}

// ErrValidation creates a validation error.
func ErrValidation(message string) *APIError {
	return &APIError{Type: ErrorTypeValidation, Message: message}
}

// ErrAuthentication creates an authentication error.
func ErrAuthentication(message string) *APIError {
	return &APIError{Type: ErrorTypeAuthentication, Message: message}
}

// ErrSessionNotFound creates a not-found error for a session id.
func ErrSessionNotFound(sessionID string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: fmt.Sprintf("session %s not found", sessionID),
	}
}

// ErrRateLimit creates a rate limit error.
func ErrRateLimit(message string) *APIError {
	return &APIError{Type: ErrorTypeRateLimit, Message: message}
}

// ErrBackend creates a backend unavailable error.
func ErrBackend(message string) *APIError {
	return &APIError{Type: ErrorTypeBackend, Message: message}
}

// ErrServer creates an internal server error.
func ErrServer(message string) *APIError {
	return &APIError{Type: ErrorTypeServer, Message: message}
}
