package api

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a non-2xx response from the backend.
type Error struct {
	StatusCode int
	Method     string
	Path       string
	// Message is the server-supplied human readable message, if any.
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// StatusOf returns the HTTP status of err, or 0 when err is not an API error.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsUnauthenticated reports whether the server rejected the session credential.
// Only 401 qualifies; 403 is a regular failure.
func IsUnauthenticated(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsForbidden reports a 403 response.
func IsForbidden(err error) bool {
	return StatusOf(err) == http.StatusForbidden
}

// IsNotFound reports a 404 response.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// MessageOf returns the server message carried by err, or fallback.
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}
