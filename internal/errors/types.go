package errors

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ValidationError represents client-side input rejection. It is raised before
// any network call and blocks submission.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// AuthError represents an authorization failure (HTTP 401). The HTTP layer
// handles it globally in addition to surfacing it to the caller.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authorization failed: %v", e.Err)
	}
	return "authorization failed"
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// ServerError represents a non-2xx response other than 401. Message carries
// the backend's detail string when the response body had one.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("server error: status %d", e.Status)
}

// NetworkError represents a transport-level failure: the request never
// produced an HTTP response.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NewValidation builds a ValidationError for a single field.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation checks whether err is a client-side validation failure.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsAuth checks whether err is an authorization failure.
func IsAuth(err error) bool {
	var a *AuthError
	return errors.As(err, &a)
}

// IsNetwork checks whether err is a transport failure. Wrapped *url.Error and
// net.Error values count even when not explicitly marked.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	var n *NetworkError
	if errors.As(err, &n) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// StatusCode extracts the HTTP status carried by err, or 0 when none applies.
func StatusCode(err error) int {
	var a *AuthError
	if errors.As(err, &a) {
		return http.StatusUnauthorized
	}
	var s *ServerError
	if errors.As(err, &s) {
		return s.Status
	}
	return 0
}

// Humanize reduces err to a short display string for store error state.
// Validation and server messages pass through; transport noise collapses to
// a generic line so raw dial errors never reach the UI.
func Humanize(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Error()
	}
	var s *ServerError
	if errors.As(err, &s) && s.Message != "" {
		return s.Message
	}
	if IsAuth(err) {
		return "session expired, please sign in again"
	}
	if IsNetwork(err) {
		return "could not reach the server"
	}
	msg := err.Error()
	if fallback != "" && (msg == "" || strings.Contains(msg, "connection refused")) {
		return fallback
	}
	if msg == "" {
		return fallback
	}
	return msg
}
