package shared

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// Configuration errors
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Request errors
	ErrMissingParameter = fmt.Errorf("missing parameter")
	ErrNotConnected     = fmt.Errorf("not connected")

	// Upstream errors
	ErrUpstreamAuth   = fmt.Errorf("upstream authorization failed")
	ErrUpstreamFetch  = fmt.Errorf("upstream playback request failed")
	ErrRefreshFailed  = fmt.Errorf("token refresh failed")
	ErrNoRefreshToken = fmt.Errorf("no refresh token available")

	// Store and unexpected errors
	ErrInternal = fmt.Errorf("internal error")
	ErrNotFound = fmt.Errorf("not found")
)

// UpstreamError is returned when a Spotify endpoint answers with a non-success status.
//
// Kind is either [ErrUpstreamAuth] (token endpoint) or [ErrUpstreamFetch] (API endpoints),
// so callers can match with [errors.Is].
type UpstreamError struct {
	Kind        error
	StatusCode  int
	Code        string
	Description string
	Body        []byte
}

func (e *UpstreamError) Error() string {
	msg := fmt.Sprintf("%v: status %d", e.Kind, e.StatusCode)
	if e.Code != "" {
		msg += ": " + e.Code
	}
	if e.Description != "" {
		msg += " - " + e.Description
	}
	return msg
}

func (e *UpstreamError) Unwrap() error {
	return e.Kind
}

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue) && ue.StatusCode == http.StatusUnauthorized
}

// UpstreamCode returns the OAuth error code carried by err, if any.
func UpstreamCode(err error) string {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Code
	}
	return ""
}
