package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/desertthunder/nowplaying/internal/shared"
)

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatusFor maps an error to the HTTP status it is reported with.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, shared.ErrMissingParameter):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrNotConnected):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrUpstreamAuth) && !errors.Is(err, shared.ErrRefreshFailed) &&
		shared.UpstreamCode(err) == "invalid_grant":
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message shown to clients for err.
//
// Client errors carry their own message. Server errors are reduced to their category,
// so upstream payloads and store details stay in the logs.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrMissingParameter), errors.Is(err, shared.ErrNotConnected):
		return err.Error()
	case errors.Is(err, shared.ErrRefreshFailed):
		return "token refresh failed; reconnect the widget"
	case errors.Is(err, shared.ErrUpstreamAuth):
		if shared.UpstreamCode(err) == "invalid_grant" {
			return "invalid or expired authorization code"
		}
		return "authorization with Spotify failed"
	case errors.Is(err, shared.ErrUpstreamFetch):
		return "failed to fetch playback state from Spotify"
	case errors.Is(err, context.DeadlineExceeded):
		return "upstream request timed out"
	default:
		return "internal error"
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
