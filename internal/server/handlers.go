package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// NowPlayer answers now-playing queries and disconnects keys. [tasks.Poller] implements it.
type NowPlayer interface {
	NowPlaying(ctx context.Context, key string) (*models.Snapshot, error)
	Disconnect(ctx context.Context, key string) error
}

// WidgetHandler serves the endpoints polled and managed by widgets.
type WidgetHandler struct {
	poller NowPlayer
	logger *log.Logger
}

// NewWidgetHandler creates a new [WidgetHandler].
func NewWidgetHandler(poller NowPlayer, logger *log.Logger) *WidgetHandler {
	return &WidgetHandler{poller: poller, logger: logger}
}

// NowPlaying handles GET /now-playing?key=.
func (h *WidgetHandler) NowPlaying(w http.ResponseWriter, r *http.Request) {
	key := requestedKey(r)
	if key == "" {
		writeError(w, http.StatusBadRequest, shared.ErrMissingParameter.Error()+": key")
		return
	}

	snap, err := h.poller.NowPlaying(r.Context(), key)
	if err != nil {
		h.fail(w, "now-playing failed", key, err)
		return
	}

	writeJSON(w, http.StatusOK, snap)
}

// Disconnect handles POST or DELETE /disconnect?key=.
func (h *WidgetHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	key := requestedKey(r)
	if key == "" {
		writeError(w, http.StatusBadRequest, shared.ErrMissingParameter.Error()+": key")
		return
	}

	if err := h.poller.Disconnect(r.Context(), key); err != nil {
		h.fail(w, "disconnect failed", key, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"disconnected": true, "key": key})
}

// Health handles GET /health.
func (h *WidgetHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (h *WidgetHandler) fail(w http.ResponseWriter, msg, key string, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, "key", key, "error", err)
	} else {
		h.logger.Debug(msg, "key", key, "error", err)
	}
	writeError(w, status, PublicMessage(err))
}

// requestedKey reads the storage key from ?key= or its widgetKey alias.
func requestedKey(r *http.Request) string {
	q := r.URL.Query()
	if key := strings.TrimSpace(q.Get("key")); key != "" {
		return key
	}
	return strings.TrimSpace(q.Get("widgetKey"))
}
