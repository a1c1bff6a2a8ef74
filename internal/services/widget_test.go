package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/desertthunder/nowplaying/internal/shared"
	tu "github.com/desertthunder/nowplaying/internal/testing"
)

func TestWidgetClient(t *testing.T) {
	ctx := context.Background()

	t.Run("NowPlaying decodes snapshot", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/now-playing", r.URL.Path)
			assert.Equal(t, "abc", r.URL.Query().Get("key"))
			writeJSON(w, http.StatusOK, `{"playing":true,"progressMs":1,"durationMs":2,"track":{"title":"Song","artists":["A"],"album":"R","albumImage":null}}`)
		}))
		defer server.Close()

		snap, err := NewWidgetClient(server.URL, server.Client()).NowPlaying(ctx, "abc")
		require.NoError(t, err)
		assert.True(t, snap.Playing)
		require.NotNil(t, snap.Track)
		assert.Equal(t, "Song", snap.Track.Title)
	})

	t.Run("NowPlaying maps not connected", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusNotFound, `{"error":"not connected"}`)
		}))
		defer server.Close()

		_, err := NewWidgetClient(server.URL, server.Client()).NowPlaying(ctx, "")
		assert.True(t, errors.Is(err, shared.ErrNotConnected), "got %v", err)
		assert.Contains(t, err.Error(), "not connected")
	})

	t.Run("Disconnect posts", func(t *testing.T) {
		var method string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			method = r.Method
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		require.NoError(t, NewWidgetClient(server.URL, server.Client()).Disconnect(ctx, "abc"))
		assert.Equal(t, http.MethodPost, method)
	})

	t.Run("server errors", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		err := NewWidgetClient(server.URL, server.Client()).Health(ctx)
		assert.True(t, errors.Is(err, shared.ErrInternal), "got %v", err)
	})

	t.Run("gateway timeout maps to deadline", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusGatewayTimeout, `{"error":"upstream request timed out"}`)
		}))
		defer server.Close()

		_, err := NewWidgetClient(server.URL, server.Client()).NowPlaying(ctx, "abc")
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
		assert.False(t, errors.Is(err, shared.ErrInternal))
		assert.Contains(t, err.Error(), "timed out")
	})

	t.Run("transport failure", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}

		_, err := NewWidgetClient("http://widget.invalid", client).NowPlaying(ctx, "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "request failed")
	})

	t.Run("unreadable body", func(t *testing.T) {
		resp := &http.Response{StatusCode: http.StatusOK, Body: &tu.FCloser{}, Header: http.Header{}}
		client := &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}

		_, err := NewWidgetClient("http://widget.invalid", client).NowPlaying(ctx, "abc")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read response")
	})

	t.Run("LoginURL", func(t *testing.T) {
		c := NewWidgetClient("http://localhost:3000/", nil)
		assert.Equal(t, "http://localhost:3000/login", c.LoginURL(""))
		assert.Equal(t, "http://localhost:3000/login?key=k1", c.LoginURL("k1"))
	})
}
