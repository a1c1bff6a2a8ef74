// Client for the now-playing HTTP endpoints, used by the CLI.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// WidgetClient reads from and manages a running now-playing server.
type WidgetClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewWidgetClient creates a client for the server at baseURL.
func NewWidgetClient(baseURL string, client *http.Client) *WidgetClient {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:3000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &WidgetClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// BaseURL returns the server address the client talks to.
func (c *WidgetClient) BaseURL() string {
	return c.baseURL
}

// LoginURL returns the server's login redirect for key.
func (c *WidgetClient) LoginURL(key string) string {
	if key == "" {
		return c.baseURL + "/login"
	}
	return c.baseURL + "/login?" + url.Values{"key": {key}}.Encode()
}

// NowPlaying fetches the snapshot for key.
func (c *WidgetClient) NowPlaying(ctx context.Context, key string) (*models.Snapshot, error) {
	path := "/now-playing"
	if key != "" {
		path += "?" + url.Values{"key": {key}}.Encode()
	}

	body, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}

	var snap models.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return &snap, nil
}

// Disconnect removes the credential stored under key.
func (c *WidgetClient) Disconnect(ctx context.Context, key string) error {
	path := "/disconnect"
	if key != "" {
		path += "?" + url.Values{"key": {key}}.Encode()
	}
	_, err := c.do(ctx, http.MethodPost, path)
	return err
}

// Health reports whether the server answers its health check.
func (c *WidgetClient) Health(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, "/health")
	return err
}

func (c *WidgetClient) do(ctx context.Context, method, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, serverError(resp.StatusCode, body)
	}
	return body, nil
}

// serverError maps an error response of the server back onto the shared sentinels.
func serverError(status int, body []byte) error {
	var envelope struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error != "" {
		msg = envelope.Error
	}

	var kind error
	switch status {
	case http.StatusNotFound:
		kind = shared.ErrNotConnected
	case http.StatusBadRequest:
		kind = shared.ErrMissingParameter
	case http.StatusGatewayTimeout:
		kind = context.DeadlineExceeded
	default:
		kind = shared.ErrInternal
	}
	return fmt.Errorf("%w: %s (status %d)", kind, msg, status)
}
