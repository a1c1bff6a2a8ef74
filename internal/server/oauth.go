package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/nowplaying/internal/shared"
	"github.com/desertthunder/nowplaying/internal/tasks"
)

// Connector stores the credential obtained from an authorization code.
type Connector interface {
	Connect(ctx context.Context, code, state string) (string, error)
	Keys() tasks.KeyStrategy
}

// Authorizer builds the upstream authorization URL for a state value.
type Authorizer interface {
	GetAuthURL(state string) string
}

// ConnectResult is the outcome of one authorization callback.
type ConnectResult struct {
	Key string
	err error
}

func (c ConnectResult) Error() error {
	return c.err
}

// OAuthHandler serves the login redirect and the authorization callback.
// Implements the Handler interface for registration with a Router.
type OAuthHandler struct {
	connector  Connector
	authorizer Authorizer
	logger     *log.Logger
	results    chan ConnectResult
}

// NewOAuthHandler creates a new OAuth handler.
func NewOAuthHandler(connector Connector, authorizer Authorizer, logger *log.Logger) *OAuthHandler {
	return &OAuthHandler{
		connector:  connector,
		authorizer: authorizer,
		logger:     logger,
		results:    make(chan ConnectResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{"/login", "/callback"}
}

// ServeHTTP dispatches to the login or callback handler.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch r.URL.Path {
	case "/login":
		h.login(w, r)
	case "/callback":
		h.callback(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

// Results delivers the outcome of callbacks. Results nobody is waiting for are dropped.
func (h *OAuthHandler) Results() <-chan ConnectResult {
	return h.results
}

// login redirects to the Spotify authorize page. In widget mode the requested key
// travels in the state parameter.
func (h *OAuthHandler) login(w http.ResponseWriter, r *http.Request) {
	state, err := h.connector.Keys().State(requestedKey(r))
	if err != nil {
		writeError(w, StatusFor(err), PublicMessage(err))
		return
	}

	http.Redirect(w, r, h.authorizer.GetAuthURL(state), http.StatusFound)
}

// callback exchanges the authorization code and stores the credential before answering.
func (h *OAuthHandler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		err := fmt.Errorf("%w: authorization denied: %s", shared.ErrMissingParameter, errParam)
		h.send(ConnectResult{err: err})
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	key, err := h.connector.Connect(r.Context(), q.Get("code"), q.Get("state"))
	if err != nil {
		h.logger.Warn("callback failed", "error", err)
		h.send(ConnectResult{err: err})
		writeError(w, StatusFor(err), PublicMessage(err))
		return
	}

	h.send(ConnectResult{Key: key})

	page := connectedPage{Key: key, NowPlayingURL: nowPlayingURL(r, key)}
	if acceptsJSON(r) {
		writeJSON(w, http.StatusOK, page)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if err := connectedTmpl.Execute(w, page); err != nil {
		h.logger.Error("failed to render confirmation", "error", err)
	}
}

func (h *OAuthHandler) send(result ConnectResult) {
	select {
	case h.results <- result:
	default:
	}
}

type connectedPage struct {
	Key           string `json:"key"`
	NowPlayingURL string `json:"nowPlayingUrl"`
}

func nowPlayingURL(r *http.Request, key string) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/now-playing?%s", scheme, r.Host, url.Values{"key": {key}}.Encode())
}

func acceptsJSON(r *http.Request) bool {
	accept := r.Header.Get("Accept")
	return accept == "application/json"
}

var connectedTmpl = template.Must(template.New("connected").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>Spotify Connected</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0.5rem 0; }
        code { background: #eee; padding: 0.2rem 0.4rem; border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>✓ Spotify Connected</h1>
        <p>Widget key: <code>{{.Key}}</code></p>
        <p>Point your widget at <code>{{.NowPlayingURL}}</code></p>
        <p>You can close this window.</p>
    </div>
</body>
</html>
`))
