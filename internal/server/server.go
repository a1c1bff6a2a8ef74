package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/nowplaying/internal/shared"
)

// shutdownTimeout bounds graceful shutdown once the run context is cancelled.
const shutdownTimeout = 5 * time.Second

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler defines the interface for HTTP request handlers that register several routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the path patterns this handler serves
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// Deps are the collaborators the HTTP surface is built on.
type Deps struct {
	Poller     NowPlayer
	Connector  Connector
	Authorizer Authorizer
	Logger     *log.Logger
}

// Server is the now-playing HTTP service.
type Server struct {
	config shared.ServerConfig
	router *BasicRouter
	oauth  *OAuthHandler
	logger *log.Logger
}

// New builds the router with middleware and all routes for cfg.
func New(cfg shared.ServerConfig, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	logger = shared.WithLogger(logger, "component", "server")

	var limiter *IPRateLimiter
	if cfg.RateLimit > 0 {
		limiter = NewIPRateLimiter(cfg.RateLimit, cfg.RateBurst)
	}

	router := NewBasicRouter()
	router.Use(
		Recover(logger),
		Logging(logger),
		CORS(cfg.AllowedOrigins),
		RateLimit(limiter),
		Timeout(cfg.RequestTimeout.Duration),
	)

	oauth := NewOAuthHandler(deps.Connector, deps.Authorizer, logger)
	router.Handler(oauth)

	widgets := NewWidgetHandler(deps.Poller, logger)
	router.Handle(http.MethodGet, "/now-playing", http.HandlerFunc(widgets.NowPlaying))
	router.Handle(http.MethodGet, "/health", http.HandlerFunc(widgets.Health))
	if cfg.AllowDisconnect {
		router.Handle(http.MethodPost, "/disconnect", http.HandlerFunc(widgets.Disconnect))
		router.Handle(http.MethodDelete, "/disconnect", http.HandlerFunc(widgets.Disconnect))
	}

	return &Server{config: cfg, router: router, oauth: oauth, logger: logger}
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// OAuth returns the login/callback handler, whose results the connect command waits on.
func (s *Server) OAuth() *OAuthHandler {
	return s.oauth
}

// Run serves on the configured address until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.config.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is [Server.Run] on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
		close(serverErrors)
	}()

	select {
	case err := <-serverErrors:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("error shutting down server", "error", err)
		return err
	}
	s.logger.Info("server stopped")
	return nil
}
