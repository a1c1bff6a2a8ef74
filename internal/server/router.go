package server

import (
	"net/http"
	"slices"
	"strings"
	"sync"
)

// BasicRouter is a simple HTTP router implementing the [Router] interface.
//
// Uses [http.ServeMux] internally for routing. A path may be registered for several
// methods; requests with any other method get 405 after passing through the middleware,
// so OPTIONS preflights reach the CORS middleware.
type BasicRouter struct {
	mux         *http.ServeMux
	middlewares []Middleware
	mu          sync.Mutex
	routes      map[string]*methodRoute
}

// methodRoute dispatches one path by request method.
type methodRoute struct {
	mu       sync.RWMutex
	handlers map[string]http.Handler
}

func (m *methodRoute) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	m.mu.RLock()
	handler, ok := m.handlers[strings.ToUpper(req.Method)]
	allowed := make([]string, 0, len(m.handlers))
	for method := range m.handlers {
		allowed = append(allowed, method)
	}
	m.mu.RUnlock()

	if ok {
		handler.ServeHTTP(w, req)
		return
	}

	slices.Sort(allowed)
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	if req.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{
		mux:         http.NewServeMux(),
		middlewares: []Middleware{},
		routes:      make(map[string]*methodRoute),
	}
}

// Use adds [Middleware] to the [Router] instance's middleware stack, applied in the order it's added.
//
// Middleware must be added before routes are registered.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a handler for the specified HTTP method and path.
//
// The path's method dispatcher is wrapped with all registered middleware.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	route, ok := r.routes[path]
	if !ok {
		route = &methodRoute{handlers: make(map[string]http.Handler)}
		r.routes[path] = route
		r.mux.Handle(path, r.Apply(route))
	}

	route.mu.Lock()
	route.handlers[strings.ToUpper(method)] = handler
	route.mu.Unlock()
}

// Handler registers a custom Handler implementation.
//
// All routes returned by [Handler.Routes] are registered with this handler.
func (r *BasicRouter) Handler(handler Handler) {
	wrapped := r.Apply(handler)

	for _, route := range handler.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}
