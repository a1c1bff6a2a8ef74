// Package server provides the HTTP surface of the now-playing service.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method dispatch per path.
//
// # Routes
//
//	GET  /login            redirect to the Spotify authorize page (?key= picks a widget key)
//	GET  /callback         exchange the code, store the credential, show the key
//	GET  /now-playing      snapshot JSON for ?key= (alias ?widgetKey=)
//	POST /disconnect       delete the credential for ?key= (also DELETE; only when enabled)
//	GET  /health           liveness probe
//
// # Errors
//
// Every failure is answered with {"error": "..."}; [StatusFor] maps the shared error
// taxonomy to a status code and [PublicMessage] keeps upstream details out of responses.
//
// # Middleware
//
// [Recover], [Logging], [CORS], [RateLimit] (per client address) and [Timeout] are installed by [New].
package server
