// Package services implements the HTTP clients the now-playing service depends on.
//
// # Spotify
//
// [SpotifyService] talks to three upstream endpoints:
//   - the OAuth token endpoint, through [oauth2.Config], for the authorization-code and
//     refresh-token grants ([SpotifyService.ExchangeCode], [SpotifyService.ExchangeRefreshToken])
//   - GET /me for the user identity ([SpotifyService.UserProfile])
//   - GET /me/player/currently-playing ([SpotifyService.CurrentlyPlaying])
//
// The service is stateless: every call takes the access token it should use, so a single
// instance is shared by all requests. Token responses are converted to [models.Credential]
// with the configured safety margin already subtracted from the expiry.
//
// # Widget Client
//
// [WidgetClient] is the consumer side of this service's own HTTP surface. The CLI uses it
// for one-shot status checks and the terminal widget polls through it.
//
// # Error Handling
//
// Non-success upstream answers become [shared.UpstreamError] values:
//   - token endpoint : Kind [shared.ErrUpstreamAuth], carrying the OAuth error code and raw body
//   - API endpoints : Kind [shared.ErrUpstreamFetch], carrying the HTTP status (401 is
//     detected with [shared.IsUnauthorized])
//
// "Nothing playing" (204 or 202) is not an error; it yields [models.NotPlaying].
package services
