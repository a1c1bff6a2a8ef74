// Spotify API implementation
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
)

// Scopes requested during authorization.
var Scopes = []string{"user-read-currently-playing", "user-read-playback-state"}

// SpotifyService exchanges OAuth grants and reads playback state from the Spotify API.
type SpotifyService struct {
	config     *oauth2.Config
	apiURL     string
	httpClient *http.Client
	margin     time.Duration
	now        func() time.Time
}

// SpotifyOption configures a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithHTTPClient sets the client used for token and API calls.
func WithHTTPClient(client *http.Client) SpotifyOption {
	return func(s *SpotifyService) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithSafetyMargin sets the duration subtracted from token lifetimes.
func WithSafetyMargin(margin time.Duration) SpotifyOption {
	return func(s *SpotifyService) { s.margin = margin }
}

// WithClock sets the time source used to compute expiries.
func WithClock(now func() time.Time) SpotifyOption {
	return func(s *SpotifyService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSpotifyService creates a new Spotify service from the credentials section of the config.
func NewSpotifyService(cfg shared.SpotifyConfig, opts ...SpotifyOption) (*SpotifyService, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	authURL := orDefault(cfg.AuthURL, spotifyAuthURL)
	tokenURL := orDefault(cfg.TokenURL, spotifyTokenURL)

	s := &SpotifyService{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		apiURL:     strings.TrimRight(orDefault(cfg.APIURL, spotifyBaseURL), "/"),
		httpClient: http.DefaultClient,
		margin:     models.DefaultSafetyMargin,
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// GetAuthURL returns the authorization URL the login redirect points at.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a credential pair.
func (s *SpotifyService) ExchangeCode(ctx context.Context, code string) (*models.Credential, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: code", shared.ErrMissingParameter)
	}

	now := s.now()
	token, err := s.config.Exchange(s.tokenContext(ctx), code)
	if err != nil {
		return nil, tokenError(err)
	}

	return s.credentialFrom(token, now), nil
}

// ExchangeRefreshToken trades a refresh token for a new credential pair.
//
// When Spotify does not rotate the refresh token the returned record carries the one
// that was sent, so callers can persist it as-is.
func (s *SpotifyService) ExchangeRefreshToken(ctx context.Context, refreshToken string) (*models.Credential, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	now := s.now()
	source := s.config.TokenSource(s.tokenContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, tokenError(err)
	}

	cred := s.credentialFrom(token, now)
	if cred.RefreshToken == "" {
		cred.RefreshToken = refreshToken
	}
	return cred, nil
}

// UserProfile retrieves the profile of the user owning accessToken.
func (s *SpotifyService) UserProfile(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	resp, err := s.doRequest(ctx, accessToken, "/me")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fetchError(resp)
	}

	var user SpotifyUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: failed to decode profile: %v", shared.ErrUpstreamFetch, err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("%w: profile response missing id", shared.ErrUpstreamFetch)
	}

	return &user, nil
}

// CurrentlyPlaying fetches the user's playback state and normalizes it to a snapshot.
//
// 204 and 202 mean nothing is playing and yield [models.NotPlaying], as does a null item.
func (s *SpotifyService) CurrentlyPlaying(ctx context.Context, accessToken string) (*models.Snapshot, error) {
	resp, err := s.doRequest(ctx, accessToken, "/me/player/currently-playing?additional_types=track,episode")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusAccepted:
		return models.NotPlaying(), nil
	case http.StatusOK:
	default:
		return nil, fetchError(resp)
	}

	var current CurrentlyPlaying
	if err := json.NewDecoder(resp.Body).Decode(&current); err != nil {
		return nil, fmt.Errorf("%w: failed to decode playback state: %v", shared.ErrUpstreamFetch, err)
	}

	return current.Snapshot(), nil
}

// Snapshot converts the playback state into the widget-facing shape.
func (c *CurrentlyPlaying) Snapshot() *models.Snapshot {
	if c == nil || c.Item == nil {
		return models.NotPlaying()
	}

	item := c.Item
	track := &models.Track{
		Title:   item.Name,
		Artists: make([]string, 0, len(item.Artists)),
		Album:   item.Album.Name,
	}
	for _, a := range item.Artists {
		track.Artists = append(track.Artists, a.Name)
	}

	images := item.Album.Images
	if item.Show != nil {
		if track.Album == "" {
			track.Album = item.Show.Name
		}
		if len(track.Artists) == 0 && item.Show.Publisher != "" {
			track.Artists = append(track.Artists, item.Show.Publisher)
		}
		if len(images) == 0 {
			images = item.Show.Images
		}
	}
	if len(images) == 0 {
		images = item.Images
	}
	if len(images) > 0 && images[0].URL != "" {
		url := images[0].URL
		track.AlbumImage = &url
	}

	return models.NewSnapshot(c.IsPlaying, c.ProgressMS, item.DurationMS, track)
}

// doRequest performs an authenticated GET against the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, accessToken, endpoint string) (*http.Response, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("%w: missing access token", shared.ErrInternal)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL+endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request failed: %w", shared.ErrUpstreamFetch, err)
	}

	return resp, nil
}

// tokenContext makes the oauth2 package use our HTTP client.
func (s *SpotifyService) tokenContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// credentialFrom converts a token response issued at now into a stored record.
func (s *SpotifyService) credentialFrom(token *oauth2.Token, now time.Time) *models.Credential {
	lifetime := time.Duration(token.ExpiresIn) * time.Second
	return &models.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    models.ExpiryFrom(now, lifetime, s.margin),
	}
}

// tokenError maps an oauth2 failure to [shared.ErrUpstreamAuth].
func tokenError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		ue := &shared.UpstreamError{
			Kind:        shared.ErrUpstreamAuth,
			Code:        re.ErrorCode,
			Description: re.ErrorDescription,
			Body:        re.Body,
		}
		if re.Response != nil {
			ue.StatusCode = re.Response.StatusCode
		}
		return ue
	}
	return fmt.Errorf("%w: %w", shared.ErrUpstreamAuth, err)
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
