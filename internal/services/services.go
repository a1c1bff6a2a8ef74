package services

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/desertthunder/nowplaying/internal/shared"
)

// maxErrorBody bounds how much of an error response is kept on [shared.UpstreamError].
const maxErrorBody = 4 << 10

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifyShow is the parent of an episode item.
type SpotifyShow struct {
	Name      string         `json:"name"`
	Publisher string         `json:"publisher"`
	Images    []SpotifyImage `json:"images"`
}

// SpotifyItem is the track (or episode) loaded in the player.
type SpotifyItem struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Name       string          `json:"name"`
	DurationMS int             `json:"duration_ms"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	Show       *SpotifyShow    `json:"show,omitempty"`
	Images     []SpotifyImage  `json:"images"`
}

// CurrentlyPlaying is the playback-state response of GET /me/player/currently-playing.
//
// Item is a pointer because Spotify sends null for private sessions and ads.
type CurrentlyPlaying struct {
	IsPlaying            bool         `json:"is_playing"`
	ProgressMS           int          `json:"progress_ms"`
	Timestamp            int64        `json:"timestamp"`
	CurrentlyPlayingType string       `json:"currently_playing_type"`
	Item                 *SpotifyItem `json:"item"`
}

// apiError is the error envelope of the Spotify Web API.
type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// fetchError builds a [shared.UpstreamError] from a non-success API response.
func fetchError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	ue := &shared.UpstreamError{
		Kind:       shared.ErrUpstreamFetch,
		StatusCode: resp.StatusCode,
		Body:       body,
	}

	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil {
		ue.Description = envelope.Error.Message
	}

	return ue
}
