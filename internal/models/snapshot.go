package models

import "time"

// DefaultCacheWindow is the maximum age of a [CacheEntry] that may still be served.
const DefaultCacheWindow = 4 * time.Second

// Track describes the item currently loaded in the user's player.
type Track struct {
	Title      string   `json:"title"`
	Artists    []string `json:"artists"`
	Album      string   `json:"album"`
	AlbumImage *string  `json:"albumImage"`
}

// Snapshot is the normalized playback state served to widgets.
//
// A nil Track always comes with Playing=false; use [NotPlaying] and [NewSnapshot]
// instead of building the struct by hand.
type Snapshot struct {
	Playing    bool   `json:"playing"`
	ProgressMs int    `json:"progressMs"`
	DurationMs int    `json:"durationMs"`
	Track      *Track `json:"track"`
}

// NotPlaying is the snapshot for "no active playback".
func NotPlaying() *Snapshot {
	return &Snapshot{Playing: false, Track: nil}
}

// NewSnapshot builds a snapshot for a present track.
func NewSnapshot(playing bool, progressMs, durationMs int, track *Track) *Snapshot {
	if track == nil {
		return NotPlaying()
	}
	return &Snapshot{
		Playing:    playing,
		ProgressMs: progressMs,
		DurationMs: durationMs,
		Track:      track,
	}
}

// CacheEntry is the last snapshot fetched from upstream for a key.
type CacheEntry struct {
	Snapshot  *Snapshot `json:"trackData"`
	FetchedAt time.Time `json:"fetchedAt"`
}

// Fresh reports whether the entry is younger than window at the given instant.
func (e *CacheEntry) Fresh(now time.Time, window time.Duration) bool {
	if e == nil || e.FetchedAt.IsZero() {
		return false
	}
	return now.Sub(e.FetchedAt) < window
}
