package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// CacheStore is the persistence capability for cache entries.
//
// Get returns (nil, nil) when nothing is stored under key.
type CacheStore interface {
	Get(ctx context.Context, key string) (*models.CacheEntry, error)
	Put(ctx context.Context, key string, entry *models.CacheEntry) error
}

// TokenSource hands out access tokens for a key. [CredentialManager] implements it.
type TokenSource interface {
	AccessToken(ctx context.Context, key string) (string, error)
	ForceRefresh(ctx context.Context, key string) (string, error)
	Disconnect(ctx context.Context, key string) error
}

// PlaybackFetcher reads the playback state for an access token.
type PlaybackFetcher interface {
	CurrentlyPlaying(ctx context.Context, accessToken string) (*models.Snapshot, error)
}

// Poller serves now-playing snapshots, shielding the upstream API with a short-lived cache.
type Poller struct {
	cache   CacheStore
	tokens  TokenSource
	fetcher PlaybackFetcher
	window  time.Duration
	now     func() time.Time
	logger  *log.Logger
}

// NewPoller creates a new [Poller].
func NewPoller(cache CacheStore, tokens TokenSource, fetcher PlaybackFetcher, opts ...Option) *Poller {
	o := newOptions(opts)
	return &Poller{
		cache:   cache,
		tokens:  tokens,
		fetcher: fetcher,
		window:  o.window,
		now:     o.now,
		logger:  shared.WithLogger(o.logger, "component", "poller"),
	}
}

// NowPlaying returns the snapshot for key.
//
// A cache entry younger than the window is returned as-is. Otherwise the snapshot is
// fetched upstream and written back to the cache, including "nothing playing" results.
func (p *Poller) NowPlaying(ctx context.Context, key string) (*models.Snapshot, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key", shared.ErrMissingParameter)
	}

	entry, err := p.cache.Get(ctx, key)
	if err != nil {
		p.logger.Warn("cache read failed", "key", key, "error", err)
	} else if entry.Fresh(p.now(), p.window) {
		p.logger.Debug("cache hit", "key", key, "age", p.now().Sub(entry.FetchedAt))
		return entry.Snapshot, nil
	}

	snap, err := p.fetch(ctx, key)
	if err != nil {
		return nil, err
	}

	next := &models.CacheEntry{Snapshot: snap, FetchedAt: p.now()}
	if err := p.cache.Put(ctx, key, next); err != nil {
		p.logger.Warn("cache write failed", "key", key, "error", err)
	}

	return snap, nil
}

// Disconnect deletes the credential for key and marks its cache entry stale.
//
// A [Poller.NowPlaying] call already past its cache check is not cancelled. Its fetch may
// finish after the stale marker is written, and the fresh entry it stores is then served
// until the cache window passes.
func (p *Poller) Disconnect(ctx context.Context, key string) error {
	if err := p.tokens.Disconnect(ctx, key); err != nil {
		return err
	}

	stale := &models.CacheEntry{Snapshot: models.NotPlaying()}
	if err := p.cache.Put(ctx, key, stale); err != nil {
		p.logger.Warn("cache invalidation failed", "key", key, "error", err)
	}
	return nil
}

// fetch calls upstream with a valid token, refreshing and retrying once on 401.
func (p *Poller) fetch(ctx context.Context, key string) (*models.Snapshot, error) {
	token, err := p.tokens.AccessToken(ctx, key)
	if err != nil {
		return nil, err
	}

	snap, err := p.fetcher.CurrentlyPlaying(ctx, token)
	if shared.IsUnauthorized(err) {
		p.logger.Info("access token rejected, forcing refresh", "key", key)

		token, err = p.tokens.ForceRefresh(ctx, key)
		if err != nil {
			return nil, err
		}
		snap, err = p.fetcher.CurrentlyPlaying(ctx, token)
	}
	if err != nil {
		return nil, err
	}

	if snap == nil {
		snap = models.NotPlaying()
	}
	return snap, nil
}
