package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/nowplaying/internal/models"
)

// CacheRepository persists the last fetched [models.CacheEntry] per key.
//
// Entries are never deleted, only overwritten.
type CacheRepository struct {
	kv KV
}

// NewCacheRepository creates a new [CacheRepository] on top of kv.
func NewCacheRepository(kv KV) *CacheRepository {
	return &CacheRepository{kv: kv}
}

// Get returns the entry stored under key, or (nil, nil) when there is none.
func (r *CacheRepository) Get(ctx context.Context, key string) (*models.CacheEntry, error) {
	var entry models.CacheEntry
	found, err := getJSON(ctx, r.kv, key, &entry)
	if err != nil {
		return nil, fmt.Errorf("failed to load cache entry: %w", err)
	}
	if !found {
		return nil, nil
	}
	if entry.Snapshot == nil {
		entry.Snapshot = models.NotPlaying()
	}
	return &entry, nil
}

// Put overwrites the entry stored under key.
func (r *CacheRepository) Put(ctx context.Context, key string, entry *models.CacheEntry) error {
	if err := setJSON(ctx, r.kv, key, entry); err != nil {
		return fmt.Errorf("failed to save cache entry: %w", err)
	}
	return nil
}
