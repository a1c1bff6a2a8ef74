package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/nowplaying/internal/shared"
)

const (
	// CredentialNamespace holds JSON-encoded [models.Credential] records.
	CredentialNamespace = "spotify-session"
	// CacheNamespace holds JSON-encoded [models.CacheEntry] records.
	CacheNamespace = "spotify-track"
)

// KV is the raw key-value capability the repositories are built on.
//
// Get returns [shared.ErrNotFound] when the key is absent. Delete of a missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// getJSON loads key from kv and decodes it into dst.
//
// found is false when the key is absent.
func getJSON(ctx context.Context, kv KV, key string, dst any) (found bool, err error) {
	data, err := kv.Get(ctx, key)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("failed to decode record %s: %w", key, err)
	}
	return true, nil
}

func setJSON(ctx context.Context, kv KV, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", key, err)
	}
	return kv.Set(ctx, key, data)
}
