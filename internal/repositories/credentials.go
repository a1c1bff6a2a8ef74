package repositories

import (
	"context"
	"fmt"

	"github.com/desertthunder/nowplaying/internal/models"
)

// CredentialRepository persists [models.Credential] records keyed by widget or user key.
type CredentialRepository struct {
	kv KV
}

// NewCredentialRepository creates a new [CredentialRepository] on top of kv.
func NewCredentialRepository(kv KV) *CredentialRepository {
	return &CredentialRepository{kv: kv}
}

// Get returns the credential stored under key, or (nil, nil) when there is none.
func (r *CredentialRepository) Get(ctx context.Context, key string) (*models.Credential, error) {
	var cred models.Credential
	found, err := getJSON(ctx, r.kv, key, &cred)
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &cred, nil
}

// Put overwrites the whole record stored under key.
func (r *CredentialRepository) Put(ctx context.Context, key string, cred *models.Credential) error {
	if key == "" {
		return fmt.Errorf("credential key is required")
	}
	if err := cred.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if err := setJSON(ctx, r.kv, key, cred); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

// Delete removes the record stored under key.
func (r *CredentialRepository) Delete(ctx context.Context, key string) error {
	if err := r.kv.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}
