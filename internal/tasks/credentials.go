package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// CredentialStore is the persistence capability for credential records.
//
// Get returns (nil, nil) when nothing is stored under key.
type CredentialStore interface {
	Get(ctx context.Context, key string) (*models.Credential, error)
	Put(ctx context.Context, key string, cred *models.Credential) error
	Delete(ctx context.Context, key string) error
}

// TokenExchanger converts an authorization code or a refresh token into a credential.
type TokenExchanger interface {
	ExchangeCode(ctx context.Context, code string) (*models.Credential, error)
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*models.Credential, error)
}

// refreshTimeout bounds a single refresh, independent of the request that triggered it.
const refreshTimeout = 15 * time.Second

// CredentialManager hands out valid access tokens, refreshing and persisting them when needed.
type CredentialManager struct {
	store     CredentialStore
	exchanger TokenExchanger
	keys      KeyStrategy
	group     singleflight.Group
	now       func() time.Time
	logger    *log.Logger
}

// NewCredentialManager creates a new [CredentialManager].
func NewCredentialManager(store CredentialStore, exchanger TokenExchanger, keys KeyStrategy, opts ...Option) *CredentialManager {
	o := newOptions(opts)
	if keys == nil {
		keys = WidgetKeys{}
	}
	return &CredentialManager{
		store:     store,
		exchanger: exchanger,
		keys:      keys,
		now:       o.now,
		logger:    shared.WithLogger(o.logger, "component", "credentials"),
	}
}

// Keys returns the active key strategy.
func (m *CredentialManager) Keys() KeyStrategy {
	return m.keys
}

// Connect exchanges code, stores the credential and returns the key it was stored under.
//
// This is the only path that creates a credential record.
func (m *CredentialManager) Connect(ctx context.Context, code, state string) (string, error) {
	if code == "" {
		return "", fmt.Errorf("%w: code", shared.ErrMissingParameter)
	}

	cred, err := m.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return "", err
	}

	key, err := m.keys.Resolve(ctx, state, cred)
	if err != nil {
		return "", err
	}

	if err := m.store.Put(ctx, key, cred); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrInternal, err)
	}

	m.logger.Info("connected", "key", key, "strategy", m.keys.Name(), "expires_at", cred.ExpiresAt)
	return key, nil
}

// AccessToken returns a currently valid access token for key.
//
// A token that is still valid is returned without any upstream call or store write.
func (m *CredentialManager) AccessToken(ctx context.Context, key string) (string, error) {
	cred, err := m.load(ctx, key)
	if err != nil {
		return "", err
	}

	if cred.Valid(m.now()) {
		return cred.AccessToken, nil
	}

	m.logger.Debug("access token expired", "key", key, "expires_at", cred.ExpiresAt)
	return m.refresh(ctx, key, false)
}

// ForceRefresh refreshes the access token for key even if the stored one has not expired.
func (m *CredentialManager) ForceRefresh(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: key", shared.ErrMissingParameter)
	}
	return m.refresh(ctx, key, true)
}

// Disconnect deletes the credential stored under key.
func (m *CredentialManager) Disconnect(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("%w: key", shared.ErrMissingParameter)
	}
	if err := m.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("%w: %w", shared.ErrInternal, err)
	}
	m.logger.Info("disconnected", "key", key)
	return nil
}

// refresh runs at most one refresh per key at a time; callers arriving while one is in
// flight share its result.
//
// The refresh is detached from the caller's cancellation and bounded by refreshTimeout.
// Once the token endpoint has rotated the refresh token the new one must reach the store,
// and joined callers must not inherit the first caller's cancellation.
func (m *CredentialManager) refresh(ctx context.Context, key string, force bool) (string, error) {
	v, err, joined := m.group.Do(key, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()

		cred, err := m.load(rctx, key)
		if err != nil {
			return "", err
		}

		if !force && cred.Valid(m.now()) {
			return cred.AccessToken, nil
		}

		return m.rotate(rctx, key, cred)
	})
	if joined {
		m.logger.Debug("joined in-flight refresh", "key", key)
	}
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (m *CredentialManager) rotate(ctx context.Context, key string, cred *models.Credential) (string, error) {
	if cred.RefreshToken == "" {
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, shared.ErrNoRefreshToken)
	}

	next, err := m.exchanger.ExchangeRefreshToken(ctx, cred.RefreshToken)
	if err != nil {
		m.logger.Warn("refresh rejected", "key", key, "error", err)
		return "", fmt.Errorf("%w: %w", shared.ErrRefreshFailed, err)
	}

	rotated := cred.Rotate(*next)
	if err := m.store.Put(ctx, key, &rotated); err != nil {
		return "", fmt.Errorf("%w: %w", shared.ErrInternal, err)
	}

	m.logger.Info("access token refreshed", "key", key, "expires_at", rotated.ExpiresAt,
		"rotated", rotated.RefreshToken != cred.RefreshToken)
	return rotated.AccessToken, nil
}

func (m *CredentialManager) load(ctx context.Context, key string) (*models.Credential, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: key", shared.ErrMissingParameter)
	}

	cred, err := m.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", shared.ErrInternal, err)
	}
	if cred == nil {
		return nil, fmt.Errorf("%w: %s", shared.ErrNotConnected, key)
	}
	return cred, nil
}
