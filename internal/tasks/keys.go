package tasks

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/nowplaying/internal/models"
	"github.com/desertthunder/nowplaying/internal/services"
	"github.com/desertthunder/nowplaying/internal/shared"
)

// maxKeyLength bounds caller-chosen widget keys.
const maxKeyLength = 128

// KeyStrategy decides which opaque key a credential is stored under.
type KeyStrategy interface {
	Name() string
	// State returns the OAuth state sent with a login redirect for the requested key.
	State(requested string) (string, error)
	// Resolve returns the storage key for a credential obtained with state.
	Resolve(ctx context.Context, state string, cred *models.Credential) (string, error)
}

// ProfileReader looks up the upstream identity of an access token.
type ProfileReader interface {
	UserProfile(ctx context.Context, accessToken string) (*services.SpotifyUser, error)
}

// NewKeyStrategy returns the strategy registered under name.
func NewKeyStrategy(name string, profiles ProfileReader) (KeyStrategy, error) {
	switch name {
	case "", shared.KeyStrategyWidget:
		return WidgetKeys{}, nil
	case shared.KeyStrategyUser:
		if profiles == nil {
			return nil, fmt.Errorf("%w: user key strategy needs a profile reader", shared.ErrInvalidConfig)
		}
		return UserKeys{profiles: profiles}, nil
	default:
		return nil, fmt.Errorf("%w: unknown key strategy %q", shared.ErrInvalidConfig, name)
	}
}

// WidgetKeys keys credentials by a random widget token.
//
// The state of the login redirect carries the token, so a widget can pick its own key
// before connecting. Without one, a key is generated.
type WidgetKeys struct{}

func (WidgetKeys) Name() string { return shared.KeyStrategyWidget }

func (WidgetKeys) State(requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" {
		return shared.GenerateKey(), nil
	}
	if err := validKey(requested); err != nil {
		return "", err
	}
	return requested, nil
}

func (WidgetKeys) Resolve(_ context.Context, state string, _ *models.Credential) (string, error) {
	state = strings.TrimSpace(state)
	if state == "" {
		return shared.GenerateKey(), nil
	}
	if err := validKey(state); err != nil {
		return "", err
	}
	return state, nil
}

// UserKeys keys credentials by the Spotify user id.
type UserKeys struct {
	profiles ProfileReader
}

func (UserKeys) Name() string { return shared.KeyStrategyUser }

// State ignores the requested key; the identity is only known after the exchange.
func (UserKeys) State(string) (string, error) {
	return shared.GenerateKey(), nil
}

func (u UserKeys) Resolve(ctx context.Context, _ string, cred *models.Credential) (string, error) {
	user, err := u.profiles.UserProfile(ctx, cred.AccessToken)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func validKey(key string) error {
	if len(key) > maxKeyLength {
		return fmt.Errorf("%w: key longer than %d characters", shared.ErrMissingParameter, maxKeyLength)
	}
	for _, r := range key {
		if r < 0x21 || r > 0x7e {
			return fmt.Errorf("%w: key contains invalid characters", shared.ErrMissingParameter)
		}
	}
	return nil
}
