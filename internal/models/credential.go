package models

import (
	"fmt"
	"time"
)

const (
	// DefaultSafetyMargin is subtracted from the declared token lifetime when computing [Credential.ExpiresAt].
	DefaultSafetyMargin = 60 * time.Second
	// DefaultTokenLifetime is assumed when the token endpoint omits expires_in.
	DefaultTokenLifetime = 3600 * time.Second
)

// Credential is the persisted OAuth credential pair for a single key.
type Credential struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// ExpiryFrom returns now + lifetime - margin.
//
// A non-positive lifetime is replaced with [DefaultTokenLifetime].
func ExpiryFrom(now time.Time, lifetime, margin time.Duration) time.Time {
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return now.Add(lifetime - margin)
}

// Valid reports whether the access token can be used at the given instant without a refresh.
func (c *Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// Rotate returns the record produced by applying a refresh result to c.
//
// The access token and expiry are always replaced. The refresh token is only
// replaced when the upstream issued a new one.
func (c Credential) Rotate(next Credential) Credential {
	rotated := Credential{
		AccessToken:  next.AccessToken,
		RefreshToken: c.RefreshToken,
		ExpiresAt:    next.ExpiresAt,
	}
	if next.RefreshToken != "" {
		rotated.RefreshToken = next.RefreshToken
	}
	return rotated
}

// Validate checks that the record can be persisted.
func (c *Credential) Validate() error {
	if c.AccessToken == "" {
		return fmt.Errorf("access token is required")
	}
	if c.ExpiresAt.IsZero() {
		return fmt.Errorf("expiry is required")
	}
	return nil
}
