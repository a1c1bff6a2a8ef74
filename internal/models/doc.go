// Package models defines the domain entities shared by the now-playing service.
//
// The package contains three types:
//
//   - [Credential] : access/refresh token pair with an absolute expiry, stored per opaque key
//   - [CacheEntry] : last fetched [Snapshot] for a key, stamped with its fetch instant
//   - [Snapshot] : normalized "now playing" state returned to widgets, with an optional [Track]
//
// A Credential and a CacheEntry share the same key but are otherwise unrelated.
// Stored expiries are computed with a safety margin (see [ExpiryFrom]) so a token is
// treated as expired slightly before the upstream would reject it.
package models
