// Package tasks implements the credential lifecycle and the polling cache behind the now-playing endpoint.
//
// # Components
//
//  1. [CredentialManager] : owns every write to the credential store after creation
//     - [CredentialManager.Connect] exchanges an authorization code and stores the result
//     under the key picked by the configured [KeyStrategy]
//     - [CredentialManager.AccessToken] returns the stored token while it is valid and
//     refreshes it otherwise
//     - [CredentialManager.ForceRefresh] refreshes regardless of the stored expiry
//
//  2. [Poller] : the entry point polled by widgets
//     - serves a cache entry younger than the cache window without touching credentials
//     - otherwise fetches upstream, retrying exactly once after a forced refresh on 401
//     - writes every result back to the cache; a failed write is logged, not returned
//
//  3. [Watcher] : repeatedly polls a [SnapshotSource] and reports each result on a channel
//
// # Key Strategies
//
// [WidgetKeys] stores credentials under the OAuth state (or a generated opaque key) and
// [UserKeys] under the Spotify user id. One strategy is active per process, selected
// with [NewKeyStrategy].
//
// # Concurrency
//
// Requests for the same key are not serialized except around the refresh step, which
// goes through a [singleflight.Group] keyed by the storage key. Concurrent refreshes
// from separate processes are still possible; the last write wins.
package tasks
