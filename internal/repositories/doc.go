// Package repositories implements persistence for credentials and cached snapshots.
//
// Storage is reached through the [KV] capability (get/set/delete on opaque string keys).
// Two backends are provided:
//   - [SQLiteKV] : rows in the kv_entries table, one namespace per logical store
//   - [RedisKV] : plain string keys of the form "<namespace>:<key>"
//
// On top of a KV, [CredentialRepository] and [CacheRepository] encode records as JSON.
// Every write is a full-record overwrite; there are no partial field updates and the
// last writer for a key wins.
package repositories
