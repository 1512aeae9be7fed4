// Package cache stores resolved effective permissions in Redis, one key per
// user.
//
// # Layout
//
// Each user is stored at "<prefix>:<userID>" as the JSON encoding of
// [permission.EffectivePermissions], with a fixed TTL set on write.
//
// # Failure semantics
//
//   - A missing key returns [ErrCacheMiss].
//   - A value that does not decode returns [ErrCorruptEntry]; the caller decides
//     whether to delete it.
//   - Any other Redis failure is wrapped in [ErrRedisUnavailable].
//
// Every call is bounded by the store's operation timeout in addition to the
// caller's context.
//
// # What this package must NOT do
//
//   - Resolve permissions or read user records.
//   - Decide whether a stale entry is still trustworthy.
package cache
