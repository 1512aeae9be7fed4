// Package goPerm is a feature/action permission engine: a fixed catalog of
// protected features whose actions are inheritable bitmasks, per-user overrides
// packed into a compact string, and a Redis-cached resolver behind a small
// authorization gate.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// goPerm is the public surface. It exposes [Engine], [Builder], [Config], and the
// [UserProvider] integration point. Catalog processing, override encoding, and
// resolution live in the permission package; the Redis entry format lives in the
// cache package.
//
// # Cache consistency
//
// A cached resolution is served until it expires or is invalidated. The
// engine's write methods (SetLevel, SetActive, SetOverrides, ClearOverrides)
// invalidate for the caller. Code that changes user permission state directly
// in storage must call [Engine.Invalidate].
//
// # What this package must NOT do
//
//   - Expose Redis clients or the cache entry encoding in its public API.
//   - Store user records; persistence belongs to the UserProvider.
//   - Turn a failed lookup into an allow.
package goPerm
