// Package permission provides the feature catalog, the action bitmask processor,
// the override codec, and the resolver that turns a user's permission state into
// an effective feature/action map.
//
// # Masks
//
// Every feature owns a 16-bit action space. Each action has a single bit value and
// a combined mask: its own bit OR the combined masks of every action it inherits,
// transitively. Combined masks are computed once, by [NewRegistry], and the
// resulting [Registry] is immutable and safe for concurrent use without locking.
//
// # Override wire format
//
// Per-user overrides are persisted as ASCII decimal uint32 tokens joined by '.'.
// Each token packs (featureID << 16) | mask. See [Pack], [Unpack] and [Codec].
//
// # Architecture boundaries
//
// This package is pure computation: it never touches Redis, databases, or the
// network. Time is passed in explicitly by callers.
//
// # What this package must NOT do
//
//   - Access Redis, databases, or the network.
//   - Import goPerm, cache, or any other sibling package.
//   - Mutate a Registry after construction.
package permission
