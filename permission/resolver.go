package permission

import (
	"time"

	"go.uber.org/zap"
)

// UserState is the permission-relevant slice of a user record.
type UserState struct {
	UserID            string
	Level             Level
	IsActive          bool
	Overrides         string
	OverridesExpireAt *time.Time
}

// Resolver computes effective permissions from a user's state. It holds no
// mutable state and is safe for concurrent use.
type Resolver struct {
	registry *Registry
	codec    *Codec
	logger   *zap.Logger
}

// NewResolver returns a resolver over registry. A nil logger discards output.
func NewResolver(registry *Registry, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		registry: registry,
		codec:    NewCodec(registry, logger),
		logger:   logger,
	}
}

// Codec returns the override codec bound to the resolver's registry.
func (r *Resolver) Codec() *Codec {
	return r.codec
}

// Resolve computes the effective permissions of user at now.
//
// Inactive users resolve to no permissions. Unexpired overrides replace the
// level-derived mask of each feature they name; they are never merged with it.
func (r *Resolver) Resolve(user UserState, now time.Time) EffectivePermissions {
	out := EffectivePermissions{
		UserID:      user.UserID,
		Level:       user.Level,
		Permissions: map[string]FeatureGrant{},
	}

	if !user.IsActive {
		out.ExpiresAt = copyTime(user.OverridesExpireAt)
		return out
	}

	expired := user.OverridesExpireAt != nil && user.OverridesExpireAt.Before(now)

	var overrides map[uint16]uint16
	if user.Overrides != "" && !expired {
		overrides = r.codec.Decode(user.Overrides)
	}

	for _, name := range r.registry.Catalog() {
		f, ok := r.registry.Feature(name)
		if !ok {
			r.logger.Error("permission: catalog feature missing from processed registry",
				zap.String("feature", name))
			continue
		}

		mask, overridden := overrides[f.ID]
		if !overridden {
			mask = f.LevelMask(user.Level)
		}

		if allowed := f.Allowed(mask); len(allowed) > 0 {
			out.Permissions[f.Name] = FeatureGrant{ID: f.ID, Actions: allowed}
		}
	}

	if !expired {
		out.ExpiresAt = copyTime(user.OverridesExpireAt)
	}
	return out
}

// LevelDefaults lists, per feature, the actions granted by level alone.
func (r *Resolver) LevelDefaults(level Level) map[string][]string {
	out := make(map[string][]string, r.registry.Count())
	for _, f := range r.registry.Features() {
		if allowed := f.Allowed(f.LevelMask(level)); len(allowed) > 0 {
			out[f.Name] = allowed
		}
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
