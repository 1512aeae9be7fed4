package goPerm

import (
	"context"
	"time"

	"github.com/MrEthical07/goPerm/permission"
)

// Level is the user security level. See [permission.Level].
type Level = permission.Level

// EffectivePermissions is a user's resolved permission set. See
// [permission.EffectivePermissions].
type EffectivePermissions = permission.EffectivePermissions

// FeatureConfig declares one catalog feature. See [permission.FeatureConfig].
type FeatureConfig = permission.FeatureConfig

const (
	LevelReader = permission.LevelReader
	LevelUser   = permission.LevelUser
	LevelEditor = permission.LevelEditor
	LevelAdmin  = permission.LevelAdmin
)

// UserRecord is the permission-relevant part of a user as stored by the caller.
// Overrides holds the encoded override string; empty means none.
type UserRecord struct {
	UserID            string
	Level             Level
	IsActive          bool
	Overrides         string
	OverridesExpireAt *time.Time
}

func (r UserRecord) state() permission.UserState {
	return permission.UserState{
		UserID:            r.UserID,
		Level:             r.Level,
		IsActive:          r.IsActive,
		Overrides:         r.Overrides,
		OverridesExpireAt: r.OverridesExpireAt,
	}
}

// PermissionUpdate describes a partial write of a user's permission state. Nil
// fields are left unchanged. When SetOverrides is true, Overrides and
// OverridesExpireAt replace the stored values, including with empty ones.
type PermissionUpdate struct {
	Level             *Level
	IsActive          *bool
	SetOverrides      bool
	Overrides         string
	OverridesExpireAt *time.Time
}

// UserProvider is the interface callers implement to connect the engine to
// their user database. GetPermissionState must return an error wrapping
// [ErrUserNotFound] for unknown ids. UpdatePermissionState applies update and
// returns the stored record.
type UserProvider interface {
	GetPermissionState(ctx context.Context, userID string) (UserRecord, error)
	UpdatePermissionState(ctx context.Context, userID string, update PermissionUpdate) (UserRecord, error)
}
