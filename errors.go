package goPerm

import "errors"

var (
	// ErrUserNotFound is returned when the user provider has no record for the id.
	ErrUserNotFound = errors.New("user not found")
	// ErrUnknownFeature is returned when a feature name is not in the registry.
	ErrUnknownFeature = errors.New("unknown feature")
	// ErrUnknownAction is returned when an action name is not defined for a feature.
	ErrUnknownAction = errors.New("unknown action")
	// ErrNothingToEncode is returned when an override request contains no known feature.
	ErrNothingToEncode = errors.New("no encodable overrides")
	// ErrCacheInvalidationFailed is returned when a cached permission set could not be removed.
	ErrCacheInvalidationFailed = errors.New("permission cache invalidation failed")
	// ErrStateUpdateFailed is returned when the user provider rejected a permission-state write.
	ErrStateUpdateFailed = errors.New("permission state update failed")
	// ErrEngineNotReady is returned by operations on a nil or closed engine.
	ErrEngineNotReady = errors.New("permission engine not ready")
)
