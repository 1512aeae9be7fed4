package goPerm

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// SetLevel stores a new base level for userID and invalidates its cache entry.
func (e *Engine) SetLevel(ctx context.Context, userID string, level Level) error {
	return e.applyUpdate(ctx, auditEventLevelChange, userID, PermissionUpdate{Level: &level}, func() map[string]string {
		return map[string]string{
			"level": level.String(),
		}
	})
}

// SetActive activates or deactivates userID and invalidates its cache entry.
func (e *Engine) SetActive(ctx context.Context, userID string, active bool) error {
	return e.applyUpdate(ctx, auditEventActiveChange, userID, PermissionUpdate{IsActive: &active}, func() map[string]string {
		return map[string]string{
			"active": strconv.FormatBool(active),
		}
	})
}

// SetOverrides replaces the per-feature overrides of userID. perms maps feature
// names to the action names granted; an empty list revokes every action of
// that feature. A nil expiresAt means the overrides never expire.
//
// Overrides replace the level-derived grants of the features they name; they
// are not merged with them. With Overrides.Strict set, unknown names reject
// the request before anything is written.
func (e *Engine) SetOverrides(ctx context.Context, userID string, perms map[string][]string, expiresAt *time.Time) error {
	encode := e.EncodeOverrides
	if e != nil && e.config.Overrides.Strict {
		encode = e.EncodeOverridesStrict
	}
	encoded, err := encode(perms)
	if err != nil {
		e.metricInc(MetricStateChangeFailed)
		e.emitAudit(ctx, auditEventOverridesSet, false, userID, err, nil)
		return err
	}

	update := PermissionUpdate{
		SetOverrides:      true,
		Overrides:         encoded,
		OverridesExpireAt: copyTimePtr(expiresAt),
	}
	return e.applyUpdate(ctx, auditEventOverridesSet, userID, update, func() map[string]string {
		md := map[string]string{
			"features": strconv.Itoa(len(e.resolver.Codec().Decode(encoded))),
		}
		if expiresAt != nil {
			md["expires_at"] = formatAuditTime(expiresAt)
		}
		return md
	})
}

// ClearOverrides removes every override of userID, returning it to its
// level-derived permissions.
func (e *Engine) ClearOverrides(ctx context.Context, userID string) error {
	return e.applyUpdate(ctx, auditEventOverridesCleared, userID, PermissionUpdate{SetOverrides: true}, nil)
}

// Invalidate deletes the cached permissions of userID. Callers that change a
// user's level, active flag, overrides, or override expiry outside the engine
// must call it. It returns an error wrapping [ErrCacheInvalidationFailed]
// when the entry could not be removed.
func (e *Engine) Invalidate(ctx context.Context, userID string) error {
	if e == nil {
		return ErrEngineNotReady
	}

	err := e.invalidate(ctx, userID)
	e.emitAudit(ctx, auditEventCacheInvalidation, err == nil, userID, err, nil)
	return err
}

func (e *Engine) invalidate(ctx context.Context, userID string) error {
	if e.cache == nil {
		return nil
	}

	if err := e.cache.Delete(ctx, userID); err != nil {
		e.metricInc(MetricCacheInvalidationFailed)
		e.logger.Error("permission cache: invalidation failed",
			zap.String("user_id", userID),
			zap.Error(err))
		return errors.Join(ErrCacheInvalidationFailed, err)
	}

	e.metricInc(MetricCacheInvalidated)
	return nil
}

// applyUpdate writes through the provider, then invalidates. A write whose
// invalidation fails is reported as failed: the stored state changed but
// cached reads may still serve the old permissions until the TTL passes.
func (e *Engine) applyUpdate(
	ctx context.Context,
	eventType string,
	userID string,
	update PermissionUpdate,
	metadataBuilder func() map[string]string,
) error {
	if e == nil || e.users == nil {
		return ErrEngineNotReady
	}

	if _, err := e.users.UpdatePermissionState(ctx, userID, update); err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			err = errors.Join(ErrStateUpdateFailed, err)
		}
		e.metricInc(MetricStateChangeFailed)
		e.emitAudit(ctx, eventType, false, userID, err, metadataBuilder)
		return err
	}

	if err := e.invalidate(ctx, userID); err != nil {
		e.metricInc(MetricStateChangeFailed)
		e.emitAudit(ctx, eventType, false, userID, err, metadataBuilder)
		return err
	}

	e.metricInc(MetricStateChanged)
	e.emitAudit(ctx, eventType, true, userID, nil, metadataBuilder)
	return nil
}

func copyTimePtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
