package goPerm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	auditEventLevelChange       = "level_change"
	auditEventActiveChange      = "active_change"
	auditEventOverridesSet      = "overrides_set"
	auditEventOverridesCleared  = "overrides_cleared"
	auditEventCacheInvalidation = "cache_invalidation"
)

// AuditErrorCode is the stable error label written to [AuditEvent.Error].
type AuditErrorCode string

const (
	auditErrUserNotFound           AuditErrorCode = "user_not_found"
	auditErrNothingToEncode        AuditErrorCode = "nothing_to_encode"
	auditErrStateUpdateFailed      AuditErrorCode = "state_update_failed"
	auditErrInvalidationFailed     AuditErrorCode = "cache_invalidation_failed"
	auditErrUnknownFeatureOrAction AuditErrorCode = "unknown_feature_or_action"
	auditErrInternal               AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: e.now().UTC(),
		EventType: eventType,
		UserID:    userID,
		ActorID:   actorIDFromContext(ctx),
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

// Invalidation failure is checked before the update failure: a write that
// landed but left a stale cache entry is reported as such.
func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrNothingToEncode):
		return auditErrNothingToEncode
	case errors.Is(err, ErrCacheInvalidationFailed):
		return auditErrInvalidationFailed
	case errors.Is(err, ErrStateUpdateFailed):
		return auditErrStateUpdateFailed
	case errors.Is(err, ErrUnknownFeature),
		errors.Is(err, ErrUnknownAction):
		return auditErrUnknownFeatureOrAction
	default:
		return auditErrInternal
	}
}

func formatAuditTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
