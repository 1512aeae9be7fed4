package goPerm

import (
	"context"
	"errors"

	"github.com/MrEthical07/goPerm/cache"
	"go.uber.org/zap"
)

// effectivePermissions resolves user through the cache entry keyed by userID,
// the id the caller asked for, so Invalidate(userID) always reaches it. It
// never fails: any cache problem degrades to direct computation.
//
// A cached entry reflects the user state at the time it was written and is
// served until it expires or is invalidated. A result that is already expired
// when computed is not stored.
func (e *Engine) effectivePermissions(ctx context.Context, userID string, user UserRecord) *EffectivePermissions {
	start := e.now()
	defer func() {
		if e.metrics.LatencyEnabled() {
			e.metrics.Observe(MetricResolveLatency, e.now().Sub(start))
		}
	}()

	if e.cache == nil {
		return e.compute(user)
	}

	cached, err := e.cache.Get(ctx, userID)
	switch {
	case err == nil:
		if !cached.Expired(e.now()) {
			e.metricInc(MetricCacheHit)
			return cached
		}
		e.metricInc(MetricCacheExpired)
		e.dropEntry(ctx, userID, "expired")

	case errors.Is(err, cache.ErrCacheMiss):
		e.metricInc(MetricCacheMiss)

	case errors.Is(err, cache.ErrCorruptEntry):
		e.metricInc(MetricCacheMiss)
		e.logger.Warn("permission cache: discarding undecodable entry",
			zap.String("user_id", userID),
			zap.Error(err))
		e.dropEntry(ctx, userID, "corrupt")

	default:
		e.metricInc(MetricCacheError)
		e.logger.Warn("permission cache: read failed, computing directly",
			zap.String("user_id", userID),
			zap.Error(err))
		return e.compute(user)
	}

	perms := e.compute(user)
	if perms.Expired(e.now()) {
		return perms
	}
	if err := e.cache.Set(ctx, userID, perms); err != nil {
		e.metricInc(MetricCacheStoreFailed)
		e.logger.Warn("permission cache: store failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}
	return perms
}

func (e *Engine) compute(user UserRecord) *EffectivePermissions {
	perms := e.resolver.Resolve(user.state(), e.now())
	return &perms
}

func (e *Engine) dropEntry(ctx context.Context, userID, reason string) {
	if err := e.cache.Delete(ctx, userID); err != nil {
		e.logger.Warn("permission cache: delete failed",
			zap.String("user_id", userID),
			zap.String("reason", reason),
			zap.Error(err))
	}
}
