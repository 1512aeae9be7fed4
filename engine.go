package goPerm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/MrEthical07/goPerm/cache"
	"github.com/MrEthical07/goPerm/permission"
	"go.uber.org/zap"
)

// Engine is the authorization gate. It answers action and level checks for a
// user by resolving their effective permissions through the cache.
//
// An Engine is built by [Builder.Build] and is safe for concurrent use.
type Engine struct {
	config   Config
	registry *permission.Registry
	resolver *permission.Resolver
	cache    *cache.Store
	users    UserProvider
	audit    *auditDispatcher
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// HealthStatus is an on-demand cache backend health result.
type HealthStatus struct {
	CacheEnabled   bool
	RedisAvailable bool
	RedisLatency   time.Duration
}

// Close flushes pending audit events and stops the dispatcher.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were dropped under backpressure.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a copy of the engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Registry returns the immutable feature registry the engine was built with.
func (e *Engine) Registry() *permission.Registry {
	if e == nil {
		return nil
	}
	return e.registry
}

// HasAction reports whether userID may perform action on feature.
//
// Inactive users are denied without touching the cache. Unknown features and
// actions are denied. Errors from the user provider are returned with a false
// result; wrap checks in deny-by-default handling.
func (e *Engine) HasAction(ctx context.Context, userID, feature, action string) (bool, error) {
	if e == nil || e.users == nil {
		return false, ErrEngineNotReady
	}

	user, err := e.loadUser(ctx, userID)
	if err != nil {
		e.metricInc(MetricActionDenied)
		return false, err
	}
	if !user.IsActive {
		e.metricInc(MetricActionDenied)
		return false, nil
	}

	perms := e.effectivePermissions(ctx, userID, user)
	if !perms.Allows(feature, action) {
		e.metricInc(MetricActionDenied)
		return false, nil
	}

	e.metricInc(MetricActionAllowed)
	return true, nil
}

// HasLevel reports whether userID is active and at or above required.
func (e *Engine) HasLevel(ctx context.Context, userID string, required Level) (bool, error) {
	if e == nil || e.users == nil {
		return false, ErrEngineNotReady
	}

	user, err := e.loadUser(ctx, userID)
	if err != nil {
		e.metricInc(MetricLevelDenied)
		return false, err
	}
	if !user.IsActive || user.Level < required {
		e.metricInc(MetricLevelDenied)
		return false, nil
	}

	e.metricInc(MetricLevelAllowed)
	return true, nil
}

// Resolve returns the effective permissions of userID, from the cache when
// possible.
func (e *Engine) Resolve(ctx context.Context, userID string) (*EffectivePermissions, error) {
	if e == nil || e.users == nil {
		return nil, ErrEngineNotReady
	}

	user, err := e.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return e.effectivePermissions(ctx, userID, user), nil
}

// ListAllFeatures returns every feature with all of its action names.
func (e *Engine) ListAllFeatures() map[string][]string {
	if e == nil || e.registry == nil {
		return map[string][]string{}
	}
	return e.registry.AllActions()
}

// ListActionsAtLevel returns, per feature, the actions granted by level alone,
// ignoring overrides. Features with no granted action are omitted.
func (e *Engine) ListActionsAtLevel(level Level) map[string][]string {
	if e == nil || e.resolver == nil {
		return map[string][]string{}
	}
	return e.resolver.LevelDefaults(level)
}

// EncodeOverrides packs perms (feature name to action names) into the stored
// override string. Unknown names are skipped and logged; ErrNothingToEncode
// is returned when nothing remains.
func (e *Engine) EncodeOverrides(perms map[string][]string) (string, error) {
	if e == nil || e.resolver == nil {
		return "", ErrEngineNotReady
	}
	encoded, ok := e.resolver.Codec().Encode(perms)
	if !ok {
		return "", ErrNothingToEncode
	}
	return encoded, nil
}

// EncodeOverridesStrict is EncodeOverrides that rejects unknown names instead
// of skipping them. See [Engine.ValidateOverrides].
func (e *Engine) EncodeOverridesStrict(perms map[string][]string) (string, error) {
	if err := e.ValidateOverrides(perms); err != nil {
		return "", err
	}
	return e.EncodeOverrides(perms)
}

// ValidateOverrides checks every feature and action name in perms against the
// registry. Each problem is wrapped in [ErrUnknownFeature] or
// [ErrUnknownAction]; all of them are joined into the returned error.
func (e *Engine) ValidateOverrides(perms map[string][]string) error {
	if e == nil || e.registry == nil {
		return ErrEngineNotReady
	}

	names := make([]string, 0, len(perms))
	for name := range perms {
		names = append(names, name)
	}
	sort.Strings(names)

	var errs []error
	for _, name := range names {
		f, ok := e.registry.Feature(name)
		if !ok {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownFeature, name))
			continue
		}
		for _, action := range perms[name] {
			if _, ok := f.Action(action); !ok {
				errs = append(errs, fmt.Errorf("%w: %s.%s", ErrUnknownAction, name, action))
			}
		}
	}
	return errors.Join(errs...)
}

// DecodeOverrides expands an override string into feature names and the
// actions each decoded mask satisfies. A feature whose mask satisfies no
// action maps to an empty list.
func (e *Engine) DecodeOverrides(overrides string) map[string][]string {
	out := map[string][]string{}
	if e == nil || e.resolver == nil {
		return out
	}

	for id, mask := range e.resolver.Codec().Decode(overrides) {
		f, ok := e.registry.FeatureByID(id)
		if !ok {
			continue
		}
		allowed := f.Allowed(mask)
		if allowed == nil {
			allowed = []string{}
		}
		out[f.Name] = allowed
	}
	return out
}

// Health pings the cache backend.
func (e *Engine) Health(ctx context.Context) HealthStatus {
	if e == nil || e.cache == nil {
		return HealthStatus{}
	}

	latency, err := e.cache.Ping(ctx)
	return HealthStatus{
		CacheEnabled:   true,
		RedisAvailable: err == nil,
		RedisLatency:   latency,
	}
}

func (e *Engine) loadUser(ctx context.Context, userID string) (UserRecord, error) {
	user, err := e.users.GetPermissionState(ctx, userID)
	if err != nil {
		return UserRecord{}, err
	}
	if user.UserID == "" {
		user.UserID = userID
	}
	return user, nil
}
