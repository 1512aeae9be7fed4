package internaldefs

import (
	goPerm "github.com/MrEthical07/goPerm"
)

// CounterDef names one engine counter.
type CounterDef struct {
	ID   goPerm.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram.
type HistogramDef struct {
	ID   goPerm.MetricID
	Name string
	Help string
}

// AuditDroppedName is the counter for events dropped by the audit dispatcher.
const AuditDroppedName = "goperm_audit_dropped_total"

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: goPerm.MetricActionAllowed, Name: "goperm_action_allowed_total", Help: "Action checks that were allowed."},
	{ID: goPerm.MetricActionDenied, Name: "goperm_action_denied_total", Help: "Action checks that were denied or failed."},
	{ID: goPerm.MetricLevelAllowed, Name: "goperm_level_allowed_total", Help: "Level checks that were allowed."},
	{ID: goPerm.MetricLevelDenied, Name: "goperm_level_denied_total", Help: "Level checks that were denied or failed."},
	{ID: goPerm.MetricCacheHit, Name: "goperm_cache_hit_total", Help: "Resolutions served from the permission cache."},
	{ID: goPerm.MetricCacheMiss, Name: "goperm_cache_miss_total", Help: "Resolutions without a usable cache entry."},
	{ID: goPerm.MetricCacheExpired, Name: "goperm_cache_expired_total", Help: "Cache entries discarded after their overrides expired."},
	{ID: goPerm.MetricCacheError, Name: "goperm_cache_error_total", Help: "Cache reads that failed and fell back to direct computation."},
	{ID: goPerm.MetricCacheStoreFailed, Name: "goperm_cache_store_failed_total", Help: "Failed cache writes."},
	{ID: goPerm.MetricCacheInvalidated, Name: "goperm_cache_invalidated_total", Help: "Successful cache invalidations."},
	{ID: goPerm.MetricCacheInvalidationFailed, Name: "goperm_cache_invalidation_failed_total", Help: "Cache invalidations that failed."},
	{ID: goPerm.MetricStateChanged, Name: "goperm_state_changed_total", Help: "Successful permission-state writes."},
	{ID: goPerm.MetricStateChangeFailed, Name: "goperm_state_change_failed_total", Help: "Permission-state writes that were rejected or failed."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: goPerm.MetricResolveLatency, Name: "goperm_resolve_latency_seconds", Help: "Permission resolution latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine's latency
// buckets.
var HistogramBounds = []string{
	"0.00025",
	"0.0005",
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"0.05",
	"+Inf",
}

// HistogramBoundSuffix are HistogramBounds spelled for use in metric names.
var HistogramBoundSuffix = []string{
	"0_00025",
	"0_0005",
	"0_001",
	"0_0025",
	"0_005",
	"0_01",
	"0_05",
	"inf",
}

// NormalizeBuckets copies raw into a fixed array, padding with zeros.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
