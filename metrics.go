package goPerm

import (
	"sync/atomic"
	"time"
)

// MetricID identifies one engine counter.
type MetricID uint16

const (
	// MetricActionAllowed counts HasAction calls that returned true.
	MetricActionAllowed MetricID = iota
	// MetricActionDenied counts HasAction calls that returned false or failed.
	MetricActionDenied
	// MetricLevelAllowed counts HasLevel calls that returned true.
	MetricLevelAllowed
	// MetricLevelDenied counts HasLevel calls that returned false or failed.
	MetricLevelDenied
	// MetricCacheHit counts resolutions served from Redis.
	MetricCacheHit
	// MetricCacheMiss counts resolutions with no usable cache entry.
	MetricCacheMiss
	// MetricCacheExpired counts cache entries discarded because their overrides had expired.
	MetricCacheExpired
	// MetricCacheError counts Redis read failures that fell back to direct computation.
	MetricCacheError
	// MetricCacheStoreFailed counts failed best-effort cache writes.
	MetricCacheStoreFailed
	// MetricCacheInvalidated counts successful explicit invalidations.
	MetricCacheInvalidated
	// MetricCacheInvalidationFailed counts invalidations that could not reach Redis.
	MetricCacheInvalidationFailed
	// MetricStateChanged counts successful permission-state writes.
	MetricStateChanged
	// MetricStateChangeFailed counts rejected or failed permission-state writes.
	MetricStateChangeFailed
	// MetricResolveLatency records end-to-end resolution latency.
	MetricResolveLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics is a fixed set of lock-free counters with one latency histogram.
// A nil or disabled Metrics ignores every call.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of every counter.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics returns counters configured by cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d in the histogram of id. Only [MetricResolveLatency] has a
// histogram; other ids are ignored.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enabled || !m.enableLatency || id >= metricIDCount {
		return
	}
	if id != MetricResolveLatency {
		return
	}

	b := bucketIndex(d)
	atomic.AddUint64(&m.histograms[id].buckets[b], 1)
}

// Value returns the current count of id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter, and the latency histogram when enabled.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := 0; i < histBucketCount; i++ {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricResolveLatency].buckets[i])
		}
		s.Histograms[MetricResolveLatency] = buckets
	}

	return s
}

// Resolution is mostly a Redis round trip, so buckets are sub-millisecond at
// the low end.
func bucketIndex(d time.Duration) int {
	us := d.Microseconds()

	switch {
	case us <= 250:
		return 0
	case us <= 500:
		return 1
	case us <= 1000:
		return 2
	case us <= 2500:
		return 3
	case us <= 5000:
		return 4
	case us <= 10000:
		return 5
	case us <= 50000:
		return 6
	default:
		return 7
	}
}
