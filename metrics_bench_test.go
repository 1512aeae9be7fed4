package goPerm

import (
	"context"
	"testing"
	"time"
)

func BenchmarkMetricsInc(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricActionAllowed)
	}
}

func BenchmarkMetricsIncDisabled(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: false})
	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		m.Inc(MetricActionAllowed)
	}
}

func BenchmarkMetricsIncParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Inc(MetricCacheHit)
		}
	})
}

func BenchmarkMetricsObserveLatencyParallel(b *testing.B) {
	m := NewMetrics(MetricsConfig{
		Enabled:                 true,
		EnableLatencyHistograms: true,
	})
	d := 800 * time.Microsecond
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Observe(MetricResolveLatency, d)
		}
	})
}

func BenchmarkHasActionCached(b *testing.B) {
	up := newMockProvider(UserRecord{UserID: "u1", Level: LevelUser, IsActive: true})
	engine, _ := newTestEngine(b, up)
	ctx := context.Background()

	if _, err := engine.HasAction(ctx, "u1", "product", "create"); err != nil {
		b.Fatalf("warm-up failed: %v", err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if ok, err := engine.HasAction(ctx, "u1", "product", "create"); err != nil || !ok {
			b.Fatalf("unexpected result ok=%v err=%v", ok, err)
		}
	}
}

func BenchmarkHasActionUncached(b *testing.B) {
	up := newMockProvider(UserRecord{UserID: "u1", Level: LevelUser, IsActive: true})
	engine, err := New().WithUserProvider(up).Build()
	if err != nil {
		b.Fatalf("Build failed: %v", err)
	}
	ctx := context.Background()

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if ok, err := engine.HasAction(ctx, "u1", "product", "create"); err != nil || !ok {
			b.Fatalf("unexpected result ok=%v err=%v", ok, err)
		}
	}
}
