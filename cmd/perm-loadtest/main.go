// Command perm-loadtest measures permission check latency against Redis.
//
// It seeds users in memory, then runs two phases: cached action checks, and
// level churn where every write invalidates the cache and the next check
// recomputes.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	goPerm "github.com/MrEthical07/goPerm"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var checks = []struct{ feature, action string }{
	{"order", "read"},
	{"order", "cancel"},
	{"invoice", "create"},
	{"report", "export"},
	{"config", "read"},
}

func main() {
	var (
		users       = flag.Int("users", 10000, "number of users to seed")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 200000, "operations per phase")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
		prefix      = flag.String("prefix", "perm", "cache key prefix")
	)
	flag.Parse()

	if *users <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "users, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	ctx := context.Background()

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}

	var (
		cleanup func()
		client  redis.UniversalClient
	)
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to start miniredis: %v\n", err)
			os.Exit(1)
		}
		addr = mr.Addr()
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() {
			_ = client.Close()
			mr.Close()
		}
		fmt.Printf("using miniredis at %s\n", addr)
	} else {
		client = redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{addr},
		})
		cleanup = func() { _ = client.Close() }
		fmt.Printf("using redis at %s\n", addr)
	}
	defer cleanup()

	provider := newMemoryProvider()
	ids := make([]string, *users)
	fmt.Printf("seeding %d users...\n", *users)
	startSeed := time.Now()
	for i := range ids {
		ids[i] = fmt.Sprintf("user-%d", i)
		provider.put(goPerm.UserRecord{
			UserID:   ids[i],
			Level:    goPerm.Level(i%4 + 1),
			IsActive: true,
		})
	}
	fmt.Printf("seeded in %s\n", time.Since(startSeed).Round(time.Millisecond))

	cfg := goPerm.DefaultConfig()
	cfg.Cache.RedisPrefix = *prefix
	engine, err := goPerm.New().
		WithConfig(cfg).
		WithRedis(client).
		WithUserProvider(provider).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "engine build failed: %v\n", err)
		os.Exit(1)
	}
	defer engine.Close()

	checkStats := runPhase(*ops, *concurrency, func(r *rand.Rand, _ int) error {
		c := checks[r.Intn(len(checks))]
		_, err := engine.HasAction(ctx, ids[r.Intn(len(ids))], c.feature, c.action)
		return err
	})
	churnStats := runPhase(*ops, *concurrency, func(r *rand.Rand, i int) error {
		id := ids[r.Intn(len(ids))]
		if i%2 == 0 {
			return engine.SetLevel(ctx, id, goPerm.Level(r.Intn(4)+1))
		}
		_, err := engine.HasAction(ctx, id, "order", "update")
		return err
	})

	snap := engine.MetricsSnapshot()

	fmt.Println("---- results ----")
	printStats("cached-check", checkStats)
	printStats("level-churn", churnStats)
	fmt.Printf("cache: hit=%d miss=%d invalidated=%d errors=%d\n",
		snap.Counters[goPerm.MetricCacheHit],
		snap.Counters[goPerm.MetricCacheMiss],
		snap.Counters[goPerm.MetricCacheInvalidated],
		snap.Counters[goPerm.MetricCacheError],
	)
}

func runPhase(ops, concurrency int, op func(r *rand.Rand, i int) error) phaseStats {
	var (
		wg        sync.WaitGroup
		cursor    int64
		failures  int64
		latencies = make([]time.Duration, 0, ops)
		mu        sync.Mutex
	)

	start := time.Now()
	for w := 0; w < concurrency; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			r := rand.New(rand.NewSource(time.Now().UnixNano() + int64(worker)*7919))
			for {
				i := int(atomic.AddInt64(&cursor, 1)) - 1
				if i >= ops {
					return
				}
				t0 := time.Now()
				err := op(r, i)
				d := time.Since(t0)
				if err != nil {
					atomic.AddInt64(&failures, 1)
				}
				mu.Lock()
				latencies = append(latencies, d)
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(start)
	return computeStats(total, latencies, failures)
}

type phaseStats struct {
	total    time.Duration
	ops      int
	failures int64
	p50      time.Duration
	p95      time.Duration
	p99      time.Duration
	opsPerS  float64
}

func computeStats(total time.Duration, samples []time.Duration, failures int64) phaseStats {
	if len(samples) == 0 {
		return phaseStats{total: total}
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	return phaseStats{
		total:    total,
		ops:      len(samples),
		failures: failures,
		p50:      percentile(samples, 50),
		p95:      percentile(samples, 95),
		p99:      percentile(samples, 99),
		opsPerS:  float64(len(samples)) / total.Seconds(),
	}
}

func percentile(samples []time.Duration, p int) time.Duration {
	if len(samples) == 0 {
		return 0
	}
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := (len(samples) - 1) * p / 100
	return samples[idx]
}

func printStats(name string, s phaseStats) {
	fmt.Printf("%s: ops=%d failures=%d total=%s ops/sec=%.0f p50=%s p95=%s p99=%s\n",
		name,
		s.ops,
		s.failures,
		s.total.Round(time.Millisecond),
		s.opsPerS,
		s.p50.Round(time.Microsecond),
		s.p95.Round(time.Microsecond),
		s.p99.Round(time.Microsecond),
	)
}

type memoryProvider struct {
	mu    sync.RWMutex
	users map[string]goPerm.UserRecord
}

func newMemoryProvider() *memoryProvider {
	return &memoryProvider{users: make(map[string]goPerm.UserRecord)}
}

func (p *memoryProvider) put(u goPerm.UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.UserID] = u
}

func (p *memoryProvider) GetPermissionState(_ context.Context, userID string) (goPerm.UserRecord, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	u, ok := p.users[userID]
	if !ok {
		return goPerm.UserRecord{}, goPerm.ErrUserNotFound
	}
	return u, nil
}

func (p *memoryProvider) UpdatePermissionState(_ context.Context, userID string, update goPerm.PermissionUpdate) (goPerm.UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	u, ok := p.users[userID]
	if !ok {
		return goPerm.UserRecord{}, goPerm.ErrUserNotFound
	}
	if update.Level != nil {
		u.Level = *update.Level
	}
	if update.IsActive != nil {
		u.IsActive = *update.IsActive
	}
	if update.SetOverrides {
		u.Overrides = update.Overrides
		u.OverridesExpireAt = update.OverridesExpireAt
	}
	p.users[userID] = u
	return u, nil
}
