package goPerm

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type mockProvider struct {
	mu          sync.Mutex
	users       map[string]UserRecord
	getCalls    int
	updateCalls int
	updateErr   error
}

func newMockProvider(users ...UserRecord) *mockProvider {
	p := &mockProvider{users: map[string]UserRecord{}}
	for _, u := range users {
		p.users[u.UserID] = u
	}
	return p
}

func (p *mockProvider) GetPermissionState(_ context.Context, userID string) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.getCalls++

	u, ok := p.users[userID]
	if !ok {
		return UserRecord{}, fmt.Errorf("mock provider: %w", ErrUserNotFound)
	}
	return u, nil
}

func (p *mockProvider) UpdatePermissionState(_ context.Context, userID string, update PermissionUpdate) (UserRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updateCalls++

	if p.updateErr != nil {
		return UserRecord{}, p.updateErr
	}
	u, ok := p.users[userID]
	if !ok {
		return UserRecord{}, fmt.Errorf("mock provider: %w", ErrUserNotFound)
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

// put writes a record directly, bypassing the engine and its invalidation.
func (p *mockProvider) put(u UserRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[u.UserID] = u
}

func (p *mockProvider) get(userID string) UserRecord {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.users[userID]
}

func (p *mockProvider) updates() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.updateCalls
}

func newTestRedis(tb testing.TB) (*miniredis.Miniredis, *redis.Client) {
	tb.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		tb.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tb.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Metrics.Enabled = true
	return cfg
}

func newTestEngine(tb testing.TB, up UserProvider) (*Engine, *miniredis.Miniredis) {
	tb.Helper()
	return newTestEngineWith(tb, testConfig(), up, nil, nil)
}

func newTestEngineWith(tb testing.TB, cfg Config, up UserProvider, sink AuditSink, logger *zap.Logger) (*Engine, *miniredis.Miniredis) {
	tb.Helper()

	mr, rdb := newTestRedis(tb)
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserProvider(up).
		WithAuditSink(sink).
		WithLogger(logger).
		Build()
	if err != nil {
		tb.Fatalf("Build failed: %v", err)
	}
	tb.Cleanup(engine.Close)
	return engine, mr
}
