package goPerm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/MrEthical07/goPerm/permission"
)

func TestSetLevelInvalidatesCache(t *testing.T) {
	up := newMockProvider(UserRecord{UserID: "u1", Level: LevelReader, IsActive: true})
	engine, mr := newTestEngine(t, up)
	ctx := context.Background()

	if ok, _ := engine.HasAction(ctx, "u1", "config", "read"); ok {
		t.Fatal("expected reader to lack config.read")
	}
	if !mr.Exists("perm:u1") {
		t.Fatal("expected cache entry")
	}

	if err := engine.SetLevel(ctx, "u1", LevelEditor); err != nil {
		t.Fatalf("SetLevel failed: %v", err)
	}
	if got := up.get("u1").Level; got != LevelEditor {
		t.Fatalf("expected stored level editor, got %v", got)
	}
	if mr.Exists("perm:u1") {
		t.Fatal("expected cache entry to be invalidated")
	}
	if ok, _ := engine.HasAction(ctx, "u1", "config", "read"); !ok {
		t.Fatal("expected editor to have config.read")
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricStateChanged] != 1 || snap.Counters[MetricCacheInvalidated] != 1 {
		t.Fatalf("unexpected counters: %v", snap.Counters)
	}
}

func TestSetActiveTogglesAccess(t *testing.T) {
	up := newMockProvider(UserRecord{UserID: "u1", Level: LevelAdmin, IsActive: true})
	engine, _ := newTestEngine(t, up)
	ctx := context.Background()

	if ok, _ := engine.HasAction(ctx, "u1", "user", "create"); !ok {
		t.Fatal("expected active admin to be allowed")
	}
	if err := engine.SetActive(ctx, "u1", false); err != nil {
		t.Fatalf("SetActive(false) failed: %v", err)
	}
	if ok, _ := engine.HasAction(ctx, "u1", "user", "create"); ok {
		t.Fatal("expected deactivated admin to be denied")
	}
	if ok, _ := engine.HasLevel(ctx, "u1", LevelReader); ok {
		t.Fatal("expected deactivated admin to fail level checks")
	}
	if err := engine.SetActive(ctx, "u1", true); err != nil {
		t.Fatalf("SetActive(true) failed: %v", err)
	}
	if ok, _ := engine.HasAction(ctx, "u1", "user", "create"); !ok {
		t.Fatal("expected reactivated admin to be allowed")
	}
}

func TestSetAndClearOverrides(t *testing.T) {
	up := newMockProvider(UserRecord{UserID: "u1", Level: LevelUser, IsActive: true})
	engine, _ := newTestEngine(t, up)
	ctx := context.Background()
	exp := time.Now().Add(time.Hour).UTC()

	if ok, _ := engine.HasAction(ctx, "u1", "product", "read"); !ok {
		t.Fatal("expected level default product.read")
	}

	err := engine.SetOverrides(ctx, "u1", map[string][]string{
		"product": {},
		"config":  {"update"},
	}, &exp)
	if err != nil {
		t.Fatalf("SetOverrides failed: %v", err)
	}

	stored := up.get("u1")
	want := fmt.Sprint(permission.Pack(5, 0)) + "." + fmt.Sprint(permission.Pack(6, 3))
	if stored.Overrides != want {
		t.Fatalf("expected stored overrides %q, got %q", want, stored.Overrides)
	}
	if stored.OverridesExpireAt == nil || !stored.OverridesExpireAt.Equal(exp) {
		t.Fatalf("expected stored expiry %v, got %v", exp, stored.OverridesExpireAt)
	}

	if ok, _ := engine.HasAction(ctx, "u1", "product", "read"); ok {
		t.Fatal("expected product revoked by override")
	}
	if ok, _ := engine.HasAction(ctx, "u1", "config", "update"); !ok {
		t.Fatal("expected config.update granted by override")
	}
	perms, err := engine.Resolve(ctx, "u1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if perms.ExpiresAt == nil || !perms.ExpiresAt.Equal(exp) {
		t.Fatalf("expected resolved expiry %v, got %v", exp, perms.ExpiresAt)
	}

	if err := engine.ClearOverrides(ctx, "u1"); err != nil {
		t.Fatalf("ClearOverrides failed: %v", err)
	}
	stored = up.get("u1")
	if stored.Overrides != "" || stored.OverridesExpireAt != nil {
		t.Fatalf("expected overrides cleared, got %+v", stored)
	}
	if ok, _ := engine.HasAction(ctx, "u1", "product", "read"); !ok {
		t.Fatal("expected level default restored")
	}
	if ok, _ := engine.HasAction(ctx, "u1", "config", "update"); ok {
		t.Fatal("expected override grant removed")
	}
}

func TestSetOverridesNothingToEncode(t *testing.T) {
	up := newMockProvider(UserRecord{UserID: "u1", Level: LevelUser, IsActive: true})
	engine, _ := newTestEngine(t, up)

	err := engine.SetOverrides(context.Background(), "u1", map[string][]string{"nope": {"read"}}, nil)
	if !errors.Is(err, ErrNothingToEncode) {
		t.Fatalf("expected ErrNothingToEncode, got %v", err)
	}
	if up.updates() != 0 {
		t.Fatal("expected no provider write")
	}
}

func TestSetOverridesStrictRejectsUnknownNames(t *testing.T) {
	up := newMockProvider(UserRecord{UserID: "u1", Level: LevelUser, IsActive: true})
	cfg := testConfig()
	cfg.Overrides.Strict = true
	engine, _ := newTestEngineWith(t, cfg, up, nil, nil)
	ctx := context.Background()

	err := engine.SetOverrides(ctx, "u1", map[string][]string{"product": {"read"}, "nope": {"read"}}, nil)
	if !errors.Is(err, ErrUnknownFeature) {
		t.Fatalf("expected ErrUnknownFeature, got %v", err)
	}
	err = engine.SetOverrides(ctx, "u1", map[string][]string{"product": {"fly"}}, nil)
	if !errors.Is(err, ErrUnknownAction) {
		t.Fatalf("expected ErrUnknownAction, got %v", err)
	}
	if up.updates() != 0 {
		t.Fatal("expected no provider write")
	}
	if c := engine.MetricsSnapshot().Counters[MetricStateChangeFailed]; c != 2 {
		t.Fatalf("expected 2 failed state changes, got %d", c)
	}

	if err := engine.SetOverrides(ctx, "u1", map[string][]string{"product": {"read"}}, nil); err != nil {
		t.Fatalf("SetOverrides failed: %v", err)
	}
}

func TestStateUpdateProviderFailure(t *testing.T) {
	up := newMockProvider(UserRecord{UserID: "u1", Level: LevelUser, IsActive: true})
	up.updateErr = errors.New("db down")
	engine, _ := newTestEngine(t, up)

	err := engine.SetLevel(context.Background(), "u1", LevelAdmin)
	if !errors.Is(err, ErrStateUpdateFailed) {
		t.Fatalf("expected ErrStateUpdateFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "db down") {
		t.Fatalf("expected cause in error, got %v", err)
	}
	if c := engine.MetricsSnapshot().Counters[MetricStateChangeFailed]; c != 1 {
		t.Fatalf("expected 1 failed change, got %d", c)
	}
}

func TestStateUpdateUnknownUser(t *testing.T) {
	engine, _ := newTestEngine(t, newMockProvider())

	err := engine.SetActive(context.Background(), "ghost", true)
	if !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if errors.Is(err, ErrStateUpdateFailed) {
		t.Fatal("unknown user must not be reported as a backend failure")
	}
}

func TestStateUpdateInvalidationFailure(t *testing.T) {
	up := newMockProvider(UserRecord{UserID: "u1", Level: LevelUser, IsActive: true})
	engine, mr := newTestEngine(t, up)

	mr.Close()

	err := engine.SetLevel(context.Background(), "u1", LevelAdmin)
	if !errors.Is(err, ErrCacheInvalidationFailed) {
		t.Fatalf("expected ErrCacheInvalidationFailed, got %v", err)
	}
	if got := up.get("u1").Level; got != LevelAdmin {
		t.Fatalf("expected write to have landed, got level %v", got)
	}

	snap := engine.MetricsSnapshot()
	if snap.Counters[MetricCacheInvalidationFailed] != 1 || snap.Counters[MetricStateChangeFailed] != 1 {
		t.Fatalf("unexpected counters: %v", snap.Counters)
	}
	if err := engine.Invalidate(context.Background(), "u1"); !errors.Is(err, ErrCacheInvalidationFailed) {
		t.Fatalf("expected Invalidate to fail, got %v", err)
	}
}
