package userstore

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	goPerm "github.com/MrEthical07/goPerm"
	_ "github.com/mattn/go-sqlite3"
)

// testStore opens an in-memory SQLite database with the schema applied.
func testStore(t *testing.T) *Store {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	// Every connection to ":memory:" is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	s := New(db, DialectSQLite)
	if err := s.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	return s
}

func TestStore_UpsertAndGet(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	exp := time.Date(2030, 6, 1, 10, 30, 0, 123, time.UTC)

	rec := goPerm.UserRecord{
		UserID:            "u1",
		Level:             goPerm.LevelEditor,
		IsActive:          true,
		Overrides:         "327683",
		OverridesExpireAt: &exp,
	}
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	got, err := s.GetPermissionState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetPermissionState() error = %v", err)
	}
	if got.UserID != "u1" || got.Level != goPerm.LevelEditor || !got.IsActive || got.Overrides != "327683" {
		t.Errorf("GetPermissionState() = %+v", got)
	}
	if got.OverridesExpireAt == nil || !got.OverridesExpireAt.Equal(exp) {
		t.Errorf("OverridesExpireAt = %v, want %v", got.OverridesExpireAt, exp)
	}

	rec.Level = goPerm.LevelReader
	rec.OverridesExpireAt = nil
	if err := s.Upsert(ctx, rec); err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}
	got, err = s.GetPermissionState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetPermissionState() error = %v", err)
	}
	if got.Level != goPerm.LevelReader || got.OverridesExpireAt != nil {
		t.Errorf("after upsert = %+v", got)
	}
}

func TestStore_GetNotFound(t *testing.T) {
	s := testStore(t)

	if _, err := s.GetPermissionState(context.Background(), "ghost"); !errors.Is(err, goPerm.ErrUserNotFound) {
		t.Errorf("GetPermissionState() error = %v, want ErrUserNotFound", err)
	}
}

func TestStore_UpdatePartial(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, goPerm.UserRecord{UserID: "u1", Level: goPerm.LevelUser, IsActive: true, Overrides: "65537"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	level := goPerm.LevelAdmin
	got, err := s.UpdatePermissionState(ctx, "u1", goPerm.PermissionUpdate{Level: &level})
	if err != nil {
		t.Fatalf("UpdatePermissionState() error = %v", err)
	}
	if got.Level != goPerm.LevelAdmin || !got.IsActive || got.Overrides != "65537" {
		t.Errorf("level update touched other fields: %+v", got)
	}

	inactive := false
	got, err = s.UpdatePermissionState(ctx, "u1", goPerm.PermissionUpdate{IsActive: &inactive})
	if err != nil {
		t.Fatalf("UpdatePermissionState() error = %v", err)
	}
	if got.IsActive || got.Level != goPerm.LevelAdmin {
		t.Errorf("active update = %+v", got)
	}

	exp := time.Now().Add(time.Hour).UTC()
	got, err = s.UpdatePermissionState(ctx, "u1", goPerm.PermissionUpdate{
		SetOverrides:      true,
		Overrides:         "131075",
		OverridesExpireAt: &exp,
	})
	if err != nil {
		t.Fatalf("UpdatePermissionState() error = %v", err)
	}
	if got.Overrides != "131075" || got.OverridesExpireAt == nil || !got.OverridesExpireAt.Equal(exp) {
		t.Errorf("override update = %+v", got)
	}

	got, err = s.UpdatePermissionState(ctx, "u1", goPerm.PermissionUpdate{SetOverrides: true})
	if err != nil {
		t.Fatalf("UpdatePermissionState() error = %v", err)
	}
	if got.Overrides != "" || got.OverridesExpireAt != nil {
		t.Errorf("clear overrides = %+v", got)
	}

	got, err = s.UpdatePermissionState(ctx, "u1", goPerm.PermissionUpdate{})
	if err != nil {
		t.Fatalf("empty UpdatePermissionState() error = %v", err)
	}
	if got.UserID != "u1" {
		t.Errorf("empty update = %+v", got)
	}
}

func TestStore_UpdateNotFound(t *testing.T) {
	s := testStore(t)
	level := goPerm.LevelAdmin

	_, err := s.UpdatePermissionState(context.Background(), "ghost", goPerm.PermissionUpdate{Level: &level})
	if !errors.Is(err, goPerm.ErrUserNotFound) {
		t.Errorf("UpdatePermissionState() error = %v, want ErrUserNotFound", err)
	}
}

func TestStore_UpsertRejectsEmptyID(t *testing.T) {
	s := testStore(t)
	if err := s.Upsert(context.Background(), goPerm.UserRecord{}); err == nil {
		t.Error("Upsert() should reject an empty user id")
	}
}

func TestStore_WithTable(t *testing.T) {
	base := testStore(t)
	s := base.WithTable("alt_permissions")
	ctx := context.Background()

	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	if err := s.Upsert(ctx, goPerm.UserRecord{UserID: "u1", Level: goPerm.LevelUser, IsActive: true}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if _, err := base.GetPermissionState(ctx, "u1"); !errors.Is(err, goPerm.ErrUserNotFound) {
		t.Errorf("default table should be untouched, got %v", err)
	}
	if base.table != DefaultTable {
		t.Errorf("WithTable mutated the original store")
	}
}

func TestRebind(t *testing.T) {
	pg := &Store{dialect: DialectPostgres}
	if got := pg.rebind("UPDATE t SET a = ?, b = ? WHERE id = ?"); got != "UPDATE t SET a = $1, b = $2 WHERE id = $3" {
		t.Errorf("rebind() = %q", got)
	}
	lite := &Store{dialect: DialectSQLite}
	if got := lite.rebind("SELECT ? "); got != "SELECT ? " {
		t.Errorf("sqlite rebind() = %q", got)
	}
}

func TestStore_SatisfiesEngine(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.Upsert(ctx, goPerm.UserRecord{UserID: "u1", Level: goPerm.LevelUser, IsActive: true}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	engine, err := goPerm.New().WithUserProvider(s).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer engine.Close()

	if err := engine.SetOverrides(ctx, "u1", map[string][]string{"config": {"read"}}, nil); err != nil {
		t.Fatalf("SetOverrides() error = %v", err)
	}
	ok, err := engine.HasAction(ctx, "u1", "config", "read")
	if err != nil || !ok {
		t.Errorf("HasAction() = %v, %v; want true, nil", ok, err)
	}
}
