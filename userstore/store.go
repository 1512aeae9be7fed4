// Package userstore is a database/sql implementation of goPerm.UserProvider.
//
// It keeps only the permission-relevant columns of a user in one table and
// works with SQLite (mattn/go-sqlite3) and PostgreSQL (pgx stdlib) drivers.
package userstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	goPerm "github.com/MrEthical07/goPerm"
)

// Dialect selects the placeholder style of the driver.
type Dialect int

const (
	// DialectSQLite uses "?" placeholders.
	DialectSQLite Dialect = iota
	// DialectPostgres uses "$1", "$2", ... placeholders.
	DialectPostgres
)

// DefaultTable is the table used when none is configured.
const DefaultTable = "user_permissions"

// Store reads and writes user permission state.
type Store struct {
	db      *sql.DB
	dialect Dialect
	table   string
}

// New returns a store over db using DefaultTable.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect, table: DefaultTable}
}

// WithTable returns a copy of s that uses table.
func (s *Store) WithTable(table string) *Store {
	cp := *s
	cp.table = table
	return &cp
}

// EnsureSchema creates the table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		user_id TEXT PRIMARY KEY,
		level INTEGER NOT NULL,
		is_active INTEGER NOT NULL DEFAULT 1,
		overrides TEXT NOT NULL DEFAULT '',
		overrides_expire_at TEXT
	)`)
	if err != nil {
		return fmt.Errorf("creating %s: %w", s.table, err)
	}
	return nil
}

// Upsert inserts rec or replaces the stored row with the same user id.
func (s *Store) Upsert(ctx context.Context, rec goPerm.UserRecord) error {
	if rec.UserID == "" {
		return errors.New("userstore: empty user id")
	}

	_, err := s.db.ExecContext(ctx, s.rebind(
		`INSERT INTO `+s.table+` (user_id, level, is_active, overrides, overrides_expire_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET
		   level = excluded.level,
		   is_active = excluded.is_active,
		   overrides = excluded.overrides,
		   overrides_expire_at = excluded.overrides_expire_at`),
		rec.UserID, int(rec.Level), boolToInt(rec.IsActive), rec.Overrides, nullTime(rec.OverridesExpireAt),
	)
	if err != nil {
		return fmt.Errorf("upserting user permissions: %w", err)
	}
	return nil
}

// GetPermissionState implements goPerm.UserProvider.
func (s *Store) GetPermissionState(ctx context.Context, userID string) (goPerm.UserRecord, error) {
	return s.get(ctx, s.db, userID)
}

// UpdatePermissionState implements goPerm.UserProvider. The update and the
// read-back run in one transaction.
func (s *Store) UpdatePermissionState(ctx context.Context, userID string, update goPerm.PermissionUpdate) (goPerm.UserRecord, error) {
	var (
		sets []string
		args []any
	)
	if update.Level != nil {
		sets = append(sets, "level = ?")
		args = append(args, int(*update.Level))
	}
	if update.IsActive != nil {
		sets = append(sets, "is_active = ?")
		args = append(args, boolToInt(*update.IsActive))
	}
	if update.SetOverrides {
		sets = append(sets, "overrides = ?", "overrides_expire_at = ?")
		args = append(args, update.Overrides, nullTime(update.OverridesExpireAt))
	}
	if len(sets) == 0 {
		return s.GetPermissionState(ctx, userID)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return goPerm.UserRecord{}, fmt.Errorf("beginning update: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	args = append(args, userID)
	result, err := tx.ExecContext(ctx,
		s.rebind(`UPDATE `+s.table+` SET `+strings.Join(sets, ", ")+` WHERE user_id = ?`),
		args...,
	)
	if err != nil {
		return goPerm.UserRecord{}, fmt.Errorf("updating user permissions: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return goPerm.UserRecord{}, fmt.Errorf("updating user permissions: %w", err)
	}
	if rows == 0 {
		return goPerm.UserRecord{}, goPerm.ErrUserNotFound
	}

	rec, err := s.get(ctx, tx, userID)
	if err != nil {
		return goPerm.UserRecord{}, err
	}
	if err := tx.Commit(); err != nil {
		return goPerm.UserRecord{}, fmt.Errorf("committing update: %w", err)
	}
	return rec, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) get(ctx context.Context, q queryer, userID string) (goPerm.UserRecord, error) {
	row := q.QueryRowContext(ctx,
		s.rebind(`SELECT user_id, level, is_active, overrides, overrides_expire_at FROM `+s.table+` WHERE user_id = ?`),
		userID,
	)

	var (
		rec      goPerm.UserRecord
		level    int
		isActive int
		expireAt sql.NullString
	)
	if err := row.Scan(&rec.UserID, &level, &isActive, &rec.Overrides, &expireAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return goPerm.UserRecord{}, goPerm.ErrUserNotFound
		}
		return goPerm.UserRecord{}, fmt.Errorf("scanning user permissions: %w", err)
	}

	rec.Level = goPerm.Level(level)
	rec.IsActive = isActive != 0
	if expireAt.Valid && expireAt.String != "" {
		t, err := time.Parse(time.RFC3339Nano, expireAt.String)
		if err != nil {
			return goPerm.UserRecord{}, fmt.Errorf("parsing overrides_expire_at: %w", err)
		}
		rec.OverridesExpireAt = &t
	}
	return rec, nil
}

// rebind rewrites "?" placeholders for the store's dialect.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Helper functions.

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339Nano), Valid: true}
}
