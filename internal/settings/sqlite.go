package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteSchemaVersion is stored in PRAGMA user_version.
const sqliteSchemaVersion = 1

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS settings (
    grp                TEXT NOT NULL,
    key                TEXT NOT NULL,
    value              TEXT NOT NULL,
    updated_at_unix_ms INTEGER NOT NULL,
    PRIMARY KEY (grp, key)
);
`

// SQLiteStore is a [Store] backed by a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("settings: missing sqlite path")
	}
	p = filepath.Clean(p)
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return nil, fmt.Errorf("settings: create sqlite dir: %w", err)
	}

	// modernc.org/sqlite uses a file path as DSN.
	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("settings: open sqlite %q: %w", p, err)
	}
	// Single-process local DB; one connection serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initSQLiteSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSQLiteSchema(db *sql.DB) error {
	var v int
	if err := db.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return fmt.Errorf("settings: read user_version: %w", err)
	}
	if v > sqliteSchemaVersion {
		return fmt.Errorf("settings: sqlite schema version %d is newer than supported %d", v, sqliteSchemaVersion)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		return fmt.Errorf("settings: migrate sqlite: %w", err)
	}
	if _, err := db.Exec(fmt.Sprintf(`PRAGMA user_version = %d;`, sqliteSchemaVersion)); err != nil {
		return fmt.Errorf("settings: set user_version: %w", err)
	}
	return nil
}

// Get implements [Store.Get].
func (s *SQLiteStore) Get(ctx context.Context, group, key string) (string, error) {
	if s == nil || s.db == nil {
		return "", errors.New("settings: store not initialized")
	}
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE grp = ? AND key = ?`, group, key).Scan(&v)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("settings: get %s.%s: %w", group, key, err)
	}
	return v, nil
}

// Set implements [Store.Set].
func (s *SQLiteStore) Set(ctx context.Context, group, key, value string) error {
	if s == nil || s.db == nil {
		return errors.New("settings: store not initialized")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO settings (grp, key, value, updated_at_unix_ms) VALUES (?, ?, ?, ?)
ON CONFLICT (grp, key) DO UPDATE SET value = excluded.value, updated_at_unix_ms = excluded.updated_at_unix_ms
`, group, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("settings: set %s.%s: %w", group, key, err)
	}
	return nil
}

// Unset implements [Store.Unset].
func (s *SQLiteStore) Unset(ctx context.Context, group, key string) error {
	if s == nil || s.db == nil {
		return errors.New("settings: store not initialized")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM settings WHERE grp = ? AND key = ?`, group, key); err != nil {
		return fmt.Errorf("settings: unset %s.%s: %w", group, key, err)
	}
	return nil
}

// List implements [Store.List].
func (s *SQLiteStore) List(ctx context.Context, group string) (map[string]string, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("settings: store not initialized")
	}
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE grp = ? ORDER BY key`, group)
	if err != nil {
		return nil, fmt.Errorf("settings: list %s: %w", group, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("settings: list scan: %w", err)
		}
		out[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("settings: list %s: %w", group, err)
	}
	return out, nil
}

// Ping implements [Store.Ping].
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errors.New("settings: store not initialized")
	}
	return s.db.PingContext(ctx)
}

// Close implements [Store.Close].
func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
