package settings

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresSchema is the SQL DDL for the plugin_settings table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const PostgresSchema = `
CREATE TABLE IF NOT EXISTS plugin_settings (
    group_name  TEXT NOT NULL,
    key         TEXT NOT NULL,
    value       TEXT NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    PRIMARY KEY (group_name, key)
);
`

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db      DB
	closeFn func()
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// PostgresOption configures a [PostgresStore].
type PostgresOption func(*PostgresStore)

// WithCloser makes [PostgresStore.Close] call fn, typically the pool's Close.
func WithCloser(fn func()) PostgresOption {
	return func(s *PostgresStore) { s.closeFn = fn }
}

// NewPostgresStore creates a [PostgresStore] that uses the given connection
// or pool. Call [PostgresStore.Migrate] before issuing queries.
func NewPostgresStore(db DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Migrate executes [PostgresSchema].
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("settings: migrate: %w", err)
	}
	return nil
}

// Get implements [Store.Get].
func (s *PostgresStore) Get(ctx context.Context, group, key string) (string, error) {
	const query = `SELECT value FROM plugin_settings WHERE group_name = $1 AND key = $2`

	var v string
	if err := s.db.QueryRow(ctx, query, group, key).Scan(&v); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("settings: get %s.%s: %w", group, key, err)
	}
	return v, nil
}

// Set implements [Store.Set].
func (s *PostgresStore) Set(ctx context.Context, group, key, value string) error {
	const query = `
		INSERT INTO plugin_settings (group_name, key, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_name, key) DO UPDATE SET
			value = EXCLUDED.value, updated_at = now()`

	if _, err := s.db.Exec(ctx, query, group, key, value); err != nil {
		return fmt.Errorf("settings: set %s.%s: %w", group, key, err)
	}
	return nil
}

// Unset implements [Store.Unset].
func (s *PostgresStore) Unset(ctx context.Context, group, key string) error {
	const query = `DELETE FROM plugin_settings WHERE group_name = $1 AND key = $2`
	if _, err := s.db.Exec(ctx, query, group, key); err != nil {
		return fmt.Errorf("settings: unset %s.%s: %w", group, key, err)
	}
	return nil
}

// List implements [Store.List].
func (s *PostgresStore) List(ctx context.Context, group string) (map[string]string, error) {
	const query = `SELECT key, value FROM plugin_settings WHERE group_name = $1 ORDER BY key`

	rows, err := s.db.Query(ctx, query, group)
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

// Ping implements [Store.Ping] with a trivial round trip.
func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("settings: ping: %w", err)
	}
	return nil
}

// Close implements [Store.Close]. The pool is closed only when the store was
// built with [WithCloser].
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}
