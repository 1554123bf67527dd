// Package settings persists string-valued plugin settings keyed by group
// and key, the way the game client's config manager does.
//
// Three backends are provided: [MemStore] for tests and throwaway runs,
// [SQLiteStore] for a local single-process database file, and
// [PostgresStore] for a shared server. [Notifying] wraps any of them and
// posts a config-changed event on the event bus after each effective write.
package settings

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has no stored value.
var ErrNotFound = errors.New("settings: not found")

// Store is a string key/value store partitioned by group.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the stored value. Returns [ErrNotFound] when unset.
	Get(ctx context.Context, group, key string) (string, error)

	// Set stores value, replacing any previous value.
	Set(ctx context.Context, group, key, value string) error

	// Unset removes the key. Unsetting a missing key is not an error.
	Unset(ctx context.Context, group, key string) error

	// List returns every key/value pair in group.
	List(ctx context.Context, group string) (map[string]string, error)

	// Ping checks that the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// GetOr returns the stored value or def when the key is unset. Other errors
// are returned alongside def.
func GetOr(ctx context.Context, s Store, group, key, def string) (string, error) {
	v, err := s.Get(ctx, group, key)
	if errors.Is(err, ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, err
	}
	return v, nil
}
