package settings

import (
	"context"
	"maps"
	"sync"
)

// Compile-time assertion that MemStore satisfies the Store interface.
var _ Store = (*MemStore)(nil)

// MemStore is a thread-safe, in-memory implementation of [Store].
// The zero value is ready to use.
type MemStore struct {
	mu     sync.RWMutex
	groups map[string]map[string]string
}

// NewMemStore returns an initialised [MemStore].
func NewMemStore() *MemStore {
	return &MemStore{groups: make(map[string]map[string]string)}
}

// Get implements [Store.Get].
func (s *MemStore) Get(_ context.Context, group, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.groups[group][key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

// Set implements [Store.Set].
func (s *MemStore) Set(_ context.Context, group, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.groups == nil {
		s.groups = make(map[string]map[string]string)
	}
	g, ok := s.groups[group]
	if !ok {
		g = make(map[string]string)
		s.groups[group] = g
	}
	g[key] = value
	return nil
}

// Unset implements [Store.Unset].
func (s *MemStore) Unset(_ context.Context, group, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.groups[group], key)
	return nil
}

// List implements [Store.List].
func (s *MemStore) List(_ context.Context, group string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.groups[group]))
	maps.Copy(out, s.groups[group])
	return out, nil
}

// Ping implements [Store.Ping]. It always succeeds.
func (s *MemStore) Ping(context.Context) error { return nil }

// Close implements [Store.Close]. It is a no-op.
func (s *MemStore) Close() error { return nil }
