// Package eventbus is the process-wide dispatch table for host events.
//
// Handlers are plain functions registered against one of three event types.
// Post* calls invoke handlers synchronously on the caller's goroutine, in the
// order they were registered. Nothing is queued and nothing runs
// concurrently, matching the host's single-threaded callback contract.
//
// Registration and dispatch may still happen from different goroutines (the
// config watcher, the admin HTTP server), so the handler table is guarded by
// a mutex; the lock is never held while a handler runs.
package eventbus

import (
	"context"
	"sync"

	"github.com/MrWong99/lastman/internal/host"
)

// EventType identifies the kind of host event.
type EventType string

const (
	EventMenuEntryAdded    EventType = "MenuEntryAdded"
	EventMenuOptionClicked EventType = "MenuOptionClicked"
	EventConfigChanged     EventType = "ConfigChanged"
)

// MenuEntryAdded is posted once for every entry the host inserts while
// building a right-click menu.
type MenuEntryAdded struct {
	Option     string
	Target     string
	Type       host.MenuAction
	Identifier int
}

// MenuOptionClicked is posted when the player selects a menu entry.
// A handler that acts on the click calls [MenuOptionClicked.Consume] to stop
// the host from running its default action.
type MenuOptionClicked struct {
	Option string
	Target string
	Type   host.MenuAction
	ID     int

	consumed bool
}

// Consume marks the click as fully handled.
func (e *MenuOptionClicked) Consume() { e.consumed = true }

// IsConsumed reports whether a handler consumed the click.
func (e *MenuOptionClicked) IsConsumed() bool { return e.consumed }

// ConfigChanged is posted after a persisted setting changed value.
// NewValue is empty when the key was unset.
type ConfigChanged struct {
	Group    string
	Key      string
	OldValue string
	NewValue string
}

type (
	MenuEntryAddedHandler    func(ctx context.Context, e *MenuEntryAdded)
	MenuOptionClickedHandler func(ctx context.Context, e *MenuOptionClicked)
	ConfigChangedHandler     func(ctx context.Context, e *ConfigChanged)
)

type subscription struct {
	id int
	fn any
}

// Bus manages handler registration and dispatch. The zero value is not
// usable; call [New].
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[EventType][]subscription
}

// New creates an empty bus.
func New() *Bus {
	return &Bus{subs: make(map[EventType][]subscription)}
}

func (b *Bus) register(t EventType, fn any) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subs[t] = append(b.subs[t], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(t, id) })
	}
}

func (b *Bus) remove(t EventType, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[t]
	for i, s := range subs {
		if s.id == id {
			b.subs[t] = append(subs[:i:i], subs[i+1:]...)
			return
		}
	}
}

// snapshot copies the handler list so handlers may (un)register re-entrantly.
func (b *Bus) snapshot(t EventType) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	original := b.subs[t]
	subs := make([]subscription, len(original))
	copy(subs, original)
	return subs
}

// Len returns the number of handlers registered for t.
func (b *Bus) Len(t EventType) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[t])
}

// OnMenuEntryAdded registers fn and returns a function that removes it.
func (b *Bus) OnMenuEntryAdded(fn MenuEntryAddedHandler) func() {
	return b.register(EventMenuEntryAdded, fn)
}

// OnMenuOptionClicked registers fn and returns a function that removes it.
func (b *Bus) OnMenuOptionClicked(fn MenuOptionClickedHandler) func() {
	return b.register(EventMenuOptionClicked, fn)
}

// OnConfigChanged registers fn and returns a function that removes it.
func (b *Bus) OnConfigChanged(fn ConfigChangedHandler) func() {
	return b.register(EventConfigChanged, fn)
}

// PostMenuEntryAdded dispatches e to every MenuEntryAdded handler.
func (b *Bus) PostMenuEntryAdded(ctx context.Context, e *MenuEntryAdded) {
	for _, s := range b.snapshot(EventMenuEntryAdded) {
		s.fn.(MenuEntryAddedHandler)(ctx, e)
	}
}

// PostMenuOptionClicked dispatches e to MenuOptionClicked handlers until one
// of them consumes it. It reports whether the click was consumed.
func (b *Bus) PostMenuOptionClicked(ctx context.Context, e *MenuOptionClicked) bool {
	for _, s := range b.snapshot(EventMenuOptionClicked) {
		s.fn.(MenuOptionClickedHandler)(ctx, e)
		if e.IsConsumed() {
			break
		}
	}
	return e.IsConsumed()
}

// PostConfigChanged dispatches e to every ConfigChanged handler.
func (b *Bus) PostConfigChanged(ctx context.Context, e *ConfigChanged) {
	for _, s := range b.snapshot(EventConfigChanged) {
		s.fn.(ConfigChangedHandler)(ctx, e)
	}
}
