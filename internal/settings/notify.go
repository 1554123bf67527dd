package settings

import (
	"context"
	"errors"

	"github.com/MrWong99/lastman/internal/eventbus"
)

// Notifying wraps a [Store] and posts [eventbus.ConfigChanged] after every
// Set or Unset that changed the stored value. Writes that store the current
// value again raise no event.
type Notifying struct {
	Store
	bus *eventbus.Bus
}

var _ Store = (*Notifying)(nil)

// NewNotifying returns s wrapped to post on bus.
func NewNotifying(s Store, bus *eventbus.Bus) *Notifying {
	return &Notifying{Store: s, bus: bus}
}

// Set implements [Store.Set].
func (n *Notifying) Set(ctx context.Context, group, key, value string) error {
	old, existed, err := n.current(ctx, group, key)
	if err != nil {
		return err
	}
	if err := n.Store.Set(ctx, group, key, value); err != nil {
		return err
	}
	if existed && old == value {
		return nil
	}
	n.bus.PostConfigChanged(ctx, &eventbus.ConfigChanged{Group: group, Key: key, OldValue: old, NewValue: value})
	return nil
}

// Unset implements [Store.Unset].
func (n *Notifying) Unset(ctx context.Context, group, key string) error {
	old, existed, err := n.current(ctx, group, key)
	if err != nil {
		return err
	}
	if err := n.Store.Unset(ctx, group, key); err != nil {
		return err
	}
	if !existed {
		return nil
	}
	n.bus.PostConfigChanged(ctx, &eventbus.ConfigChanged{Group: group, Key: key, OldValue: old})
	return nil
}

func (n *Notifying) current(ctx context.Context, group, key string) (string, bool, error) {
	v, err := n.Store.Get(ctx, group, key)
	switch {
	case errors.Is(err, ErrNotFound):
		return "", false, nil
	case err != nil:
		return "", false, err
	}
	return v, true, nil
}
