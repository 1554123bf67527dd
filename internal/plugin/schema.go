package plugin

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/MrWong99/lastman/internal/lists"
	"github.com/MrWong99/lastman/internal/plugin/keys"
	"github.com/MrWong99/lastman/internal/settings"
)

// Group is the settings group every plugin key lives in.
const Group = keys.Group

// Setting keys.
const (
	KeyHideTalkNPCs    = keys.HideTalkNPCs
	KeyEnableWhitelist = keys.EnableWhitelist
	KeyEnableBlacklist = keys.EnableBlacklist
	KeyShowMenuOptions = keys.ShowMenuOptions
)

// Item describes one configurable setting.
type Item struct {
	Key         string
	Name        string
	Description string
	Position    int

	// Hidden items are managed by the plugin and not shown to the user.
	Hidden bool

	Default string
}

// Schema lists the plugin's settings in display order.
var Schema = []Item{
	{
		Key:         KeyHideTalkNPCs,
		Name:        "Hide Talkable NPCs",
		Description: "Hide all NPCs with the 'Talk-to' interaction.",
		Position:    0,
		Default:     "false",
	},
	{
		Key:         KeyEnableWhitelist,
		Name:        "Enable Whitelist",
		Description: "Whitelisted NPCs will always be visible.",
		Position:    1,
		Default:     "true",
	},
	{
		Key:         KeyEnableBlacklist,
		Name:        "Enable Blacklist",
		Description: "Blacklisted NPCs will always be hidden.",
		Position:    2,
		Default:     "true",
	},
	{
		Key:         KeyShowMenuOptions,
		Name:        "Show NPC Menu Options",
		Description: "Toggle visibility of context menu actions.",
		Position:    3,
		Default:     "true",
	},
	{
		Key:         lists.Whitelist.Key(),
		Name:        "NPC Whitelist",
		Description: "Comma-separated list of NPC IDs to whitelist",
		Position:    4,
		Hidden:      true,
	},
	{
		Key:         lists.Blacklist.Key(),
		Name:        "NPC Blacklist",
		Description: "Comma-separated list of NPC IDs to blacklist",
		Position:    5,
		Hidden:      true,
	},
}

// Lookup returns the schema item for key.
func Lookup(key string) (Item, bool) {
	i := slices.IndexFunc(Schema, func(it Item) bool { return it.Key == key })
	if i < 0 {
		return Item{}, false
	}
	return Schema[i], true
}

// ErrUnknownSetting is returned by [ApplyOverrides] for keys that are not
// user-facing toggles.
var ErrUnknownSetting = errors.New("plugin: unknown setting")

// ApplyOverrides writes each override into store under [Group], in key
// order. Only visible boolean items may be overridden; every failure is
// collected and the remaining keys are still written.
func ApplyOverrides(ctx context.Context, store settings.Store, overrides map[string]bool) error {
	var errs []error
	for _, key := range slices.Sorted(maps.Keys(overrides)) {
		if it, ok := Lookup(key); !ok || it.Hidden {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownSetting, key))
			continue
		}
		if err := store.Set(ctx, Group, key, strconv.FormatBool(overrides[key])); err != nil {
			errs = append(errs, fmt.Errorf("plugin: override %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
