package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/MrWong99/lastman/internal/lists"
	"github.com/MrWong99/lastman/internal/settings"
	"github.com/MrWong99/lastman/internal/visibility"
)

// Flags is an immutable snapshot of the four user-facing toggles.
type Flags struct {
	HideTalkable     bool `json:"hide_talkable"`
	WhitelistEnabled bool `json:"whitelist_enabled"`
	BlacklistEnabled bool `json:"blacklist_enabled"`
	ShowMenuActions  bool `json:"show_menu_actions"`
}

// DefaultFlags are the toggles of a fresh install.
var DefaultFlags = Flags{
	HideTalkable:     false,
	WhitelistEnabled: true,
	BlacklistEnabled: true,
	ShowMenuActions:  true,
}

// Visibility returns the subset of f the evaluator reads.
func (f Flags) Visibility() visibility.Flags {
	return visibility.Flags{
		HideTalkable:     f.HideTalkable,
		WhitelistEnabled: f.WhitelistEnabled,
		BlacklistEnabled: f.BlacklistEnabled,
	}
}

// state is everything the plugin reads from the settings store.
type state struct {
	flags     Flags
	blacklist string
	whitelist string
}

// LoadFlags reads the toggles from store. Missing values take their
// default; unparsable values take their default and are logged.
func LoadFlags(ctx context.Context, store settings.Store) (Flags, error) {
	st, err := loadState(ctx, store, slog.Default())
	return st.flags, err
}

func loadState(ctx context.Context, store settings.Store, log *slog.Logger) (state, error) {
	values, err := store.List(ctx, Group)
	if err != nil {
		return state{flags: DefaultFlags}, fmt.Errorf("plugin: load settings: %w", err)
	}
	b := func(key string, def bool) bool {
		raw, ok := values[key]
		if !ok {
			return def
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			log.Warn("ignoring unparsable setting", "group", Group, "key", key, "value", raw)
			return def
		}
		return v
	}
	return state{
		flags: Flags{
			HideTalkable:     b(KeyHideTalkNPCs, DefaultFlags.HideTalkable),
			WhitelistEnabled: b(KeyEnableWhitelist, DefaultFlags.WhitelistEnabled),
			BlacklistEnabled: b(KeyEnableBlacklist, DefaultFlags.BlacklistEnabled),
			ShowMenuActions:  b(KeyShowMenuOptions, DefaultFlags.ShowMenuActions),
		},
		blacklist: values[lists.Blacklist.Key()],
		whitelist: values[lists.Whitelist.Key()],
	}, nil
}
