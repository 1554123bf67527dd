package config_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/lastman/internal/config"
)

func ptr[T any](v T) *T { return &v }

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()
	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: config.LogInfo},
		Plugin: config.PluginOverrides{HideTalkNPCs: ptr(true)},
	}
	d := config.Diff(cfg, cfg)
	if d.LogLevelChanged {
		t.Error("expected LogLevelChanged=false for identical configs")
	}
	if len(d.PluginChanged) != 0 {
		t.Errorf("expected no plugin changes, got %v", d.PluginChanged)
	}
	if d.RestartRequired {
		t.Error("expected RestartRequired=false for identical configs")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()
	old := &config.Config{Server: config.ServerConfig{LogLevel: config.LogInfo}}
	new := &config.Config{Server: config.ServerConfig{LogLevel: config.LogDebug}}

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("expected NewLogLevel=debug, got %q", d.NewLogLevel)
	}
	if d.RestartRequired {
		t.Error("log level is hot-reloadable")
	}
}

func TestDiff_PluginOverrides(t *testing.T) {
	t.Parallel()
	old := &config.Config{Plugin: config.PluginOverrides{
		HideTalkNPCs:    ptr(false),
		EnableWhitelist: ptr(true),
		ShowMenuOptions: ptr(true),
	}}
	new := &config.Config{Plugin: config.PluginOverrides{
		HideTalkNPCs:    ptr(true),  // flipped
		EnableWhitelist: ptr(true),  // unchanged
		EnableBlacklist: ptr(false), // added
		// ShowMenuOptions removed
	}}

	d := config.Diff(old, new)
	want := []string{"enableBlacklist", "hideTalkNPCs", "showMenuOptions"}
	if !slices.Equal(d.PluginChanged, want) {
		t.Errorf("PluginChanged = %v, want %v", d.PluginChanged, want)
	}
	if v, ok := d.NewPlugin["hideTalkNPCs"]; !ok || !v {
		t.Errorf("NewPlugin[hideTalkNPCs] = %v, %v", v, ok)
	}
	if _, ok := d.NewPlugin["showMenuOptions"]; ok {
		t.Error("removed override must be absent from NewPlugin")
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()

	base := config.Config{
		Server:  config.ServerConfig{ListenAddr: ":9090"},
		Storage: config.StorageConfig{Backend: config.StorageSQLite, SQLitePath: "a.db"},
	}

	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"storage backend", func(c *config.Config) { c.Storage.Backend = config.StorageMemory }},
		{"sqlite path", func(c *config.Config) { c.Storage.SQLitePath = "b.db" }},
		{"listen addr", func(c *config.Config) { c.Server.ListenAddr = ":9191" }},
		{"scene", func(c *config.Config) { c.Scene = "scene.yaml" }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			old := base
			new := base
			tc.mutate(&new)
			if d := config.Diff(&old, &new); !d.RestartRequired {
				t.Error("expected RestartRequired=true")
			}
		})
	}
}
