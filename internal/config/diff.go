package config

import "slices"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// PluginChanged lists persisted setting keys whose override changed,
	// sorted. Keys whose override was removed are included; their value
	// in NewPlugin is absent.
	PluginChanged []string
	NewPlugin     map[string]bool

	// RestartRequired is set when fields that cannot be hot-reloaded
	// (storage, listen address, scene) changed.
	RestartRequired bool
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{NewPlugin: new.Plugin.Settings()}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	oldPlugin := old.Plugin.Settings()
	for key, v := range d.NewPlugin {
		if prev, ok := oldPlugin[key]; !ok || prev != v {
			d.PluginChanged = append(d.PluginChanged, key)
		}
	}
	for key := range oldPlugin {
		if _, ok := d.NewPlugin[key]; !ok {
			d.PluginChanged = append(d.PluginChanged, key)
		}
	}
	slices.Sort(d.PluginChanged)

	if old.Storage != new.Storage || old.Server.ListenAddr != new.Server.ListenAddr || old.Scene != new.Scene {
		d.RestartRequired = true
	}

	return d
}
