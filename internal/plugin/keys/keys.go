// Package keys names the persisted plugin settings. It has no dependencies
// so the service config can pin settings by key without importing the
// plugin.
package keys

// Group is the settings group every plugin key lives in.
const Group = "lastman"

// Toggle setting keys.
const (
	HideTalkNPCs    = "hideTalkNPCs"
	EnableWhitelist = "enableWhitelist"
	EnableBlacklist = "enableBlacklist"
	ShowMenuOptions = "showMenuOptions"
)
