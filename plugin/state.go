package plugin

// PluginState is where a plugin is in its lifecycle.
type PluginState int

const (
	StateRegistered PluginState = iota
	StateInstalled
	StateEnabled
	StateDisabled
	StateFailed
	// StateSkipped plugins are switched off in the configuration.
	StateSkipped
)

var stateNames = map[PluginState]string{
	StateRegistered: "registered",
	StateInstalled:  "installed",
	StateEnabled:    "enabled",
	StateDisabled:   "disabled",
	StateFailed:     "failed",
	StateSkipped:    "skipped",
}

func (s PluginState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

// MarshalText lets states appear by name in JSON payloads.
func (s PluginState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// IsTerminal reports whether the plugin will not run again without a restart.
func (s PluginState) IsTerminal() bool {
	return s == StateFailed || s == StateDisabled || s == StateSkipped
}
