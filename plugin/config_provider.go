package plugin

import (
	"time"

	"github.com/leeforge/orchestra/config"
	"github.com/leeforge/orchestra/json"
)

// ConfigProvider exposes the `plugins.<name>.settings` block of the
// application config to one plugin.
type ConfigProvider interface {
	Get(key string) (any, bool)
	GetString(key string, defaultVal string) string
	GetInt(key string, defaultVal int) int
	GetBool(key string, defaultVal bool) bool
	GetDuration(key string, defaultVal time.Duration) time.Duration
	Bind(target any) error
	IsEnabled() bool
}

type settingsProvider struct {
	enabled  bool
	settings map[string]any
}

// NewConfigProvider wraps the config entry of one plugin.
func NewConfigProvider(entry config.PluginEntry) ConfigProvider {
	return newSettingsProvider(entry.IsEnabled(), entry.Settings)
}

// NewMapConfigProvider is an always-enabled provider over settings.
func NewMapConfigProvider(settings map[string]any) ConfigProvider {
	return newSettingsProvider(true, settings)
}

func newSettingsProvider(enabled bool, settings map[string]any) *settingsProvider {
	if settings == nil {
		settings = make(map[string]any)
	}
	return &settingsProvider{enabled: enabled, settings: settings}
}

func (p *settingsProvider) Get(key string) (any, bool) {
	v, ok := p.settings[key]
	return v, ok
}

func (p *settingsProvider) GetString(key string, defaultVal string) string {
	if s, ok := p.settings[key].(string); ok {
		return s
	}
	return defaultVal
}

func (p *settingsProvider) GetInt(key string, defaultVal int) int {
	switch n := p.settings[key].(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return defaultVal
	}
}

func (p *settingsProvider) GetBool(key string, defaultVal bool) bool {
	if b, ok := p.settings[key].(bool); ok {
		return b
	}
	return defaultVal
}

// GetDuration accepts "30s" style strings and whole seconds.
func (p *settingsProvider) GetDuration(key string, defaultVal time.Duration) time.Duration {
	switch v := p.settings[key].(type) {
	case string:
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	case int:
		return time.Duration(v) * time.Second
	case float64:
		return time.Duration(v * float64(time.Second))
	}
	return defaultVal
}

// Bind round-trips the settings through JSON into target, applying its
// `default` tags.
func (p *settingsProvider) Bind(target any) error {
	data, err := json.Marshal(p.settings)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

func (p *settingsProvider) IsEnabled() bool {
	return p.enabled
}

type emptyConfig struct{}

func (emptyConfig) Get(string) (any, bool)                              { return nil, false }
func (emptyConfig) GetString(_ string, d string) string                 { return d }
func (emptyConfig) GetInt(_ string, d int) int                          { return d }
func (emptyConfig) GetBool(_ string, d bool) bool                       { return d }
func (emptyConfig) GetDuration(_ string, d time.Duration) time.Duration { return d }
func (emptyConfig) Bind(any) error                                      { return nil }
func (emptyConfig) IsEnabled() bool                                     { return false }

// EmptyConfig returns defaults for everything.
func EmptyConfig() ConfigProvider { return emptyConfig{} }
