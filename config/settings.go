package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/leeforge/orchestra/env_mode"
	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/redis_client"
)

// Settings is the process-wide configuration the framework reads while
// setting up a plugin. It is never mutated after load.
type Settings struct {
	// Language is the translator locale (en, fr, es, zh, ja).
	Language string `mapstructure:"language" json:"language" yaml:"language" default:"en"`
	// Env selects the template cache: only "prod" caches compiled templates.
	Env string `mapstructure:"env" json:"env" yaml:"env" default:"dev"`
	// SharedDir holds views/form/form_div_layout.html and translations/form.<lang>.yaml.
	SharedDir string `mapstructure:"shared-dir" json:"sharedDir" yaml:"shared-dir" default:"shared"`

	CSRFSecret    string `mapstructure:"csrf-secret" json:"-" yaml:"csrf-secret"`
	SessionCookie string `mapstructure:"session-cookie" json:"sessionCookie" yaml:"session-cookie" default:"orchestra_session"`

	// StripSlashes undoes backslash escaping added by a front end; the
	// built-in host adds none, so it stays off unless such a front end is used.
	StripSlashes bool  `mapstructure:"strip-slashes" json:"stripSlashes" yaml:"strip-slashes"`
	MaxBodyBytes int64 `mapstructure:"max-body-bytes" json:"maxBodyBytes" yaml:"max-body-bytes" default:"33554432"`

	AdminPath string `mapstructure:"admin-path" json:"adminPath" yaml:"admin-path" default:"/admin"`
}

// IsProd reports whether Env is exactly "prod".
func (s Settings) IsProd() bool {
	return env_mode.IsProd(s.Env)
}

// StripsSlashes is false unless strip-slashes is set.
func (s Settings) StripsSlashes() bool {
	return s.StripSlashes
}

func (s Settings) Validate() error {
	if s.Language == "" {
		return fmt.Errorf("orchestra.language is required")
	}
	if !strings.HasPrefix(s.AdminPath, "/") {
		return fmt.Errorf("orchestra.admin-path must start with '/', got %q", s.AdminPath)
	}
	if s.IsProd() && s.CSRFSecret == "" {
		return fmt.Errorf("orchestra.csrf-secret is required in production")
	}
	return nil
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" json:"addr" yaml:"addr" default:":8080"`
	ReadTimeout     time.Duration `mapstructure:"read-timeout" json:"readTimeout" yaml:"read-timeout" default:"15s"`
	WriteTimeout    time.Duration `mapstructure:"write-timeout" json:"writeTimeout" yaml:"write-timeout" default:"30s"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown-timeout" json:"shutdownTimeout" yaml:"shutdown-timeout" default:"10s"`
}

// AccessConfig controls the capability checks guarding plugin admin pages.
type AccessConfig struct {
	Enabled bool `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	// PolicyFile is a casbin CSV policy (p, subject, object, action).
	PolicyFile  string `mapstructure:"policy-file" json:"policyFile" yaml:"policy-file"`
	UserHeader  string `mapstructure:"user-header" json:"userHeader" yaml:"user-header" default:"X-Orchestra-User"`
	DefaultUser string `mapstructure:"default-user" json:"defaultUser" yaml:"default-user" default:"anonymous"`
}

// PluginEntry is the per-plugin block under `plugins.<name>`.
type PluginEntry struct {
	Enabled  *bool          `mapstructure:"enabled" json:"enabled" yaml:"enabled"`
	Settings map[string]any `mapstructure:"settings" json:"settings" yaml:"settings"`
}

// IsEnabled defaults to true when unset.
func (p PluginEntry) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

type AppConfig struct {
	Orchestra Settings               `mapstructure:"orchestra" json:"orchestra" yaml:"orchestra"`
	Server    ServerConfig           `mapstructure:"server" json:"server" yaml:"server"`
	Log       logging.Config         `mapstructure:"log" json:"log" yaml:"log"`
	Redis     redis_client.Config    `mapstructure:"redis" json:"redis" yaml:"redis"`
	Access    AccessConfig           `mapstructure:"access" json:"access" yaml:"access"`
	Plugins   map[string]PluginEntry `mapstructure:"plugins" json:"plugins" yaml:"plugins"`
}

// Load reads config/config.yaml (plus overlays) into an AppConfig.
func Load(opts ...ConfigOptions) (*AppConfig, *Config, error) {
	cfg, err := NewConfig(opts...)
	if err != nil {
		return nil, nil, err
	}

	app := &AppConfig{}
	if err := cfg.BindWithDefaults(app); err != nil {
		return nil, nil, err
	}
	if err := app.Orchestra.Validate(); err != nil {
		return nil, nil, err
	}
	return app, cfg, nil
}
