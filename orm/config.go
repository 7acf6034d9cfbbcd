package orm

import (
	"fmt"
	"time"

	"github.com/leeforge/orchestra/config"
	"github.com/leeforge/orchestra/errors"
)

// ConfigFileName is the base name of the per-plugin ORM configuration file.
// Env-specific overlays (orm-config.prod.yaml, orm-config.local.yaml, ...)
// are merged the same way the application config is.
const ConfigFileName = "orm-config"

// Config describes how the entity manager connects to the database.
type Config struct {
	Driver      string     `mapstructure:"driver" default:"postgres" yaml:"driver"`
	DSN         string     `mapstructure:"dsn" yaml:"dsn"`
	AutoMigrate bool       `mapstructure:"auto-migrate" yaml:"auto-migrate"`
	Debug       bool       `mapstructure:"debug" yaml:"debug"`
	Pool        PoolConfig `mapstructure:"pool" yaml:"pool"`
}

// PoolConfig tunes the database/sql connection pool.
type PoolConfig struct {
	MaxOpenConns    int           `mapstructure:"max-open-conns" default:"25" yaml:"max-open-conns"`
	MaxIdleConns    int           `mapstructure:"max-idle-conns" default:"5" yaml:"max-idle-conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn-max-lifetime" default:"1h" yaml:"conn-max-lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn-max-idle-time" default:"10m" yaml:"conn-max-idle-time"`
}

var supportedDrivers = map[string]bool{
	"postgres": true,
	"pgx":      true,
	"mysql":    true,
	"sqlite3":  true,
}

// LoadConfig reads <pluginDir>/orm-config.yaml and its overlays.
func LoadConfig(pluginDir string) (*Config, error) {
	loader, err := config.NewConfig(config.ConfigOptions{
		BasePath:  pluginDir,
		FileName:  ConfigFileName,
		FileType:  "yaml",
		EnvPrefix: "ORCHESTRA_ORM",
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "load orm config")
	}

	cfg := &Config{}
	if err := loader.BindWithDefaults(cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "bind orm config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if !supportedDrivers[c.Driver] {
		return errors.New(errors.ErrorTypeConfig, fmt.Sprintf("unsupported orm driver %q", c.Driver))
	}
	if c.DSN == "" {
		return errors.New(errors.ErrorTypeConfig, "orm dsn is required")
	}
	if c.Pool.MaxIdleConns > c.Pool.MaxOpenConns && c.Pool.MaxOpenConns > 0 {
		return errors.New(errors.ErrorTypeConfig, "orm pool max-idle-conns exceeds max-open-conns")
	}
	return nil
}

// Dialect returns the ent dialect name for the configured driver.
func (c *Config) Dialect() string {
	if c.Driver == "pgx" {
		return "postgres"
	}
	return c.Driver
}
