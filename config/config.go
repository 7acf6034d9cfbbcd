package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/creasty/defaults"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/leeforge/orchestra/env_mode"
	"github.com/leeforge/orchestra/utils"
)

func DefaultConfigOptions() ConfigOptions {
	basePath := os.Getenv("CONFIG_PATH")
	if basePath == "" {
		basePath = "config"
	}

	return ConfigOptions{
		BasePath:  basePath,
		FileName:  "config",
		FileType:  "yaml",
		EnvPrefix: "ORCHESTRA",
	}
}

func NewConfig(optsArr ...ConfigOptions) (*Config, error) {
	opts := DefaultConfigOptions()
	if len(optsArr) > 0 {
		opts = optsArr[0]
	}

	instance, err := CreateConfig(opts)
	if err != nil {
		return nil, err
	}

	return &Config{
		instance: instance,
		opts:     opts,
	}, nil
}

// Bind unmarshals the merged configuration into instance, which must be a
// pointer. With WatchAble set, instance is re-bound on every file change.
func (c *Config) Bind(instance any) error {
	if c == nil || c.instance == nil {
		return fmt.Errorf("config instance is nil")
	}
	if instance == nil {
		return fmt.Errorf("target instance is nil")
	}

	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	if err := c.instance.Unmarshal(instance); err != nil {
		return fmt.Errorf("unmarshal config (path: %s, file: %s.%s): %w",
			c.opts.BasePath, c.opts.FileName, c.opts.FileType, err)
	}

	if c.opts.WatchAble {
		c.watchOnce.Do(func() {
			c.instance.WatchConfig()
			c.instance.OnConfigChange(func(e fsnotify.Event) {
				c.watchMutex.Lock()
				defer c.watchMutex.Unlock()

				if err := c.instance.Unmarshal(instance); err != nil {
					return
				}
				if c.opts.OnChange != nil {
					c.opts.OnChange(e)
				}
			})
		})
	}

	return nil
}

// BindWithDefaults applies `default` tags, binds, then fills what the files left empty.
func (c *Config) BindWithDefaults(instance any) error {
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("set defaults: %w", err)
	}
	if err := c.Bind(instance); err != nil {
		return err
	}
	if err := defaults.Set(instance); err != nil {
		return fmt.Errorf("set defaults after unmarshal: %w", err)
	}
	return nil
}

// Sub returns the raw settings under key, or nil.
func (c *Config) Sub(key string) map[string]any {
	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()

	return c.instance.GetStringMap(key)
}

func (c *Config) Get(key string) any {
	c.watchMutex.RLock()
	defer c.watchMutex.RUnlock()

	return c.instance.Get(key)
}

func (c *Config) Set(key string, value any) {
	c.watchMutex.Lock()
	defer c.watchMutex.Unlock()

	c.instance.Set(key, value)
}

// CreateConfig merges the base file with its local and env-specific
// overlays, then applies environment variable overrides.
func CreateConfig(opts ConfigOptions) (*viper.Viper, error) {
	configPaths := getConfigFilePaths(opts)
	if len(configPaths) == 0 && !opts.Optional {
		return nil, fmt.Errorf("no configuration files named %s found in path: %s", opts.FileName, opts.BasePath)
	}

	v := viper.New()
	v.SetConfigType(opts.FileType)

	for i, configPath := range configPaths {
		tempV := viper.New()
		tempV.SetConfigFile(configPath)
		if err := tempV.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", configPath, err)
		}
		if i == 0 {
			// watched file
			v.SetConfigFile(configPath)
		}

		for _, key := range tempV.AllKeys() {
			v.Set(key, tempV.Get(key))
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	if opts.EnvPrefix != "" {
		v.SetEnvPrefix(opts.EnvPrefix)
	}
	v.AutomaticEnv()

	applyEnvOverrides(v, opts.EnvPrefix)

	return v, nil
}

// applyEnvOverrides gives environment variables priority over file values:
// orchestra.shared-dir is overridden by ORCHESTRA_ORCHESTRA_SHARED_DIR.
func applyEnvOverrides(v *viper.Viper, envPrefix string) {
	replacer := strings.NewReplacer(".", "_", "-", "_")

	for _, key := range v.AllKeys() {
		envKey := strings.ToUpper(replacer.Replace(key))
		if envPrefix != "" {
			envKey = envPrefix + "_" + envKey
		}

		if envValue := os.Getenv(envKey); envValue != "" {
			v.Set(key, envValue)
		}
	}
}

func getConfigFilePaths(opts ConfigOptions) (configFiles []string) {
	env := env_mode.Mode()
	fileNames := []string{
		opts.FileName,
		fmt.Sprintf("%s.local", opts.FileName),
	}

	switch env {
	case env_mode.DevMode:
		fileNames = append(fileNames,
			fmt.Sprintf("%s.dev", opts.FileName),
			fmt.Sprintf("%s.dev.local", opts.FileName),
			fmt.Sprintf("%s.development", opts.FileName),
			fmt.Sprintf("%s.development.local", opts.FileName),
		)
	case env_mode.ProMode:
		fileNames = append(fileNames,
			fmt.Sprintf("%s.pro", opts.FileName),
			fmt.Sprintf("%s.prod", opts.FileName),
			fmt.Sprintf("%s.prod.local", opts.FileName),
			fmt.Sprintf("%s.production", opts.FileName),
			fmt.Sprintf("%s.production.local", opts.FileName),
		)
	case env_mode.TestMode:
		fileNames = append(fileNames,
			fmt.Sprintf("%s.test", opts.FileName),
			fmt.Sprintf("%s.test.local", opts.FileName),
		)
	}

	for _, fileName := range fileNames {
		file := filepath.Join(opts.BasePath, fmt.Sprintf("%s.%s", fileName, opts.FileType))
		if isDir, exists, _ := utils.Exists(file); exists && !isDir {
			configFiles = append(configFiles, file)
		}
	}

	return configFiles
}
