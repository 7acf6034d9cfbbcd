package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is a loaded viper instance together with the options it was read
// with. Bind decodes it into AppConfig or a plugin's orm-config.
type Config struct {
	instance   *viper.Viper
	opts       ConfigOptions
	watchOnce  sync.Once
	watchMutex sync.RWMutex
}

// ConfigOptions locates one configuration file and its overlays.
//
// The base file is BasePath/FileName.FileType (config.yaml for the host,
// orm-config.yaml for a plugin). It is merged with FileName.local and then
// the overlays of the ORCHESTRA_ENV mode: FileName.dev or .development for
// dev, FileName.prod, .pro or .production for prod, FileName.test for test,
// each optionally followed by its .local variant.
type ConfigOptions struct {
	BasePath string
	FileName string
	FileType string
	// EnvPrefix names the variables that override merged keys:
	// ORCHESTRA_ORCHESTRA_LANGUAGE for the host, ORCHESTRA_ORM_DSN for a plugin.
	EnvPrefix string
	// WatchAble re-binds the Bind target whenever the first loaded file
	// changes, then calls OnChange.
	WatchAble bool
	OnChange  func(e fsnotify.Event)
	// Optional yields an empty config instead of an error when no file is found.
	Optional bool
}
