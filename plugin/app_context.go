package plugin

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"

	"github.com/leeforge/orchestra/config"
	"github.com/leeforge/orchestra/logging"
)

// AppContext is passed to every lifecycle method.
type AppContext struct {
	Router   chi.Router
	Redis    *redis.Client // nil when redis is disabled
	Logger   logging.Logger
	Services *ServiceRegistry
	Config   ConfigProvider
	Events   EventBus
	Settings config.Settings
}
