// Package plugin holds the contracts between the host, the framework and
// plugins: lifecycle hooks the runtime drives, the admin menu hook the host
// runs on every admin request, and the definition a plugin hands to the
// framework when it is the requested page.
package plugin

import (
	"context"

	"github.com/go-chi/chi/v5"
)

// Plugin is implemented by every plugin.
type Plugin interface {
	Name() string
	Version() string
	Dependencies() []string
	Enable(ctx context.Context, app *AppContext) error
}

// Optional capabilities, detected by type assertion.

// Installable runs once before the first Enable.
type Installable interface {
	Install(ctx context.Context, app *AppContext) error
}

// Disableable releases what Enable acquired. Called in reverse boot order.
type Disableable interface {
	Disable(ctx context.Context, app *AppContext) error
}

// RouteProvider mounts routes outside the admin page, e.g. webhooks.
type RouteProvider interface {
	RegisterRoutes(router chi.Router)
}

type EventSubscriber interface {
	SubscribeEvents(bus EventBus)
}

type HealthReporter interface {
	HealthCheck(ctx context.Context) error
}

// Configurable declares plugin metadata.
type Configurable interface {
	PluginOptions() PluginOptions
}

type PluginOptions struct {
	// Optional plugins may fail to enable without aborting startup.
	Optional    bool
	Description string
}

// AdminMenuProvider is called by the host on every admin request, in boot
// order. Implementations call menu.Setup with their definition and add a
// menu page whose slug is the returned identifier.
type AdminMenuProvider interface {
	AdminMenu(ctx context.Context, menu *AdminMenuContext) error
}
