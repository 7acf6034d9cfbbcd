// Package guestbook is an example plugin: an admin page listing and
// accepting guestbook entries, stored through the framework's entity
// manager.
package guestbook

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/leeforge/orchestra/http/responder"
	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/plugin"
)

// Namespace is the plugin's namespace; its identifier "OrchestraGuestbook"
// is the admin page slug.
const Namespace = `Orchestra\Guestbook`

const activationsKey = "orchestra:guestbook:activations"

// Settings is the plugins.guestbook.settings block.
type Settings struct {
	Directory  string `json:"directory" default:"plugin/examples/guestbook"`
	Capability string `json:"capability" default:"manage_options"`
}

// Plugin implements: Plugin, Installable, Disableable, RouteProvider,
// EventSubscriber, HealthReporter, Configurable, AdminMenuProvider
type Plugin struct {
	settings Settings
	redis    *redis.Client
	logger   logging.Logger

	mu             sync.Mutex
	activations    int64
	lastActivation time.Time
}

func New() *Plugin { return &Plugin{} }

func (p *Plugin) Name() string           { return "guestbook" }
func (p *Plugin) Version() string        { return "1.0.0" }
func (p *Plugin) Dependencies() []string { return nil }

func (p *Plugin) Enable(ctx context.Context, app *plugin.AppContext) error {
	if err := app.Config.Bind(&p.settings); err != nil {
		return fmt.Errorf("guestbook settings: %w", err)
	}
	p.redis = app.Redis
	p.logger = app.Logger
	return app.Services.Register("guestbook.plugin", p)
}

func (p *Plugin) Install(ctx context.Context, app *plugin.AppContext) error {
	app.Logger.Info("guestbook installed", zap.String("table", EntriesTable.Name))
	return nil
}

func (p *Plugin) Disable(ctx context.Context, app *plugin.AppContext) error {
	app.Services.Unregister("guestbook.plugin")
	return nil
}

func (p *Plugin) Settings() Settings { return p.settings }

// Definition is what the plugin hands to the framework.
func (p *Plugin) Definition() plugin.Definition {
	return plugin.Definition{
		Namespace: Namespace,
		Directory: p.settings.Directory,
		Models:    Models(),
	}
}

func (p *Plugin) AdminMenu(ctx context.Context, menu *plugin.AdminMenuContext) error {
	id, err := menu.Setup(p.Definition())
	if err != nil {
		return err
	}
	menu.AddMenuPage(plugin.MenuPage{
		PageTitle:  "Guestbook",
		MenuTitle:  "Guestbook",
		Capability: p.settings.Capability,
		Slug:       id,
		Position:   30,
	})
	return nil
}

func (p *Plugin) RegisterRoutes(router chi.Router) {
	router.Get("/api/guestbook/stats", p.handleStats)
}

// SubscribeEvents counts how often the guestbook page was activated.
func (p *Plugin) SubscribeEvents(bus plugin.EventBus) {
	bus.Subscribe(plugin.EventPluginActivated, func(ctx context.Context, e plugin.Event) error {
		activation, ok := e.Data.(plugin.Activation)
		if !ok || activation.Namespace != Namespace {
			return nil
		}
		p.mu.Lock()
		p.activations++
		p.lastActivation = e.Timestamp
		p.mu.Unlock()

		if p.redis != nil {
			return p.redis.Incr(ctx, activationsKey).Err()
		}
		return nil
	})
}

func (p *Plugin) HealthCheck(ctx context.Context) error {
	if p.redis == nil {
		return nil
	}
	return p.redis.Ping(ctx).Err()
}

func (p *Plugin) PluginOptions() plugin.PluginOptions {
	return plugin.PluginOptions{
		Optional:    true,
		Description: "Guestbook admin page backed by the ORM",
	}
}

var (
	_ plugin.Plugin            = (*Plugin)(nil)
	_ plugin.Installable       = (*Plugin)(nil)
	_ plugin.Disableable       = (*Plugin)(nil)
	_ plugin.RouteProvider     = (*Plugin)(nil)
	_ plugin.EventSubscriber   = (*Plugin)(nil)
	_ plugin.HealthReporter    = (*Plugin)(nil)
	_ plugin.Configurable      = (*Plugin)(nil)
	_ plugin.AdminMenuProvider = (*Plugin)(nil)
)

// Stats is served by /api/guestbook/stats.
type Stats struct {
	Activations      int64      `json:"activations"`
	TotalActivations int64      `json:"totalActivations,omitempty"`
	LastActivation   *time.Time `json:"lastActivation,omitempty"`
}

func (p *Plugin) Stats(ctx context.Context) (Stats, error) {
	p.mu.Lock()
	stats := Stats{Activations: p.activations}
	if !p.lastActivation.IsZero() {
		last := p.lastActivation
		stats.LastActivation = &last
	}
	p.mu.Unlock()

	if p.redis != nil {
		total, err := p.redis.Get(ctx, activationsKey).Int64()
		if err != nil && err != redis.Nil {
			return stats, err
		}
		stats.TotalActivations = total
	}
	return stats, nil
}

func (p *Plugin) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := p.Stats(r.Context())
	if err != nil {
		responder.Fail(w, r, err)
		return
	}
	responder.OK(w, r, stats)
}
