// Package runtime drives plugin lifecycles: dependency ordering, install,
// enable, route and event wiring, health checks and shutdown.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/leeforge/orchestra/config"
	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/plugin"
)

var ErrCircularDependency = errors.New("circular plugin dependency")

type Config struct {
	Router      chi.Router
	Redis       *redis.Client
	Logger      logging.Logger
	Settings    config.Settings
	Plugins     map[string]config.PluginEntry // keyed by plugin name
	EventBuffer int                           // default 1024
}

// Info describes a registered plugin.
type Info struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Description  string             `json:"description,omitempty"`
	Dependencies []string           `json:"dependencies"`
	State        plugin.PluginState `json:"state"`
	Error        string             `json:"error,omitempty"`
	AdminPage    bool               `json:"adminPage"`
}

type Runtime struct {
	cfg    Config
	logger logging.Logger

	mu       sync.RWMutex
	plugins  map[string]plugin.Plugin
	states   map[string]plugin.PluginState
	failures map[string]error
	contexts map[string]*plugin.AppContext
	order    []string
	health   map[string]func(context.Context) error

	services *plugin.ServiceRegistry
	bus      *eventBus
}

func NewRuntime(cfg Config) *Runtime {
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Router == nil {
		cfg.Router = chi.NewRouter()
	}

	return &Runtime{
		cfg:      cfg,
		logger:   cfg.Logger.Named("runtime"),
		plugins:  make(map[string]plugin.Plugin),
		states:   make(map[string]plugin.PluginState),
		failures: make(map[string]error),
		contexts: make(map[string]*plugin.AppContext),
		health:   make(map[string]func(context.Context) error),
		services: plugin.NewServiceRegistry(),
		bus:      NewEventBus(cfg.EventBuffer, cfg.Logger.Named("events")),
	}
}

// Services is the registry shared by all plugins. Core services may be
// registered before Bootstrap.
func (r *Runtime) Services() *plugin.ServiceRegistry { return r.services }

func (r *Runtime) Events() plugin.EventBus { return r.bus }

// Register adds p. Must be called before Bootstrap.
func (r *Runtime) Register(p plugin.Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := p.Name()
	if _, exists := r.plugins[name]; exists {
		return fmt.Errorf("plugin %q already registered", name)
	}
	r.plugins[name] = p
	r.states[name] = plugin.StateRegistered
	r.logger.Info("plugin registered", zap.String("plugin", name), zap.String("version", p.Version()))
	return nil
}

func (r *Runtime) appContext(name string) *plugin.AppContext {
	entry := r.cfg.Plugins[name]
	return &plugin.AppContext{
		Router:   r.cfg.Router,
		Redis:    r.cfg.Redis,
		Logger:   r.cfg.Logger.With(zap.String("plugin", name)),
		Services: r.services,
		Config:   plugin.NewConfigProvider(entry),
		Events:   r.bus,
		Settings: r.cfg.Settings,
	}
}

// Bootstrap installs and enables every plugin in dependency order. Plugins
// switched off in the configuration are skipped, and so are plugins whose
// dependencies did not come up.
func (r *Runtime) Bootstrap(ctx context.Context) error {
	start := time.Now()

	order, err := r.resolveDependencies()
	if err != nil {
		return fmt.Errorf("resolve plugin dependencies: %w", err)
	}
	r.mu.Lock()
	r.order = order
	for _, name := range order {
		r.contexts[name] = r.appContext(name)
	}
	r.mu.Unlock()
	r.logger.Info("plugin boot order resolved", zap.Strings("order", order))

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("bootstrap canceled: %w", err)
		}
		if err := r.start(ctx, name); err != nil {
			return err
		}
	}

	for _, name := range order {
		if r.state(name) != plugin.StateEnabled {
			continue
		}
		p := r.plugins[name]
		if rp, ok := p.(plugin.RouteProvider); ok {
			rp.RegisterRoutes(r.cfg.Router)
		}
		if es, ok := p.(plugin.EventSubscriber); ok {
			es.SubscribeEvents(r.bus)
		}
		if hr, ok := p.(plugin.HealthReporter); ok {
			r.mu.Lock()
			r.health[name] = hr.HealthCheck
			r.mu.Unlock()
		}
	}

	r.logger.Info("plugins bootstrapped",
		zap.Duration("duration", time.Since(start)),
		zap.Int("plugins", len(order)),
		zap.Int("enabled", len(r.EnabledPlugins())),
	)
	return nil
}

func (r *Runtime) start(ctx context.Context, name string) error {
	p := r.plugins[name]
	app := r.contexts[name]

	if !app.Config.IsEnabled() {
		r.setState(name, plugin.StateSkipped)
		r.logger.Info("plugin disabled by configuration", zap.String("plugin", name))
		return nil
	}
	for _, dep := range p.Dependencies() {
		if s := r.state(dep); s != plugin.StateEnabled {
			return r.fail(name, fmt.Errorf("dependency %q is %s", dep, s))
		}
	}

	if ip, ok := p.(plugin.Installable); ok {
		if err := ip.Install(ctx, app); err != nil {
			return r.fail(name, fmt.Errorf("install: %w", err))
		}
	}
	r.setState(name, plugin.StateInstalled)

	if err := p.Enable(ctx, app); err != nil {
		return r.fail(name, fmt.Errorf("enable: %w", err))
	}
	r.setState(name, plugin.StateEnabled)

	_ = r.bus.Publish(ctx, plugin.Event{Name: plugin.EventPluginEnabled, Source: name})
	return nil
}

// fail records err; it only aborts the bootstrap for required plugins.
func (r *Runtime) fail(name string, err error) error {
	r.mu.Lock()
	r.states[name] = plugin.StateFailed
	r.failures[name] = err
	r.mu.Unlock()

	if r.options(name).Optional {
		r.logger.Warn("optional plugin failed, continuing", zap.String("plugin", name), zap.Error(err))
		return nil
	}
	return fmt.Errorf("required plugin %q failed: %w", name, err)
}

func (r *Runtime) options(name string) plugin.PluginOptions {
	if c, ok := r.plugins[name].(plugin.Configurable); ok {
		return c.PluginOptions()
	}
	return plugin.PluginOptions{}
}

func (r *Runtime) setState(name string, s plugin.PluginState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[name] = s
}

func (r *Runtime) state(name string) plugin.PluginState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.states[name]
}

// Shutdown drains the event bus, then disables plugins in reverse boot order.
func (r *Runtime) Shutdown(ctx context.Context) error {
	_ = r.bus.Close()

	order := r.BootOrder()
	var errs []error
	for i := len(order) - 1; i >= 0; i-- {
		name := order[i]
		if r.state(name) != plugin.StateEnabled {
			continue
		}
		if dp, ok := r.plugins[name].(plugin.Disableable); ok {
			if err := dp.Disable(ctx, r.contexts[name]); err != nil {
				r.logger.Error("plugin disable failed", zap.String("plugin", name), zap.Error(err))
				errs = append(errs, fmt.Errorf("disable %s: %w", name, err))
			}
		}
		r.setState(name, plugin.StateDisabled)
	}

	if r.cfg.Redis != nil {
		if err := r.cfg.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	r.logger.Info("plugins shut down")
	return errors.Join(errs...)
}

func (r *Runtime) Publish(ctx context.Context, event plugin.Event) error {
	return r.bus.Publish(ctx, event)
}

func (r *Runtime) GetPluginState(name string) (plugin.PluginState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.states[name]
	return s, ok
}

// PluginError returns why a plugin failed, if it did.
func (r *Runtime) PluginError(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failures[name]
}

func (r *Runtime) BootOrder() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// EnabledPlugins returns the enabled plugins in boot order.
func (r *Runtime) EnabledPlugins() []plugin.Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []plugin.Plugin
	for _, name := range r.order {
		if r.states[name] == plugin.StateEnabled {
			out = append(out, r.plugins[name])
		}
	}
	return out
}

// AdminMenuProviders returns the enabled plugins that take part in the
// admin menu phase, in boot order.
func (r *Runtime) AdminMenuProviders() []plugin.AdminMenuProvider {
	var out []plugin.AdminMenuProvider
	for _, p := range r.EnabledPlugins() {
		if amp, ok := p.(plugin.AdminMenuProvider); ok {
			out = append(out, amp)
		}
	}
	return out
}

// Plugins describes every registered plugin in boot order; plugins
// registered after Bootstrap come last, by name.
func (r *Runtime) Plugins() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := append([]string(nil), r.order...)
	seen := make(map[string]bool, len(names))
	for _, n := range names {
		seen[n] = true
	}
	var rest []string
	for n := range r.plugins {
		if !seen[n] {
			rest = append(rest, n)
		}
	}
	sort.Strings(rest)
	names = append(names, rest...)

	infos := make([]Info, 0, len(names))
	for _, name := range names {
		p := r.plugins[name]
		info := Info{
			Name:         name,
			Version:      p.Version(),
			Dependencies: append([]string{}, p.Dependencies()...),
			State:        r.states[name],
		}
		if c, ok := p.(plugin.Configurable); ok {
			info.Description = c.PluginOptions().Description
		}
		if err := r.failures[name]; err != nil {
			info.Error = err.Error()
		}
		_, info.AdminPage = p.(plugin.AdminMenuProvider)
		infos = append(infos, info)
	}
	return infos
}

// Health runs the health checks of enabled plugins. A nil map value means healthy.
func (r *Runtime) Health(ctx context.Context) map[string]error {
	r.mu.RLock()
	checks := make(map[string]func(context.Context) error, len(r.health))
	for name, fn := range r.health {
		checks[name] = fn
	}
	r.mu.RUnlock()

	out := make(map[string]error, len(checks))
	for name, check := range checks {
		out[name] = check(ctx)
	}
	return out
}

// resolveDependencies orders plugins with Kahn's algorithm, breaking ties by name.
func (r *Runtime) resolveDependencies() ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	inDegree := make(map[string]int, len(r.plugins))
	dependents := make(map[string][]string)
	for name := range r.plugins {
		inDegree[name] += 0
		for _, dep := range r.plugins[name].Dependencies() {
			if _, ok := r.plugins[dep]; !ok {
				return nil, fmt.Errorf("plugin %q depends on %q which is not registered", name, dep)
			}
			inDegree[name]++
			dependents[dep] = append(dependents[dep], name)
		}
	}

	var ready []string
	for name, d := range inDegree {
		if d == 0 {
			ready = append(ready, name)
		}
	}
	sort.Strings(ready)

	order := make([]string, 0, len(r.plugins))
	for len(ready) > 0 {
		current := ready[0]
		ready = ready[1:]
		order = append(order, current)
		for _, next := range dependents[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
				sort.Strings(ready)
			}
		}
	}

	if len(order) != len(r.plugins) {
		return nil, ErrCircularDependency
	}
	return order, nil
}
