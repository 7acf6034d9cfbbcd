// Package framework wires a plugin's admin request into the template,
// translation, form and ORM stack and produces the response of the plugin
// that owns the requested page.
package framework

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/leeforge/orchestra/config"
	"github.com/leeforge/orchestra/controller"
	"github.com/leeforge/orchestra/errors"
	"github.com/leeforge/orchestra/form"
	"github.com/leeforge/orchestra/loader"
	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/metrics"
	"github.com/leeforge/orchestra/orm"
	"github.com/leeforge/orchestra/plugin"
	"github.com/leeforge/orchestra/request"
	"github.com/leeforge/orchestra/translation"
	"github.com/leeforge/orchestra/utils"
	"github.com/leeforge/orchestra/view"
)

// ErrNoActivePlugin is returned by GetResponse when no plugin matched the
// requested page.
var ErrNoActivePlugin = errors.NewPrecondition("no plugin is active for this request").WithCode("no_active_plugin")

// FormLayout is the form theme every engine starts with.
const FormLayout = "form_div_layout.html"

type Framework struct {
	settings   config.Settings
	loader     *loader.ClassLoader
	orm        *orm.Bootstrapper
	events     plugin.EventBus
	normalizer *request.Normalizer
	templates  *view.TemplateCaches
	terminator Terminator
	logger     logging.Logger
}

type Option func(*Framework)

func WithClassLoader(l *loader.ClassLoader) Option {
	return func(f *Framework) { f.loader = l }
}

func WithORM(b *orm.Bootstrapper) Option {
	return func(f *Framework) { f.orm = b }
}

// WithEventBus makes SetupPlugin publish plugin.activated.
func WithEventBus(bus plugin.EventBus) Option {
	return func(f *Framework) { f.events = bus }
}

func WithTerminator(t Terminator) Option {
	return func(f *Framework) { f.terminator = t }
}

func WithLogger(logger logging.Logger) Option {
	return func(f *Framework) { f.logger = logger }
}

func New(settings config.Settings, opts ...Option) *Framework {
	f := &Framework{
		settings: settings,
		normalizer: request.NewNormalizer(request.Options{
			StripSlashes: settings.StripsSlashes(),
			MaxBodyBytes: settings.MaxBodyBytes,
		}),
		templates:  view.NewTemplateCaches(),
		terminator: DefaultTerminator,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logging.Global()
	}
	f.logger = f.logger.Named("framework")
	if f.loader == nil {
		f.loader = loader.NewClassLoader(nil)
	}
	if f.orm == nil {
		f.orm = orm.NewBootstrapper(orm.WithLogger(f.logger))
	}
	return f
}

func (f *Framework) Settings() config.Settings { return f.settings }

func (f *Framework) ClassLoader() *loader.ClassLoader { return f.loader }

func (f *Framework) ORM() *orm.Bootstrapper { return f.orm }

// NewContext creates the per-request context the host passes to SetupPlugin.
func (f *Framework) NewContext(r *http.Request) *Context {
	return NewContext(r, f.normalizer)
}

// SetupPlugin returns the identifier of def's namespace. When the identifier
// is the requested page it also wires the plugin's environment and stores a
// front controller on c. The identifier is returned even on error.
func (f *Framework) SetupPlugin(ctx context.Context, c *Context, def plugin.Definition) (string, error) {
	req := c.EnsureRequest()
	id := Identifier(def.Namespace)

	if id == "" || req.Page() != id {
		metrics.PluginSetupTotal.WithLabelValues(id, metrics.ResultSkipped).Inc()
		return id, nil
	}
	if active := c.ActiveNamespace(); active != "" {
		return f.skipClaimed(id, active)
	}

	// classes are registered before the page is claimed
	f.registerClasses(def)
	if !c.SetActiveNamespace(def.Namespace) {
		return f.skipClaimed(id, c.ActiveNamespace())
	}

	start := time.Now()
	err := f.activate(ctx, c, req, id, def)
	metrics.ObserveSince(metrics.PluginSetupDuration.WithLabelValues(id), start)
	if err != nil {
		metrics.PluginSetupTotal.WithLabelValues(id, metrics.ResultError).Inc()
		return id, err
	}
	metrics.PluginSetupTotal.WithLabelValues(id, metrics.ResultMatched).Inc()
	return id, nil
}

func (f *Framework) skipClaimed(id, active string) (string, error) {
	f.logger.Warn("page already claimed by another plugin",
		zap.String("plugin", id),
		zap.String("active", active))
	metrics.PluginSetupTotal.WithLabelValues(id, metrics.ResultSkipped).Inc()
	return id, nil
}

// registerClasses makes the plugin's controllers and any additional
// namespaces and prefixes loadable.
func (f *Framework) registerClasses(def plugin.Definition) {
	namespaces := make(map[string]string, len(def.AdditionalNamespaces)+1)
	for ns, dir := range def.AdditionalNamespaces {
		namespaces[ns] = dir
	}
	namespaces[def.Namespace] = def.Directory + def.Dirs().Src + "/"
	f.loader.RegisterNamespaces(namespaces)
	if len(def.AdditionalPrefixes) > 0 {
		f.loader.RegisterPrefixes(def.AdditionalPrefixes)
	}
}

func (f *Framework) activate(ctx context.Context, c *Context, req *request.Request, id string, def plugin.Definition) error {
	logger := logging.WithContext(f.logger, ctx).With(zap.String("plugin", id))

	em, err := f.orm.InitializeOnce(ctx, def.Directory, def.Models)
	if err != nil {
		return fmt.Errorf("bootstrap orm: %w", err)
	}

	translator, validate, err := f.newTranslator(def.Directory)
	if err != nil {
		return fmt.Errorf("setup translator: %w", err)
	}

	engine, host, err := f.newEngine(req, def, id, translator)
	if err != nil {
		return fmt.Errorf("setup templates: %w", err)
	}

	forms := form.NewFactoryBuilder().
		AddExtension(form.NewCSRFExtension(form.NewCSRFProvider(f.settings.CSRFSecret, c.SessionID()))).
		AddExtension(form.NewValidatorExtension(validate, translator)).
		GetFormFactory()

	c.setFrontController(NewFrontController(FrontControllerConfig{
		Request:    req,
		Namespace:  def.Namespace,
		Entities:   em,
		Templates:  engine,
		Forms:      forms,
		Translator: translator,
		Loader:     f.loader,
		Host:       host,
		Logger:     logger,
	}))

	logging.NotePlugin(ctx, def.Namespace)
	logger.Info("plugin activated",
		zap.String("namespace", def.Namespace),
		zap.String("dir", def.Directory),
		zap.Bool("template_cache", engine.CacheEnabled()))

	if f.events != nil {
		event := plugin.Event{
			Name:   plugin.EventPluginActivated,
			Source: id,
			Data: plugin.Activation{
				Namespace:  def.Namespace,
				Identifier: id,
				Directory:  def.Directory,
				RequestID:  logging.GetRequestID(ctx),
			},
			Timestamp: time.Now(),
		}
		if err := f.events.Publish(ctx, event); err != nil && !stderrors.Is(err, plugin.ErrBusClosed) {
			return fmt.Errorf("publish %s: %w", plugin.EventPluginActivated, err)
		}
	}
	return nil
}

// newTranslator loads the shared form messages and the plugin's own
// messages for the configured language, and a validator reporting in it.
func (f *Framework) newTranslator(pluginDir string) (*translation.Translator, *validator.Validate, error) {
	translator, err := translation.New(f.settings.Language)
	if err != nil {
		return nil, nil, err
	}
	lang := translator.Locale()

	resources := []struct{ domain, path string }{
		{translation.DomainValidators, filepath.Join(f.settings.SharedDir, "translations", "form."+lang+".yaml")},
		{translation.DomainMessages, filepath.Join(pluginDir, "resources", "translations", "messages."+lang+".yaml")},
	}
	for _, res := range resources {
		if !utils.IsFile(res.path) {
			continue
		}
		if err := translator.AddResource(res.domain, res.path); err != nil {
			return nil, nil, err
		}
	}

	validate := validator.New()
	if err := translator.RegisterValidatorTranslations(validate); err != nil {
		return nil, nil, err
	}
	return translator, validate, nil
}

func (f *Framework) newEngine(req *request.Request, def plugin.Definition, id string, translator *translation.Translator) (*view.Engine, *view.HostExtension, error) {
	dirs := def.Dirs()

	views, err := utils.RealPath(def.Directory + dirs.Views)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.ErrorTypeTemplate, "resolve views dir")
	}
	var formViews string
	if f.settings.SharedDir != "" {
		formViews = filepath.Join(f.settings.SharedDir, "views", "form")
	}

	opts := view.Options{Caches: f.templates}
	if f.settings.IsProd() {
		opts.Cache = def.Directory + dirs.Cache
	}
	engine, err := view.NewEngine(view.NewFilesystemLoader(views, formViews), opts)
	if err != nil {
		return nil, nil, err
	}

	host := view.NewHostExtension(req, def.Namespace, id, f.settings.AdminPath)
	engine.AddExtension(host)
	engine.AddExtension(view.NewTranslationExtension(translator))
	engine.AddExtension(view.NewFormExtension(view.NewFormRenderer(FormLayout)))
	return engine, host, nil
}

// GetResponse returns what the active plugin's front controller produced.
func (f *Framework) GetResponse(ctx context.Context, c *Context) (*controller.Response, error) {
	fc := c.FrontController()
	if fc == nil {
		return nil, ErrNoActivePlugin
	}
	return fc.GetResponse(ctx)
}
