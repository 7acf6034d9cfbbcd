package framework

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/leeforge/orchestra/controller"
	"github.com/leeforge/orchestra/errors"
	"github.com/leeforge/orchestra/form"
	"github.com/leeforge/orchestra/loader"
	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/metrics"
	"github.com/leeforge/orchestra/orm"
	"github.com/leeforge/orchestra/request"
	"github.com/leeforge/orchestra/translation"
	"github.com/leeforge/orchestra/utils"
	"github.com/leeforge/orchestra/view"
)

const (
	DefaultController = "index"
	DefaultAction     = "index"
)

// FrontControllerConfig carries the collaborators wired for the active plugin.
type FrontControllerConfig struct {
	Request    *request.Request
	Namespace  string
	Entities   *orm.EntityManager
	Templates  *view.Engine
	Forms      *form.Factory
	Translator *translation.Translator
	Loader     *loader.ClassLoader
	Host       *view.HostExtension
	Logger     logging.Logger
}

// FrontController dispatches the request to one action of the active
// plugin. The action runs at most once; its result is kept.
type FrontController struct {
	cfg        FrontControllerConfig
	identifier string

	once     sync.Once
	response *controller.Response
	err      error
}

func NewFrontController(cfg FrontControllerConfig) *FrontController {
	if cfg.Logger == nil {
		cfg.Logger = logging.Global()
	}
	if cfg.Loader == nil {
		cfg.Loader = loader.NewClassLoader(nil)
	}
	return &FrontController{cfg: cfg, identifier: Identifier(cfg.Namespace)}
}

func (fc *FrontController) Namespace() string { return fc.cfg.Namespace }

func (fc *FrontController) Identifier() string { return fc.identifier }

func (fc *FrontController) Templates() *view.Engine { return fc.cfg.Templates }

func (fc *FrontController) Entities() *orm.EntityManager { return fc.cfg.Entities }

// Route returns the controller and action the request addresses.
func (fc *FrontController) Route() (string, string) {
	name, action := DefaultController, DefaultAction
	if fc.cfg.Request != nil {
		if v := fc.cfg.Request.Query.Get("controller"); v != "" {
			name = v
		}
		if v := fc.cfg.Request.Query.Get("action"); v != "" {
			action = v
		}
	}
	return name, action
}

// ControllerClass is `<namespace>\Controller\<Name>Controller`.
func (fc *FrontController) ControllerClass(name string) string {
	return loader.NormalizeClass(fc.cfg.Namespace) + `\Controller\` + utils.UpperCamelCase(name) + "Controller"
}

// GetResponse dispatches on the first call and replays the result afterwards.
func (fc *FrontController) GetResponse(ctx context.Context) (*controller.Response, error) {
	fc.once.Do(func() {
		fc.response, fc.err = fc.dispatch(ctx)
	})
	return fc.response, fc.err
}

func (fc *FrontController) dispatch(ctx context.Context) (*controller.Response, error) {
	name, action := fc.Route()
	logger := fc.cfg.Logger.With(
		zap.String("plugin", fc.identifier),
		zap.String("controller", name),
		zap.String("action", action),
		zap.String("dispatch_id", uuid.NewString()),
	)

	start := time.Now()
	resp, err := fc.invoke(ctx, name, action, logger)
	metrics.ObserveSince(metrics.DispatchDuration.WithLabelValues(fc.identifier), start)

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
		logger.Warn("dispatch failed", zap.Error(err))
	} else {
		logger.Debug("dispatched", zap.Int("status", resp.Status), zap.Duration("took", time.Since(start)))
	}
	metrics.DispatchTotal.WithLabelValues(fc.identifier, name, action, result).Inc()
	return resp, err
}

func (fc *FrontController) invoke(ctx context.Context, name, action string, logger logging.Logger) (*controller.Response, error) {
	factory, err := fc.cfg.Loader.LoadClass(fc.ControllerClass(name))
	if err != nil {
		return nil, err
	}

	handler, ok := factory().Actions()[action]
	if !ok {
		return nil, errors.NewNotFound("action", action).WithDetail("controller", name)
	}

	resp, err := handler(&controller.Context{
		Context:    logging.ToContext(logging.SetPlugin(ctx, fc.cfg.Namespace), logger),
		Request:    fc.cfg.Request,
		Plugin:     fc.identifier,
		Namespace:  fc.cfg.Namespace,
		Controller: name,
		Action:     action,
		Entities:   fc.cfg.Entities,
		Templates:  fc.cfg.Templates,
		Forms:      fc.cfg.Forms,
		Translator: fc.cfg.Translator,
		Logger:     logger,
		Host:       fc.cfg.Host,
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = controller.HTML("")
	}
	return resp, nil
}
