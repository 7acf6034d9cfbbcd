// Package host is the HTTP server plugins live in. It owns the admin area:
// on every admin request it runs the admin menu phase, in which each plugin
// hands its definition to the framework, and then writes the response of
// the plugin that owns the requested page.
package host

import (
	"context"
	stderrors "errors"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/leeforge/orchestra/config"
	"github.com/leeforge/orchestra/controller"
	"github.com/leeforge/orchestra/errors"
	"github.com/leeforge/orchestra/framework"
	"github.com/leeforge/orchestra/http/binding"
	"github.com/leeforge/orchestra/http/middleware"
	"github.com/leeforge/orchestra/http/responder"
	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/metrics"
	"github.com/leeforge/orchestra/plugin"
	"github.com/leeforge/orchestra/runtime"
)

const (
	MessageForbidden    = "You do not have sufficient permissions to access this page."
	MessageUnknownPage  = "The requested admin page does not exist."
	MessageNoDashboard  = "Select a plugin from the menu."
	dashboardTitle      = "Dashboard"
	healthStatusOK      = "ok"
	healthStatusFailing = "failing"
)

type Options struct {
	Settings config.Settings
	Server   config.ServerConfig
	Access   config.AccessConfig
	Logger   logging.Logger
	// Layout defaults to one built from Settings. Pass the same layout the
	// framework terminates requests with.
	Layout *Layout
}

type Host struct {
	router   chi.Router
	fw       *framework.Framework
	rt       *runtime.Runtime
	access   *AccessControl
	sessions *SessionManager
	layout   *Layout
	opts     Options
	logger   logging.Logger
}

// New installs the host middleware and routes on router. It must run before
// the runtime bootstraps plugins, which mount their own routes on the same
// router.
func New(router chi.Router, fw *framework.Framework, rt *runtime.Runtime, opts Options) (*Host, error) {
	if opts.Logger == nil {
		opts.Logger = logging.Global()
	}
	access, err := NewAccessControl(opts.Access)
	if err != nil {
		return nil, err
	}
	layout := opts.Layout
	if layout == nil {
		if layout, err = NewLayout(opts.Settings.AdminPath, opts.Settings.Language); err != nil {
			return nil, err
		}
	}

	h := &Host{
		router:   router,
		fw:       fw,
		rt:       rt,
		access:   access,
		sessions: NewSessionManager(opts.Settings.SessionCookie, opts.Settings.CSRFSecret, opts.Settings.IsProd()),
		layout:   layout,
		opts:     opts,
		logger:   opts.Logger.Named("host"),
	}
	h.routes()
	return h, nil
}

func (h *Host) routes() {
	h.router.Use(
		middleware.TraceIDMiddleware(),
		middleware.TimingMiddleware(),
		logging.HTTPMiddleware(h.logger, logging.WithSkipPaths("/healthz", "/metrics")),
		logging.RecoveryMiddleware(h.logger),
	)

	h.router.Get("/healthz", h.health)
	h.router.Handle("/metrics", promhttp.Handler())
	h.router.Get("/api/plugins", h.plugins)
	h.router.HandleFunc(h.opts.Settings.AdminPath, h.admin)
	h.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responder.WriteError(w, r, http.StatusNotFound, responder.ErrRouteNotFound)
	})
}

func (h *Host) Router() chi.Router { return h.router }

func (h *Host) Access() *AccessControl { return h.access }

func took(r *http.Request) responder.Option {
	return responder.WithTook(middleware.GetRequestDuration(r.Context()))
}

func (h *Host) health(w http.ResponseWriter, r *http.Request) {
	plugins := make(map[string]string)
	status := http.StatusOK
	for name, err := range h.rt.Health(r.Context()) {
		if err != nil {
			plugins[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		plugins[name] = healthStatusOK
	}

	overall := healthStatusOK
	if status != http.StatusOK {
		overall = healthStatusFailing
	}
	responder.Write(w, r, status, map[string]any{
		"status":  overall,
		"orm":     h.fw.ORM().State().String(),
		"plugins": plugins,
	}, took(r))
}

type pluginQuery struct {
	State string `query:"state" validate:"omitempty,oneof=registered installed enabled disabled failed skipped"`
}

// plugins lists registered plugins, optionally only those in one state.
func (h *Host) plugins(w http.ResponseWriter, r *http.Request) {
	var q pluginQuery
	if err := binding.Query(r, &q); err != nil {
		responder.Fail(w, r, errors.Wrap(err, errors.ErrorTypeValidation, "invalid plugin query"))
		return
	}

	infos := h.rt.Plugins()
	if q.State != "" {
		kept := infos[:0]
		for _, info := range infos {
			if info.State.String() == q.State {
				kept = append(kept, info)
			}
		}
		infos = kept
	}
	responder.OK(w, r, infos, took(r))
}

// admin serves the admin page addressed by the page query parameter.
func (h *Host) admin(w http.ResponseWriter, r *http.Request) {
	status := h.serveAdmin(w, r)
	metrics.AdminRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(status)).Inc()
}

func (h *Host) serveAdmin(w http.ResponseWriter, r *http.Request) int {
	ctx := r.Context()

	sid, err := h.sessions.ID(w, r)
	if err != nil {
		return h.fw.DisplayError(w, err)
	}
	c := h.fw.NewContext(r).WithSessionID(sid)

	menu, err := h.runAdminMenu(ctx, c)
	if err != nil {
		return h.fw.DisplayError(w, err)
	}

	page := c.EnsureRequest().Page()
	if page == "" {
		h.layout.Render(w, http.StatusOK, Page{Title: dashboardTitle, Menu: menu.Pages(), Content: MessageNoDashboard})
		return http.StatusOK
	}

	entry, ok := menu.Page(page)
	if !ok {
		h.layout.Render(w, http.StatusNotFound, Page{Title: dashboardTitle, Menu: menu.Pages(), Content: MessageUnknownPage})
		return http.StatusNotFound
	}

	user := h.access.User(r)
	allowed, err := h.access.Can(user, entry.Capability, r.Method)
	if err != nil {
		return h.fw.DisplayError(w, err)
	}
	if !allowed {
		h.logger.Warn("admin access denied",
			zap.String("user", user),
			zap.String("page", page),
			zap.String("capability", entry.Capability))
		h.layout.Render(w, http.StatusForbidden, Page{Title: entry.PageTitle, Current: page, Menu: menu.Pages(), Content: MessageForbidden})
		return http.StatusForbidden
	}

	resp, err := h.fw.GetResponse(ctx, c)
	if err != nil {
		return h.fw.DisplayError(w, err)
	}
	return h.write(w, resp, entry, menu)
}

// runAdminMenu lets every enabled plugin set itself up and register its
// menu page, in boot order.
func (h *Host) runAdminMenu(ctx context.Context, c *framework.Context) (*plugin.AdminMenuContext, error) {
	menu := plugin.NewAdminMenuContext(func(def plugin.Definition) (string, error) {
		return h.fw.SetupPlugin(ctx, c, def)
	})
	for _, p := range h.rt.AdminMenuProviders() {
		if err := p.AdminMenu(ctx, menu); err != nil {
			return nil, err
		}
	}
	return menu, nil
}

func (h *Host) write(w http.ResponseWriter, resp *controller.Response, entry plugin.MenuPage, menu *plugin.AdminMenuContext) int {
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	if !resp.IsHTML() || resp.IsRedirect() {
		responder.WriteResponse(w, resp)
		return status
	}

	for key, values := range resp.Header {
		if key == "Content-Type" {
			continue
		}
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}
	h.layout.Render(w, status, Page{
		Title:   entry.PageTitle,
		Current: entry.Slug,
		Menu:    menu.Pages(),
		Content: template.HTML(resp.Body),
	})
	return status
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (h *Host) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         h.opts.Server.Addr,
		Handler:      h.router,
		ReadTimeout:  h.opts.Server.ReadTimeout,
		WriteTimeout: h.opts.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		h.logger.Info("listening", zap.String("addr", srv.Addr), zap.String("admin", h.opts.Settings.AdminPath))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if stderrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	timeout := h.opts.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
