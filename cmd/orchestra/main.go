// Command orchestra serves the admin host with the bundled example plugins.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/leeforge/orchestra/config"
	"github.com/leeforge/orchestra/framework"
	"github.com/leeforge/orchestra/host"
	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/plugin/examples/guestbook"
	"github.com/leeforge/orchestra/redis_client"
	"github.com/leeforge/orchestra/runtime"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "orchestra:", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, _, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Init(app.Log)
	defer func() { _ = logging.Sync() }()

	rdb, err := redis_client.NewRedis(ctx, app.Redis, logger)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	router := chi.NewRouter()
	rt := runtime.NewRuntime(runtime.Config{
		Router:   router,
		Redis:    rdb,
		Logger:   logger,
		Settings: app.Orchestra,
		Plugins:  app.Plugins,
	})

	layout, err := host.NewLayout(app.Orchestra.AdminPath, app.Orchestra.Language)
	if err != nil {
		return err
	}
	fw := framework.New(app.Orchestra,
		framework.WithLogger(logger),
		framework.WithEventBus(rt.Events()),
		framework.WithTerminator(layout.Terminate),
	)
	defer func() { _ = fw.ORM().Close() }()

	h, err := host.New(router, fw, rt, host.Options{
		Settings: app.Orchestra,
		Server:   app.Server,
		Access:   app.Access,
		Logger:   logger,
		Layout:   layout,
	})
	if err != nil {
		return err
	}

	if err := rt.Register(guestbook.New()); err != nil {
		return err
	}
	if err := rt.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap plugins: %w", err)
	}

	serveErr := h.ListenAndServe(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Server.ShutdownTimeout)
	defer cancel()
	if err := rt.Shutdown(shutdownCtx); err != nil {
		logger.Warn("plugin shutdown", zap.Error(err))
	}
	return serveErr
}
