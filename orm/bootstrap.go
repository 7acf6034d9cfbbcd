package orm

import (
	"context"
	"fmt"
	"sync"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"go.uber.org/zap"

	"github.com/leeforge/orchestra/errors"
	"github.com/leeforge/orchestra/logging"
	"github.com/leeforge/orchestra/metrics"
	"github.com/leeforge/orchestra/runtime/migration"
)

// State is the lifecycle of the process-wide entity manager.
type State int

const (
	StateUninitialized State = iota
	StateReady
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateClosed:
		return "closed"
	default:
		return "uninitialized"
	}
}

// ErrClosed is returned by InitializeOnce after Close.
var ErrClosed = errors.New(errors.ErrorTypeDatabase, "orm bootstrapper is closed")

// Opener connects an ent driver for cfg.
type Opener func(ctx context.Context, cfg *Config) (dialect.Driver, error)

// MigrationFactory builds the strategy that brings tables up to date.
type MigrationFactory func(drv dialect.Driver, tables []*schema.Table) migration.Strategy

type Option func(*Bootstrapper)

func WithOpener(open Opener) Option {
	return func(b *Bootstrapper) { b.open = open }
}

func WithMigrationFactory(f MigrationFactory) Option {
	return func(b *Bootstrapper) { b.migrations = f }
}

func WithLogger(logger logging.Logger) Option {
	return func(b *Bootstrapper) { b.logger = logger }
}

// Bootstrapper owns the process-wide entity manager. The first plugin that
// asks for it decides the configuration; later plugins reuse the manager
// and only get their own tables migrated.
type Bootstrapper struct {
	mu         sync.Mutex
	state      State
	em         *EntityManager
	migrated   map[string]bool
	open       Opener
	migrations MigrationFactory
	logger     logging.Logger
}

func NewBootstrapper(opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		migrated:   make(map[string]bool),
		open:       OpenDriver,
		migrations: defaultMigrations,
		logger:     logging.Global(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// OpenDriver opens a database/sql backed ent driver, tunes its pool and
// checks the connection.
func OpenDriver(ctx context.Context, cfg *Config) (dialect.Driver, error) {
	drv, err := entsql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	db := drv.DB()
	cfg.Pool.Apply(db)
	if err := db.PingContext(ctx); err != nil {
		_ = drv.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}
	if cfg.Dialect() != cfg.Driver {
		return entsql.OpenDB(cfg.Dialect(), db), nil
	}
	return drv, nil
}

func defaultMigrations(drv dialect.Driver, tables []*schema.Table) migration.Strategy {
	return migration.NewSchemaStrategy(drv, tables)
}

// InitializeOnce returns the entity manager, bootstrapping it from
// <pluginDir>/orm-config.yaml on first use. A failed bootstrap leaves the
// state uninitialized so the next request can retry.
func (b *Bootstrapper) InitializeOnce(ctx context.Context, pluginDir string, tables []*schema.Table) (*EntityManager, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil, ErrClosed
	case StateReady:
		if err := b.migrate(ctx, pluginDir, tables); err != nil {
			return nil, err
		}
		return b.em, nil
	}

	em, err := b.bootstrap(ctx, pluginDir)
	if err != nil {
		metrics.ORMBootstrapTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}
	b.em = em
	if err := b.migrate(ctx, pluginDir, tables); err != nil {
		_ = em.Close()
		b.em = nil
		metrics.ORMBootstrapTotal.WithLabelValues(metrics.ResultError).Inc()
		return nil, err
	}

	b.state = StateReady
	metrics.ORMBootstrapTotal.WithLabelValues(metrics.ResultSuccess).Inc()
	metrics.ORMReady.Set(1)
	b.logger.Info("orm bootstrapped",
		zap.String("plugin_dir", pluginDir),
		zap.String("dialect", em.Dialect()),
		zap.Bool("auto_migrate", em.cfg.AutoMigrate),
	)
	return em, nil
}

func (b *Bootstrapper) bootstrap(ctx context.Context, pluginDir string) (*EntityManager, error) {
	cfg, err := LoadConfig(pluginDir)
	if err != nil {
		return nil, err
	}

	drv, err := b.open(ctx, cfg)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeDatabase, "open database")
	}
	if cfg.Debug {
		logger := b.logger.Named("orm")
		drv = dialect.Debug(drv, func(v ...any) {
			logger.Debug(fmt.Sprint(v...))
		})
	}
	return NewEntityManager(drv, *cfg), nil
}

func (b *Bootstrapper) migrate(ctx context.Context, pluginDir string, tables []*schema.Table) error {
	if !b.em.cfg.AutoMigrate || b.migrated[pluginDir] || len(tables) == 0 {
		return nil
	}
	if err := migration.NewManager(b.migrations(b.em.Driver(), tables)).Run(ctx); err != nil {
		return errors.Wrap(err, errors.ErrorTypeDatabase, "migrate plugin tables").
			WithDetail("plugin_dir", pluginDir)
	}
	b.migrated[pluginDir] = true
	b.logger.Info("orm tables migrated", zap.String("plugin_dir", pluginDir), zap.Int("tables", len(tables)))
	return nil
}

// EntityManager returns the bootstrapped manager, or nil.
func (b *Bootstrapper) EntityManager() *EntityManager {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.em
}

func (b *Bootstrapper) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *Bootstrapper) Initialized() bool {
	return b.State() == StateReady
}

// Close releases the database connection. The bootstrapper cannot be reused.
func (b *Bootstrapper) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.em != nil {
		err = b.em.Close()
		b.em = nil
	}
	b.state = StateClosed
	metrics.ORMReady.Set(0)
	return err
}
