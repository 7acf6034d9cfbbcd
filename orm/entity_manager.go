package orm

import (
	"context"
	stdsql "database/sql"
	"fmt"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
)

// EntityManager is the handle plugins use to reach the database. It wraps
// an ent driver and hands out dialect-aware query builders.
type EntityManager struct {
	drv dialect.Driver
	cfg Config
}

func NewEntityManager(drv dialect.Driver, cfg Config) *EntityManager {
	return &EntityManager{drv: drv, cfg: cfg}
}

// Driver returns the underlying ent driver, for generated ent clients.
func (em *EntityManager) Driver() dialect.Driver {
	return em.drv
}

func (em *EntityManager) Dialect() string {
	return em.drv.Dialect()
}

func (em *EntityManager) Config() Config {
	return em.cfg
}

// Builder returns a SQL builder bound to the driver's dialect.
func (em *EntityManager) Builder() *entsql.DialectBuilder {
	return entsql.Dialect(em.Dialect())
}

// Exec runs a statement that returns no rows.
func (em *EntityManager) Exec(ctx context.Context, query string, args ...any) (stdsql.Result, error) {
	var res stdsql.Result
	if err := em.drv.Exec(ctx, query, args, &res); err != nil {
		return nil, fmt.Errorf("exec: %w", err)
	}
	return res, nil
}

// Query runs a statement and returns its rows. Callers close the rows.
func (em *EntityManager) Query(ctx context.Context, query string, args ...any) (*entsql.Rows, error) {
	rows := &entsql.Rows{}
	if err := em.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return rows, nil
}

// Insert executes an insert builder.
func (em *EntityManager) Insert(ctx context.Context, b *entsql.InsertBuilder) error {
	query, args := b.Query()
	_, err := em.Exec(ctx, query, args...)
	return err
}

// Tx runs fn inside a transaction, rolling back when fn fails.
func (em *EntityManager) Tx(ctx context.Context, fn func(tx dialect.Tx) error) error {
	tx, err := em.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rerr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (em *EntityManager) Close() error {
	return em.drv.Close()
}
