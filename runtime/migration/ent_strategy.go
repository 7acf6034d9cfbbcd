package migration

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
)

// EntStrategy runs an ent schema migration.
type EntStrategy struct {
	name      string
	migrateFn func(context.Context) error
}

func (s *EntStrategy) Name() string {
	return s.name
}

func (s *EntStrategy) Migrate(ctx context.Context) error {
	if s == nil || s.migrateFn == nil {
		return nil
	}
	return s.migrateFn(ctx)
}

// NewSchemaStrategy creates or alters tables on drv so they match the given
// ent schema tables. Columns and indexes are only ever added.
func NewSchemaStrategy(drv dialect.Driver, tables []*schema.Table, opts ...schema.MigrateOption) *EntStrategy {
	return &EntStrategy{
		name: "ent-schema",
		migrateFn: func(ctx context.Context) error {
			if len(tables) == 0 {
				return nil
			}
			m, err := schema.NewMigrate(drv, opts...)
			if err != nil {
				return fmt.Errorf("create migrate: %w", err)
			}
			return m.Create(ctx, tables...)
		},
	}
}
