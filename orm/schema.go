package orm

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"
)

// NewID generates a UUID v7 primary key.
// It panics if the generation fails, which does not happen in practice.
func NewID() uuid.UUID {
	v7, err := uuid.NewV7()
	if err != nil {
		panic("failed to create UUID v7: " + err.Error())
	}
	return v7
}

// IDColumn is the uuid primary key column shared by plugin tables.
func IDColumn() *schema.Column {
	return &schema.Column{
		Name: "id",
		Type: field.TypeUUID,
		SchemaType: map[string]string{
			"postgres": "uuid",
			"mysql":    "char(36)",
			"sqlite3":  "text",
		},
	}
}

// AuditColumns returns created_at and updated_at columns.
func AuditColumns() []*schema.Column {
	return []*schema.Column{
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
	}
}

// NewTable builds a migratable table with the id and audit columns around
// the given columns.
func NewTable(name string, columns ...*schema.Column) *schema.Table {
	t := schema.NewTable(name).AddPrimary(IDColumn())
	for _, c := range columns {
		t.AddColumn(c)
	}
	for _, c := range AuditColumns() {
		t.AddColumn(c)
	}
	return t
}
