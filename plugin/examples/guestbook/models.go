package guestbook

import (
	"context"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
	"github.com/google/uuid"

	"github.com/leeforge/orchestra/orm"
)

var EntriesTable = orm.NewTable("guestbook_entries",
	&schema.Column{Name: "name", Type: field.TypeString, Size: 100},
	&schema.Column{Name: "email", Type: field.TypeString, Size: 255},
	&schema.Column{Name: "message", Type: field.TypeString, Size: 2000},
)

func Models() []*schema.Table {
	return []*schema.Table{EntriesTable}
}

type Entry struct {
	ID        uuid.UUID
	Name      string
	Email     string
	Message   string
	CreatedAt time.Time
}

// Repository reads and writes entries through the entity manager.
type Repository struct {
	em *orm.EntityManager
}

func NewRepository(em *orm.EntityManager) *Repository {
	return &Repository{em: em}
}

func (r *Repository) Latest(ctx context.Context, limit int) ([]Entry, error) {
	query, args := r.em.Builder().
		Select("id", "name", "email", "message", "created_at").
		From(entsql.Table(EntriesTable.Name)).
		OrderBy(entsql.Desc("created_at")).
		Limit(limit).
		Query()

	rows, err := r.em.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) Create(ctx context.Context, e *Entry) error {
	now := time.Now().UTC()
	e.ID = orm.NewID()
	e.CreatedAt = now

	insert := r.em.Builder().
		Insert(EntriesTable.Name).
		Columns("id", "name", "email", "message", "created_at", "updated_at").
		Values(e.ID, e.Name, e.Email, e.Message, now, now)
	return r.em.Insert(ctx, insert)
}
