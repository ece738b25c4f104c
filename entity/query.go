package entity

import (
	"context"

	"github.com/jacentio/loam/internal/names"
)

// Query is the hydrating wrapper around a Builder: it carries the entity
// type, forwards constraints, and turns raw documents into entities with
// eager relationships resolved.
type Query struct {
	typ     *Type
	builder Builder
	eager   []string
}

// NewQuery builds a query scoped to this type's collection on its
// configured connection, pre-loaded with the type's eager relation names.
func (t *Type) NewQuery() (*Query, error) {
	b, err := scopedQuery(t)
	if err != nil {
		return nil, err
	}
	q := &Query{typ: t, builder: b, eager: append([]string(nil), t.eager...)}
	if len(q.eager) > 0 {
		b.With(q.eager...)
	}
	return q, nil
}

// Where adds a comparison constraint.
func (q *Query) Where(field, op string, value any) *Query {
	q.builder.Where(names.Snake(field), op, value)
	return q
}

// WhereIn adds a containment constraint.
func (q *Query) WhereIn(field string, values []any) *Query {
	q.builder.WhereIn(names.Snake(field), values)
	return q
}

// With adds relation names to resolve on every entity this query loads.
func (q *Query) With(relationNames ...string) *Query {
	for _, n := range relationNames {
		q.eager = append(q.eager, names.Snake(n))
	}
	q.builder.With(relationNames...)
	return q
}

// Take limits the number of entities returned by Get.
func (q *Query) Take(n int) *Query {
	q.builder.Take(n)
	return q
}

// Get executes the query and hydrates every matching document.
func (q *Query) Get(ctx context.Context) (Collection, error) {
	docs, err := q.builder.Get(ctx)
	if err != nil {
		return nil, err
	}
	c := q.typ.hydrateAll(docs)
	if err := q.eagerLoad(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// First returns the first matching entity, or nil.
func (q *Query) First(ctx context.Context) (*Entity, error) {
	c, err := q.Take(1).Get(ctx)
	if err != nil {
		return nil, err
	}
	return c.First(), nil
}

// Find retrieves one entity by identity, or nil when absent.
func (q *Query) Find(ctx context.Context, id any) (*Entity, error) {
	doc, err := q.builder.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, nil
	}
	e := q.typ.Hydrate(doc)
	if err := q.eagerLoad(ctx, Collection{e}); err != nil {
		return nil, err
	}
	return e, nil
}

// FindMany retrieves the entities for a list of identities. Missing
// identities are skipped, not errors.
func (q *Query) FindMany(ctx context.Context, ids []any) (Collection, error) {
	docs, err := q.builder.WhereIn(q.typ.primaryKey, ids).Get(ctx)
	if err != nil {
		return nil, err
	}
	c := q.typ.hydrateAll(docs)
	if err := q.eagerLoad(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// eagerLoad resolves the accumulated eager relation names on every loaded
// entity, priming each relation cache.
func (q *Query) eagerLoad(ctx context.Context, entities Collection) error {
	for _, name := range q.eager {
		if _, ok := q.typ.relations[name]; !ok {
			return wrapUnknownRelation(q.typ.name, name)
		}
		for _, e := range entities {
			if e.RelationLoaded(name) {
				continue
			}
			if err := e.Load(ctx, name); err != nil {
				return err
			}
		}
	}
	return nil
}

// Find retrieves one entity of this type by identity, or nil when absent.
func (t *Type) Find(ctx context.Context, id any) (*Entity, error) {
	q, err := t.NewQuery()
	if err != nil {
		return nil, err
	}
	return q.Find(ctx, id)
}

// FindMany retrieves the entities for a list of identities.
func (t *Type) FindMany(ctx context.Context, ids []any) (Collection, error) {
	q, err := t.NewQuery()
	if err != nil {
		return nil, err
	}
	return q.FindMany(ctx, ids)
}

// All returns every entity in this type's collection.
func (t *Type) All(ctx context.Context) (Collection, error) {
	q, err := t.NewQuery()
	if err != nil {
		return nil, err
	}
	return q.Get(ctx)
}

// With starts a query with additional eager relation names.
func (t *Type) With(relationNames ...string) (*Query, error) {
	q, err := t.NewQuery()
	if err != nil {
		return nil, err
	}
	return q.With(relationNames...), nil
}

// Create constructs a new entity, mass-assigns the given values through
// the guard, and saves it. The entity is returned even when a creating
// listener cancelled the save; check Exists on the result.
func (t *Type) Create(ctx context.Context, attrs Document) (*Entity, error) {
	e := t.New().Fill(attrs)
	if _, err := e.Save(ctx); err != nil {
		return nil, err
	}
	return e, nil
}
