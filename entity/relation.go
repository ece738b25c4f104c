package entity

import (
	"context"

	"github.com/jacentio/loam/internal/names"
)

// Kind identifies a relationship shape.
type Kind int

const (
	// HasOne is a to-one relationship keyed on the related collection.
	HasOne Kind = iota
	// HasMany is a to-many relationship keyed on the related collection.
	HasMany
	// BelongsTo is the inverse to-one relationship keyed on the owner.
	BelongsTo
	// MorphOne is a polymorphic to-one relationship.
	MorphOne
	// MorphMany is a polymorphic to-many relationship.
	MorphMany
	// BelongsToMany resolves through a join collection.
	BelongsToMany
)

// Criterion is one recorded query constraint. Op is "in" for containment,
// otherwise a comparison operator.
type Criterion struct {
	Field string
	Op    string
	Value any
}

// Result is a resolved relationship: a single entity (possibly nil), or an
// ordered collection. The zero Result is a loaded-but-absent to-one value.
type Result struct {
	one   *Entity
	many  Collection
	multi bool
}

// SingleResult wraps a to-one result. A nil entity is the explicit null.
func SingleResult(e *Entity) Result {
	return Result{one: e}
}

// ManyResult wraps a to-many result.
func ManyResult(c Collection) Result {
	return Result{many: c, multi: true}
}

// IsMany reports whether the result is a collection.
func (r Result) IsMany() bool { return r.multi }

// Entity returns the single entity, or nil.
func (r Result) Entity() *Entity { return r.one }

// Collection returns the entity collection, or nil for to-one results.
func (r Result) Collection() Collection { return r.many }

// Value unwraps the result to its application-facing form: a Collection,
// an *Entity, or nil.
func (r Result) Value() any {
	if r.multi {
		return r.many
	}
	if r.one == nil {
		return nil
	}
	return r.one
}

// Relation is an unexecuted relationship descriptor: the owning entity, the
// resolved key names, and a query already scoped and constrained to the
// related collection. Descriptors are constructed fresh on each declaration
// call; only their results are cached, on the owning entity.
type Relation struct {
	kind    Kind
	parent  *Entity
	related *Type
	query   Builder

	foreignKey string

	// Join-collection parameters, set for BelongsToMany only.
	join      string
	joinQuery Builder
	ownKey    string
	otherKey  string

	criteria []Criterion

	// null marks a polymorphic inverse with no type tag: resolution yields
	// an absent to-one result without touching the store.
	null bool

	// err defers construction failures (missing resolver, unknown morph
	// target) to execution time, where they can be returned.
	err error
}

// HasOne declares a to-one relationship where the related collection holds
// the foreign key. The key defaults to "<ownType>_id".
func (e *Entity) HasOne(related *Type, foreignKey ...string) *Relation {
	return e.owned(HasOne, related, foreignKey)
}

// HasMany declares a to-many relationship where the related collection
// holds the foreign key. The key defaults to "<ownType>_id".
func (e *Entity) HasMany(related *Type, foreignKey ...string) *Relation {
	return e.owned(HasMany, related, foreignKey)
}

func (e *Entity) owned(kind Kind, related *Type, foreignKey []string) *Relation {
	fk := names.ForeignKey(e.typ.name)
	if len(foreignKey) > 0 && foreignKey[0] != "" {
		fk = names.Snake(foreignKey[0])
	}

	r := &Relation{kind: kind, parent: e, related: related, foreignKey: fk}
	q, err := scopedQuery(related)
	if err != nil {
		r.err = err
		return r
	}
	r.query = q
	r.constrain(fk, "=", e.Key())
	return r
}

// MorphOne declares a polymorphic to-one relationship. The related
// collection is constrained on "<morph>_id" and "<morph>_type".
func (e *Entity) MorphOne(related *Type, morph string) *Relation {
	return e.morphOwned(MorphOne, related, morph)
}

// MorphMany declares a polymorphic to-many relationship.
func (e *Entity) MorphMany(related *Type, morph string) *Relation {
	return e.morphOwned(MorphMany, related, morph)
}

func (e *Entity) morphOwned(kind Kind, related *Type, morph string) *Relation {
	morph = names.Snake(morph)

	r := &Relation{kind: kind, parent: e, related: related, foreignKey: morph + "_id"}
	q, err := scopedQuery(related)
	if err != nil {
		r.err = err
		return r
	}
	r.query = q
	r.constrain(r.foreignKey, "=", e.Key())
	r.constrain(morph+"_type", "=", e.typ.name)
	return r
}

// BelongsTo declares the inverse of an owned relationship. The relation
// name must be passed explicitly; the foreign key on this entity defaults
// to "<name>_id" and may be overridden.
func (e *Entity) BelongsTo(related *Type, name string, foreignKey ...string) *Relation {
	fk := names.Snake(name) + "_id"
	if len(foreignKey) > 0 && foreignKey[0] != "" {
		fk = names.Snake(foreignKey[0])
	}

	r := &Relation{kind: BelongsTo, parent: e, related: related, foreignKey: fk}
	q, err := scopedQuery(related)
	if err != nil {
		r.err = err
		return r
	}
	r.query = q
	r.constrain(related.primaryKey, "=", e.fields[fk])
	return r
}

// MorphTo declares a polymorphic inverse relationship. The concrete related
// type is resolved from this entity's "<name>_type" field; an empty tag
// resolves to an absent to-one result, an unregistered tag is an error.
func (e *Entity) MorphTo(name string) *Relation {
	name = names.Snake(name)

	tag, _ := e.fields[name+"_type"].(string)
	if tag == "" {
		return &Relation{kind: BelongsTo, parent: e, null: true}
	}

	related, ok := Lookup(tag)
	if !ok {
		return &Relation{kind: BelongsTo, parent: e, err: wrapUnknownType(tag)}
	}
	return e.BelongsTo(related, name)
}

// BelongsToMany declares a many-to-many relationship resolved through a
// join collection. Empty strings select the defaults: the join collection
// is both singular type names sorted and joined with "_", and each key is
// "<type>_id".
func (e *Entity) BelongsToMany(related *Type, joinCollection, ownKey, otherKey string) *Relation {
	if joinCollection == "" {
		joinCollection = names.JoinCollection(e.typ.name, related.name)
	}
	if ownKey == "" {
		ownKey = names.ForeignKey(e.typ.name)
	} else {
		ownKey = names.Snake(ownKey)
	}
	if otherKey == "" {
		otherKey = names.ForeignKey(related.name)
	} else {
		otherKey = names.Snake(otherKey)
	}

	r := &Relation{
		kind:     BelongsToMany,
		parent:   e,
		related:  related,
		join:     joinCollection,
		ownKey:   ownKey,
		otherKey: otherKey,
	}

	q, err := scopedQuery(related)
	if err != nil {
		r.err = err
		return r
	}
	r.query = q

	conn, err := connection(related.connection)
	if err != nil {
		r.err = err
		return r
	}
	r.joinQuery = conn.Query().Collection(joinCollection).Where(ownKey, "=", e.Key())
	r.criteria = append(r.criteria, Criterion{Field: ownKey, Op: "=", Value: e.Key()})
	return r
}

// Kind returns the relationship shape.
func (r *Relation) Kind() Kind { return r.kind }

// Related returns the related entity type, or nil for an unresolvable
// polymorphic inverse.
func (r *Relation) Related() *Type { return r.related }

// ForeignKey returns the resolved foreign key field name.
func (r *Relation) ForeignKey() string { return r.foreignKey }

// Query exposes the underlying scoped query.
func (r *Relation) Query() Builder { return r.query }

// Where appends a constraint, passing it through to the underlying query.
func (r *Relation) Where(field, op string, value any) *Relation {
	field = names.Snake(field)
	r.criteria = append(r.criteria, Criterion{Field: field, Op: op, Value: value})
	if r.query != nil {
		r.query.Where(field, op, value)
	}
	return r
}

// WhereIn appends a containment constraint.
func (r *Relation) WhereIn(field string, values []any) *Relation {
	field = names.Snake(field)
	r.criteria = append(r.criteria, Criterion{Field: field, Op: "in", Value: values})
	if r.query != nil {
		r.query.WhereIn(field, values)
	}
	return r
}

// constrain records a base constraint and applies it to the query.
func (r *Relation) constrain(field, op string, value any) {
	r.criteria = append(r.criteria, Criterion{Field: field, Op: op, Value: value})
	r.query.Where(field, op, value)
}

// GetAndResetCriteria returns the accumulated constraint list and clears
// it. Diagnostic only; the underlying query keeps its constraints.
func (r *Relation) GetAndResetCriteria() []Criterion {
	c := r.criteria
	r.criteria = nil
	return c
}

// Results executes the descriptor immediately and hydrates the matching
// documents into persisted entities. There is no laziness below this layer.
func (r *Relation) Results(ctx context.Context) (Result, error) {
	if r.err != nil {
		return Result{}, r.err
	}
	if r.null {
		return SingleResult(nil), nil
	}

	switch r.kind {
	case HasOne, BelongsTo, MorphOne:
		docs, err := r.query.Take(1).Get(ctx)
		if err != nil {
			return Result{}, err
		}
		if len(docs) == 0 {
			return SingleResult(nil), nil
		}
		return SingleResult(r.related.Hydrate(docs[0])), nil

	case BelongsToMany:
		ids, err := r.joinIdentities(ctx)
		if err != nil {
			return Result{}, err
		}
		if len(ids) == 0 {
			return ManyResult(Collection{}), nil
		}
		docs, err := r.query.WhereIn(r.related.primaryKey, ids).Get(ctx)
		if err != nil {
			return Result{}, err
		}
		return ManyResult(r.related.hydrateAll(docs)), nil

	default: // HasMany, MorphMany
		docs, err := r.query.Get(ctx)
		if err != nil {
			return Result{}, err
		}
		return ManyResult(r.related.hydrateAll(docs)), nil
	}
}

// joinIdentities reads the other-side identities from the join collection.
func (r *Relation) joinIdentities(ctx context.Context) ([]any, error) {
	joinDocs, err := r.joinQuery.Get(ctx, r.otherKey)
	if err != nil {
		return nil, err
	}
	ids := make([]any, 0, len(joinDocs))
	for _, doc := range joinDocs {
		if id, ok := doc[r.otherKey]; ok && id != nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// Touch refreshes the related entities' update timestamp directly in the
// store, without re-saving full documents. It is a no-op when the related
// type does not use timestamps.
func (r *Relation) Touch(ctx context.Context) error {
	if r.err != nil {
		return r.err
	}
	if r.null || r.related == nil || !r.related.timestamps {
		return nil
	}

	q := r.query
	if r.kind == BelongsToMany {
		ids, err := r.joinIdentities(ctx)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		q = q.WhereIn(r.related.primaryKey, ids)
	}

	_, err := q.Update(ctx, Document{UpdatedAt: nowStored()})
	return err
}

// scopedQuery builds a fresh query scoped to the type's collection.
func scopedQuery(t *Type) (Builder, error) {
	conn, err := connection(t.connection)
	if err != nil {
		return nil, err
	}
	return conn.Query().Collection(t.collection), nil
}

// hydrateAll hydrates a batch of documents preserving store order.
func (t *Type) hydrateAll(docs []Document) Collection {
	out := make(Collection, 0, len(docs))
	for _, doc := range docs {
		out = append(out, t.Hydrate(doc))
	}
	return out
}
