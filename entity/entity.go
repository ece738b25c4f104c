package entity

import (
	"context"
	"reflect"
	"time"

	"github.com/jacentio/loam/internal/names"
)

// Store-native temporal representation: RFC 3339 in UTC.
const timeFormat = time.RFC3339

// Timestamp field names maintained by the lifecycle controller.
const (
	CreatedAt = "created_at"
	UpdatedAt = "updated_at"
)

// Entity is one in-memory document: a set of named field values plus the
// metadata needed to resolve relationships and persist changes. Entities
// are not safe for concurrent mutation; concurrent use of distinct
// instances is fine.
type Entity struct {
	typ       *Type
	fields    Document
	original  Document
	relations map[string]Result
	exists    bool
}

// Type returns the entity's shared type metadata.
func (e *Entity) Type() *Type { return e.typ }

// Exists reports whether the entity is known to be persisted.
func (e *Entity) Exists() bool { return e.exists }

// Key returns the current identity value, re-read from the identity field.
// It is nil before the first successful insert of a generated-key entity.
func (e *Entity) Key() any {
	return e.fields[e.typ.primaryKey]
}

// Get resolves a field by name. Resolution order: plain fields and
// registered getters, then cached relationship results, then declared
// relationships (executed via the store and cached). Reading an undeclared
// field returns nil without error; only relationship execution can fail.
func (e *Entity) Get(ctx context.Context, name string) (any, error) {
	name = names.Snake(name)

	if _, ok := e.fields[name]; ok || e.typ.getters[name] != nil {
		return e.attributeValue(name), nil
	}

	if res, ok := e.relations[name]; ok {
		return res.Value(), nil
	}

	if fn, ok := e.typ.relations[name]; ok {
		res, err := fn(e).Results(ctx)
		if err != nil {
			return nil, err
		}
		e.relations[name] = res
		return res.Value(), nil
	}

	return nil, nil
}

// Attribute resolves a field through the plain attribute rule only: raw
// value, getter transform, or temporal conversion. It never touches the
// store and never resolves relationships.
func (e *Entity) Attribute(name string) any {
	return e.attributeValue(names.Snake(name))
}

// attributeValue applies the plain attribute rule to a normalized name.
// Getter transforms win over temporal conversion.
func (e *Entity) attributeValue(name string) any {
	raw, ok := e.fields[name]
	if g, has := e.typ.getters[name]; has {
		return g(e, raw)
	}
	if ok && raw != nil && e.typ.dates[name] {
		return toNativeTime(raw)
	}
	return raw
}

// Set writes a field by name. A registered setter owns the write entirely;
// otherwise temporal fields are converted to the store-native form and the
// value is stored under the normalized name. Writing never invalidates
// cached relationships.
func (e *Entity) Set(name string, value any) {
	name = names.Snake(name)

	if s, ok := e.typ.setters[name]; ok {
		s(e, value)
		return
	}
	if value != nil && e.typ.dates[name] {
		value = toStoredTime(value)
	}
	e.fields[name] = value
}

// SetField writes a raw value under the normalized name, bypassing setters
// and temporal conversion. It is the write primitive for Setter transforms.
func (e *Entity) SetField(name string, value any) {
	e.fields[names.Snake(name)] = value
}

// Field returns the raw stored value for a normalized name.
func (e *Entity) Field(name string) (any, bool) {
	v, ok := e.fields[names.Snake(name)]
	return v, ok
}

// Fields returns a copy of the raw field store.
func (e *Entity) Fields() Document {
	out := make(Document, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// SyncOriginal snapshots the current fields as the dirty-tracking baseline.
func (e *Entity) SyncOriginal() {
	e.original = make(Document, len(e.fields))
	for k, v := range e.fields {
		e.original[k] = v
	}
}

// Original returns the snapshot value for one field.
func (e *Entity) Original(name string) any {
	return e.original[names.Snake(name)]
}

// Originals returns a copy of the full snapshot.
func (e *Entity) Originals() Document {
	out := make(Document, len(e.original))
	for k, v := range e.original {
		out[k] = v
	}
	return out
}

// Dirty returns the fields whose raw values differ from the snapshot.
func (e *Entity) Dirty() Document {
	dirty := make(Document)
	for k, v := range e.fields {
		orig, ok := e.original[k]
		if !ok || !reflect.DeepEqual(v, orig) {
			dirty[k] = v
		}
	}
	return dirty
}

// IsDirty reports whether any of the named fields changed since the last
// sync. With no arguments it reports whether anything changed.
func (e *Entity) IsDirty(fields ...string) bool {
	dirty := e.Dirty()
	if len(fields) == 0 {
		return len(dirty) > 0
	}
	for _, f := range fields {
		if _, ok := dirty[names.Snake(f)]; ok {
			return true
		}
	}
	return false
}

// SetRelation primes the relationship cache, replacing any cached result.
func (e *Entity) SetRelation(name string, res Result) {
	e.relations[names.Snake(name)] = res
}

// RelationLoaded reports whether a relationship result is cached.
func (e *Entity) RelationLoaded(name string) bool {
	_, ok := e.relations[names.Snake(name)]
	return ok
}

// Load resolves the named relationships through the store and caches the
// results, replacing already-cached entries.
func (e *Entity) Load(ctx context.Context, relationNames ...string) error {
	for _, name := range relationNames {
		name = names.Snake(name)
		fn, ok := e.typ.relations[name]
		if !ok {
			return wrapUnknownRelation(e.typ.name, name)
		}
		res, err := fn(e).Results(ctx)
		if err != nil {
			return err
		}
		e.relations[name] = res
	}
	return nil
}

// toNativeTime converts a store-native temporal value to time.Time. Values
// already in application form, or unparseable ones, pass through unchanged.
func toNativeTime(raw any) any {
	switch v := raw.(type) {
	case time.Time:
		return v
	case string:
		ts, err := time.Parse(timeFormat, v)
		if err != nil {
			return raw
		}
		return ts
	default:
		return raw
	}
}

// toStoredTime converts an application temporal value to the store-native
// representation. Strings are assumed to already be store-native.
func toStoredTime(value any) any {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(timeFormat)
	default:
		return value
	}
}

// nowStored returns the current time in the store-native representation.
func nowStored() string {
	return time.Now().UTC().Format(timeFormat)
}
