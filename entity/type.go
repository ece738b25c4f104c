package entity

import (
	"fmt"
	"sync"

	"github.com/jacentio/loam/internal/names"
)

// Getter transforms a raw stored value into its application-facing form.
// It receives the owning entity so multi-field accessors can read siblings.
type Getter func(e *Entity, raw any) any

// Setter writes an application-facing value into the entity's fields. The
// setter owns the write: it may store a transformed value, or split one
// logical value across several fields, via SetField.
type Setter func(e *Entity, value any)

// RelationFunc declares a relationship by returning an unexecuted
// descriptor bound to the given entity.
type RelationFunc func(e *Entity) *Relation

// Definition configures a new entity type. Zero values select the
// defaults documented on each field.
type Definition struct {
	// Name is the singular snake_case type name. Required.
	Name string

	// Collection is the store collection name.
	// Default: plural of Name.
	Collection string

	// PrimaryKey is the identity field name.
	// Default: "id"
	PrimaryKey string

	// Connection names the connection this type persists through.
	// Default: "" (the resolver's default connection).
	Connection string

	// AssignedKey marks the identity as caller-assigned. By default the
	// store generates an identity on first insert and the generated value
	// is written back into the identity field.
	AssignedKey bool

	// WithoutTimestamps disables created_at/updated_at maintenance.
	WithoutTimestamps bool

	// Fillable is the mass-assignment allow-list. When non-empty, only
	// listed fields are fillable and Guarded is ignored.
	Fillable []string

	// Guarded is the mass-assignment deny-list. The single element "*"
	// denies every field not explicitly listed in Fillable.
	Guarded []string

	// Dates lists temporal fields stored in the store-native form
	// (RFC 3339 UTC strings) and read back as time.Time.
	Dates []string

	// Hidden lists fields excluded from the serialized form.
	Hidden []string

	// With lists relation names resolved automatically on every load.
	With []string

	// Boot runs exactly once before the first entity of this type is
	// constructed. Use it to register listeners or accessors.
	Boot func(t *Type)
}

// Type holds the shared metadata for one entity kind. All instances of the
// kind share a single Type. Registration methods (Getter, Setter, Relation)
// are meant for init time and must not race entity construction.
type Type struct {
	name         string
	collection   string
	primaryKey   string
	connection   string
	generatedKey bool
	timestamps   bool

	fillable []string
	guarded  []string
	hidden   []string
	eager    []string
	dates    map[string]bool

	getters   map[string]Getter
	setters   map[string]Setter
	relations map[string]RelationFunc

	boot     func(t *Type)
	bootOnce sync.Once
}

// registry maps type names to registered types, for polymorphic resolution
// and hydration by name.
var registry = struct {
	sync.RWMutex
	types map[string]*Type
}{types: make(map[string]*Type)}

// Define validates a definition, applies defaults, and registers the type.
// It panics on an empty or already-registered name: type definitions are
// configuration errors surfaced immediately, not runtime failures.
func Define(def Definition) *Type {
	if def.Name == "" {
		panic("loam: type definition requires a name")
	}

	name := names.Snake(def.Name)
	t := &Type{
		name:         name,
		collection:   def.Collection,
		primaryKey:   def.PrimaryKey,
		connection:   def.Connection,
		generatedKey: !def.AssignedKey,
		timestamps:   !def.WithoutTimestamps,
		fillable:     normalizeAll(def.Fillable),
		guarded:      normalizeAll(def.Guarded),
		hidden:       normalizeAll(def.Hidden),
		eager:        append([]string(nil), def.With...),
		dates:        make(map[string]bool, len(def.Dates)+2),
		getters:      make(map[string]Getter),
		setters:      make(map[string]Setter),
		relations:    make(map[string]RelationFunc),
		boot:         def.Boot,
	}
	if t.collection == "" {
		t.collection = names.Plural(name)
	}
	if t.primaryKey == "" {
		t.primaryKey = "id"
	}
	for _, d := range def.Dates {
		t.dates[names.Snake(d)] = true
	}
	if t.timestamps {
		t.dates[CreatedAt] = true
		t.dates[UpdatedAt] = true
	}

	registry.Lock()
	defer registry.Unlock()
	if _, exists := registry.types[name]; exists {
		panic(fmt.Sprintf("loam: type %q already defined", name))
	}
	registry.types[name] = t
	return t
}

// Lookup returns the registered type for a name.
func Lookup(name string) (*Type, bool) {
	registry.RLock()
	defer registry.RUnlock()
	t, ok := registry.types[names.Snake(name)]
	return t, ok
}

// Name returns the singular type name.
func (t *Type) Name() string { return t.name }

// Collection returns the store collection name.
func (t *Type) Collection() string { return t.collection }

// PrimaryKey returns the identity field name.
func (t *Type) PrimaryKey() string { return t.primaryKey }

// UsesTimestamps reports whether the type maintains created_at/updated_at.
func (t *Type) UsesTimestamps() bool { return t.timestamps }

// Getter registers a read transform for a field. It wins over both the raw
// value and temporal conversion.
func (t *Type) Getter(field string, fn Getter) *Type {
	t.getters[names.Snake(field)] = fn
	return t
}

// Setter registers a write transform for a field. The transform owns the
// write into the field store.
func (t *Type) Setter(field string, fn Setter) *Type {
	t.setters[names.Snake(field)] = fn
	return t
}

// Relation registers a relationship declaration under the given name.
func (t *Type) Relation(name string, fn RelationFunc) *Type {
	t.relations[names.Snake(name)] = fn
	return t
}

// New constructs an empty, unsaved entity of this type, running the type's
// boot hook first if it has not run yet.
func (t *Type) New() *Entity {
	t.bootOnce.Do(func() {
		if t.boot != nil {
			t.boot(t)
		}
	})
	return &Entity{
		typ:       t,
		fields:    make(Document),
		original:  make(Document),
		relations: make(map[string]Result),
	}
}

// Hydrate constructs an entity from a stored document. The entity is marked
// as persisted and its original snapshot is synced to the document.
func (t *Type) Hydrate(doc Document) *Entity {
	e := t.New()
	for k, v := range doc {
		e.fields[names.Snake(k)] = v
	}
	e.exists = true
	e.SyncOriginal()
	return e
}

func normalizeAll(fields []string) []string {
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, len(fields))
	for i, f := range fields {
		if f == "*" {
			out[i] = f
			continue
		}
		out[i] = names.Snake(f)
	}
	return out
}
