package entity_test

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jacentio/loam/entity"
)

// --- Fake query layer ---

// fakeStore is an in-memory document store with per-operation call
// counters, shared by every builder a fake connection hands out.
type fakeStore struct {
	collections map[string][]entity.Document
	getCalls    int
	saveCalls   int
	updateCalls int
	deleteCalls int
	nextID      int
	lastSaved   entity.Document
}

func newFakeStore() *fakeStore {
	return &fakeStore{collections: make(map[string][]entity.Document)}
}

// install makes this store the process-wide default connection.
func (s *fakeStore) install() {
	entity.SetResolver(&fakeResolver{conn: &fakeConnection{store: s}})
}

func (s *fakeStore) seed(collection string, docs ...entity.Document) {
	s.collections[collection] = append(s.collections[collection], docs...)
}

type fakeResolver struct {
	conn *fakeConnection
}

func (r *fakeResolver) Resolve(name string) (entity.Connection, error) {
	return r.conn, nil
}

type fakeConnection struct {
	store *fakeStore
}

func (c *fakeConnection) Query() entity.Builder {
	return &fakeBuilder{store: c.store}
}

type fakeBuilder struct {
	store      *fakeStore
	collection string
	wheres     []entity.Criterion
	limit      int
}

func (b *fakeBuilder) Collection(name string) entity.Builder {
	b.collection = name
	return b
}

func (b *fakeBuilder) Where(field, op string, value any) entity.Builder {
	b.wheres = append(b.wheres, entity.Criterion{Field: field, Op: op, Value: value})
	return b
}

func (b *fakeBuilder) WhereIn(field string, values []any) entity.Builder {
	b.wheres = append(b.wheres, entity.Criterion{Field: field, Op: "in", Value: values})
	return b
}

func (b *fakeBuilder) With(names ...string) entity.Builder { return b }

func (b *fakeBuilder) Take(n int) entity.Builder {
	b.limit = n
	return b
}

func (b *fakeBuilder) matches(doc entity.Document) bool {
	for _, w := range b.wheres {
		switch w.Op {
		case "=":
			if !reflect.DeepEqual(doc[w.Field], w.Value) {
				return false
			}
		case "in":
			values, _ := w.Value.([]any)
			found := false
			for _, v := range values {
				if reflect.DeepEqual(doc[w.Field], v) {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func (b *fakeBuilder) Get(ctx context.Context, fields ...string) ([]entity.Document, error) {
	b.store.getCalls++
	var out []entity.Document
	for _, doc := range b.store.collections[b.collection] {
		if !b.matches(doc) {
			continue
		}
		out = append(out, projectFake(doc, fields))
		if b.limit > 0 && len(out) >= b.limit {
			break
		}
	}
	return out, nil
}

func (b *fakeBuilder) Find(ctx context.Context, id any, fields ...string) (entity.Document, error) {
	b.store.getCalls++
	for _, doc := range b.store.collections[b.collection] {
		if reflect.DeepEqual(doc["id"], id) {
			return projectFake(doc, fields), nil
		}
	}
	return nil, nil
}

func (b *fakeBuilder) Save(ctx context.Context, doc entity.Document) (any, error) {
	b.store.saveCalls++
	copied := copyDoc(doc)
	b.store.lastSaved = copied

	id, ok := copied["id"]
	if !ok || id == nil || id == "" {
		// Upsert without identity inserts as new, with a generated key.
		b.store.nextID++
		generated := fmt.Sprintf("gen-%d", b.store.nextID)
		copied["id"] = generated
		b.store.collections[b.collection] = append(b.store.collections[b.collection], copied)
		return generated, nil
	}

	docs := b.store.collections[b.collection]
	for i, existing := range docs {
		if reflect.DeepEqual(existing["id"], id) {
			docs[i] = copied
			return nil, nil
		}
	}
	b.store.collections[b.collection] = append(docs, copied)
	return nil, nil
}

func (b *fakeBuilder) Update(ctx context.Context, fields entity.Document) (int, error) {
	b.store.updateCalls++
	count := 0
	for _, doc := range b.store.collections[b.collection] {
		if b.matches(doc) {
			for k, v := range fields {
				doc[k] = v
			}
			count++
		}
	}
	return count, nil
}

func (b *fakeBuilder) Delete(ctx context.Context) (int, error) {
	b.store.deleteCalls++
	docs := b.store.collections[b.collection]
	kept := docs[:0]
	count := 0
	for _, doc := range docs {
		if b.matches(doc) {
			count++
			continue
		}
		kept = append(kept, doc)
	}
	b.store.collections[b.collection] = kept
	return count, nil
}

func projectFake(doc entity.Document, fields []string) entity.Document {
	if len(fields) == 0 {
		return copyDoc(doc)
	}
	out := make(entity.Document, len(fields))
	for _, f := range fields {
		if v, ok := doc[f]; ok {
			out[f] = v
		}
	}
	return out
}

func copyDoc(doc entity.Document) entity.Document {
	out := make(entity.Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}

// --- Test entity types ---

var (
	postType    = entity.Define(entity.Definition{Name: "post", Fillable: []string{"title", "body"}})
	authorType  = entity.Define(entity.Definition{Name: "author"})
	commentType = entity.Define(entity.Definition{Name: "comment"})
	photoType   = entity.Define(entity.Definition{Name: "photo"})
	tagType     = entity.Define(entity.Definition{Name: "tag"})

	// bookType eager-loads its chapters on every load.
	bookType    = entity.Define(entity.Definition{Name: "book", With: []string{"chapters"}})
	chapterType = entity.Define(entity.Definition{Name: "chapter"})

	// articleType exercises accessors, mutators, dates, and hidden fields.
	articleType = entity.Define(entity.Definition{
		Name:   "article",
		Dates:  []string{"published_at"},
		Hidden: []string{"secret"},
	})

	// draftType has no timestamps, so Touch is a no-op.
	draftType = entity.Define(entity.Definition{Name: "draft", WithoutTimestamps: true})

	// ticketType uses caller-assigned identities.
	ticketType = entity.Define(entity.Definition{Name: "ticket", AssignedKey: true})

	// Mass-assignment guard configurations.
	openType   = entity.Define(entity.Definition{Name: "open_thing"})
	allowType  = entity.Define(entity.Definition{Name: "allow_thing", Fillable: []string{"a", "b"}})
	denyType   = entity.Define(entity.Definition{Name: "deny_thing", Guarded: []string{"c"}})
	lockedType = entity.Define(entity.Definition{Name: "locked_thing", Guarded: []string{"*"}})
	exceptType = entity.Define(entity.Definition{Name: "except_thing", Guarded: []string{"*"}, Fillable: []string{"a"}})
)

func init() {
	postType.
		Relation("comments", func(e *entity.Entity) *entity.Relation {
			return e.HasMany(commentType)
		}).
		Relation("author", func(e *entity.Entity) *entity.Relation {
			return e.BelongsTo(authorType, "author")
		}).
		Relation("photo", func(e *entity.Entity) *entity.Relation {
			return e.MorphOne(photoType, "imageable")
		}).
		Relation("tags", func(e *entity.Entity) *entity.Relation {
			return e.BelongsToMany(tagType, "", "", "")
		})

	commentType.Relation("post", func(e *entity.Entity) *entity.Relation {
		return e.BelongsTo(postType, "post")
	})

	authorType.Relation("posts", func(e *entity.Entity) *entity.Relation {
		return e.HasMany(postType)
	})

	photoType.Relation("imageable", func(e *entity.Entity) *entity.Relation {
		return e.MorphTo("imageable")
	})

	bookType.Relation("chapters", func(e *entity.Entity) *entity.Relation {
		return e.HasMany(chapterType)
	})

	articleType.
		Getter("published_at", func(e *entity.Entity, raw any) any {
			return "transformed"
		}).
		Getter("headline", func(e *entity.Entity, raw any) any {
			s, _ := raw.(string)
			return strings.ToUpper(s)
		}).
		Setter("name", func(e *entity.Entity, v any) {
			s, _ := v.(string)
			first, last, found := strings.Cut(s, " ")
			e.SetField("first_name", first)
			if found {
				e.SetField("last_name", last)
			}
		})
}
