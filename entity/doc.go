// Package entity provides a schemaless object-document mapping layer.
//
// Loam binds typed, schemaless in-memory entities to documents in a store,
// converting between stored and application-facing values, tracking which
// fields changed, enforcing which fields may be bulk-set from untrusted
// input, and declaring and lazily resolving relationships between entities.
//
// # Defining Types
//
// Entity types are defined once, usually at package init, via [Define]:
//
//	var Post = entity.Define(entity.Definition{
//	    Name:     "post",
//	    Fillable: []string{"title", "body"},
//	    Dates:    []string{"published_at"},
//	})
//
// A definition defaults the collection name to the plural of the type name,
// the primary key to "id", and enables timestamps and store-generated keys.
//
// # Attributes
//
// Entities are containers of named values. Field names are always
// normalized to snake_case. Reads resolve, in order: plain fields and
// registered accessors, cached relationships, declared relationships
// (executed and cached on first read). Missing fields read as nil.
//
//	title, _ := post.Get(ctx, "title")
//	post.Set("title", "Hello")
//
// Custom accessors and mutators are explicit registration tables on the
// type, not naming conventions:
//
//	Post.Getter("title", func(e *entity.Entity, raw any) any { ... })
//	Post.Setter("title", func(e *entity.Entity, v any) { ... })
//
// # Relationships
//
// Relationship declarations are registered per type and return unexecuted
// descriptors. Results are cached per entity under the relation name:
//
//	Post.Relation("comments", func(e *entity.Entity) *entity.Relation {
//	    return e.HasMany(Comment)
//	})
//
// # Persistence
//
// Save and Delete go through the lifecycle controller, which maintains
// timestamps and fires cancellable events (creating, updating, deleting)
// before and non-cancellable events (created, updated, deleted) after each
// phase. A cancelled save returns false, not an error.
//
// # Collaborators
//
// The store itself is behind the [Builder], [Connection], and [Resolver]
// interfaces; package dynamo provides the DynamoDB implementation. The
// optional [Dispatcher] powers lifecycle events; package event provides an
// in-process implementation. Both are process-wide handles installed once
// at startup via [SetResolver] and [SetDispatcher].
package entity
