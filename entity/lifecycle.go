package entity

import (
	"context"
	"fmt"
)

// Lifecycle event names, namespaced per type as "loam.<event>: <typeName>"
// so listeners can subscribe per entity kind.
const (
	EventCreating = "creating"
	EventCreated  = "created"
	EventUpdating = "updating"
	EventUpdated  = "updated"
	EventDeleting = "deleting"
	EventDeleted  = "deleted"
)

// EventName returns the namespaced dispatcher event name for this type.
func (t *Type) EventName(event string) string {
	return fmt.Sprintf("loam.%s: %s", event, t.name)
}

// On registers a listener for one of this type's lifecycle events. It is a
// no-op when no dispatcher is installed.
func (t *Type) On(event string, fn Listener) {
	if d := eventDispatcher(); d != nil {
		d.Listen(t.EventName(event), fn)
	}
}

// Creating registers a cancellable pre-insert listener. Returning false
// aborts the save.
func (t *Type) Creating(fn Listener) { t.On(EventCreating, fn) }

// Created registers a post-insert listener.
func (t *Type) Created(fn Listener) { t.On(EventCreated, fn) }

// Updating registers a cancellable pre-update listener. Returning false
// aborts the save.
func (t *Type) Updating(fn Listener) { t.On(EventUpdating, fn) }

// Updated registers a post-update listener.
func (t *Type) Updated(fn Listener) { t.On(EventUpdated, fn) }

// Deleting registers a cancellable pre-delete listener. Returning false
// aborts the delete.
func (t *Type) Deleting(fn Listener) { t.On(EventDeleting, fn) }

// Deleted registers a post-delete listener.
func (t *Type) Deleted(fn Listener) { t.On(EventDeleted, fn) }

// Save persists the entity: an update when it already exists, an insert
// otherwise. Timestamps are refreshed first for types that use them. The
// returned bool is false only when a cancellable listener aborted the
// operation; persistence failures come back as errors.
func (e *Entity) Save(ctx context.Context) (bool, error) {
	q, err := e.newQuery()
	if err != nil {
		return false, err
	}

	if e.typ.timestamps {
		e.refreshTimestamps()
	}

	if e.exists {
		return e.performUpdate(ctx, q)
	}
	return e.performInsert(ctx, q)
}

// performUpdate persists an existing entity with upsert-by-identity
// semantics. A document whose identity field is absent is inserted as a
// new record by the store.
func (e *Entity) performUpdate(ctx context.Context, q Builder) (bool, error) {
	if !e.fireEvent(EventUpdating, true) {
		return false, nil
	}

	if _, err := q.Save(ctx, e.fields); err != nil {
		return false, err
	}

	e.fireEvent(EventUpdated, false)
	e.SyncOriginal()
	return true, nil
}

// performInsert persists a new entity, captures a store-generated identity
// when the type uses one, and marks the entity as persisted.
func (e *Entity) performInsert(ctx context.Context, q Builder) (bool, error) {
	if !e.fireEvent(EventCreating, true) {
		return false, nil
	}

	id, err := q.Save(ctx, e.fields)
	if err != nil {
		return false, err
	}
	if e.typ.generatedKey && id != nil {
		e.fields[e.typ.primaryKey] = id
	}
	e.exists = true

	e.fireEvent(EventCreated, false)
	e.SyncOriginal()
	return true, nil
}

// Delete removes the entity's document from the store. Deleting an unsaved
// entity is a no-op, not an error. Returns the store's delete count, or 0
// when a deleting listener cancelled.
func (e *Entity) Delete(ctx context.Context) (int, error) {
	if !e.exists {
		return 0, nil
	}
	if !e.fireEvent(EventDeleting, true) {
		return 0, nil
	}

	q, err := e.newQuery()
	if err != nil {
		return 0, err
	}

	n, err := q.Where(e.typ.primaryKey, "=", e.Key()).Delete(ctx)
	if err != nil {
		return 0, err
	}
	e.exists = false

	e.fireEvent(EventDeleted, false)
	return n, nil
}

// Touch refreshes the timestamp fields and saves. Returns false without
// saving for types that do not use timestamps.
func (e *Entity) Touch(ctx context.Context) (bool, error) {
	if !e.typ.timestamps {
		return false, nil
	}
	e.refreshTimestamps()
	return e.Save(ctx)
}

// refreshTimestamps writes the update timestamp, and for unsaved entities
// the creation timestamp, in the store-native representation. Both get the
// same value on first save.
func (e *Entity) refreshTimestamps() {
	now := nowStored()
	e.fields[UpdatedAt] = now
	if !e.exists {
		e.fields[CreatedAt] = now
	}
}

// fireEvent dispatches a lifecycle event. For halting events the first
// listener returning false cancels; with no dispatcher installed every
// check passes and every notification is dropped.
func (e *Entity) fireEvent(event string, halt bool) bool {
	d := eventDispatcher()
	if d == nil {
		return true
	}

	name := e.typ.EventName(event)
	if !halt {
		d.Fire(name, e)
		return true
	}
	if res, ok := d.Until(name, e).(bool); ok && !res {
		return false
	}
	return true
}

// newQuery builds a query scoped to this entity's collection.
func (e *Entity) newQuery() (Builder, error) {
	return scopedQuery(e.typ)
}
