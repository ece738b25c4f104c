package entity

import (
	"context"
	"sync"
)

// Document is the raw store-facing form of an entity: a mapping from
// normalized field names to values.
type Document = map[string]any

// Builder is the query-construction contract the mapping layer consumes.
// Implementations translate the accumulated scope and constraints into
// store operations. Package dynamo provides the DynamoDB implementation.
type Builder interface {
	// Collection scopes the query to a named collection.
	Collection(name string) Builder

	// Where adds an equality or range constraint. Supported operators are
	// "=", "!=", "<", "<=", ">", ">=".
	Where(field, op string, value any) Builder

	// WhereIn adds a containment constraint.
	WhereIn(field string, values []any) Builder

	// With registers relation names for eager loading. The builder only
	// records the names; hydration is driven by the caller.
	With(names ...string) Builder

	// Take limits the number of documents returned by Get.
	Take(n int) Builder

	// Get executes the query and returns matching documents, optionally
	// projected to the named fields.
	Get(ctx context.Context, fields ...string) ([]Document, error)

	// Find retrieves a single document by identity, or nil when absent.
	Find(ctx context.Context, id any, fields ...string) (Document, error)

	// Save persists a full document with upsert-by-identity semantics.
	// When the document carries no identity the store generates one and
	// returns it; otherwise the returned value is nil.
	Save(ctx context.Context, doc Document) (any, error)

	// Update sets the given fields on all matching documents and returns
	// the number of documents updated.
	Update(ctx context.Context, fields Document) (int, error)

	// Delete removes all matching documents and returns the count.
	Delete(ctx context.Context) (int, error)
}

// Connection is a handle to a configured store from which queries are built.
type Connection interface {
	Query() Builder
}

// Resolver resolves named connections. The empty name resolves the default
// connection.
type Resolver interface {
	Resolve(name string) (Connection, error)
}

// Listener receives an event payload and may return a result. For
// cancellable lifecycle events a false return aborts the operation.
type Listener = func(payload any) any

// Dispatcher is the event contract consumed by the lifecycle controller.
// It is optional: when absent, cancellable checks pass and notifications
// are dropped.
type Dispatcher interface {
	// Listen registers a listener for a named event.
	Listen(event string, fn Listener)

	// Fire runs all listeners for the event, ignoring results.
	Fire(event string, payload any)

	// Until runs listeners in order and returns the first non-nil result,
	// or nil when every listener abstains.
	Until(event string, payload any) any
}

// Process-wide collaborator handles. Installed once at startup and read
// thereafter; callers must not race installation with entity construction.
var (
	handleMu   sync.RWMutex
	resolver   Resolver
	dispatcher Dispatcher
)

// SetResolver installs the process-wide connection resolver.
func SetResolver(r Resolver) {
	handleMu.Lock()
	defer handleMu.Unlock()
	resolver = r
}

// UnsetResolver removes the connection resolver.
func UnsetResolver() {
	handleMu.Lock()
	defer handleMu.Unlock()
	resolver = nil
}

// SetDispatcher installs the process-wide event dispatcher.
func SetDispatcher(d Dispatcher) {
	handleMu.Lock()
	defer handleMu.Unlock()
	dispatcher = d
}

// UnsetDispatcher removes the event dispatcher, degrading lifecycle hooks
// to no-ops.
func UnsetDispatcher() {
	handleMu.Lock()
	defer handleMu.Unlock()
	dispatcher = nil
}

// connection resolves a named connection, failing when no resolver is set.
func connection(name string) (Connection, error) {
	handleMu.RLock()
	r := resolver
	handleMu.RUnlock()

	if r == nil {
		return nil, ErrNoResolver
	}
	return r.Resolve(name)
}

// eventDispatcher returns the installed dispatcher, or nil.
func eventDispatcher() Dispatcher {
	handleMu.RLock()
	defer handleMu.RUnlock()
	return dispatcher
}
