package dynamo

import "errors"

var (
	// ErrUnknownConnection is returned when resolving a connection name
	// that was never registered.
	ErrUnknownConnection = errors.New("loam: unknown connection")

	// ErrUnsupportedOperator is returned when a query uses a comparison
	// operator the backend cannot translate.
	ErrUnsupportedOperator = errors.New("loam: unsupported operator")

	// ErrNoCollection is returned when a query executes before being
	// scoped to a collection.
	ErrNoCollection = errors.New("loam: query has no collection")
)
