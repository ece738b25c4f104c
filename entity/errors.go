package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResolver is returned when a store operation is attempted before
	// a connection resolver has been installed via SetResolver.
	ErrNoResolver = errors.New("loam: no connection resolver set")

	// ErrUnknownType is returned when a polymorphic relation names an
	// entity type that has not been registered via Define.
	ErrUnknownType = errors.New("loam: entity type not registered")

	// ErrUnknownRelation is returned when eager loading names a relation
	// the entity type does not declare.
	ErrUnknownRelation = errors.New("loam: undefined relation")
)

func wrapUnknownRelation(typeName, relation string) error {
	return fmt.Errorf("%w: %s.%s", ErrUnknownRelation, typeName, relation)
}

func wrapUnknownType(typeName string) error {
	return fmt.Errorf("%w: %q", ErrUnknownType, typeName)
}
