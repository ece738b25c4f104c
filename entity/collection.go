package entity

// Collection is an ordered, serializable list of entities.
type Collection []*Entity

// First returns the first entity, or nil for an empty collection.
func (c Collection) First() *Entity {
	if len(c) == 0 {
		return nil
	}
	return c[0]
}

// IsEmpty reports whether the collection holds no entities.
func (c Collection) IsEmpty() bool { return len(c) == 0 }

// Keys returns each entity's identity value in order.
func (c Collection) Keys() []any {
	keys := make([]any, len(c))
	for i, e := range c {
		keys[i] = e.Key()
	}
	return keys
}

// Pluck returns the named attribute from each entity in order.
func (c Collection) Pluck(field string) []any {
	out := make([]any, len(c))
	for i, e := range c {
		out[i] = e.Attribute(field)
	}
	return out
}

// Find returns the entity with the given identity value, or nil.
func (c Collection) Find(key any) *Entity {
	for _, e := range c {
		if e.Key() == key {
			return e
		}
	}
	return nil
}

// ToMaps returns the serializable form of each entity in order.
func (c Collection) ToMaps() []Document {
	out := make([]Document, len(c))
	for i, e := range c {
		out[i] = e.ToMap()
	}
	return out
}
