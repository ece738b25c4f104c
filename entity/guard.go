package entity

import (
	"sort"

	"github.com/jacentio/loam/internal/names"
)

// guardAll is the deny-list value meaning every field is guarded.
const guardAll = "*"

// IsFillable decides whether one field may be mass-assigned. Explicitly
// allow-listed fields always pass. Otherwise the deny-list (including the
// "*" deny-all marker) rejects, and a non-empty allow-list rejects anything
// it does not name. With neither list configured, every field is fillable.
func (t *Type) IsFillable(field string) bool {
	field = names.Snake(field)

	for _, f := range t.fillable {
		if f == field {
			return true
		}
	}
	for _, g := range t.guarded {
		if g == guardAll || g == field {
			return false
		}
	}
	return len(t.fillable) == 0
}

// TotallyGuarded reports whether the deny-all marker is configured.
func (t *Type) TotallyGuarded() bool {
	for _, g := range t.guarded {
		if g == guardAll {
			return true
		}
	}
	return false
}

// Fill mass-assigns the given values, silently dropping fields the guard
// rejects. Callers needing a hard failure must validate with IsFillable
// first. Keys are applied in sorted order so assignment through setters
// that write sibling fields is deterministic.
func (e *Entity) Fill(attrs Document) *Entity {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if e.typ.IsFillable(k) {
			e.Set(k, attrs[k])
		}
	}
	return e
}
