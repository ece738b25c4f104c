package entity

import "encoding/json"

// ToMap returns the serializable form of the entity: every non-hidden
// field in its application-facing form, plus every loaded relationship as
// a nested map, list of maps, or explicit nil for an absent to-one result.
// Unloaded relationships are omitted entirely; serialization never
// triggers resolution.
func (e *Entity) ToMap() Document {
	out := make(Document, len(e.fields)+len(e.relations))

	for name := range e.fields {
		if e.typ.isHidden(name) {
			continue
		}
		out[name] = e.attributeValue(name)
	}

	for name, res := range e.relations {
		if e.typ.isHidden(name) {
			continue
		}
		switch {
		case res.IsMany():
			out[name] = res.Collection().ToMaps()
		case res.Entity() != nil:
			out[name] = res.Entity().ToMap()
		default:
			out[name] = nil
		}
	}

	return out
}

// MarshalJSON serializes the entity's map form.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.ToMap())
}

func (t *Type) isHidden(field string) bool {
	for _, h := range t.hidden {
		if h == field {
			return true
		}
	}
	return false
}
