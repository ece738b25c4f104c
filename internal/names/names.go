// Package names provides field and collection name derivation for entity types.
package names

import (
	"sort"
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// Snake normalizes a name to its store-facing form: lower snake_case with
// word boundaries at case changes, spaces, and dashes.
func Snake(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 4)

	prevLower := false
	for _, r := range s {
		switch {
		case r == ' ' || r == '-' || r == '.':
			if prevLower {
				b.WriteByte('_')
			}
			prevLower = false
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		default:
			b.WriteRune(r)
			prevLower = r != '_'
		}
	}
	return b.String()
}

// Plural returns the plural form of a word, used to derive default
// collection names from type names.
func Plural(s string) string {
	return inflection.Plural(s)
}

// ForeignKey derives the default foreign key name for a type name
// (e.g. "post" -> "post_id").
func ForeignKey(typeName string) string {
	return Snake(typeName) + "_id"
}

// JoinCollection derives the default join collection name for a
// many-to-many relationship: both singular type names, sorted, joined
// with an underscore (e.g. "tag", "post" -> "post_tag").
func JoinCollection(a, b string) string {
	pair := []string{Snake(a), Snake(b)}
	sort.Strings(pair)
	return pair[0] + "_" + pair[1]
}
