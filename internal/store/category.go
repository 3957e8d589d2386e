package store

import (
	"fmt"
	"strings"
)

// Category selects a logical key space. The zero value is Default, the
// un-namespaced space every backend always provides.
type Category uint8

const (
	Default Category = iota
	State
	Headers
	Bodies
	Extra
	Trace
	AccountBloom
	Other

	numCategories
)

// Namespace names are persisted as engine bucket names. Never reassign one
// to a different category once data exists under it.
var namespaces = [numCategories]string{
	Default:      "default",
	State:        "col0",
	Headers:      "col1",
	Bodies:       "col2",
	Extra:        "col3",
	Trace:        "col4",
	AccountBloom: "col5",
	Other:        "col6",
}

// Key prefixes for backends that share a single key space. No prefix is a
// prefix of another, so prefixed keys from different categories never collide.
var prefixes = [numCategories]string{
	Default:      "default-",
	State:        "state-",
	Headers:      "headers-",
	Bodies:       "bodies-",
	Extra:        "extra-",
	Trace:        "trace-",
	AccountBloom: "account-bloom-",
	Other:        "other-",
}

var names = [numCategories]string{
	Default:      "default",
	State:        "state",
	Headers:      "headers",
	Bodies:       "bodies",
	Extra:        "extra",
	Trace:        "trace",
	AccountBloom: "account-bloom",
	Other:        "other",
}

// Categories returns every named category in namespace order, Default excluded.
func Categories() []Category {
	out := make([]Category, 0, numCategories-1)
	for c := State; c < numCategories; c++ {
		out = append(out, c)
	}
	return out
}

// Valid reports whether c is one of the declared categories.
func (c Category) Valid() bool {
	return c < numCategories
}

// Namespace returns the engine-level namespace name for c.
func (c Category) Namespace() string {
	if !c.Valid() {
		return ""
	}
	return namespaces[c]
}

// Prefix returns the literal key prefix used to partition a flat key space.
func (c Category) Prefix() []byte {
	if !c.Valid() {
		return nil
	}
	return []byte(prefixes[c])
}

// Key returns key prefixed for category c. The result never aliases key.
func (c Category) Key(key []byte) []byte {
	p := prefixes[c]
	out := make([]byte, 0, len(p)+len(key))
	out = append(out, p...)
	return append(out, key...)
}

func (c Category) String() string {
	if !c.Valid() {
		return fmt.Sprintf("category(%d)", uint8(c))
	}
	return names[c]
}

// ParseCategory resolves a category by its String form, case-insensitively.
func ParseCategory(s string) (Category, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for c := Default; c < numCategories; c++ {
		if names[c] == s {
			return c, nil
		}
	}
	return Default, fmt.Errorf("unknown category %q", s)
}

// NamespaceIndex returns the ordinal of c among named categories, matching
// the numeric suffix of its namespace. Default has no index.
func (c Category) NamespaceIndex() (int, bool) {
	if c == Default || !c.Valid() {
		return 0, false
	}
	return int(c - State), true
}
