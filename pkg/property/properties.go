package property

import (
	"fmt"
	"sort"
	"strings"
)

// Properties is a bundle of named properties: the payload of one published
// event or one cached snapshot.
type Properties map[string]Property

// Clone returns a deep copy of ps. A nil bundle clones to nil.
func (ps Properties) Clone() Properties {
	if ps == nil {
		return nil
	}
	out := make(Properties, len(ps))
	for k, p := range ps {
		out[k] = p.Clone()
	}
	return out
}

// Keys returns the keys of ps in sorted order
func (ps Properties) Keys() []string {
	keys := make([]string, 0, len(ps))
	for k := range ps {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Equal reports whether ps and other hold the same keys with equal properties
func (ps Properties) Equal(other Properties) bool {
	if len(ps) != len(other) {
		return false
	}
	for k, p := range ps {
		o, ok := other[k]
		if !ok || !p.Equal(o) {
			return false
		}
	}
	return true
}

func (ps Properties) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range ps.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", k, ps[k])
	}
	b.WriteByte('}')
	return b.String()
}

// Lookup returns a copy of the value stored under key.
// Absent keys fail with ErrKeyNotFound.
func Lookup[T any](ps Properties, key string) (T, error) {
	p, ok := ps[key]
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
	}
	v, err := Value[T](p)
	if err != nil {
		return v, fmt.Errorf("key %q: %w", key, err)
	}
	return v, nil
}
