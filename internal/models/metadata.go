package models

import (
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Metadata is an insertion-ordered string map attached to a claim (target
// port, HTTP status, trace id, ...). Insertion order is preserved so that
// merged claims keep a stable key order regardless of map iteration.
type Metadata struct {
	m *orderedmap.OrderedMap[string, string]
}

// NewMetadata creates an empty metadata map.
func NewMetadata() Metadata {
	return Metadata{m: orderedmap.New[string, string]()}
}

// MetadataFromPairs creates metadata from alternating key/value pairs.
// Panics on an odd number of arguments; intended for literals in code.
func MetadataFromPairs(pairs ...string) Metadata {
	if len(pairs)%2 != 0 {
		panic("models: MetadataFromPairs requires an even number of arguments")
	}
	md := NewMetadata()
	for i := 0; i < len(pairs); i += 2 {
		md.Set(pairs[i], pairs[i+1])
	}
	return md
}

// Set stores a key/value pair, preserving the key's original position if
// it already exists.
func (md Metadata) Set(key, value string) {
	if md.m == nil {
		return
	}
	md.m.Set(key, value)
}

// Get returns the value for a key and whether it was present.
func (md Metadata) Get(key string) (string, bool) {
	if md.m == nil {
		return "", false
	}
	return md.m.Get(key)
}

// Len returns the number of entries.
func (md Metadata) Len() int {
	if md.m == nil {
		return 0
	}
	return md.m.Len()
}

// Keys returns all keys in insertion order.
func (md Metadata) Keys() []string {
	if md.m == nil {
		return nil
	}
	keys := make([]string, 0, md.m.Len())
	for pair := md.m.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	return keys
}

// Range calls fn for each key/value pair in insertion order. Iteration
// stops if fn returns false.
func (md Metadata) Range(fn func(key, value string) bool) {
	if md.m == nil {
		return
	}
	for pair := md.m.Oldest(); pair != nil; pair = pair.Next() {
		if !fn(pair.Key, pair.Value) {
			return
		}
	}
}

// Clone returns an independent copy with the same insertion order.
func (md Metadata) Clone() Metadata {
	out := NewMetadata()
	md.Range(func(k, v string) bool {
		out.Set(k, v)
		return true
	})
	return out
}

// ToMap flattens the metadata into a plain map, losing ordering. Useful
// for serialization boundaries that take map[string]string.
func (md Metadata) ToMap() map[string]string {
	out := make(map[string]string, md.Len())
	md.Range(func(k, v string) bool {
		out[k] = v
		return true
	})
	return out
}
