// Package bfrt generates the runtime table schema consumed by the
// control plane. The generator walks a loaded P4Info model and produces
// a JSON document describing every table's key, data and dependencies.
package bfrt

import (
	"bytes"
	"encoding/json"
)

// Object is a JSON object that marshals its keys in insertion order.
// The schema output must be byte-identical for a fixed input, so map
// iteration order is never acceptable here.
type Object struct {
	keys []string
	vals map[string]any
}

// NewObject returns an empty ordered object.
func NewObject() *Object {
	return &Object{vals: make(map[string]any)}
}

// Set stores a value under key. A key set twice keeps its original
// position and gets the new value.
func (o *Object) Set(key string, v any) *Object {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
	return o
}

// Get returns the value stored under key.
func (o *Object) Get(key string) (any, bool) {
	v, ok := o.vals[key]
	return v, ok
}

// GetString returns the string stored under key, or "" when the key is
// absent or not a string.
func (o *Object) GetString(key string) string {
	s, _ := o.vals[key].(string)
	return s
}

// Len returns the number of keys.
func (o *Object) Len() int { return len(o.keys) }

// MarshalJSON writes the object with keys in insertion order.
func (o *Object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(o.vals[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Array is a JSON array companion to Object.
type Array struct {
	items []any
}

// NewArray returns an empty array.
func NewArray() *Array { return &Array{} }

// Append adds values at the end.
func (a *Array) Append(vs ...any) *Array {
	a.items = append(a.items, vs...)
	return a
}

// Len returns the number of items.
func (a *Array) Len() int { return len(a.items) }

// Items returns the backing slice.
func (a *Array) Items() []any { return a.items }

// MarshalJSON writes the array items in order.
func (a *Array) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range a.items {
		if i > 0 {
			buf.WriteByte(',')
		}
		vb, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
