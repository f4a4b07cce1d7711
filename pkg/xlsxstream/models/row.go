package models

import (
	"bytes"
	"encoding/json"
)

// Row is one emitted sheet row. Keys are either header texts or column
// letters depending on the query; a key missing from the row means the
// cell was absent, which is different from a blank string.
type Row struct {
	// Index is the 0-based sheet row index.
	Index  int
	keys   []string
	values map[string]Value
}

// NewRow creates an empty row with room for n cells.
func NewRow(index, n int) Row {
	return Row{Index: index, keys: make([]string, 0, n), values: make(map[string]Value, n)}
}

// Set stores a value, keeping first-insertion key order.
func (r *Row) Set(key string, v Value) {
	if r.values == nil {
		r.values = make(map[string]Value)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = v
}

// Get returns the value stored under key.
func (r Row) Get(key string) (Value, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns keys in column order.
func (r Row) Keys() []string {
	return r.keys
}

// Len returns the number of present cells.
func (r Row) Len() int {
	return len(r.keys)
}

// Map returns the row as a plain map of natural Go values.
func (r Row) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.keys))
	for _, k := range r.keys {
		m[k] = r.values[k].Interface()
	}
	return m
}

// MarshalJSON writes the row as an object with keys in column order.
func (r Row) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(r.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
