// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package record

import (
	"iter"
	"slices"
)

// Record is an ordered mapping of field names to values.
// Values are strings, numbers (json.Number, float64 or integer types), booleans, nil,
// nested *Record values or []any slices of those.
type Record struct {
	keys   []string
	values map[string]any
}

// Row is a record together with its position in the selected sequence.
// The index travels with the row through building, scheduling and reporting.
type Row struct {
	Index  int
	Record *Record
}

// New creates an empty record with room for n fields.
func New(n int) *Record {
	return &Record{
		keys:   make([]string, 0, n),
		values: make(map[string]any, n),
	}
}

// Set stores a value for key. A key that is already present keeps its position.
// Set is intended for parsers building a record; consumers treat records as immutable.
func (r *Record) Set(key string, value any) {
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}

	r.values[key] = value
}

// Get returns the value for key and whether the key is present.
func (r *Record) Get(key string) (any, bool) {
	if r == nil {
		return nil, false
	}

	v, ok := r.values[key]

	return v, ok
}

// Keys returns a copy of the field names in order.
func (r *Record) Keys() []string {
	if r == nil {
		return nil
	}

	return slices.Clone(r.keys)
}

// Len returns the number of fields.
func (r *Record) Len() int {
	if r == nil {
		return 0
	}

	return len(r.keys)
}

// All iterates over the fields in order.
func (r *Record) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if r == nil {
			return
		}

		for _, k := range r.keys {
			if !yield(k, r.values[k]) {
				return
			}
		}
	}
}

// Rows wraps records into rows indexed by their position.
func Rows(recs []*Record) []Row {
	rows := make([]Row, len(recs))
	for i, rec := range recs {
		rows[i] = Row{Index: i, Record: rec}
	}

	return rows
}
