// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package record

import (
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
)

// Plain returns the record as a map[string]any with nested records converted as well.
// Numbers are converted to float64 so that query expressions can compare them.
func (r *Record) Plain() map[string]any {
	if r == nil {
		return nil
	}

	m := make(map[string]any, len(r.keys))
	for _, k := range r.keys {
		m[k] = PlainValue(r.values[k])
	}

	return m
}

// PlainValue converts a record value into its plain form, see Record.Plain.
func PlainValue(v any) any {
	switch t := v.(type) {
	case *Record:
		return t.Plain()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = PlainValue(e)
		}

		return out
	case json.Number:
		if f, err := t.Float64(); err == nil {
			return f
		}

		return string(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	default:
		return v
	}
}

// FromPlain builds a record from a plain map. The order of keys in a Go map is not
// defined, so fields are sorted by name.
func FromPlain(m map[string]any) *Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	rec := New(len(keys))
	for _, k := range keys {
		rec.Set(k, fromPlainValue(m[k]))
	}

	return rec
}

func fromPlainValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return FromPlain(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromPlainValue(e)
		}

		return out
	default:
		return v
	}
}

// Scalar formats a scalar value as text. Strings are returned verbatim, numbers in
// their shortest decimal form and booleans as true or false. Records and slices are
// encoded as compact JSON. ok is false for nil.
func Scalar(v any) (s string, ok bool, err error) {
	switch t := v.(type) {
	case nil:
		return "", false, nil
	case string:
		return t, true, nil
	case json.Number:
		return t.String(), true, nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true, nil
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32), true, nil
	case int:
		return strconv.Itoa(t), true, nil
	case int64:
		return strconv.FormatInt(t, 10), true, nil
	case uint64:
		return strconv.FormatUint(t, 10), true, nil
	case bool:
		return strconv.FormatBool(t), true, nil
	case *Record, []any, map[string]any:
		b, err := MarshalValue(t)
		if err != nil {
			return "", false, err
		}

		return string(b), true, nil
	default:
		return fmt.Sprint(t), true, nil
	}
}
