// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package template

import (
	"reflect"

	"github.com/arraypad/each/internal/record"
)

// Context is the data a template is rendered against: one record.
// The plain form used by JMESPath expressions is built on first use.
type Context struct {
	rec     *record.Record
	plain   map[string]any
	origins map[uintptr]*record.Record
}

// NewContext creates the context for rec.
func NewContext(rec *record.Record) *Context {
	return &Context{rec: rec}
}

func (c *Context) resolve(r *ref) (any, error) {
	if r.path != nil {
		// a field literally named a.b wins over the nested path
		if v, ok := c.rec.Get(r.expr); ok && len(r.path) > 1 {
			return v, nil
		}

		return c.walk(r.path), nil
	}

	if c.plain == nil {
		c.origins = make(map[uintptr]*record.Record)
		c.plain = c.toPlain(c.rec)
	}

	v, err := r.jp.Search(c.plain)
	if err != nil {
		return nil, err
	}

	return c.restore(v), nil
}

// walk follows a dotted path through nested records, keeping the original values.
func (c *Context) walk(path []string) any {
	cur := c.rec

	for i, key := range path {
		v, ok := cur.Get(key)
		if !ok {
			return nil
		}

		if i == len(path)-1 {
			return v
		}

		next, ok := v.(*record.Record)
		if !ok {
			return nil
		}

		cur = next
	}

	return nil
}

// toPlain converts rec like record.Plain, remembering which map came from which record.
func (c *Context) toPlain(rec *record.Record) map[string]any {
	m := make(map[string]any, rec.Len())
	for k, v := range rec.All() {
		m[k] = c.toPlainValue(v)
	}

	c.origins[reflect.ValueOf(m).Pointer()] = rec

	return m
}

func (c *Context) toPlainValue(v any) any {
	switch t := v.(type) {
	case *record.Record:
		return c.toPlain(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = c.toPlainValue(e)
		}

		return out
	default:
		return record.PlainValue(v)
	}
}

// restore maps objects in a search result back to records so their field order survives.
func (c *Context) restore(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if rec, ok := c.origins[reflect.ValueOf(t).Pointer()]; ok {
			return rec
		}

		return record.FromPlain(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = c.restore(e)
		}

		return out
	default:
		return v
	}
}
