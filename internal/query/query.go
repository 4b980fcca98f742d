// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package query

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/arraypad/each/internal/record"
	"github.com/jmespath/go-jmespath"
)

var (
	// ErrQuery is the sentinel matched by every QueryError.
	ErrQuery = errors.New("query error")
	// ErrNotRecords is returned when a query produces something other than objects.
	ErrNotRecords = errors.New("query result is not an object or an array of objects")
)

// QueryError describes a query that could not be compiled or evaluated.
type QueryError struct {
	Expr string
	Err  error
}

// Error implements the error interface.
func (e *QueryError) Error() string {
	return fmt.Sprintf("query %q: %v", e.Expr, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// Is makes every QueryError match ErrQuery.
func (e *QueryError) Is(target error) bool {
	return target == ErrQuery
}

// Selector is a compiled query. The zero value and a nil Selector select every record.
type Selector struct {
	expr string
	jp   *jmespath.JMESPath
}

// Compile parses expr. An empty expression selects every record unchanged.
func Compile(expr string) (*Selector, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return &Selector{}, nil
	}

	jp, err := jmespath.Compile(expr)
	if err != nil {
		return nil, &QueryError{Expr: expr, Err: err}
	}

	return &Selector{expr: expr, jp: jp}, nil
}

// String returns the expression.
func (s *Selector) String() string {
	if s == nil {
		return ""
	}

	return s.expr
}

// Select evaluates the query against the array of records.
// Objects in the result that are input records are returned as those records, keeping their
// field order. Other objects become new records with their keys sorted.
// A null result selects nothing.
func (s *Selector) Select(recs []*record.Record) ([]*record.Record, error) {
	if s == nil || s.jp == nil {
		return recs, nil
	}

	data := make([]any, len(recs))
	origin := make(map[uintptr]*record.Record, len(recs))

	for i, rec := range recs {
		m := rec.Plain()
		data[i] = m
		origin[reflect.ValueOf(m).Pointer()] = rec
	}

	res, err := s.jp.Search(data)
	if err != nil {
		return nil, &QueryError{Expr: s.expr, Err: err}
	}

	switch t := res.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return []*record.Record{toRecord(t, origin)}, nil
	case []any:
		out := make([]*record.Record, 0, len(t))

		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, &QueryError{Expr: s.expr, Err: fmt.Errorf("%w: element %d is %T", ErrNotRecords, i, item)}
			}

			out = append(out, toRecord(m, origin))
		}

		return out, nil
	default:
		return nil, &QueryError{Expr: s.expr, Err: fmt.Errorf("%w: got %T", ErrNotRecords, res)}
	}
}

func toRecord(m map[string]any, origin map[uintptr]*record.Record) *record.Record {
	if rec, ok := origin[reflect.ValueOf(m).Pointer()]; ok {
		return rec
	}

	return record.FromPlain(m)
}
