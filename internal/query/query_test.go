// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package query

import (
	"encoding/json"
	"testing"

	"github.com/arraypad/each/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func people() []*record.Record {
	alice := record.New(3)
	alice.Set("name", "alice")
	alice.Set("age", json.Number("34"))
	alice.Set("city", "Paris")

	bob := record.New(3)
	bob.Set("name", "bob")
	bob.Set("age", json.Number("27"))
	bob.Set("city", "Oslo")

	carol := record.New(3)
	carol.Set("name", "carol")
	carol.Set("age", json.Number("41"))
	carol.Set("city", "Paris")

	return []*record.Record{alice, bob, carol}
}

func TestSelect_NoQuery(t *testing.T) {
	recs := people()

	s, err := Compile("   ")
	require.NoError(t, err)

	got, err := s.Select(recs)
	require.NoError(t, err)
	assert.Equal(t, recs, got)

	var nilSel *Selector

	got, err = nilSel.Select(recs)
	require.NoError(t, err)
	assert.Equal(t, recs, got)
}

func TestSelect_FilterReturnsOriginalRecords(t *testing.T) {
	recs := people()

	s, err := Compile("[?city == 'Paris']")
	require.NoError(t, err)

	got, err := s.Select(recs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Same(t, recs[0], got[0])
	assert.Same(t, recs[2], got[1])
	assert.Equal(t, []string{"name", "age", "city"}, got[0].Keys())
}

func TestSelect_NumericComparison(t *testing.T) {
	recs := people()

	s, err := Compile("[?age > `30`]")
	require.NoError(t, err)

	got, err := s.Select(recs)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Same(t, recs[0], got[0])
	assert.Same(t, recs[2], got[1])
}

func TestSelect_ProjectionSortsKeys(t *testing.T) {
	s, err := Compile("[].{who: name, where: city}")
	require.NoError(t, err)

	got, err := s.Select(people())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"where", "who"}, got[0].Keys())

	who, _ := got[1].Get("who")
	assert.Equal(t, "bob", who)
}

func TestSelect_SingleObject(t *testing.T) {
	recs := people()

	s, err := Compile("[1]")
	require.NoError(t, err)

	got, err := s.Select(recs)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Same(t, recs[1], got[0])
}

func TestSelect_NullSelectsNothing(t *testing.T) {
	s, err := Compile("[?name == 'nobody'] | [0]")
	require.NoError(t, err)

	got, err := s.Select(people())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSelect_Errors(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		wantCode error
	}{
		{name: "scalar result", expr: "length(@)", wantCode: ErrNotRecords},
		{name: "array of strings", expr: "[].name", wantCode: ErrNotRecords},
		{name: "invalid function argument", expr: "abs(name)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Compile(tt.expr)
			require.NoError(t, err)

			_, err = s.Select(people())
			require.ErrorIs(t, err, ErrQuery)

			var qe *QueryError
			require.ErrorAs(t, err, &qe)
			assert.Equal(t, tt.expr, qe.Expr)

			if tt.wantCode != nil {
				assert.ErrorIs(t, err, tt.wantCode)
			}
		})
	}
}

func TestCompile_SyntaxError(t *testing.T) {
	_, err := Compile("[?name ==")
	require.ErrorIs(t, err, ErrQuery)
	assert.Contains(t, err.Error(), `query "[?name =="`)
}
