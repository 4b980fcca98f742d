// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package formats

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/arraypad/each/internal/record"
	"github.com/goccy/go-yaml"
)

// YAML reads a sequence of mappings, a single mapping, or a stream of documents
// containing either. Mapping order is preserved.
type YAML struct{}

var _ Format = YAML{}

// NewYAML returns the yaml format.
func NewYAML() YAML {
	return YAML{}
}

// ID implements Format.
func (YAML) ID() string { return "yaml" }

// Extensions implements Format.
func (YAML) Extensions() []string { return []string{"yaml", "yml"} }

// Sniff implements Format. Only explicit document markers and block sequences are
// recognised; anything else is left to csv.
func (YAML) Sniff(head []byte) bool {
	head = bytes.TrimLeft(head, " \t\r\n")

	return bytes.HasPrefix(head, []byte("---")) || bytes.HasPrefix(head, []byte("- "))
}

// Parse implements Format.
func (f YAML) Parse(r io.Reader) ([]*record.Record, error) {
	dec := yaml.NewDecoder(r, yaml.UseOrderedMap())

	var recs []*record.Record

	for {
		var doc any

		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return recs, nil
		}

		if err != nil {
			return nil, f.parseError(err)
		}

		switch t := doc.(type) {
		case nil:
		case yaml.MapSlice:
			recs = append(recs, fromMapSlice(t))
		case []any:
			for i, item := range t {
				ms, ok := item.(yaml.MapSlice)
				if !ok {
					return nil, &ParseError{Format: f.ID(), Err: fmt.Errorf("sequence item %d: expected a mapping, got %T", i, item)}
				}

				recs = append(recs, fromMapSlice(ms))
			}
		default:
			return nil, &ParseError{Format: f.ID(), Err: fmt.Errorf("expected a mapping or sequence of mappings, got %T", doc)}
		}
	}
}

func (f YAML) parseError(err error) error {
	var ye yaml.Error
	if errors.As(err, &ye) {
		pe := &ParseError{Format: f.ID(), Err: errors.New(ye.GetMessage())}
		if tk := ye.GetToken(); tk != nil && tk.Position != nil {
			pe.Line = tk.Position.Line
			pe.Offset = int64(tk.Position.Offset)
		}

		return pe
	}

	return &ParseError{Format: f.ID(), Err: err}
}

// Write implements Format. Records are written as a sequence of mappings.
func (YAML) Write(w io.Writer, recs []*record.Record) error {
	seq := make([]any, len(recs))
	for i, rec := range recs {
		seq[i] = toMapSlice(rec)
	}

	b, err := yaml.MarshalWithOptions(seq, yaml.Indent(2))
	if err != nil {
		return err
	}

	_, err = w.Write(b)

	return err
}

func fromMapSlice(ms yaml.MapSlice) *record.Record {
	rec := record.New(len(ms))
	for _, item := range ms {
		rec.Set(fmt.Sprint(item.Key), fromYAMLValue(item.Value))
	}

	return rec
}

func fromYAMLValue(v any) any {
	switch t := v.(type) {
	case yaml.MapSlice:
		return fromMapSlice(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = fromYAMLValue(e)
		}

		return out
	default:
		return v
	}
}

func toMapSlice(rec *record.Record) yaml.MapSlice {
	ms := make(yaml.MapSlice, 0, rec.Len())
	for k, v := range rec.All() {
		ms = append(ms, yaml.MapItem{Key: k, Value: toYAMLValue(v)})
	}

	return ms
}

func toYAMLValue(v any) any {
	switch t := v.(type) {
	case *record.Record:
		return toMapSlice(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = toYAMLValue(e)
		}

		return out
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}

		if fl, err := t.Float64(); err == nil {
			return fl
		}

		return t.String()
	default:
		return v
	}
}
