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
)

var (
	// ErrNotAnObject is returned when a JSON value that must be a record is not an object.
	ErrNotAnObject = errors.New("expected a JSON object")
)

// JSON reads a root array of objects, a single object, or a stream of objects
// (including newline delimited JSON). Object key order is preserved and numbers are
// kept as json.Number.
type JSON struct{}

var _ Format = JSON{}

// NewJSON returns the json format.
func NewJSON() JSON {
	return JSON{}
}

// ID implements Format.
func (JSON) ID() string { return "json" }

// Extensions implements Format.
func (JSON) Extensions() []string { return []string{"json", "ndjson", "jsonl"} }

// Sniff implements Format.
func (JSON) Sniff(head []byte) bool {
	head = bytes.TrimLeft(head, " \t\r\n")

	return len(head) > 0 && (head[0] == '[' || head[0] == '{')
}

// Parse implements Format.
func (f JSON) Parse(r io.Reader) ([]*record.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var recs []*record.Record

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}

		if err != nil {
			return nil, f.parseError(data, dec, err)
		}

		switch tok {
		case json.Delim('{'):
			rec, err := decodeObject(dec)
			if err != nil {
				return nil, f.parseError(data, dec, err)
			}

			recs = append(recs, rec)
		case json.Delim('['):
			for dec.More() {
				v, err := decodeValue(dec)
				if err != nil {
					return nil, f.parseError(data, dec, err)
				}

				rec, ok := v.(*record.Record)
				if !ok {
					return nil, f.parseError(data, dec, fmt.Errorf("%w in array, got %s", ErrNotAnObject, describe(v)))
				}

				recs = append(recs, rec)
			}

			if _, err := dec.Token(); err != nil {
				return nil, f.parseError(data, dec, err)
			}
		default:
			return nil, f.parseError(data, dec, fmt.Errorf("%w or array of objects at the top level, got %s", ErrNotAnObject, describe(tok)))
		}
	}
}

// Write implements Format. Records are written as a pretty printed array.
func (JSON) Write(w io.Writer, recs []*record.Record) error {
	if recs == nil {
		recs = []*record.Record{}
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	return enc.Encode(recs)
}

func (f JSON) parseError(data []byte, dec *json.Decoder, err error) error {
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}

	offset := dec.InputOffset()

	var se *json.SyntaxError
	if errors.As(err, &se) {
		offset = se.Offset
	}

	return &ParseError{
		Format: f.ID(),
		Line:   lineAt(data, offset),
		Offset: offset,
		Err:    err,
	}
}

// decodeObject reads the members of an object whose opening brace has been consumed.
func decodeObject(dec *json.Decoder) (*record.Record, error) {
	rec := record.New(0)

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected an object key, got %s", describe(tok))
		}

		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}

		rec.Set(key, v)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	return rec, nil
}

func decodeValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch tok {
	case json.Delim('{'):
		return decodeObject(dec)
	case json.Delim('['):
		list := []any{}

		for dec.More() {
			v, err := decodeValue(dec)
			if err != nil {
				return nil, err
			}

			list = append(list, v)
		}

		if _, err := dec.Token(); err != nil {
			return nil, err
		}

		return list, nil
	default:
		return tok, nil
	}
}

func describe(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case json.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case json.Delim:
		return fmt.Sprintf("%q", t.String())
	default:
		return fmt.Sprintf("%T", v)
	}
}
