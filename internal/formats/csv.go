// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package formats

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/arraypad/each/internal/record"
)

var (
	// ErrEmptyHeader is returned when the input has no header row.
	ErrEmptyHeader = errors.New("header row is empty")
	// ErrDuplicateHeader is returned when two header fields have the same name.
	ErrDuplicateHeader = errors.New("duplicate header field")
	// ErrFieldCount is returned when a data row does not have as many fields as the header.
	ErrFieldCount = errors.New("row has a different number of fields than the header")
	// ErrInvalidDelimiter is returned for a delimiter that encoding/csv cannot use.
	ErrInvalidDelimiter = errors.New("invalid csv delimiter")
)

const utf8BOM = "\uFEFF"

// CSVOptions is the csv dialect. The zero value is comma separated, without comments.
type CSVOptions struct {
	Delimiter        rune
	Comment          rune
	LazyQuotes       bool
	TrimLeadingSpace bool
}

// ParseDelimiter converts a command line delimiter into a rune.
// The literal two character sequence \t is accepted for a tab.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}

	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || r == utf8.RuneError || r == '\r' || r == '\n' || r == '"' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDelimiter, s)
	}

	return r, nil
}

// CSV reads a header row followed by data rows. Every value is a string.
type CSV struct {
	opts CSVOptions
}

var _ Format = CSV{}

// NewCSV returns the csv format with the given dialect.
func NewCSV(opts CSVOptions) CSV {
	if opts.Delimiter == 0 {
		opts.Delimiter = ','
	}

	return CSV{opts: opts}
}

// ID implements Format.
func (CSV) ID() string { return "csv" }

// Extensions implements Format.
func (CSV) Extensions() []string { return []string{"csv", "tsv"} }

// Sniff implements Format. Anything that is not empty could be a single column csv file.
func (CSV) Sniff(head []byte) bool {
	return len(bytes.TrimSpace(head)) > 0
}

func (c CSV) reader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = c.opts.Delimiter
	cr.Comment = c.opts.Comment
	cr.LazyQuotes = c.opts.LazyQuotes
	cr.TrimLeadingSpace = c.opts.TrimLeadingSpace
	cr.FieldsPerRecord = 0

	return cr
}

// Parse implements Format.
func (c CSV) Parse(r io.Reader) ([]*record.Record, error) {
	cr := c.reader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Format: c.ID(), Line: 1, Err: ErrEmptyHeader}
	}

	if err != nil {
		return nil, c.parseError(err)
	}

	seen := make(map[string]struct{}, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, utf8BOM)
		}

		h = strings.TrimSpace(h)
		if _, ok := seen[h]; ok {
			return nil, &ParseError{Format: c.ID(), Line: 1, Err: fmt.Errorf("%w: %q", ErrDuplicateHeader, h)}
		}

		seen[h] = struct{}{}
		header[i] = h
	}

	if len(header) == 1 && header[0] == "" {
		return nil, &ParseError{Format: c.ID(), Line: 1, Err: ErrEmptyHeader}
	}

	var recs []*record.Record

	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}

		var ce *csv.ParseError
		if errors.As(err, &ce) && errors.Is(ce.Err, csv.ErrFieldCount) {
			return nil, &ParseError{
				Format: c.ID(),
				Line:   ce.StartLine,
				Err:    fmt.Errorf("%w: row %d has %d fields, header has %d", ErrFieldCount, row, len(fields), len(header)),
			}
		}

		if err != nil {
			return nil, c.parseError(err)
		}

		rec := record.New(len(header))
		for i, h := range header {
			rec.Set(h, fields[i])
		}

		recs = append(recs, rec)
	}
}

func (c CSV) parseError(err error) error {
	var ce *csv.ParseError
	if errors.As(err, &ce) {
		return &ParseError{Format: c.ID(), Line: ce.Line, Err: ce.Err}
	}

	return &ParseError{Format: c.ID(), Err: err}
}

// Write implements Format. The header is every key seen, in first-seen order.
// Keys missing from a record are written as empty fields and non-string values as compact JSON.
func (c CSV) Write(w io.Writer, recs []*record.Record) error {
	if len(recs) == 0 {
		return nil
	}

	var header []string

	seen := make(map[string]struct{})
	for _, rec := range recs {
		for k := range rec.All() {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				header = append(header, k)
			}
		}
	}

	cw := csv.NewWriter(w)
	cw.Comma = c.opts.Delimiter

	if err := cw.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, rec := range recs {
		for i, k := range header {
			v, ok := rec.Get(k)
			if !ok {
				row[i] = ""
				continue
			}

			if s, isString := v.(string); isString {
				row[i] = s
				continue
			}

			b, err := record.MarshalValue(v)
			if err != nil {
				return err
			}

			row[i] = string(b)
		}

		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()

	return cw.Error()
}
