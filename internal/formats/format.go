// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package formats

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/arraypad/each/internal/record"
)

var (
	// ErrUnknownFormat is returned when a format name is not registered or a format cannot be guessed.
	ErrUnknownFormat = errors.New("unknown format")
	// ErrParse is the sentinel matched by every ParseError.
	ErrParse = errors.New("parse error")
)

// Format is a data format that records can be read from and written to.
type Format interface {
	// ID is the name used on the command line, e.g. json.
	ID() string
	// Extensions lists the lower-case file extensions, without the dot, that imply this format.
	Extensions() []string
	// Sniff reports whether the first bytes of an input look like this format.
	Sniff(head []byte) bool
	// Parse reads every record from r.
	Parse(r io.Reader) ([]*record.Record, error)
	// Write serialises recs to w.
	Write(w io.Writer, recs []*record.Record) error
}

// ParseError describes malformed input. Line and Offset are zero when unknown.
type ParseError struct {
	Format string
	Line   int
	Offset int64
	Err    error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	switch {
	case e.Line > 0:
		return fmt.Sprintf("%s: line %d: %v", e.Format, e.Line, e.Err)
	case e.Offset > 0:
		return fmt.Sprintf("%s: offset %d: %v", e.Format, e.Offset, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Format, e.Err)
	}
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// Is makes every ParseError match ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// Registry is an ordered set of formats.
type Registry struct {
	formats []Format
}

// Option configures a registry.
type Option func(*options)

type options struct {
	csv CSVOptions
}

// WithCSVOptions sets the dialect used by the csv format.
func WithCSVOptions(o CSVOptions) Option {
	return func(opts *options) {
		opts.csv = o
	}
}

// NewRegistry creates a registry holding the json, yaml and csv formats, in that order.
// CSV accepts almost any text so it must be sniffed last.
func NewRegistry(opts ...Option) *Registry {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	return &Registry{
		formats: []Format{
			NewJSON(),
			NewYAML(),
			NewCSV(o.csv),
		},
	}
}

// IDs returns the names of the registered formats.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.formats))
	for i, f := range r.formats {
		ids[i] = f.ID()
	}

	return ids
}

// Get returns the format with the given name.
func (r *Registry) Get(id string) (Format, error) {
	id = strings.ToLower(strings.TrimSpace(id))
	for _, f := range r.formats {
		if f.ID() == id {
			return f, nil
		}
	}

	return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownFormat, id, strings.Join(r.IDs(), ", "))
}

// Guess picks a format from a file extension, then by sniffing head.
func (r *Registry) Guess(ext string, head []byte) (Format, error) {
	ext = strings.TrimPrefix(strings.ToLower(ext), ".")
	if ext != "" {
		for _, f := range r.formats {
			if slices.Contains(f.Extensions(), ext) {
				return f, nil
			}
		}
	}

	for _, f := range r.formats {
		if f.Sniff(head) {
			return f, nil
		}
	}

	return nil, fmt.Errorf("%w: unable to guess the format of the input, use --format", ErrUnknownFormat)
}

// lineAt returns the 1-based line number of offset within data.
func lineAt(data []byte, offset int64) int {
	if offset > int64(len(data)) {
		offset = int64(len(data))
	}

	line := 1
	for _, b := range data[:offset] {
		if b == '\n' {
			line++
		}
	}

	return line
}
