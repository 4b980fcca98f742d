// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package command

import (
	"errors"
	"strings"

	"github.com/arraypad/each/internal/record"
	"github.com/arraypad/each/internal/template"
)

// ErrNoCommand is returned when the builder is given an empty executable.
var ErrNoCommand = errors.New("no command given")

// Executable is the program to run. It is never produced by template rendering.
type Executable string

// Spec is a fully rendered invocation for one row.
type Spec struct {
	Path  Executable
	Args  []string
	Stdin *string
	Row   int
}

// Argv returns the executable followed by the arguments.
func (s *Spec) Argv() []string {
	argv := make([]string, 0, len(s.Args)+1)
	argv = append(argv, string(s.Path))

	return append(argv, s.Args...)
}

// String returns the command line with each word quoted for a POSIX shell where needed.
func (s *Spec) String() string {
	argv := s.Argv()

	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = Quote(a)
	}

	return strings.Join(quoted, " ")
}

// Builder renders the argument and stdin templates for each row.
type Builder struct {
	path  Executable
	args  []*template.Template
	stdin *template.Template
}

// NewBuilder compiles the argument templates and the optional stdin template.
// path is used verbatim.
func NewBuilder(path string, args []string, stdin *string) (*Builder, error) {
	if path == "" {
		return nil, ErrNoCommand
	}

	b := &Builder{
		path: Executable(path),
		args: make([]*template.Template, len(args)),
	}

	for i, a := range args {
		t, err := template.Compile(a)
		if err != nil {
			return nil, err
		}

		b.args[i] = t
	}

	if stdin != nil {
		t, err := template.Compile(*stdin)
		if err != nil {
			return nil, err
		}

		b.stdin = t
	}

	return b, nil
}

// Path returns the executable.
func (b *Builder) Path() Executable {
	return b.path
}

// HasStdin reports whether specs carry a stdin payload.
func (b *Builder) HasStdin() bool {
	return b.stdin != nil
}

// References reports whether any argument or stdin template refers to a record field.
// Without references every row runs the same command.
func (b *Builder) References() bool {
	for _, t := range b.args {
		if !t.IsLiteral() {
			return true
		}
	}

	return b.stdin != nil && !b.stdin.IsLiteral()
}

// Build renders the spec for row. A rendering error only concerns this row.
func (b *Builder) Build(row record.Row) (*Spec, error) {
	ctx := template.NewContext(row.Record)

	spec := &Spec{
		Path: b.path,
		Args: make([]string, len(b.args)),
		Row:  row.Index,
	}

	for i, t := range b.args {
		s, err := t.Render(ctx)
		if err != nil {
			return nil, err
		}

		spec.Args[i] = s
	}

	if b.stdin != nil {
		s, err := b.stdin.Render(ctx)
		if err != nil {
			return nil, err
		}

		spec.Stdin = &s
	}

	return spec, nil
}

// Label returns the unrendered command line, used for rows whose templates fail to render.
func (b *Builder) Label() string {
	words := make([]string, 0, len(b.args)+1)
	words = append(words, Quote(string(b.path)))

	for _, t := range b.args {
		words = append(words, Quote(t.String()))
	}

	return strings.Join(words, " ")
}
