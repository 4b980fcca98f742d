// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package template

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/arraypad/each/internal/record"
	"github.com/jmespath/go-jmespath"
)

var (
	// ErrTemplate is the sentinel matched by every TemplateError.
	ErrTemplate = errors.New("template error")
	// ErrUnterminated is returned when {{ has no matching }}.
	ErrUnterminated = errors.New("unterminated {{")
	// ErrEmptyExpression is returned for {{ }}.
	ErrEmptyExpression = errors.New("empty expression")
	// ErrInvalidExpression is returned when an expression is not valid JMESPath.
	ErrInvalidExpression = errors.New(`invalid expression, quote field names containing special characters as "field-name"`)
	// ErrUnresolved is returned when an expression yields a missing field or null.
	ErrUnresolved = errors.New("unresolved reference")
)

const (
	openDelim        = "{{"
	closeDelim       = "}}"
	tripleOpenDelim  = "{{{"
	tripleCloseDelim = "}}}"
	escapedOpenDelim = `\{{`
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// TemplateError describes a template that could not be compiled or rendered.
type TemplateError struct {
	Template string
	Expr     string
	Err      error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	if e.Expr == "" {
		return fmt.Sprintf("template %q: %v", e.Template, e.Err)
	}

	return fmt.Sprintf("template %q: {{%s}}: %v", e.Template, e.Expr, e.Err)
}

// Unwrap returns the underlying error.
func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Is makes every TemplateError match ErrTemplate.
func (e *TemplateError) Is(target error) bool {
	return target == ErrTemplate
}

// Template is a compiled template.
type Template struct {
	src  string
	segs []segment
}

// segment is either literal text or, when ref is set, a reference.
type segment struct {
	text string
	ref  *ref
}

type ref struct {
	expr string
	path []string
	jp   *jmespath.JMESPath
}

// Compile parses src.
func Compile(src string) (*Template, error) {
	t := &Template{src: src}

	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segs = append(t.segs, segment{text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); {
		rest := src[i:]

		if strings.HasPrefix(rest, escapedOpenDelim) {
			lit.WriteString(openDelim)

			i += len(escapedOpenDelim)

			continue
		}

		if !strings.HasPrefix(rest, openDelim) {
			lit.WriteByte(src[i])
			i++

			continue
		}

		o, c := openDelim, closeDelim
		if strings.HasPrefix(rest, tripleOpenDelim) {
			o, c = tripleOpenDelim, tripleCloseDelim
		}

		end := strings.Index(rest[len(o):], c)
		if end < 0 {
			return nil, &TemplateError{Template: src, Err: ErrUnterminated}
		}

		r, err := compileRef(rest[len(o) : len(o)+end])
		if err != nil {
			return nil, &TemplateError{Template: src, Expr: strings.TrimSpace(rest[len(o) : len(o)+end]), Err: err}
		}

		flush()
		t.segs = append(t.segs, segment{ref: r})

		i += len(o) + end + len(c)
	}

	flush()

	return t, nil
}

func compileRef(raw string) (*ref, error) {
	expr := strings.TrimSpace(raw)
	if expr == "" {
		return nil, ErrEmptyExpression
	}

	r := &ref{expr: expr}

	if path := strings.Split(expr, "."); allIdentifiers(path) {
		r.path = path
		return r, nil
	}

	jp, err := jmespath.Compile(expr)
	if err != nil {
		return nil, errors.Join(ErrInvalidExpression, err)
	}

	r.jp = jp

	return r, nil
}

func allIdentifiers(parts []string) bool {
	for _, p := range parts {
		if !identifier.MatchString(p) {
			return false
		}
	}

	return true
}

// String returns the template source.
func (t *Template) String() string {
	return t.src
}

// IsLiteral reports whether the template has no references.
func (t *Template) IsLiteral() bool {
	for _, s := range t.segs {
		if s.ref != nil {
			return false
		}
	}

	return true
}

// Render substitutes every reference with its value in c.
func (t *Template) Render(c *Context) (string, error) {
	var sb strings.Builder

	for _, s := range t.segs {
		if s.ref == nil {
			sb.WriteString(s.text)
			continue
		}

		v, err := c.resolve(s.ref)
		if err != nil {
			return "", &TemplateError{Template: t.src, Expr: s.ref.expr, Err: err}
		}

		str, ok, err := record.Scalar(v)
		if err != nil {
			return "", &TemplateError{Template: t.src, Expr: s.ref.expr, Err: err}
		}

		if !ok {
			return "", &TemplateError{Template: t.src, Expr: s.ref.expr, Err: ErrUnresolved}
		}

		sb.WriteString(str)
	}

	return sb.String(), nil
}
