// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

const (
	// StdinName is the input name that selects standard input.
	StdinName = "-"
	// SniffSize is the number of bytes Peek is guaranteed to be able to return.
	SniffSize  = 1024
	bufferSize = 4096
)

var (
	// ErrOpenInput is returned when an input cannot be opened or fetched.
	ErrOpenInput = errors.New("could not open input")
	// ErrNoInput is returned when no input name is given where one is required.
	ErrNoInput = errors.New("no input provided")
)

// Input is an open input stream.
// Byte order marks are removed and UTF-16 content is decoded to UTF-8.
type Input struct {
	Name   string
	r      *bufio.Reader
	closer io.Closer
}

// IsStdin reports whether name selects standard input.
func IsStdin(name string) bool {
	return name == "" || name == StdinName
}

// IsRemote reports whether name must be fetched with go-getter rather than opened locally.
func IsRemote(name string) bool {
	return strings.Contains(name, "::") || strings.Contains(name, "://")
}

// Open opens the named input. Standard input is read from stdin.
func Open(ctx context.Context, name string, stdin io.Reader) (*Input, error) {
	switch {
	case IsStdin(name):
		if stdin == nil {
			return nil, errors.Join(ErrOpenInput, ErrNoInput)
		}

		return newInput("<stdin>", stdin, nil), nil
	case IsRemote(name):
		b, err := fetch(ctx, name)
		if err != nil {
			return nil, errors.Join(ErrOpenInput, err)
		}

		return newInput(name, bytes.NewReader(b), nil), nil
	default:
		f, err := FsFactory().Open(name)
		if err != nil {
			return nil, errors.Join(ErrOpenInput, err)
		}

		return newInput(name, f, f), nil
	}
}

// ReadFile reads a whole local or remote file. Standard input is not accepted.
func ReadFile(ctx context.Context, name string) ([]byte, error) {
	if IsStdin(name) {
		return nil, errors.Join(ErrOpenInput, ErrNoInput)
	}

	in, err := Open(ctx, name, nil)
	if err != nil {
		return nil, err
	}

	defer in.Close() //nolint:errcheck

	b, err := io.ReadAll(in)
	if err != nil {
		return nil, errors.Join(ErrOpenInput, err)
	}

	return b, nil
}

func newInput(name string, r io.Reader, c io.Closer) *Input {
	dec := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))

	return &Input{
		Name:   name,
		r:      bufio.NewReaderSize(dec, bufferSize),
		closer: c,
	}
}

// Read implements io.Reader.
func (in *Input) Read(p []byte) (int, error) {
	return in.r.Read(p)
}

// Peek returns up to n bytes from the start of the remaining input without consuming them.
// Fewer bytes are returned only when the input is shorter.
func (in *Input) Peek(n int) ([]byte, error) {
	n = min(n, SniffSize)

	b, err := in.r.Peek(n)
	if errors.Is(err, io.EOF) {
		return b, nil
	}

	return b, err
}

// Ext returns the lower-case file extension of the input name without the dot.
// Query strings and go-getter forced schemes are ignored.
func (in *Input) Ext() string {
	name := in.Name
	if i := strings.Index(name, "?"); i >= 0 {
		name = name[:i]
	}

	return strings.TrimPrefix(strings.ToLower(path.Ext(name)), ".")
}

// Close releases the underlying file, if any.
func (in *Input) Close() error {
	if in.closer == nil {
		return nil
	}

	return in.closer.Close()
}
