// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package confirm

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// ReaderConfirmer asks on out and reads replies line by line from in.
type ReaderConfirmer struct {
	in     *bufio.Reader
	out    io.Writer
	closer io.Closer
}

var _ Confirmer = (*ReaderConfirmer)(nil)

// NewReaderConfirmer creates a confirmer over in and out. closer may be nil.
func NewReaderConfirmer(in io.Reader, out io.Writer, closer io.Closer) *ReaderConfirmer {
	return &ReaderConfirmer{
		in:     bufio.NewReader(in),
		out:    out,
		closer: closer,
	}
}

// Confirm implements Confirmer. End of input answers quit.
func (c *ReaderConfirmer) Confirm(text string) (Answer, error) {
	body, question := splitPrompt(text)
	if body != "" {
		if _, err := fmt.Fprintln(c.out, body); err != nil {
			return Quit, err
		}
	}

	for {
		if _, err := fmt.Fprint(c.out, question+choices); err != nil {
			return Quit, err
		}

		input, err := c.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return Quit, err
		}

		if errors.Is(err, io.EOF) && input == "" {
			_, _ = fmt.Fprintln(c.out)
			return Quit, nil
		}

		if a, ok := ParseAnswer(input); ok {
			return a, nil
		}

		if _, err := fmt.Fprintln(c.out, reprompt); err != nil {
			return Quit, err
		}
	}
}

// Close implements Confirmer.
func (c *ReaderConfirmer) Close() error {
	if c.closer == nil {
		return nil
	}

	return c.closer.Close()
}
