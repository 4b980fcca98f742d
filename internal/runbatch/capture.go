// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/arraypad/each/internal/ctxlog"
	"github.com/spf13/afero"
)

const spillPattern = "each-output-*"

// FsFactory returns the filesystem that output beyond the in-memory limit is spilled to.
var FsFactory = func() afero.Fs {
	return afero.NewOsFs()
}

// capture is the output of one child stream. The first max bytes are held in
// memory and the remainder, if any, in a temporary file.
type capture struct {
	head  []byte
	fs    afero.Fs
	spill afero.File
	size  int64
}

// spillWriter creates the temporary file on the first write.
type spillWriter struct {
	c *capture
}

func (s spillWriter) Write(p []byte) (int, error) {
	if s.c.spill == nil {
		f, err := afero.TempFile(s.c.fs, "", spillPattern)
		if err != nil {
			return 0, err
		}

		s.c.spill = f
	}

	return s.c.spill.Write(p)
}

// readOutput reads r to EOF. If the spill file cannot be written the rest of r
// is drained and ErrBufferOverflow is returned with what was kept.
func readOutput(ctx context.Context, r io.Reader, maxBytes int64) (*capture, error) {
	c := &capture{fs: FsFactory()}

	var buf bytes.Buffer

	n, err := io.CopyN(&buf, r, maxBytes)
	c.head = buf.Bytes()
	c.size = n

	if errors.Is(err, io.EOF) {
		return c, nil
	}

	if err != nil {
		return c, errors.Join(ErrFailedToReadBuffer, err)
	}

	spilled, err := io.Copy(spillWriter{c: c}, r)
	c.size += spilled

	if err != nil {
		discarded, _ := io.Copy(io.Discard, r)

		ctxlog.Logger(ctx).Warn("could not spill output", "bytesLost", discarded, "error", err)

		return c, errors.Join(ErrBufferOverflow, err)
	}

	if c.spill != nil {
		if _, err := c.spill.Seek(0, io.SeekStart); err != nil {
			return c, errors.Join(ErrFailedToReadBuffer, err)
		}
	}

	return c, nil
}

// Spilled reports whether part of the output lives in a temporary file.
func (c *capture) Spilled() bool {
	return c != nil && c.spill != nil
}

// writeTo copies the whole output to w.
func (c *capture) writeTo(w io.Writer) error {
	if c == nil {
		return nil
	}

	if len(c.head) > 0 {
		if _, err := w.Write(c.head); err != nil {
			return err
		}
	}

	if c.spill == nil {
		return nil
	}

	_, err := io.Copy(w, c.spill)

	return err
}

// release removes the spill file.
func (c *capture) release() error {
	if c == nil || c.spill == nil {
		return nil
	}

	name := c.spill.Name()
	err := errors.Join(c.spill.Close(), c.fs.Remove(name))
	c.spill = nil

	return err
}
