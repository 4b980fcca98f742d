// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"cmp"
	"errors"
	"io"
	"slices"
	"time"
)

// ResultStatus is the coarse outcome of a row.
type ResultStatus int

const (
	// ResultStatusSuccess means the command exited with code 0.
	ResultStatusSuccess ResultStatus = iota
	// ResultStatusError means the row failed to render, start or exit cleanly.
	ResultStatusError
	// ResultStatusSkipped means the row was declined at the prompt.
	ResultStatusSkipped
)

// String implements fmt.Stringer.
func (s ResultStatus) String() string {
	switch s {
	case ResultStatusSuccess:
		return "success"
	case ResultStatusError:
		return "error"
	case ResultStatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s ResultStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Kind says why a row ended the way it did.
type Kind string

const (
	KindOK        Kind = "ok"
	KindTemplate  Kind = "template"
	KindSpawn     Kind = "spawn"
	KindExit      Kind = "exit"
	KindSignal    Kind = "signal"
	KindDeclined  Kind = "declined"
	KindCancelled Kind = "cancelled"
)

// Result represents the outcome of one row.
type Result struct {
	Row       int           // Index of the row in the selected sequence
	Label     string        // Rendered command line, or the raw template if rendering failed
	Status    ResultStatus  // Coarse outcome
	Kind      Kind          // Detailed outcome
	ExitCode  int           // Exit code of the process, -1 if it did not exit normally
	Error     error         // Error, if any
	StdOut    []byte        // Captured standard output, up to the in-memory limit
	StdErr    []byte        // Captured standard error, up to the in-memory limit
	Spilled   bool          // Output beyond the in-memory limit was kept in a temporary file
	Pid       int           // Process id, 0 if never started
	Duration  time.Duration // Wall time from start to exit

	stdout, stderr *capture
}

// WriteOutput writes the complete captured stdout and stderr of the row,
// including any part that was spilled to disk.
func (r *Result) WriteOutput(stdout, stderr io.Writer) error {
	out, errOut := r.stdout, r.stderr
	if out == nil {
		out = &capture{head: r.StdOut}
	}

	if errOut == nil {
		errOut = &capture{head: r.StdErr}
	}

	return errors.Join(out.writeTo(stdout), errOut.writeTo(stderr))
}

// Release removes the temporary files holding spilled output.
func (r *Result) Release() error {
	return errors.Join(r.stdout.release(), r.stderr.release())
}

func newFailure(row int, label string, kind Kind, err error) *Result {
	return &Result{
		Row:      row,
		Label:    label,
		Status:   ResultStatusError,
		Kind:     kind,
		ExitCode: -1,
		Error:    err,
	}
}

// Results is a slice of Result pointers.
type Results []*Result

// HasError reports whether any row failed.
func (r Results) HasError() bool {
	return slices.ContainsFunc(r, func(v *Result) bool {
		return v.Status == ResultStatusError
	})
}

// Count returns the number of results with the given status.
func (r Results) Count(status ResultStatus) int {
	n := 0

	for v := range slices.Values(r) {
		if v.Status == status {
			n++
		}
	}

	return n
}

// SortByRow orders the results by row index.
func (r Results) SortByRow() {
	slices.SortStableFunc(r, func(a, b *Result) int {
		return cmp.Compare(a.Row, b.Row)
	})
}
