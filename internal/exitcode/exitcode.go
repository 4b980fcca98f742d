// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package exitcode defines the process exit codes. The values are stable and
// scripts may depend on them. The usage, data and I/O codes follow sysexits.h.
package exitcode

const (
	// OK means every selected row succeeded, or was declined at the prompt.
	OK = 0
	// RowFailed means at least one row failed to render, start or exit cleanly.
	RowFailed = 1
	// Aborted means dispatch stopped early: quit at the prompt, fail-fast or a signal.
	Aborted = 2
	// Usage is a command line or template syntax error.
	Usage = 64
	// DataErr is an input parse error or a query error.
	DataErr = 65
	// IOErr means an input could not be read or an output could not be written.
	IOErr = 74
)
