// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
)

// Abort reasons recorded in the Summary.
const (
	AbortQuit        = "quit"
	AbortFailFast    = "fail-fast"
	AbortInterrupted = "interrupted"
	AbortCancelled   = "cancelled"
	AbortPrompt      = "prompt failed"
)

var (
	// ErrCouldNotStartProcess is returned when the process could not be started.
	ErrCouldNotStartProcess = errors.New("could not start process")
	// ErrFailedToCreatePipe is returned when the operating system pipe could not be created.
	ErrFailedToCreatePipe = errors.New("failed to create pipe")
	// ErrFailedToReadBuffer is returned when the buffer from the operating system pipe could not be read.
	ErrFailedToReadBuffer = errors.New("failed to read buffer")
	// ErrNonZeroExit is returned when the process exits with a non-zero code.
	ErrNonZeroExit = errors.New("non-zero exit code")
	// ErrSignalReceived is returned when the child process was terminated by a signal.
	ErrSignalReceived = errors.New("terminated by signal")
	// ErrCancelled is returned when the child process was killed because the run was cancelled.
	ErrCancelled = errors.New("killed, run cancelled")
	// ErrDeclined marks rows declined at the confirmation prompt.
	ErrDeclined = errors.New("declined")
	// ErrBufferOverflow is returned when output beyond the in-memory limit could not be spilled to disk.
	ErrBufferOverflow = fmt.Errorf("output exceeds %d bytes and could not be spilled to disk", maxBufferSize)
	// ErrNoBuilder is returned by Scheduler.Run without a command builder.
	ErrNoBuilder = errors.New("scheduler has no command builder")
	// ErrConfirm is returned when the confirmation prompt fails.
	ErrConfirm = errors.New("confirmation failed")
)
