// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/arraypad/each/internal/command"
	"github.com/arraypad/each/internal/ctxlog"
)

const (
	maxBufferSize = 8 * 1024 * 1024 // 8MB
)

// OSCommand runs one rendered command as a child process.
type OSCommand struct {
	Spec      *command.Spec
	OnStart   func(pid int) // Called once the process has started, may be nil.
	MaxBuffer int64         // Bytes per stream held in memory before spilling to disk, 0 for 8MB.
}

// Run starts the process, feeds its stdin, captures its output and waits for it.
// Cancelling ctx kills the process.
func (c *OSCommand) Run(ctx context.Context) *Result {
	label := c.Spec.String()
	logger := ctxlog.Logger(ctx).With("runnableType", "OSCommand", "row", c.Spec.Row)

	path, err := FindInPath(string(c.Spec.Path))
	if err != nil {
		return newFailure(c.Spec.Row, label, KindSpawn, errors.Join(ErrCouldNotStartProcess, err))
	}

	logger.Debug("command info", "path", path, "args", c.Spec.Args)

	var (
		parentEnds []io.Closer // closed once Run returns
		childEnds  []io.Closer // closed once the child holds them
	)

	closeAll := func(cs []io.Closer) {
		for _, cl := range cs {
			_ = cl.Close()
		}
	}

	fail := func(err error) *Result {
		closeAll(childEnds)
		closeAll(parentEnds)

		return newFailure(c.Spec.Row, label, KindSpawn, err)
	}

	rOut, wOut, err := os.Pipe()
	if err != nil {
		return fail(errors.Join(ErrFailedToCreatePipe, err))
	}

	parentEnds = append(parentEnds, rOut)
	childEnds = append(childEnds, wOut)

	rErr, wErr, err := os.Pipe()
	if err != nil {
		return fail(errors.Join(ErrFailedToCreatePipe, err))
	}

	parentEnds = append(parentEnds, rErr)
	childEnds = append(childEnds, wErr)

	var stdinR, stdinW *os.File

	if c.Spec.Stdin != nil {
		stdinR, stdinW, err = os.Pipe()
		if err != nil {
			return fail(errors.Join(ErrFailedToCreatePipe, err))
		}

		childEnds = append(childEnds, stdinR)
	} else {
		// the process's own stdin may be carrying the input records
		stdinR, err = os.Open(os.DevNull)
		if err != nil {
			return fail(errors.Join(ErrCouldNotStartProcess, err))
		}

		childEnds = append(childEnds, stdinR)
	}

	ps, err := os.StartProcess(path, c.Spec.Argv(), &os.ProcAttr{
		Env:   os.Environ(),
		Files: []*os.File{stdinR, wOut, wErr},
	})
	if err != nil {
		if stdinW != nil {
			_ = stdinW.Close()
		}

		return fail(errors.Join(ErrCouldNotStartProcess, err))
	}

	startTime := time.Now()

	closeAll(childEnds)
	defer closeAll(parentEnds)

	logger.Debug("process started", "pid", ps.Pid)

	if c.OnStart != nil {
		c.OnStart(ps.Pid)
	}

	var (
		wg             sync.WaitGroup
		stdout, stderr *capture
		outErr, errErr error
	)

	limit := c.MaxBuffer
	if limit <= 0 {
		limit = maxBufferSize
	}

	wg.Add(2)

	go func() {
		defer wg.Done()

		stdout, outErr = readOutput(ctx, rOut, limit)
	}()

	go func() {
		defer wg.Done()

		stderr, errErr = readOutput(ctx, rErr, limit)
	}()

	if stdinW != nil {
		wg.Add(1)

		go func() {
			defer wg.Done()

			writeStdin(ctx, stdinW, *c.Spec.Stdin)
		}()
	}

	// process watchdog, kills the child when the run is cancelled
	done := make(chan struct{})
	watchdogDone := make(chan struct{})

	var wasKilled atomic.Bool

	go func() {
		defer close(watchdogDone)

		select {
		case <-ctx.Done():
			wasKilled.Store(true)
			killPs(ctx, ps)
		case <-done:
		}
	}()

	state, psErr := ps.Wait()

	close(done)
	<-watchdogDone
	wg.Wait()

	res := &Result{
		Row:      c.Spec.Row,
		Label:    label,
		Pid:      ps.Pid,
		Duration: time.Since(startTime),
		StdOut:   stdout.head,
		StdErr:   stderr.head,
		Spilled:  stdout.Spilled() || stderr.Spilled(),
		stdout:   stdout,
		stderr:   stderr,
	}

	if res.Spilled {
		logger.Debug("output spilled to disk", "stdoutBytes", stdout.size, "stderrBytes", stderr.size)
	}

	res.Error = errors.Join(outErr, errErr)

	switch {
	case psErr != nil:
		res.Status = ResultStatusError
		res.Kind = KindExit
		res.ExitCode = -1
		res.Error = errors.Join(psErr, res.Error)
	case wasKilled.Load():
		res.Status = ResultStatusError
		res.Kind = KindCancelled
		res.ExitCode = -1
		res.Error = errors.Join(ErrCancelled, res.Error)
	case signaled(state):
		res.Status = ResultStatusError
		res.Kind = KindSignal
		res.ExitCode = -1
		res.Error = errors.Join(fmt.Errorf("%w: %s", ErrSignalReceived, state.Sys().(syscall.WaitStatus).Signal()), res.Error)
	case state.ExitCode() != 0:
		res.Status = ResultStatusError
		res.Kind = KindExit
		res.ExitCode = state.ExitCode()
		res.Error = errors.Join(fmt.Errorf("%w: %d", ErrNonZeroExit, res.ExitCode), res.Error)
	case res.Error != nil:
		res.Status = ResultStatusError
		res.Kind = KindExit
	default:
		res.Status = ResultStatusSuccess
		res.Kind = KindOK
	}

	logger.Debug("process finished", "exitCode", res.ExitCode, "kind", res.Kind)

	return res
}

func signaled(state *os.ProcessState) bool {
	ws, ok := state.Sys().(syscall.WaitStatus)

	return ok && ws.Signaled()
}

// writeStdin writes the payload and closes the pipe so the child sees EOF.
// A child that exits without reading its stdin is not an error.
func writeStdin(ctx context.Context, w io.WriteCloser, payload string) {
	defer w.Close() //nolint:errcheck

	if _, err := io.WriteString(w, payload); err != nil && !errors.Is(err, syscall.EPIPE) {
		ctxlog.Logger(ctx).Debug("failed to write stdin", "error", err)
	}
}

func killPs(ctx context.Context, ps *os.Process) {
	if err := ps.Kill(); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			ctxlog.Logger(ctx).Debug("process already done", "pid", ps.Pid)
			return
		}

		ctxlog.Logger(ctx).Error("process kill error", "pid", ps.Pid, "error", err)

		return
	}

	ctxlog.Logger(ctx).Info("process killed", "pid", ps.Pid)
}
