// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"context"
	"errors"
	"io"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arraypad/each/internal/command"
	"github.com/arraypad/each/internal/confirm"
	"github.com/arraypad/each/internal/ctxlog"
	"github.com/arraypad/each/internal/progress"
	"github.com/arraypad/each/internal/record"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Scheduler dispatches one command per row.
//
// Rows are rendered and confirmed by the calling goroutine in row order, so
// prompts never overlap. At most MaxProcs commands run at once.
type Scheduler struct {
	Builder     *command.Builder
	MaxProcs    int                 // Values below 1 mean runtime.NumCPU().
	Confirmer   confirm.Confirmer   // Asks before each row when not nil.
	PromptStdin bool                // Show the rendered stdin in the prompt.
	FailFast    bool                // Stop dispatching after the first failed row.
	Stdout      io.Writer           // Receives each row's captured stdout, defaults to os.Stdout.
	Stderr      io.Writer           // Receives each row's captured stderr, defaults to os.Stderr.
	Reporter    progress.Reporter   // Receives row lifecycle events, may be nil.
	Stop        <-chan struct{}     // Closing it stops dispatch; running rows finish.
	RunID       uuid.UUID           // Copied to the Summary; generated when zero.
	now         func() time.Time
}

type dispatch struct {
	s       *Scheduler
	sum     *Summary
	mu      sync.Mutex // guards sum.Results
	outMu   sync.Mutex // serialises prompts and output flushes
	failed  atomic.Bool
	slots   chan struct{}
	stdout  io.Writer
	stderr  io.Writer
	report  progress.Reporter
	running errgroup.Group
}

// Run dispatches rows and waits for every started command to finish.
// The returned error is only set when the confirmation prompt fails; row
// failures are recorded in the Summary.
func (s *Scheduler) Run(ctx context.Context, rows []record.Row) (*Summary, error) {
	if s.Builder == nil {
		return nil, ErrNoBuilder
	}

	now := s.now
	if now == nil {
		now = time.Now
	}

	runID := s.RunID
	if runID == uuid.Nil {
		runID = uuid.New()
	}

	n := s.MaxProcs
	if n < 1 {
		n = runtime.NumCPU()
	}

	d := &dispatch{
		s:      s,
		sum:    &Summary{RunID: runID, Selected: len(rows), Started: now()},
		slots:  make(chan struct{}, n),
		stdout: s.Stdout,
		stderr: s.Stderr,
		report: s.Reporter,
	}

	if d.stdout == nil {
		d.stdout = os.Stdout
	}

	if d.stderr == nil {
		d.stderr = os.Stderr
	}

	if d.report == nil {
		d.report = progress.NewNullReporter()
	}

	ctxlog.Debug(ctx, "dispatching rows", "rows", len(rows), "maxProcs", n, "interactive", s.Confirmer != nil)

	err := d.loop(ctx, rows)

	_ = d.running.Wait()

	if !d.sum.Aborted && ctx.Err() != nil && d.sum.Results.countKind(KindCancelled) > 0 {
		d.sum.abort(AbortCancelled)
	}

	d.sum.Results.SortByRow()
	d.sum.Finished = now()

	return d.sum, err
}

func (d *dispatch) loop(ctx context.Context, rows []record.Row) error {
	for _, row := range rows {
		select {
		case d.slots <- struct{}{}:
		case <-ctx.Done():
			d.sum.abort(AbortCancelled)
			return nil
		case <-d.s.Stop:
			d.sum.abort(AbortInterrupted)
			return nil
		}

		if reason := d.stopReason(ctx); reason != "" {
			d.release()
			d.sum.abort(reason)

			return nil
		}

		spec, err := d.s.Builder.Build(row)
		if err != nil {
			res := newFailure(row.Index, d.s.Builder.Label(), KindTemplate, err)
			d.finish(res)
			d.release()

			continue
		}

		if d.s.Confirmer != nil {
			answer, err := d.confirm(spec)
			if err != nil {
				d.release()
				d.sum.abort(AbortPrompt)

				return errors.Join(ErrConfirm, err)
			}

			switch answer {
			case confirm.No:
				d.finish(&Result{
					Row:    row.Index,
					Label:  spec.String(),
					Status: ResultStatusSkipped,
					Kind:   KindDeclined,
					Error:  ErrDeclined,
				})
				d.release()

				continue
			case confirm.Quit:
				d.release()
				d.sum.abort(AbortQuit)

				return nil
			}
		}

		d.running.Go(func() error {
			defer d.release()

			d.run(ctx, spec)

			return nil
		})
	}

	return nil
}

func (d *dispatch) stopReason(ctx context.Context) string {
	if ctx.Err() != nil {
		return AbortCancelled
	}

	select {
	case <-d.s.Stop:
		return AbortInterrupted
	default:
	}

	if d.s.FailFast && d.failed.Load() {
		return AbortFailFast
	}

	return ""
}

func (d *dispatch) release() {
	<-d.slots
}

func (d *dispatch) confirm(spec *command.Spec) (confirm.Answer, error) {
	d.outMu.Lock()
	defer d.outMu.Unlock()

	return d.s.Confirmer.Confirm(promptText(spec, d.s.PromptStdin))
}

func promptText(spec *command.Spec, withStdin bool) string {
	if !withStdin || spec.Stdin == nil {
		return spec.String()
	}

	return "# Stdin:\n" + *spec.Stdin + "\n- Command:\n" + spec.String()
}

func (d *dispatch) run(ctx context.Context, spec *command.Spec) {
	label := spec.String()

	cmd := &OSCommand{
		Spec: spec,
		OnStart: func(pid int) {
			d.report.Report(progress.Event{
				Row:       spec.Row,
				Label:     label,
				Type:      progress.EventStarted,
				Timestamp: time.Now(),
				Data:      progress.EventData{Pid: pid},
			})
		},
	}

	res := cmd.Run(ctx)

	d.flush(ctx, res)
	d.finish(res)
}

// flush writes the captured output of one row without interleaving it with other rows.
func (d *dispatch) flush(ctx context.Context, res *Result) {
	d.outMu.Lock()
	err := res.WriteOutput(d.stdout, d.stderr)
	d.outMu.Unlock()

	if err != nil {
		ctxlog.Logger(ctx).Warn("failed to write command output", "row", res.Row, "error", err)
	}

	if err := res.Release(); err != nil {
		ctxlog.Logger(ctx).Warn("failed to remove spilled output", "row", res.Row, "error", err)
	}
}

func (d *dispatch) finish(res *Result) {
	if res.Status == ResultStatusError {
		d.failed.Store(true)
	}

	d.mu.Lock()
	d.sum.Results = append(d.sum.Results, res)
	d.mu.Unlock()

	e := progress.Event{
		Row:       res.Row,
		Label:     res.Label,
		Timestamp: time.Now(),
		Data: progress.EventData{
			Pid:      res.Pid,
			ExitCode: res.ExitCode,
			Error:    res.Error,
			Duration: res.Duration,
		},
	}

	switch res.Status {
	case ResultStatusSuccess:
		e.Type = progress.EventCompleted
	case ResultStatusSkipped:
		e.Type = progress.EventSkipped
	default:
		e.Type = progress.EventFailed
	}

	e.Message = string(res.Kind)
	d.report.Report(e)
}
