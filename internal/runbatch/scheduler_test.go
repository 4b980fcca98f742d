// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arraypad/each/internal/command"
	"github.com/arraypad/each/internal/confirm"
	"github.com/arraypad/each/internal/exitcode"
	"github.com/arraypad/each/internal/progress"
	"github.com/arraypad/each/internal/record"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func rowsOf(field string, values ...any) []record.Row {
	recs := make([]*record.Record, len(values))

	for i, v := range values {
		rec := record.New(1)
		if v != nil {
			rec.Set(field, v)
		}

		recs[i] = rec
	}

	return record.Rows(recs)
}

func mustBuilder(t *testing.T, path string, args []string, stdin *string) *command.Builder {
	t.Helper()

	b, err := command.NewBuilder(path, args, stdin)
	require.NoError(t, err)

	return b
}

type scriptedConfirmer struct {
	answers []confirm.Answer
	err     error
	prompts []string
}

func (c *scriptedConfirmer) Confirm(text string) (confirm.Answer, error) {
	c.prompts = append(c.prompts, text)

	if c.err != nil {
		return confirm.Quit, c.err
	}

	a := c.answers[0]
	c.answers = c.answers[1:]

	return a, nil
}

func (c *scriptedConfirmer) Close() error { return nil }

func TestScheduler_SequentialInRowOrder(t *testing.T) {
	stdout := &bytes.Buffer{}
	runID := uuid.New()

	s := &Scheduler{
		Builder:  mustBuilder(t, "echo", []string{"hello", "{{name}}"}, nil),
		MaxProcs: 1,
		Stdout:   stdout,
		Stderr:   &bytes.Buffer{},
		RunID:    runID,
	}

	sum, err := s.Run(context.Background(), rowsOf("name", "ada", "bob", "cy"))
	require.NoError(t, err)

	assert.Equal(t, "hello ada\nhello bob\nhello cy\n", stdout.String())
	assert.Equal(t, runID, sum.RunID)
	assert.Equal(t, 3, sum.Selected)
	assert.Equal(t, 3, sum.Succeeded())
	assert.Equal(t, exitcode.OK, sum.ExitCode())
	assert.NoError(t, sum.Err())
	assert.False(t, sum.Aborted)

	for i, r := range sum.Results {
		assert.Equal(t, i, r.Row)
	}
}

func TestScheduler_TemplateFailureIsRowScoped(t *testing.T) {
	stdout := &bytes.Buffer{}

	s := &Scheduler{
		Builder:  mustBuilder(t, "echo", []string{"{{name}}"}, nil),
		MaxProcs: 1,
		Stdout:   stdout,
		Stderr:   &bytes.Buffer{},
	}

	sum, err := s.Run(context.Background(), rowsOf("name", "ada", nil, "cy"))
	require.NoError(t, err)

	require.Len(t, sum.Results, 3)
	assert.Equal(t, KindTemplate, sum.Results[1].Kind)
	assert.Equal(t, "echo '{{name}}'", sum.Results[1].Label)
	assert.Equal(t, "ada\ncy\n", stdout.String())
	assert.Equal(t, 1, sum.Failed())
	assert.Equal(t, exitcode.RowFailed, sum.ExitCode())
	assert.ErrorContains(t, sum.Err(), "row 1:")
}

func TestScheduler_ContinuesAfterFailureByDefault(t *testing.T) {
	s := &Scheduler{
		Builder:  mustBuilder(t, "sh", []string{"-c", "exit {{code}}"}, nil),
		MaxProcs: 1,
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
	}

	sum, err := s.Run(context.Background(), rowsOf("code", "0", "1", "0"))
	require.NoError(t, err)

	assert.Len(t, sum.Results, 3)
	assert.Equal(t, 2, sum.Succeeded())
	assert.Equal(t, 1, sum.Failed())
	assert.Equal(t, exitcode.RowFailed, sum.ExitCode())
}

func TestScheduler_FailFast(t *testing.T) {
	s := &Scheduler{
		Builder:  mustBuilder(t, "sh", []string{"-c", "exit {{code}}"}, nil),
		MaxProcs: 1,
		FailFast: true,
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
	}

	sum, err := s.Run(context.Background(), rowsOf("code", "0", "4", "0", "0"))
	require.NoError(t, err)

	assert.Len(t, sum.Results, 2)
	assert.True(t, sum.Aborted)
	assert.Equal(t, AbortFailFast, sum.AbortReason)
	assert.Equal(t, 2, sum.NotStarted())
	assert.Equal(t, exitcode.Aborted, sum.ExitCode())
	assert.Equal(t, 4, sum.Results[1].ExitCode)
}

func TestScheduler_Parallel(t *testing.T) {
	stdout := &bytes.Buffer{}

	s := &Scheduler{
		Builder:  mustBuilder(t, "sh", []string{"-c", "sleep 0.5; echo {{n}}"}, nil),
		MaxProcs: 4,
		Stdout:   stdout,
		Stderr:   &bytes.Buffer{},
	}

	start := time.Now()
	sum, err := s.Run(context.Background(), rowsOf("n", "0", "1", "2", "3"))
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 1900*time.Millisecond, "rows should overlap")
	require.Len(t, sum.Results, 4)

	for i, r := range sum.Results {
		assert.Equal(t, i, r.Row, "results are sorted by row")
	}

	lines := strings.Fields(stdout.String())
	assert.ElementsMatch(t, []string{"0", "1", "2", "3"}, lines)
}

func TestScheduler_ConfirmNoAndQuit(t *testing.T) {
	c := &scriptedConfirmer{answers: []confirm.Answer{confirm.Yes, confirm.No, confirm.Quit}}
	stdout := &bytes.Buffer{}

	s := &Scheduler{
		Builder:   mustBuilder(t, "echo", []string{"{{n}}"}, nil),
		MaxProcs:  1,
		Confirmer: c,
		Stdout:    stdout,
		Stderr:    &bytes.Buffer{},
	}

	sum, err := s.Run(context.Background(), rowsOf("n", "a", "b", "c", "d"))
	require.NoError(t, err)

	assert.Equal(t, []string{"echo a", "echo b", "echo c"}, c.prompts)
	assert.Equal(t, "a\n", stdout.String())
	require.Len(t, sum.Results, 2)
	assert.Equal(t, KindDeclined, sum.Results[1].Kind)
	assert.Equal(t, ResultStatusSkipped, sum.Results[1].Status)
	assert.Equal(t, 2, sum.NotStarted())
	assert.Equal(t, AbortQuit, sum.AbortReason)
	assert.Equal(t, exitcode.Aborted, sum.ExitCode())
}

func TestScheduler_DeclinedRowsAreNotFailures(t *testing.T) {
	c := &scriptedConfirmer{answers: []confirm.Answer{confirm.No, confirm.No}}

	s := &Scheduler{
		Builder:   mustBuilder(t, "false", nil, nil),
		Confirmer: c,
		Stdout:    &bytes.Buffer{},
		Stderr:    &bytes.Buffer{},
	}

	sum, err := s.Run(context.Background(), rowsOf("n", "a", "b"))
	require.NoError(t, err)

	assert.Equal(t, 2, sum.Skipped())
	assert.Equal(t, exitcode.OK, sum.ExitCode())
	assert.NoError(t, sum.Err())
}

func TestScheduler_PromptStdin(t *testing.T) {
	stdin := "hi {{n}}"
	c := &scriptedConfirmer{answers: []confirm.Answer{confirm.Yes}}
	stdout := &bytes.Buffer{}

	s := &Scheduler{
		Builder:     mustBuilder(t, "cat", nil, &stdin),
		Confirmer:   c,
		PromptStdin: true,
		Stdout:      stdout,
		Stderr:      &bytes.Buffer{},
	}

	_, err := s.Run(context.Background(), rowsOf("n", "x"))
	require.NoError(t, err)

	assert.Equal(t, []string{"# Stdin:\nhi x\n- Command:\ncat"}, c.prompts)
	assert.Equal(t, "hi x", stdout.String())
}

func TestScheduler_ConfirmError(t *testing.T) {
	c := &scriptedConfirmer{err: errors.New("tty gone")}

	s := &Scheduler{
		Builder:   mustBuilder(t, "true", nil, nil),
		Confirmer: c,
	}

	sum, err := s.Run(context.Background(), rowsOf("n", "a"))
	require.ErrorIs(t, err, ErrConfirm)
	assert.True(t, sum.Aborted)
	assert.Equal(t, AbortPrompt, sum.AbortReason)
	assert.Empty(t, sum.Results)
}

func TestScheduler_StopBeforeDispatch(t *testing.T) {
	stop := make(chan struct{})
	close(stop)

	s := &Scheduler{
		Builder: mustBuilder(t, "true", nil, nil),
		Stop:    stop,
	}

	sum, err := s.Run(context.Background(), rowsOf("n", "a", "b"))
	require.NoError(t, err)

	assert.Empty(t, sum.Results)
	assert.Equal(t, AbortInterrupted, sum.AbortReason)
	assert.Equal(t, 2, sum.NotStarted())
}

func TestScheduler_CancelKillsRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		Builder:  mustBuilder(t, "sleep", []string{"{{n}}"}, nil),
		MaxProcs: 1,
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
	}

	time.AfterFunc(100*time.Millisecond, cancel)

	sum, err := s.Run(ctx, rowsOf("n", "10", "10"))
	require.NoError(t, err)

	require.Len(t, sum.Results, 1)
	assert.Equal(t, KindCancelled, sum.Results[0].Kind)
	assert.True(t, sum.Aborted)
	assert.Equal(t, AbortCancelled, sum.AbortReason)
	assert.Equal(t, 1, sum.NotStarted())
}

func TestScheduler_NoBuilder(t *testing.T) {
	_, err := (&Scheduler{}).Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoBuilder)
}

type collectingListener struct {
	mu     sync.Mutex
	events []progress.Event
}

func (l *collectingListener) OnEvent(e progress.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, e)
}

func TestScheduler_ReportsEvents(t *testing.T) {
	reporter := progress.NewChannelReporter(16)
	listener := &collectingListener{}
	reporter.Listen(context.Background(), listener)

	s := &Scheduler{
		Builder:  mustBuilder(t, "sh", []string{"-c", "exit {{code}}"}, nil),
		MaxProcs: 1,
		Reporter: reporter,
		Stdout:   &bytes.Buffer{},
		Stderr:   &bytes.Buffer{},
	}

	_, err := s.Run(context.Background(), rowsOf("code", "0", "2"))
	require.NoError(t, err)
	reporter.Close()

	listener.mu.Lock()
	defer listener.mu.Unlock()

	types := make([]progress.EventType, 0, len(listener.events))
	for _, e := range listener.events {
		types = append(types, e.Type)
	}

	assert.Equal(t, []progress.EventType{
		progress.EventStarted, progress.EventCompleted,
		progress.EventStarted, progress.EventFailed,
	}, types)
	assert.Equal(t, 2, listener.events[3].Data.ExitCode)
}
