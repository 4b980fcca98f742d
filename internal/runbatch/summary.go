// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/arraypad/each/internal/exitcode"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Summary aggregates the outcome of a run.
//
// Rows that were never dispatched have no Result; they are only counted by NotStarted.
type Summary struct {
	RunID       uuid.UUID
	Selected    int
	Results     Results
	Aborted     bool
	AbortReason string
	Started     time.Time
	Finished    time.Time
}

func (s *Summary) abort(reason string) {
	if s.Aborted {
		return
	}

	s.Aborted = true
	s.AbortReason = reason
}

// Succeeded returns the number of rows whose command exited with code 0.
func (s *Summary) Succeeded() int {
	return s.Results.Count(ResultStatusSuccess)
}

// Failed returns the number of rows that failed to render, start or exit cleanly.
func (s *Summary) Failed() int {
	return s.Results.Count(ResultStatusError)
}

// Skipped returns the number of rows declined at the prompt.
func (s *Summary) Skipped() int {
	return s.Results.Count(ResultStatusSkipped)
}

// NotStarted returns the number of selected rows that were never dispatched.
func (s *Summary) NotStarted() int {
	return s.Selected - len(s.Results)
}

// Err combines the errors of all failed rows, or returns nil.
func (s *Summary) Err() error {
	var merr *multierror.Error

	for _, r := range s.Results {
		if r.Status != ResultStatusError || r.Error == nil {
			continue
		}

		merr = multierror.Append(merr, fmt.Errorf("row %d: %w", r.Row, r.Error))
	}

	return merr.ErrorOrNil()
}

// ExitCode maps the run to a process exit code.
// An aborted run takes precedence over failed rows.
func (s *Summary) ExitCode() int {
	switch {
	case s.Aborted:
		return exitcode.Aborted
	case s.Results.HasError():
		return exitcode.RowFailed
	default:
		return exitcode.OK
	}
}

type jsonReport struct {
	RunID       string       `json:"run_id"`
	Started     time.Time    `json:"started"`
	Finished    time.Time    `json:"finished"`
	Selected    int          `json:"selected"`
	Succeeded   int          `json:"succeeded"`
	Failed      int          `json:"failed"`
	Skipped     int          `json:"skipped"`
	NotStarted  int          `json:"not_started"`
	Aborted     bool         `json:"aborted"`
	AbortReason string       `json:"abort_reason,omitempty"`
	ExitCode    int          `json:"exit_code"`
	Errors      []string     `json:"errors,omitempty"`
	Rows        []jsonResult `json:"rows"`
}

type jsonResult struct {
	Row        int          `json:"row"`
	Command    string       `json:"command"`
	Status     ResultStatus `json:"status"`
	Kind       Kind         `json:"kind"`
	ExitCode   int          `json:"exit_code"`
	Error      string       `json:"error,omitempty"`
	Pid        int          `json:"pid,omitempty"`
	DurationMS int64        `json:"duration_ms"`
	Spilled    bool         `json:"spilled,omitempty"`
}

// WriteJSON writes a machine readable report of the run.
func (s *Summary) WriteJSON(w io.Writer) error {
	rep := jsonReport{
		RunID:       s.RunID.String(),
		Started:     s.Started,
		Finished:    s.Finished,
		Selected:    s.Selected,
		Succeeded:   s.Succeeded(),
		Failed:      s.Failed(),
		Skipped:     s.Skipped(),
		NotStarted:  s.NotStarted(),
		Aborted:     s.Aborted,
		AbortReason: s.AbortReason,
		ExitCode:    s.ExitCode(),
		Rows:        make([]jsonResult, 0, len(s.Results)),
	}

	var merr *multierror.Error
	if errors.As(s.Err(), &merr) {
		for _, err := range merr.WrappedErrors() {
			rep.Errors = append(rep.Errors, err.Error())
		}
	}

	for _, r := range s.Results {
		jr := jsonResult{
			Row:        r.Row,
			Command:    r.Label,
			Status:     r.Status,
			Kind:       r.Kind,
			ExitCode:   r.ExitCode,
			Pid:        r.Pid,
			DurationMS: r.Duration.Milliseconds(),
			Spilled:    r.Spilled,
		}

		if r.Error != nil {
			jr.Error = r.Error.Error()
		}

		rep.Rows = append(rep.Rows, jr)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)

	return enc.Encode(rep)
}

func (r Results) countKind(k Kind) int {
	n := 0

	for _, v := range r {
		if v.Kind == k {
			n++
		}
	}

	return n
}
