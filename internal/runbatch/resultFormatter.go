// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package runbatch

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arraypad/each/internal/color"
)

// OutputOptions controls what is included in the text summary.
type OutputOptions struct {
	IncludeStdOut      bool // Whether to repeat captured stdout
	IncludeStdErr      bool // Whether to repeat captured stderr
	ShowSuccessDetails bool // Whether to show details for successful rows
}

// DefaultOutputOptions returns a default set of output options.
// Captured output has already been streamed, so it is not repeated.
func DefaultOutputOptions() *OutputOptions {
	return &OutputOptions{}
}

// WriteText writes a header line followed by one line per row with a
// status marker, and the error and captured output of failed rows.
func (s *Summary) WriteText(w io.Writer, options *OutputOptions) error {
	if options == nil {
		options = DefaultOutputOptions()
	}

	header := fmt.Sprintf(
		"%d selected, %d succeeded, %d failed, %d skipped, %d not started",
		s.Selected, s.Succeeded(), s.Failed(), s.Skipped(), s.NotStarted(),
	)

	if s.Aborted {
		header += " " + color.Colorize("(aborted: "+s.AbortReason+")", color.FgYellow)
	}

	if _, err := fmt.Fprintln(w, header); err != nil {
		return err
	}

	for _, r := range s.Results {
		if err := writeResult(w, r, "  ", options); err != nil {
			return err
		}
	}

	return nil
}

func writeResult(w io.Writer, r *Result, indent string, options *OutputOptions) error {
	var (
		statusStr  string
		labelColor = color.FgWhite
	)

	switch r.Status {
	case ResultStatusSkipped:
		statusStr = color.Colorize("~", color.FgYellow)
		labelColor = color.FgYellow
	case ResultStatusError:
		statusStr = color.Colorize("✗", color.FgRed)
		labelColor = color.FgRed
	case ResultStatusSuccess:
		statusStr = color.Colorize("✓", color.FgGreen)
		labelColor = color.FgGreen
	default:
		statusStr = color.Colorize("?", color.FgWhite)
	}

	label := r.Label
	if label == "" {
		label = "[unnamed]"
	}

	line := fmt.Sprintf("%s%s #%d %s", indent, statusStr, r.Row, color.Colorize(label, color.Bold, labelColor))

	if r.ExitCode > 0 {
		line += fmt.Sprintf(" (exit code: %d)", r.ExitCode)
	}

	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}

	if r.Error != nil && !errors.Is(r.Error, ErrDeclined) {
		errColor := color.FgRed
		if r.Status != ResultStatusError {
			errColor = color.FgWhite
		}

		if _, err := fmt.Fprintf(w, "%s  %s %s\n", indent, color.Colorize("➜ Error:", errColor), oneLine(r.Error)); err != nil {
			return err
		}
	}

	showDetails := r.Status == ResultStatusError || options.ShowSuccessDetails

	if showDetails && options.IncludeStdOut && len(r.StdOut) > 0 {
		fmt.Fprintf(w, "%s  ➜ Output:\n", indent)                    // nolint:errcheck
		fmt.Fprintf(w, "%s", formatOutput(r.StdOut, indent+"     ")) // nolint:errcheck
	}

	if showDetails && options.IncludeStdErr && len(r.StdErr) > 0 {
		fmt.Fprintf(w, "%s  %s\n", indent, color.Colorize("➜ Error Output:", color.FgHiRed)) // nolint:errcheck
		fmt.Fprintf(w, "%s", formatOutput(r.StdErr, indent+"     "))                         // nolint:errcheck
	}

	return nil
}

// oneLine flattens joined errors onto a single line.
func oneLine(err error) string {
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

// formatOutput formats multi-line output with proper indentation.
func formatOutput(output []byte, indent string) string {
	sb := strings.Builder{}
	lines := strings.Split(strings.TrimSuffix(string(output), "\n"), "\n")
	sb.Grow(len(output) + len(lines)*len(indent))

	for _, line := range lines {
		if line == "" {
			sb.WriteString("\n")
			continue
		}

		sb.WriteString(indent)
		sb.WriteString(line)
		sb.WriteString("\n")
	}

	return sb.String()
}
