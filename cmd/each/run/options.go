// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"fmt"
	"unicode/utf8"

	"github.com/arraypad/each/internal/formats"
	"github.com/arraypad/each/internal/jobfile"
	"github.com/arraypad/each/internal/source"
	"github.com/urfave/cli/v3"
)

// options is the merged view of the flags and the job file.
// A flag set on the command line or through its environment variable wins over the job file.
type options struct {
	inputs       []string
	format       string
	outputFormat string
	query        string
	argv         []string
	stdin        *string
	stdinFile    string
	maxProcs     int
	interactive  bool
	promptStdin  bool
	failFast     bool
	summary      bool
	report       string
	csv          formats.CSVOptions
}

func resolveOptions(cmd *cli.Command, job *jobfile.Job) (*options, error) {
	if job == nil {
		job = &jobfile.Job{}
	}

	str := func(flag, fromJob string) string {
		if cmd.IsSet(flag) || fromJob == "" {
			return cmd.String(flag)
		}

		return fromJob
	}

	boolean := func(flag string, fromJob bool) bool {
		if cmd.IsSet(flag) {
			return cmd.Bool(flag)
		}

		return fromJob
	}

	o := &options{
		inputs:       cmd.StringSlice(inputFlag),
		format:       str(formatFlag, job.Format),
		outputFormat: str(outputFormatFlag, job.OutputFormat),
		query:        str(queryFlag, job.Query),
		argv:         cmd.Args().Slice(),
		stdinFile:    str(stdinFileFlag, job.StdinFile),
		maxProcs:     cmd.Int(maxProcsFlag),
		interactive:  boolean(interactiveFlag, job.Interactive),
		promptStdin:  boolean(promptStdinFlag, job.PromptStdin),
		failFast:     boolean(failFastFlag, job.FailFast),
		summary:      boolean(summaryFlag, job.Summary),
		report:       str(reportFlag, job.Report),
	}

	if !cmd.IsSet(inputFlag) && len(job.Input) > 0 {
		o.inputs = job.Input
	}

	if len(o.inputs) == 0 {
		o.inputs = []string{source.StdinName}
	}

	if len(o.argv) == 0 {
		o.argv = job.Command
	}

	switch {
	case cmd.IsSet(stdinFlag):
		s := cmd.String(stdinFlag)
		o.stdin = &s
	case !cmd.IsSet(stdinFileFlag):
		o.stdin = job.Stdin
	}

	if o.stdin != nil && o.stdinFile != "" {
		return nil, ErrStdinConflict
	}

	if !cmd.IsSet(maxProcsFlag) && job.MaxProcs != nil {
		o.maxProcs = *job.MaxProcs
	}

	if o.promptStdin {
		o.interactive = true
	}

	csv, err := csvOptions(cmd, job.CSV)
	if err != nil {
		return nil, err
	}

	o.csv = csv

	return o, nil
}

func csvOptions(cmd *cli.Command, fromJob jobfile.CSV) (formats.CSVOptions, error) {
	var o formats.CSVOptions

	delim := fromJob.Delimiter
	if cmd.IsSet(csvDelimiterFlag) {
		delim = cmd.String(csvDelimiterFlag)
	}

	d, err := formats.ParseDelimiter(delim)
	if err != nil {
		return o, err
	}

	o.Delimiter = d

	comment := fromJob.Comment
	if cmd.IsSet(csvCommentFlag) {
		comment = cmd.String(csvCommentFlag)
	}

	if comment != "" {
		if utf8.RuneCountInString(comment) != 1 {
			return o, fmt.Errorf("--%s must be a single character, got %q", csvCommentFlag, comment)
		}

		o.Comment, _ = utf8.DecodeRuneInString(comment)
		if o.Comment == o.Delimiter {
			return o, fmt.Errorf("--%s must differ from the delimiter", csvCommentFlag)
		}
	}

	o.LazyQuotes = fromJob.LazyQuotes
	if cmd.IsSet(csvLazyQuotesFlag) {
		o.LazyQuotes = cmd.Bool(csvLazyQuotesFlag)
	}

	o.TrimLeadingSpace = fromJob.Trim
	if cmd.IsSet(csvTrimFlag) {
		o.TrimLeadingSpace = cmd.Bool(csvTrimFlag)
	}

	return o, nil
}
