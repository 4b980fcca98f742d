// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package run implements the each root command.
package run

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/arraypad/each/internal/command"
	"github.com/arraypad/each/internal/confirm"
	"github.com/arraypad/each/internal/ctxlog"
	"github.com/arraypad/each/internal/exitcode"
	"github.com/arraypad/each/internal/formats"
	"github.com/arraypad/each/internal/jobfile"
	"github.com/arraypad/each/internal/progress"
	"github.com/arraypad/each/internal/query"
	"github.com/arraypad/each/internal/record"
	"github.com/arraypad/each/internal/runbatch"
	"github.com/arraypad/each/internal/source"
	"github.com/arraypad/each/internal/template"
	"github.com/google/uuid"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

const (
	inputFlag          = "input"
	formatFlag         = "format"
	outputFormatFlag   = "output-format"
	queryFlag          = "query"
	stdinFlag          = "stdin"
	stdinFileFlag      = "stdin-file"
	maxProcsFlag       = "max-procs"
	interactiveFlag    = "interactive"
	promptStdinFlag    = "prompt-stdin"
	failFastFlag       = "fail-fast"
	summaryFlag        = "summary"
	reportFlag         = "report"
	csvDelimiterFlag   = "csv-delimiter"
	csvCommentFlag     = "csv-comment"
	csvLazyQuotesFlag  = "csv-lazy-quotes"
	csvTrimFlag        = "csv-trim"
	configFlag         = "config"
	defaultOutput      = "json"
	reporterBufferSize = 128
)

var (
	// ErrNoInput is returned when records would be read from an interactive terminal.
	ErrNoInput = errors.New("no input: pipe records on stdin or use --input")
	// ErrStdinConflict is returned when both --stdin and --stdin-file are given.
	ErrStdinConflict = errors.New("--stdin and --stdin-file are mutually exclusive")
	// ErrWriteOutput is returned when converted records or the report cannot be written.
	ErrWriteOutput = errors.New("failed to write output")
)

type runner struct {
	stdin io.Reader
	stop  <-chan struct{}
}

// NewCommand returns the root command. Records are read from stdin when no
// input is named; closing stop ends dispatch after the running rows finish.
func NewCommand(stdin io.Reader, stop <-chan struct{}) *cli.Command {
	r := &runner{stdin: stdin, stop: stop}

	return &cli.Command{
		Name:      "each",
		Usage:     "Build and execute command lines from CSV, JSON or YAML records",
		UsageText: "each [options] [command [args...]]",
		Description: `each reads records and runs the command once per record. Arguments are
templates: {{field}} is replaced with the value of field in the current record,
and {{a.b[0]}} takes any JMESPath expression. The command name itself is never
templated. Without a command the selected records are converted to the output
format and written to stdout.

Inputs may be local files, "-" for stdin, or URLs in Hashicorp's go-getter syntax.
See https://github.com/hashicorp/go-getter.

Exit codes: 0 ok, 1 a row failed, 2 aborted, 64 usage, 65 bad data, 74 I/O error.`,
		Writer:                    os.Stdout,
		ErrWriter:                 os.Stderr,
		DisableSliceFlagSeparator: true,
		HideHelpCommand:           true,
		Copyright:                 "Copyright (c) matt-FFFFFF 2025. All rights reserved.",
		Flags:                     flags(),
		Action:                    r.action,
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return cli.Exit(err.Error(), exitcode.Usage)
		},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
	}
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{
			Name:    inputFlag,
			Aliases: []string{"i"},
			Usage: "Read records from `FILE` (a path, - for stdin, or a go-getter URL). " +
				"Specify multiple times to concatenate inputs.",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:    formatFlag,
			Aliases: []string{"f"},
			Usage:   "Input format (json, yaml, csv). Guessed from the extension or content when omitted.",
		},
		&cli.StringFlag{
			Name:    outputFormatFlag,
			Aliases: []string{"F"},
			Usage:   "Output format when no command is given",
			Value:   defaultOutput,
			Sources: cli.EnvVars("EACH_OUTPUT_FORMAT"),
		},
		&cli.StringFlag{
			Name:    queryFlag,
			Aliases: []string{"q"},
			Usage:   "JMESPath `EXPR` selecting the records to process",
		},
		&cli.StringFlag{
			Name:    stdinFlag,
			Aliases: []string{"s"},
			Usage:   "Template rendered per record and written to the command's stdin",
		},
		&cli.StringFlag{
			Name:      stdinFileFlag,
			Aliases:   []string{"S"},
			Usage:     "Read the stdin template from `FILE`",
			TakesFile: true,
		},
		&cli.IntFlag{
			Name:    maxProcsFlag,
			Aliases: []string{"P"},
			Usage:   "Run up to `N` commands at once, 0 for the number of CPUs",
			Value:   1,
			Sources: cli.EnvVars("EACH_MAX_PROCS"),
		},
		&cli.BoolFlag{
			Name:    interactiveFlag,
			Aliases: []string{"p"},
			Usage:   "Ask before running each command",
		},
		&cli.BoolFlag{
			Name:  promptStdinFlag,
			Usage: "Show the rendered stdin when asking, implies --interactive",
		},
		&cli.BoolFlag{
			Name:  failFastFlag,
			Usage: "Stop starting new commands after the first failure",
		},
		&cli.BoolFlag{
			Name:  summaryFlag,
			Usage: "Always print the per-row summary to stderr",
		},
		&cli.StringFlag{
			Name:      reportFlag,
			Usage:     "Write a JSON report of the run to `FILE`",
			TakesFile: true,
		},
		&cli.StringFlag{
			Name:  csvDelimiterFlag,
			Usage: `CSV field delimiter, a single character or \t`,
		},
		&cli.StringFlag{
			Name:  csvCommentFlag,
			Usage: "Skip CSV lines starting with this character",
		},
		&cli.BoolFlag{
			Name:  csvLazyQuotesFlag,
			Usage: "Allow quotes in unquoted CSV fields",
		},
		&cli.BoolFlag{
			Name:  csvTrimFlag,
			Usage: "Trim leading space from CSV fields",
		},
		&cli.StringFlag{
			Name:      configFlag,
			Aliases:   []string{"c"},
			Usage:     "YAML job `FILE` providing defaults for these options",
			TakesFile: true,
		},
	}
}

func (r *runner) action(ctx context.Context, cmd *cli.Command) error {
	runID := uuid.New()
	ctx = ctxlog.With(ctx, "run", runID.String())
	logger := ctxlog.Logger(ctx)

	var job *jobfile.Job

	if name := cmd.String(configFlag); name != "" {
		j, err := jobfile.Load(ctx, name)
		if err != nil {
			return exitError(err)
		}

		job = j
	}

	opts, err := resolveOptions(cmd, job)
	if err != nil {
		return cli.Exit(err.Error(), exitcode.Usage)
	}

	logger.Debug("options", "inputs", opts.inputs, "format", opts.format, "query", opts.query, "argv", opts.argv)

	registry := formats.NewRegistry(formats.WithCSVOptions(opts.csv))

	var inputFormat formats.Format

	if opts.format != "" {
		if inputFormat, err = registry.Get(opts.format); err != nil {
			return cli.Exit(err.Error(), exitcode.Usage)
		}
	}

	selector, err := query.Compile(opts.query)
	if err != nil {
		return exitError(err)
	}

	if r.readsTerminal(opts.inputs) {
		return cli.Exit(ErrNoInput.Error(), exitcode.Usage)
	}

	// convert mode needs no command, so validate it before reading anything
	var builder *command.Builder

	if len(opts.argv) > 0 {
		stdinTmpl, err := r.stdinTemplate(ctx, opts)
		if err != nil {
			return exitError(err)
		}

		if builder, err = command.NewBuilder(opts.argv[0], opts.argv[1:], stdinTmpl); err != nil {
			return exitError(err)
		}

		logger.Debug("command compiled", "path", builder.Path(), "stdin", builder.HasStdin())

		if !builder.References() {
			logger.Warn("command has no field references, every row runs the same command", "command", builder.Label())
		}
	}

	var recs []*record.Record

	for _, name := range opts.inputs {
		got, err := r.readInput(ctx, registry, inputFormat, name)
		if err != nil {
			return exitError(err)
		}

		recs = append(recs, got...)
	}

	selected, err := selector.Select(recs)
	if err != nil {
		return exitError(err)
	}

	logger.Debug("records selected", "query", selector.String(), "read", len(recs), "selected", len(selected))

	if builder == nil {
		return r.convert(cmd, registry, opts.outputFormat, selected)
	}

	return r.execute(ctx, cmd, opts, builder, runID, record.Rows(selected))
}

func (r *runner) readsTerminal(inputs []string) bool {
	f, ok := r.stdin.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) { //nolint:gosec
		return false
	}

	for _, in := range inputs {
		if source.IsStdin(in) {
			return true
		}
	}

	return false
}

func (r *runner) stdinTemplate(ctx context.Context, opts *options) (*string, error) {
	if opts.stdinFile == "" {
		return opts.stdin, nil
	}

	b, err := source.ReadFile(ctx, opts.stdinFile)
	if err != nil {
		return nil, err
	}

	s := string(b)

	return &s, nil
}

func (r *runner) readInput(
	ctx context.Context, registry *formats.Registry, f formats.Format, name string,
) ([]*record.Record, error) {
	in, err := source.Open(ctx, name, r.stdin)
	if err != nil {
		return nil, err
	}

	defer in.Close() //nolint:errcheck

	if f == nil {
		head, err := in.Peek(source.SniffSize)
		if err != nil {
			return nil, errors.Join(source.ErrOpenInput, err)
		}

		if f, err = registry.Guess(in.Ext(), head); err != nil {
			return nil, fmt.Errorf("%s: %w: %w", in.Name, formats.ErrParse, err)
		}
	}

	ctxlog.Debug(ctx, "reading input", "name", in.Name, "format", f.ID())

	recs, err := f.Parse(in)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", in.Name, err)
	}

	return recs, nil
}

func (r *runner) convert(cmd *cli.Command, registry *formats.Registry, id string, recs []*record.Record) error {
	f, err := registry.Get(id)
	if err != nil {
		return cli.Exit(err.Error(), exitcode.Usage)
	}

	if err := f.Write(cmd.Writer, recs); err != nil {
		return cli.Exit(errors.Join(ErrWriteOutput, err).Error(), exitcode.IOErr)
	}

	return nil
}

func (r *runner) execute(
	ctx context.Context, cmd *cli.Command, opts *options, builder *command.Builder, runID uuid.UUID, rows []record.Row,
) error {
	var confirmer confirm.Confirmer

	if opts.interactive {
		c, err := confirm.New()
		if err != nil {
			return cli.Exit(err.Error(), exitcode.Usage)
		}

		defer c.Close() //nolint:errcheck

		confirmer = c
	}

	reporter := progress.NewChannelReporter(reporterBufferSize)
	reporter.Listen(ctx, progress.NewLogListener(ctx))

	s := &runbatch.Scheduler{
		Builder:     builder,
		MaxProcs:    opts.maxProcs,
		Confirmer:   confirmer,
		PromptStdin: opts.promptStdin,
		FailFast:    opts.failFast,
		Stdout:      cmd.Writer,
		Stderr:      cmd.ErrWriter,
		Reporter:    reporter,
		Stop:        r.stop,
		RunID:       runID,
	}

	sum, runErr := s.Run(ctx, rows)

	reporter.Close()

	if sum.Failed() > 0 || sum.Aborted || opts.summary {
		if err := sum.WriteText(cmd.ErrWriter, nil); err != nil {
			ctxlog.Warn(ctx, "failed to write summary", "error", err)
		}
	}

	if opts.report != "" {
		if err := writeReport(opts.report, sum); err != nil {
			return cli.Exit(err.Error(), exitcode.IOErr)
		}
	}

	if runErr != nil {
		return cli.Exit(runErr.Error(), exitcode.IOErr)
	}

	ctxlog.Info(ctx, "run finished",
		"selected", sum.Selected, "succeeded", sum.Succeeded(), "failed", sum.Failed(),
		"skipped", sum.Skipped(), "notStarted", sum.NotStarted())

	if err := sum.Err(); err != nil {
		ctxlog.Debug(ctx, "row errors", "error", err)
	}

	if code := sum.ExitCode(); code != exitcode.OK {
		return cli.Exit("", code)
	}

	return nil
}

func writeReport(name string, sum *runbatch.Summary) error {
	f, err := source.FsFactory().Create(name)
	if err != nil {
		return errors.Join(ErrWriteOutput, err)
	}

	if err := sum.WriteJSON(f); err != nil {
		_ = f.Close()
		return errors.Join(ErrWriteOutput, err)
	}

	if err := f.Close(); err != nil {
		return errors.Join(ErrWriteOutput, err)
	}

	return nil
}

// exitError maps an error to the exit code for its category.
func exitError(err error) error {
	code := exitcode.RowFailed

	switch {
	case errors.Is(err, formats.ErrParse), errors.Is(err, query.ErrQuery):
		code = exitcode.DataErr
	case errors.Is(err, template.ErrTemplate), errors.Is(err, jobfile.ErrInvalidJob),
		errors.Is(err, command.ErrNoCommand):
		code = exitcode.Usage
	case errors.Is(err, source.ErrOpenInput), errors.Is(err, jobfile.ErrReadJob):
		code = exitcode.IOErr
	}

	return cli.Exit(err.Error(), code)
}
