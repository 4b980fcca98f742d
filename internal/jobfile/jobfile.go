// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package jobfile reads a YAML job file. A job file supplies defaults for the
// command line: every key mirrors a flag, and flags given on the command line win.
//
//	input: [hosts.csv]
//	query: "[?enabled == 'true']"
//	command: [ssh, "{{host}}", uptime]
//	max_procs: 4
//	csv:
//	  delimiter: ";"
package jobfile

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/arraypad/each/internal/source"
	"github.com/goccy/go-yaml"
)

var (
	// ErrReadJob is returned when the job file cannot be read.
	ErrReadJob = errors.New("failed to read job file")
	// ErrInvalidJob is returned when the job file is not valid.
	ErrInvalidJob = errors.New("invalid job file")
)

// Job is the content of a job file.
type Job struct {
	Input        []string `yaml:"input"`
	Format       string   `yaml:"format"`
	OutputFormat string   `yaml:"output_format"`
	Query        string   `yaml:"query"`
	Command      []string `yaml:"command"`
	Stdin        *string  `yaml:"stdin"`
	StdinFile    string   `yaml:"stdin_file"`
	MaxProcs     *int     `yaml:"max_procs"`
	Interactive  bool     `yaml:"interactive"`
	PromptStdin  bool     `yaml:"prompt_stdin"`
	FailFast     bool     `yaml:"fail_fast"`
	Summary      bool     `yaml:"summary"`
	Report       string   `yaml:"report"`
	CSV          CSV      `yaml:"csv"`
}

// CSV holds the CSV reader options.
type CSV struct {
	Delimiter  string `yaml:"delimiter"`
	Comment    string `yaml:"comment"`
	LazyQuotes bool   `yaml:"lazy_quotes"`
	Trim       bool   `yaml:"trim"`
}

// Parse decodes a job file. Unknown keys are rejected.
func Parse(data []byte) (*Job, error) {
	j := &Job{}

	if err := yaml.UnmarshalWithOptions(data, j, yaml.Strict()); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidJob, yaml.FormatError(err, false, true))
	}

	if err := j.validate(); err != nil {
		return nil, err
	}

	return j, nil
}

// Load reads and parses the named job file, which may be local or a go-getter URL.
// Relative input and stdin_file paths in a local job file are resolved against its directory.
func Load(ctx context.Context, name string) (*Job, error) {
	data, err := source.ReadFile(ctx, name)
	if err != nil {
		return nil, errors.Join(ErrReadJob, err)
	}

	j, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	if !source.IsRemote(name) {
		j.resolve(filepath.Dir(name))
	}

	return j, nil
}

func (j *Job) validate() error {
	if j.Stdin != nil && j.StdinFile != "" {
		return fmt.Errorf("%w: stdin and stdin_file are mutually exclusive", ErrInvalidJob)
	}

	if j.MaxProcs != nil && *j.MaxProcs < 0 {
		return fmt.Errorf("%w: max_procs must not be negative", ErrInvalidJob)
	}

	for i, in := range j.Input {
		if in == "" {
			return fmt.Errorf("%w: input %d is empty", ErrInvalidJob, i)
		}
	}

	return nil
}

func (j *Job) resolve(base string) {
	for i, in := range j.Input {
		j.Input[i] = resolvePath(base, in)
	}

	j.StdinFile = resolvePath(base, j.StdinFile)
}

func resolvePath(base, p string) string {
	if p == "" || source.IsStdin(p) || source.IsRemote(p) || filepath.IsAbs(p) {
		return p
	}

	return filepath.Join(base, p)
}
