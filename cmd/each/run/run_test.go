// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package run

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/arraypad/each/internal/color"
	"github.com/arraypad/each/internal/ctxlog"
	"github.com/arraypad/each/internal/exitcode"
	"github.com/arraypad/each/internal/runbatch"
	"github.com/arraypad/each/internal/source"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const peopleCSV = "name,age\nalice,30\nbob,41\n"

type result struct {
	code   int
	stdout string
	stderr string
}

func runEach(t *testing.T, stdin string, args ...string) result {
	t.Helper()

	return runEachLogging(t, io.Discard, stdin, args...)
}

func runEachLogging(t *testing.T, log io.Writer, stdin string, args ...string) result {
	t.Helper()

	prev := color.SetEnabled(false)
	t.Cleanup(func() { color.SetEnabled(prev) })

	ctx := ctxlog.New(context.Background(), slog.New(slog.NewTextHandler(log, &slog.HandlerOptions{Level: slog.LevelDebug})))

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}

	cmd := NewCommand(strings.NewReader(stdin), nil)
	cmd.Writer = stdout
	cmd.ErrWriter = stderr

	err := cmd.Run(ctx, SplitArgs(cmd, append([]string{"each"}, args...)))
	if err != nil && err.Error() != "" {
		stderr.WriteString(err.Error())
	}

	return result{code: ExitCode(err), stdout: stdout.String(), stderr: stderr.String()}
}

func stubFs(t *testing.T, files map[string]string) afero.Fs {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, content := range files {
		require.NoError(t, afero.WriteFile(fs, name, []byte(content), 0o644))
	}

	stubs := gostub.Stub(&source.FsFactory, func() afero.Fs { return fs })
	t.Cleanup(stubs.Reset)

	return fs
}

func TestSplitArgs(t *testing.T) {
	cmd := NewCommand(nil, nil)

	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{
			name: "flags then command",
			in:   []string{"each", "-P", "2", "grep", "-v", "{{x}}"},
			want: []string{"each", "-P", "2", "--", "grep", "-v", "{{x}}"},
		},
		{
			name: "bool flag takes no value",
			in:   []string{"each", "-p", "--fail-fast", "rm", "-rf", "{{dir}}"},
			want: []string{"each", "-p", "--fail-fast", "--", "rm", "-rf", "{{dir}}"},
		},
		{
			name: "flag with equals",
			in:   []string{"each", "--format=csv", "echo"},
			want: []string{"each", "--format=csv", "--", "echo"},
		},
		{
			name: "existing terminator",
			in:   []string{"each", "-i", "x.json", "--", "ls", "-l"},
			want: []string{"each", "-i", "x.json", "--", "ls", "-l"},
		},
		{
			name: "stdin input name is a value",
			in:   []string{"each", "-i", "-", "cat"},
			want: []string{"each", "-i", "-", "--", "cat"},
		},
		{
			name: "attached short value",
			in:   []string{"each", "-P2", "echo", "{{x}}"},
			want: []string{"each", "-P", "2", "--", "echo", "{{x}}"},
		},
		{
			name: "attached value on a long flag is left alone",
			in:   []string{"each", "--P2", "echo"},
			want: []string{"each", "--P2", "echo"},
		},
		{
			name: "no command",
			in:   []string{"each", "-F", "yaml"},
			want: []string{"each", "-F", "yaml"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitArgs(cmd, tt.in))
		})
	}
}

func TestExecute_AttachedShortFlagValue(t *testing.T) {
	res := runEach(t, `[{"x":"a"},{"x":"b"}]`, "-P1", "echo", "{{x}}")

	require.Equal(t, exitcode.OK, res.code, res.stderr)
	assert.Equal(t, "a\nb\n", res.stdout)
}

func TestConvert_CSVToJSON(t *testing.T) {
	res := runEach(t, peopleCSV, "-f", "csv")

	require.Equal(t, exitcode.OK, res.code, res.stderr)
	assert.JSONEq(t, `[{"name":"alice","age":"30"},{"name":"bob","age":"41"}]`, res.stdout)
	assert.Less(t, strings.Index(res.stdout, `"name"`), strings.Index(res.stdout, `"age"`), "column order is kept")
}

func TestConvert_CSVToYAMLStartsAtColumnZero(t *testing.T) {
	res := runEach(t, peopleCSV, "-f", "csv", "-F", "yaml")

	require.Equal(t, exitcode.OK, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "- name: alice\n"), res.stdout)
	assert.Contains(t, res.stdout, "\n- name: bob\n")
}

func TestConvert_GuessesFormatAndQueries(t *testing.T) {
	res := runEach(t, `[{"n":1,"tag":"a"},{"n":2,"tag":"b"}]`, "-q", "[?n > `1`]", "-F", "csv")

	require.Equal(t, exitcode.OK, res.code, res.stderr)
	assert.Equal(t, "n,tag\n2,b\n", res.stdout)
}

func TestConvert_UnknownOutputFormat(t *testing.T) {
	res := runEach(t, peopleCSV, "-f", "csv", "-F", "xml")

	assert.Equal(t, exitcode.Usage, res.code)
	assert.Contains(t, res.stderr, "unknown format")
}

func TestExecute_RendersArguments(t *testing.T) {
	res := runEach(t, peopleCSV, "-f", "csv", "echo", "-n", "{{name}}:{{age}};")

	require.Equal(t, exitcode.OK, res.code, res.stderr)
	assert.Equal(t, "alice:30;bob:41;", res.stdout)
	assert.Empty(t, res.stderr)
}

func TestExecute_OutputBeyondBufferIsWrittenInFull(t *testing.T) {
	stubs := gostub.Stub(&runbatch.FsFactory, afero.NewMemMapFs)
	t.Cleanup(stubs.Reset)

	res := runEach(t, `[{"n":"10000000"}]`, "head", "-c", "{{n}}", "/dev/zero")

	require.Equal(t, exitcode.OK, res.code, res.stderr)
	assert.Len(t, res.stdout, 10000000)
}

func TestExecute_LogsCommandAndQuery(t *testing.T) {
	log := &bytes.Buffer{}

	res := runEachLogging(t, log, peopleCSV, "-f", "csv", "-q", "[?name == 'bob']", "-s", "static", "cat")

	require.Equal(t, exitcode.OK, res.code, res.stderr)
	assert.Equal(t, "static", res.stdout)
	assert.Contains(t, log.String(), `msg="command compiled" path=cat stdin=true`)
	assert.Contains(t, log.String(), `query="[?name == 'bob']"`)
	assert.Contains(t, log.String(), "every row runs the same command")
}

func TestExecute_StdinTemplate(t *testing.T) {
	res := runEach(t, peopleCSV, "-f", "csv", "-s", "hi {{name}}\n", "cat")

	require.Equal(t, exitcode.OK, res.code, res.stderr)
	assert.Equal(t, "hi alice\nhi bob\n", res.stdout)
}

func TestExecute_StdinFile(t *testing.T) {
	stubFs(t, map[string]string{"/tmpl.txt": "{{age}}\n"})

	res := runEach(t, peopleCSV, "-f", "csv", "-S", "/tmpl.txt", "cat")

	require.Equal(t, exitcode.OK, res.code, res.stderr)
	assert.Equal(t, "30\n41\n", res.stdout)
}

func TestExecute_RowFailureExitsOne(t *testing.T) {
	res := runEach(t, "code\n0\n3\n0\n", "-f", "csv", "sh", "-c", "exit {{code}}")

	assert.Equal(t, exitcode.RowFailed, res.code)
	assert.Contains(t, res.stderr, "3 selected, 2 succeeded, 1 failed, 0 skipped, 0 not started")
	assert.Contains(t, res.stderr, "✗ #1 sh -c 'exit 3' (exit code: 3)")
}

func TestExecute_FailFastAborts(t *testing.T) {
	res := runEach(t, "code\n3\n0\n", "-f", "csv", "--fail-fast", "sh", "-c", "exit {{code}}")

	assert.Equal(t, exitcode.Aborted, res.code)
	assert.Contains(t, res.stderr, "1 not started (aborted: fail-fast)")
}

func TestExecute_MissingFieldIsRowScoped(t *testing.T) {
	res := runEach(t, `[{"x":"a"},{"y":"b"},{"x":"c"}]`, "echo", "{{x}}")

	assert.Equal(t, exitcode.RowFailed, res.code)
	assert.Equal(t, "a\nc\n", res.stdout)
	assert.Contains(t, res.stderr, "unresolved reference")
}

func TestExecute_Summary(t *testing.T) {
	res := runEach(t, peopleCSV, "-f", "csv", "--summary", "true")

	require.Equal(t, exitcode.OK, res.code)
	assert.Contains(t, res.stderr, "✓ #0 true")
	assert.Contains(t, res.stderr, "✓ #1 true")
}

func TestExecute_Report(t *testing.T) {
	fs := stubFs(t, nil)

	res := runEach(t, peopleCSV, "-f", "csv", "--report", "/out/report.json", "echo", "{{name}}")
	require.Equal(t, exitcode.OK, res.code, res.stderr)

	b, err := afero.ReadFile(fs, "/out/report.json")
	require.NoError(t, err)

	var rep struct {
		Selected  int `json:"selected"`
		Succeeded int `json:"succeeded"`
		Rows      []struct {
			Command string `json:"command"`
		} `json:"rows"`
	}

	require.NoError(t, json.Unmarshal(b, &rep))
	assert.Equal(t, 2, rep.Selected)
	assert.Equal(t, 2, rep.Succeeded)
	require.Len(t, rep.Rows, 2)
	assert.Equal(t, "echo alice", rep.Rows[0].Command)
}

func TestExecute_ReportListsRowErrors(t *testing.T) {
	fs := stubFs(t, nil)

	res := runEach(t, "code\n0\n3\n", "-f", "csv", "--report", "/report.json", "sh", "-c", "exit {{code}}")
	require.Equal(t, exitcode.RowFailed, res.code, res.stderr)

	b, err := afero.ReadFile(fs, "/report.json")
	require.NoError(t, err)

	var rep struct {
		Errors []string `json:"errors"`
	}

	require.NoError(t, json.Unmarshal(b, &rep))
	assert.Equal(t, []string{"row 1: non-zero exit code: 3"}, rep.Errors)
}

func TestErrors_ExitCodes(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
		want  int
	}{
		{name: "template syntax", stdin: peopleCSV, args: []string{"-f", "csv", "echo", "{{name"}, want: exitcode.Usage},
		{name: "unknown input format", stdin: peopleCSV, args: []string{"-f", "xml"}, want: exitcode.Usage},
		{name: "malformed json", stdin: `[{"a":`, args: []string{"-f", "json"}, want: exitcode.DataErr},
		{name: "bad query", stdin: peopleCSV, args: []string{"-f", "csv", "-q", "[?"}, want: exitcode.DataErr},
		{name: "query yields scalar", stdin: peopleCSV, args: []string{"-f", "csv", "-q", "length(@)"}, want: exitcode.DataErr},
		{name: "unguessable input", stdin: "   ", args: nil, want: exitcode.DataErr},
		{name: "missing input", args: []string{"-i", "/no/such/file.csv"}, want: exitcode.IOErr},
		{name: "stdin conflict", stdin: peopleCSV, args: []string{"-s", "x", "-S", "y", "cat"}, want: exitcode.Usage},
		{name: "bad delimiter", stdin: peopleCSV, args: []string{"--csv-delimiter", "ab"}, want: exitcode.Usage},
		{name: "unknown flag", args: []string{"--frobnicate"}, want: exitcode.Usage},
		{name: "csv quote char is not configurable", stdin: peopleCSV, args: []string{"-f", "csv", "--csv-quote", "'"}, want: exitcode.Usage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stubFs(t, nil)

			res := runEach(t, tt.stdin, tt.args...)
			assert.Equal(t, tt.want, res.code, res.stderr)
		})
	}
}

func TestJobFile(t *testing.T) {
	stubFs(t, map[string]string{
		"/job/people.csv": peopleCSV,
		"/job/each.yaml": `
input: [people.csv]
query: "[?name == 'bob']"
command: [echo, "{{name}}"]
max_procs: 2
`,
	})

	res := runEach(t, "", "-c", "/job/each.yaml")
	require.Equal(t, exitcode.OK, res.code, res.stderr)
	assert.Equal(t, "bob\n", res.stdout)

	// flags and positional arguments win over the job file
	res = runEach(t, "", "-c", "/job/each.yaml", "-q", "[?name == 'alice']", "echo", "hello", "{{age}}")
	require.Equal(t, exitcode.OK, res.code, res.stderr)
	assert.Equal(t, "hello 30\n", res.stdout)
}

func TestJobFile_Invalid(t *testing.T) {
	stubFs(t, map[string]string{"/each.yaml": "nonsense_key: 1\n"})

	res := runEach(t, "", "-c", "/each.yaml")
	assert.Equal(t, exitcode.Usage, res.code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitcode.OK, ExitCode(nil))
	assert.Equal(t, exitcode.Usage, ExitCode(assert.AnError))
}
