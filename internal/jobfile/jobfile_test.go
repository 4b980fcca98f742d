// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package jobfile

import (
	"context"
	"testing"

	"github.com/arraypad/each/internal/source"
	"github.com/prashantv/gostub"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	data := []byte(`
input: [hosts.csv, "-"]
format: csv
query: "[?enabled == 'true']"
command: [ssh, "{{host}}", uptime]
stdin: "hello {{host}}"
max_procs: 4
interactive: true
fail_fast: true
csv:
  delimiter: ";"
  lazy_quotes: true
`)

	j, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, []string{"hosts.csv", "-"}, j.Input)
	assert.Equal(t, "csv", j.Format)
	assert.Equal(t, "[?enabled == 'true']", j.Query)
	assert.Equal(t, []string{"ssh", "{{host}}", "uptime"}, j.Command)
	require.NotNil(t, j.Stdin)
	assert.Equal(t, "hello {{host}}", *j.Stdin)
	require.NotNil(t, j.MaxProcs)
	assert.Equal(t, 4, *j.MaxProcs)
	assert.True(t, j.Interactive)
	assert.True(t, j.FailFast)
	assert.False(t, j.Summary)
	assert.Equal(t, ";", j.CSV.Delimiter)
	assert.True(t, j.CSV.LazyQuotes)
}

func TestParse_Empty(t *testing.T) {
	j, err := Parse(nil)
	require.NoError(t, err)
	assert.Nil(t, j.MaxProcs)
	assert.Nil(t, j.Stdin)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{name: "unknown key", data: "parallel: 3\n", want: "parallel"},
		{name: "wrong type", data: "max_procs: lots\n", want: "int"},
		{name: "both stdin sources", data: "stdin: x\nstdin_file: y.txt\n", want: "mutually exclusive"},
		{name: "negative max procs", data: "max_procs: -1\n", want: "negative"},
		{name: "empty input", data: "input: ['']\n", want: "input 0 is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.ErrorIs(t, err, ErrInvalidJob)
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/jobs/deploy.yaml", []byte(`
input: [hosts.csv, /abs/other.json, "-", "https://example.com/x.json"]
stdin_file: payload.txt
report: out/report.json
`), 0o644))

	stubs := gostub.Stub(&source.FsFactory, func() afero.Fs { return fs })
	t.Cleanup(stubs.Reset)

	j, err := Load(context.Background(), "/jobs/deploy.yaml")
	require.NoError(t, err)

	assert.Equal(t, []string{"/jobs/hosts.csv", "/abs/other.json", "-", "https://example.com/x.json"}, j.Input)
	assert.Equal(t, "/jobs/payload.txt", j.StdinFile)
	assert.Equal(t, "out/report.json", j.Report)
}

func TestLoad_Missing(t *testing.T) {
	stubs := gostub.Stub(&source.FsFactory, func() afero.Fs { return afero.NewMemMapFs() })
	t.Cleanup(stubs.Reset)

	_, err := Load(context.Background(), "/nope.yaml")
	require.ErrorIs(t, err, ErrReadJob)
	assert.ErrorIs(t, err, source.ErrOpenInput)
}
