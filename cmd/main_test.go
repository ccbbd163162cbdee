package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/reportree"
	"github.com/ethereum-optimism/infra/reportree/exitcodes"
	"github.com/ethereum-optimism/infra/reportree/types"
)

const passingReport = `{
  "uid": "plan", "name": "Plan", "category": "testplan",
  "entries": [
    {"uid": "mt", "name": "MT", "category": "multitest", "entries": [
      {"uid": "S", "name": "S", "category": "testsuite", "entries": [
        {"uid": "a", "name": "alpha", "category": "testcase", "status": "passed", "entries": []}
      ]}
    ]}
  ]
}`

const failingReport = `{
  "uid": "plan", "name": "Plan", "category": "testplan",
  "entries": [
    {"uid": "mt-0", "name": "MT - part(0/2)", "category": "multitest", "part": [0, 2], "entries": [
      {"uid": "a", "name": "alpha", "category": "testcase", "status": "failed", "entries": []}
    ]},
    {"uid": "mt-1", "name": "MT - part(1/2)", "category": "multitest", "part": [1, 2], "entries": [
      {"uid": "b", "name": "beta", "category": "testcase", "status": "passed", "entries": []}
    ]}
  ]
}`

const conflictingReport = `{
  "uid": "plan", "name": "Plan", "category": "testplan",
  "entries": [
    {"uid": "mt-0", "name": "MT - part(0/2)", "category": "multitest", "part": [0, 2], "entries": []},
    {"uid": "mt-1", "name": "MT - part(0/2)", "category": "multitest", "part": [0, 2], "entries": []}
  ]
}`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

// run runs the app in-process and returns its output and error
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = io.Discard
	app.ExitErrHandler = func(*cli.Context, error) {}
	err := app.RunContext(context.Background(), append([]string{"reportree"}, args...))
	return out.String(), err
}

var failedPlan = types.MustEntry(types.CategoryTestplan, "plan", "Plan",
	types.WithStatus(types.StatusFailed), types.WithCounter(types.Counter{Failed: 1, Total: 1}))

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, exitcodes.Success},
		{"report failure", reportree.NewReportFailureError(failedPlan), exitcodes.ReportFailure},
		{"runtime error", reportree.NewRuntimeError(errors.New("boom")), exitcodes.RuntimeErr},
		{"wrapped runtime error", fmt.Errorf("show: %w", reportree.NewRuntimeError(errors.New("boom"))), exitcodes.RuntimeErr},
		{"cli exit", cli.Exit("usage", 3), 3},
		{"unclassified", errors.New("flag provided but not defined"), exitcodes.RuntimeErr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestShowCommand(t *testing.T) {
	t.Run("passing report", func(t *testing.T) {
		out, err := run(t, "show", "--format", "text", writeFile(t, passingReport))
		require.NoError(t, err)
		assert.Contains(t, out, "alpha")
	})

	t.Run("failing report", func(t *testing.T) {
		out, err := run(t, "show", "--format", "text", "--merge", "--report", writeFile(t, failingReport))
		require.Error(t, err)
		assert.Equal(t, exitcodes.ReportFailure, exitCode(err))
		assert.Contains(t, out, "MT")
		assert.NotContains(t, out, "part(0/2)")
	})

	t.Run("merge conflict", func(t *testing.T) {
		_, err := run(t, "show", "--merge", writeFile(t, conflictingReport))
		require.Error(t, err)
		assert.Equal(t, exitcodes.RuntimeErr, exitCode(err))
	})

	t.Run("missing report", func(t *testing.T) {
		_, err := run(t, "show")
		require.Error(t, err)
		assert.Equal(t, exitcodes.RuntimeErr, exitCode(err))
	})

	t.Run("bad status filter", func(t *testing.T) {
		_, err := run(t, "show", "--status", "Fp", writeFile(t, passingReport))
		require.Error(t, err)
		assert.Equal(t, exitcodes.RuntimeErr, exitCode(err))
	})
}

func TestSplitCommand(t *testing.T) {
	outDir := t.TempDir()
	out, err := run(t, "split", "--out-dir", outDir, writeFile(t, failingReport))
	require.NoError(t, err)
	assert.Contains(t, out, filepath.Join(outDir, "plan", "report.json"))
	assert.FileExists(t, filepath.Join(outDir, "plan", "attachments", "assertions_mt-0.json"))
	assert.FileExists(t, filepath.Join(outDir, "plan", "attachments", "assertions_mt-1.json"))
}
