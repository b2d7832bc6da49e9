package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) *CLI {
	t.Helper()
	cli := &CLI{logOut: io.Discard}
	parser, err := kong.New(cli, kong.Name("gwcrelease"), kong.Vars{"version": "test"})
	require.NoError(t, err)
	_, err = parser.Parse(args)
	require.NoError(t, err)
	return cli
}

func TestOptionsFromFlags(t *testing.T) {
	dir := t.TempDir()
	cli := parse(t, "-l", "1.8.1", "-s", "1.8", "-g", "14.1",
		"--branch", "1.8.x", "-d", dir, "--type", "stable", "update", "build")

	opts := cli.options()
	assert.Equal(t, "1.8.1", opts.LongVersion)
	assert.Equal(t, "1.8", opts.ShortVersion)
	assert.Equal(t, "14.1", opts.GTVersion)
	assert.Equal(t, "1.8.x", opts.Branch)
	assert.Equal(t, dir, opts.Directory)
	assert.Equal(t, "stable", opts.Type)
	assert.Empty(t, opts.UpstreamRemote, "unset flags must not shadow user defaults")
	assert.Equal(t, []string{"update", "build"}, cli.Commands)
	assert.NotEmpty(t, cli.runID)
}

func TestResolve_UserDefaultsUnderFlags(t *testing.T) {
	dir := t.TempDir()
	defaults := filepath.Join(dir, "user_defaults.yml")
	require.NoError(t, os.WriteFile(defaults, []byte("branch: 1.7.x\nsf_user: jdoe\n"), 0o600))

	cli := parse(t, "--user-defaults", defaults, "--branch", "1.8.x", "-d", dir, "reset")
	opts, err := cli.resolve()
	require.NoError(t, err)
	assert.Equal(t, "1.8.x", opts.Branch)
	assert.Equal(t, "jdoe", opts.SFUser)
	assert.Equal(t, "origin", opts.UpstreamRemote)
}

func TestExecute_UnknownCommandIsConfigError(t *testing.T) {
	cli := parse(t, "-d", t.TempDir(), "relase")

	var stdout, stderr bytes.Buffer
	code := cli.Execute(context.Background(), &stdout, &stderr)
	assert.Equal(t, 7, code)
	assert.Contains(t, stderr.String(), "unknown command")
	assert.Contains(t, stderr.String(), "relase")
}

func TestExecute_HistoryWithJournalAndMetrics(t *testing.T) {
	dir := t.TempDir()
	journalPath := filepath.Join(dir, "runs.db")
	metricsPath := filepath.Join(dir, "gwcrelease.prom")
	args := []string{"-d", dir, "--journal", journalPath, "--metrics-file", metricsPath, "history"}

	var stdout, stderr bytes.Buffer
	code := parse(t, args...).Execute(context.Background(), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "No runs recorded.")

	metrics, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "gwcrelease_run_outcomes_total")

	stdout.Reset()
	first := parse(t, args...)
	code = first.Execute(context.Background(), &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())
	assert.Contains(t, stdout.String(), "RUN")
	assert.Contains(t, stdout.String(), "history")
	assert.NotContains(t, stdout.String(), first.runID, "the current run is not listed")
}
