package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/xcp/internal/config"
	"github.com/bamsammich/xcp/internal/engine"
	"github.com/bamsammich/xcp/internal/event"
	"github.com/bamsammich/xcp/internal/stats"
)

func TestControlFlag(t *testing.T) {
	f := controlFlag{c: event.Skip}
	assert.Equal(t, "skip", f.String())
	assert.Equal(t, "action", f.Type())

	require.NoError(t, f.Set("Retry"))
	assert.Equal(t, event.Retry, f.c)
	require.NoError(t, f.Set("abort"))
	assert.Equal(t, event.Abort, f.c)

	require.Error(t, f.Set("ignore"))
	assert.Equal(t, event.Abort, f.c, "failed Set keeps the old value")
}

func TestApplyConfigDefaults(t *testing.T) {
	onError, retries, verify, bw := "retry", 7, true, "10M"
	defaults := config.DefaultsConfig{
		OnError: &onError,
		Retries: &retries,
		Verify:  &verify,
		BWLimit: &bw,
	}

	cmd := newCopyCmd()
	require.NoError(t, cmd.Flags().Parse([]string{"--retries", "2"}))
	opts := &copyOptions{onError: controlFlag{c: event.Skip}, retries: 2}

	require.NoError(t, applyConfigDefaults(cmd, defaults, opts))
	assert.Equal(t, event.Retry, opts.onError.c)
	assert.Equal(t, 2, opts.retries, "explicit flag wins")
	assert.True(t, opts.verify)
	assert.Equal(t, "10M", opts.bwLimit)
	assert.False(t, opts.preserve)
}

func TestExitFor(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	code := func(err error) int {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		require.NoError(t, err)
		return 0
	}

	assert.Equal(t, 0, code(exitFor(logger, stats.Summary{FilesDone: 3, FilesTotal: 3}, nil)))
	assert.Equal(t, 0, code(exitFor(logger, stats.Summary{}, nil)))
	assert.Equal(t, 1, code(exitFor(logger, stats.Summary{FilesDone: 2, FilesTotal: 3}, nil)))
	assert.Equal(t, 2, code(exitFor(logger, stats.Summary{FilesTotal: 3}, nil)))
	assert.Equal(t, 1, code(exitFor(logger, stats.Summary{FilesDone: 1, FilesTotal: 3}, engine.ErrAborted)))
	assert.Equal(t, 2, code(exitFor(logger, stats.Summary{FilesTotal: 3}, context.Canceled)))
}

func TestRootVersion(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--version"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "xcp dev\n", out.String())
}

func TestCopyNeedsSourceAndDestination(t *testing.T) {
	assert.Equal(t, 2, run([]string{"cp", "only-one"}))
}

func TestCopyEndToEnd(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "sub", "b.txt"), []byte("bravo"), 0o600))
	logPath := filepath.Join(dir, "run.log")

	code := run([]string{"cp", "-q", "-p", "--verify", "--log", logPath, src, dst})
	require.Equal(t, 0, code)

	got, err := os.ReadFile(filepath.Join(dst, "src", "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "alpha", string(got))

	fi, err := os.Stat(filepath.Join(dst, "src", "sub", "b.txt"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), fi.Mode().Perm())

	logData, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logData), `"msg":"xcp.event"`)
}

func TestCopyPrintsSummaryToStdout(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.txt"), []byte("bravo"), 0o644))

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs([]string{"cp", "--no-progress", src, filepath.Join(dir, "dst")})
	require.NoError(t, cmd.Execute())

	assert.Regexp(t, `^copied 2 files \(10 B\) in .+/s\n$`, stdout.String())
	assert.NotContains(t, stderr.String(), "copied 2 files")
}

func TestCopySkipGivesPartialExit(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.MkdirAll(src, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("alpha"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "b.txt"), []byte("bravo"), 0o644))
	// A directory in the way of a.txt makes its rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(dst, "src", "a.txt", "x"), 0o755))

	assert.Equal(t, 1, run([]string{"cp", "-q", "--on-error", "skip", src, dst}))
	assert.Equal(t, 2, run([]string{"cp", "-q", "--on-error", "abort", filepath.Join(src, "a.txt"), filepath.Join(dst, "src")}))
}

func TestCopyRejectsBadSizes(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	assert.Equal(t, 2, run([]string{"cp", "-q", "--bwlimit", "fast", dir, filepath.Join(dir, "out")}))
	assert.Equal(t, 2, run([]string{"cp", "-q", "--chunk-size", "0", dir, filepath.Join(dir, "out")}))
	assert.Equal(t, 2, run([]string{"cp", "-q", "--on-error", "ignore", dir, filepath.Join(dir, "out")}))
}
