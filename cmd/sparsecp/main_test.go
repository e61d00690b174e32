package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/sparsecp/internal/config"
	"github.com/bamsammich/sparsecp/internal/engine"
	"github.com/bamsammich/sparsecp/internal/stats"
)

func testFlags(t *testing.T, opts *options, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	flags := cmd.Flags()
	flags.BoolVarP(&opts.force, "force", "f", false, "")
	flags.BoolVar(&opts.plain, "plain", false, "")
	flags.BoolVar(&opts.verify, "verify", false, "")
	flags.IntVarP(&opts.workers, "workers", "n", opts.workers, "")
	flags.Var(sizeFlag{n: &opts.bufferSize}, "buffer-size", "")
	flags.IntVar(&opts.pageSize, "page-size", opts.pageSize, "")
	require.NoError(t, flags.Parse(args))
	return cmd
}

func TestApplyConfigDefaults(t *testing.T) {
	yes := true
	four := 4
	page := 32
	buf := "1M"
	defaults := config.DefaultsConfig{
		Force:      &yes,
		Verify:     &yes,
		Workers:    &four,
		PageSize:   &page,
		BufferSize: &buf,
	}

	opts := options{workers: 1, pageSize: 256, bufferSize: 64 * 1024}
	cmd := testFlags(t, &opts)
	require.NoError(t, applyConfigDefaults(cmd, defaults, &opts))

	assert.True(t, opts.force)
	assert.True(t, opts.verify)
	assert.False(t, opts.plain)
	assert.Equal(t, 4, opts.workers)
	assert.Equal(t, 32, opts.pageSize)
	assert.Equal(t, 1024*1024, opts.bufferSize)
}

func TestApplyConfigDefaultsCLIWins(t *testing.T) {
	eight := 8
	buf := "1M"
	defaults := config.DefaultsConfig{Workers: &eight, BufferSize: &buf}

	opts := options{workers: 1, pageSize: 256, bufferSize: 64 * 1024}
	cmd := testFlags(t, &opts, "--workers", "2", "--buffer-size", "128K")
	require.NoError(t, applyConfigDefaults(cmd, defaults, &opts))

	assert.Equal(t, 2, opts.workers)
	assert.Equal(t, 128*1024, opts.bufferSize)
}

func TestApplyConfigDefaultsBadSize(t *testing.T) {
	bad := "lots"
	opts := options{}
	cmd := testFlags(t, &opts)
	assert.Error(t, applyConfigDefaults(cmd, config.DefaultsConfig{BufferSize: &bad}, &opts))
}

func TestSizeFlag(t *testing.T) {
	var n int
	f := sizeFlag{n: &n}

	require.NoError(t, f.Set("64K"))
	assert.Equal(t, 64*1024, n)
	assert.Equal(t, "65536", f.String())

	assert.Error(t, f.Set("0"))
	assert.Error(t, f.Set("2G"))
	assert.Error(t, f.Set("abc"))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(engine.Result{}))
	assert.Equal(t, 1, exitCode(engine.Result{
		Err:   errors.New("one failed"),
		Stats: stats.Snapshot{FilesCopied: 1, FilesFailed: 1},
	}))
	assert.Equal(t, 2, exitCode(engine.Result{
		Err:   errors.New("all failed"),
		Stats: stats.Snapshot{FilesFailed: 2},
	}))
}

func TestDuCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	var out, errOut bytes.Buffer
	duCmd.SetOut(&out)
	duCmd.SetErr(&errOut)
	t.Cleanup(func() {
		duCmd.SetOut(nil)
		duCmd.SetErr(nil)
	})
	require.NoError(t, duCmd.Flags().Set("bytes", "true"))
	t.Cleanup(func() { _ = duCmd.Flags().Set("bytes", "false") })

	require.NoError(t, runDu(duCmd, []string{path}))
	assert.Contains(t, out.String(), "5\t")
	assert.Contains(t, out.String(), path)

	err := runDu(duCmd, []string{filepath.Join(t.TempDir(), "missing")})
	var exitErr *exitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.code)
	assert.Contains(t, errOut.String(), "missing")
}

func TestFormatDuSize(t *testing.T) {
	assert.Equal(t, "4096", formatDuSize(4096, true))
	assert.Equal(t, "4.0 KiB", formatDuSize(4096, false))
}

func TestWriteExampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, writeExampleConfig(path))

	cfg, err := config.LoadFile(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Defaults.BufferSize)
	assert.Equal(t, "64K", *cfg.Defaults.BufferSize)
	require.NotNil(t, cfg.Defaults.PageSize)
	assert.Equal(t, 256, *cfg.Defaults.PageSize)

	opts := options{}
	cmd := testFlags(t, &opts)
	require.NoError(t, applyConfigDefaults(cmd, cfg.Defaults, &opts))
	assert.Equal(t, 64*1024, opts.bufferSize)
}
