package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/tracebench/config"
	"github.com/weiihann/tracebench/harness"
)

// fakeExecutor plays both the tracer and the workload: traced runs leave an
// artifact behind, and every run prints a time report.
type fakeExecutor struct {
	artifact string
	calls    int
	failAt   int
}

func (f *fakeExecutor) Run(_ context.Context, args []string) (string, error) {
	f.calls++

	if f.failAt > 0 && f.calls == f.failAt {
		return "head: write error", &harness.ExecutionFailure{
			Args:     args,
			ExitCode: 1,
			Output:   "head: write error",
		}
	}

	if args[0] == "pmemtrace" {
		trace := bytes.Repeat([]byte("x"), 100*f.calls)
		if err := os.WriteFile(f.artifact, trace, 0o644); err != nil {
			return "", err
		}
	}

	return fmt.Sprintf("real\t0m%d.%03ds\n", f.calls%3, f.calls), nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Elevation = nil
	cfg.Tracer.ArtifactPath = filepath.Join(t.TempDir(), "randwrite.temp")

	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunBenchmarkDeterministic(t *testing.T) {
	cfg := testConfig(t)

	var first, second bytes.Buffer

	err := runBenchmark(context.Background(), discardLogger(), cfg,
		&fakeExecutor{artifact: cfg.Tracer.ArtifactPath}, &first)
	require.NoError(t, err)

	err = runBenchmark(context.Background(), discardLogger(), cfg,
		&fakeExecutor{artifact: cfg.Tracer.ArtifactPath}, &second)
	require.NoError(t, err)

	assert.Equal(t, first.String(), second.String())

	output := first.String()
	traced := strings.Index(output, "Running command with pmemtrace...")
	untraced := strings.Index(output, "Running command without pmemtrace...")
	require.GreaterOrEqual(t, traced, 0)
	assert.Greater(t, untraced, traced)

	lines := strings.Split(output, "\n")
	var sizes []string
	for _, line := range lines[2:6] {
		sizes = append(sizes, strings.Fields(line)[0])
	}
	assert.Equal(t, []string{"4M", "8M", "16M", "32M"}, sizes)
	assert.Contains(t, lines[2], "trace file size: 300")
}

func TestRunBenchmarkAbortsOnFailure(t *testing.T) {
	cfg := testConfig(t)
	fake := &fakeExecutor{artifact: cfg.Tracer.ArtifactPath, failAt: 5}

	var out bytes.Buffer
	err := runBenchmark(context.Background(), discardLogger(), cfg, fake, &out)
	require.Error(t, err)

	assert.Contains(t, err.Error(), "traced run of 8M, attempt 2/3")
	assert.Empty(t, out.String(), "no partial report")
	assert.Equal(t, 5, fake.calls)
}

func TestRunBenchmarkRejectsUnknownFormat(t *testing.T) {
	cfg := testConfig(t)
	cfg.Format = "csv"

	err := runBenchmark(context.Background(), discardLogger(), cfg,
		&fakeExecutor{artifact: cfg.Tracer.ArtifactPath}, io.Discard)
	assert.Error(t, err)
}

// TestRunBenchmarkEndToEnd runs the real workload through bash with a
// stand-in tracer script.
func TestRunBenchmarkEndToEnd(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}
	if _, err := os.Stat("/dev/urandom"); err != nil {
		t.Skip("/dev/urandom not available")
	}

	dir := t.TempDir()
	artifact := filepath.Join(dir, "trace.out")
	tracer := filepath.Join(dir, "fake-tracer")

	script := `#!/usr/bin/env bash
shift
printf 'sampled' > '` + artifact + `'
exec "${@:1:$#-4}"
`
	require.NoError(t, os.WriteFile(tracer, []byte(script), 0o755))

	cfg := config.Default()
	cfg.Sizes = []string{"1K", "2K"}
	cfg.Repetitions = 2
	cfg.Elevation = nil
	cfg.TargetPath = filepath.Join(dir, "rand_file.txt")
	cfg.Tracer.Binary = tracer
	cfg.Tracer.ArtifactPath = artifact
	cfg.Format = "json"

	runner := harness.NewRunner(nil, 0, discardLogger())

	var out bytes.Buffer
	require.NoError(t, runBenchmark(context.Background(), discardLogger(), cfg, runner, &out))

	assert.Contains(t, out.String(), `"artifact_bytes": 7`)
	assert.Contains(t, out.String(), `"config": "untraced"`)

	info, err := os.Stat(cfg.TargetPath)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), info.Size())
}

func TestConfigCommand(t *testing.T) {
	root := newRootCmd()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"config", "--repetitions", "5", "--sizes", "1K,2K"})

	require.NoError(t, root.Execute())

	assert.Contains(t, out.String(), "repetitions: 5")
	assert.Contains(t, out.String(), "- 1K")
	assert.Contains(t, out.String(), "sample_rate: 60")
}

func TestConfigCommandInvalid(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"config", "--duty-cycle", "2"})

	assert.Error(t, root.Execute())
}

func TestConfigCommandRejectsUnknownFormat(t *testing.T) {
	root := newRootCmd()
	root.SetOut(io.Discard)
	root.SetArgs([]string{"config", "--format", "csv"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := newLogger(&buf, "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", slog.String("size", "4M"))

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "4M")

	_, err = newLogger(&buf, "loud")
	assert.Error(t, err)
}
