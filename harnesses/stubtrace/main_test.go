package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	inv, err := parseArgs([]string{
		"randwrite", "sudo", "bash", "-c", "time head -c 4M </dev/urandom >/mnt/x",
		"--sample-rate", "60", "--duty-cycle", "0.98",
	})
	require.NoError(t, err)

	assert.Equal(t, "randwrite", inv.Workload)
	assert.Equal(t, []string{"sudo", "bash", "-c", "time head -c 4M </dev/urandom >/mnt/x"}, inv.Command)
	assert.Equal(t, 60, inv.SampleRate)
	assert.Equal(t, 0.98, inv.DutyCycle)
}

func TestParseArgsFlagsInAnyOrder(t *testing.T) {
	inv, err := parseArgs([]string{
		"w", "true", "--duty-cycle", "0.5", "--sample-rate", "10",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"true"}, inv.Command)
	assert.Equal(t, 10, inv.SampleRate)
	assert.Equal(t, 0.5, inv.DutyCycle)
}

func TestParseArgsDefaults(t *testing.T) {
	inv, err := parseArgs([]string{"w", "echo", "hi"})
	require.NoError(t, err)

	assert.Equal(t, []string{"echo", "hi"}, inv.Command)
	assert.Equal(t, 60, inv.SampleRate)
	assert.Equal(t, 1.0, inv.DutyCycle)
}

func TestParseArgsErrors(t *testing.T) {
	tests := [][]string{
		nil,
		{"w"},
		{"w", "--sample-rate", "10"},
		{"w", "true", "--sample-rate", "zero"},
		{"w", "true", "--sample-rate", "-1"},
		{"w", "true", "--sample-rate", "10001"},
		{"w", "true", "--sample-rate", "2000000000"},
		{"w", "true", "--duty-cycle", "1.5"},
	}

	for _, args := range tests {
		_, err := parseArgs(args)
		assert.Error(t, err, "args %q", args)
	}
}

func TestParseArgsMaxSampleRate(t *testing.T) {
	inv, err := parseArgs([]string{"w", "true", "--sample-rate", "10000"})
	require.NoError(t, err)

	assert.Positive(t, time.Second/time.Duration(inv.SampleRate))
}

func TestArtifactPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("STUBTRACE_DIR", dir)

	assert.Equal(t, filepath.Join(dir, "randwrite.temp"), artifactPath("randwrite"))
}

func TestSampling(t *testing.T) {
	assert.True(t, sampling(100*time.Millisecond, 0.5))
	assert.False(t, sampling(600*time.Millisecond, 0.5))
	assert.True(t, sampling(1100*time.Millisecond, 0.5))
	assert.True(t, sampling(999*time.Millisecond, 1))
}
