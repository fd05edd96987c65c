package harness

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/tracebench/workload"
)

func testBuilder() Builder {
	return Builder{
		Shell:     "bash",
		Source:    "/dev/urandom",
		Target:    "/mnt/pmem_emul/rand_file.txt",
		Elevation: []string{"sudo"},
		Tracer: Tracer{
			Binary:     "pmemtrace",
			Subcommand: "randwrite",
			SampleRate: 60,
			DutyCycle:  0.98,
		},
	}
}

func TestBuildUntraced(t *testing.T) {
	size := workload.Size{Label: "4M", Bytes: 4 << 20}

	got, err := testBuilder().Build(Untraced, size)
	require.NoError(t, err)

	want := []string{
		"bash", "-c",
		"time head -c 4194304 </dev/urandom >/mnt/pmem_emul/rand_file.txt",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("untraced argv mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTraced(t *testing.T) {
	size := workload.Size{Label: "8M", Bytes: 8 << 20}

	got, err := testBuilder().Build(Traced, size)
	require.NoError(t, err)

	want := []string{
		"pmemtrace", "randwrite",
		"sudo",
		"bash", "-c",
		"time head -c 8388608 </dev/urandom >/mnt/pmem_emul/rand_file.txt",
		"--sample-rate", "60",
		"--duty-cycle", "0.98",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("traced argv mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildTracedWithoutSubcommandOrElevation(t *testing.T) {
	b := testBuilder()
	b.Elevation = nil
	b.Tracer.Subcommand = ""
	b.Tracer.DutyCycle = 1

	got, err := b.Build(Traced, workload.Size{Label: "1K", Bytes: 1024})
	require.NoError(t, err)

	assert.Equal(t, []string{"pmemtrace", "bash", "-c"}, got[:3])
	assert.Equal(t, []string{"--sample-rate", "60", "--duty-cycle", "1"}, got[len(got)-4:])
}

func TestBuildErrors(t *testing.T) {
	size := workload.Size{Label: "1K", Bytes: 1024}

	noShell := testBuilder()
	noShell.Shell = ""
	_, err := noShell.Build(Untraced, size)
	assert.Error(t, err)

	noTracer := testBuilder()
	noTracer.Tracer.Binary = ""
	_, err = noTracer.Build(Traced, size)
	assert.Error(t, err)

	_, err = noTracer.Build(Untraced, size)
	assert.NoError(t, err, "untraced runs do not need a tracer")

	_, err = testBuilder().Build(RunConfig(7), size)
	assert.Error(t, err)
}

func TestRunConfigOrderAndNames(t *testing.T) {
	assert.Equal(t, []RunConfig{Traced, Untraced}, RunConfigs())
	assert.Equal(t, "traced", Traced.String())
	assert.Equal(t, "untraced", Untraced.String())

	b, err := json.Marshal(map[string]RunConfig{"config": Traced})
	require.NoError(t, err)
	assert.JSONEq(t, `{"config":"traced"}`, string(b))
}
