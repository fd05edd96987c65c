// Stubtrace stands in for pmemtrace on machines without it. It runs the
// wrapped command and, while the command runs, appends a sample record to
// <tmp>/<workload>.temp at the requested rate for the requested fraction of
// every second, so the trace grows with the workload's run time.
//
// Usage mirrors the real tracer:
//
//	stubtrace <workload> <command> [args...] --sample-rate N --duty-cycle F
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"time"
)

type invocation struct {
	Workload   string
	Command    []string
	SampleRate int
	DutyCycle  float64
}

// maxSampleRate keeps the sample interval at 100µs or more.
const maxSampleRate = 10000

// parseArgs reads the workload name first and the tracer flags from the
// end, leaving everything in between as the wrapped command.
func parseArgs(args []string) (invocation, error) {
	inv := invocation{SampleRate: 60, DutyCycle: 1}

	if len(args) < 2 {
		return inv, errors.New("usage: stubtrace <workload> <command> [args...] " +
			"--sample-rate N --duty-cycle F")
	}

	inv.Workload = args[0]
	rest := args[1:]

	for len(rest) >= 2 {
		name, value := rest[len(rest)-2], rest[len(rest)-1]

		switch name {
		case "--sample-rate":
			n, err := strconv.Atoi(value)
			if err != nil || n <= 0 || n > maxSampleRate {
				return inv, fmt.Errorf("invalid --sample-rate %q (want 1..%d)",
					value, maxSampleRate)
			}
			inv.SampleRate = n
		case "--duty-cycle":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil || f <= 0 || f > 1 {
				return inv, fmt.Errorf("invalid --duty-cycle %q", value)
			}
			inv.DutyCycle = f
		default:
			inv.Command = rest
			return inv, nil
		}

		rest = rest[:len(rest)-2]
	}

	if len(rest) == 0 {
		return inv, errors.New("no command to trace")
	}
	inv.Command = rest

	return inv, nil
}

// artifactPath is where pmemtrace leaves the trace for a workload.
func artifactPath(workload string) string {
	dir := os.Getenv("STUBTRACE_DIR")
	if dir == "" {
		dir = os.TempDir()
	}

	return filepath.Join(dir, workload+".temp")
}

// sampling reports whether a sample taken at elapsed falls in the active
// part of the duty cycle.
func sampling(elapsed time.Duration, dutyCycle float64) bool {
	within := elapsed % time.Second
	return float64(within) < dutyCycle*float64(time.Second)
}

func main() {
	inv, err := parseArgs(os.Args[1:])
	if err != nil {
		fatal("%v", err)
	}

	out, err := os.Create(artifactPath(inv.Workload))
	if err != nil {
		fatal("create trace: %v", err)
	}
	w := bufio.NewWriter(out)

	fmt.Fprintf(w, "# stubtrace workload=%s sample_rate=%d duty_cycle=%g\n",
		inv.Workload, inv.SampleRate, inv.DutyCycle)

	cmd := exec.Command(inv.Command[0], inv.Command[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		fatal("start %s: %v", inv.Command[0], err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	start := time.Now()
	ticker := time.NewTicker(time.Second / time.Duration(inv.SampleRate))
	defer ticker.Stop()

	var samples int

loop:
	for {
		select {
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if sampling(elapsed, inv.DutyCycle) {
				samples++
				fmt.Fprintf(w, "%d %d\n", samples, elapsed.Nanoseconds())
			}

		case err = <-done:
			break loop
		}
	}

	fmt.Fprintf(w, "# samples=%d elapsed_ns=%d\n", samples, time.Since(start).Nanoseconds())

	if flushErr := w.Flush(); flushErr != nil {
		fatal("write trace: %v", flushErr)
	}
	if closeErr := out.Close(); closeErr != nil {
		fatal("close trace: %v", closeErr)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.ExitCode())
	}
	if err != nil {
		fatal("wait: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "stubtrace: "+format+"\n", args...)
	os.Exit(1)
}
