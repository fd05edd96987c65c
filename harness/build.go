package harness

import (
	"fmt"
	"strconv"

	"github.com/weiihann/tracebench/workload"
)

// RunConfig selects whether the workload runs under the tracer.
type RunConfig int

const (
	Traced RunConfig = iota
	Untraced
)

// RunConfigs returns both configurations in report order.
func RunConfigs() []RunConfig {
	return []RunConfig{Traced, Untraced}
}

func (c RunConfig) String() string {
	switch c {
	case Traced:
		return "traced"
	case Untraced:
		return "untraced"
	default:
		return fmt.Sprintf("RunConfig(%d)", int(c))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c RunConfig) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Tracer describes the external sampling tool wrapping traced runs.
type Tracer struct {
	Binary     string
	Subcommand string
	SampleRate int
	DutyCycle  float64
}

// Builder turns a (RunConfig, size) pair into an argument vector. The
// runner's elevation is applied on top; Elevation here is the inner one
// the tracer uses to launch the workload.
type Builder struct {
	Shell     string
	Source    string
	Target    string
	Elevation []string
	Tracer    Tracer
}

// Build returns the argv for one run.
func (b Builder) Build(rc RunConfig, size workload.Size) ([]string, error) {
	if b.Shell == "" {
		return nil, fmt.Errorf("no shell configured")
	}

	script, err := workload.Script{
		Size:   size,
		Source: b.Source,
		Target: b.Target,
	}.String()
	if err != nil {
		return nil, err
	}

	inner := []string{b.Shell, "-c", script}

	switch rc {
	case Untraced:
		return inner, nil

	case Traced:
		if b.Tracer.Binary == "" {
			return nil, fmt.Errorf("no tracer binary configured")
		}

		args := make([]string, 0, len(b.Elevation)+len(inner)+6)
		args = append(args, b.Tracer.Binary)
		if b.Tracer.Subcommand != "" {
			args = append(args, b.Tracer.Subcommand)
		}
		args = append(args, b.Elevation...)
		args = append(args, inner...)
		args = append(args,
			"--sample-rate", strconv.Itoa(b.Tracer.SampleRate),
			"--duty-cycle", strconv.FormatFloat(b.Tracer.DutyCycle, 'f', -1, 64),
		)

		return args, nil

	default:
		return nil, fmt.Errorf("unknown run config %s", rc)
	}
}
