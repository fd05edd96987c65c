// Package bench drives the measurement matrix: every workload size under
// every configuration, repeated and summarised.
package bench

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/weiihann/tracebench/config"
	"github.com/weiihann/tracebench/harness"
	"github.com/weiihann/tracebench/workload"
)

// Executor runs one command and returns its combined output.
// *harness.Runner implements it.
type Executor interface {
	Run(ctx context.Context, args []string) (string, error)
}

// CommandBuilder produces the argv for a configuration and size.
type CommandBuilder interface {
	Build(rc harness.RunConfig, size workload.Size) ([]string, error)
}

// RunError identifies the run that aborted the benchmark. Attempt is zero
// when the failure happened outside a single execution.
type RunError struct {
	Config      harness.RunConfig
	Size        workload.Size
	Attempt     int
	Repetitions int
	Err         error
}

func (e *RunError) Error() string {
	if e.Attempt == 0 {
		return fmt.Sprintf("%s run of %s: %v", e.Config, e.Size, e.Err)
	}

	return fmt.Sprintf("%s run of %s, attempt %d/%d: %v",
		e.Config, e.Size, e.Attempt, e.Repetitions, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// Orchestrator runs the benchmark sequentially. Runs share the target file
// and the trace artifact, so nothing here is concurrent.
type Orchestrator struct {
	cfg      *config.Config
	sizes    []workload.Size
	executor Executor
	builder  CommandBuilder
	logger   *slog.Logger

	// ArtifactSize reads the trace artifact size after traced runs.
	ArtifactSize func(path string) (uint64, error)
}

// NewOrchestrator validates cfg and prepares an Orchestrator that runs its
// commands through executor.
func NewOrchestrator(
	cfg *config.Config,
	executor Executor,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sizes, err := cfg.WorkloadSizes()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Orchestrator{
		cfg:          cfg,
		sizes:        sizes,
		executor:     executor,
		builder:      cfg.Builder(),
		logger:       logger,
		ArtifactSize: harness.ArtifactSize,
	}, nil
}

// Run measures every configuration and size and returns the report. Any
// failure aborts the whole run; no report is returned with it.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	report := &Report{
		Tracer:      o.cfg.Tracer.Binary,
		Repetitions: o.cfg.Repetitions,
		SampleRate:  o.cfg.Tracer.SampleRate,
		DutyCycle:   o.cfg.Tracer.DutyCycle,
		Sections:    make([]Section, 0, 2),
	}

	for _, rc := range harness.RunConfigs() {
		o.logger.InfoContext(ctx, "running configuration",
			slog.String("config", rc.String()),
			slog.Int("sizes", len(o.sizes)),
			slog.Int("repetitions", o.cfg.Repetitions),
		)

		section := Section{
			Config: rc,
			Rows:   make([]Row, 0, len(o.sizes)),
		}

		for _, size := range o.sizes {
			row, err := o.measure(ctx, rc, size)
			if err != nil {
				return nil, err
			}

			section.Rows = append(section.Rows, row)
		}

		report.Sections = append(report.Sections, section)
	}

	return report, nil
}

func (o *Orchestrator) measure(
	ctx context.Context,
	rc harness.RunConfig,
	size workload.Size,
) (Row, error) {
	fail := func(attempt int, err error) (Row, error) {
		return Row{}, &RunError{
			Config:      rc,
			Size:        size,
			Attempt:     attempt,
			Repetitions: o.cfg.Repetitions,
			Err:         err,
		}
	}

	args, err := o.builder.Build(rc, size)
	if err != nil {
		return fail(0, fmt.Errorf("build command: %w", err))
	}

	samples := make([]float64, 0, o.cfg.Repetitions)

	for attempt := 1; attempt <= o.cfg.Repetitions; attempt++ {
		out, err := o.executor.Run(ctx, args)
		if err != nil {
			return fail(attempt, err)
		}

		d, err := harness.ExtractDuration(out)
		if err != nil {
			return fail(attempt, err)
		}

		o.logger.DebugContext(ctx, "sample",
			slog.String("config", rc.String()),
			slog.String("size", size.Label),
			slog.Int("attempt", attempt),
			slog.Float64("seconds", d),
		)

		samples = append(samples, d)
	}

	summary, err := Summarize(samples)
	if err != nil {
		return fail(0, err)
	}

	row := Row{
		Size:    size,
		Samples: samples,
		Summary: summary,
	}

	attrs := []any{
		slog.String("config", rc.String()),
		slog.String("size", size.Label),
		slog.Float64("mean", summary.Mean),
		slog.Float64("stddev", summary.StdDev),
	}

	if rc == harness.Traced {
		n, err := o.ArtifactSize(o.cfg.Tracer.ArtifactPath)
		if err != nil {
			return fail(0, err)
		}

		row.ArtifactBytes = &n
		attrs = append(attrs, slog.Uint64("artifact_bytes", n))
	}

	o.logger.InfoContext(ctx, "size measured", attrs...)

	return row, nil
}
