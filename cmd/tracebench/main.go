// Package main provides the CLI entry point for tracebench, which measures
// the wall-clock overhead a sampling tracer adds to an I/O workload.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"syscall"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/weiihann/tracebench/bench"
	"github.com/weiihann/tracebench/config"
	"github.com/weiihann/tracebench/harness"
	"github.com/weiihann/tracebench/report"
)

var version = "dev"

func main() {
	root := newRootCmd()

	if err := fang.Execute(
		context.Background(),
		root,
		fang.WithVersion(version),
		fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM),
	); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "tracebench",
		Short: "Measure the overhead of a tracer on an I/O workload",
		Long: `Tracebench writes random data to a storage path repeatedly, once under
an external sampling tracer and once without it, and reports the mean and
standard deviation of the wall-clock time for each workload size together
with the size of the trace the tracer produced.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "",
		"Config file (yaml, toml or json)")

	root.AddCommand(newRunCmd(&cfgFile))
	root.AddCommand(newConfigCmd(&cfgFile))

	return root
}

func newRunCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the traced and untraced benchmark",
		Long: `Run every workload size under the tracer, then without it, and print
the timing report. Any failed run aborts the benchmark.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
			if err != nil {
				return err
			}

			runner := harness.NewRunner(cfg.Elevation, cfg.Timeout, logger)

			return runBenchmark(cmd.Context(), logger, cfg, runner, cmd.OutOrStdout())
		},
	}

	addConfigFlags(cmd)

	return cmd
}

func newConfigCmd(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)

			if err := enc.Encode(cfg); err != nil {
				return fmt.Errorf("encode config: %w", err)
			}

			return enc.Close()
		},
	}

	addConfigFlags(cmd)

	return cmd
}

// addConfigFlags registers the flags config.Load knows how to bind.
func addConfigFlags(cmd *cobra.Command) {
	defaults := config.Default()

	flags := cmd.Flags()
	flags.StringSlice("sizes", defaults.Sizes,
		"Workload sizes, in order (K/M/G are binary multiples)")
	flags.Int("repetitions", defaults.Repetitions,
		"Runs per size and configuration (at least 2 for a standard deviation)")
	flags.String("target", defaults.TargetPath,
		"File the workload writes to")
	flags.String("random-source", defaults.RandomSource,
		"File the workload reads random bytes from")
	flags.String("shell", defaults.Shell,
		"Shell that runs the timed workload; its time keyword must print real XmY.YYYs")
	flags.StringSlice("elevation", defaults.Elevation,
		"Non-interactive privilege elevation prepended to every run (empty to disable)")
	flags.Duration("timeout", defaults.Timeout,
		"Limit for a single run (0 = no limit)")
	flags.String("tracer", defaults.Tracer.Binary,
		"Tracer executable")
	flags.String("subcommand", defaults.Tracer.Subcommand,
		"Tracer subcommand naming the workload")
	flags.Int("sample-rate", defaults.Tracer.SampleRate,
		"Tracer sample rate")
	flags.Float64("duty-cycle", defaults.Tracer.DutyCycle,
		"Tracer duty cycle, in (0, 1]")
	flags.String("artifact", defaults.Tracer.ArtifactPath,
		"Path of the trace the tracer writes")
	flags.String("format", defaults.Format,
		"Report format: text, table, markdown, json, yaml")
	flags.String("log-level", defaults.LogLevel,
		"Log level: debug, info, warn, error")
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	return slog.New(log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "tracebench",
		ReportTimestamp: true,
	})), nil
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	executor bench.Executor,
	w io.Writer,
) error {
	format, err := report.ParseFormat(cfg.Format)
	if err != nil {
		return err
	}

	orch, err := bench.NewOrchestrator(cfg, executor, logger)
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "starting benchmark",
		slog.Any("sizes", cfg.Sizes),
		slog.Int("repetitions", cfg.Repetitions),
		slog.String("tracer", cfg.Tracer.Binary),
		slog.Int("sample_rate", cfg.Tracer.SampleRate),
		slog.Float64("duty_cycle", cfg.Tracer.DutyCycle),
		slog.String("target", cfg.TargetPath),
	)

	result, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("benchmark aborted: %w", err)
	}

	if err := report.Render(w, format, result); err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	logger.InfoContext(ctx, "benchmark complete")

	return nil
}
