// Package config holds the benchmark parameters and loads them from
// defaults, an optional config file, TRACEBENCH_* environment variables and
// command-line flags, in increasing order of precedence.
package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/weiihann/tracebench/harness"
	"github.com/weiihann/tracebench/workload"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "TRACEBENCH"

// FormatNames lists the report formats the report package renders.
var FormatNames = []string{"text", "table", "markdown", "json", "yaml"}

// TracerConfig describes the external tracer and where it leaves its
// trace artifact.
type TracerConfig struct {
	Binary       string  `mapstructure:"binary" yaml:"binary"`
	Subcommand   string  `mapstructure:"subcommand" yaml:"subcommand"`
	SampleRate   int     `mapstructure:"sample_rate" yaml:"sample_rate"`
	DutyCycle    float64 `mapstructure:"duty_cycle" yaml:"duty_cycle"`
	ArtifactPath string  `mapstructure:"artifact_path" yaml:"artifact_path"`
}

// Config is the full set of benchmark parameters.
type Config struct {
	Sizes        []string      `mapstructure:"sizes" yaml:"sizes"`
	Repetitions  int           `mapstructure:"repetitions" yaml:"repetitions"`
	TargetPath   string        `mapstructure:"target_path" yaml:"target_path"`
	RandomSource string        `mapstructure:"random_source" yaml:"random_source"`
	Shell        string        `mapstructure:"shell" yaml:"shell"`
	Elevation    []string      `mapstructure:"elevation" yaml:"elevation"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"`
	Tracer       TracerConfig  `mapstructure:"tracer" yaml:"tracer"`
	Format       string        `mapstructure:"format" yaml:"format"`
	LogLevel     string        `mapstructure:"log_level" yaml:"log_level"`
}

// Default returns the parameters of the reference pmemtrace experiment.
func Default() *Config {
	return &Config{
		Sizes:        append([]string(nil), workload.DefaultSizes...),
		Repetitions:  3,
		TargetPath:   "/mnt/pmem_emul/rand_file.txt",
		RandomSource: "/dev/urandom",
		Shell:        "bash",
		Elevation:    []string{"sudo", "-n"},
		Tracer: TracerConfig{
			Binary:       "pmemtrace",
			Subcommand:   "randwrite",
			SampleRate:   60,
			DutyCycle:    0.98,
			ArtifactPath: "/tmp/randwrite.temp",
		},
		Format:   "text",
		LogLevel: "info",
	}
}

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"sizes":         "sizes",
	"repetitions":   "repetitions",
	"target":        "target_path",
	"random-source": "random_source",
	"shell":         "shell",
	"elevation":     "elevation",
	"timeout":       "timeout",
	"tracer":        "tracer.binary",
	"subcommand":    "tracer.subcommand",
	"sample-rate":   "tracer.sample_rate",
	"duty-cycle":    "tracer.duty_cycle",
	"artifact":      "tracer.artifact_path",
	"format":        "format",
	"log-level":     "log_level",
}

// Load builds a Config. path may be empty; flags may be nil. Only flags
// that were set on the command line override other sources.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("sizes", defaults.Sizes)
	v.SetDefault("repetitions", defaults.Repetitions)
	v.SetDefault("target_path", defaults.TargetPath)
	v.SetDefault("random_source", defaults.RandomSource)
	v.SetDefault("shell", defaults.Shell)
	v.SetDefault("elevation", defaults.Elevation)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("tracer.binary", defaults.Tracer.Binary)
	v.SetDefault("tracer.subcommand", defaults.Tracer.Subcommand)
	v.SetDefault("tracer.sample_rate", defaults.Tracer.SampleRate)
	v.SetDefault("tracer.duty_cycle", defaults.Tracer.DutyCycle)
	v.SetDefault("tracer.artifact_path", defaults.Tracer.ArtifactPath)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("log_level", defaults.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("bind flag %s: %w", name, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the configuration can drive a benchmark run.
// A single repetition is accepted here; summarising it fails later.
func (c *Config) Validate() error {
	if _, err := workload.ParseSizes(c.Sizes); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch {
	case c.Repetitions < 1:
		return fmt.Errorf("invalid config: repetitions must be at least 1, got %d",
			c.Repetitions)
	case c.TargetPath == "":
		return fmt.Errorf("invalid config: target_path is empty")
	case c.RandomSource == "":
		return fmt.Errorf("invalid config: random_source is empty")
	case c.Shell == "":
		return fmt.Errorf("invalid config: shell is empty")
	case c.Timeout < 0:
		return fmt.Errorf("invalid config: timeout must not be negative")
	case c.Tracer.Binary == "":
		return fmt.Errorf("invalid config: tracer.binary is empty")
	case c.Tracer.SampleRate <= 0:
		return fmt.Errorf("invalid config: tracer.sample_rate must be positive, got %d",
			c.Tracer.SampleRate)
	case c.Tracer.DutyCycle <= 0 || c.Tracer.DutyCycle > 1:
		return fmt.Errorf("invalid config: tracer.duty_cycle must be in (0, 1], got %g",
			c.Tracer.DutyCycle)
	case c.Tracer.ArtifactPath == "":
		return fmt.Errorf("invalid config: tracer.artifact_path is empty")
	case !slices.ContainsFunc(FormatNames, func(name string) bool {
		return strings.EqualFold(name, c.Format)
	}):
		return fmt.Errorf("invalid config: unknown format %q (want one of %s)",
			c.Format, strings.Join(FormatNames, ", "))
	}

	return nil
}

// WorkloadSizes returns the parsed sizes in configured order.
func (c *Config) WorkloadSizes() ([]workload.Size, error) {
	return workload.ParseSizes(c.Sizes)
}

// Builder returns the command builder for this configuration.
func (c *Config) Builder() harness.Builder {
	return harness.Builder{
		Shell:     c.Shell,
		Source:    c.RandomSource,
		Target:    c.TargetPath,
		Elevation: c.Elevation,
		Tracer: harness.Tracer{
			Binary:     c.Tracer.Binary,
			Subcommand: c.Tracer.Subcommand,
			SampleRate: c.Tracer.SampleRate,
			DutyCycle:  c.Tracer.DutyCycle,
		},
	}
}
