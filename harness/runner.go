// Package harness runs workload commands, with or without the tracer, and
// extracts the wall-clock time they report.
package harness

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// DefaultGracePeriod is how long a terminated child may take to exit
// before it is killed.
const DefaultGracePeriod = 5 * time.Second

// ExecutionFailure reports a command that exited with a non-zero status.
type ExecutionFailure struct {
	Args     []string
	ExitCode int
	Output   string
}

func (e *ExecutionFailure) Error() string {
	return fmt.Sprintf("command %q exited with status %d\noutput: %s",
		strings.Join(e.Args, " "), e.ExitCode, excerpt(e.Output))
}

// ExecutionTimeout reports a command that ran past the runner's timeout
// and was terminated.
type ExecutionTimeout struct {
	Args    []string
	Timeout time.Duration
	Output  string
}

func (e *ExecutionTimeout) Error() string {
	return fmt.Sprintf("command %q timed out after %s\noutput: %s",
		strings.Join(e.Args, " "), e.Timeout, excerpt(e.Output))
}

// Runner executes workload commands one at a time and captures their
// combined output.
type Runner struct {
	// Elevation is prepended to every command, e.g. []string{"sudo"}.
	Elevation []string
	// Timeout bounds a single execution. Zero means no limit.
	Timeout     time.Duration
	GracePeriod time.Duration
	Logger      *slog.Logger
}

// NewRunner creates a Runner. An empty elevation runs commands as the
// current user.
func NewRunner(
	elevation []string,
	timeout time.Duration,
	logger *slog.Logger,
) *Runner {
	return &Runner{
		Elevation:   elevation,
		Timeout:     timeout,
		GracePeriod: DefaultGracePeriod,
		Logger:      logger,
	}
}

// Run executes args and returns everything the process wrote to stdout
// and stderr. It blocks until the process exits.
func (r *Runner) Run(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("empty command")
	}

	argv := make([]string, 0, len(r.Elevation)+len(args))
	argv = append(argv, r.Elevation...)
	argv = append(argv, args...)

	runCtx := ctx
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	configureTermination(cmd, r.GracePeriod)

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	r.logger().DebugContext(ctx, "starting command",
		slog.String("command", strings.Join(argv, " ")),
	)

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	out := output.String()

	if err == nil {
		r.logger().DebugContext(ctx, "command finished",
			slog.Duration("wall_time", elapsed),
		)

		return out, nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("run %s: %w", argv[0], ctxErr)
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return out, &ExecutionTimeout{
			Args:    argv,
			Timeout: r.Timeout,
			Output:  out,
		}
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return out, &ExecutionFailure{
			Args:     argv,
			ExitCode: exitErr.ExitCode(),
			Output:   out,
		}
	}

	return out, fmt.Errorf("start %s: %w", argv[0], err)
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.Default()
	}

	return r.Logger
}

// ArtifactSize returns the size in bytes of the file at path. For a
// directory it returns the total size of the regular files below it.
func ArtifactSize(path string) (uint64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat trace artifact: %w", err)
	}

	if !info.IsDir() {
		return uint64(info.Size()), nil
	}

	var size uint64

	err = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Mode().IsRegular() {
			size += uint64(info.Size())
		}

		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk trace artifact %s: %w", path, err)
	}

	return size, nil
}

const excerptLimit = 512

// excerpt keeps the tail of long output, where the timing report and
// error messages end up.
func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= excerptLimit {
		return s
	}

	return "..." + s[len(s)-excerptLimit:]
}
