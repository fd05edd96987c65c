//go:build unix

package harness

import (
	"errors"
	"os/exec"
	"syscall"
	"time"
)

// configureTermination starts the command in its own process group and
// makes cancellation send SIGTERM to the whole group, so a timed workload
// running as a grandchild of the shell is stopped along with it. Whatever
// is still alive after grace is killed.
//
// A background process group cannot read the terminal, so the elevation
// wrapper must not prompt (sudo -n with cached credentials).
func configureTermination(cmd *exec.Cmd, grace time.Duration) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}

		return err
	}
	cmd.WaitDelay = grace
}
