//go:build !unix

package harness

import (
	"os/exec"
	"time"
)

func configureTermination(cmd *exec.Cmd, grace time.Duration) {
	cmd.WaitDelay = grace
}
