//go:build !darwin && !linux

package agentexec

import (
	"errors"
	"os"
	"os/exec"
	"time"
)

const processGroupWaitDelay = 3 * time.Second

// setupProcessGroup only bounds pipe draining on platforms without Unix
// sessions; descendants of the shell are not tracked.
func setupProcessGroup(cmd *exec.Cmd) {
	cmd.WaitDelay = processGroupWaitDelay
}

// killProcessGroup kills the shell process itself.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return os.ErrProcessDone
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}

func exitCodeOf(ps *os.ProcessState) int {
	return ps.ExitCode()
}
