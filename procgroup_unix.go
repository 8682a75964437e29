//go:build darwin || linux

package agentexec

import (
	"errors"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// processGroupWaitDelay bounds how long Wait keeps reading stdout/stderr
// after the shell has exited while a descendant still holds the pipes.
const processGroupWaitDelay = 3 * time.Second

// setupProcessGroup runs cmd in its own session so that the shell and every
// process it starts share one process group that can be killed together.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setsid = true
	cmd.SysProcAttr.Setpgid = false
	cmd.SysProcAttr.Pgid = 0
	cmd.WaitDelay = processGroupWaitDelay
}

// killProcessGroup sends SIGKILL to the whole process group of cmd.
// It returns os.ErrProcessDone if the group no longer exists.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return os.ErrProcessDone
	}
	pid := cmd.Process.Pid
	// kill(-1) signals every process we may signal and kill(0) our own group.
	if pid <= 1 {
		return os.ErrProcessDone
	}
	if err := unix.Kill(-pid, unix.SIGKILL); err != nil {
		if errors.Is(err, unix.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	return nil
}

// exitCodeOf returns the exit status of ps, or the negated signal number if
// the process was killed by a signal.
func exitCodeOf(ps *os.ProcessState) int {
	if ws, ok := ps.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return ps.ExitCode()
}
