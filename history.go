package agentexec

import (
	"log/slog"
	"os/exec"
	"strings"
)

// isFishShell reports whether shell looks like a fish shell path.
func isFishShell(shell string) bool {
	return strings.Contains(shell, "fish")
}

// historyScript builds the fish snippet that appends command to the
// interactive history, single-quoting it for the shell.
func historyScript(command string) string {
	escaped := strings.ReplaceAll(command, "'", `'"'"'`)
	return "history append '" + escaped + "'"
}

// appendHistory runs the history snippet and reaps the process. Every
// failure is dropped. It is a variable so that tests can observe recording.
var appendHistory = func(shell, command string, logger *slog.Logger) {
	cmd := exec.Command(shell, "-c", historyScript(command))
	// Nil stdio is connected to the null device.
	if err := cmd.Start(); err != nil {
		logger.Debug("history append failed to start", "error", err)
		return
	}
	if err := cmd.Wait(); err != nil {
		logger.Debug("history append failed", "error", err)
	}
}

// recordHistory appends command to the shell history in the background when
// shell is fish. It never blocks on the spawned process and reports whether
// a recording was attempted.
func recordHistory(shell, command string, logger *slog.Logger) bool {
	if !isFishShell(shell) {
		return false
	}
	go appendHistory(shell, command, logger)
	return true
}
