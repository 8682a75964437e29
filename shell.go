package agentexec

import (
	"os/exec"
	"path/filepath"
)

// fallbackShell is used when none of the preferred shells is on PATH.
// It is not checked for existence.
const fallbackShell = "/bin/sh"

// preferredShells lists shell names in lookup order.
var preferredShells = []string{"fish", "bash", "zsh", "sh"}

// lookPath resolves a program name on PATH. It is a variable so that tests
// can control which shells appear to be installed.
var lookPath = exec.LookPath

// ResolveShell returns the absolute path of the first preferred shell found
// on PATH, trying fish, bash, zsh and sh in that order. If none is found it
// returns /bin/sh without verifying that it exists.
func ResolveShell() string {
	for _, name := range preferredShells {
		p, err := lookPath(name)
		if err != nil || p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
	}
	return fallbackShell
}
