package agentexec

import (
	"regexp"
	"strings"
)

var (
	// windowsPathRe matches drive-letter paths such as C:\Users\x, stopping at
	// whitespace, quotes, pipes, redirects and command separators.
	windowsPathRe = regexp.MustCompile(`[A-Za-z]:\\[^\s"'|><;]+`)

	// posixPathRe matches absolute POSIX paths at the start of the command or
	// right after whitespace, a pipe or a redirect. Group 1 is the path.
	posixPathRe = regexp.MustCompile(`(?:^|[\s|>])(/[^\s"'>]+)`)
)

// extractAbsolutePaths returns the absolute path literals found in command,
// Windows drive paths first, then POSIX paths, each in order of appearance.
// It is purely lexical: paths produced by variable expansion, globbing or
// command substitution are invisible to it.
func extractAbsolutePaths(command string) []string {
	win := windowsPathRe.FindAllString(command, -1)
	posix := posixPathRe.FindAllStringSubmatch(command, -1)

	paths := make([]string, 0, len(win)+len(posix))
	paths = append(paths, win...)
	for _, m := range posix {
		paths = append(paths, m[1])
	}
	return paths
}

// containsTraversal reports whether command contains a parent-directory
// traversal token in either separator style.
func containsTraversal(command string) bool {
	return strings.Contains(command, "../") || strings.Contains(command, `..\`)
}
