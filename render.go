package agentexec

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// noOutput is the rendered result of a command that printed nothing and
// exited with status 0.
const noOutput = "(no output)"

// Render turns an Outcome into the text returned to the agent.
//
// A timed-out outcome renders as a fixed timeout message naming
// timeoutSeconds. Otherwise the result is stdout, then "STDERR:" followed by
// stderr if stderr has any non-whitespace content, then the exit code if it
// is non-zero, joined by newlines. Results longer than MaxOutputChars
// characters are cut and annotated with the number of characters removed.
func Render(o *Outcome, timeoutSeconds int) string {
	if o == nil {
		return noOutput
	}
	if o.TimedOut {
		return "Error: Command timed out after " + strconv.Itoa(timeoutSeconds) + " seconds"
	}

	var parts []string
	if len(o.Stdout) > 0 {
		parts = append(parts, decodeOutput(o.Stdout))
	}
	if len(o.Stderr) > 0 {
		if text := decodeOutput(o.Stderr); strings.TrimSpace(text) != "" {
			parts = append(parts, "STDERR:\n"+text)
		}
	}
	if o.HasExitCode && o.ExitCode != 0 {
		parts = append(parts, "\nExit code: "+strconv.Itoa(o.ExitCode))
	}

	if len(parts) == 0 {
		return noOutput
	}
	return truncateChars(strings.Join(parts, "\n"), MaxOutputChars)
}

// decodeOutput decodes b as UTF-8, replacing invalid sequences with U+FFFD.
func decodeOutput(b []byte) string {
	s, err := unicode.UTF8.NewDecoder().Bytes(b)
	if err != nil {
		return strings.ToValidUTF8(string(b), "\uFFFD")
	}
	return string(s)
}

// truncateChars keeps the first limit characters of s and appends a marker
// with the number of characters removed.
func truncateChars(s string, limit int) string {
	n := utf8.RuneCountInString(s)
	if n <= limit {
		return s
	}
	// n > limit, so the loop always stops on the first removed rune.
	cut, seen := 0, 0
	for i := range s {
		if seen == limit {
			cut = i
			break
		}
		seen++
	}
	return s[:cut] + "\n... (truncated, " + strconv.Itoa(n-limit) + " more chars)"
}
