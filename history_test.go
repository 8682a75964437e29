package agentexec

import (
	"log/slog"
	"testing"
	"time"
)

// spyHistory replaces appendHistory with a recorder for the duration of t.
func spyHistory(t *testing.T) <-chan string {
	t.Helper()
	orig := appendHistory
	t.Cleanup(func() { appendHistory = orig })

	ch := make(chan string, 16)
	appendHistory = func(_, command string, _ *slog.Logger) {
		ch <- command
	}
	return ch
}

func expectHistory(t *testing.T, ch <-chan string, want string) {
	t.Helper()
	select {
	case got := <-ch:
		if got != want {
			t.Errorf("history recorded %q, want %q", got, want)
		}
	case <-time.After(2 * time.Second):
		t.Errorf("history for %q was not recorded", want)
	}
}

func expectNoHistory(t *testing.T, ch <-chan string) {
	t.Helper()
	select {
	case got := <-ch:
		t.Errorf("history recorded %q, want nothing", got)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestIsFishShell(t *testing.T) {
	tests := []struct {
		shell string
		want  bool
	}{
		{"/usr/bin/fish", true},
		{"/opt/homebrew/bin/fish", true},
		{"/home/u/.local/fish-4/bin/shell", true},
		{"/bin/bash", false},
		{"/bin/sh", false},
		{"/usr/bin/zsh", false},
	}
	for _, tt := range tests {
		if got := isFishShell(tt.shell); got != tt.want {
			t.Errorf("isFishShell(%q) = %v, want %v", tt.shell, got, tt.want)
		}
	}
}

func TestHistoryScript(t *testing.T) {
	tests := []struct {
		command string
		want    string
	}{
		{"ls -la", "history append 'ls -la'"},
		{"echo 'hi'", `history append 'echo '"'"'hi'"'"''`},
		{`echo "$HOME"`, `history append 'echo "$HOME"'`},
		{"", "history append ''"},
	}
	for _, tt := range tests {
		if got := historyScript(tt.command); got != tt.want {
			t.Errorf("historyScript(%q) = %q, want %q", tt.command, got, tt.want)
		}
	}
}

func TestRecordHistory(t *testing.T) {
	ch := spyHistory(t)

	if !recordHistory("/usr/bin/fish", "ls", slog.Default()) {
		t.Error("recordHistory(fish) = false, want true")
	}
	expectHistory(t, ch, "ls")

	if recordHistory("/bin/bash", "ls", slog.Default()) {
		t.Error("recordHistory(bash) = true, want false")
	}
	expectNoHistory(t, ch)
}

func TestAppendHistorySwallowsFailure(t *testing.T) {
	// A shell that cannot be started must not panic or block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		appendHistory("/nonexistent/fish", "ls", slog.Default())
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("appendHistory did not return")
	}
}
