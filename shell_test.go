package agentexec

import (
	"errors"
	"os/exec"
	"testing"
)

func withLookPath(t *testing.T, installed map[string]string) {
	t.Helper()
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })
	lookPath = func(name string) (string, error) {
		if p, ok := installed[name]; ok {
			return p, nil
		}
		return "", &exec.Error{Name: name, Err: exec.ErrNotFound}
	}
}

func TestResolveShell(t *testing.T) {
	tests := []struct {
		name      string
		installed map[string]string
		want      string
	}{
		{
			name: "fish preferred",
			installed: map[string]string{
				"fish": "/usr/bin/fish",
				"bash": "/bin/bash",
				"sh":   "/bin/sh",
			},
			want: "/usr/bin/fish",
		},
		{
			name:      "bash before zsh",
			installed: map[string]string{"zsh": "/bin/zsh", "bash": "/usr/local/bin/bash"},
			want:      "/usr/local/bin/bash",
		},
		{
			name:      "zsh before sh",
			installed: map[string]string{"zsh": "/bin/zsh", "sh": "/bin/sh"},
			want:      "/bin/zsh",
		},
		{
			name:      "sh only",
			installed: map[string]string{"sh": "/usr/bin/sh"},
			want:      "/usr/bin/sh",
		},
		{
			name:      "nothing found",
			installed: map[string]string{},
			want:      "/bin/sh",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withLookPath(t, tt.installed)
			if got := ResolveShell(); got != tt.want {
				t.Errorf("ResolveShell() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveShellSkipsErrors(t *testing.T) {
	orig := lookPath
	t.Cleanup(func() { lookPath = orig })

	var tried []string
	lookPath = func(name string) (string, error) {
		tried = append(tried, name)
		return "", errors.New("lookup failed")
	}

	if got := ResolveShell(); got != "/bin/sh" {
		t.Errorf("ResolveShell() = %q, want /bin/sh", got)
	}
	if len(tried) != 4 {
		t.Errorf("tried %v, want all four shells", tried)
	}
}
