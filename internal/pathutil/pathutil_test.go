package pathutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// ---------------------------------------------------------------------------
// Resolve
// ---------------------------------------------------------------------------

func TestResolveExistingDir(t *testing.T) {
	dir := t.TempDir()
	want, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	got, err := Resolve(dir)
	if err != nil {
		t.Fatalf("Resolve(%q) error: %v", dir, err)
	}
	if got != want {
		t.Errorf("Resolve(%q) = %q, want %q", dir, got, want)
	}
}

func TestResolveNonExistentTail(t *testing.T) {
	dir := t.TempDir()
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	got, err := Resolve(filepath.Join(dir, "missing", "child.txt"))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := filepath.Join(real, "missing", "child.txt")
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveThroughFile(t *testing.T) {
	dir := t.TempDir()
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}
	file := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(file, []byte("x"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	// A component below a regular file cannot exist, but the path is still
	// resolvable lexically.
	got, err := Resolve(filepath.Join(file, "below"))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := filepath.Join(real, "file.txt", "below")
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveFollowsSymlink(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	outside := t.TempDir()
	workspace := t.TempDir()
	link := filepath.Join(workspace, "escape")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	realOutside, err := filepath.EvalSymlinks(outside)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	got, err := Resolve(filepath.Join(link, "secret"))
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := filepath.Join(realOutside, "secret")
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveSymlinkLoop(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks require privileges on windows")
	}
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	if err := os.Symlink(b, a); err != nil {
		t.Fatalf("Symlink: %v", err)
	}
	if err := os.Symlink(a, b); err != nil {
		t.Fatalf("Symlink: %v", err)
	}

	if _, err := Resolve(a); err == nil {
		t.Error("Resolve() on a symlink loop should fail")
	}
}

func TestResolveRelative(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		t.Fatalf("EvalSymlinks: %v", err)
	}

	got, err := Resolve("sub/file")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	want := filepath.Join(real, "sub", "file")
	if got != want {
		t.Errorf("Resolve() = %q, want %q", got, want)
	}
}

func TestResolveNullByte(t *testing.T) {
	if _, err := Resolve("/tmp/a\x00b"); err == nil {
		t.Error("Resolve() with null byte should fail")
	}
}

// ---------------------------------------------------------------------------
// IsWithin
// ---------------------------------------------------------------------------

func TestIsWithin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("POSIX path fixtures")
	}
	tests := []struct {
		name   string
		base   string
		target string
		want   bool
	}{
		{name: "same path", base: "/work", target: "/work", want: true},
		{name: "direct child", base: "/work", target: "/work/a", want: true},
		{name: "deep child", base: "/work", target: "/work/a/b/c", want: true},
		{name: "sibling with shared prefix", base: "/work", target: "/workshop", want: false},
		{name: "parent", base: "/work/a", target: "/work", want: false},
		{name: "unrelated", base: "/work", target: "/etc/passwd", want: false},
		{name: "root base contains everything", base: "/", target: "/etc/passwd", want: true},
		{name: "root base contains itself", base: "/", target: "/", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsWithin(tt.base, tt.target); got != tt.want {
				t.Errorf("IsWithin(%q, %q) = %v, want %v", tt.base, tt.target, got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ContainsNullByte
// ---------------------------------------------------------------------------

func TestContainsNullByte(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"", false},
		{"/tmp/file", false},
		{"/tmp/\x00file", true},
		{"\x00", true},
	}
	for _, tt := range tests {
		if got := ContainsNullByte(tt.input); got != tt.want {
			t.Errorf("ContainsNullByte(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
