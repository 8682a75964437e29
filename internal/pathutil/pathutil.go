// Package pathutil provides path helpers for workspace confinement.
// It includes lenient canonicalisation (symlinks resolved through the longest
// existing prefix), workspace containment checks, and small path predicates.
package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"syscall"
)

// ---------------------------------------------------------------------------
// Canonicalisation
// ---------------------------------------------------------------------------

// Resolve returns the canonical absolute form of path. Relative paths are
// made absolute against the process working directory. Symlinks are resolved
// for the longest prefix of the path that exists on disk; the remaining
// components are appended lexically, so a path does not have to exist to be
// resolved.
//
// Resolve fails only for paths that can never name a file (null bytes) or
// when symlink resolution itself fails for a reason other than a missing
// component (for example a symlink loop).
func Resolve(path string) (string, error) {
	if ContainsNullByte(path) {
		return "", fmt.Errorf("pathutil: path %q contains a null byte", path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("pathutil: cannot make %q absolute: %w", path, err)
	}

	existing := abs
	var rest []string
	for {
		resolved, err := filepath.EvalSymlinks(existing)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !isMissing(err) {
			return "", fmt.Errorf("pathutil: cannot resolve symlinks in %q: %w", path, err)
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			// Nothing along the chain exists, not even the volume root.
			return abs, nil
		}
		rest = append([]string{filepath.Base(existing)}, rest...)
		existing = parent
	}
}

// isMissing reports whether err means a path component does not exist or is
// not a directory, i.e. the lexical remainder can be kept as-is.
func isMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// ---------------------------------------------------------------------------
// Containment
// ---------------------------------------------------------------------------

// IsWithin reports whether target is base itself or a descendant of base.
// Both arguments must already be cleaned absolute paths (see Resolve).
//
// Examples:
//   - base=/work target=/work        : true
//   - base=/work target=/work/a/b    : true
//   - base=/work target=/workshop    : false
//   - base=/     target=/etc/passwd  : true
func IsWithin(base, target string) bool {
	if target == base {
		return true
	}
	prefix := base
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(target, prefix)
}

// ---------------------------------------------------------------------------
// Path Helpers
// ---------------------------------------------------------------------------

// ContainsNullByte returns true if the string contains a null byte.
func ContainsNullByte(s string) bool {
	return strings.ContainsRune(s, '\x00')
}
