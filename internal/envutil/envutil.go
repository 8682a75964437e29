package envutil

import (
	"os"
	"strings"
)

// SetEnv sets or replaces an environment variable in an env slice.
// Returns the modified slice. If the key already exists, its value is updated
// in place. Otherwise, the new entry is appended.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// GetEnv gets a value from an env slice.
// Returns the value and true if found, or empty string and false if not.
func GetEnv(env []string, key string) (string, bool) {
	prefix := key + "="
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			return e[len(prefix):], true
		}
	}
	return "", false
}

// AppendPathList appends dir to the list-valued variable key (typically PATH)
// using the platform list separator. The existing value is kept verbatim, so
// an unset or empty variable yields a leading separator. An empty dir leaves
// env untouched. The input slice is not modified; a copy is returned.
func AppendPathList(env []string, key, dir string) []string {
	out := append([]string(nil), env...)
	if dir == "" {
		return out
	}
	current, _ := GetEnv(out, key)
	return SetEnv(out, key, current+string(os.PathListSeparator)+dir)
}

// CommandEnv returns the environment for a spawned command: a copy of the
// current process environment with pathAppend appended to PATH.
func CommandEnv(pathAppend string) []string {
	return AppendPathList(os.Environ(), "PATH", pathAppend)
}
