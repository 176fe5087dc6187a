// Package pathutil normalizes the local file paths callers hand to the
// plaintext stream source.
package pathutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// Resolve makes path absolute, expanding a leading "~" to the user's home
// directory and following symlinks when the target exists. A path whose
// target doesn't exist yet comes back absolute but unresolved, leaving
// the caller's open to report the real error.
func Resolve(path string) (string, error) {
	if path == "" {
		return "", errors.New("pathutil: empty path")
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	if resolved, rerr := filepath.EvalSymlinks(abs); rerr == nil {
		return resolved, nil
	}
	return abs, nil
}
