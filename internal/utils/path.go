// Package utils holds small filesystem and logging helpers shared by hubsync packages.
package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var ErrEmptyPath = errors.New("path is empty")

// ResolvePath returns the cleaned absolute form of p. A leading "~" or "~/"
// is the user's home directory; "~user" forms are left alone.
func ResolvePath(p string) (string, error) {
	if p == "" {
		return "", ErrEmptyPath
	}

	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve %s: %w", p, err)
		}
		p = filepath.Join(home, p[1:])
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return abs, nil
}

// EnsureParent creates the directory that will hold p.
func EnsureParent(p string) error {
	return EnsureDir(filepath.Dir(p))
}

func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

// FileExists is false for directories.
func FileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}

// NormPath turns a relative path into the slash-separated item key used in
// the index and manifests, the same on every platform.
func NormPath(p string) string {
	p = filepath.ToSlash(filepath.Clean(p))
	p = strings.ReplaceAll(p, `\`, "/")
	return strings.TrimLeft(p, "/")
}
