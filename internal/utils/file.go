package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// TempMarker is part of every temporary file name created by WriteFileAtomic.
// Accessors use it to skip half-written leftovers when enumerating.
const TempMarker = ".hubsync.tmp."

// WriteFileAtomic writes data to a temporary file next to path, syncs it to
// disk and renames it over path. Readers observe either the previous content or
// the new one, never a partial write.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	if err := EnsureParent(path); err != nil {
		return fmt.Errorf("ensure parent: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+TempMarker+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file to %s: %w", path, err)
	}

	success = true
	return nil
}

// IsTempPath reports whether path names a temporary file left by WriteFileAtomic.
func IsTempPath(path string) bool {
	return strings.Contains(filepath.Base(path), TempMarker)
}

// RemoveTempFiles deletes leftover temporary files for path, such as those
// left by a crash between write and rename. It returns the number removed.
func RemoveTempFiles(path string) (int, error) {
	matches, err := filepath.Glob(path + TempMarker + "*")
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
