package local

import (
	"bufio"
	"errors"
	"log/slog"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	gitignore "github.com/sabhiram/go-gitignore"
)

// IgnoreFileName is read from the working directory root when present.
const IgnoreFileName = ".hubignore"

var defaultIgnoreLines = []string{
	// hubsync
	".hubsync/",
	IgnoreFileName,
	"*.conflict.*",
	"*.hubsync.tmp.*",
	// editors and VCS
	".git",
	".vscode",
	".idea",
	"*.swp",
	"*~",
	// general
	"*.tmp",
	// OS-specific
	".DS_Store",
	"Thumbs.db",
	"desktop.ini",
}

// ignoreList decides which working directory paths are never synced.
type ignoreList struct {
	ignore *gitignore.GitIgnore
	rules  int
}

func loadIgnoreList(fs billy.Filesystem) (*ignoreList, error) {
	lines := append([]string(nil), defaultIgnoreLines...)
	extra := 0

	f, err := fs.Open(IgnoreFileName)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			lines = append(lines, line)
			extra++
		}
		if err := scanner.Err(); err != nil {
			return nil, err
		}
		slog.Debug("local", "op", "load ignore", "path", IgnoreFileName, "rules", extra)
	}

	return &ignoreList{ignore: gitignore.CompileIgnoreLines(lines...), rules: extra}, nil
}

// ShouldIgnore takes a slash-separated path relative to the working directory.
func (l *ignoreList) ShouldIgnore(path string) bool {
	return l.ignore.MatchesPath(path)
}
