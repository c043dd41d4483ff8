// Package workspace resolves the on-disk layout of a hubsync working directory
// and guards it against concurrent hubsync processes.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/contenthub/hubsync/internal/index"
	"github.com/contenthub/hubsync/internal/utils"
)

const (
	metadataDir = ".hubsync"
	logsDir     = "logs"
	lockFile    = "hubsync.lock"
	configFile  = "config.json"
	logFile     = "hubsync.log"
)

var (
	ErrWorkspaceLocked = errors.New("workspace locked by another process")
)

type Workspace struct {
	Root        string
	MetadataDir string
	LogsDir     string
	IndexPath   string
	ConfigPath  string
	LogPath     string

	flock *flock.Flock
}

func NewWorkspace(rootDir string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	meta := filepath.Join(root, metadataDir)
	logs := filepath.Join(meta, logsDir)

	return &Workspace{
		Root:        root,
		MetadataDir: meta,
		LogsDir:     logs,
		IndexPath:   filepath.Join(meta, index.FileName),
		ConfigPath:  filepath.Join(meta, configFile),
		LogPath:     filepath.Join(logs, logFile),
		flock:       flock.New(filepath.Join(meta, lockFile)),
	}, nil
}

func (w *Workspace) Lock() error {
	// .hubsync/hubsync.lock keeps a second hubsync process out of the same working directory
	if err := utils.EnsureDir(w.MetadataDir); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.MetadataDir, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

func (w *Workspace) Unlock() error {
	// if this process hasn't locked the workspace, then don't delete the lock file
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}

	return os.Remove(w.flock.Path())
}

// Setup locks the workspace and creates the metadata layout. Type directories
// are created on demand by the local accessors.
func (w *Workspace) Setup() error {
	if err := w.Lock(); err != nil {
		return err
	}

	for _, dir := range []string{w.MetadataDir, w.LogsDir} {
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	slog.Info("workspace", "root", w.Root)
	return nil
}
