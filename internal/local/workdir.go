// Package local implements the artifact.LocalAccessor for a working directory
// on disk, one accessor per artifact type, on top of go-billy.
package local

import (
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/contenthub/hubsync/internal/artifact"
)

const defaultCacheSize = 4096

// Workdir is the filesystem shared by the accessors of every artifact type.
type Workdir struct {
	fs     billy.Filesystem
	ignore *ignoreList
	// meta caches parsed JSON document fields keyed by path; entries are only
	// trusted when size and mtime still match.
	meta *lru.Cache[string, cachedMeta]
}

type cachedMeta struct {
	size  int64
	mtime time.Time
	meta  docMeta
}

// Open returns the working directory rooted at root on the OS filesystem.
func Open(root string) (*Workdir, error) {
	return New(osfs.New(root))
}

// New wraps any billy filesystem, typically memfs in tests.
func New(fs billy.Filesystem) (*Workdir, error) {
	ignore, err := loadIgnoreList(fs)
	if err != nil {
		return nil, fmt.Errorf("local: load %s: %w", IgnoreFileName, err)
	}
	cache, err := lru.New[string, cachedMeta](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("local: create cache: %w", err)
	}
	return &Workdir{fs: fs, ignore: ignore, meta: cache}, nil
}

// Root returns the directory the filesystem is rooted at.
func (w *Workdir) Root() string {
	return w.fs.Root()
}

// Accessor returns the local accessor for items of type t.
func (w *Workdir) Accessor(t artifact.Type) *Accessor {
	return &Accessor{w: w, typ: t}
}
