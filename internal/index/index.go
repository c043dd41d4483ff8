// Package index implements the Change Index: the persisted per-item record of
// the last successful synchronization, keyed by artifact type and local path.
package index

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/utils"
	"github.com/goccy/go-json"
)

// FileName is the name of the index file inside the working directory's metadata dir.
const FileName = "index.json"

const formatVersion = 1

var (
	ErrCorrupt   = errors.New("index: corrupt index file")
	ErrEmptyPath = errors.New("index: entry path is empty")
)

// Entry records one item as of its last successful push or pull.
type Entry struct {
	Path                 string          `json:"path"`
	ID                   string          `json:"id,omitempty"`
	Rev                  string          `json:"rev,omitempty"`
	ContentHash          string          `json:"contentHash"`
	LastSyncedLocalTime  time.Time       `json:"lastSyncedLocalTime"`
	LastSyncedRemoteTime time.Time       `json:"lastSyncedRemoteTime"`
	Status               artifact.Status `json:"status,omitempty"`
}

type document struct {
	Version    int                                `json:"version"`
	Entries    map[artifact.Type]map[string]Entry `json:"entries"`
	Watermarks map[artifact.Type]time.Time        `json:"watermarks,omitempty"`
}

// Index is safe for concurrent use. Every mutation is serialized by one mutex
// and persisted with a write-temp-then-rename, so concurrently completing items
// commit one at a time.
type Index struct {
	path  string
	mu    sync.RWMutex
	doc   document
	dirty bool
}

func newDocument() document {
	return document{
		Version:    formatVersion,
		Entries:    make(map[artifact.Type]map[string]Entry),
		Watermarks: make(map[artifact.Type]time.Time),
	}
}

// Load reads the index at path. A missing file yields an empty index. Leftover
// temporary files from an interrupted flush are removed; the last renamed file
// is authoritative.
func Load(path string) (*Index, error) {
	idx := &Index{path: path, doc: newDocument()}

	if n, err := utils.RemoveTempFiles(path); err != nil {
		return nil, fmt.Errorf("index: remove leftover temp files: %w", err)
	} else if n > 0 {
		slog.Warn("index removed leftover temp files", "path", path, "count", n)
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return idx, nil
	} else if err != nil {
		return nil, fmt.Errorf("index: read %s: %w", path, err)
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, path, err)
	}
	if doc.Version > formatVersion {
		return nil, fmt.Errorf("%w: %s: unsupported version %d", ErrCorrupt, path, doc.Version)
	}
	if doc.Entries == nil {
		doc.Entries = make(map[artifact.Type]map[string]Entry)
	}
	if doc.Watermarks == nil {
		doc.Watermarks = make(map[artifact.Type]time.Time)
	}
	doc.Version = formatVersion
	idx.doc = doc

	slog.Debug("index loaded", "path", path, "entries", idx.Len())
	return idx, nil
}

// Path returns the file the index persists to.
func (i *Index) Path() string {
	return i.path
}

// Get returns a copy of the entry for path.
func (i *Index) Get(t artifact.Type, path string) (*Entry, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	e, ok := i.doc.Entries[t][path]
	if !ok {
		return nil, false
	}
	return &e, true
}

// EntryByID returns a copy of the entry of type t whose remote id is id.
func (i *Index) EntryByID(t artifact.Type, id string) (*Entry, bool) {
	if id == "" {
		return nil, false
	}
	i.mu.RLock()
	defer i.mu.RUnlock()
	for _, e := range i.doc.Entries[t] {
		if e.ID == id {
			return &e, true
		}
	}
	return nil, false
}

// Entries returns copies of every entry of type t, sorted by path.
func (i *Index) Entries(t artifact.Type) []Entry {
	i.mu.RLock()
	defer i.mu.RUnlock()
	byPath := i.doc.Entries[t]
	out := make([]Entry, 0, len(byPath))
	for _, p := range slices.Sorted(maps.Keys(byPath)) {
		out = append(out, byPath[p])
	}
	return out
}

// Len returns the number of entries across all types.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	n := 0
	for _, byPath := range i.doc.Entries {
		n += len(byPath)
	}
	return n
}

// Commit inserts or replaces the entry for e.Path and persists the index. When
// persisting fails the in-memory state is restored and the error returned.
func (i *Index) Commit(t artifact.Type, e Entry) error {
	if e.Path == "" {
		return ErrEmptyPath
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	byPath, ok := i.doc.Entries[t]
	if !ok {
		byPath = make(map[string]Entry)
		i.doc.Entries[t] = byPath
	}
	prev, existed := byPath[e.Path]
	byPath[e.Path] = e

	if err := i.flushLocked(); err != nil {
		if existed {
			byPath[e.Path] = prev
		} else {
			delete(byPath, e.Path)
		}
		return fmt.Errorf("index: commit %s: %w", e.Path, err)
	}
	return nil
}

// Remove deletes the entry for path and persists the index.
func (i *Index) Remove(t artifact.Type, path string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	prev, ok := i.doc.Entries[t][path]
	if !ok {
		return nil
	}
	delete(i.doc.Entries[t], path)

	if err := i.flushLocked(); err != nil {
		i.doc.Entries[t][path] = prev
		return fmt.Errorf("index: remove %s: %w", path, err)
	}
	return nil
}

// Watermark returns the time of the last successful pull of type t.
func (i *Index) Watermark(t artifact.Type) (time.Time, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	w, ok := i.doc.Watermarks[t]
	return w, ok
}

// SetWatermark records the time of a successful pull. It is persisted by the next Flush.
func (i *Index) SetWatermark(t artifact.Type, at time.Time) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if cur, ok := i.doc.Watermarks[t]; ok && cur.Equal(at) {
		return
	}
	i.doc.Watermarks[t] = at.UTC()
	i.dirty = true
}

// Flush persists pending changes. It is a no-op when nothing changed since the
// last successful write.
func (i *Index) Flush() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.dirty {
		return nil
	}
	if err := i.flushLocked(); err != nil {
		return fmt.Errorf("index: flush: %w", err)
	}
	return nil
}

func (i *Index) flushLocked() error {
	i.dirty = true
	data, err := json.MarshalIndent(i.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := utils.WriteFileAtomic(i.path, data, 0o644); err != nil {
		return err
	}
	i.dirty = false
	return nil
}
