package local

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-git/go-billy/v5/util"
	"github.com/goccy/go-json"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/utils"
)

// Accessor lists, reads and writes the items of one artifact type below the
// type's directory. It is safe for concurrent use.
type Accessor struct {
	w   *Workdir
	typ artifact.Type
}

var (
	_ artifact.LocalAccessor = (*Accessor)(nil)
	_ artifact.Renamer       = (*Accessor)(nil)
)

// docMeta holds the top-level document fields the engine cares about.
type docMeta struct {
	ID       string
	Status   artifact.Status
	ParentID string
}

func parseDocMeta(data []byte) docMeta {
	var doc struct {
		ID       string          `json:"id"`
		Status   artifact.Status `json:"status"`
		ParentID string          `json:"parentId"`
		Parent   json.RawMessage `json:"parent"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return docMeta{}
	}
	m := docMeta{ID: doc.ID, Status: doc.Status, ParentID: doc.ParentID}
	if m.ParentID == "" && len(doc.Parent) > 0 {
		// parent may also be an embedded object; only a plain id is a reference
		var parent string
		if json.Unmarshal(doc.Parent, &parent) == nil {
			m.ParentID = parent
		}
	}
	return m
}

// checkPath rejects paths outside the type's directory.
func (a *Accessor) checkPath(p string) error {
	if p == "" || utils.NormPath(p) != p || strings.HasPrefix(p, "../") || !strings.HasPrefix(p, a.typ.Dir()+"/") {
		return fmt.Errorf("local: path %q is not inside %s/", p, a.typ.Dir())
	}
	return nil
}

func (a *Accessor) wantFile(p string) bool {
	if a.w.ignore.ShouldIgnore(p) || utils.IsTempPath(p) {
		return false
	}
	if a.typ.Kind() == artifact.KindJSON {
		return strings.EqualFold(path.Ext(p), ".json")
	}
	return true
}

func (a *Accessor) List(ctx context.Context) ([]artifact.Descriptor, error) {
	root := a.typ.Dir()
	if _, err := a.w.fs.Stat(root); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	var (
		out   []artifact.Descriptor
		total int64
	)
	err := util.Walk(a.w.fs, root, func(name string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		p := filepath.ToSlash(name)
		if info.IsDir() {
			if p != root && a.w.ignore.ShouldIgnore(p+"/") {
				return filepath.SkipDir
			}
			return nil
		}
		if !info.Mode().IsRegular() || !a.wantFile(p) {
			return nil
		}

		d := artifact.Descriptor{Type: a.typ, Path: p, LastModified: info.ModTime(), Size: info.Size()}
		if a.typ.Kind() == artifact.KindJSON {
			m, err := a.meta(p, info)
			if err != nil {
				return err
			}
			d.ID, d.Status, d.ParentID = m.ID, m.Status, m.ParentID
		}
		out = append(out, d)
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("local: list %s: %w", root, err)
	}

	slog.Debug("local", "op", "list", "type", a.typ, "items", len(out), "size", humanize.Bytes(uint64(total)))
	return out, nil
}

// meta returns the parsed document fields of p, reading the file only when the
// cached copy is stale.
func (a *Accessor) meta(p string, info os.FileInfo) (docMeta, error) {
	if c, ok := a.w.meta.Get(p); ok && c.size == info.Size() && c.mtime.Equal(info.ModTime()) {
		return c.meta, nil
	}
	data, err := util.ReadFile(a.w.fs, p)
	if err != nil {
		return docMeta{}, err
	}
	m := parseDocMeta(data)
	a.w.meta.Add(p, cachedMeta{size: info.Size(), mtime: info.ModTime(), meta: m})
	return m, nil
}

func (a *Accessor) Read(_ context.Context, p string) (*artifact.Payload, error) {
	if err := a.checkPath(p); err != nil {
		return nil, err
	}
	info, err := a.w.fs.Stat(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("local: read %s: %w", p, artifact.ErrNotFound)
	} else if err != nil {
		return nil, fmt.Errorf("local: stat %s: %w", p, err)
	}
	data, err := util.ReadFile(a.w.fs, p)
	if err != nil {
		return nil, fmt.Errorf("local: read %s: %w", p, err)
	}

	d := artifact.Descriptor{Type: a.typ, Path: p, LastModified: info.ModTime(), Size: int64(len(data))}
	if a.typ.Kind() == artifact.KindJSON {
		m := parseDocMeta(data)
		a.w.meta.Add(p, cachedMeta{size: info.Size(), mtime: info.ModTime(), meta: m})
		d.ID, d.Status, d.ParentID = m.ID, m.Status, m.ParentID
	}
	return &artifact.Payload{Descriptor: d, Content: data}, nil
}

// Write replaces p atomically: the content goes to a temporary file in the
// same directory, which is synced and renamed over p.
func (a *Accessor) Write(_ context.Context, p string, payload *artifact.Payload) (err error) {
	if err := a.checkPath(p); err != nil {
		return err
	}
	dir := path.Dir(p)
	if err := a.w.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("local: mkdir %s: %w", dir, err)
	}

	tmp, err := a.w.fs.TempFile(dir, path.Base(p)+utils.TempMarker)
	if err != nil {
		return fmt.Errorf("local: create temp file for %s: %w", p, err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			a.w.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(payload.Content); err != nil {
		return fmt.Errorf("local: write %s: %w", p, err)
	}
	if s, ok := tmp.(interface{ Sync() error }); ok {
		if err = s.Sync(); err != nil {
			return fmt.Errorf("local: sync %s: %w", p, err)
		}
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("local: close %s: %w", p, err)
	}
	if err = a.w.fs.Rename(tmpName, p); err != nil {
		return fmt.Errorf("local: rename into %s: %w", p, err)
	}

	a.w.meta.Remove(p)
	return nil
}

func (a *Accessor) Delete(_ context.Context, p string) error {
	if err := a.checkPath(p); err != nil {
		return err
	}
	if err := a.w.fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("local: delete %s: %w", p, err)
	}
	a.w.meta.Remove(p)
	return nil
}

func (a *Accessor) Exists(p string) bool {
	_, err := a.w.fs.Stat(p)
	return err == nil
}

func (a *Accessor) Rename(from, to string) error {
	if err := a.checkPath(from); err != nil {
		return err
	}
	if err := a.checkPath(to); err != nil {
		return err
	}
	if err := a.w.fs.Rename(from, to); err != nil {
		return fmt.Errorf("local: rename %s to %s: %w", from, to, err)
	}
	a.w.meta.Remove(from)
	return nil
}
