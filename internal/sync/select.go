package sync

import (
	"context"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/index"
	"github.com/contenthub/hubsync/internal/manifest"
	"github.com/contenthub/hubsync/internal/utils"
)

// selection is the candidate set of one type, plus items that already reached
// a terminal state while being selected.
type selection struct {
	items    []artifact.Descriptor
	problems []ItemResult
	// latest is the newest remote LastModified in a pull listing, in the
	// remote's own clock
	latest time.Time
}

func (s *selection) problem(desc artifact.Descriptor, kind error, err error) {
	s.problems = append(s.problems, ItemResult{
		Descriptor: desc,
		State:      StateFailed,
		Err:        newItemError(kind, desc.Key(), err),
	})
}

func (e *Engine) selectCandidates(ctx context.Context, scope Scope, t artifact.Type, acc artifact.Accessors) selection {
	if scope.Direction == DirectionPush {
		return e.selectPush(ctx, scope, t, acc.Local)
	}
	return e.selectPull(ctx, scope, t, acc.Remote)
}

func (e *Engine) selectPush(ctx context.Context, scope Scope, t artifact.Type, local artifact.LocalAccessor) selection {
	var sel selection

	listed, err := local.List(ctx)
	if err != nil {
		sel.problem(artifact.Descriptor{Type: t, Path: t.Dir()}, ErrRead, fmt.Errorf("list local: %w", err))
		return sel
	}
	for i := range listed {
		listed[i].Type = t
	}

	if scope.mode() == ModeManifest {
		e.fromManifest(&sel, scope.Manifest, t, listed)
		return sel
	}

	for _, d := range listed {
		if IsMarkedPath(d.Path) || !scope.matches(d.Path) {
			continue
		}
		if scope.mode() == ModeAll {
			sel.items = append(sel.items, d)
			continue
		}

		entry, _ := e.index.Get(t, d.Path)
		modified, err := index.IsLocallyModified(entry, d.LastModified, func() ([]byte, error) {
			p, err := local.Read(ctx, d.Path)
			if err != nil {
				return nil, err
			}
			return p.Content, nil
		})
		if err != nil {
			sel.problem(d, ErrRead, err)
			continue
		}
		if modified {
			sel.items = append(sel.items, d)
		}
	}
	return sel
}

func (e *Engine) selectPull(ctx context.Context, scope Scope, t artifact.Type, remote artifact.RemoteAccessor) selection {
	var sel selection

	var since *time.Time
	if scope.mode() == ModeModifiedOnly {
		if w, ok := e.index.Watermark(t); ok {
			since = &w
		}
	}

	listed, err := remote.List(ctx, since)
	if err != nil {
		sel.problem(artifact.Descriptor{Type: t, Path: t.Dir()}, ErrTransport, fmt.Errorf("list remote: %w", err))
		return sel
	}
	for i := range listed {
		listed[i].Type = t
		if listed[i].LastModified.After(sel.latest) {
			sel.latest = listed[i].LastModified
		}
	}

	if scope.mode() == ModeManifest {
		e.fromManifest(&sel, scope.Manifest, t, listed)
		return sel
	}

	for _, d := range listed {
		entry, _ := e.index.EntryByID(t, d.ID)
		path := d.Path
		if entry != nil {
			path = entry.Path
		}
		if !scope.matches(path) {
			continue
		}
		if scope.mode() == ModeAll || index.IsRemotelyModified(entry, &d) {
			sel.items = append(sel.items, d)
		}
	}
	return sel
}

// fromManifest resolves the manifest items of type t against a fresh listing.
// Items that no longer exist become ManifestError failures; they never abort the batch.
func (e *Engine) fromManifest(sel *selection, m *manifest.Manifest, t artifact.Type, listed []artifact.Descriptor) {
	byID := make(map[string]artifact.Descriptor, len(listed))
	byPath := make(map[string]artifact.Descriptor, len(listed))
	for _, d := range listed {
		if d.ID != "" {
			byID[d.ID] = d
		}
		if d.Path != "" {
			byPath[d.Path] = d
		}
	}

	lookup := func(it manifest.Item) (artifact.Descriptor, bool) {
		if it.ID != "" {
			if d, ok := byID[it.ID]; ok {
				return d, true
			}
			if entry, ok := e.index.EntryByID(t, it.ID); ok {
				if d, ok := byPath[entry.Path]; ok {
					return d, true
				}
			}
		}
		if it.Path != "" {
			p := utils.NormPath(it.Path)
			if d, ok := byPath[p]; ok {
				return d, true
			}
			if entry, ok := e.index.Get(t, p); ok && entry.ID != "" {
				if d, ok := byID[entry.ID]; ok {
					return d, true
				}
			}
		}
		return artifact.Descriptor{}, false
	}

	seen := mapset.NewThreadUnsafeSet[string]()
	for _, it := range m.ItemsOf(t) {
		d, ok := lookup(it)
		if !ok {
			sel.problem(artifact.Descriptor{Type: t, ID: it.ID, Path: it.Path}, ErrManifest,
				fmt.Errorf("listed in manifest %q but does not exist", m.Name))
			continue
		}
		if seen.Add(d.Key()) {
			sel.items = append(sel.items, d)
		}
	}
}
