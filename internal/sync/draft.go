package sync

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/index"
)

// draftGuard knows which ready items of one type still have an unresolved
// remote draft. It is built once per batch, before any item is sent.
type draftGuard struct {
	pending mapset.Set[string]
	// err is set when the remote draft listing failed; ready items with an id
	// are then failed instead of risking an overwrite.
	err error
}

func loadDraftGuard(ctx context.Context, t artifact.Type, remote artifact.RemoteAccessor, idx *index.Index) *draftGuard {
	g := &draftGuard{pending: mapset.NewSet[string]()}

	// drafts synced earlier are tracked as their own items, "X:draft"
	for _, e := range idx.Entries(t) {
		if artifact.IsDraftID(e.ID) {
			g.pending.Add(artifact.DraftBase(e.ID))
		}
	}

	lister, ok := remote.(artifact.DraftLister)
	if !ok {
		return g
	}
	ids, err := lister.ListDrafts(ctx)
	if err != nil {
		g.err = fmt.Errorf("list drafts: %w", err)
		return g
	}
	for _, id := range ids {
		g.pending.Add(artifact.DraftBase(id))
	}
	return g
}

// check returns a non-nil error when pushing an item with the given status and
// id would overwrite a ready item that still has a pending draft.
func (g *draftGuard) check(path, id string, status artifact.Status) error {
	if status != artifact.StatusReady || id == "" {
		return nil
	}
	if g.err != nil {
		return newItemError(ErrTransport, path, g.err)
	}
	if g.pending.Contains(id) {
		return newItemError(ErrStatePolicy, path, fmt.Errorf("item %s is ready but a remote draft is pending", id))
	}
	return nil
}
