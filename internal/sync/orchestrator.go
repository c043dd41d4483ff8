package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"

	"github.com/contenthub/hubsync/internal/artifact"
	"github.com/contenthub/hubsync/internal/index"
)

// orchestrator drives single items of one artifact type through the push or
// pull state machine. It is shared by all workers of a batch.
type orchestrator struct {
	typ    artifact.Type
	local  artifact.LocalAccessor
	remote artifact.RemoteAccessor
	index  *index.Index
	drafts *draftGuard
	now    func() time.Time
}

func (o *orchestrator) transition(op string, res *ItemResult, state State) {
	res.State = state
	slog.Debug("sync", "op", op, "type", o.typ, "path", res.Descriptor.Key(), "state", state)
}

func (o *orchestrator) fail(res ItemResult, kind error, err error) ItemResult {
	res.State = StateFailed
	res.Err = newItemError(kind, res.Descriptor.Key(), err)
	return res
}

// push sends one local item to the remote service.
func (o *orchestrator) push(ctx context.Context, desc artifact.Descriptor) ItemResult {
	res := ItemResult{Descriptor: desc, State: StateSelected}

	o.transition("push", &res, StateReading)
	payload, err := o.local.Read(ctx, desc.Path)
	if err != nil {
		return o.fail(res, ErrRead, err)
	}
	if o.typ.Kind() == artifact.KindJSON && !json.Valid(payload.Content) {
		return o.fail(res, ErrRead, errors.New("content is not valid JSON"))
	}
	mergeDescriptor(&res.Descriptor, &payload.Descriptor)

	entry, _ := o.index.Get(o.typ, desc.Path)
	id := res.Descriptor.ID
	if id == "" && entry != nil {
		id = entry.ID
	}

	// no remote call may happen before the guard passes
	if err := o.drafts.check(desc.Path, id, res.Descriptor.Status); err != nil {
		var ie *ItemError
		if errors.As(err, &ie) && ie.Kind == ErrStatePolicy {
			res.State = StateRejected
		} else {
			res.State = StateFailed
		}
		res.Err = err
		return res
	}

	o.transition("push", &res, StateSending)
	var wr *artifact.WriteResult
	switch {
	case id == "":
		wr, err = o.remote.Create(ctx, payload)
	case entry != nil && entry.ID == id && entry.Rev != "":
		wr, err = o.remote.Update(ctx, id, entry.Rev, payload)
	default:
		// the document names a remote item this index never synced, so there
		// is no rev to update against
		wr, err = o.adopt(ctx, id, payload)
	}

	switch {
	case errors.Is(err, artifact.ErrRevConflict):
		return o.conflict(ctx, res, payload, err)
	case err != nil:
		return o.fail(res, ErrTransport, err)
	}

	if wr.ID == "" {
		wr.ID = id
	}
	syncedLocal := payload.Descriptor.LastModified
	if syncedLocal.IsZero() {
		syncedLocal = o.now()
	}
	commit := index.Entry{
		Path:                 desc.Path,
		ID:                   wr.ID,
		Rev:                  wr.Rev,
		ContentHash:          index.HashBytes(payload.Content),
		LastSyncedLocalTime:  syncedLocal,
		LastSyncedRemoteTime: wr.LastModified,
		Status:               res.Descriptor.Status,
	}
	if err := o.index.Commit(o.typ, commit); err != nil {
		return o.fail(res, ErrWrite, err)
	}

	res.Descriptor.ID = wr.ID
	res.Descriptor.Rev = wr.Rev
	res.State = StateSucceeded
	return res
}

// adopt links a local document to remote item id without writing to the
// remote. Identical content is recorded as synced at the remote rev; anything
// else is a revision conflict.
func (o *orchestrator) adopt(ctx context.Context, id string, payload *artifact.Payload) (*artifact.WriteResult, error) {
	remote, err := o.remote.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("no synced revision of %s: %w", id, err)
	}
	if index.HashBytes(remote.Content) != index.HashBytes(payload.Content) {
		return nil, fmt.Errorf("no synced revision of %s and the remote content differs: %w", id, artifact.ErrRevConflict)
	}
	return &artifact.WriteResult{ID: id, Rev: remote.Descriptor.Rev, LastModified: remote.Descriptor.LastModified}, nil
}

// pull fetches one remote item into the working directory.
func (o *orchestrator) pull(ctx context.Context, desc artifact.Descriptor) ItemResult {
	res := ItemResult{Descriptor: desc, State: StateSelected}

	entry, _ := o.index.EntryByID(o.typ, desc.ID)
	if entry != nil {
		// a known item stays where it was first synced
		res.Descriptor.Path = entry.Path
	}

	o.transition("pull", &res, StateReading)
	payload, err := o.remote.Get(ctx, desc.ID)
	if err != nil {
		return o.fail(res, ErrTransport, err)
	}
	if res.Descriptor.Path == "" {
		res.Descriptor.Path = payload.Descriptor.Path
	}
	if res.Descriptor.Path == "" {
		return o.fail(res, ErrRead, fmt.Errorf("remote item %s has no local path", desc.ID))
	}
	if payload.Descriptor.Rev == "" {
		payload.Descriptor.Rev = desc.Rev
	}
	if payload.Descriptor.LastModified.IsZero() {
		payload.Descriptor.LastModified = desc.LastModified
	}
	path := res.Descriptor.Path

	// never overwrite local work that was not synced
	current, err := o.local.Read(ctx, path)
	switch {
	case errors.Is(err, artifact.ErrNotFound):
	case err != nil:
		return o.fail(res, ErrRead, err)
	default:
		modified, _ := index.IsLocallyModified(entry, current.Descriptor.LastModified, func() ([]byte, error) {
			return current.Content, nil
		})
		if modified && index.HashBytes(current.Content) != index.HashBytes(payload.Content) {
			return o.conflict(ctx, res, payload, errors.New("local copy modified since last sync"))
		}
	}

	o.transition("pull", &res, StateSending)
	payload.Descriptor.Path = path
	if err := o.local.Write(ctx, path, payload); err != nil {
		return o.fail(res, ErrWrite, err)
	}

	commit := index.Entry{
		Path:                 path,
		ID:                   desc.ID,
		Rev:                  payload.Descriptor.Rev,
		ContentHash:          index.HashBytes(payload.Content),
		LastSyncedLocalTime:  o.now(),
		LastSyncedRemoteTime: payload.Descriptor.LastModified,
		Status:               payload.Descriptor.Status,
	}
	if err := o.index.Commit(o.typ, commit); err != nil {
		return o.fail(res, ErrWrite, err)
	}

	res.Descriptor.Rev = commit.Rev
	res.State = StateSucceeded
	return res
}

// conflict writes payload to the side-by-side marker path and reports the item
// as conflicted. The canonical local file and its index entry are left alone.
func (o *orchestrator) conflict(ctx context.Context, res ItemResult, payload *artifact.Payload, cause error) ItemResult {
	res.State = StateConflicted
	marked, err := writeMarker(ctx, o.local, res.Descriptor.Path, payload, o.now())
	if err != nil {
		res.Err = newItemError(ErrConflict, res.Descriptor.Path, errors.Join(cause, err))
		return res
	}
	res.MarkerPath = marked
	res.Err = newItemError(ErrConflict, res.Descriptor.Path, cause)
	return res
}

// mergeDescriptor fills fields of dst that the accessor learned while reading.
func mergeDescriptor(dst, src *artifact.Descriptor) {
	if src.ID != "" {
		dst.ID = src.ID
	}
	if src.Status != artifact.StatusNone {
		dst.Status = src.Status
	}
	if src.ParentID != "" {
		dst.ParentID = src.ParentID
	}
	if !src.LastModified.IsZero() {
		dst.LastModified = src.LastModified
	}
	if src.Size != 0 {
		dst.Size = src.Size
	}
}
