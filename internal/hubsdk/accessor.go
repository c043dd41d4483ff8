package hubsdk

import (
	"context"
	"errors"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/contenthub/hubsync/internal/artifact"
)

var errEmptyResponse = errors.New("sdk: empty response")

// Accessor adapts the items API to the artifact.RemoteAccessor of one type.
type Accessor struct {
	items *ItemsAPI
	typ   artifact.Type
}

var (
	_ artifact.RemoteAccessor = (*Accessor)(nil)
	_ artifact.DraftLister    = (*Accessor)(nil)
)

// Accessor returns the remote accessor for items of type t.
func (s *HubSDK) Accessor(t artifact.Type) *Accessor {
	return &Accessor{items: s.Items, typ: t}
}

func (a *Accessor) descriptor(m ItemMeta) artifact.Descriptor {
	return artifact.Descriptor{
		Type:         a.typ,
		ID:           m.ID,
		Path:         m.Path,
		Rev:          m.Rev,
		Status:       artifact.Status(m.Status),
		ParentID:     m.ParentID,
		LastModified: m.LastModified,
		Size:         m.Size,
	}
}

func (a *Accessor) List(ctx context.Context, since *time.Time) ([]artifact.Descriptor, error) {
	resp, err := a.items.List(ctx, a.typ.String(), since)
	if err != nil {
		return nil, err
	}
	out := make([]artifact.Descriptor, 0, len(resp.Items))
	for _, m := range resp.Items {
		out = append(out, a.descriptor(m))
	}
	return out, nil
}

// ListDrafts returns the ids of the pending drafts, as the hub reports them.
func (a *Accessor) ListDrafts(ctx context.Context) ([]string, error) {
	resp, err := a.items.Drafts(ctx, a.typ.String())
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Items))
	for _, m := range resp.Items {
		ids = append(ids, m.ID)
	}
	return ids, nil
}

func (a *Accessor) Get(ctx context.Context, id string) (*artifact.Payload, error) {
	item, err := a.items.Get(ctx, a.typ.String(), id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errEmptyResponse
	}

	content := []byte(item.Content)
	if a.typ.Kind() == artifact.KindBinary {
		content = item.Data
	}
	d := a.descriptor(item.ItemMeta)
	d.Size = int64(len(content))
	return &artifact.Payload{Descriptor: d, Content: content}, nil
}

func (a *Accessor) Create(ctx context.Context, p *artifact.Payload) (*artifact.WriteResult, error) {
	resp, err := a.items.Create(ctx, a.typ.String(), a.writeRequest(p, ""))
	return writeResult(resp, err)
}

func (a *Accessor) Update(ctx context.Context, id, rev string, p *artifact.Payload) (*artifact.WriteResult, error) {
	resp, err := a.items.Update(ctx, a.typ.String(), id, a.writeRequest(p, rev))
	return writeResult(resp, err)
}

func (a *Accessor) Delete(ctx context.Context, id string) error {
	return a.items.Delete(ctx, a.typ.String(), id)
}

func (a *Accessor) writeRequest(p *artifact.Payload, rev string) *WriteRequest {
	wr := &WriteRequest{Path: p.Descriptor.Path, Rev: rev}
	if a.typ.Kind() == artifact.KindBinary {
		wr.Data = p.Content
		wr.ContentType = mimetype.Detect(p.Content).String()
	} else {
		wr.Content = p.Content
		wr.ContentType = "application/json"
	}
	return wr
}

func writeResult(resp *WriteResponse, err error) (*artifact.WriteResult, error) {
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, errEmptyResponse
	}
	return &artifact.WriteResult{ID: resp.ID, Rev: resp.Rev, LastModified: resp.LastModified}, nil
}
