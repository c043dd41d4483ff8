package hubsdk

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"
)

const (
	v1Items      = "/api/v1/tenants/{tenant}/{type}"
	v1ItemDrafts = "/api/v1/tenants/{tenant}/{type}/drafts"
	v1Item       = "/api/v1/tenants/{tenant}/{type}/items/{id}"
	v1ItemCreate = "/api/v1/tenants/{tenant}/{type}/items"
)

// ItemsAPI talks to the per-type item collections of one tenant.
type ItemsAPI struct {
	client *req.Client
	tenant string
}

func newItemsAPI(client *req.Client, tenant string) *ItemsAPI {
	return &ItemsAPI{
		client: client,
		tenant: tenant,
	}
}

func (i *ItemsAPI) request(ctx context.Context, typ string) *req.Request {
	return i.client.R().
		SetContext(ctx).
		SetPathParam("tenant", i.tenant).
		SetPathParam("type", typ)
}

// List returns the metadata of every item of typ, or only those modified after
// since when it is set.
func (i *ItemsAPI) List(ctx context.Context, typ string, since *time.Time) (apiResp *ListResponse, err error) {
	r := i.request(ctx, typ).SetSuccessResult(&apiResp)
	if since != nil {
		r.SetQueryParam(QueryModifiedFrom, since.UTC().Format(time.RFC3339Nano))
	}
	resp, err := r.Get(v1Items)

	if err := handleAPIError(resp, err, fmt.Sprintf("list %s", typ)); err != nil {
		return nil, err
	}
	if apiResp == nil {
		apiResp = &ListResponse{}
	}

	return apiResp, nil
}

// Drafts returns the pending drafts of typ.
func (i *ItemsAPI) Drafts(ctx context.Context, typ string) (apiResp *ListResponse, err error) {
	resp, err := i.request(ctx, typ).
		SetSuccessResult(&apiResp).
		Get(v1ItemDrafts)

	if err := handleAPIError(resp, err, fmt.Sprintf("list %s drafts", typ)); err != nil {
		return nil, err
	}
	if apiResp == nil {
		apiResp = &ListResponse{}
	}

	return apiResp, nil
}

func (i *ItemsAPI) Get(ctx context.Context, typ, id string) (apiResp *Item, err error) {
	resp, err := i.request(ctx, typ).
		SetPathParam("id", id).
		SetSuccessResult(&apiResp).
		Get(v1Item)

	if err := handleAPIError(resp, err, fmt.Sprintf("get %s/%s", typ, id)); err != nil {
		return nil, err
	}

	return apiResp, nil
}

func (i *ItemsAPI) Create(ctx context.Context, typ string, params *WriteRequest) (apiResp *WriteResponse, err error) {
	resp, err := i.request(ctx, typ).
		SetBody(params).
		SetSuccessResult(&apiResp).
		Post(v1ItemCreate)

	if err := handleAPIError(resp, err, fmt.Sprintf("create %s", typ)); err != nil {
		return nil, err
	}

	return apiResp, nil
}

// Update replaces the item only if params.Rev is still its current rev. The
// hub answers 409 E_REV_CONFLICT otherwise. An empty rev is refused before
// any request is made.
func (i *ItemsAPI) Update(ctx context.Context, typ, id string, params *WriteRequest) (apiResp *WriteResponse, err error) {
	if params.Rev == "" {
		return nil, fmt.Errorf("update %s/%s: %w", typ, id, ErrMissingRev)
	}
	resp, err := i.request(ctx, typ).
		SetPathParam("id", id).
		SetHeader(HeaderIfMatch, params.Rev).
		SetBody(params).
		SetSuccessResult(&apiResp).
		Put(v1Item)

	if err := handleAPIError(resp, err, fmt.Sprintf("update %s/%s", typ, id)); err != nil {
		return nil, err
	}

	return apiResp, nil
}

func (i *ItemsAPI) Delete(ctx context.Context, typ, id string) error {
	resp, err := i.request(ctx, typ).
		SetPathParam("id", id).
		Delete(v1Item)

	return handleAPIError(resp, err, fmt.Sprintf("delete %s/%s", typ, id))
}
