package client

import (
	"context"
	"net/url"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/server/api"
)

type RevertResult = api.RevertResponse

type PatchService struct {
	Options []RequestOption
}

func NewPatchService(opts ...RequestOption) PatchService {
	return PatchService{
		Options: opts,
	}
}

func (r *PatchService) List(ctx context.Context, docID string, opts ...RequestOption) ([]document.Patchset, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	var result api.PatchesResponse

	if err := do(ctx, c, "GET", "/v1/documents/"+url.PathEscape(docID)+"/patches", nil, &result); err != nil {
		return nil, err
	}

	return result.Patchsets, nil
}

// Revert undoes the newest patchset of the document, whichever page it
// belongs to.
func (r *PatchService) Revert(ctx context.Context, docID string, opts ...RequestOption) (*RevertResult, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	var result RevertResult

	if err := do(ctx, c, "POST", "/v1/documents/"+url.PathEscape(docID)+"/patches/revert", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}
