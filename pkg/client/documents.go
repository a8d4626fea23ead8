package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/server/api"
)

type DocumentInfo = api.DocumentInfo

type DocumentService struct {
	Options []RequestOption
}

func NewDocumentService(opts ...RequestOption) DocumentService {
	return DocumentService{
		Options: opts,
	}
}

// Ingest uploads an extracted document and returns it with normalized boxes
// and assigned element ids.
func (r *DocumentService) Ingest(ctx context.Context, doc *document.Document, opts ...RequestOption) (*document.Document, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	var result document.Document

	if err := do(ctx, c, "POST", "/v1/documents", doc, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *DocumentService) Get(ctx context.Context, id string, opts ...RequestOption) (*DocumentInfo, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	var result DocumentInfo

	if err := do(ctx, c, "GET", "/v1/documents/"+url.PathEscape(id), nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *DocumentService) Delete(ctx context.Context, id string, opts ...RequestOption) error {
	c := newRequestConfig(append(r.Options, opts...)...)
	return do(ctx, c, "DELETE", "/v1/documents/"+url.PathEscape(id), nil, nil)
}

func (r *DocumentService) Decoded(ctx context.Context, id string, opts ...RequestOption) (*document.Document, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	var result document.Document

	if err := do(ctx, c, "GET", "/v1/documents/"+url.PathEscape(id)+"/decoded", nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *DocumentService) Composite(ctx context.Context, id string, pageIndex int, opts ...RequestOption) (*document.Page, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	var result document.Page

	path := fmt.Sprintf("/v1/documents/%s/composite?page_index=%d", url.PathEscape(id), pageIndex)

	if err := do(ctx, c, "GET", path, nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}
