package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/adrianliechti/forge/pkg/commit"
	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/planner"
)

var (
	_ commit.Backend   = (*Client)(nil)
	_ planner.Provider = (*Client)(nil)
)

// Client talks to a forge server. Besides the per-resource services it
// implements commit.Backend and planner.Provider, so a commit.Coordinator
// can run directly against a remote server.
type Client struct {
	Documents DocumentService
	Overlays  OverlayService
	Patches   PatchService
}

func New(url string, opts ...RequestOption) *Client {
	opts = append(opts, WithURL(strings.TrimRight(url, "/")))

	return &Client{
		Documents: NewDocumentService(opts...),
		Overlays:  NewOverlayService(opts...),
		Patches:   NewPatchService(opts...),
	}
}

func (c *Client) Commit(ctx context.Context, req *document.CommitRequest) (*document.CommitResult, error) {
	return c.Overlays.Commit(ctx, req.DocumentID, req)
}

func (c *Client) FetchOverlay(ctx context.Context, docID string, pageIndex int) (*document.OverlayState, error) {
	return c.Overlays.Get(ctx, docID, pageIndex)
}

func (c *Client) FetchDecoded(ctx context.Context, docID string) (*document.Document, error) {
	return c.Documents.Decoded(ctx, docID)
}

func (c *Client) RevertLast(ctx context.Context, docID string) (*document.Patchset, error) {
	result, err := c.Patches.Revert(ctx, docID)

	if err != nil {
		return nil, err
	}

	return &result.Reverted, nil
}

func (c *Client) Patchsets(ctx context.Context, docID string) ([]document.Patchset, error) {
	return c.Patches.List(ctx, docID)
}

func (c *Client) Plan(ctx context.Context, req *planner.Request) (*planner.Plan, error) {
	return c.Overlays.Plan(ctx, req.DocumentID, PlanRequest{
		PageIndex: req.PageIndex,

		Selection: req.Selection,
		Prompt:    req.Prompt,

		BaseOverlayVersion: req.BaseOverlayVersion,
	})
}

func newRequestConfig(opts ...RequestOption) *RequestConfig {
	c := &RequestConfig{
		Client: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func Ptr[T any](v T) *T {
	return &v
}
