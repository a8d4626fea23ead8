package client

import (
	"context"
	"fmt"
	"net/url"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/overlay"
	"github.com/adrianliechti/forge/pkg/planner"
	"github.com/adrianliechti/forge/server/api"
)

type PlanRequest = api.PlanRequest

type HitTestRequest = overlay.HitTestRequest
type HitTestResult = overlay.HitTestResult

type OverlayService struct {
	Options []RequestOption
}

func NewOverlayService(opts ...RequestOption) OverlayService {
	return OverlayService{
		Options: opts,
	}
}

func (r *OverlayService) Get(ctx context.Context, docID string, pageIndex int, opts ...RequestOption) (*document.OverlayState, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	var result document.OverlayState

	path := fmt.Sprintf("/v1/documents/%s/overlay?page_index=%d", url.PathEscape(docID), pageIndex)

	if err := do(ctx, c, "GET", path, nil, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *OverlayService) Commit(ctx context.Context, docID string, input *document.CommitRequest, opts ...RequestOption) (*document.CommitResult, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	var result document.CommitResult

	if err := do(ctx, c, "POST", "/v1/documents/"+url.PathEscape(docID)+"/overlay/commit", input, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *OverlayService) Plan(ctx context.Context, docID string, input PlanRequest, opts ...RequestOption) (*planner.Plan, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	var result planner.Plan

	if err := do(ctx, c, "POST", "/v1/documents/"+url.PathEscape(docID)+"/overlay/plan", input, &result); err != nil {
		return nil, err
	}

	return &result, nil
}

func (r *OverlayService) HitTest(ctx context.Context, docID string, input HitTestRequest, opts ...RequestOption) (*HitTestResult, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	var result HitTestResult

	if err := do(ctx, c, "POST", "/v1/documents/"+url.PathEscape(docID)+"/hittest", input, &result); err != nil {
		return nil, err
	}

	return &result, nil
}
