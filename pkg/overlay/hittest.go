package overlay

import (
	"context"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
	"github.com/adrianliechti/forge/pkg/selector"
)

// HitTestRequest locates elements on the composite of a page, either under a
// point or inside a region. Coordinates are normalized.
type HitTestRequest struct {
	PageIndex int `json:"page_index"`

	Point  *geometry.Point `json:"point,omitempty"`
	Region *geometry.BBox  `json:"region,omitempty"`

	// Intersecting returns every element intersecting the region instead of
	// running the selection ladder.
	Intersecting bool `json:"intersecting,omitempty"`

	Kinds      []document.Kind `json:"kinds,omitempty"`
	MaxResults int             `json:"max_results,omitempty"`

	// Viewport enables the pixel based fallbacks of region selection.
	ViewportWidth  float64 `json:"viewport_width,omitempty"`
	ViewportHeight float64 `json:"viewport_height,omitempty"`
}

type HitTestResult struct {
	Candidates []selector.Candidate `json:"candidates"`

	Step selector.Step `json:"step,omitempty"`
}

func (s *Service) HitTest(ctx context.Context, docID string, req *HitTestRequest) (*HitTestResult, error) {
	if req.Point == nil && req.Region == nil {
		return nil, &ValidationError{Code: "missing_target", Message: "point or region is required"}
	}

	page, err := s.Composite(ctx, docID, req.PageIndex)

	if err != nil {
		return nil, err
	}

	index := selector.NewIndex(page, selector.DefaultCellSize)

	if req.Point != nil || req.Intersecting {
		var candidates []selector.Candidate

		if req.Point != nil {
			candidates = index.HitTestPoint(*req.Point)
		} else {
			candidates = index.HitTestRect(*req.Region)
		}

		if n := req.MaxResults; n > 0 && len(candidates) > n {
			candidates = candidates[:n]
		}

		return &HitTestResult{Candidates: candidates}, nil
	}

	options := &selector.FallbackOptions{
		Options: selector.Options{
			Kinds:      req.Kinds,
			MaxResults: req.MaxResults,
		},

		ViewportWidth:  req.ViewportWidth,
		ViewportHeight: req.ViewportHeight,

		AllowBroaden: len(req.Kinds) == 0,
	}

	elements, step := selector.PickWithFallbackStep(page.Elements, *req.Region, options)

	result := &HitTestResult{
		Candidates: make([]selector.Candidate, 0, len(elements)),

		Step: step,
	}

	for _, e := range elements {
		result.Candidates = append(result.Candidates, selector.Candidate{
			ID:    e.ID,
			Score: geometry.IntersectArea(*req.Region, e.BBox) / max(geometry.Area(e.BBox), 1e-9),
			BBox:  e.BBox,
			Kind:  e.Kind,
		})
	}

	return result, nil
}
