package commit

import (
	"context"
	"fmt"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
	"github.com/adrianliechti/forge/pkg/planner"
	"github.com/adrianliechti/forge/pkg/text"
)

// reconcile updates req in place so the next attempt reflects what the
// conflict reported.
func (c *Coordinator) reconcile(ctx context.Context, req *document.CommitRequest, prompt string, conflict *ConflictError) error {
	switch conflict.Kind {
	case ConflictOverlayVersion:
		return c.rebase(ctx, req, prompt, conflict.Details)

	case ConflictDecodeIdentity:
		return c.remap(ctx, req, conflict.Details)

	default:
		adoptCurrent(req, conflict.Details)
		return nil
	}
}

// rebase adopts the current overlay version of the page and replans when a
// planner and the original instruction are available. The version reported
// with the conflict wins over the one of the refetched overlay.
func (c *Coordinator) rebase(ctx context.Context, req *document.CommitRequest, prompt string, details document.ConflictDetails) error {
	state, err := c.RefreshOverlay(ctx, req.DocumentID, req.PageIndex)

	if err != nil {
		return err
	}

	version := state.Version

	if details.CurrentOverlayVersion != nil {
		version = *details.CurrentOverlayVersion
	}

	req.BaseOverlayVersion = &version

	for i := range req.Selection {
		if entry, ok := state.Entry(req.Selection[i].ElementID); ok {
			req.Selection[i].ContentHash = entry.ContentHash
			req.Selection[i].Text = entry.Text
		}
	}

	if c.planner == nil || prompt == "" {
		return nil
	}

	c.setState(StateProposing)

	plan, err := c.planner.Plan(ctx, &planner.Request{
		DocumentID: req.DocumentID,
		PageIndex:  req.PageIndex,

		Selection: req.Selection,

		Prompt: prompt,

		BaseOverlayVersion: &version,
	})

	if err != nil {
		return err
	}

	c.setState(StateProposed)

	req.Ops = plan.Ops

	if plan.Rationale != "" {
		req.Rationale = plan.Rationale
	}

	return nil
}

// remap refreshes the decoded page and moves the selection and the op
// targets onto the elements they now correspond to.
func (c *Coordinator) remap(ctx context.Context, req *document.CommitRequest, details document.ConflictDetails) error {
	doc, err := c.backend.FetchDecoded(ctx, req.DocumentID)

	if err != nil {
		return err
	}

	page, ok := doc.Page(req.PageIndex)

	if !ok {
		return &ValidationError{Code: "page_not_found", Message: fmt.Sprintf("page %d no longer exists", req.PageIndex)}
	}

	renamed := make(map[string]string)

	for i, s := range req.Selection {
		resolved := ""

		if details.ElementID == s.ElementID {
			resolved = details.ResolvedElementID
		}

		e, ok := matchElement(page, s, resolved)

		if !ok {
			continue
		}

		if e.ID != s.ElementID {
			renamed[s.ElementID] = e.ID
		}

		next := document.Fingerprint(req.PageIndex, *e)

		if entry, ok := c.cache.Entry(req.DocumentID, req.PageIndex, e.ID); ok {
			next.ContentHash = entry.ContentHash
			next.Text = entry.Text
		}

		if details.CurrentContentHash != "" && (details.ElementID == s.ElementID || details.ResolvedElementID == e.ID) {
			next.ContentHash = details.CurrentContentHash
		}

		req.Selection[i] = next
	}

	for i := range req.Ops {
		if id, ok := renamed[req.Ops[i].ElementID]; ok {
			req.Ops[i].ElementID = id
		}
	}

	return nil
}

// matchElement finds the element a fingerprint now refers to: the id the
// store resolved, the same id, or the best overlapping element of the same
// kind with text similarity breaking ties.
func matchElement(page *document.Page, s document.SelectionFingerprint, resolved string) (*document.Element, bool) {
	if resolved != "" {
		if e, ok := page.Element(resolved); ok {
			return e, true
		}
	}

	if e, ok := page.Element(s.ElementID); ok {
		return e, true
	}

	var best *document.Element
	var bestIoU, bestSimilarity float64

	for i := range page.Elements {
		e := &page.Elements[i]

		if s.Kind != "" && e.Kind != s.Kind {
			continue
		}

		iou := geometry.IoU(s.BBox, e.BBox)

		if iou <= 0 {
			continue
		}

		similarity := text.Similarity(s.Text, e.Text)

		if iou > bestIoU || (iou == bestIoU && similarity > bestSimilarity) {
			best = e
			bestIoU = iou
			bestSimilarity = similarity
		}
	}

	return best, best != nil
}

// adoptCurrent takes over the hash, text and id the store reported for a
// content hash conflict. The ops are kept as they are. Details that name no
// selected element apply to the whole selection.
func adoptCurrent(req *document.CommitRequest, details document.ConflictDetails) {
	target := conflictTarget(req.Selection, details)

	for i := range req.Selection {
		s := &req.Selection[i]

		if target != "" && s.ElementID != target {
			continue
		}

		if details.CurrentEntry != nil {
			s.ContentHash = details.CurrentEntry.ContentHash
			s.Text = details.CurrentEntry.Text
		}

		if details.CurrentContentHash != "" {
			s.ContentHash = details.CurrentContentHash
		}

		if target == "" && len(req.Selection) > 1 {
			continue
		}

		if id := details.ResolvedElementID; id != "" && id != s.ElementID {
			for j := range req.Ops {
				if req.Ops[j].ElementID == s.ElementID {
					req.Ops[j].ElementID = id
				}
			}

			s.ElementID = id
		}
	}
}

// conflictTarget returns the selected element a conflict refers to, or "" if
// the details do not single one out.
func conflictTarget(selection []document.SelectionFingerprint, details document.ConflictDetails) string {
	if details.ElementID != "" {
		return details.ElementID
	}

	candidates := []string{details.ResolvedElementID}

	if details.CurrentEntry != nil {
		candidates = append(candidates, details.CurrentEntry.ElementID)
	}

	for _, id := range candidates {
		if id == "" {
			continue
		}

		for _, s := range selection {
			if s.ElementID == id {
				return id
			}
		}
	}

	return ""
}
