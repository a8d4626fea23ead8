package planner

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/text"
)

// ErrPlanningFailed is returned when a planner could not produce a valid plan.
var ErrPlanningFailed = errors.New("planning failed")

type Provider interface {
	Plan(ctx context.Context, req *Request) (*Plan, error)
}

type Request struct {
	DocumentID string `json:"doc_id"`
	PageIndex  int    `json:"page_index"`

	Selection []document.SelectionFingerprint `json:"selection"`

	Prompt string `json:"user_prompt"`

	BaseOverlayVersion *int `json:"base_overlay_version,omitempty"`
}

type Plan struct {
	Ops []document.PatchOp `json:"ops"`

	Rationale string   `json:"rationale,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// Validate checks a plan against the request it answers: every op must be
// well formed, target a selected element on the requested page, and carry an
// old_text (if any) that matches the selected text.
func Validate(req *Request, plan *Plan) error {
	if plan == nil {
		return errors.New("empty plan")
	}

	if len(plan.Ops) == 0 {
		return errors.New("plan contains no ops")
	}

	selection := make(map[string]document.SelectionFingerprint, len(req.Selection))

	for _, s := range req.Selection {
		selection[s.ElementID] = s
	}

	var errs []error

	for i, op := range plan.Ops {
		if err := op.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("op %d: %w", i, err))
			continue
		}

		s, ok := selection[op.ElementID]

		if !ok {
			errs = append(errs, fmt.Errorf("op %d: element %s is not selected", i, op.ElementID))
			continue
		}

		if s.PageIndex != req.PageIndex {
			errs = append(errs, fmt.Errorf("op %d: element %s is on page %d, not %d", i, op.ElementID, s.PageIndex, req.PageIndex))
			continue
		}

		if op.Type == document.OpReplaceElement && op.OldText != "" && s.Text != "" && text.Normalize(op.OldText) != text.Normalize(s.Text) {
			errs = append(errs, fmt.Errorf("op %d: old_text does not match the text of %s", i, op.ElementID))
			continue
		}

		if op.Type == document.OpUpdateStyle && op.Kind != "" && s.Kind != "" && op.Kind != s.Kind {
			errs = append(errs, fmt.Errorf("op %d: kind %s does not match %s", i, op.Kind, s.Kind))
		}
	}

	return errors.Join(errs...)
}

// SelectedIDs returns the element ids of the request's selection in order.
func (r *Request) SelectedIDs() []string {
	ids := make([]string, 0, len(r.Selection))

	for _, s := range r.Selection {
		if !slices.Contains(ids, s.ElementID) {
			ids = append(ids, s.ElementID)
		}
	}

	return ids
}
