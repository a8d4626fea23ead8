package overlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
	"github.com/adrianliechti/forge/pkg/identity"
	"github.com/adrianliechti/forge/pkg/patch"
	"github.com/adrianliechti/forge/pkg/store"
	"github.com/adrianliechti/forge/pkg/text"

	"github.com/google/uuid"
)

// Commit applies the ops of req to the page if the selection still matches
// the stored state, and records them as a new patchset. Selected ids unknown
// to the page are resolved to the most similar element, or kept as custom
// elements when nothing is similar enough.
func (s *Service) Commit(ctx context.Context, docID string, req *document.CommitRequest) (*document.CommitResult, error) {
	if err := validateCommit(docID, req); err != nil {
		return nil, err
	}

	version, err := s.store.OverlayVersion(ctx, docID, req.PageIndex)

	if err != nil {
		return nil, err
	}

	if version != *req.BaseOverlayVersion {
		return nil, versionConflict(version)
	}

	composite, base, err := s.composite(ctx, docID, req.PageIndex)

	if err != nil {
		return nil, err
	}

	selection := make(map[string]document.SelectionFingerprint, len(req.Selection))
	resolved := make(map[string]string, len(req.Selection))

	var custom []document.Element

	for _, item := range req.Selection {
		selection[item.ElementID] = item

		if id, ok := s.resolve(composite, item); ok {
			resolved[item.ElementID] = id
			continue
		}

		e := customElement(req.PageIndex, item)

		custom = append(custom, e)
		composite.Elements = append(composite.Elements, e)
		base.Elements = append(base.Elements, e)

		resolved[item.ElementID] = e.ID
	}

	ops := make([]document.PatchOp, 0, len(req.Ops))

	for _, op := range req.Ops {
		item, ok := selection[op.ElementID]

		if !ok {
			return nil, &ValidationError{
				Code:    CodeOutOfScope,
				Message: "ops must target the selection",
				Details: map[string]any{"element_id": op.ElementID},
			}
		}

		target := resolved[op.ElementID]

		current, ok := composite.Element(target)

		if !ok {
			return nil, &ValidationError{
				Code:    CodeTargetNotFound,
				Message: "target not found",
				Details: map[string]any{"element_id": op.ElementID},
			}
		}

		if item.ContentHash != "" && current.ContentHash != "" && item.ContentHash != current.ContentHash {
			return nil, hashConflict(op.ElementID, target, item.ContentHash, current)
		}

		op.ElementID = target
		ops = append(ops, op)
	}

	applied, results := patch.ApplyWith(s.measurer, composite, ops)

	ps := document.Patchset{
		ID:        uuid.NewString(),
		CreatedAt: s.now().UTC(),
		PageIndex: req.PageIndex,

		Ops:     ops,
		Results: results,

		Rationale:   req.Rationale,
		SelectedIDs: req.SelectedIDs(),
	}

	next, err := s.store.AppendPatchset(ctx, docID, ps, version)

	if errors.Is(err, store.ErrVersionConflict) {
		if current, err := s.store.OverlayVersion(ctx, docID, req.PageIndex); err == nil {
			next = current
		}

		return nil, versionConflict(next)
	}

	if err != nil {
		return nil, err
	}

	// custom elements only become base content once their patchset is logged
	if len(custom) > 0 {
		if err := s.store.PutCustom(ctx, docID, req.PageIndex, custom); err != nil {
			return nil, err
		}
	}

	state := s.overlayState(docID, base, applied, next)

	slog.InfoContext(ctx, "patchset committed", "doc_id", docID, "page_index", req.PageIndex, "patchset_id", ps.ID, "ops", len(ops), "overlay_version", next)

	return &document.CommitResult{
		PatchsetID: ps.ID,
		CreatedAt:  ps.CreatedAt,
		PageIndex:  ps.PageIndex,

		Ops:     ps.Ops,
		Results: ps.Results,

		Rationale:   ps.Rationale,
		SelectedIDs: ps.SelectedIDs,

		Overlay: state.Overlay,
		Masks:   state.Masks,

		OverlayVersion: next,
	}, nil
}

// resolve maps a selected element to an element of the page: the same id, or
// the candidate scoring highest on 0.7·IoU + 0.3·text similarity if that
// reaches the threshold.
func (s *Service) resolve(page *document.Page, item document.SelectionFingerprint) (string, bool) {
	if _, ok := page.Element(item.ElementID); ok {
		return item.ElementID, true
	}

	var best string
	var bestScore float64

	for _, e := range page.Elements {
		score := 0.7*geometry.IoU(item.BBox, e.BBox) + 0.3*text.Similarity(item.Text, e.Text)

		if score > bestScore {
			best = e.ID
			bestScore = score
		}
	}

	if best == "" || bestScore < s.resolveThreshold {
		return "", false
	}

	return best, true
}

func customElement(pageIndex int, item document.SelectionFingerprint) document.Element {
	e := document.Element{
		ID:   item.ElementID,
		Kind: item.Kind,

		BBox:  geometry.Clamp(item.BBox),
		Text:  item.Text,
		Style: item.Style.Clone(),

		ParentID: item.ParentID,
	}

	if e.Kind == "" {
		e.Kind = document.KindTextRun
	}

	_, e.ContentHash = identity.ForElement(pageIndex, e)

	if item.ContentHash != "" {
		e.ContentHash = item.ContentHash
	}

	return e
}

func validateCommit(docID string, req *document.CommitRequest) error {
	if req.DocumentID != "" && req.DocumentID != docID {
		return &ValidationError{
			Code:    CodeDocumentMismatch,
			Message: "document id mismatch",
			Details: map[string]any{"path_doc_id": docID, "payload_doc_id": req.DocumentID},
		}
	}

	if len(req.Selection) == 0 {
		return &ValidationError{Code: CodeMissingSelection, Message: "selection is required"}
	}

	if len(req.Ops) == 0 {
		return &ValidationError{Code: CodeEmptyPatchset, Message: "no ops provided"}
	}

	if req.BaseOverlayVersion == nil {
		return &ValidationError{Code: CodeMissingBaseVersion, Message: "base overlay version is required"}
	}

	for i, op := range req.Ops {
		if err := op.Validate(); err != nil {
			return &ValidationError{
				Code:    CodeInvalidOp,
				Message: fmt.Sprintf("op %d: %v", i, err),
				Details: map[string]any{"element_id": op.ElementID},
			}
		}
	}

	return nil
}

func versionConflict(current int) *ConflictError {
	return &ConflictError{
		Message: "overlay version is stale",

		Details: document.ConflictDetails{
			CurrentOverlayVersion: &current,
		},
	}
}

func hashConflict(elementID, resolvedID, expected string, current *document.Element) *ConflictError {
	hint := document.RetryHintRefreshOverlay

	if resolvedID != elementID {
		hint = document.RetryHintRefreshDecoded
	}

	return &ConflictError{
		Message: "target content has changed",

		Details: document.ConflictDetails{
			ElementID:         elementID,
			ResolvedElementID: resolvedID,

			CurrentContentHash:  current.ContentHash,
			ExpectedContentHash: expected,

			CurrentEntry: &document.OverlayEntry{
				ElementID: resolvedID,

				Text:        current.Text,
				ContentHash: current.ContentHash,
			},

			RetryHint: hint,
		},
	}
}
