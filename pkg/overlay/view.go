package overlay

import (
	"context"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
	"github.com/adrianliechti/forge/pkg/patch"
)

// Composite replays the whole patch log of the document over the base page.
func (s *Service) Composite(ctx context.Context, docID string, pageIndex int) (*document.Page, error) {
	composite, _, err := s.composite(ctx, docID, pageIndex)
	return composite, err
}

func (s *Service) composite(ctx context.Context, docID string, pageIndex int) (*document.Page, *document.Page, error) {
	base, err := s.basePage(ctx, docID, pageIndex)

	if err != nil {
		return nil, nil, err
	}

	patchsets, err := s.store.Patchsets(ctx, docID)

	if err != nil {
		return nil, nil, err
	}

	return patch.Replay(base, patchsets, nil), base, nil
}

// Overlay reports the current entry of every element on the page, a mask for
// each element whose text was replaced and the page's overlay version.
func (s *Service) Overlay(ctx context.Context, docID string, pageIndex int) (*document.OverlayState, error) {
	composite, base, err := s.composite(ctx, docID, pageIndex)

	if err != nil {
		return nil, err
	}

	version, err := s.store.OverlayVersion(ctx, docID, pageIndex)

	if err != nil {
		return nil, err
	}

	return s.overlayState(docID, base, composite, version), nil
}

func (s *Service) overlayState(docID string, base, composite *document.Page, version int) *document.OverlayState {
	state := &document.OverlayState{
		DocumentID: docID,
		PageIndex:  composite.Index,

		Overlay: make([]document.OverlayEntry, 0, len(composite.Elements)),
		Masks:   []document.Mask{},

		Version: version,

		PageImageWidthPx:  composite.WidthPx,
		PageImageHeightPx: composite.HeightPx,

		PageWidthPt:  composite.WidthPt,
		PageHeightPt: composite.HeightPt,

		Rotation: composite.Rotation,
	}

	for _, e := range composite.Elements {
		state.Overlay = append(state.Overlay, document.OverlayEntry{
			ElementID: e.ID,

			Text:        e.Text,
			ContentHash: e.ContentHash,
		})

		original, ok := base.Element(e.ID)

		if !ok || original.Text == e.Text {
			continue
		}

		state.Masks = append(state.Masks, document.Mask{
			ElementID: e.ID,

			BBox:  geometry.Clamp(original.BBox.Expand(s.maskPadding, s.maskPadding)).Round(4),
			Color: s.maskColor,
		})
	}

	return state
}
