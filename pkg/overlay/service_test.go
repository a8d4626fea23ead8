package overlay

import (
	"context"
	"errors"
	"testing"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
	"github.com/adrianliechti/forge/pkg/store"
	"github.com/adrianliechti/forge/pkg/store/memory"

	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*Service, *document.Document) {
	t.Helper()

	s, err := New(memory.New())
	require.NoError(t, err)

	doc, err := s.Ingest(context.Background(), &document.Document{
		Name: "report.pdf",

		Pages: []document.Page{
			{
				Index: 0,

				WidthPt:  600,
				HeightPt: 800,

				Elements: []document.Element{
					{
						Kind: document.KindTextRun,
						BBox: geometry.BBox{0.1, 0.1, 0.5, 0.125},
						Text: "Quarterly report",

						Style: document.Style{
							document.StyleFontFamily: "Helvetica",
							document.StyleFontSize:   12.0,
						},
					},
					{
						Kind: document.KindTextRun,
						BBox: geometry.BBox{0.1, 0.9, 0.4, 0.92},
						Text: "Page 1",
					},
				},
			},
		},
	})

	require.NoError(t, err)

	return s, doc
}

func selectionOf(page *document.Page, ids ...string) []document.SelectionFingerprint {
	var result []document.SelectionFingerprint

	for _, id := range ids {
		e, _ := page.Element(id)
		result = append(result, document.Fingerprint(page.Index, *e))
	}

	return result
}

func ptr(v int) *int {
	return &v
}

func TestIngest(t *testing.T) {
	s, doc := newService(t)

	require.NotEmpty(t, doc.ID)
	require.False(t, doc.CreatedAt.IsZero())

	title := doc.Pages[0].Elements[0]
	require.Regexp(t, `^p0_[0-9a-f]{8}$`, title.ID)
	require.Len(t, title.ContentHash, 16)

	stored, err := s.Document(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, title.ID, stored.Pages[0].Elements[0].ID)
}

func TestIngestNormalizesPoints(t *testing.T) {
	s, err := New(memory.New())
	require.NoError(t, err)

	doc, err := s.Ingest(context.Background(), &document.Document{
		Pages: []document.Page{
			{
				Index:    0,
				WidthPt:  600,
				HeightPt: 800,

				Elements: []document.Element{
					{Kind: document.KindTextRun, BBox: geometry.BBox{60, 80, 300, 100}, Text: "a"},
					{Kind: document.KindTextRun, BBox: geometry.BBox{60, 80, 300, 100}, Text: "a"},
				},
			},
		},
	})

	require.NoError(t, err)

	a := doc.Pages[0].Elements[0]
	b := doc.Pages[0].Elements[1]

	require.InDelta(t, 0.1, a.BBox[0], 1e-9)
	require.InDelta(t, 0.5, a.BBox[2], 1e-9)
	require.InDelta(t, 0.1, a.BBox[1], 1e-9)
	require.InDelta(t, 0.125, a.BBox[3], 1e-9)

	// identical elements get distinct ids
	require.NotEqual(t, a.ID, b.ID)
	require.Equal(t, a.ID+"_2", b.ID)
}

func TestCommit(t *testing.T) {
	ctx := context.Background()
	s, doc := newService(t)

	page := &doc.Pages[0]
	title := page.Elements[0]

	for i := range 3 {
		state, err := s.Overlay(ctx, doc.ID, 0)
		require.NoError(t, err)
		require.Equal(t, i, state.Version)

		current, _ := state.Entry(title.ID)

		selection := selectionOf(page, title.ID)
		selection[0].ContentHash = current.ContentHash
		selection[0].Text = current.Text

		result, err := s.Commit(ctx, doc.ID, &document.CommitRequest{
			DocumentID: doc.ID,
			PageIndex:  0,

			BaseOverlayVersion: ptr(state.Version),

			Selection: selection,
			Ops:       []document.PatchOp{document.ReplaceElement(title.ID, current.Text, "Annual report")},
		})

		require.NoError(t, err)
		require.Equal(t, i+1, result.OverlayVersion)
		require.True(t, result.Results[0].OK)
	}

	state, err := s.Overlay(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 3, state.Version)

	entry, ok := state.Entry(title.ID)
	require.True(t, ok)
	require.Equal(t, "Annual report", entry.Text)
	require.NotEqual(t, title.ContentHash, entry.ContentHash)

	require.Len(t, state.Masks, 1)
	require.Equal(t, title.ID, state.Masks[0].ElementID)
	require.Equal(t, DefaultMaskColor, state.Masks[0].Color)
	require.InDeltaSlice(t, []float64{0.09, 0.09, 0.51, 0.135}, state.Masks[0].BBox[:], 1e-9)

	patchsets, err := s.Patchsets(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, patchsets, 3)
	require.Equal(t, []string{title.ID}, patchsets[0].SelectedIDs)
}

func TestCommitValidation(t *testing.T) {
	ctx := context.Background()
	s, doc := newService(t)

	page := &doc.Pages[0]
	title := page.Elements[0]
	footer := page.Elements[1]

	valid := func() *document.CommitRequest {
		return &document.CommitRequest{
			DocumentID: doc.ID,
			PageIndex:  0,

			BaseOverlayVersion: ptr(0),

			Selection: selectionOf(page, title.ID),
			Ops:       []document.PatchOp{document.ReplaceElement(title.ID, title.Text, "x")},
		}
	}

	tests := []struct {
		name   string
		mutate func(*document.CommitRequest)
		code   string
		status int
	}{
		{"mismatch", func(r *document.CommitRequest) { r.DocumentID = "other" }, CodeDocumentMismatch, 409},
		{"selection", func(r *document.CommitRequest) { r.Selection = nil }, CodeMissingSelection, 400},
		{"ops", func(r *document.CommitRequest) { r.Ops = nil }, CodeEmptyPatchset, 400},
		{"version", func(r *document.CommitRequest) { r.BaseOverlayVersion = nil }, CodeMissingBaseVersion, 400},
		{"scope", func(r *document.CommitRequest) { r.Ops[0].ElementID = footer.ID }, CodeOutOfScope, 409},
		{"op", func(r *document.CommitRequest) { r.Ops = []document.PatchOp{{Type: "delete", ElementID: title.ID}} }, CodeInvalidOp, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid()
			tt.mutate(req)

			_, err := s.Commit(ctx, doc.ID, req)

			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			require.Equal(t, tt.code, validation.Code)
			require.Equal(t, tt.status, validation.StatusCode())
		})
	}

	patchsets, err := s.Patchsets(ctx, doc.ID)
	require.NoError(t, err)
	require.Empty(t, patchsets)
}

func TestCommitVersionConflict(t *testing.T) {
	ctx := context.Background()
	s, doc := newService(t)

	page := &doc.Pages[0]
	title := page.Elements[0]
	footer := page.Elements[1]

	_, err := s.Commit(ctx, doc.ID, &document.CommitRequest{
		PageIndex:          0,
		BaseOverlayVersion: ptr(0),
		Selection:          selectionOf(page, footer.ID),
		Ops:                []document.PatchOp{document.ReplaceElement(footer.ID, footer.Text, "Page one")},
	})

	require.NoError(t, err)

	_, err = s.Commit(ctx, doc.ID, &document.CommitRequest{
		PageIndex:          0,
		BaseOverlayVersion: ptr(0),
		Selection:          selectionOf(page, title.ID),
		Ops:                []document.PatchOp{document.ReplaceElement(title.ID, title.Text, "x")},
	})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.NotNil(t, conflict.Details.CurrentOverlayVersion)
	require.Equal(t, 1, *conflict.Details.CurrentOverlayVersion)
}

func TestCommitContentHashConflict(t *testing.T) {
	ctx := context.Background()
	s, doc := newService(t)

	page := &doc.Pages[0]
	title := page.Elements[0]

	selection := selectionOf(page, title.ID)
	selection[0].ContentHash = "stale"

	_, err := s.Commit(ctx, doc.ID, &document.CommitRequest{
		PageIndex:          0,
		BaseOverlayVersion: ptr(0),
		Selection:          selection,
		Ops:                []document.PatchOp{document.ReplaceElement(title.ID, title.Text, "x")},
	})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	require.Equal(t, title.ID, conflict.Details.ElementID)
	require.Equal(t, title.ContentHash, conflict.Details.CurrentContentHash)
	require.Equal(t, "stale", conflict.Details.ExpectedContentHash)
	require.Equal(t, title.Text, conflict.Details.CurrentEntry.Text)
	require.Equal(t, document.RetryHintRefreshOverlay, conflict.Details.RetryHint)
}

func TestCommitResolvesRenamedElement(t *testing.T) {
	ctx := context.Background()
	s, doc := newService(t)

	page := &doc.Pages[0]
	title := page.Elements[0]

	selection := selectionOf(page, title.ID)
	selection[0].ElementID = "p0_renamed"

	result, err := s.Commit(ctx, doc.ID, &document.CommitRequest{
		PageIndex:          0,
		BaseOverlayVersion: ptr(0),
		Selection:          selection,
		Ops:                []document.PatchOp{document.ReplaceElement("p0_renamed", title.Text, "Annual report")},
	})

	require.NoError(t, err)
	require.Equal(t, title.ID, result.Ops[0].ElementID)

	composite, err := s.Composite(ctx, doc.ID, 0)
	require.NoError(t, err)

	e, _ := composite.Element(title.ID)
	require.Equal(t, "Annual report", e.Text)

	// a stale hash on a renamed element asks for a decode refresh
	selection[0].ContentHash = "stale"

	_, err = s.Commit(ctx, doc.ID, &document.CommitRequest{
		PageIndex:          0,
		BaseOverlayVersion: ptr(1),
		Selection:          selection,
		Ops:                []document.PatchOp{document.ReplaceElement("p0_renamed", "", "x")},
	})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, title.ID, conflict.Details.ResolvedElementID)
	require.Equal(t, document.RetryHintRefreshDecoded, conflict.Details.RetryHint)
}

func TestCommitCustomElement(t *testing.T) {
	ctx := context.Background()
	s, doc := newService(t)

	selection := []document.SelectionFingerprint{
		{
			ElementID: "p0_note",
			PageIndex: 0,
			BBox:      geometry.BBox{0.6, 0.5, 0.8, 0.52},
			Kind:      document.KindTextRun,
			Text:      "Note",
		},
	}

	_, err := s.Commit(ctx, doc.ID, &document.CommitRequest{
		PageIndex:          0,
		BaseOverlayVersion: ptr(0),
		Selection:          selection,
		Ops:                []document.PatchOp{document.ReplaceElement("p0_note", "Note", "Reviewed")},
	})

	require.NoError(t, err)

	decoded, err := s.Decoded(ctx, doc.ID)
	require.NoError(t, err)

	note, ok := decoded.Pages[0].Element("p0_note")
	require.True(t, ok)
	require.Equal(t, "Note", note.Text)

	state, err := s.Overlay(ctx, doc.ID, 0)
	require.NoError(t, err)

	entry, ok := state.Entry("p0_note")
	require.True(t, ok)
	require.Equal(t, "Reviewed", entry.Text)
}

type racingStore struct {
	*memory.Store
}

func (s *racingStore) AppendPatchset(ctx context.Context, docID string, ps document.Patchset, baseVersion int) (int, error) {
	return 0, store.ErrVersionConflict
}

func TestCommitCustomElementRejected(t *testing.T) {
	ctx := context.Background()

	backend := &racingStore{Store: memory.New()}

	s, err := New(backend)
	require.NoError(t, err)

	doc, err := s.Ingest(ctx, &document.Document{
		Name: "report.pdf",

		Pages: []document.Page{
			{
				Index: 0,

				WidthPt:  600,
				HeightPt: 800,

				Elements: []document.Element{
					{Kind: document.KindTextRun, BBox: geometry.BBox{0.1, 0.1, 0.5, 0.125}, Text: "Quarterly report"},
				},
			},
		},
	})

	require.NoError(t, err)

	_, err = s.Commit(ctx, doc.ID, &document.CommitRequest{
		PageIndex:          0,
		BaseOverlayVersion: ptr(0),

		Selection: []document.SelectionFingerprint{
			{
				ElementID: "p0_note",
				PageIndex: 0,
				BBox:      geometry.BBox{0.6, 0.5, 0.8, 0.52},
				Kind:      document.KindTextRun,
				Text:      "Note",
			},
		},

		Ops: []document.PatchOp{document.ReplaceElement("p0_note", "Note", "Reviewed")},
	})

	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	custom, err := backend.Custom(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Empty(t, custom)

	decoded, err := s.Decoded(ctx, doc.ID)
	require.NoError(t, err)

	_, ok := decoded.Pages[0].Element("p0_note")
	require.False(t, ok)
}

func TestRevertLast(t *testing.T) {
	ctx := context.Background()
	s, doc := newService(t)

	page := &doc.Pages[0]
	title := page.Elements[0]

	_, err := s.Commit(ctx, doc.ID, &document.CommitRequest{
		PageIndex:          0,
		BaseOverlayVersion: ptr(0),
		Selection:          selectionOf(page, title.ID),
		Ops:                []document.PatchOp{document.ReplaceElement(title.ID, title.Text, "Annual report")},
	})

	require.NoError(t, err)

	reverted, err := s.RevertLast(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, 0, reverted.PageIndex)

	state, err := s.Overlay(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 2, state.Version)
	require.Empty(t, state.Masks)

	entry, _ := state.Entry(title.ID)
	require.Equal(t, title.Text, entry.Text)
}

func TestHitTest(t *testing.T) {
	ctx := context.Background()
	s, doc := newService(t)

	title := doc.Pages[0].Elements[0]

	result, err := s.HitTest(ctx, doc.ID, &HitTestRequest{
		PageIndex: 0,
		Point:     &geometry.Point{X: 0.3, Y: 0.11},
	})

	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	require.Equal(t, title.ID, result.Candidates[0].ID)

	result, err = s.HitTest(ctx, doc.ID, &HitTestRequest{
		PageIndex: 0,
		Region:    &geometry.BBox{0.05, 0.05, 0.6, 0.2},
	})

	require.NoError(t, err)
	require.Len(t, result.Candidates, 1)
	require.Equal(t, title.ID, result.Candidates[0].ID)

	_, err = s.HitTest(ctx, doc.ID, &HitTestRequest{PageIndex: 0})
	require.Error(t, err)

	_, err = s.HitTest(ctx, doc.ID, &HitTestRequest{PageIndex: 5, Point: &geometry.Point{}})
	require.True(t, errors.Is(err, ErrPageNotFound))
}
