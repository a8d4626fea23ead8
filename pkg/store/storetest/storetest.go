// Package storetest holds the behavior every store.Provider must share.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
	"github.com/adrianliechti/forge/pkg/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func Run(t *testing.T, p store.Provider) {
	t.Run("Document", func(t *testing.T) { testDocument(t, p) })
	t.Run("Versions", func(t *testing.T) { testVersions(t, p) })
	t.Run("RevertLast", func(t *testing.T) { testRevertLast(t, p) })
	t.Run("Custom", func(t *testing.T) { testCustom(t, p) })
}

func newDocument(t *testing.T, p store.Provider) *document.Document {
	t.Helper()

	doc := &document.Document{
		ID:        uuid.NewString(),
		Name:      "report.pdf",
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),

		Pages: []document.Page{
			{
				Index:    0,
				WidthPt:  600,
				HeightPt: 800,

				Elements: []document.Element{
					{ID: "p0_aaaaaaaa", Kind: document.KindTextRun, BBox: geometry.BBox{0.1, 0.1, 0.5, 0.12}, Text: "Quarterly report", ContentHash: "h1"},
				},
			},
			{
				Index:    1,
				WidthPt:  600,
				HeightPt: 800,
			},
		},
	}

	require.NoError(t, p.CreateDocument(context.Background(), doc))

	return doc
}

func patchset(pageIndex int, text string) document.Patchset {
	return document.Patchset{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
		PageIndex: pageIndex,

		Ops:     []document.PatchOp{document.ReplaceElement("p0_aaaaaaaa", "", text)},
		Results: []document.OpResult{{ElementID: "p0_aaaaaaaa", OK: true}},
	}
}

func testDocument(t *testing.T, p store.Provider) {
	ctx := context.Background()
	doc := newDocument(t, p)

	require.ErrorIs(t, p.CreateDocument(ctx, doc), store.ErrAlreadyExists)

	result, err := p.Document(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.Name, result.Name)
	require.Len(t, result.Pages, 2)
	require.Equal(t, "Quarterly report", result.Pages[0].Elements[0].Text)

	require.NoError(t, p.DeleteDocument(ctx, doc.ID))

	_, err = p.Document(ctx, doc.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = p.Patchsets(ctx, doc.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testVersions(t *testing.T, p store.Provider) {
	ctx := context.Background()
	doc := newDocument(t, p)

	version, err := p.OverlayVersion(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 0, version)

	for i := range 3 {
		version, err = p.AppendPatchset(ctx, doc.ID, patchset(0, "edit"), i)
		require.NoError(t, err)
		require.Equal(t, i+1, version)
	}

	_, err = p.AppendPatchset(ctx, doc.ID, patchset(0, "stale"), 1)
	require.ErrorIs(t, err, store.ErrVersionConflict)

	// versions are per page
	version, err = p.AppendPatchset(ctx, doc.ID, patchset(1, "other"), 0)
	require.NoError(t, err)
	require.Equal(t, 1, version)

	version, err = p.OverlayVersion(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 3, version)

	patchsets, err := p.Patchsets(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, patchsets, 4)
	require.Equal(t, 1, patchsets[3].PageIndex)
}

func testRevertLast(t *testing.T, p store.Provider) {
	ctx := context.Background()
	doc := newDocument(t, p)

	_, err := p.RevertLast(ctx, doc.ID)
	require.ErrorIs(t, err, store.ErrNothingToRevert)

	first := patchset(0, "first")
	second := patchset(1, "second")

	_, err = p.AppendPatchset(ctx, doc.ID, first, 0)
	require.NoError(t, err)

	_, err = p.AppendPatchset(ctx, doc.ID, second, 0)
	require.NoError(t, err)

	reverted, err := p.RevertLast(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, reverted.ID)

	// reverting advances the version of the reverted page
	version, err := p.OverlayVersion(ctx, doc.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 2, version)

	patchsets, err := p.Patchsets(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, patchsets, 1)
	require.Equal(t, first.ID, patchsets[0].ID)
	require.Equal(t, "first", patchsets[0].Ops[0].NewText)
}

func testCustom(t *testing.T, p store.Provider) {
	ctx := context.Background()
	doc := newDocument(t, p)

	elements, err := p.Custom(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Empty(t, elements)

	custom := document.Element{ID: "p0_cccccccc", Kind: document.KindTextRun, BBox: geometry.BBox{0.2, 0.2, 0.4, 0.22}, Text: "Draft"}

	require.NoError(t, p.PutCustom(ctx, doc.ID, 0, []document.Element{custom}))

	custom.Text = "Final"
	require.NoError(t, p.PutCustom(ctx, doc.ID, 0, []document.Element{custom}))

	elements, err = p.Custom(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Len(t, elements, 1)
	require.Equal(t, "Final", elements[0].Text)

	note := document.Element{ID: "p0_bbbbbbbb", Kind: document.KindTextRun, BBox: geometry.BBox{0.2, 0.3, 0.4, 0.32}, Text: "Note"}
	extra := document.Element{ID: "p0_dddddddd", Kind: document.KindTextRun, BBox: geometry.BBox{0.2, 0.4, 0.4, 0.42}, Text: "Extra"}

	require.NoError(t, p.PutCustom(ctx, doc.ID, 0, []document.Element{extra, note}))

	for range 3 {
		elements, err = p.Custom(ctx, doc.ID, 0)
		require.NoError(t, err)
		require.Len(t, elements, 3)

		require.Equal(t, "p0_bbbbbbbb", elements[0].ID)
		require.Equal(t, "p0_cccccccc", elements[1].ID)
		require.Equal(t, "p0_dddddddd", elements[2].ID)
	}

	elements, err = p.Custom(ctx, doc.ID, 1)
	require.NoError(t, err)
	require.Empty(t, elements)
}
