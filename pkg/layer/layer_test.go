package layer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"

	"github.com/stretchr/testify/require"
)

type mockBackend struct {
	patchsets []document.Patchset

	reverts int
}

func (m *mockBackend) RevertLast(ctx context.Context, docID string) (*document.Patchset, error) {
	if len(m.patchsets) == 0 {
		return nil, errors.New("nothing to revert")
	}

	m.reverts++

	last := m.patchsets[len(m.patchsets)-1]
	m.patchsets = m.patchsets[:len(m.patchsets)-1]

	return &last, nil
}

func (m *mockBackend) Patchsets(ctx context.Context, docID string) ([]document.Patchset, error) {
	return m.patchsets, nil
}

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func page(index int) *document.Page {
	return &document.Page{
		Index: index,

		WidthPt:  600,
		HeightPt: 800,

		Elements: []document.Element{
			{ID: "t", Kind: document.KindTextRun, BBox: geometry.BBox{0.1, 0.1, 0.5, 0.12}, Text: "base"},
		},
	}
}

func replace(id string, pageIndex int, at int, text string) document.Patchset {
	return document.Patchset{
		ID:        id,
		CreatedAt: epoch.Add(time.Duration(at) * time.Second),
		PageIndex: pageIndex,

		Ops: []document.PatchOp{document.ReplaceElement("t", "", text)},

		Results: []document.OpResult{{ElementID: "t", OK: true}},
	}
}

func text(t *testing.T, s *Store, pageIndex int) string {
	composite, err := s.Composite(pageIndex)
	require.NoError(t, err)

	e, ok := composite.Element("t")
	require.True(t, ok)

	return e.Text
}

func TestCompositeReplaysInCommitOrder(t *testing.T) {
	s := New("doc", nil)
	s.SetBase(page(0))

	// the server log order wins over creation timestamps
	s.SetPatchsets([]document.Patchset{
		replace("b", 0, 2, "second"),
		replace("a", 0, 1, "first"),
	})

	require.Equal(t, "first", text(t, s, 0))
	require.Equal(t, "b", s.Patchsets()[0].ID)

	s.Append(replace("c", 0, 0, "third"))

	require.Equal(t, "third", text(t, s, 0))
	require.Equal(t, "c", s.Patchsets()[2].ID)

	_, err := s.Composite(7)
	require.ErrorIs(t, err, ErrPageNotFound)
}

func TestToggleVisibility(t *testing.T) {
	s := New("doc", nil)
	s.SetBase(page(0))
	s.SetBase(page(1))

	s.SetPatchsets([]document.Patchset{
		replace("a", 0, 1, "first"),
		replace("b", 0, 2, "second"),
		replace("c", 1, 3, "other"),
	})

	var changed []int

	s.OnChange(func(pageIndex int, composite *document.Page) {
		changed = append(changed, pageIndex)
	})

	visible, err := s.ToggleVisibility("b")
	require.NoError(t, err)
	require.False(t, visible)
	require.False(t, s.Visible("b"))
	require.Equal(t, "first", text(t, s, 0))
	require.Equal(t, []int{0}, changed)

	visible, err = s.ToggleVisibility("b")
	require.NoError(t, err)
	require.True(t, visible)
	require.Equal(t, "second", text(t, s, 0))

	// toggling never creates a patchset
	require.Len(t, s.Patchsets(), 3)

	_, err = s.ToggleVisibility("missing")
	require.ErrorIs(t, err, ErrPatchsetNotFound)
}

func TestSetPatchsetsKeepsVisibility(t *testing.T) {
	s := New("doc", nil)
	s.SetBase(page(0))

	s.SetPatchsets([]document.Patchset{replace("a", 0, 1, "first")})

	_, err := s.ToggleVisibility("a")
	require.NoError(t, err)

	s.SetPatchsets([]document.Patchset{
		replace("a", 0, 1, "first"),
		replace("b", 0, 2, "second"),
	})

	require.False(t, s.Visible("a"))
	require.True(t, s.Visible("b"))
}

func TestUndoIsGlobal(t *testing.T) {
	backend := &mockBackend{
		patchsets: []document.Patchset{
			replace("a", 0, 1, "first"),
			replace("b", 1, 2, "other"),
		},
	}

	s := New("doc", backend)
	s.SetBase(page(0))
	s.SetBase(page(1))
	s.SetPatchsets(backend.patchsets)

	var changed []int

	s.OnChange(func(pageIndex int, composite *document.Page) {
		changed = append(changed, pageIndex)
	})

	reverted, err := s.Undo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "b", reverted.ID)
	require.Equal(t, 1, backend.reverts)

	require.Equal(t, "base", text(t, s, 1))
	require.Equal(t, "first", text(t, s, 0))
	require.Contains(t, changed, 1)
	require.Len(t, s.Patchsets(), 1)

	reverted, err = s.Undo(context.Background())
	require.NoError(t, err)
	require.Equal(t, "a", reverted.ID)
	require.Equal(t, "base", text(t, s, 0))

	_, err = s.Undo(context.Background())
	require.Error(t, err)
}

func TestAppend(t *testing.T) {
	s := New("doc", nil)
	s.SetBase(page(0))

	var composites []*document.Page

	s.OnChange(func(pageIndex int, composite *document.Page) {
		composites = append(composites, composite)
	})

	s.Append(replace("a", 0, 1, "first"))
	s.Append(replace("a", 0, 1, "first"))

	require.Len(t, s.Patchsets(), 1)
	require.Len(t, composites, 2)

	e, _ := composites[1].Element("t")
	require.Equal(t, "first", e.Text)
}
