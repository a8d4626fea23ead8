package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adrianliechti/forge/config"
	"github.com/adrianliechti/forge/pkg/commit"
	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
	"github.com/adrianliechti/forge/pkg/overlay"
	"github.com/adrianliechti/forge/pkg/planner"
	"github.com/adrianliechti/forge/pkg/store/memory"
	"github.com/adrianliechti/forge/server"

	"github.com/stretchr/testify/require"
)

type plannerFunc func(ctx context.Context, req *planner.Request) (*planner.Plan, error)

func (f plannerFunc) Plan(ctx context.Context, req *planner.Request) (*planner.Plan, error) {
	return f(ctx, req)
}

// rewrite replaces the text of every selected element with the prompt.
var rewrite = plannerFunc(func(ctx context.Context, req *planner.Request) (*planner.Plan, error) {
	if req.Prompt == "fail" {
		return nil, planner.ErrPlanningFailed
	}

	var ops []document.PatchOp

	for _, s := range req.Selection {
		ops = append(ops, document.ReplaceElement(s.ElementID, s.Text, req.Prompt))
	}

	return &planner.Plan{Ops: ops, Rationale: "rewrite"}, nil
})

func newClient(t *testing.T) (*Client, *document.Document) {
	t.Helper()

	s := memory.New()

	service, err := overlay.New(s)
	require.NoError(t, err)

	cfg := &config.Config{
		Store:   s,
		Overlay: service,
	}

	cfg.RegisterPlanner("", rewrite)

	srv, err := server.New(cfg)
	require.NoError(t, err)

	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	c := New(ts.URL + "/")

	doc, err := c.Documents.Ingest(context.Background(), &document.Document{
		Name: "report.pdf",

		Pages: []document.Page{
			{
				Index: 0,

				WidthPt:  600,
				HeightPt: 800,

				Elements: []document.Element{
					{Kind: document.KindTextRun, BBox: geometry.BBox{0.1, 0.1, 0.5, 0.125}, Text: "Quarterly report"},
					{Kind: document.KindTextRun, BBox: geometry.BBox{0.1, 0.9, 0.4, 0.92}, Text: "Page 1"},
				},
			},
		},
	})

	require.NoError(t, err)

	return c, doc
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()
	c, doc := newClient(t)

	info, err := c.Documents.Get(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, "report.pdf", info.Name)
	require.Len(t, info.Pages, 1)
	require.Equal(t, 2, info.Pages[0].Elements)

	decoded, err := c.FetchDecoded(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.Pages[0].Elements[0].ID, decoded.Pages[0].Elements[0].ID)

	page, err := c.Documents.Composite(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Len(t, page.Elements, 2)

	_, err = c.Documents.Composite(ctx, doc.ID, 5)
	require.ErrorIs(t, err, commit.ErrValidation)

	require.NoError(t, c.Documents.Delete(ctx, doc.ID))

	_, err = c.Documents.Get(ctx, doc.ID)

	var validation *commit.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, "not_found", validation.Code)
}

func TestCoordinatorAgainstServer(t *testing.T) {
	ctx := context.Background()
	c, doc := newClient(t)

	title := doc.Pages[0].Elements[0]

	coordinator := commit.New(c, commit.WithPlanner(c))

	state, err := coordinator.RefreshOverlay(ctx, doc.ID, 0)
	require.NoError(t, err)
	require.Equal(t, 0, state.Version)

	selection := []document.SelectionFingerprint{document.Fingerprint(0, title)}

	plan, err := coordinator.Propose(ctx, commit.ProposeRequest{
		DocumentID: doc.ID,
		PageIndex:  0,

		Selection: selection,
		Prompt:    "Annual report",
	})

	require.NoError(t, err)
	require.Len(t, plan.Ops, 1)

	result, err := coordinator.Commit(ctx, commit.Request{
		CommitRequest: document.CommitRequest{
			DocumentID: doc.ID,
			PageIndex:  0,

			BaseOverlayVersion: Ptr(0),

			Selection: selection,
			Ops:       plan.Ops,
		},

		Prompt: "Annual report",
	})

	require.NoError(t, err)
	require.Equal(t, 1, result.OverlayVersion)
	require.Equal(t, commit.StateCommitted, coordinator.State())

	// a second edit planned against the stale baseline is rebased and replanned
	result, err = coordinator.Commit(ctx, commit.Request{
		CommitRequest: document.CommitRequest{
			DocumentID: doc.ID,
			PageIndex:  0,

			BaseOverlayVersion: Ptr(0),

			Selection: selection,
			Ops:       []document.PatchOp{document.ReplaceElement(title.ID, title.Text, "Yearly report")},
		},

		Prompt: "Yearly report",
	})

	require.NoError(t, err)
	require.Equal(t, 2, result.OverlayVersion)

	state, err = c.FetchOverlay(ctx, doc.ID, 0)
	require.NoError(t, err)

	entry, ok := state.Entry(title.ID)
	require.True(t, ok)
	require.Equal(t, "Yearly report", entry.Text)

	patchsets, err := c.Patchsets(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, patchsets, 2)

	reverted, err := coordinator.Undo(ctx, doc.ID)
	require.NoError(t, err)
	require.Equal(t, patchsets[1].ID, reverted.ID)

	cached, ok := coordinator.Cache().Get(doc.ID, 0)
	require.True(t, ok)
	require.Equal(t, 3, cached.Version)

	entry, _ = cached.Entry(title.ID)
	require.Equal(t, "Annual report", entry.Text)
}

func TestCommitConflicts(t *testing.T) {
	ctx := context.Background()
	c, doc := newClient(t)

	title := doc.Pages[0].Elements[0]
	selection := []document.SelectionFingerprint{document.Fingerprint(0, title)}

	req := &document.CommitRequest{
		DocumentID: doc.ID,
		PageIndex:  0,

		BaseOverlayVersion: Ptr(0),

		Selection: selection,
		Ops:       []document.PatchOp{document.ReplaceElement(title.ID, title.Text, "Annual report")},
	}

	_, err := c.Commit(ctx, req)
	require.NoError(t, err)

	_, err = c.Commit(ctx, req)

	var conflict *commit.ConflictError
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, commit.ConflictOverlayVersion, conflict.Kind)
	require.Equal(t, 1, *conflict.Details.CurrentOverlayVersion)

	req.BaseOverlayVersion = Ptr(1)

	_, err = c.Commit(ctx, req)
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, commit.ConflictContentHash, conflict.Kind)
	require.NotEmpty(t, conflict.Details.CurrentContentHash)
	require.Equal(t, "Annual report", conflict.Details.CurrentEntry.Text)

	req.Ops = nil

	_, err = c.Commit(ctx, req)

	var validation *commit.ValidationError
	require.ErrorAs(t, err, &validation)
	require.Equal(t, overlay.CodeEmptyPatchset, validation.Code)
}

func TestPlan(t *testing.T) {
	ctx := context.Background()
	c, doc := newClient(t)

	title := doc.Pages[0].Elements[0]

	plan, err := c.Plan(ctx, &planner.Request{
		DocumentID: doc.ID,
		PageIndex:  0,

		Selection: []document.SelectionFingerprint{document.Fingerprint(0, title)},
		Prompt:    "Annual report",
	})

	require.NoError(t, err)
	require.Equal(t, "rewrite", plan.Rationale)
	require.Equal(t, title.ID, plan.Ops[0].ElementID)

	_, err = c.Plan(ctx, &planner.Request{
		DocumentID: doc.ID,

		Selection: []document.SelectionFingerprint{document.Fingerprint(0, title)},
		Prompt:    "fail",
	})

	require.ErrorIs(t, err, planner.ErrPlanningFailed)

	_, err = c.Plan(ctx, &planner.Request{DocumentID: doc.ID, Prompt: "Annual report"})
	require.ErrorIs(t, err, commit.ErrValidation)
}

func TestHitTest(t *testing.T) {
	c, doc := newClient(t)

	result, err := c.Overlays.HitTest(context.Background(), doc.ID, HitTestRequest{
		PageIndex: 0,
		Point:     &geometry.Point{X: 0.2, Y: 0.11},
	})

	require.NoError(t, err)
	require.NotEmpty(t, result.Candidates)
	require.Equal(t, doc.Pages[0].Elements[0].ID, result.Candidates[0].ID)
}

func TestTransportErrors(t *testing.T) {
	ctx := context.Background()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte(`{"error":"unavailable","message":"try later"}`))
	}))

	c := New(ts.URL)

	_, err := c.FetchOverlay(ctx, "doc", 0)
	require.ErrorIs(t, err, commit.ErrTransport)

	var transport *commit.TransportError
	require.True(t, errors.As(err, &transport))
	require.Equal(t, http.StatusServiceUnavailable, transport.StatusCode)
	require.EqualError(t, transport.Err, "try later")

	ts.Close()

	_, err = c.FetchOverlay(ctx, "doc", 0)
	require.ErrorIs(t, err, commit.ErrTransport)
}
