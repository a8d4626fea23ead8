package overlay

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
	"github.com/adrianliechti/forge/pkg/identity"
	"github.com/adrianliechti/forge/pkg/patch"
	"github.com/adrianliechti/forge/pkg/store"

	"github.com/google/uuid"
)

const (
	// DefaultResolveThreshold is the minimum 0.7·IoU + 0.3·similarity a
	// candidate needs to stand in for an unknown selected element.
	DefaultResolveThreshold = 0.25

	DefaultMaskPadding = 0.01
	DefaultMaskColor   = "#ffffff"
)

// Service is the server of record for documents and their overlays.
type Service struct {
	store    store.Provider
	measurer *patch.Measurer

	resolveThreshold float64

	maskPadding float64
	maskColor   string

	now func() time.Time
}

type Option func(*Service)

func WithResolveThreshold(threshold float64) Option {
	return func(s *Service) {
		s.resolveThreshold = threshold
	}
}

func WithMask(padding float64, color string) Option {
	return func(s *Service) {
		s.maskPadding = padding

		if color != "" {
			s.maskColor = color
		}
	}
}

func WithMeasurer(m *patch.Measurer) Option {
	return func(s *Service) {
		s.measurer = m
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(store store.Provider, options ...Option) (*Service, error) {
	s := &Service{
		store: store,

		resolveThreshold: DefaultResolveThreshold,

		maskPadding: DefaultMaskPadding,
		maskColor:   DefaultMaskColor,

		now: time.Now,
	}

	for _, option := range options {
		option(s)
	}

	if s.measurer == nil {
		m, err := patch.NewMeasurer()

		if err != nil {
			return nil, err
		}

		s.measurer = m
	}

	return s, nil
}

// Ingest stores an extracted document. Boxes given in points or pixels are
// converted to top-down normalized space, and missing element ids and content
// hashes are filled in.
func (s *Service) Ingest(ctx context.Context, doc *document.Document) (*document.Document, error) {
	doc = doc.Clone()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = s.now().UTC()
	}

	for i := range doc.Pages {
		page := &doc.Pages[i]

		normalizePage(page)
		identity.Assign(page)

		disambiguate(page)
	}

	if err := s.store.CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "document ingested", "doc_id", doc.ID, "pages", len(doc.Pages))

	return doc, nil
}

func (s *Service) Document(ctx context.Context, id string) (*document.Document, error) {
	return s.store.Document(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.DeleteDocument(ctx, id)
}

// Decoded returns the base pages of a document including custom elements.
func (s *Service) Decoded(ctx context.Context, id string) (*document.Document, error) {
	doc, err := s.store.Document(ctx, id)

	if err != nil {
		return nil, err
	}

	for i := range doc.Pages {
		custom, err := s.store.Custom(ctx, id, doc.Pages[i].Index)

		if err != nil {
			return nil, err
		}

		doc.Pages[i].Elements = append(doc.Pages[i].Elements, custom...)
	}

	return doc, nil
}

func (s *Service) Patchsets(ctx context.Context, docID string) ([]document.Patchset, error) {
	return s.store.Patchsets(ctx, docID)
}

// RevertLast removes the newest patchset of the document.
func (s *Service) RevertLast(ctx context.Context, docID string) (*document.Patchset, error) {
	ps, err := s.store.RevertLast(ctx, docID)

	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "patchset reverted", "doc_id", docID, "patchset_id", ps.ID, "page_index", ps.PageIndex)

	return ps, nil
}

func (s *Service) basePage(ctx context.Context, docID string, pageIndex int) (*document.Page, error) {
	doc, err := s.Decoded(ctx, docID)

	if err != nil {
		return nil, err
	}

	page, ok := doc.Page(pageIndex)

	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrPageNotFound, pageIndex)
	}

	return page, nil
}

func normalizePage(page *document.Page) {
	if len(page.Elements) == 0 {
		return
	}

	boxes := make([]geometry.BBox, len(page.Elements))

	for i, e := range page.Elements {
		boxes[i] = e.BBox.Ordered()
	}

	ctx := geometry.Context{
		PageWidthPt:  page.WidthPt,
		PageHeightPt: page.HeightPt,

		ImageWidthPx:  page.WidthPx,
		ImageHeightPx: page.HeightPx,
	}

	// normalized input is taken as top-down
	if geometry.DetectSpace(boxes, ctx) == geometry.SpaceNormalized {
		for i := range page.Elements {
			page.Elements[i].BBox = geometry.Clamp(boxes[i])
		}

		return
	}

	normalized, _, _ := geometry.NormalizeBoxes(boxes, ctx)

	for i := range page.Elements {
		page.Elements[i].BBox = normalized[i]
	}
}

// disambiguate suffixes repeated ids, which only occur for elements with
// identical text, box and style.
func disambiguate(page *document.Page) {
	seen := make(map[string]int, len(page.Elements))

	for i := range page.Elements {
		e := &page.Elements[i]

		seen[e.ID]++

		if n := seen[e.ID]; n > 1 {
			e.ID = fmt.Sprintf("%s_%d", e.ID, n)
		}
	}
}
