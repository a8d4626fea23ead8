package otel

import (
	"context"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type Store interface {
	Observable
	store.Provider
}

type observableStore struct {
	name string

	store store.Provider
}

func NewStore(name string, p store.Provider) Store {
	return &observableStore{
		name: name,

		store: p,
	}
}

func (s *observableStore) otelSetup() {
}

func (s *observableStore) start(ctx context.Context, operation, docID string, attrs ...KeyValue) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(instrumentationName).Start(ctx, "store "+operation,
		trace.WithSpanKind(trace.SpanKindClient),
	)

	span.SetAttributes(String("db.system.name", s.name), String("forge.doc_id", docID))
	span.SetAttributes(attrs...)

	return ctx, span
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	span.End()
}

func (s *observableStore) CreateDocument(ctx context.Context, doc *document.Document) (err error) {
	ctx, span := s.start(ctx, "create_document", doc.ID, attribute.Int("forge.pages", len(doc.Pages)))
	defer func() { finish(span, err) }()

	return s.store.CreateDocument(ctx, doc)
}

func (s *observableStore) Document(ctx context.Context, id string) (_ *document.Document, err error) {
	ctx, span := s.start(ctx, "document", id)
	defer func() { finish(span, err) }()

	return s.store.Document(ctx, id)
}

func (s *observableStore) DeleteDocument(ctx context.Context, id string) (err error) {
	ctx, span := s.start(ctx, "delete_document", id)
	defer func() { finish(span, err) }()

	return s.store.DeleteDocument(ctx, id)
}

func (s *observableStore) OverlayVersion(ctx context.Context, docID string, pageIndex int) (_ int, err error) {
	ctx, span := s.start(ctx, "overlay_version", docID, attribute.Int("forge.page_index", pageIndex))
	defer func() { finish(span, err) }()

	return s.store.OverlayVersion(ctx, docID, pageIndex)
}

func (s *observableStore) AppendPatchset(ctx context.Context, docID string, ps document.Patchset, baseVersion int) (_ int, err error) {
	ctx, span := s.start(ctx, "append_patchset", docID,
		attribute.Int("forge.page_index", ps.PageIndex),
		attribute.Int("forge.base_overlay_version", baseVersion),
		String("forge.patchset_id", ps.ID),
	)

	defer func() { finish(span, err) }()

	return s.store.AppendPatchset(ctx, docID, ps, baseVersion)
}

func (s *observableStore) Patchsets(ctx context.Context, docID string) (_ []document.Patchset, err error) {
	ctx, span := s.start(ctx, "patchsets", docID)
	defer func() { finish(span, err) }()

	return s.store.Patchsets(ctx, docID)
}

func (s *observableStore) RevertLast(ctx context.Context, docID string) (_ *document.Patchset, err error) {
	ctx, span := s.start(ctx, "revert_last", docID)
	defer func() { finish(span, err) }()

	return s.store.RevertLast(ctx, docID)
}

func (s *observableStore) Custom(ctx context.Context, docID string, pageIndex int) (_ []document.Element, err error) {
	ctx, span := s.start(ctx, "custom", docID, attribute.Int("forge.page_index", pageIndex))
	defer func() { finish(span, err) }()

	return s.store.Custom(ctx, docID, pageIndex)
}

func (s *observableStore) PutCustom(ctx context.Context, docID string, pageIndex int, elements []document.Element) (err error) {
	ctx, span := s.start(ctx, "put_custom", docID, attribute.Int("forge.page_index", pageIndex))
	defer func() { finish(span, err) }()

	return s.store.PutCustom(ctx, docID, pageIndex, elements)
}
