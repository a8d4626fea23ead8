package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/store"
)

var _ store.Provider = (*Store)(nil)

type Store struct {
	mu sync.Mutex

	docs map[string]*record
}

type record struct {
	doc *document.Document

	patchsets []document.Patchset
	versions  map[int]int

	custom map[int][]document.Element
}

func New() *Store {
	return &Store{
		docs: make(map[string]*record),
	}
}

func (s *Store) CreateDocument(ctx context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[doc.ID]; ok {
		return store.ErrAlreadyExists
	}

	s.docs[doc.ID] = &record{
		doc: doc.Clone(),

		versions: make(map[int]int),
		custom:   make(map[int][]document.Element),
	}

	return nil
}

func (s *Store) Document(ctx context.Context, id string) (*document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.docs[id]

	if !ok {
		return nil, store.ErrNotFound
	}

	return r.doc.Clone(), nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return store.ErrNotFound
	}

	delete(s.docs, id)
	return nil
}

func (s *Store) OverlayVersion(ctx context.Context, docID string, pageIndex int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.docs[docID]

	if !ok {
		return 0, store.ErrNotFound
	}

	return r.versions[pageIndex], nil
}

func (s *Store) AppendPatchset(ctx context.Context, docID string, ps document.Patchset, baseVersion int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.docs[docID]

	if !ok {
		return 0, store.ErrNotFound
	}

	if r.versions[ps.PageIndex] != baseVersion {
		return r.versions[ps.PageIndex], store.ErrVersionConflict
	}

	r.patchsets = append(r.patchsets, ps)
	r.versions[ps.PageIndex]++

	return r.versions[ps.PageIndex], nil
}

func (s *Store) Patchsets(ctx context.Context, docID string) ([]document.Patchset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.docs[docID]

	if !ok {
		return nil, store.ErrNotFound
	}

	return slices.Clone(r.patchsets), nil
}

func (s *Store) RevertLast(ctx context.Context, docID string) (*document.Patchset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.docs[docID]

	if !ok {
		return nil, store.ErrNotFound
	}

	if len(r.patchsets) == 0 {
		return nil, store.ErrNothingToRevert
	}

	last := r.patchsets[len(r.patchsets)-1]

	r.patchsets = r.patchsets[:len(r.patchsets)-1]
	r.versions[last.PageIndex]++

	return &last, nil
}

func (s *Store) Custom(ctx context.Context, docID string, pageIndex int) ([]document.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.docs[docID]

	if !ok {
		return nil, store.ErrNotFound
	}

	result := slices.Clone(r.custom[pageIndex])

	slices.SortFunc(result, func(a, b document.Element) int {
		return cmp.Compare(a.ID, b.ID)
	})

	return result, nil
}

func (s *Store) PutCustom(ctx context.Context, docID string, pageIndex int, elements []document.Element) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.docs[docID]

	if !ok {
		return store.ErrNotFound
	}

	existing := r.custom[pageIndex]

	for _, e := range elements {
		i := slices.IndexFunc(existing, func(c document.Element) bool {
			return c.ID == e.ID
		})

		if i >= 0 {
			existing[i] = e
			continue
		}

		existing = append(existing, e)
	}

	r.custom[pageIndex] = existing

	return nil
}
