package layer

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/patch"
)

var (
	ErrPageNotFound     = errors.New("page not found")
	ErrPatchsetNotFound = errors.New("patchset not found")
)

// Backend is the server side of undo: it reverts the newest patchset of the
// document and reports the authoritative patch log.
type Backend interface {
	RevertLast(ctx context.Context, docID string) (*document.Patchset, error)
	Patchsets(ctx context.Context, docID string) ([]document.Patchset, error)
}

type ChangeFunc func(pageIndex int, composite *document.Page)

// Store holds the base page snapshots of one document and the ordered log of
// committed patchsets, and derives composites by replaying visible patchsets.
type Store struct {
	mu sync.Mutex

	docID   string
	backend Backend

	base map[int]*document.Page

	patchsets []document.Patchset
	hidden    map[string]bool

	listeners []ChangeFunc
}

func New(docID string, backend Backend) *Store {
	return &Store{
		docID:   docID,
		backend: backend,

		base:   make(map[int]*document.Page),
		hidden: make(map[string]bool),
	}
}

func (s *Store) DocumentID() string {
	return s.docID
}

// OnChange registers a listener that receives the recomputed composite of a
// page whenever the base, the log or a visibility flag of that page changes.
func (s *Store) OnChange(fn ChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
}

func (s *Store) SetBase(page *document.Page) {
	s.mu.Lock()
	s.base[page.Index] = page.Clone()
	s.mu.Unlock()

	s.notify(page.Index)
}

// SetPatchsets replaces the log with the authoritative one, in the order the
// server committed it. Visibility flags of known patchsets are kept; new
// patchsets are visible.
func (s *Store) SetPatchsets(patchsets []document.Patchset) {
	s.mu.Lock()

	pages := s.pagesLocked()

	s.patchsets = slices.Clone(patchsets)

	known := make(map[string]bool, len(s.patchsets))

	for _, ps := range s.patchsets {
		known[ps.ID] = true
		pages[ps.PageIndex] = true
	}

	for id := range s.hidden {
		if !known[id] {
			delete(s.hidden, id)
		}
	}

	s.mu.Unlock()

	for index := range pages {
		s.notify(index)
	}
}

// Append adds a newly committed patchset to the end of the log and recomposes
// its page. A patchset already in the log is replaced in place.
func (s *Store) Append(ps document.Patchset) {
	s.mu.Lock()

	i := slices.IndexFunc(s.patchsets, func(p document.Patchset) bool {
		return p.ID == ps.ID
	})

	if i >= 0 {
		s.patchsets[i] = ps
	} else {
		s.patchsets = append(s.patchsets, ps)
	}

	s.mu.Unlock()

	s.notify(ps.PageIndex)
}

func (s *Store) Patchsets() []document.Patchset {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.patchsets)
}

func (s *Store) Visible(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.hidden[id]
}

// ToggleVisibility flips the visibility of a patchset and recomposes only the
// page it targets. It returns the new visibility.
func (s *Store) ToggleVisibility(id string) (bool, error) {
	s.mu.Lock()

	i := slices.IndexFunc(s.patchsets, func(p document.Patchset) bool {
		return p.ID == id
	})

	if i < 0 {
		s.mu.Unlock()
		return false, ErrPatchsetNotFound
	}

	page := s.patchsets[i].PageIndex

	if s.hidden[id] {
		delete(s.hidden, id)
	} else {
		s.hidden[id] = true
	}

	visible := !s.hidden[id]

	s.mu.Unlock()

	s.notify(page)

	return visible, nil
}

// Composite replays the visible patchsets of a page over its base snapshot.
func (s *Store) Composite(pageIndex int) (*document.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.compositeLocked(pageIndex)
}

func (s *Store) compositeLocked(pageIndex int) (*document.Page, error) {
	base, ok := s.base[pageIndex]

	if !ok {
		return nil, ErrPageNotFound
	}

	return patch.Replay(base, s.patchsets, func(id string) bool {
		return !s.hidden[id]
	}), nil
}

// Undo reverts the newest patchset of the whole document, regardless of
// page, through the backend. The log is then reloaded from the backend and the
// page of the reverted patchset is recomposed.
func (s *Store) Undo(ctx context.Context) (*document.Patchset, error) {
	if s.backend == nil {
		return nil, errors.New("undo requires a backend")
	}

	reverted, err := s.backend.RevertLast(ctx, s.docID)

	if err != nil {
		return nil, err
	}

	patchsets, err := s.backend.Patchsets(ctx, s.docID)

	if err != nil {
		s.mu.Lock()

		s.patchsets = slices.DeleteFunc(s.patchsets, func(p document.Patchset) bool {
			return reverted != nil && p.ID == reverted.ID
		})

		s.mu.Unlock()

		if reverted != nil {
			s.notify(reverted.PageIndex)
		}

		return reverted, err
	}

	s.mu.Lock()

	pages := s.pagesLocked()

	s.patchsets = slices.Clone(patchsets)

	if reverted != nil {
		delete(s.hidden, reverted.ID)
		pages[reverted.PageIndex] = true
	}

	s.mu.Unlock()

	for index := range pages {
		s.notify(index)
	}

	return reverted, nil
}

func (s *Store) pagesLocked() map[int]bool {
	pages := make(map[int]bool)

	for _, ps := range s.patchsets {
		pages[ps.PageIndex] = true
	}

	return pages
}

func (s *Store) notify(pageIndex int) {
	s.mu.Lock()

	listeners := slices.Clone(s.listeners)

	if len(listeners) == 0 {
		s.mu.Unlock()
		return
	}

	composite, err := s.compositeLocked(pageIndex)

	s.mu.Unlock()

	if err != nil {
		return
	}

	for _, fn := range listeners {
		fn(pageIndex, composite)
	}
}
