package commit

import (
	"slices"
	"sync"

	"github.com/adrianliechti/forge/pkg/document"
)

type pageKey struct {
	docID string
	page  int
}

// OverlayCache holds the last known overlay state per page.
type OverlayCache struct {
	mu sync.RWMutex

	pages map[pageKey]document.OverlayState
}

func NewOverlayCache() *OverlayCache {
	return &OverlayCache{
		pages: make(map[pageKey]document.OverlayState),
	}
}

func (c *OverlayCache) Get(docID string, pageIndex int) (*document.OverlayState, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.pages[pageKey{docID, pageIndex}]

	if !ok {
		return nil, false
	}

	state.Overlay = slices.Clone(state.Overlay)
	state.Masks = slices.Clone(state.Masks)

	return &state, true
}

func (c *OverlayCache) Put(state document.OverlayState) {
	c.mu.Lock()
	defer c.mu.Unlock()

	state.Overlay = slices.Clone(state.Overlay)
	state.Masks = slices.Clone(state.Masks)

	c.pages[pageKey{state.DocumentID, state.PageIndex}] = state
}

func (c *OverlayCache) Entry(docID string, pageIndex int, elementID string) (*document.OverlayEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.pages[pageKey{docID, pageIndex}]

	if !ok {
		return nil, false
	}

	entry, ok := state.Entry(elementID)

	if !ok {
		return nil, false
	}

	result := *entry
	return &result, true
}

func (c *OverlayCache) Version(docID string, pageIndex int) (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	state, ok := c.pages[pageKey{docID, pageIndex}]
	return state.Version, ok
}

func (c *OverlayCache) Invalidate(docID string, pageIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.pages, pageKey{docID, pageIndex})
}
