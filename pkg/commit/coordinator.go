package commit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/layer"
	"github.com/adrianliechti/forge/pkg/planner"
)

const DefaultMaxRetries = 2

// Backend is the authoritative store as seen by the coordinator.
type Backend interface {
	layer.Backend

	Commit(ctx context.Context, req *document.CommitRequest) (*document.CommitResult, error)

	FetchOverlay(ctx context.Context, docID string, pageIndex int) (*document.OverlayState, error)
	FetchDecoded(ctx context.Context, docID string) (*document.Document, error)
}

type State string

const (
	StateIdle       State = "idle"
	StateProposing  State = "proposing"
	StateProposed   State = "proposed"
	StateCommitting State = "committing"
	StateConflicted State = "conflicted"
	StateCommitted  State = "committed"
	StateFailed     State = "failed"
)

type StateFunc func(State)

// Coordinator drives propose and commit against a Backend. Retries run
// sequentially: each attempt depends on what the previous conflict reported.
type Coordinator struct {
	backend Backend
	planner planner.Provider

	layers *layer.Store
	cache  *OverlayCache

	maxRetries int

	mu    sync.Mutex
	state State
	hooks []StateFunc
}

type Option func(*Coordinator)

func WithPlanner(p planner.Provider) Option {
	return func(c *Coordinator) {
		c.planner = p
	}
}

// WithLayers appends committed patchsets to the given layer store.
func WithLayers(s *layer.Store) Option {
	return func(c *Coordinator) {
		c.layers = s
	}
}

func WithCache(cache *OverlayCache) Option {
	return func(c *Coordinator) {
		c.cache = cache
	}
}

func WithMaxRetries(n int) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

func New(backend Backend, options ...Option) *Coordinator {
	c := &Coordinator{
		backend: backend,

		maxRetries: DefaultMaxRetries,

		state: StateIdle,
	}

	for _, option := range options {
		option(c)
	}

	if c.cache == nil {
		c.cache = NewOverlayCache()
	}

	return c
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Coordinator) OnState(fn StateFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.hooks = append(c.hooks, fn)
}

func (c *Coordinator) Cache() *OverlayCache {
	return c.cache
}

func (c *Coordinator) setState(state State) {
	c.mu.Lock()

	c.state = state
	hooks := slices.Clone(c.hooks)

	c.mu.Unlock()

	for _, fn := range hooks {
		fn(state)
	}
}

type ProposeRequest struct {
	DocumentID string
	PageIndex  int

	Selection []document.SelectionFingerprint

	Prompt string

	// BaseOverlayVersion defaults to the cached version of the page.
	BaseOverlayVersion *int
}

// Propose asks the planner for ops. It does not touch the overlay cache or
// the layer store.
func (c *Coordinator) Propose(ctx context.Context, req ProposeRequest) (*planner.Plan, error) {
	if c.planner == nil {
		return nil, ErrNoPlanner
	}

	if len(req.Selection) == 0 {
		return nil, &ValidationError{Code: "missing_selection", Message: "selection is empty"}
	}

	version := req.BaseOverlayVersion

	if version == nil {
		if v, ok := c.cache.Version(req.DocumentID, req.PageIndex); ok {
			version = &v
		}
	}

	c.setState(StateProposing)

	plan, err := c.planner.Plan(ctx, &planner.Request{
		DocumentID: req.DocumentID,
		PageIndex:  req.PageIndex,

		Selection: req.Selection,

		Prompt: req.Prompt,

		BaseOverlayVersion: version,
	})

	if err != nil {
		c.setState(StateFailed)
		return nil, err
	}

	c.setState(StateProposed)

	return plan, nil
}

type Request struct {
	document.CommitRequest

	// Prompt is the instruction the ops were planned from. With a planner
	// configured, a stale baseline replans from it before retrying.
	Prompt string
}

// Commit submits the ops and reconciles conflicts for at most MaxRetries
// additional attempts. Validation and transport errors are returned without
// retrying. On success the page's overlay state is replaced and the patchset
// is appended to the layer store.
func (c *Coordinator) Commit(ctx context.Context, req Request) (*document.CommitResult, error) {
	if err := validateRequest(&req.CommitRequest); err != nil {
		c.setState(StateFailed)
		return nil, err
	}

	current := req.CommitRequest
	current.Selection = slices.Clone(req.Selection)
	current.Ops = slices.Clone(req.Ops)

	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		c.setState(StateCommitting)

		result, err := c.backend.Commit(ctx, &current)

		if err == nil {
			c.committed(&current, result)
			c.setState(StateCommitted)

			return result, nil
		}

		var conflict *ConflictError

		if !errors.As(err, &conflict) {
			c.setState(StateFailed)
			return nil, err
		}

		c.setState(StateConflicted)

		slog.WarnContext(ctx, "commit conflict", "doc_id", current.DocumentID, "page_index", current.PageIndex, "kind", conflict.Kind, "attempt", attempt+1)

		lastErr = err

		if attempt == c.maxRetries {
			break
		}

		if err := c.reconcile(ctx, &current, req.Prompt, conflict); err != nil {
			c.setState(StateFailed)
			return nil, err
		}
	}

	c.setState(StateFailed)

	return nil, fmt.Errorf("%w: %w", ErrRetriesExhausted, lastErr)
}

// Undo reverts the newest patchset of the document and refreshes the
// overlay of the page it targeted.
func (c *Coordinator) Undo(ctx context.Context, docID string) (*document.Patchset, error) {
	var reverted *document.Patchset
	var err error

	if c.layers != nil {
		reverted, err = c.layers.Undo(ctx)
	} else {
		reverted, err = c.backend.RevertLast(ctx, docID)
	}

	if err != nil {
		return nil, err
	}

	if reverted != nil {
		c.cache.Invalidate(docID, reverted.PageIndex)

		if _, err := c.RefreshOverlay(ctx, docID, reverted.PageIndex); err != nil {
			return reverted, err
		}
	}

	return reverted, nil
}

// RefreshOverlay fetches the overlay of a page and caches it.
func (c *Coordinator) RefreshOverlay(ctx context.Context, docID string, pageIndex int) (*document.OverlayState, error) {
	state, err := c.backend.FetchOverlay(ctx, docID, pageIndex)

	if err != nil {
		return nil, err
	}

	c.cache.Put(*state)

	return state, nil
}

func (c *Coordinator) committed(req *document.CommitRequest, result *document.CommitResult) {
	state := document.OverlayState{
		DocumentID: req.DocumentID,
		PageIndex:  result.PageIndex,

		Overlay: result.Overlay,
		Masks:   result.Masks,

		Version: result.OverlayVersion,
	}

	if previous, ok := c.cache.Get(req.DocumentID, result.PageIndex); ok {
		state.PageImageWidthPx = previous.PageImageWidthPx
		state.PageImageHeightPx = previous.PageImageHeightPx

		state.PageWidthPt = previous.PageWidthPt
		state.PageHeightPt = previous.PageHeightPt

		state.Rotation = previous.Rotation
	}

	c.cache.Put(state)

	if c.layers != nil {
		c.layers.Append(result.Patchset())
	}
}

func validateRequest(req *document.CommitRequest) error {
	if req.DocumentID == "" {
		return &ValidationError{Code: "missing_document", Message: "document id is required"}
	}

	if len(req.Selection) == 0 {
		return &ValidationError{Code: "missing_selection", Message: "selection is empty"}
	}

	if len(req.Ops) == 0 {
		return &ValidationError{Code: "empty_patchset", Message: "no ops to commit"}
	}

	if req.BaseOverlayVersion == nil {
		return &ValidationError{Code: "missing_base_version", Message: "base overlay version is required"}
	}

	for _, s := range req.Selection {
		if s.PageIndex != req.PageIndex {
			return &ValidationError{Code: "PATCH_OUT_OF_SCOPE", Message: fmt.Sprintf("element %s is not on page %d", s.ElementID, req.PageIndex)}
		}
	}

	for i, op := range req.Ops {
		if err := op.Validate(); err != nil {
			return &ValidationError{Code: "invalid_op", Message: fmt.Sprintf("op %d: %v", i, err)}
		}
	}

	return nil
}
