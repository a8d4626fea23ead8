package store

import (
	"context"
	"errors"

	"github.com/adrianliechti/forge/pkg/document"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrVersionConflict = errors.New("overlay version conflict")
	ErrNothingToRevert = errors.New("nothing to revert")
)

// Provider persists documents, their patch log and the per-page overlay
// versions. Versions start at 0 and advance by one on every append and
// revert of a patchset on that page.
type Provider interface {
	CreateDocument(ctx context.Context, doc *document.Document) error
	Document(ctx context.Context, id string) (*document.Document, error)
	DeleteDocument(ctx context.Context, id string) error

	OverlayVersion(ctx context.Context, docID string, pageIndex int) (int, error)

	// AppendPatchset adds ps to the log if the page is still at baseVersion
	// and returns the new version. A stale baseVersion fails with
	// ErrVersionConflict and leaves the log untouched.
	AppendPatchset(ctx context.Context, docID string, ps document.Patchset, baseVersion int) (int, error)

	Patchsets(ctx context.Context, docID string) ([]document.Patchset, error)

	// RevertLast removes the newest patchset of the document, whatever page
	// it targets.
	RevertLast(ctx context.Context, docID string) (*document.Patchset, error)

	// Custom returns elements that were committed against but are not part
	// of the extracted page, ordered by id.
	Custom(ctx context.Context, docID string, pageIndex int) ([]document.Element, error)
	PutCustom(ctx context.Context, docID string, pageIndex int, elements []document.Element) error
}
