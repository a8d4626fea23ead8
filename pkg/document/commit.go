package document

import (
	"time"
)

type RetryHint string

const (
	RetryHintRefreshDecoded RetryHint = "refresh_decoded"
	RetryHintRefreshOverlay RetryHint = "refresh_overlay"
)

// CommitRequest submits ops for a page together with the selection they were
// planned against and the overlay version the client last read.
type CommitRequest struct {
	DocumentID string `json:"doc_id"`
	PageIndex  int    `json:"page_index"`

	BaseOverlayVersion *int `json:"base_overlay_version"`

	Selection []SelectionFingerprint `json:"selection"`
	Ops       []PatchOp              `json:"ops"`

	Rationale string `json:"rationale,omitempty"`
}

// SelectedIDs returns the element ids of the selection in order.
func (r *CommitRequest) SelectedIDs() []string {
	ids := make([]string, 0, len(r.Selection))

	for _, s := range r.Selection {
		ids = append(ids, s.ElementID)
	}

	return ids
}

type CommitResult struct {
	PatchsetID string    `json:"patchset_id"`
	CreatedAt  time.Time `json:"created_at"`

	PageIndex int `json:"page_index"`

	Ops     []PatchOp  `json:"ops"`
	Results []OpResult `json:"results"`

	Rationale   string   `json:"rationale,omitempty"`
	SelectedIDs []string `json:"selected_ids,omitempty"`

	Overlay []OverlayEntry `json:"overlay"`
	Masks   []Mask         `json:"masks"`

	OverlayVersion int `json:"overlay_version"`
}

func (r *CommitResult) Patchset() Patchset {
	return Patchset{
		ID:        r.PatchsetID,
		CreatedAt: r.CreatedAt,
		PageIndex: r.PageIndex,

		Ops:     r.Ops,
		Results: r.Results,

		Rationale:   r.Rationale,
		SelectedIDs: r.SelectedIDs,
	}
}

// ConflictDetails describes why a commit was rejected. Which fields are set
// depends on the conflict: a content hash mismatch reports the current hash
// (and entry), a stale baseline reports the current overlay version, and a
// moved decode identity sets RetryHint.
type ConflictDetails struct {
	ElementID         string `json:"element_id,omitempty"`
	ResolvedElementID string `json:"resolved_element_id,omitempty"`

	CurrentContentHash  string `json:"current_content_hash,omitempty"`
	ExpectedContentHash string `json:"expected_content_hash,omitempty"`

	CurrentEntry *OverlayEntry `json:"current_entry,omitempty"`

	CurrentOverlayVersion *int `json:"current_overlay_version,omitempty"`

	RetryHint RetryHint `json:"retry_hint,omitempty"`
}
