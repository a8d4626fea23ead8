package api

import (
	"encoding/json"

	"github.com/adrianliechti/forge/pkg/document"
)

// Error is the body of every failed request.
type Error struct {
	Code    string `json:"error"`
	Message string `json:"message"`

	Details json.RawMessage `json:"details,omitempty"`
}

type DocumentInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	Pages []PageInfo `json:"pages"`
}

type PageInfo struct {
	Index int `json:"page_index"`

	WidthPt  float64 `json:"width_pt"`
	HeightPt float64 `json:"height_pt"`

	Elements int `json:"elements"`
}

func documentInfo(doc *document.Document) DocumentInfo {
	info := DocumentInfo{
		ID:   doc.ID,
		Name: doc.Name,

		Pages: make([]PageInfo, 0, len(doc.Pages)),
	}

	for _, p := range doc.Pages {
		info.Pages = append(info.Pages, PageInfo{
			Index: p.Index,

			WidthPt:  p.WidthPt,
			HeightPt: p.HeightPt,

			Elements: len(p.Elements),
		})
	}

	return info
}

type PatchesResponse struct {
	DocumentID string `json:"doc_id"`

	Patchsets []document.Patchset `json:"patchsets"`
}

type RevertResponse struct {
	Reverted document.Patchset `json:"reverted"`

	OverlayVersion int `json:"overlay_version"`
}

type PlanRequest struct {
	Planner string `json:"planner,omitempty"`

	PageIndex int `json:"page_index"`

	Selection []document.SelectionFingerprint `json:"selection"`

	Prompt string `json:"user_prompt"`

	BaseOverlayVersion *int `json:"base_overlay_version,omitempty"`
}
