package document

import (
	"time"

	"github.com/adrianliechti/forge/pkg/geometry"
)

type BBox = geometry.BBox

type Kind string

const (
	KindTextRun Kind = "text_run"
	KindPath    Kind = "path"
	KindMask    Kind = "mask"
)

// Element is an extracted unit of page content. Its bbox is normalized and
// top-down once the document has been ingested.
type Element struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`

	BBox BBox   `json:"bbox"`
	Text string `json:"text,omitempty"`

	Style Style `json:"style,omitempty"`

	ContentHash string `json:"content_hash,omitempty"`
	ParentID    string `json:"parent_id,omitempty"`

	Meta *PatchMeta `json:"meta,omitempty"`
}

// PatchMeta annotates elements of a composite page that were touched by a patch.
type PatchMeta struct {
	Overflow bool `json:"overflow"`

	FittedFontSizePt float64 `json:"fitted_font_size_pt,omitempty"`
}

type Page struct {
	Index int `json:"page_index"`

	WidthPt  float64 `json:"width_pt"`
	HeightPt float64 `json:"height_pt"`

	WidthPx  float64 `json:"width_px,omitempty"`
	HeightPx float64 `json:"height_px,omitempty"`

	Rotation int `json:"rotation"`

	Elements []Element `json:"elements"`
}

// Element returns the element with the given id.
func (p *Page) Element(id string) (*Element, bool) {
	for i := range p.Elements {
		if p.Elements[i].ID == id {
			return &p.Elements[i], true
		}
	}

	return nil, false
}

// Clone returns a deep copy of the page.
func (p *Page) Clone() *Page {
	if p == nil {
		return nil
	}

	result := *p
	result.Elements = make([]Element, len(p.Elements))

	for i, e := range p.Elements {
		e.Style = e.Style.Clone()

		if e.Meta != nil {
			meta := *e.Meta
			e.Meta = &meta
		}

		result.Elements[i] = e
	}

	return &result
}

type Document struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	Pages []Page `json:"pages"`
}

func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}

	result := *d
	result.Pages = make([]Page, len(d.Pages))

	for i := range d.Pages {
		result.Pages[i] = *d.Pages[i].Clone()
	}

	return &result
}

func (d *Document) Page(index int) (*Page, bool) {
	for i := range d.Pages {
		if d.Pages[i].Index == index {
			return &d.Pages[i], true
		}
	}

	return nil, false
}

type OverlayEntry struct {
	ElementID string `json:"element_id"`

	Text        string `json:"text"`
	ContentHash string `json:"content_hash"`
}

type Mask struct {
	ElementID string `json:"element_id"`

	BBox  BBox   `json:"bbox"`
	Color string `json:"color"`
}

// OverlayState is the per-page view of all overrides on top of the base
// extraction together with the version it was read at.
type OverlayState struct {
	DocumentID string `json:"doc_id"`
	PageIndex  int    `json:"page_index"`

	Overlay []OverlayEntry `json:"overlay"`
	Masks   []Mask         `json:"masks"`

	Version int `json:"overlay_version"`

	PageImageWidthPx  float64 `json:"page_image_width_px,omitempty"`
	PageImageHeightPx float64 `json:"page_image_height_px,omitempty"`

	PageWidthPt  float64 `json:"page_width_pt,omitempty"`
	PageHeightPt float64 `json:"page_height_pt,omitempty"`

	Rotation int `json:"rotation"`
}

func (s *OverlayState) Entry(elementID string) (*OverlayEntry, bool) {
	for i := range s.Overlay {
		if s.Overlay[i].ElementID == elementID {
			return &s.Overlay[i], true
		}
	}

	return nil, false
}

// SelectionFingerprint captures what the client believed an element looked
// like when it was selected. It is the precondition of a commit.
type SelectionFingerprint struct {
	ElementID string `json:"element_id"`
	PageIndex int    `json:"page_index"`

	ContentHash string `json:"content_hash"`
	BBox        BBox   `json:"bbox"`

	ParentID string `json:"parent_id,omitempty"`

	Text  string `json:"text,omitempty"`
	Kind  Kind   `json:"kind,omitempty"`
	Style Style  `json:"style,omitempty"`
}

// Fingerprint captures the current state of an element on the given page.
func Fingerprint(pageIndex int, e Element) SelectionFingerprint {
	return SelectionFingerprint{
		ElementID: e.ID,
		PageIndex: pageIndex,

		ContentHash: e.ContentHash,
		BBox:        e.BBox,

		ParentID: e.ParentID,

		Text:  e.Text,
		Kind:  e.Kind,
		Style: e.Style.Clone(),
	}
}
