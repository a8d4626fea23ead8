package patch

import (
	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/identity"
)

// Replay rebuilds the composite of a page from its base and the patchsets
// in the given order. Only patchsets for the page that pass visible are
// replayed, and of those only ops whose recorded result is OK. Replay uses
// the recorded results (fitted font size, overflow) rather than re-running
// the ops, so the composite reflects what the server actually applied.
func Replay(base *document.Page, patchsets []document.Patchset, visible func(id string) bool) *document.Page {
	page := base.Clone()

	if page == nil {
		return nil
	}

	for _, ps := range patchsets {
		if ps.PageIndex != page.Index {
			continue
		}

		if visible != nil && !visible(ps.ID) {
			continue
		}

		for i, op := range ps.Ops {
			result := ps.Result(i)

			if !result.OK {
				continue
			}

			e, ok := page.Element(op.ElementID)

			if !ok {
				continue
			}

			replayOp(e, op, result)

			_, e.ContentHash = identity.ForElement(page.Index, *e)
		}
	}

	return page
}

func replayOp(e *document.Element, op document.PatchOp, result document.OpResult) {
	switch op.Type {
	case document.OpReplaceElement:
		e.Text = op.NewText

		if len(op.StyleChanges) > 0 {
			e.Style = e.Style.Merge(op.StyleChanges)
		}

		if result.AppliedFontSizePt > 0 {
			e.Style = e.Style.Merge(document.Style{document.StyleFontSize: result.AppliedFontSizePt})
		}

		e.Meta = &document.PatchMeta{
			Overflow: result.Overflow,

			FittedFontSizePt: result.AppliedFontSizePt,
		}

	case document.OpUpdateStyle:
		e.Style = e.Style.Merge(op.Style)
	}
}
