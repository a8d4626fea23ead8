package patch

import (
	"fmt"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/identity"
)

// Apply executes ops against a deep copy of the page and returns the patched
// page together with one result per op. Ops that cannot be honored are
// reported with OK false and leave the page untouched.
func Apply(page *document.Page, ops []document.PatchOp) (*document.Page, []document.OpResult) {
	return ApplyWith(defaultMeasurer(), page, ops)
}

func ApplyWith(m *Measurer, page *document.Page, ops []document.PatchOp) (*document.Page, []document.OpResult) {
	patched := page.Clone()
	results := make([]document.OpResult, 0, len(ops))

	for _, op := range ops {
		results = append(results, applyOp(m, patched, op))
	}

	return patched, results
}

func applyOp(m *Measurer, page *document.Page, op document.PatchOp) document.OpResult {
	result := document.OpResult{
		ElementID: op.ElementID,
	}

	if err := op.Validate(); err != nil {
		result.Error = err.Error()
		return result
	}

	e, ok := page.Element(op.ElementID)

	if !ok {
		result.Error = fmt.Sprintf("unknown element %s", op.ElementID)
		return result
	}

	switch op.Type {
	case document.OpReplaceElement:
		if e.Kind != document.KindTextRun {
			result.Error = fmt.Sprintf("replace_element not allowed for kind %s", e.Kind)
			return result
		}

		e.Text = op.NewText

		if len(op.StyleChanges) > 0 {
			e.Style = e.Style.Merge(op.StyleChanges)
		}

		width := e.BBox.Width() * page.WidthPt
		height := e.BBox.Height() * page.HeightPt

		family := e.Style.FontFamily()
		size := e.Style.FontSize()

		meta := &document.PatchMeta{}

		if op.EffectivePolicy() == document.PolicyFitInBox && width > 0 && height > 0 {
			fitted, overflow := m.Fit(e.Text, family, size, width, height)

			if fitted > 0 && fitted != size {
				e.Style = e.Style.Merge(document.Style{document.StyleFontSize: fitted})
			}

			meta.Overflow = overflow
			meta.FittedFontSizePt = fitted

			result.AppliedFontSizePt = fitted
			result.Overflow = overflow
		} else {
			overflow := width > 0 && height > 0 && size > 0 && !m.Fits(e.Text, family, size, width, height)

			meta.Overflow = overflow

			result.AppliedFontSizePt = size
			result.Overflow = overflow
		}

		e.Meta = meta

	case document.OpUpdateStyle:
		if op.Kind != "" && op.Kind != e.Kind {
			result.Error = fmt.Sprintf("update_style for kind %s does not match %s", op.Kind, e.Kind)
			return result
		}

		e.Style = e.Style.Merge(op.Style)
	}

	_, e.ContentHash = identity.ForElement(page.Index, *e)

	result.OK = true
	return result
}
