package document

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type OpType string

const (
	OpReplaceElement OpType = "replace_element"
	OpUpdateStyle    OpType = "update_style"
)

type Policy string

const (
	PolicyFitInBox       Policy = "FIT_IN_BOX"
	PolicyOverflowNotice Policy = "OVERFLOW_NOTICE"
)

// PatchOp is a single edit instruction. Type selects which fields apply:
// replace_element uses OldText, NewText, StyleChanges and Policy;
// update_style uses Kind and Style.
type PatchOp struct {
	Type      OpType `json:"type"`
	ElementID string `json:"element_id"`

	OldText      string `json:"old_text,omitempty"`
	NewText      string `json:"new_text,omitempty"`
	StyleChanges Style  `json:"style_changes,omitempty"`
	Policy       Policy `json:"policy,omitempty"`

	Kind  Kind  `json:"kind,omitempty"`
	Style Style `json:"style,omitempty"`
}

func ReplaceElement(elementID, oldText, newText string) PatchOp {
	return PatchOp{
		Type:      OpReplaceElement,
		ElementID: elementID,

		OldText: oldText,
		NewText: newText,
	}
}

func UpdateStyle(elementID string, kind Kind, style Style) PatchOp {
	return PatchOp{
		Type:      OpUpdateStyle,
		ElementID: elementID,

		Kind:  kind,
		Style: style,
	}
}

// EffectivePolicy returns the op's text policy, defaulting to FIT_IN_BOX.
func (op PatchOp) EffectivePolicy() Policy {
	if op.Policy == "" {
		return PolicyFitInBox
	}

	return op.Policy
}

var ErrInvalidOp = errors.New("invalid patch op")

// Validate checks the op for structural errors. It does not look at the page.
func (op PatchOp) Validate() error {
	if strings.TrimSpace(op.ElementID) == "" {
		return fmt.Errorf("%w: missing element id", ErrInvalidOp)
	}

	switch op.Type {
	case OpReplaceElement:
		switch op.Policy {
		case "", PolicyFitInBox, PolicyOverflowNotice:
		default:
			return fmt.Errorf("%w: unsupported policy %q for %s", ErrInvalidOp, op.Policy, op.ElementID)
		}

		return ValidateStyle(op.StyleChanges)

	case OpUpdateStyle:
		if len(op.Style) == 0 {
			return fmt.Errorf("%w: update_style requires at least one style field for %s", ErrInvalidOp, op.ElementID)
		}

		return ValidateStyle(op.Style)

	default:
		return fmt.Errorf("%w: unsupported op %q", ErrInvalidOp, op.Type)
	}
}

// ValidateStyle rejects out of range opacity, negative stroke widths and
// malformed colors.
func ValidateStyle(s Style) error {
	if _, ok := s[StyleOpacity]; ok {
		v, ok := s.Float(StyleOpacity)

		if !ok || v < 0 || v > 1 {
			return fmt.Errorf("%w: opacity must be between 0 and 1", ErrInvalidOp)
		}
	}

	if _, ok := s[StyleStrokeWidth]; ok {
		v, ok := s.Float(StyleStrokeWidth)

		if !ok || v < 0 {
			return fmt.Errorf("%w: stroke width must be non-negative", ErrInvalidOp)
		}
	}

	if _, ok := s[StyleFontSize]; ok {
		v, ok := s.Float(StyleFontSize)

		if !ok || v <= 0 {
			return fmt.Errorf("%w: font size must be positive", ErrInvalidOp)
		}
	}

	for _, key := range []string{StyleColor, StyleStrokeColor, StyleFillColor} {
		v, ok := s[key]

		if !ok {
			continue
		}

		if !validColor(v) {
			return fmt.Errorf("%w: invalid %s", ErrInvalidOp, key)
		}
	}

	return nil
}

// validColor accepts "#rgb", "#rrggbb" and "#rrggbbaa" strings, a
// non-negative packed integer, or 3 or 4 channels in [0, 1].
func validColor(v any) bool {
	switch c := v.(type) {
	case string:
		return validHex(c)

	case float64:
		return c >= 0 && c == float64(int64(c))

	case int:
		return c >= 0

	case []float64:
		return validChannels(len(c), func(i int) (float64, bool) { return c[i], true })

	case []any:
		return validChannels(len(c), func(i int) (float64, bool) {
			f, ok := c[i].(float64)
			return f, ok
		})
	}

	return false
}

func validChannels(n int, at func(int) (float64, bool)) bool {
	if n != 3 && n != 4 {
		return false
	}

	for i := range n {
		v, ok := at(i)

		if !ok || v < 0 || v > 1 {
			return false
		}
	}

	return true
}

func validHex(s string) bool {
	hex, ok := strings.CutPrefix(s, "#")

	if !ok {
		return false
	}

	switch len(hex) {
	case 3, 6, 8:
	default:
		return false
	}

	for _, r := range hex {
		if !strings.ContainsRune("0123456789abcdefABCDEF", r) {
			return false
		}
	}

	return true
}

// OpResult is the server's verdict on a single op, parallel to Patchset.Ops.
type OpResult struct {
	ElementID string `json:"element_id"`

	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	AppliedFontSizePt float64 `json:"applied_font_size_pt,omitempty"`
	Overflow          bool    `json:"overflow,omitempty"`
}

// Patchset is an immutable, committed batch of ops for one page.
type Patchset struct {
	ID        string    `json:"patchset_id"`
	CreatedAt time.Time `json:"created_at"`

	PageIndex int `json:"page_index"`

	Ops     []PatchOp  `json:"ops"`
	Results []OpResult `json:"results"`

	Rationale   string   `json:"rationale,omitempty"`
	SelectedIDs []string `json:"selected_ids,omitempty"`
}

// Result returns the recorded result of the i-th op. Patchsets recorded
// without results are treated as fully applied.
func (p *Patchset) Result(i int) OpResult {
	if i < len(p.Results) {
		return p.Results[i]
	}

	return OpResult{
		ElementID: p.Ops[i].ElementID,
		OK:        true,
	}
}
