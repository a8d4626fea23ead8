package document

import (
	"encoding/json"
	"maps"
	"strconv"
	"strings"
)

const (
	StyleFontFamily  = "font_family"
	StyleFontSize    = "font_size_pt"
	StyleColor       = "color"
	StyleStrokeColor = "stroke_color"
	StyleStrokeWidth = "stroke_width_pt"
	StyleFillColor   = "fill_color"
	StyleOpacity     = "opacity"
)

// Style is a flat key/value set of visual attributes.
type Style map[string]any

func (s Style) String(key string) string {
	switch v := s[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		if f, ok := s.Float(key); ok {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}

	return ""
}

func (s Style) Float(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}

	return 0, false
}

func (s Style) FontFamily() string {
	return s.String(StyleFontFamily)
}

func (s Style) FontSize() float64 {
	f, _ := s.Float(StyleFontSize)
	return f
}

// Key is the style component of an element signature: the non-empty values
// of font family and font size joined by "|".
func (s Style) Key() string {
	var parts []string

	if v := s.FontFamily(); v != "" {
		parts = append(parts, v)
	}

	if v := s.String(StyleFontSize); v != "" {
		parts = append(parts, v)
	}

	return strings.Join(parts, "|")
}

func (s Style) Clone() Style {
	if s == nil {
		return nil
	}

	return maps.Clone(s)
}

// Merge returns a copy of s with all keys of o applied on top.
func (s Style) Merge(o Style) Style {
	result := make(Style, len(s)+len(o))

	maps.Copy(result, s)
	maps.Copy(result, o)

	return result
}
