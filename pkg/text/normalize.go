package text

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	paragraphBreak = regexp.MustCompile(`[ \t]*\n\s*\n\s*`)
	lineBreak      = regexp.MustCompile(`[ \t]*\n\s*`)
)

// Normalize composes the text to NFC, unifies line endings and collapses
// runs of whitespace while keeping single and paragraph line breaks.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.TrimSpace(text)

	// \a marks line breaks while whitespace is collapsed
	text = strings.ReplaceAll(text, "\a", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")

	text = paragraphBreak.ReplaceAllString(text, "\a\a")
	text = lineBreak.ReplaceAllString(text, "\a")

	text = strings.Join(strings.Fields(text), " ")
	text = strings.ReplaceAll(text, "\a", "\n")

	return strings.TrimSpace(text)
}

// Fold reduces text to a comparison key: NFC, lower case, single spaces.
func Fold(text string) string {
	text = norm.NFC.String(text)
	text = strings.ToLower(text)

	return strings.Join(strings.Fields(text), " ")
}

// Equal compares two texts after folding.
func Equal(a, b string) bool {
	return Fold(a) == Fold(b)
}
