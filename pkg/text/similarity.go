package text

import (
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Similarity returns 1 minus the normalized edit distance of the folded
// texts: 1 for equal texts, 0 for entirely different ones.
func Similarity(a, b string) float64 {
	a = Fold(a)
	b = Fold(b)

	if a == b {
		return 1
	}

	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))

	if longest == 0 {
		return 1
	}

	distance := levenshtein.ComputeDistance(a, b)

	return max(0, 1-float64(distance)/float64(longest))
}
