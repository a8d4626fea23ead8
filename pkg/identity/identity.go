// Package identity derives deterministic element ids and content hashes.
//
// Both are truncated digests of the signature "text|bbox|style". Ids keep 8
// hex characters of SHA-1 (32 bits) per page, hashes keep 16 hex characters of
// SHA-256. Prefix collisions are possible and are not detected; widening the
// prefixes would change every id already referenced by committed patchsets.
package identity

import (
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
)

const (
	IDLength   = 8
	HashLength = 16
)

// BBoxString formats a normalized box with four decimals per coordinate so
// that render-scale noise does not leak into the signature.
func BBoxString(b geometry.BBox) string {
	parts := make([]string, len(b))

	for i, v := range b {
		parts[i] = strconv.FormatFloat(v, 'f', 4, 64)
	}

	return strings.Join(parts, ",")
}

func Signature(text string, bbox geometry.BBox, styleKey string) string {
	return text + "|" + BBoxString(bbox) + "|" + styleKey
}

// ElementID returns "p<page>_" followed by the first 8 hex characters of the
// SHA-1 of the signature.
func ElementID(pageIndex int, text string, bbox geometry.BBox, styleKey string) string {
	sum := sha1.Sum([]byte(Signature(text, bbox, styleKey)))
	return fmt.Sprintf("p%d_%s", pageIndex, hex.EncodeToString(sum[:])[:IDLength])
}

// ContentHash returns the first 16 hex characters of the SHA-256 of the signature.
func ContentHash(text string, bbox geometry.BBox, styleKey string) string {
	sum := sha256.Sum256([]byte(Signature(text, bbox, styleKey)))
	return hex.EncodeToString(sum[:])[:HashLength]
}

// ForElement computes id and content hash of an element whose bbox is
// already normalized.
func ForElement(pageIndex int, e document.Element) (string, string) {
	key := e.Style.Key()
	return ElementID(pageIndex, e.Text, e.BBox, key), ContentHash(e.Text, e.BBox, key)
}

// Assign fills missing ids and recomputes content hashes of all elements of
// the page in place.
func Assign(page *document.Page) {
	for i := range page.Elements {
		e := &page.Elements[i]

		id, hash := ForElement(page.Index, *e)

		if e.ID == "" {
			e.ID = id
		}

		e.ContentHash = hash
	}
}
