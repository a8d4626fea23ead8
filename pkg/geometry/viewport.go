package geometry

import (
	"math"
)

// NormalizeRect converts a top-down pixel rect inside a viewport into a
// normalized box clamped to [0, 1]. A zero-size viewport yields a zero box.
func NormalizeRect(r Rect, viewportWidth, viewportHeight float64) BBox {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return BBox{}
	}

	return BBox{
		clamp(r.Left/viewportWidth, 0, 1),
		clamp(r.Top/viewportHeight, 0, 1),
		clamp((r.Left+r.Width)/viewportWidth, 0, 1),
		clamp((r.Top+r.Height)/viewportHeight, 0, 1),
	}
}

// DenormalizeBBox converts a normalized box into a pixel rect of the given
// viewport. It is the inverse of NormalizeRect for boxes inside [0, 1].
func DenormalizeBBox(b BBox, viewportWidth, viewportHeight float64) Rect {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return Rect{}
	}

	return Rect{
		Left: b[0] * viewportWidth,
		Top:  b[1] * viewportHeight,

		Width:  max(0, (b[2]-b[0])*viewportWidth),
		Height: max(0, (b[3]-b[1])*viewportHeight),
	}
}

// PixelsToNormalized converts a pixel distance into normalized units along
// both axes of the viewport.
func PixelsToNormalized(px, viewportWidth, viewportHeight float64) (float64, float64) {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return 0, 0
	}

	return px / viewportWidth, px / viewportHeight
}

// Matrix is a 2D affine transform [a b c d e f] as used by PDF text items.
type Matrix [6]float64

// FontSizeFromTransform derives the rendered font size from a text transform,
// preferring the horizontal basis vector. It returns 0 when both are empty.
func FontSizeFromTransform(m Matrix) float64 {
	if size := math.Hypot(m[0], m[1]); size > 0 {
		return size
	}

	return math.Hypot(m[2], m[3])
}

// GlyphRect returns the axis-aligned rect covered by a text item of the given
// advance width and height under transform m. Width or height of zero fall
// back to the transform's basis lengths.
func GlyphRect(m Matrix, width, height float64) Rect {
	if width <= 0 {
		width = math.Hypot(m[0], m[1])
	}

	if height <= 0 {
		height = math.Hypot(m[2], m[3])
	}

	if width <= 0 || height <= 0 {
		return Rect{}
	}

	x0, y0 := m[4], m[5]
	x1, y1 := m[4]+m[0]*width, m[5]+m[1]*width
	x2, y2 := m[4]+m[2]*height, m[5]+m[3]*height
	x3, y3 := x1+m[2]*height, y1+m[3]*height

	left := min(x0, x1, x2, x3)
	right := max(x0, x1, x2, x3)
	top := min(y0, y1, y2, y3)
	bottom := max(y0, y1, y2, y3)

	return Rect{
		Left: left,
		Top:  top,

		Width:  max(0, right-left),
		Height: max(0, bottom-top),
	}
}
