package geometry

import (
	"math"
)

// BBox is an axis-aligned box (x0, y0, x1, y1). The coordinate space is not
// part of the value; callers track it alongside the box.
type BBox [4]float64

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a top-down pixel rectangle as used by renderers.
type Rect struct {
	Left float64 `json:"left"`
	Top  float64 `json:"top"`

	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (r Rect) IsZero() bool {
	return r.Width <= 0 || r.Height <= 0
}

func (b BBox) Width() float64 {
	return math.Max(0, b[2]-b[0])
}

func (b BBox) Height() float64 {
	return math.Max(0, b[3]-b[1])
}

// Valid reports whether the box is ordered and finite.
func (b BBox) Valid() bool {
	for _, v := range b {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return b[0] <= b[2] && b[1] <= b[3]
}

// Ordered swaps coordinates so that x0 <= x1 and y0 <= y1.
func (b BBox) Ordered() BBox {
	return BBox{
		math.Min(b[0], b[2]),
		math.Min(b[1], b[3]),
		math.Max(b[0], b[2]),
		math.Max(b[1], b[3]),
	}
}

func (b BBox) Center() Point {
	return Point{
		X: (b[0] + b[2]) / 2,
		Y: (b[1] + b[3]) / 2,
	}
}

func (b BBox) ContainsPoint(p Point) bool {
	return p.X >= b[0] && p.X <= b[2] && p.Y >= b[1] && p.Y <= b[3]
}

// Expand grows the box by dx on both horizontal sides and dy on both vertical sides.
func (b BBox) Expand(dx, dy float64) BBox {
	return BBox{b[0] - dx, b[1] - dy, b[2] + dx, b[3] + dy}
}

// Round rounds every coordinate to the given number of decimals.
func (b BBox) Round(decimals int) BBox {
	return BBox{
		round(b[0], decimals),
		round(b[1], decimals),
		round(b[2], decimals),
		round(b[3], decimals),
	}
}

// Clamp orders the box and clamps it to the normalized [0, 1] range.
func Clamp(b BBox) BBox {
	return ClampTo(b, 1, 1)
}

// ClampTo orders the box and clamps it to [0, width] x [0, height].
func ClampTo(b BBox, width, height float64) BBox {
	o := b.Ordered()

	return BBox{
		clamp(o[0], 0, width),
		clamp(o[1], 0, height),
		clamp(o[2], 0, width),
		clamp(o[3], 0, height),
	}
}

func Area(b BBox) float64 {
	return b.Width() * b.Height()
}

func IntersectArea(a, b BBox) float64 {
	x0 := math.Max(a[0], b[0])
	y0 := math.Max(a[1], b[1])
	x1 := math.Min(a[2], b[2])
	y1 := math.Min(a[3], b[3])

	return math.Max(0, x1-x0) * math.Max(0, y1-y0)
}

// Contains reports whether target lies entirely inside region.
func Contains(region, target BBox) bool {
	return region[0] <= target[0] && region[1] <= target[1] && region[2] >= target[2] && region[3] >= target[3]
}

// IoU returns the intersection over union of two boxes, 0 for disjoint or empty boxes.
func IoU(a, b BBox) float64 {
	inter := IntersectArea(a, b)

	if inter <= 0 {
		return 0
	}

	union := Area(a) + Area(b) - inter

	if union <= 0 {
		return 0
	}

	return inter / union
}

// Distance is the euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
