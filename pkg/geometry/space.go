package geometry

import (
	"slices"
)

type Space string

const (
	SpaceNormalized Space = "normalized"
	SpacePoints     Space = "points"
	SpacePixels     Space = "pixels"
)

const (
	// SpaceTolerance is the factor a sample may exceed a candidate space's bounds
	// and still be classified into it.
	SpaceTolerance = 1.5

	// FlipThreshold is the mean vertical centre (as a fraction of the space
	// height) above which boxes are treated as bottom-up. Tunable, not derived.
	FlipThreshold = 0.55
)

// Context carries the known dimensions of a page and of the container it is
// rendered into. Zero values mean unknown.
type Context struct {
	ContainerWidth  float64
	ContainerHeight float64

	PageWidthPt  float64
	PageHeightPt float64

	ImageWidthPx  float64
	ImageHeightPx float64
}

// DetectSpace classifies the coordinate space of a set of sample boxes by
// comparing their maximum coordinates against each candidate space's bounds.
func DetectSpace(boxes []BBox, ctx Context) Space {
	var maxX, maxY float64

	for _, b := range boxes {
		maxX = max(maxX, b[2])
		maxY = max(maxY, b[3])
	}

	if maxX <= SpaceTolerance && maxY <= SpaceTolerance {
		return SpaceNormalized
	}

	if ctx.PageWidthPt > 0 && ctx.PageHeightPt > 0 &&
		maxX <= ctx.PageWidthPt*SpaceTolerance && maxY <= ctx.PageHeightPt*SpaceTolerance {
		return SpacePoints
	}

	if ctx.ImageWidthPx > 0 && ctx.ImageHeightPx > 0 &&
		maxX <= ctx.ImageWidthPx*SpaceTolerance && maxY <= ctx.ImageHeightPx*SpaceTolerance {
		return SpacePixels
	}

	return SpaceNormalized
}

// AverageCenter returns the mean vertical centre of the boxes as a fraction of
// spaceHeight. Empty input or a non-positive height yields 0.5.
func AverageCenter(boxes []BBox, spaceHeight float64) float64 {
	if len(boxes) == 0 || spaceHeight <= 0 {
		return 0.5
	}

	var total float64

	for _, b := range boxes {
		total += (b[1] + b[3]) / 2
	}

	return total / float64(len(boxes)) / spaceHeight
}

// InferFlip reports whether boxes look bottom-up (PDF user space) and must be
// flipped when mapped into top-down pixel space. This is a heuristic: pages
// whose content sits mostly in the lower half are misclassified.
func InferFlip(boxes []BBox, spaceHeight float64) bool {
	return AverageCenter(boxes, spaceHeight) > FlipThreshold
}

// SpaceSize returns the width and height of the given space.
func SpaceSize(space Space, ctx Context) (float64, float64) {
	switch space {
	case SpacePoints:
		return or(ctx.PageWidthPt, ctx.ContainerWidth), or(ctx.PageHeightPt, ctx.ContainerHeight)

	case SpacePixels:
		return or(ctx.ImageWidthPx, ctx.ContainerWidth), or(ctx.ImageHeightPx, ctx.ContainerHeight)
	}

	return 1, 1
}

// SpaceHeight is the height used for flip inference; unknown heights resolve to 1.
func SpaceHeight(space Space, ctx Context) float64 {
	switch space {
	case SpacePoints:
		return or(ctx.PageHeightPt, 1)

	case SpacePixels:
		return or(ctx.ImageHeightPx, 1)
	}

	return 1
}

// Scale maps one coordinate space onto the container.
type Scale struct {
	X float64
	Y float64

	// FlipMax is the height of the source space, used to mirror y.
	FlipMax float64
}

func SpaceScale(space Space, ctx Context) Scale {
	if space == SpaceNormalized {
		return Scale{
			X: ctx.ContainerWidth,
			Y: ctx.ContainerHeight,

			FlipMax: 1,
		}
	}

	w, h := SpaceSize(space, ctx)

	return Scale{
		X: ratio(ctx.ContainerWidth, w),
		Y: ratio(ctx.ContainerHeight, h),

		FlipMax: h,
	}
}

// ToPixelRect maps a box into top-down container pixels. The mapping only uses
// multiplication and subtraction, so identical inputs give identical outputs.
func ToPixelRect(b BBox, scale Scale, flip bool) Rect {
	top := b[1] * scale.Y

	if flip {
		top = (scale.FlipMax - b[3]) * scale.Y
	}

	return Rect{
		Left: b[0] * scale.X,
		Top:  top,

		Width:  max(0, (b[2]-b[0])*scale.X),
		Height: max(0, (b[3]-b[1])*scale.Y),
	}
}

// Converter is a space classification bound to a fixed scale and orientation.
type Converter struct {
	Space Space
	Flip  bool

	Scale Scale
}

// NewConverter inspects the sample boxes once and returns a converter for the
// whole set.
func NewConverter(boxes []BBox, ctx Context) *Converter {
	space := DetectSpace(boxes, ctx)
	flip := InferFlip(boxes, SpaceHeight(space, ctx))

	return &Converter{
		Space: space,
		Flip:  flip,

		Scale: SpaceScale(space, ctx),
	}
}

func (c *Converter) ToPixelRect(b BBox) Rect {
	if c.Scale.X <= 0 || c.Scale.Y <= 0 {
		return Rect{}
	}

	return ToPixelRect(b, c.Scale, c.Flip)
}

// ToNormalized converts a box from a point or pixel space of the given size
// into top-down normalized space, mirroring y when flip is set.
func ToNormalized(b BBox, space Space, width, height float64, flip bool) BBox {
	if space == SpaceNormalized {
		if flip {
			b = BBox{b[0], 1 - b[3], b[2], 1 - b[1]}
		}

		return Clamp(b)
	}

	if width <= 0 || height <= 0 {
		return BBox{}
	}

	if flip {
		b = BBox{b[0], height - b[3], b[2], height - b[1]}
	}

	return Clamp(BBox{b[0] / width, b[1] / height, b[2] / width, b[3] / height})
}

// NormalizeBoxes detects the space of the boxes and converts all of them into
// top-down normalized space. It returns the detected space and flip decision.
func NormalizeBoxes(boxes []BBox, ctx Context) ([]BBox, Space, bool) {
	space := DetectSpace(boxes, ctx)
	flip := InferFlip(boxes, SpaceHeight(space, ctx))

	w, h := SpaceSize(space, ctx)

	result := slices.Clone(boxes)

	for i, b := range result {
		result[i] = ToNormalized(b, space, w, h, flip)
	}

	return result, space, flip
}

func or(v, fallback float64) float64 {
	if v > 0 {
		return v
	}

	return fallback
}

func ratio(a, b float64) float64 {
	if b <= 0 {
		return 0
	}

	return a / b
}
