package selector

import (
	"cmp"
	"slices"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
)

const (
	DefaultMaxResults = 20

	// MinOverlapRatio is the share of an element's area that must lie inside
	// the region for the element to qualify.
	MinOverlapRatio = 0.1
)

var DefaultKinds = []document.Kind{
	document.KindTextRun,
}

type Options struct {
	Kinds      []document.Kind
	MaxResults int
}

type scored struct {
	element document.Element

	ratio float64
	area  float64
}

// PickInRegion returns the elements the region most likely targets, ordered by
// overlap ratio (desc), area (asc) and id (asc). Region and element boxes are
// clamped to [0, 1] first.
func PickInRegion(elements []document.Element, region geometry.BBox, options *Options) []document.Element {
	if options == nil {
		options = new(Options)
	}

	kinds := options.Kinds

	if len(kinds) == 0 {
		kinds = DefaultKinds
	}

	limit := options.MaxResults

	if limit <= 0 {
		limit = DefaultMaxResults
	}

	region = geometry.Clamp(region)

	var candidates []scored

	for _, e := range elements {
		if !slices.Contains(kinds, e.Kind) {
			continue
		}

		bbox := geometry.Clamp(e.BBox)
		area := geometry.Area(bbox)

		if area <= 0 {
			continue
		}

		ratio := geometry.IntersectArea(region, bbox) / area

		if ratio < MinOverlapRatio && !geometry.Contains(region, bbox) {
			continue
		}

		candidates = append(candidates, scored{
			element: e,

			ratio: ratio,
			area:  area,
		})
	}

	slices.SortFunc(candidates, func(a, b scored) int {
		if c := cmp.Compare(b.ratio, a.ratio); c != 0 {
			return c
		}

		if c := cmp.Compare(a.area, b.area); c != 0 {
			return c
		}

		return cmp.Compare(a.element.ID, b.element.ID)
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]document.Element, 0, len(candidates))

	for _, c := range candidates {
		result = append(result, c.element)
	}

	return result
}

// HitTestSmallest returns the index of the smallest box containing the point,
// each box expanded by tolerance, or -1 if none does.
func HitTestSmallest(boxes []geometry.BBox, point geometry.Point, tolerance geometry.Point) int {
	hit := -1
	best := 0.0

	for i, b := range boxes {
		if !b.Expand(tolerance.X, tolerance.Y).ContainsPoint(point) {
			continue
		}

		area := geometry.Area(b)

		if hit < 0 || area < best {
			hit = i
			best = area
		}
	}

	return hit
}
