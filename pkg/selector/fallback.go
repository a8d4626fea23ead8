package selector

import (
	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
)

const (
	DefaultPaddingPx         = 8
	DefaultNearestDistancePx = 24
)

var DefaultBroadenKinds = []document.Kind{
	document.KindTextRun,
	document.KindPath,
}

type FallbackOptions struct {
	Options

	ViewportWidth  float64
	ViewportHeight float64

	PaddingPx         float64
	NearestDistancePx float64

	AllowBroaden bool
	BroadenKinds []document.Kind
}

// Step names the rung of the fallback ladder that produced a selection.
type Step string

const (
	StepRegion  Step = "region"
	StepPadded  Step = "padded"
	StepNearest Step = "nearest"
	StepBroaden Step = "broaden"
	StepNone    Step = ""
)

// PickWithFallback runs PickInRegion and, when it finds nothing, retries with
// a padded region, then the nearest text element within a pixel radius, and
// finally (if allowed) with broadened kinds.
func PickWithFallback(elements []document.Element, region geometry.BBox, options *FallbackOptions) []document.Element {
	result, _ := PickWithFallbackStep(elements, region, options)
	return result
}

// PickWithFallbackStep is PickWithFallback that also reports which step matched.
func PickWithFallbackStep(elements []document.Element, region geometry.BBox, options *FallbackOptions) ([]document.Element, Step) {
	if options == nil {
		options = new(FallbackOptions)
	}

	padding := options.PaddingPx

	if padding <= 0 {
		padding = DefaultPaddingPx
	}

	radius := options.NearestDistancePx

	if radius <= 0 {
		radius = DefaultNearestDistancePx
	}

	base := options.Options

	if result := PickInRegion(elements, region, &base); len(result) > 0 {
		return result, StepRegion
	}

	if dx, dy := geometry.PixelsToNormalized(padding, options.ViewportWidth, options.ViewportHeight); dx > 0 || dy > 0 {
		if result := PickInRegion(elements, region.Ordered().Expand(dx, dy), &base); len(result) > 0 {
			return result, StepPadded
		}
	}

	if e, ok := nearest(elements, region, radius, options.ViewportWidth, options.ViewportHeight); ok {
		return []document.Element{e}, StepNearest
	}

	if options.AllowBroaden {
		kinds := options.BroadenKinds

		if len(kinds) == 0 {
			kinds = DefaultBroadenKinds
		}

		broadened := Options{
			Kinds:      kinds,
			MaxResults: base.MaxResults,
		}

		if result := PickInRegion(elements, region, &broadened); len(result) > 0 {
			return result, StepBroaden
		}
	}

	return nil, StepNone
}

func nearest(elements []document.Element, region geometry.BBox, radius, viewportWidth, viewportHeight float64) (document.Element, bool) {
	if viewportWidth <= 0 || viewportHeight <= 0 {
		return document.Element{}, false
	}

	rc := region.Ordered().Center()
	origin := geometry.Point{X: rc.X * viewportWidth, Y: rc.Y * viewportHeight}

	var (
		best  document.Element
		found bool
		dist  float64
	)

	for _, e := range elements {
		if e.Kind != document.KindTextRun {
			continue
		}

		bbox := geometry.Clamp(e.BBox)

		if geometry.Area(bbox) <= 0 {
			continue
		}

		c := bbox.Center()
		d := geometry.Distance(origin, geometry.Point{X: c.X * viewportWidth, Y: c.Y * viewportHeight})

		if d > radius {
			continue
		}

		if !found || d < dist || (d == dist && e.ID < best.ID) {
			best = e
			dist = d
			found = true
		}
	}

	return best, found
}
