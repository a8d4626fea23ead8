package geometry_test

import (
	"math/rand/v2"
	"testing"

	"github.com/adrianliechti/forge/pkg/geometry"

	"github.com/stretchr/testify/require"
)

func TestConverterNormalizedWithoutFlip(t *testing.T) {
	c := geometry.NewConverter([]geometry.BBox{{0.1, 0.1, 0.2, 0.2}}, geometry.Context{
		ContainerWidth:  1000,
		ContainerHeight: 1000,
	})

	require.Equal(t, geometry.SpaceNormalized, c.Space)
	require.False(t, c.Flip)

	rect := c.ToPixelRect(geometry.BBox{0.1, 0.1, 0.2, 0.2})

	require.InDelta(t, 100, rect.Left, 1e-9)
	require.InDelta(t, 100, rect.Top, 1e-9)
	require.InDelta(t, 100, rect.Width, 1e-9)
	require.InDelta(t, 100, rect.Height, 1e-9)
}

func TestConverterNormalizedFlipsWhenCentersSkewLow(t *testing.T) {
	c := geometry.NewConverter([]geometry.BBox{{0.1, 0.8, 0.2, 0.9}}, geometry.Context{
		ContainerWidth:  1000,
		ContainerHeight: 1000,
	})

	require.True(t, c.Flip)

	rect := c.ToPixelRect(geometry.BBox{0.1, 0.8, 0.2, 0.9})

	require.InDelta(t, 100, rect.Left, 0.001)
	require.InDelta(t, 100, rect.Top, 0.001)
	require.InDelta(t, 100, rect.Width, 0.001)
	require.InDelta(t, 100, rect.Height, 0.001)
}

func TestConverterPointSpaceWithFlip(t *testing.T) {
	c := geometry.NewConverter([]geometry.BBox{{0, 700, 100, 750}}, geometry.Context{
		ContainerWidth:  600,
		ContainerHeight: 800,

		PageWidthPt:  600,
		PageHeightPt: 800,
	})

	require.Equal(t, geometry.SpacePoints, c.Space)
	require.True(t, c.Flip)

	rect := c.ToPixelRect(geometry.BBox{0, 700, 100, 750})

	require.Equal(t, geometry.Rect{Left: 0, Top: 50, Width: 100, Height: 50}, rect)
}

func TestConverterPixelSpace(t *testing.T) {
	c := geometry.NewConverter([]geometry.BBox{{100, 100, 200, 200}}, geometry.Context{
		ContainerWidth:  600,
		ContainerHeight: 800,

		ImageWidthPx:  1200,
		ImageHeightPx: 1600,
	})

	require.Equal(t, geometry.SpacePixels, c.Space)
	require.False(t, c.Flip)

	rect := c.ToPixelRect(geometry.BBox{100, 100, 200, 200})

	require.Equal(t, geometry.Rect{Left: 50, Top: 50, Width: 50, Height: 50}, rect)
}

func TestDetectSpace(t *testing.T) {
	tests := []struct {
		name  string
		boxes []geometry.BBox
		ctx   geometry.Context
		want  geometry.Space
	}{
		{
			name:  "empty sample defaults to normalized",
			boxes: nil,
			want:  geometry.SpaceNormalized,
		},
		{
			name:  "slightly out of range is still normalized",
			boxes: []geometry.BBox{{0.2, 0.2, 1.4, 1.2}},
			want:  geometry.SpaceNormalized,
		},
		{
			name:  "points win over pixels",
			boxes: []geometry.BBox{{10, 10, 500, 700}},
			ctx:   geometry.Context{PageWidthPt: 612, PageHeightPt: 792, ImageWidthPx: 1224, ImageHeightPx: 1584},
			want:  geometry.SpacePoints,
		},
		{
			name:  "too large for points falls through to pixels",
			boxes: []geometry.BBox{{10, 10, 1100, 1500}},
			ctx:   geometry.Context{PageWidthPt: 612, PageHeightPt: 792, ImageWidthPx: 1224, ImageHeightPx: 1584},
			want:  geometry.SpacePixels,
		},
		{
			name:  "unknown bounds default to normalized",
			boxes: []geometry.BBox{{10, 10, 1100, 1500}},
			want:  geometry.SpaceNormalized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, geometry.DetectSpace(tt.boxes, tt.ctx))
		})
	}
}

func TestInferFlipBottomAnchoredPage(t *testing.T) {
	// a page whose only text sits in a top-down footer is misread as bottom-up
	boxes := []geometry.BBox{
		{0.1, 0.90, 0.9, 0.93},
		{0.1, 0.94, 0.9, 0.97},
	}

	require.True(t, geometry.InferFlip(boxes, 1))
	require.False(t, geometry.InferFlip(nil, 1))
	require.False(t, geometry.InferFlip(boxes, 0))
}

func TestDegenerateContainerYieldsZeroRect(t *testing.T) {
	c := geometry.NewConverter([]geometry.BBox{{0, 700, 100, 750}}, geometry.Context{
		PageWidthPt:  600,
		PageHeightPt: 800,
	})

	rect := c.ToPixelRect(geometry.BBox{0, 700, 100, 750})

	require.True(t, rect.IsZero())
	require.Equal(t, geometry.Rect{}, rect)
}

func TestToPixelRectIsPure(t *testing.T) {
	scale := geometry.Scale{X: 1.37, Y: 2.11, FlipMax: 792}
	b := geometry.BBox{12.5, 100.25, 300.75, 120.5}

	first := geometry.ToPixelRect(b, scale, true)

	for range 100 {
		require.Equal(t, first, geometry.ToPixelRect(b, scale, true))
	}

	inverted := geometry.ToPixelRect(geometry.BBox{10, 10, 5, 5}, scale, false)
	require.Zero(t, inverted.Width)
	require.Zero(t, inverted.Height)
}

func TestNormalizeRoundTrip(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))

	for range 500 {
		x0, x1 := r.Float64(), r.Float64()
		y0, y1 := r.Float64(), r.Float64()

		b := geometry.BBox{x0, y0, x1, y1}.Ordered()

		w := 100 + r.Float64()*2000
		h := 100 + r.Float64()*2000

		got := geometry.NormalizeRect(geometry.DenormalizeBBox(b, w, h), w, h)

		for i := range b {
			require.InDelta(t, b[i], got[i], 1e-9)
		}
	}
}

func TestNormalizeRectClampsToViewport(t *testing.T) {
	b := geometry.NormalizeRect(geometry.Rect{Left: -10, Top: 20, Width: 120, Height: 50}, 100, 200)

	require.Equal(t, geometry.BBox{0, 0.1, 1, 0.35}, b)
	require.Equal(t, geometry.BBox{}, geometry.NormalizeRect(geometry.Rect{Width: 10, Height: 10}, 0, 100))
}

func TestNormalizeRectStableAcrossScale(t *testing.T) {
	base := geometry.NormalizeRect(geometry.Rect{Left: 10, Top: 20, Width: 30, Height: 40}, 100, 200)
	scaled := geometry.NormalizeRect(geometry.Rect{Left: 20, Top: 40, Width: 60, Height: 80}, 200, 400)

	require.Equal(t, base.Round(4), scaled.Round(4))
}

func TestToNormalizedFromPoints(t *testing.T) {
	b := geometry.ToNormalized(geometry.BBox{0, 700, 100, 750}, geometry.SpacePoints, 600, 800, true)

	require.InDelta(t, 0, b[0], 1e-9)
	require.InDelta(t, 50.0/800, b[1], 1e-9)
	require.InDelta(t, 100.0/600, b[2], 1e-9)
	require.InDelta(t, 100.0/800, b[3], 1e-9)

	require.Equal(t, geometry.BBox{}, geometry.ToNormalized(geometry.BBox{1, 2, 3, 4}, geometry.SpacePixels, 0, 0, false))
}

func TestBoxHelpers(t *testing.T) {
	require.Equal(t, geometry.BBox{0, 0.9, 0.8, 1}, geometry.Clamp(geometry.BBox{-0.2, 1.2, 0.8, 0.9}))

	a := geometry.BBox{0, 0, 2, 2}
	b := geometry.BBox{1, 1, 3, 3}

	require.InDelta(t, 1, geometry.IntersectArea(a, b), 1e-12)
	require.InDelta(t, 1.0/7, geometry.IoU(a, b), 1e-12)
	require.True(t, geometry.Contains(geometry.BBox{0, 0, 4, 4}, b))
	require.False(t, geometry.Contains(a, b))
	require.Zero(t, geometry.IoU(a, geometry.BBox{5, 5, 6, 6}))
}

func TestGlyphRect(t *testing.T) {
	rect := geometry.GlyphRect(geometry.Matrix{1, 0, 0, -1, 10, 50}, 40, 12)

	require.Equal(t, geometry.Rect{Left: 10, Top: 38, Width: 40, Height: 12}, rect)
	require.InDelta(t, 12, geometry.FontSizeFromTransform(geometry.Matrix{12, 0, 0, 12, 0, 0}), 1e-12)
	require.True(t, geometry.GlyphRect(geometry.Matrix{}, 0, 0).IsZero())
}
