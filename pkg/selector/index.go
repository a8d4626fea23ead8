package selector

import (
	"cmp"
	"math"
	"slices"

	"github.com/adrianliechti/forge/pkg/document"
	"github.com/adrianliechti/forge/pkg/geometry"
)

// DefaultCellSize is the grid cell edge in page points.
const DefaultCellSize = 96.0

type Candidate struct {
	ID    string        `json:"id"`
	Score float64       `json:"score"`
	BBox  geometry.BBox `json:"bbox"`
	Kind  document.Kind `json:"kind"`

	z int
}

type cell struct {
	x int
	y int
}

// Index is a uniform grid over a page. Boxes are stored normalized; cells are
// sized in page points so that density is independent of page format.
type Index struct {
	elements []document.Element

	width  float64
	height float64

	cellSize float64

	cols int
	rows int

	bins map[cell][]int
}

func NewIndex(page *document.Page, cellSize float64) *Index {
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}

	width := max(page.WidthPt, 1)
	height := max(page.HeightPt, 1)

	idx := &Index{
		elements: page.Elements,

		width:  width,
		height: height,

		cellSize: cellSize,

		cols: max(1, int(math.Ceil(width/cellSize))),
		rows: max(1, int(math.Ceil(height/cellSize))),

		bins: make(map[cell][]int),
	}

	for i, e := range page.Elements {
		x0, y0, x1, y1 := idx.cellRange(e.BBox)

		for cx := x0; cx <= x1; cx++ {
			for cy := y0; cy <= y1; cy++ {
				c := cell{cx, cy}
				idx.bins[c] = append(idx.bins[c], i)
			}
		}
	}

	return idx
}

func (idx *Index) cellOf(x, y float64) cell {
	return cell{
		int(math.Floor(x * idx.width / idx.cellSize)),
		int(math.Floor(y * idx.height / idx.cellSize)),
	}
}

func (idx *Index) cellRange(b geometry.BBox) (int, int, int, int) {
	o := b.Ordered()

	lo := idx.cellOf(o[0], o[1])
	hi := idx.cellOf(o[2], o[3])

	return min(max(lo.x, 0), idx.cols-1), min(max(lo.y, 0), idx.rows-1),
		min(max(hi.x, 0), idx.cols-1), min(max(hi.y, 0), idx.rows-1)
}

func (idx *Index) collect(cells []cell) []int {
	seen := make(map[int]bool)

	var result []int

	for _, c := range cells {
		for _, i := range idx.bins[c] {
			if seen[i] {
				continue
			}

			seen[i] = true
			result = append(result, i)
		}
	}

	return result
}

// HitTestPoint returns the elements around a normalized point ordered by the
// squared distance (in points) of their centre, then by paint order.
func (idx *Index) HitTestPoint(p geometry.Point) []Candidate {
	center := idx.cellOf(p.X, p.Y)

	var cells []cell

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			cells = append(cells, cell{center.x + dx, center.y + dy})
		}
	}

	var result []Candidate

	for _, i := range idx.collect(cells) {
		e := idx.elements[i]
		c := e.BBox.Center()

		dx := (p.X - c.X) * idx.width
		dy := (p.Y - c.Y) * idx.height

		result = append(result, Candidate{
			ID:    e.ID,
			Score: dx*dx + dy*dy,
			BBox:  e.BBox,
			Kind:  e.Kind,

			z: i,
		})
	}

	slices.SortStableFunc(result, func(a, b Candidate) int {
		if c := cmp.Compare(a.Score, b.Score); c != 0 {
			return c
		}

		return cmp.Compare(a.z, b.z)
	})

	return result
}

// HitTestRect returns the elements intersecting a normalized rect ordered by
// intersection area (in square points, desc), then by paint order.
func (idx *Index) HitTestRect(r geometry.BBox) []Candidate {
	r = r.Ordered()

	x0, y0, x1, y1 := idx.cellRange(r)

	var cells []cell

	for cx := x0; cx <= x1; cx++ {
		for cy := y0; cy <= y1; cy++ {
			cells = append(cells, cell{cx, cy})
		}
	}

	var result []Candidate

	for _, i := range idx.collect(cells) {
		e := idx.elements[i]

		area := geometry.IntersectArea(r, e.BBox) * idx.width * idx.height

		if area <= 0 {
			continue
		}

		result = append(result, Candidate{
			ID:    e.ID,
			Score: area,
			BBox:  e.BBox,
			Kind:  e.Kind,

			z: i,
		})
	}

	slices.SortStableFunc(result, func(a, b Candidate) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}

		return cmp.Compare(a.z, b.z)
	})

	return result
}
