package patch

import (
	"math"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	MinFontSizePt  = 6.0
	FontSizeStepPt = 0.5
)

// Measurer measures text advance widths in points. Faces are cached per
// family and size; font.Face is not safe for concurrent use so measurement
// is serialized.
type Measurer struct {
	mu sync.Mutex

	fonts map[string]*opentype.Font
	faces map[faceKey]font.Face
}

type faceKey struct {
	family string
	size   float64
}

var defaultMeasurer = sync.OnceValue(func() *Measurer {
	m, err := NewMeasurer()

	if err != nil {
		panic(err)
	}

	return m
})

func NewMeasurer() (*Measurer, error) {
	fonts := make(map[string]*opentype.Font)

	for name, data := range map[string][]byte{
		"regular": goregular.TTF,
		"bold":    gobold.TTF,
		"mono":    gomono.TTF,
	} {
		f, err := opentype.Parse(data)

		if err != nil {
			return nil, err
		}

		fonts[name] = f
	}

	return &Measurer{
		fonts: fonts,
		faces: make(map[faceKey]font.Face),
	}, nil
}

// fontFor maps a font family name onto one of the bundled Go fonts.
func fontFor(family string) string {
	family = strings.ToLower(family)

	switch {
	case strings.Contains(family, "mono"), strings.Contains(family, "courier"):
		return "mono"
	case strings.Contains(family, "bold"), strings.Contains(family, "black"), strings.Contains(family, "heavy"):
		return "bold"
	}

	return "regular"
}

// Width returns the advance width of text set in family at size points.
func (m *Measurer) Width(text, family string, size float64) float64 {
	if text == "" || size <= 0 {
		return 0
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := faceKey{fontFor(family), size}

	face, ok := m.faces[key]

	if !ok {
		f, err := opentype.NewFace(m.fonts[key.family], &opentype.FaceOptions{
			Size:    size,
			DPI:     72,
			Hinting: font.HintingNone,
		})

		if err != nil {
			return math.Inf(1)
		}

		face = f
		m.faces[key] = face
	}

	return float64(font.MeasureString(face, text)) / 64
}

// Fits reports whether text at size fits a box of the given point dimensions.
func (m *Measurer) Fits(text, family string, size, width, height float64) bool {
	return m.Width(text, family, size) <= width && size <= height
}

// Fit shrinks the font size in FontSizeStepPt steps until text fits the box,
// stopping at MinFontSizePt. Overflow is reported when even the minimum size
// does not fit.
func (m *Measurer) Fit(text, family string, size, width, height float64) (float64, bool) {
	if size <= 0 || m.Fits(text, family, size, width, height) {
		return size, false
	}

	next := size

	for next-FontSizeStepPt >= MinFontSizePt {
		next = math.Round((next-FontSizeStepPt)*100) / 100

		if m.Fits(text, family, next, width, height) {
			return next, false
		}
	}

	return MinFontSizePt, !m.Fits(text, family, MinFontSizePt, width, height)
}
