// Package contrast picks readable text colours for a rendered background.
package contrast

import (
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	// MinRatio is the WCAG AA contrast ratio for normal text.
	MinRatio = 4.5
	// MinRatioLarge applies to text at LargeTextSize and above.
	MinRatioLarge = 3.0
	LargeTextSize = 24.0
)

var (
	Black = color.RGBA{A: 0xff}
	White = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
)

// Result is the text colour to use over a region. Ratio is measured against
// the region's least favourable pixel; when it misses the required ratio,
// Highlight is a background colour to put behind the text.
type Result struct {
	Color      color.RGBA  `json:"color"`
	Highlight  *color.RGBA `json:"backgroundColor,omitempty"`
	Background color.RGBA  `json:"-"`
	Ratio      float64     `json:"-"`
}

// AccessibleTextColors inspects img and returns the text colour with the
// highest contrast against its average colour.
func AccessibleTextColors(img image.Image, fontSize float64) Result {
	st := scan(img)
	lum := Luminance(st.average)

	res := Result{Background: st.average}
	if Ratio(lum, Luminance(Black)) >= Ratio(lum, Luminance(White)) {
		res.Color, res.Ratio = Black, Ratio(st.darkest, Luminance(Black))
	} else {
		res.Color, res.Ratio = White, Ratio(st.brightest, Luminance(White))
	}

	required := MinRatio
	if fontSize >= LargeTextSize {
		required = MinRatioLarge
	}
	if res.Ratio < required {
		h := White
		if res.Color == White {
			h = Black
		}
		res.Highlight = &h
	}
	return res
}

// Average returns the mean colour of img in linear RGB, ignoring fully
// transparent pixels. An empty image averages to white.
func Average(img image.Image) color.RGBA {
	return scan(img).average
}

type stats struct {
	average            color.RGBA
	darkest, brightest float64
}

func scan(img image.Image) stats {
	b := img.Bounds()
	var r, g, bl float64
	n := 0
	st := stats{darkest: 1}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c, ok := colorful.MakeColor(img.At(x, y))
			if !ok {
				continue
			}
			lr, lg, lb := c.LinearRgb()
			r += lr
			g += lg
			bl += lb
			n++
			lum := 0.2126*lr + 0.7152*lg + 0.0722*lb
			st.darkest = min(st.darkest, lum)
			st.brightest = max(st.brightest, lum)
		}
	}
	if n == 0 {
		return stats{average: White, darkest: 1, brightest: 1}
	}
	avg := colorful.LinearRgb(r/float64(n), g/float64(n), bl/float64(n)).Clamped()
	cr, cg, cb := avg.RGB255()
	st.average = color.RGBA{R: cr, G: cg, B: cb, A: 0xff}
	return st
}

// Luminance is the WCAG relative luminance of c.
func Luminance(c color.Color) float64 {
	cc, ok := colorful.MakeColor(c)
	if !ok {
		return 0
	}
	r, g, b := cc.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// Ratio is the contrast ratio between two relative luminances.
func Ratio(a, b float64) float64 {
	if a < b {
		a, b = b, a
	}
	return (a + 0.05) / (b + 0.05)
}
