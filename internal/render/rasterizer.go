package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"slices"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	strip "github.com/grokify/html-strip-tags-go"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/inamate/storyeditor/internal/story"
)

var ErrNoPage = errors.New("no page to render")

const checkerSize = 16.0

var (
	placeholderLight = color.RGBA{R: 0xee, G: 0xee, B: 0xee, A: 0xff}
	placeholderDark  = color.RGBA{R: 0xcc, G: 0xcc, B: 0xcc, A: 0xff}
)

// Rasterizer draws pages into images at PageWidth x PageHeight times Scale.
// It is safe for concurrent use.
type Rasterizer struct {
	Scale float64

	fontOnce sync.Once
	font     *truetype.Font
	fontErr  error
}

func NewRasterizer(scale float64) *Rasterizer {
	if scale <= 0 {
		scale = 1
	}
	return &Rasterizer{Scale: scale}
}

// Size returns the pixel size of rendered pages.
func (r *Rasterizer) Size() (int, int) {
	return int(math.Round(story.PageWidth * r.scale())), int(math.Round(story.PageHeight * r.scale()))
}

func (r *Rasterizer) scale() float64 {
	if r.Scale <= 0 {
		return 1
	}
	return r.Scale
}

// RenderPage draws page without the elements listed in exclude.
func (r *Rasterizer) RenderPage(ctx context.Context, page *story.Page, exclude []string) (image.Image, error) {
	if page == nil {
		return nil, ErrNoPage
	}
	w, h := r.Size()
	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()
	dc.Scale(r.scale(), r.scale())

	if page.BackgroundColor != nil {
		fillPattern(dc, page.BackgroundColor, 1, Rect{Width: story.PageWidth, Height: story.PageHeight})
		dc.DrawRectangle(0, 0, story.PageWidth, story.PageHeight)
		dc.Fill()
	}

	for _, el := range page.Elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if el.IsHidden || slices.Contains(exclude, el.ID) {
			continue
		}
		if err := r.drawElement(dc, el); err != nil {
			return nil, fmt.Errorf("draw element %s: %w", el.ID, err)
		}
	}
	return dc.Image(), nil
}

func (r *Rasterizer) drawElement(dc *gg.Context, el *story.Element) error {
	if el.Width <= 0 || el.Height <= 0 {
		return nil
	}
	alpha := opacity(el)
	if alpha == 0 {
		return nil
	}

	dc.Push()
	defer dc.Pop()
	dc.Translate(el.X+el.Width/2, el.Y+el.Height/2)
	dc.Rotate(gg.Radians(el.RotationAngle))
	if el.Flip != nil {
		sx, sy := 1.0, 1.0
		if el.Flip.Horizontal {
			sx = -1
		}
		if el.Flip.Vertical {
			sy = -1
		}
		dc.Scale(sx, sy)
	}
	dc.Translate(-el.Width/2, -el.Height/2)

	box := Rect{Width: el.Width, Height: el.Height}
	switch {
	case el.Type.IsMedia():
		drawShape(dc, el, box)
		dc.Clip()
		drawMedia(dc, el, box, alpha)
		dc.ResetClip()
	case el.Type == story.ElementTypeText:
		if el.BackgroundColor != nil {
			fillPattern(dc, el.BackgroundColor, alpha, box)
			drawShape(dc, el, box)
			dc.Fill()
		}
		if err := r.drawText(dc, el, alpha); err != nil {
			return err
		}
	case el.Type == story.ElementTypeShape:
		if el.BackgroundColor != nil {
			fillPattern(dc, el.BackgroundColor, alpha, box)
		} else {
			dc.SetColor(withAlpha(placeholderDark, alpha))
		}
		drawShape(dc, el, box)
		dc.Fill()
	default:
		dc.SetColor(withAlpha(placeholderLight, alpha))
		drawShape(dc, el, box)
		dc.Fill()
	}

	if el.Overlay != nil {
		fillPattern(dc, el.Overlay, alpha, box)
		drawShape(dc, el, box)
		dc.Fill()
	}
	drawBorder(dc, el, alpha)
	return nil
}

// drawShape adds the element's mask outline to the current path.
func drawShape(dc *gg.Context, el *story.Element, box Rect) {
	if el.Mask != nil && el.Mask.Type == "circle" {
		dc.DrawEllipse(box.Width/2, box.Height/2, box.Width/2, box.Height/2)
		return
	}
	if br := el.BorderRadius; br != nil && br.TopLeft > 0 {
		dc.DrawRoundedRectangle(0, 0, box.Width, box.Height, min(br.TopLeft, box.Width/2, box.Height/2))
		return
	}
	dc.DrawRectangle(0, 0, box.Width, box.Height)
}

// drawMedia paints the resource's base colour, or a checkerboard while the
// media has none.
func drawMedia(dc *gg.Context, el *story.Element, box Rect, alpha float64) {
	if el.Resource != nil && el.Resource.BaseColor != "" {
		if c, err := colorful.Hex(el.Resource.BaseColor); err == nil {
			dc.SetColor(withAlpha(c, alpha))
			dc.DrawRectangle(0, 0, box.Width, box.Height)
			dc.Fill()
			return
		}
	}
	for y := 0.0; y < box.Height; y += checkerSize {
		for x := 0.0; x < box.Width; x += checkerSize {
			c := placeholderLight
			if int(x/checkerSize+y/checkerSize)%2 == 1 {
				c = placeholderDark
			}
			dc.SetColor(withAlpha(c, alpha))
			dc.DrawRectangle(x, y, min(checkerSize, box.Width-x), min(checkerSize, box.Height-y))
			dc.Fill()
		}
	}
}

func drawBorder(dc *gg.Context, el *story.Element, alpha float64) {
	b := el.Border
	if b == nil || b.Color == nil {
		return
	}
	width := max(b.Left, b.Top, b.Right, b.Bottom)
	if width <= 0 {
		return
	}
	dc.SetColor(withAlpha(toRGBA(*b.Color), alpha))
	dc.SetLineWidth(width)
	drawShape(dc, el, Rect{Width: el.Width, Height: el.Height})
	dc.Stroke()
}

func (r *Rasterizer) drawText(dc *gg.Context, el *story.Element, alpha float64) error {
	content := strip.StripTags(el.Content)
	if content == "" {
		return nil
	}
	f, err := r.loadFont()
	if err != nil {
		return err
	}
	size := el.FontSize
	if size <= 0 {
		size = 16
	}
	face := truetype.NewFace(f, &truetype.Options{
		Size:    size * r.scale(),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	defer face.Close()

	dc.SetFontFace(face)
	dc.SetColor(withAlpha(color.Black, alpha))
	dc.DrawStringWrapped(content, 0, 0, 0, 0, el.Width, 1.2, gg.AlignLeft)
	return nil
}

func (r *Rasterizer) loadFont() (*truetype.Font, error) {
	r.fontOnce.Do(func() {
		r.font, r.fontErr = truetype.Parse(goregular.TTF)
		if r.fontErr != nil {
			r.fontErr = fmt.Errorf("parse font: %w", r.fontErr)
		}
	})
	return r.font, r.fontErr
}

// fillPattern sets the fill style for a solid or gradient pattern covering
// box in the current coordinate space.
func fillPattern(dc *gg.Context, p *story.Pattern, alpha float64, box Rect) {
	if p.Alpha != nil {
		alpha *= *p.Alpha
	}
	switch p.Type {
	case "linear":
		angle := p.Rotation * 2 * math.Pi
		cx, cy := box.X+box.Width/2, box.Y+box.Height/2
		dx, dy := math.Sin(angle)*box.Height/2, -math.Cos(angle)*box.Height/2
		x0, y0 := dc.TransformPoint(cx-dx, cy-dy)
		x1, y1 := dc.TransformPoint(cx+dx, cy+dy)
		g := gg.NewLinearGradient(x0, y0, x1, y1)
		addStops(g, p.Stops, alpha)
		dc.SetFillStyle(g)
	case "radial":
		cx, cy := dc.TransformPoint(box.X+box.Width/2, box.Y+box.Height/2)
		ex, ey := dc.TransformPoint(box.X+box.Width, box.Y+box.Height/2)
		g := gg.NewRadialGradient(cx, cy, 0, cx, cy, math.Hypot(ex-cx, ey-cy))
		addStops(g, p.Stops, alpha)
		dc.SetFillStyle(g)
	default:
		c := color.Color(color.Transparent)
		if p.Color != nil {
			c = withAlpha(toRGBA(*p.Color), alpha)
		}
		dc.SetColor(c)
	}
}

func addStops(g gg.Gradient, stops []story.GradientStop, alpha float64) {
	for _, s := range stops {
		g.AddColorStop(s.Position, withAlpha(toRGBA(s.Color), alpha))
	}
}

func opacity(el *story.Element) float64 {
	return math.Max(0, math.Min(el.Opacity, 100)) / 100
}

func toRGBA(c story.Color) color.NRGBA {
	a := 1.0
	if c.A != nil {
		a = *c.A
	}
	return color.NRGBA{R: clampByte(c.R), G: clampByte(c.G), B: clampByte(c.B), A: uint8(math.Round(math.Max(0, math.Min(a, 1)) * 255))}
}

func clampByte(v int) uint8 {
	return uint8(max(0, min(v, 255)))
}

func withAlpha(c color.Color, alpha float64) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = uint8(math.Round(float64(n.A) * alpha))
	return n
}
