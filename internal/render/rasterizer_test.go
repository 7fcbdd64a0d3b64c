package render

import (
	"context"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/storyeditor/internal/story"
)

func solid(r, g, b int) *story.Pattern {
	return &story.Pattern{Type: "solid", Color: &story.Color{R: r, G: g, B: b}}
}

func rgbaAt(t *testing.T, img interface {
	At(x, y int) color.Color
}, x, y int) color.RGBA {
	t.Helper()
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestElementBoundsWithRotation(t *testing.T) {
	el := &story.Element{X: 0, Y: 0, Width: 100, Height: 20, RotationAngle: 90}
	b := ElementBounds(el)
	assert.InDelta(t, 40, b.X, 1e-9)
	assert.InDelta(t, -40, b.Y, 1e-9)
	assert.InDelta(t, 20, b.Width, 1e-9)
	assert.InDelta(t, 100, b.Height, 1e-9)

	flat := ElementBounds(&story.Element{X: 5, Y: 6, Width: 7, Height: 8, Flip: &story.Flip{Horizontal: true}})
	assert.InDelta(t, 5, flat.X, 1e-9)
	assert.InDelta(t, 6, flat.Y, 1e-9)
	assert.InDelta(t, 7, flat.Width, 1e-9)
}

func TestRenderPageBackgroundAndExclusion(t *testing.T) {
	r := NewRasterizer(0.5)
	w, h := r.Size()
	assert.Equal(t, 206, w)
	assert.Equal(t, 309, h)

	page := &story.Page{
		ID:              "p",
		BackgroundColor: solid(255, 0, 0),
		Elements: []*story.Element{
			{ID: "bg", Type: story.ElementTypeShape, IsBackground: true, Opacity: 0, Width: story.PageWidth, Height: story.PageHeight},
			{ID: "box", Type: story.ElementTypeShape, Opacity: 100, X: 100, Y: 100, Width: 200, Height: 200, BackgroundColor: solid(0, 0, 255)},
		},
	}

	img, err := r.RenderPage(context.Background(), page, nil)
	require.NoError(t, err)
	assert.Equal(t, w, img.Bounds().Dx())
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgbaAt(t, img, 5, 5))
	assert.Equal(t, color.RGBA{B: 255, A: 255}, rgbaAt(t, img, 100, 100))

	without, err := r.RenderPage(context.Background(), page, []string{"box"})
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, rgbaAt(t, without, 100, 100))
}

func TestRenderPageHonoursContextAndNil(t *testing.T) {
	r := NewRasterizer(1)
	_, err := r.RenderPage(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrNoPage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.RenderPage(ctx, story.NewPage(), nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRenderTextAndMedia(t *testing.T) {
	r := NewRasterizer(1)
	page := &story.Page{
		ID: "p",
		Elements: []*story.Element{
			{ID: "img", Type: story.ElementTypeImage, Opacity: 100, Width: 50, Height: 50, Resource: &story.Resource{BaseColor: "#00ff00"}},
			{ID: "txt", Type: story.ElementTypeText, Opacity: 100, X: 60, Width: 200, Height: 40, FontSize: 20, Content: "<span>Hello</span>"},
			{ID: "vid", Type: story.ElementTypeVideo, Opacity: 100, Y: 100, Width: 40, Height: 40, Resource: &story.Resource{}},
		},
	}
	img, err := r.RenderPage(context.Background(), page, nil)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{G: 255, A: 255}, rgbaAt(t, img, 25, 25))
	assert.NotEqual(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}, rgbaAt(t, img, 5, 105), "placeholder checkerboard")
}
