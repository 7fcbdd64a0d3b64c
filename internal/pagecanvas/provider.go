package pagecanvas

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"reflect"
	"sync"

	"github.com/inamate/storyeditor/internal/contrast"
	"github.com/inamate/storyeditor/internal/idlequeue"
	"github.com/inamate/storyeditor/internal/render"
	"github.com/inamate/storyeditor/internal/story"
)

var (
	// ErrNoCanvas means no rendering of the page is available yet. A
	// generation has been queued if one could be.
	ErrNoCanvas = errors.New("page canvas not available")
	ErrNoRegion = errors.New("element lies outside the page")
)

const pageTaskPrefix = "page-canvas:"

// Renderer draws a page, leaving out the elements in exclude.
type Renderer interface {
	RenderPage(ctx context.Context, page *story.Page, exclude []string) (image.Image, error)
}

// ColorCalculator picks text colours for a rendered region.
type ColorCalculator func(img image.Image, fontSize float64) contrast.Result

// Provider owns the page canvas map and the selection snapshot and keeps
// them in step with page edits.
type Provider struct {
	renderer Renderer
	queue    *idlequeue.Queue
	colors   ColorCalculator
	logger   *slog.Logger

	mu       sync.Mutex
	canvases CanvasMap
	epochs   map[string]uint64
	snapshot *Snapshot
}

type Option func(*Provider)

func WithColorCalculator(fn ColorCalculator) Option {
	return func(p *Provider) { p.colors = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

func NewProvider(r Renderer, q *idlequeue.Queue, opts ...Option) *Provider {
	p := &Provider{
		renderer: r,
		queue:    q,
		colors:   contrast.AccessibleTextColors,
		logger:   slog.Default(),
		canvases: CanvasMap{},
		epochs:   map[string]uint64{},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Canvases returns the current canvas map. The map must not be modified.
func (p *Provider) Canvases() CanvasMap {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.canvases
}

// GetCanvas returns the cached canvas for pageID. ok is true for recorded
// failures too, in which case the image is nil.
func (p *Provider) GetCanvas(pageID string) (image.Image, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.canvases[pageID]
	return c, ok
}

// QueuePageCanvas schedules an idle-time rendering of page unless the map
// already has an entry for it. Queueing the same page again replaces the
// pending request.
func (p *Provider) QueuePageCanvas(page *story.Page) idlequeue.CancelFunc {
	p.mu.Lock()
	_, done := p.canvases[page.ID]
	epoch := p.epochs[page.ID]
	p.mu.Unlock()
	if done {
		return func() {}
	}

	return p.queue.Enqueue(pageTaskPrefix+page.ID, func(ctx context.Context) error {
		_, err := p.generate(ctx, page, epoch)
		if err != nil && ctx.Err() == nil {
			p.logger.Warn("page canvas generation failed", "page", page.ID, "error", err)
		}
		return nil
	})
}

// GenerateNow renders page on the calling goroutine and stores the result
// the same way an idle task would.
func (p *Provider) GenerateNow(ctx context.Context, page *story.Page) (image.Image, error) {
	p.mu.Lock()
	epoch := p.epochs[page.ID]
	p.mu.Unlock()
	return p.generate(ctx, page, epoch)
}

// generate renders page and records the outcome unless the page was
// invalidated after epoch was read. Failures are stored as nil.
func (p *Provider) generate(ctx context.Context, page *story.Page, epoch uint64) (image.Image, error) {
	img, err := p.renderer.RenderPage(ctx, page, nil)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err != nil {
		err = fmt.Errorf("render page %s: %w", page.ID, err)
		img = nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.epochs[page.ID] == epoch {
		p.canvases = SetPageCanvas(p.canvases, page.ID, img)
	}
	return img, err
}

// GetSelectionExclusionCanvas renders page without the selected elements,
// reusing the snapshot while it still matches.
func (p *Provider) GetSelectionExclusionCanvas(ctx context.Context, page *story.Page, selection []string) (image.Image, error) {
	p.mu.Lock()
	if snap := p.snapshot; snap.Matches(page, selection) {
		p.mu.Unlock()
		return snap.Canvas, nil
	}
	p.mu.Unlock()

	img, err := p.renderer.RenderPage(ctx, page, selection)
	if err != nil {
		return nil, fmt.Errorf("render page %s: %w", page.ID, err)
	}

	p.mu.Lock()
	p.snapshot = &Snapshot{
		PageID:          page.ID,
		BackgroundColor: page.BackgroundColor,
		Elements:        remaining(page.Elements, selection),
		Canvas:          img,
	}
	p.mu.Unlock()
	return img, nil
}

// CalculateAccessibleTextColors picks text colours for el from what lies
// beneath it. A sole selected element is measured against the page without
// itself; anything else uses the cached page canvas.
func (p *Provider) CalculateAccessibleTextColors(ctx context.Context, page *story.Page, el *story.Element, selection []string) (contrast.Result, error) {
	var canvas image.Image
	if len(selection) == 1 && selection[0] == el.ID {
		c, err := p.GetSelectionExclusionCanvas(ctx, page, selection)
		if err != nil {
			return contrast.Result{}, err
		}
		canvas = c
	} else {
		c, ok := p.GetCanvas(page.ID)
		if !ok {
			p.QueuePageCanvas(page)
		}
		if c == nil {
			return contrast.Result{}, ErrNoCanvas
		}
		canvas = c
	}

	region := elementRegion(canvas.Bounds(), el)
	if region.Empty() {
		return contrast.Result{}, ErrNoRegion
	}
	return p.colors(subImage(canvas, region), el.FontSize), nil
}

// Validate drops canvases of pages that were removed or changed in anything
// but their animations.
func (p *Provider) Validate(prev, next []*story.Page) {
	byID := make(map[string]*story.Page, len(next))
	for _, pg := range next {
		byID[pg.ID] = pg
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, old := range prev {
		cur, ok := byID[old.ID]
		if ok && (cur == old || equalIgnoringAnimations(old, cur)) {
			continue
		}
		p.canvases = ClearPageCanvas(p.canvases, old.ID)
		p.epochs[old.ID]++
	}
}

func equalIgnoringAnimations(a, b *story.Page) bool {
	ca, cb := *a, *b
	ca.Animations, cb.Animations = nil, nil
	return reflect.DeepEqual(ca, cb)
}

// elementRegion maps el's page-space bounds onto canvas pixels.
func elementRegion(canvas image.Rectangle, el *story.Element) image.Rectangle {
	b := render.ElementBounds(el)
	sx := float64(canvas.Dx()) / story.PageWidth
	sy := float64(canvas.Dy()) / story.PageHeight
	r := image.Rect(
		int(math.Floor(b.X*sx)),
		int(math.Floor(b.Y*sy)),
		int(math.Ceil((b.X+b.Width)*sx)),
		int(math.Ceil((b.Y+b.Height)*sy)),
	).Add(canvas.Min)
	return r.Intersect(canvas)
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func subImage(img image.Image, r image.Rectangle) image.Image {
	if s, ok := img.(subImager); ok {
		return s.SubImage(r)
	}
	rgba := image.NewRGBA(r)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba
}
