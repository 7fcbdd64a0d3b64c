// Package pagecanvas caches rendered page images for contrast checks and
// selection-excluded previews.
package pagecanvas

import (
	"image"
	"maps"
	"slices"

	"github.com/inamate/storyeditor/internal/story"
)

// CanvasMap holds one rendered image per page id. A nil image records that
// rendering failed and must not be retried until the page changes.
type CanvasMap map[string]image.Image

// SetPageCanvas returns a copy of m with the canvas for pageID replaced.
func SetPageCanvas(m CanvasMap, pageID string, canvas image.Image) CanvasMap {
	next := maps.Clone(m)
	if next == nil {
		next = CanvasMap{}
	}
	next[pageID] = canvas
	return next
}

// ClearPageCanvas returns m without pageID, or m itself when there was
// nothing to clear.
func ClearPageCanvas(m CanvasMap, pageID string) CanvasMap {
	if _, ok := m[pageID]; !ok {
		return m
	}
	next := maps.Clone(m)
	delete(next, pageID)
	return next
}

// Snapshot is the single cached selection-excluded rendering. It is reusable
// while the page keeps the same background colour and the same remaining
// elements.
type Snapshot struct {
	PageID          string
	BackgroundColor *story.Pattern
	Elements        []*story.Element
	Canvas          image.Image
}

// Matches reports whether the snapshot still depicts page without the
// elements in exclude.
func (s *Snapshot) Matches(page *story.Page, exclude []string) bool {
	if s == nil || page == nil || s.PageID != page.ID || s.BackgroundColor != page.BackgroundColor {
		return false
	}
	return slices.Equal(s.Elements, remaining(page.Elements, exclude))
}

func remaining(els []*story.Element, exclude []string) []*story.Element {
	out := make([]*story.Element, 0, len(els))
	for _, el := range els {
		if !slices.Contains(exclude, el.ID) {
			out = append(out, el)
		}
	}
	return out
}
