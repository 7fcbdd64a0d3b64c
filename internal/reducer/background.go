package reducer

import (
	"slices"

	"github.com/inamate/storyeditor/internal/story"
)

func setBackgroundElement(s *State, a SetBackgroundElement) *State {
	page, at := s.PageByID(s.Current)
	if page == nil || len(page.Elements) == 0 {
		return s
	}
	bg := page.Elements[0]

	if a.ElementID == "" {
		if bg.IsDefaultBackground {
			return s
		}
		updated := copyPage(page)
		updated.Elements = slices.Concat([]*story.Element{defaultBackgroundOf(page)}, page.Elements[1:])
		updated.Animations = dropAnimationsTargeting(page.Animations, bg.ID)
		next := s.withPage(at, updated)
		next.Selection = without(s.Selection, []string{bg.ID})
		return next
	}

	el, pos := page.ElementByID(a.ElementID)
	if el == nil || pos == 0 {
		return s
	}

	updated := copyPage(page)
	if bg.IsDefaultBackground {
		updated.DefaultBackgroundElement = bg
	}

	promoted := *el
	promoted.IsBackground = true
	promoted.Opacity = 100
	promoted.IsHidden = false
	promoted.GroupID = ""

	rest := make([]*story.Element, 0, len(page.Elements)-1)
	for _, e := range page.Elements[1:] {
		if e.ID != el.ID {
			rest = append(rest, e)
		}
	}
	updated.Elements = slices.Concat([]*story.Element{&promoted}, rest)
	updated.Animations = dropAnimationsTargeting(page.Animations, bg.ID, el.ID)

	next := s.withPage(at, updated)
	sel := without(s.Selection, []string{bg.ID})
	if len(sel) > 1 && slices.Contains(sel, el.ID) {
		sel = []string{el.ID}
	}
	next.Selection = sel
	return next
}
