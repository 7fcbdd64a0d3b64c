package reducer

import (
	"slices"

	"github.com/inamate/storyeditor/internal/story"
)

func addPage(s *State, a AddPage) *State {
	if a.Page == nil || len(a.Page.Elements) == 0 {
		return s
	}
	if p, _ := s.PageByID(a.Page.ID); p != nil {
		return s
	}

	at := s.currentPageIndex() + 1
	if a.Position != nil && isInsideRange(*a.Position, 0, len(s.Pages)) {
		at = *a.Position
	}

	next := s.clone()
	next.Pages = slices.Insert(slices.Clone(s.Pages), at, a.Page)
	if !a.SkipSelection {
		next.Current = a.Page.ID
		next.Selection = []string{a.Page.Elements[0].ID}
	} else if s.CurrentPage() == nil {
		next.Current = a.Page.ID
		next.Selection = []string{}
	}
	next.AnimationState = AnimationStateReset
	return next
}

func deletePage(s *State, a DeletePage) *State {
	if len(s.Pages) <= 1 {
		return s
	}
	id := a.PageID
	if id == "" {
		id = s.Current
	}
	_, at := s.PageByID(id)
	if at == -1 {
		return s
	}

	next := s.clone()
	next.Pages = slices.Delete(slices.Clone(s.Pages), at, at+1)
	if s.Current == id {
		next.Current = next.Pages[min(at, len(next.Pages)-1)].ID
	}
	next.Selection = []string{}
	next.AnimationState = AnimationStateReset
	return next
}

func updatePage(s *State, a UpdatePage) *State {
	id := a.PageID
	if id == "" {
		id = s.Current
	}
	page, at := s.PageByID(id)
	if page == nil {
		return s
	}
	updated, ok := story.ApplyPageProperties(page, a.Properties)
	if !ok {
		return s
	}
	return s.withPage(at, updated)
}

func arrangePage(s *State, a ArrangePage) *State {
	if len(s.Pages) <= 1 {
		return s
	}
	_, at := s.PageByID(a.PageID)
	if at == -1 {
		return s
	}
	if !isInsideRange(a.Position, 0, len(s.Pages)-1) || at == a.Position {
		return s
	}
	next := s.clone()
	next.Pages = moveArrayElement(s.Pages, at, a.Position)
	return next
}

func setCurrentPage(s *State, a SetCurrentPage) *State {
	if p, _ := s.PageByID(a.PageID); p == nil {
		return s
	}
	if s.Current == a.PageID && len(s.Selection) == 0 {
		return s
	}
	next := s.clone()
	next.Current = a.PageID
	next.Selection = []string{}
	next.AnimationState = AnimationStateReset
	return next
}

// copyPage returns a shallow copy of p for a reducer to replace fields on.
func copyPage(p *story.Page) *story.Page {
	c := *p
	return &c
}

// defaultBackgroundOf returns the element that replaces a removed custom
// background.
func defaultBackgroundOf(p *story.Page) *story.Element {
	if p.DefaultBackgroundElement != nil {
		return p.DefaultBackgroundElement
	}
	return story.NewDefaultBackground()
}
