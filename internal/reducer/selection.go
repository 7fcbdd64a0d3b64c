package reducer

import (
	"slices"

	"github.com/inamate/storyeditor/internal/story"
)

func setSelectedElements(s *State, a SetSelectedElements) *State {
	ids := a.ElementIDs
	if a.Updater != nil {
		ids = a.Updater(slices.Clone(s.Selection))
	}
	if ids == nil {
		return s
	}
	ids = uniqueIDs(ids)

	page := s.CurrentPage()
	if a.WithLinked {
		ids = withLinked(page, ids)
	}
	ids = filterMultiSelection(page, ids)
	if sameSet(s.Selection, ids) {
		return s
	}
	next := s.clone()
	next.Selection = ids
	return next
}

// filterMultiSelection drops the background from any multi-selection, and
// locked elements and video placeholders unless every selected element is in
// the same group.
func filterMultiSelection(page *story.Page, ids []string) []string {
	if len(ids) <= 1 || page == nil {
		return ids
	}
	group := ""
	sameGroup := true
	for i, id := range ids {
		el, _ := page.ElementByID(id)
		g := ""
		if el != nil {
			g = el.GroupID
		}
		if i == 0 {
			group = g
		}
		if g == "" || g != group {
			sameGroup = false
		}
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		el, pos := page.ElementByID(id)
		if el != nil {
			if el.IsBackground || pos == 0 {
				continue
			}
			if !sameGroup && (el.IsLocked || story.IsVideoPlaceholder(el)) {
				continue
			}
		}
		out = append(out, id)
	}
	return out
}

// withLinked appends the other members of every group touched by ids.
func withLinked(page *story.Page, ids []string) []string {
	if page == nil {
		return ids
	}
	var groups []string
	for _, id := range ids {
		if el, _ := page.ElementByID(id); el != nil && el.GroupID != "" {
			groups = append(groups, el.GroupID)
		}
	}
	if len(groups) == 0 {
		return ids
	}
	out := slices.Clone(ids)
	for _, el := range page.Elements {
		if slices.Contains(groups, el.GroupID) && !slices.Contains(out, el.ID) {
			out = append(out, el.ID)
		}
	}
	return out
}

// selectsAlone reports whether selecting el replaces the whole selection.
func selectsAlone(page *story.Page, el *story.Element) bool {
	if el == nil {
		return false
	}
	return el.IsBackground || page.Background() == el || el.IsLocked || story.IsVideoPlaceholder(el)
}

func selectElement(s *State, a SelectElement) *State {
	if a.ElementID == "" || slices.Contains(s.Selection, a.ElementID) {
		return s
	}
	page := s.CurrentPage()
	var el *story.Element
	if page != nil {
		el, _ = page.ElementByID(a.ElementID)
	}

	if selectsAlone(page, el) || len(s.Selection) == 0 {
		sel := []string{a.ElementID}
		if a.WithLinked && !selectsAlone(page, el) {
			sel = filterMultiSelection(page, withLinked(page, sel))
		}
		return s.withSelection(sel)
	}

	sel := make([]string, 0, len(s.Selection)+1)
	for _, id := range s.Selection {
		if page != nil {
			if other, _ := page.ElementByID(id); selectsAlone(page, other) {
				continue
			}
		}
		sel = append(sel, id)
	}
	sel = append(sel, a.ElementID)
	if a.WithLinked {
		sel = withLinked(page, sel)
	}
	return s.withSelection(filterMultiSelection(page, sel))
}

func unselectElement(s *State, a UnselectElement) *State {
	if !slices.Contains(s.Selection, a.ElementID) {
		return s
	}
	remove := []string{a.ElementID}
	if a.WithLinked {
		remove = withLinked(s.CurrentPage(), remove)
	}
	return s.withSelection(without(s.Selection, remove))
}

func toggleElementInSelection(s *State, a ToggleElementInSelection) *State {
	if slices.Contains(s.Selection, a.ElementID) {
		return unselectElement(s, UnselectElement{ElementID: a.ElementID, WithLinked: a.WithLinked})
	}
	return selectElement(s, SelectElement{ElementID: a.ElementID, WithLinked: a.WithLinked})
}

// toggleLayer handles a click in the layer panel: meta toggles, shift selects
// the range from the first selected element to the clicked one.
func toggleLayer(s *State, a ToggleLayer) *State {
	if a.ElementID == "" {
		return s
	}
	if a.MetaKey {
		return toggleElementInSelection(s, ToggleElementInSelection{ElementID: a.ElementID, WithLinked: a.WithLinked})
	}
	page := s.CurrentPage()
	if a.ShiftKey && page != nil && len(s.Selection) > 0 {
		ids := elementIDs(page.Elements)
		anchor := slices.Index(ids, s.Selection[0])
		clicked := slices.Index(ids, a.ElementID)
		if anchor != -1 && clicked != -1 {
			span := slices.Clone(ids[min(anchor, clicked) : max(anchor, clicked)+1])
			if clicked < anchor {
				slices.Reverse(span)
			}
			return setSelectedElements(s, SetSelectedElements{ElementIDs: span, WithLinked: a.WithLinked})
		}
	}
	return setSelectedElements(s, SetSelectedElements{ElementIDs: []string{a.ElementID}, WithLinked: a.WithLinked})
}
