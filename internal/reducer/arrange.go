package reducer

import (
	"slices"

	"github.com/inamate/storyeditor/internal/story"
)

func arrangeElement(s *State, a ArrangeElement) *State {
	page, at := s.PageByID(s.Current)
	if page == nil || len(page.Elements) < 3 {
		return s
	}
	id := a.ElementID
	if id == "" {
		if len(s.Selection) != 1 {
			return s
		}
		id = s.Selection[0]
	}
	el, cur := page.ElementByID(id)
	if el == nil || cur == 0 || el.IsBackground {
		return s
	}

	to := resolvePosition(a.Position, cur, 1, len(page.Elements)-1)
	regroup := a.GroupID != nil && *a.GroupID != el.GroupID
	if regroup && *a.GroupID != "" {
		if _, ok := page.Groups[*a.GroupID]; !ok {
			regroup = false
		}
	}
	if to == cur && !regroup {
		return s
	}

	elements := moveArrayElement(page.Elements, cur, to)
	if regroup {
		moved := *el
		moved.GroupID = *a.GroupID
		elements[to] = &moved
	}
	updated := copyPage(page)
	updated.Elements = elements
	return s.withPage(at, updated)
}

// arrangeGroup moves a group's contiguous block of elements. Positions count
// slots between the non-member elements, and a slot inside another group is
// snapped to that group's edge so groups never interleave.
func arrangeGroup(s *State, a ArrangeGroup) *State {
	page, at := s.PageByID(s.Current)
	if page == nil || len(page.Elements) < 3 || a.GroupID == "" {
		return s
	}

	var block, others []*story.Element
	cur := -1
	for _, el := range page.Elements {
		if el.GroupID == a.GroupID {
			if cur == -1 {
				cur = len(others)
			}
			block = append(block, el)
			continue
		}
		others = append(others, el)
	}
	// the background never moves
	if len(block) == 0 || cur < 1 {
		return s
	}

	m := len(others)
	boundary := func(k int) bool {
		if k == m {
			return true
		}
		prev, next := others[k-1].GroupID, others[k].GroupID
		return prev == "" || prev != next
	}

	var to int
	switch a.Position {
	case Forward:
		to = cur
		for k := cur + 1; k <= m; k++ {
			if boundary(k) {
				to = k
				break
			}
		}
	case Backward:
		to = cur
		for k := cur - 1; k >= 1; k-- {
			if boundary(k) {
				to = k
				break
			}
		}
	default:
		to = resolvePosition(a.Position, cur, 1, m)
		for to > 1 && !boundary(to) {
			if to > cur {
				to++
			} else {
				to--
			}
		}
	}
	if to == cur {
		return s
	}

	updated := copyPage(page)
	updated.Elements = slices.Concat(others[:to], block, others[to:])
	return s.withPage(at, updated)
}
