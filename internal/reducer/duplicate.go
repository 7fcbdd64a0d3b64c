package reducer

import (
	"slices"

	"github.com/inamate/storyeditor/internal/story"
	"github.com/inamate/storyeditor/internal/typeid"
)

const duplicateOffset = 10

// duplicateDelta returns the smallest multiple of duplicateOffset that puts
// none of els on an origin already used by an element of the page.
func duplicateDelta(page []*story.Element, els []*story.Element) float64 {
	taken := func(x, y float64) bool {
		return slices.ContainsFunc(page, func(e *story.Element) bool { return e.X == x && e.Y == y })
	}
	d := float64(duplicateOffset)
	for range 100 {
		if !slices.ContainsFunc(els, func(el *story.Element) bool { return taken(el.X+d, el.Y+d) }) {
			break
		}
		d += duplicateOffset
	}
	return d
}

// duplicateElement copies el with a fresh id shifted by delta, along with
// copies of the animations that target it.
func duplicateElement(el *story.Element, anims []*story.Animation, delta float64) (*story.Element, []*story.Animation) {
	dup := story.CloneElement(el)
	dup.ID = typeid.NewElementID()
	dup.X += delta
	dup.Y += delta

	var dupAnims []*story.Animation
	for _, a := range anims {
		if !a.HasTarget(el.ID) {
			continue
		}
		c := story.CloneAnimation(a)
		c.ID = typeid.NewAnimationID()
		c.Targets = []string{dup.ID}
		dupAnims = append(dupAnims, c)
	}
	return dup, dupAnims
}

func duplicateElementsByID(s *State, a DuplicateElementsByID) *State {
	page, at := s.PageByID(s.Current)
	if page == nil || len(a.ElementIDs) == 0 {
		return s
	}

	elements := slices.Clone(page.Elements)
	animations := slices.Clone(page.Animations)
	var added []string
	for _, id := range uniqueIDs(a.ElementIDs) {
		pos := slices.IndexFunc(elements, func(el *story.Element) bool { return el.ID == id })
		if pos == -1 {
			continue
		}
		el := elements[pos]
		if pos == 0 || el.IsBackground || el.Type == story.ElementTypeProduct {
			continue
		}
		dup, dupAnims := duplicateElement(el, page.Animations, duplicateDelta(elements, []*story.Element{el}))
		elements = slices.Insert(elements, pos+1, dup)
		animations = append(animations, dupAnims...)
		added = append(added, dup.ID)
	}
	if len(added) == 0 {
		return s
	}

	updated := copyPage(page)
	updated.Elements = elements
	updated.Animations = animations
	next := s.withPage(at, updated)
	next.Selection = added
	return next
}
