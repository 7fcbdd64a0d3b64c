package reducer

import (
	"slices"

	"github.com/inamate/storyeditor/internal/story"
	"github.com/inamate/storyeditor/internal/typeid"
)

// Properties carried from the dropped element onto the target.
var (
	combineMediaKeys      = []string{"type", "resource", "scale", "focalX", "focalY", "tracks"}
	combineBackgroundKeys = []string{"flip", "overlay", "x", "y", "width", "height", "rotationAngle"}
	combineForegroundKeys = []string{"link", "border", "borderRadius"}
)

func combineElements(s *State, a CombineElements) *State {
	if a.FirstElement == nil || a.SecondID == "" || a.FirstElement.ID == a.SecondID {
		return s
	}
	page, at := s.PageByID(s.Current)
	if page == nil {
		return s
	}
	second, pos := page.ElementByID(a.SecondID)
	if second == nil {
		return s
	}
	// the background can be a target but never the dropped element
	if page.Background().ID == a.FirstElement.ID {
		return s
	}

	keys := slices.Clone(combineMediaKeys)
	if second.IsBackground {
		keys = append(keys, combineBackgroundKeys...)
	} else {
		keys = append(keys, combineForegroundKeys...)
	}
	merged, ok := story.ApplyElementProperties(second, story.PickElementProperties(a.FirstElement, keys...))
	if !ok {
		merged = story.CloneElement(second)
	}

	updated := copyPage(page)
	if second.IsDefaultBackground {
		def := story.CloneElement(second)
		def.ID = typeid.NewElementID()
		updated.DefaultBackgroundElement = def
		merged.IsDefaultBackground = false
	}

	elements := slices.Clone(page.Elements)
	elements[pos] = merged
	elements = slices.DeleteFunc(elements, func(el *story.Element) bool { return el.ID == a.FirstElement.ID })
	updated.Elements = elements

	drop := []string{a.FirstElement.ID}
	if a.DiscardAnimations {
		drop = append(drop, a.SecondID)
	}
	updated.Animations = dropAnimationsTargeting(page.Animations, drop...)

	next := s.withPage(at, updated)
	next.Selection = []string{a.SecondID}
	return next
}
