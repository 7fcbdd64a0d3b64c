package reducer

import (
	"encoding/json"
	"slices"

	"github.com/inamate/storyeditor/internal/story"
)

func addElements(s *State, a AddElements) *State {
	pageID := a.PageID
	if pageID == "" {
		pageID = s.Current
	}
	page, at := s.PageByID(pageID)
	if page == nil {
		return s
	}

	candidates := exclusion(page.Elements, a.Elements)

	existingProducts := productIDs(page.Elements)
	var newProducts []*story.Element
	seen := map[string]bool{}
	for _, el := range candidates {
		if el.Type != story.ElementTypeProduct {
			continue
		}
		pid := productID(el)
		if slices.Contains(existingProducts, pid) || seen[pid] {
			continue
		}
		seen[pid] = true
		newProducts = append(newProducts, el)
	}
	if len(existingProducts)+len(newProducts) > story.MaxProductsPerPage {
		newProducts = nil
	}

	added := make([]*story.Element, 0, len(candidates))
	for _, el := range candidates {
		if el.Type == story.ElementTypeProduct && !slices.Contains(newProducts, el) {
			continue
		}
		added = append(added, el)
	}
	if len(added) == 0 {
		return s
	}

	updated := copyPage(page)
	updated.Elements = slices.Concat(page.Elements, added)
	next := s.withPage(at, updated)
	if !a.SkipSelection && page.ID == s.Current {
		next.Selection = elementIDs(added)
	}
	return next
}

func productID(el *story.Element) string {
	if el.Product == nil {
		return ""
	}
	return el.Product.ProductID
}

func productIDs(els []*story.Element) []string {
	var ids []string
	for _, el := range els {
		if el.Type == story.ElementTypeProduct {
			ids = append(ids, productID(el))
		}
	}
	return ids
}

func deleteElements(s *State, a DeleteElements) *State {
	ids := a.ElementIDs
	if ids == nil {
		ids = s.Selection
	}
	if len(ids) == 0 {
		return s
	}
	page, at := s.PageByID(s.Current)
	if page == nil || len(page.Elements) == 0 {
		return s
	}

	bg := page.Elements[0]
	deletingBackground := slices.Contains(ids, bg.ID)
	valid := ids
	if deletingBackground && bg.IsDefaultBackground {
		valid = without(ids, []string{bg.ID})
	}
	if len(valid) == 0 {
		return s
	}

	remaining := make([]*story.Element, 0, len(page.Elements))
	for _, el := range page.Elements {
		if !slices.Contains(valid, el.ID) {
			remaining = append(remaining, el)
		}
	}
	if len(remaining) == len(page.Elements) {
		return s
	}
	if deletingBackground && !bg.IsDefaultBackground {
		remaining = slices.Insert(remaining, 0, defaultBackgroundOf(page))
	}

	updated := copyPage(page)
	updated.Elements = remaining
	updated.Animations = removeAnimationsWithElementIDs(page.Animations, valid)
	next := s.withPage(at, updated)
	next.Selection = without(s.Selection, valid)
	return next
}

func updateElements(s *State, a UpdateElements) *State {
	if s.AnimationState.blocksUpdates() {
		return s
	}
	ids := a.ElementIDs
	if ids == nil {
		ids = s.Selection
	}
	if len(ids) == 0 {
		return s
	}
	page, at := s.PageByID(s.Current)
	if page == nil {
		return s
	}

	var elements []*story.Element
	animations := page.Animations
	animationsChanged := false
	for i, el := range page.Elements {
		if !slices.Contains(ids, el.ID) {
			continue
		}
		props := a.Properties.Resolve(el)
		if anim, present := animationFromProperties(props); present {
			// the element itself is left alone
			if anim != nil {
				animations = updateAnimations(animations, anim)
				animationsChanged = true
			}
			continue
		}
		updated, ok := story.ApplyElementProperties(el, props)
		if !ok {
			continue
		}
		if elements == nil {
			elements = slices.Clone(page.Elements)
		}
		elements[i] = updated
	}
	if elements == nil && !animationsChanged {
		return s
	}

	updated := copyPage(page)
	if elements != nil {
		updated.Elements = elements
	}
	updated.Animations = animations
	return s.withPage(at, updated)
}

// animationFromProperties extracts the "animation" entry of an update. The
// second result reports whether the key was present at all; the animation is
// nil when the value could not be read.
func animationFromProperties(props story.Properties) (*story.Animation, bool) {
	v, ok := props["animation"]
	if !ok {
		return nil, false
	}
	if v == nil {
		return nil, true
	}
	var anim *story.Animation
	switch t := v.(type) {
	case *story.Animation:
		anim = t
	case story.Animation:
		anim = &t
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, true
		}
		anim = &story.Animation{}
		if err := json.Unmarshal(data, anim); err != nil {
			return nil, true
		}
	}
	if anim == nil || anim.ID == "" {
		return nil, true
	}
	return anim, true
}

// mapElements applies patch to matching elements on every page and returns s
// itself when nothing changed.
func mapElements(s *State, match func(*story.Element) bool, patch story.ElementPatch) *State {
	var next *State
	for pi, page := range s.Pages {
		var elements []*story.Element
		for i, el := range page.Elements {
			if !match(el) {
				continue
			}
			updated, ok := story.ApplyElementProperties(el, patch.Resolve(el))
			if !ok {
				continue
			}
			if elements == nil {
				elements = slices.Clone(page.Elements)
			}
			elements[i] = updated
		}
		if elements == nil {
			continue
		}
		if next == nil {
			next = s.clone()
			next.Pages = slices.Clone(s.Pages)
		}
		updated := copyPage(page)
		updated.Elements = elements
		next.Pages[pi] = updated
	}
	if next == nil {
		return s
	}
	return next
}

func updateElementsByResourceID(s *State, a UpdateElementsByResourceID) *State {
	if a.ResourceID == "" {
		return s
	}
	return mapElements(s, func(el *story.Element) bool {
		return el.Resource != nil && el.Resource.ID == a.ResourceID
	}, a.Properties)
}

func updateElementsByFontFamily(s *State, a UpdateElementsByFontFamily) *State {
	if a.FontFamily == "" {
		return s
	}
	return mapElements(s, func(el *story.Element) bool {
		return el.Type == story.ElementTypeText && el.Font != nil && el.Font.Family == a.FontFamily
	}, a.Properties)
}

func deleteElementsByResourceID(s *State, a DeleteElementsByResourceID) *State {
	if a.ResourceID == "" {
		return s
	}
	var next *State
	var deleted []string
	for pi, page := range s.Pages {
		var ids []string
		remaining := make([]*story.Element, 0, len(page.Elements))
		for _, el := range page.Elements {
			if el.Resource != nil && el.Resource.ID == a.ResourceID {
				ids = append(ids, el.ID)
				continue
			}
			remaining = append(remaining, el)
		}
		if len(ids) == 0 {
			continue
		}
		if len(page.Elements) > 0 && slices.Contains(ids, page.Elements[0].ID) {
			remaining = slices.Insert(remaining, 0, defaultBackgroundOf(page))
		}
		if next == nil {
			next = s.clone()
			next.Pages = slices.Clone(s.Pages)
		}
		updated := copyPage(page)
		updated.Elements = remaining
		updated.Animations = removeAnimationsWithElementIDs(page.Animations, ids)
		next.Pages[pi] = updated
		deleted = append(deleted, ids...)
	}
	if next == nil {
		return s
	}
	next.Selection = without(s.Selection, deleted)
	return next
}
