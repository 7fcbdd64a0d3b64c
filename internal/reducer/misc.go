package reducer

import (
	"slices"

	"github.com/inamate/storyeditor/internal/story"
)

// CopyableStyleKeys are the element properties captured by
// CopySelectedElement and pasted back by the editor.
var CopyableStyleKeys = []string{
	"backgroundColor",
	"backgroundTextMode",
	"border",
	"borderRadius",
	"font",
	"fontSize",
	"fontWeight",
	"lineHeight",
	"letterSpacing",
	"opacity",
	"overlay",
	"padding",
	"textAlign",
}

func copySelectedElement(s *State) *State {
	if len(s.Selection) != 1 {
		return s
	}
	page := s.CurrentPage()
	if page == nil {
		return s
	}
	el, _ := page.ElementByID(s.Selection[0])
	if el == nil {
		return s
	}

	var anims []*story.Animation
	for _, a := range page.Animations {
		if a.HasTarget(el.ID) {
			anims = append(anims, story.CloneAnimation(a))
		}
	}
	next := s.clone()
	next.CopiedElementState = &CopiedElementState{
		ElementID:  el.ID,
		Type:       el.Type,
		Styles:     story.PickElementProperties(el, CopyableStyleKeys...),
		Animations: anims,
	}
	return next
}

func addAnimations(s *State, a AddAnimations) *State {
	page, at := s.PageByID(s.Current)
	if page == nil {
		return s
	}
	seen := make(map[string]bool, len(page.Animations)+len(a.Animations))
	for _, anim := range page.Animations {
		seen[anim.ID] = true
	}
	var added []*story.Animation
	for _, anim := range a.Animations {
		if anim == nil || anim.ID == "" || seen[anim.ID] {
			continue
		}
		seen[anim.ID] = true
		added = append(added, anim)
	}
	if len(added) == 0 {
		return s
	}
	updated := copyPage(page)
	updated.Animations = slices.Concat(page.Animations, added)
	return s.withPage(at, updated)
}

func updateStory(s *State, a UpdateStory) *State {
	updated, ok := story.ApplyStoryProperties(s.Story, a.Properties.Resolve(s.Story))
	if !ok {
		return s
	}
	next := s.clone()
	next.Story = updated
	return next
}

func updateAnimationState(s *State, a UpdateAnimationState) *State {
	if a.AnimationState == "" || a.AnimationState == s.AnimationState {
		return s
	}
	next := s.clone()
	next.AnimationState = a.AnimationState
	return next
}

func restore(s *State, a Restore) *State {
	pages := repairPages(a.Pages)
	if len(pages) == 0 {
		return s
	}
	next := &State{
		Pages:              pages,
		Current:            a.Current,
		Selection:          a.Selection,
		Story:              a.Story,
		AnimationState:     AnimationStateReset,
		Capabilities:       a.Capabilities,
		CopiedElementState: s.CopiedElementState,
	}
	if p, _ := next.PageByID(next.Current); p == nil {
		next.Current = next.Pages[0].ID
	}
	if next.Selection == nil {
		next.Selection = []string{}
	} else {
		next.Selection = uniqueIDs(next.Selection)
	}
	if next.Story == nil {
		next.Story = &story.Story{}
	}
	if next.Capabilities == nil {
		next.Capabilities = map[string]bool{}
	}
	return next
}

// repairPages returns pages itself when every page has a background, and
// otherwise a copy where empty pages get a default background.
func repairPages(pages []*story.Page) []*story.Page {
	if !slices.ContainsFunc(pages, func(p *story.Page) bool { return p == nil || len(p.Elements) == 0 }) {
		return pages
	}
	out := make([]*story.Page, 0, len(pages))
	for _, p := range pages {
		if p == nil {
			continue
		}
		if len(p.Elements) == 0 {
			fixed := copyPage(p)
			fixed.Elements = []*story.Element{defaultBackgroundOf(p)}
			p = fixed
		}
		out = append(out, p)
	}
	return out
}
