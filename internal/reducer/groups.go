package reducer

import (
	"maps"
	"slices"

	"github.com/inamate/storyeditor/internal/story"
	"github.com/inamate/storyeditor/internal/typeid"
)

func withGroups(p *story.Page, fn func(map[string]story.Group)) *story.Page {
	updated := copyPage(p)
	updated.Groups = maps.Clone(p.Groups)
	if updated.Groups == nil {
		updated.Groups = map[string]story.Group{}
	}
	fn(updated.Groups)
	return updated
}

func addGroup(s *State, a AddGroup) *State {
	page, at := s.PageByID(s.Current)
	if page == nil || a.GroupID == "" {
		return s
	}
	if _, ok := page.Groups[a.GroupID]; ok {
		return s
	}
	return s.withPage(at, withGroups(page, func(g map[string]story.Group) {
		g[a.GroupID] = story.Group{Name: a.Name, IsLocked: a.IsLocked}
	}))
}

func updateGroup(s *State, a UpdateGroup) *State {
	page, at := s.PageByID(s.Current)
	if page == nil {
		return s
	}
	group, ok := page.Groups[a.GroupID]
	if !ok {
		return s
	}
	updated, ok := story.ApplyGroupProperties(group, a.Properties)
	if !ok {
		return s
	}
	return s.withPage(at, withGroups(page, func(g map[string]story.Group) {
		g[a.GroupID] = updated
	}))
}

func deleteGroup(s *State, a DeleteGroup) *State {
	page, at := s.PageByID(s.Current)
	if page == nil || a.GroupID == "" {
		return s
	}
	members := groupMembers(page, a.GroupID)
	if _, ok := page.Groups[a.GroupID]; !ok && len(members) == 0 {
		return s
	}

	updated := withGroups(page, func(g map[string]story.Group) { delete(g, a.GroupID) })
	if a.IncludeElements && len(members) > 0 {
		return deleteElements(s.withPage(at, updated), DeleteElements{ElementIDs: members})
	}

	elements := slices.Clone(page.Elements)
	for i, el := range elements {
		if el.GroupID == a.GroupID {
			c := *el
			c.GroupID = ""
			elements[i] = &c
		}
	}
	updated.Elements = elements
	return s.withPage(at, updated)
}

func duplicateGroup(s *State, a DuplicateGroup) *State {
	page, at := s.PageByID(s.Current)
	if page == nil {
		return s
	}
	old, ok := page.Groups[a.OldGroupID]
	if !ok {
		return s
	}
	var members []*story.Element
	for _, el := range page.Elements {
		if el.GroupID == a.OldGroupID {
			if el.IsBackground {
				return s
			}
			members = append(members, el)
		}
	}
	if len(members) == 0 {
		return s
	}

	id := a.GroupID
	if id == "" {
		id = typeid.NewGroupID()
	}
	if _, exists := page.Groups[id]; exists {
		return s
	}
	name := a.Name
	if name == "" {
		name = old.Name + " Copy"
	}

	delta := duplicateDelta(page.Elements, members)
	clones := make([]*story.Element, 0, len(members))
	animations := slices.Clone(page.Animations)
	for _, el := range members {
		dup, dupAnims := duplicateElement(el, page.Animations, delta)
		dup.GroupID = id
		clones = append(clones, dup)
		animations = append(animations, dupAnims...)
	}

	last := lastIndexOfGroup(page, a.OldGroupID)
	updated := withGroups(page, func(g map[string]story.Group) {
		g[id] = story.Group{Name: name, IsLocked: a.IsLocked}
	})
	updated.Elements = slices.Insert(slices.Clone(page.Elements), last+1, clones...)
	updated.Animations = animations
	next := s.withPage(at, updated)
	next.Selection = elementIDs(clones)
	return next
}

func removeElementFromGroup(s *State, a RemoveElementFromGroup) *State {
	page, at := s.PageByID(s.Current)
	if page == nil || a.GroupID == "" {
		return s
	}
	el, pos := page.ElementByID(a.ElementID)
	if el == nil || el.GroupID != a.GroupID {
		return s
	}

	detached := *el
	detached.GroupID = ""
	var elements []*story.Element
	if pos == 0 {
		// the background keeps its slot
		elements = slices.Clone(page.Elements)
		elements[0] = &detached
	} else {
		last := lastIndexOfGroup(page, a.GroupID)
		elements = moveArrayElement(page.Elements, pos, last)
		elements[last] = &detached
	}

	updated := copyPage(page)
	updated.Elements = elements
	if len(groupMembers(updated, a.GroupID)) == 0 {
		updated = withGroups(updated, func(g map[string]story.Group) { delete(g, a.GroupID) })
	}
	return s.withPage(at, updated)
}
