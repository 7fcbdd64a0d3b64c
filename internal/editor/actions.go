package editor

import (
	"github.com/inamate/storyeditor/internal/reducer"
	"github.com/inamate/storyeditor/internal/story"
	"github.com/inamate/storyeditor/internal/typeid"
)

// Pages

func (s *Store) AddPage(page *story.Page, position *int) *reducer.State {
	return s.Dispatch(reducer.AddPage{Page: page, Position: position})
}

func (s *Store) AddPageInBackground(page *story.Page, position *int) *reducer.State {
	return s.Dispatch(reducer.AddPage{Page: page, Position: position, SkipSelection: true})
}

func (s *Store) DeletePageByID(pageID string) *reducer.State {
	return s.Dispatch(reducer.DeletePage{PageID: pageID})
}

func (s *Store) DeleteCurrentPage() *reducer.State {
	return s.Dispatch(reducer.DeletePage{})
}

func (s *Store) UpdatePageProperties(pageID string, props story.Properties) *reducer.State {
	return s.Dispatch(reducer.UpdatePage{PageID: pageID, Properties: props})
}

func (s *Store) UpdateCurrentPageProperties(props story.Properties) *reducer.State {
	return s.Dispatch(reducer.UpdatePage{Properties: props})
}

func (s *Store) ArrangePage(pageID string, position int) *reducer.State {
	return s.Dispatch(reducer.ArrangePage{PageID: pageID, Position: position})
}

func (s *Store) SetCurrentPage(pageID string) *reducer.State {
	return s.Dispatch(reducer.SetCurrentPage{PageID: pageID})
}

// Elements

func (s *Store) AddElement(el *story.Element) *reducer.State {
	return s.AddElements(el)
}

func (s *Store) AddElements(els ...*story.Element) *reducer.State {
	return s.Dispatch(reducer.AddElements{Elements: els})
}

// AddElementsToPage adds els to a page other than the current one without
// touching the selection.
func (s *Store) AddElementsToPage(pageID string, els ...*story.Element) *reducer.State {
	return s.Dispatch(reducer.AddElements{Elements: els, PageID: pageID, SkipSelection: true})
}

func (s *Store) DeleteElementByID(id string) *reducer.State {
	return s.DeleteElementsByID(id)
}

func (s *Store) DeleteElementsByID(ids ...string) *reducer.State {
	if len(ids) == 0 {
		return s.State()
	}
	return s.Dispatch(reducer.DeleteElements{ElementIDs: ids})
}

func (s *Store) DeleteSelectedElements() *reducer.State {
	return s.Dispatch(reducer.DeleteElements{})
}

func (s *Store) UpdateElementByID(id string, patch story.ElementPatch) *reducer.State {
	return s.UpdateElementsByID([]string{id}, patch)
}

func (s *Store) UpdateElementsByID(ids []string, patch story.ElementPatch) *reducer.State {
	if len(ids) == 0 {
		return s.State()
	}
	return s.Dispatch(reducer.UpdateElements{ElementIDs: ids, Properties: patch})
}

func (s *Store) UpdateSelectedElements(patch story.ElementPatch) *reducer.State {
	return s.Dispatch(reducer.UpdateElements{Properties: patch})
}

func (s *Store) UpdateElementsByResourceID(id story.ResourceID, patch story.ElementPatch) *reducer.State {
	return s.Dispatch(reducer.UpdateElementsByResourceID{ResourceID: id, Properties: patch})
}

func (s *Store) DeleteElementsByResourceID(id story.ResourceID) *reducer.State {
	return s.Dispatch(reducer.DeleteElementsByResourceID{ResourceID: id})
}

func (s *Store) UpdateElementsByFontFamily(family string, patch story.ElementPatch) *reducer.State {
	return s.Dispatch(reducer.UpdateElementsByFontFamily{FontFamily: family, Properties: patch})
}

func (s *Store) CombineElements(first *story.Element, secondID string, retainAnimations bool) *reducer.State {
	return s.Dispatch(reducer.CombineElements{FirstElement: first, SecondID: secondID, DiscardAnimations: !retainAnimations})
}

func (s *Store) SetBackgroundElement(id string) *reducer.State {
	return s.Dispatch(reducer.SetBackgroundElement{ElementID: id})
}

func (s *Store) ClearBackgroundElement() *reducer.State {
	return s.Dispatch(reducer.SetBackgroundElement{})
}

func (s *Store) ArrangeElement(id string, position reducer.Position, groupID *string) *reducer.State {
	return s.Dispatch(reducer.ArrangeElement{ElementID: id, Position: position, GroupID: groupID})
}

func (s *Store) ArrangeSelection(position reducer.Position) *reducer.State {
	return s.Dispatch(reducer.ArrangeElement{Position: position})
}

func (s *Store) ArrangeGroup(groupID string, position reducer.Position) *reducer.State {
	return s.Dispatch(reducer.ArrangeGroup{GroupID: groupID, Position: position})
}

func (s *Store) DuplicateElementsByID(ids ...string) *reducer.State {
	return s.Dispatch(reducer.DuplicateElementsByID{ElementIDs: ids})
}

// Selection

func (s *Store) SetSelectedElementsByID(ids []string, withLinked bool) *reducer.State {
	if ids == nil {
		ids = []string{}
	}
	return s.Dispatch(reducer.SetSelectedElements{ElementIDs: ids, WithLinked: withLinked})
}

func (s *Store) UpdateSelection(fn func(current []string) []string) *reducer.State {
	return s.Dispatch(reducer.SetSelectedElements{Updater: fn})
}

func (s *Store) ClearSelection() *reducer.State {
	return s.SetSelectedElementsByID(nil, false)
}

func (s *Store) SelectElement(id string, withLinked bool) *reducer.State {
	return s.Dispatch(reducer.SelectElement{ElementID: id, WithLinked: withLinked})
}

func (s *Store) UnselectElement(id string, withLinked bool) *reducer.State {
	return s.Dispatch(reducer.UnselectElement{ElementID: id, WithLinked: withLinked})
}

func (s *Store) ToggleElementInSelection(id string, withLinked bool) *reducer.State {
	return s.Dispatch(reducer.ToggleElementInSelection{ElementID: id, WithLinked: withLinked})
}

func (s *Store) ToggleLayer(id string, metaKey, shiftKey, withLinked bool) *reducer.State {
	return s.Dispatch(reducer.ToggleLayer{ElementID: id, MetaKey: metaKey, ShiftKey: shiftKey, WithLinked: withLinked})
}

// Groups

func (s *Store) AddGroup(groupID, name string, locked bool) *reducer.State {
	return s.Dispatch(reducer.AddGroup{GroupID: groupID, Name: name, IsLocked: locked})
}

func (s *Store) UpdateGroupByID(groupID string, props story.Properties) *reducer.State {
	return s.Dispatch(reducer.UpdateGroup{GroupID: groupID, Properties: props})
}

func (s *Store) DeleteGroupByID(groupID string) *reducer.State {
	return s.Dispatch(reducer.DeleteGroup{GroupID: groupID})
}

func (s *Store) DeleteGroupAndElementsByID(groupID string) *reducer.State {
	return s.Dispatch(reducer.DeleteGroup{GroupID: groupID, IncludeElements: true})
}

func (s *Store) DuplicateGroupByID(oldGroupID, groupID, name string, locked bool) *reducer.State {
	return s.Dispatch(reducer.DuplicateGroup{OldGroupID: oldGroupID, GroupID: groupID, Name: name, IsLocked: locked})
}

func (s *Store) RemoveElementFromGroup(elementID, groupID string) *reducer.State {
	return s.Dispatch(reducer.RemoveElementFromGroup{ElementID: elementID, GroupID: groupID})
}

// Story, animations, clipboard

func (s *Store) UpdateStory(patch story.StoryPatch) *reducer.State {
	return s.Dispatch(reducer.UpdateStory{Properties: patch})
}

func (s *Store) AddAnimations(anims ...*story.Animation) *reducer.State {
	return s.Dispatch(reducer.AddAnimations{Animations: anims})
}

func (s *Store) UpdateAnimationState(state reducer.AnimationState) *reducer.State {
	return s.Dispatch(reducer.UpdateAnimationState{AnimationState: state})
}

func (s *Store) CopySelectedElement() *reducer.State {
	return s.Dispatch(reducer.CopySelectedElement{})
}

// PasteStylesOnSelection applies the copied styles to every selected element
// of the copied element's type and replaces their animations with retargeted
// copies of the copied ones. All of it lands as a single change.
func (s *Store) PasteStylesOnSelection() *reducer.State {
	st := s.State()
	copied := st.CopiedElementState
	page := st.CurrentPage()
	if copied == nil || page == nil || len(st.Selection) == 0 {
		return st
	}

	var targets []string
	for _, id := range st.Selection {
		el, pos := page.ElementByID(id)
		if el == nil || pos == 0 || el.IsBackground || el.Type != copied.Type {
			continue
		}
		targets = append(targets, id)
	}
	if len(targets) == 0 {
		return st
	}

	actions := []reducer.Action{
		reducer.UpdateElements{ElementIDs: targets, Properties: story.Set[story.Element](copied.Styles)},
	}
	for _, anim := range page.Animations {
		for _, id := range targets {
			if anim.HasTarget(id) {
				actions = append(actions, reducer.UpdateElements{
					ElementIDs: []string{id},
					Properties: story.Set[story.Element](story.Properties{"animation": &story.Animation{ID: anim.ID, Delete: true}}),
				})
				break
			}
		}
	}
	var pasted []*story.Animation
	for _, id := range targets {
		for _, anim := range copied.Animations {
			c := story.CloneAnimation(anim)
			c.ID = typeid.NewAnimationID()
			c.Targets = []string{id}
			pasted = append(pasted, c)
		}
	}
	if len(pasted) > 0 {
		actions = append(actions, reducer.AddAnimations{Animations: pasted})
	}
	return s.DispatchAll(actions...)
}

// Restore replaces the whole document. It is meant for loading and history
// replay rather than for editing.
func (s *Store) Restore(r reducer.Restore) *reducer.State {
	return s.Dispatch(r)
}
