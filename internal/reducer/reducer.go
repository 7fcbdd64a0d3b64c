package reducer

// Reduce applies action to state. It never panics on unknown ids and never
// modifies state; when nothing changes it returns state itself.
func Reduce(state *State, action Action) *State {
	if state == nil {
		state = NewState()
	}

	switch a := action.(type) {
	case AddPage:
		return addPage(state, a)
	case DeletePage:
		return deletePage(state, a)
	case UpdatePage:
		return updatePage(state, a)
	case ArrangePage:
		return arrangePage(state, a)
	case SetCurrentPage:
		return setCurrentPage(state, a)
	case AddElements:
		return addElements(state, a)
	case DeleteElements:
		return deleteElements(state, a)
	case UpdateElements:
		return updateElements(state, a)
	case UpdateElementsByResourceID:
		return updateElementsByResourceID(state, a)
	case DeleteElementsByResourceID:
		return deleteElementsByResourceID(state, a)
	case UpdateElementsByFontFamily:
		return updateElementsByFontFamily(state, a)
	case CombineElements:
		return combineElements(state, a)
	case SetBackgroundElement:
		return setBackgroundElement(state, a)
	case ArrangeElement:
		return arrangeElement(state, a)
	case ArrangeGroup:
		return arrangeGroup(state, a)
	case DuplicateElementsByID:
		return duplicateElementsByID(state, a)
	case SetSelectedElements:
		return setSelectedElements(state, a)
	case SelectElement:
		return selectElement(state, a)
	case UnselectElement:
		return unselectElement(state, a)
	case ToggleElementInSelection:
		return toggleElementInSelection(state, a)
	case ToggleLayer:
		return toggleLayer(state, a)
	case AddGroup:
		return addGroup(state, a)
	case UpdateGroup:
		return updateGroup(state, a)
	case DeleteGroup:
		return deleteGroup(state, a)
	case DuplicateGroup:
		return duplicateGroup(state, a)
	case RemoveElementFromGroup:
		return removeElementFromGroup(state, a)
	case CopySelectedElement:
		return copySelectedElement(state)
	case AddAnimations:
		return addAnimations(state, a)
	case UpdateStory:
		return updateStory(state, a)
	case UpdateAnimationState:
		return updateAnimationState(state, a)
	case Restore:
		return restore(state, a)
	default:
		return state
	}
}
