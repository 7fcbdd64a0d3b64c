package reducer

import "github.com/inamate/storyeditor/internal/story"

// Action is a state transition request. The set of actions is closed.
type Action interface {
	isAction()
}

// --- pages ---

// AddPage inserts Page at Position, or after the current page when Position
// is nil or out of range. Unless SkipSelection is set the new page becomes
// current with its background selected.
type AddPage struct {
	Page          *story.Page
	Position      *int
	SkipSelection bool
}

// DeletePage removes a page; an empty PageID means the current page.
type DeletePage struct {
	PageID string `json:"pageId"`
}

// UpdatePage merges Properties into a page; an empty PageID means the
// current page.
type UpdatePage struct {
	PageID     string           `json:"pageId"`
	Properties story.Properties `json:"properties"`
}

type ArrangePage struct {
	PageID   string `json:"pageId"`
	Position int    `json:"position"`
}

type SetCurrentPage struct {
	PageID string `json:"pageId"`
}

// --- elements ---

// AddElements appends Elements to a page (current page when PageID is empty).
type AddElements struct {
	Elements      []*story.Element
	PageID        string
	SkipSelection bool
}

// DeleteElements removes elements from the current page. A nil ElementIDs
// means the selection.
type DeleteElements struct {
	ElementIDs []string `json:"elementIds"`
}

// UpdateElements patches elements on the current page. A nil ElementIDs
// means the selection.
type UpdateElements struct {
	ElementIDs []string           `json:"elementIds"`
	Properties story.ElementPatch `json:"properties"`
}

type UpdateElementsByResourceID struct {
	ResourceID story.ResourceID   `json:"id"`
	Properties story.ElementPatch `json:"properties"`
}

type DeleteElementsByResourceID struct {
	ResourceID story.ResourceID `json:"id"`
}

type UpdateElementsByFontFamily struct {
	FontFamily string             `json:"family"`
	Properties story.ElementPatch `json:"properties"`
}

// CombineElements merges FirstElement into the element SecondID. Animations
// of SecondID are kept unless DiscardAnimations is set.
type CombineElements struct {
	FirstElement      *story.Element
	SecondID          string
	DiscardAnimations bool
}

// SetBackgroundElement makes ElementID the background; an empty ElementID
// restores the default background.
type SetBackgroundElement struct {
	ElementID string `json:"elementId"`
}

// ArrangeElement moves one element in the layer order; an empty ElementID
// means the sole selected element. A non-nil GroupID reassigns the group.
type ArrangeElement struct {
	ElementID string
	Position  Position
	GroupID   *string
}

type ArrangeGroup struct {
	GroupID  string
	Position Position
}

type DuplicateElementsByID struct {
	ElementIDs []string `json:"elementIds"`
}

// --- selection ---

// SetSelectedElements replaces the selection with ElementIDs, or with the
// result of Updater applied to the current selection when Updater is set.
type SetSelectedElements struct {
	ElementIDs []string                        `json:"elementIds"`
	Updater    func(current []string) []string `json:"-"`
	WithLinked bool                            `json:"withLinked,omitempty"`
}

type SelectElement struct {
	ElementID  string `json:"elementId"`
	WithLinked bool   `json:"withLinked,omitempty"`
}

type UnselectElement struct {
	ElementID  string `json:"elementId"`
	WithLinked bool   `json:"withLinked,omitempty"`
}

type ToggleElementInSelection struct {
	ElementID  string `json:"elementId"`
	WithLinked bool   `json:"withLinked,omitempty"`
}

type ToggleLayer struct {
	ElementID  string `json:"elementId"`
	MetaKey    bool   `json:"metaKey,omitempty"`
	ShiftKey   bool   `json:"shiftKey,omitempty"`
	WithLinked bool   `json:"withLinked,omitempty"`
}

// --- groups ---

type AddGroup struct {
	GroupID  string `json:"groupId"`
	Name     string `json:"name"`
	IsLocked bool   `json:"isLocked"`
}

type UpdateGroup struct {
	GroupID    string           `json:"groupId"`
	Properties story.Properties `json:"properties"`
}

type DeleteGroup struct {
	GroupID         string `json:"groupId"`
	IncludeElements bool   `json:"includeElements,omitempty"`
}

// DuplicateGroup copies every member of OldGroupID into a new group. An
// empty GroupID is generated.
type DuplicateGroup struct {
	OldGroupID string `json:"oldGroupId"`
	GroupID    string `json:"groupId"`
	Name       string `json:"name"`
	IsLocked   bool   `json:"isLocked"`
}

type RemoveElementFromGroup struct {
	ElementID string `json:"elementId"`
	GroupID   string `json:"groupId"`
}

// --- misc ---

type CopySelectedElement struct{}

type AddAnimations struct {
	Animations []*story.Animation `json:"animations"`
}

type UpdateStory struct {
	Properties story.StoryPatch `json:"properties"`
}

type UpdateAnimationState struct {
	AnimationState AnimationState `json:"animationState"`
}

// Restore replaces the whole state, e.g. on load or history replay.
type Restore struct {
	Pages        []*story.Page   `json:"pages"`
	Current      string          `json:"current"`
	Selection    []string        `json:"selection"`
	Story        *story.Story    `json:"story"`
	Capabilities map[string]bool `json:"capabilities"`
}

func (AddPage) isAction()                    {}
func (DeletePage) isAction()                 {}
func (UpdatePage) isAction()                 {}
func (ArrangePage) isAction()                {}
func (SetCurrentPage) isAction()             {}
func (AddElements) isAction()                {}
func (DeleteElements) isAction()             {}
func (UpdateElements) isAction()             {}
func (UpdateElementsByResourceID) isAction() {}
func (DeleteElementsByResourceID) isAction() {}
func (UpdateElementsByFontFamily) isAction() {}
func (CombineElements) isAction()            {}
func (SetBackgroundElement) isAction()       {}
func (ArrangeElement) isAction()             {}
func (ArrangeGroup) isAction()               {}
func (DuplicateElementsByID) isAction()      {}
func (SetSelectedElements) isAction()        {}
func (SelectElement) isAction()              {}
func (UnselectElement) isAction()            {}
func (ToggleElementInSelection) isAction()   {}
func (ToggleLayer) isAction()                {}
func (AddGroup) isAction()                   {}
func (UpdateGroup) isAction()                {}
func (DeleteGroup) isAction()                {}
func (DuplicateGroup) isAction()             {}
func (RemoveElementFromGroup) isAction()     {}
func (CopySelectedElement) isAction()        {}
func (AddAnimations) isAction()              {}
func (UpdateStory) isAction()                {}
func (UpdateAnimationState) isAction()       {}
func (Restore) isAction()                    {}
