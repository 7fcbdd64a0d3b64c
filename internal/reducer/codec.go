package reducer

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/inamate/storyeditor/internal/story"
)

// Envelope is the wire form of an action.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Wire names of the actions.
const (
	TypeAddPage                    = "ADD_PAGE"
	TypeDeletePage                 = "DELETE_PAGE"
	TypeUpdatePage                 = "UPDATE_PAGE"
	TypeArrangePage                = "ARRANGE_PAGE"
	TypeSetCurrentPage             = "SET_CURRENT_PAGE"
	TypeAddElements                = "ADD_ELEMENTS"
	TypeDeleteElements             = "DELETE_ELEMENTS"
	TypeUpdateElements             = "UPDATE_ELEMENTS"
	TypeUpdateElementsByResourceID = "UPDATE_ELEMENTS_BY_RESOURCE_ID"
	TypeDeleteElementsByResourceID = "DELETE_ELEMENTS_BY_RESOURCE_ID"
	TypeUpdateElementsByFontFamily = "UPDATE_ELEMENTS_BY_FONT_FAMILY"
	TypeCombineElements            = "COMBINE_ELEMENTS"
	TypeSetBackgroundElement       = "SET_BACKGROUND_ELEMENT"
	TypeArrangeElement             = "ARRANGE_ELEMENT"
	TypeArrangeGroup               = "ARRANGE_GROUP"
	TypeDuplicateElementsByID      = "DUPLICATE_ELEMENTS_BY_ID"
	TypeSetSelectedElements        = "SET_SELECTED_ELEMENTS"
	TypeSelectElement              = "SELECT_ELEMENT"
	TypeUnselectElement            = "UNSELECT_ELEMENT"
	TypeToggleElementInSelection   = "TOGGLE_ELEMENT_IN_SELECTION"
	TypeToggleLayer                = "TOGGLE_LAYER"
	TypeAddGroup                   = "ADD_GROUP"
	TypeUpdateGroup                = "UPDATE_GROUP"
	TypeDeleteGroup                = "DELETE_GROUP"
	TypeDuplicateGroup             = "DUPLICATE_GROUP"
	TypeRemoveElementFromGroup     = "REMOVE_ELEMENT_FROM_GROUP"
	TypeCopySelectedElement        = "COPY_SELECTED_ELEMENT"
	TypeAddAnimations              = "ADD_ANIMATIONS"
	TypeUpdateStory                = "UPDATE_STORY"
	TypeUpdateAnimationState       = "UPDATE_ANIMATION_STATE"
	TypeRestore                    = "RESTORE"
)

var ErrUnknownAction = errors.New("unknown action type")

var (
	decoders = map[string]func(json.RawMessage) (Action, error){}
	names    = map[reflect.Type]string{}
)

func register[T Action](name string) {
	names[reflect.TypeFor[T]()] = name
	decoders[name] = func(raw json.RawMessage) (Action, error) {
		var a T
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &a); err != nil {
				return nil, err
			}
		}
		return a, nil
	}
}

func init() {
	register[AddPage](TypeAddPage)
	register[DeletePage](TypeDeletePage)
	register[UpdatePage](TypeUpdatePage)
	register[ArrangePage](TypeArrangePage)
	register[SetCurrentPage](TypeSetCurrentPage)
	register[AddElements](TypeAddElements)
	register[DeleteElements](TypeDeleteElements)
	register[UpdateElements](TypeUpdateElements)
	register[UpdateElementsByResourceID](TypeUpdateElementsByResourceID)
	register[DeleteElementsByResourceID](TypeDeleteElementsByResourceID)
	register[UpdateElementsByFontFamily](TypeUpdateElementsByFontFamily)
	register[CombineElements](TypeCombineElements)
	register[SetBackgroundElement](TypeSetBackgroundElement)
	register[ArrangeElement](TypeArrangeElement)
	register[ArrangeGroup](TypeArrangeGroup)
	register[DuplicateElementsByID](TypeDuplicateElementsByID)
	register[SetSelectedElements](TypeSetSelectedElements)
	register[SelectElement](TypeSelectElement)
	register[UnselectElement](TypeUnselectElement)
	register[ToggleElementInSelection](TypeToggleElementInSelection)
	register[ToggleLayer](TypeToggleLayer)
	register[AddGroup](TypeAddGroup)
	register[UpdateGroup](TypeUpdateGroup)
	register[DeleteGroup](TypeDeleteGroup)
	register[DuplicateGroup](TypeDuplicateGroup)
	register[RemoveElementFromGroup](TypeRemoveElementFromGroup)
	register[CopySelectedElement](TypeCopySelectedElement)
	register[AddAnimations](TypeAddAnimations)
	register[UpdateStory](TypeUpdateStory)
	register[UpdateAnimationState](TypeUpdateAnimationState)
	register[Restore](TypeRestore)
}

// ActionType returns the wire name of a, or "" for an unregistered type.
func ActionType(a Action) string {
	return names[reflect.TypeOf(a)]
}

// DecodeAction reads an action from its envelope.
func DecodeAction(data []byte) (Action, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode action envelope: %w", err)
	}
	return DecodeEnvelope(env)
}

func DecodeEnvelope(env Envelope) (Action, error) {
	decode, ok := decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}
	a, err := decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return a, nil
}

// EncodeAction writes a in its envelope. Actions carrying updater functions
// cannot be encoded.
func EncodeAction(a Action) ([]byte, error) {
	name := ActionType(a)
	if name == "" {
		return nil, fmt.Errorf("%w: %T", ErrUnknownAction, a)
	}
	if sel, ok := a.(SetSelectedElements); ok && sel.Updater != nil {
		return nil, fmt.Errorf("encode %s: %w", name, story.ErrUpdaterPatch)
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", name, err)
	}
	return json.Marshal(Envelope{Type: name, Payload: payload})
}

// --- payloads with defaults or non-struct fields ---

type addPagePayload struct {
	Page            *story.Page `json:"page"`
	Position        *int        `json:"position,omitempty"`
	UpdateSelection *bool       `json:"updateSelection,omitempty"`
}

func (a AddPage) MarshalJSON() ([]byte, error) {
	return json.Marshal(addPagePayload{Page: a.Page, Position: a.Position, UpdateSelection: updateSelection(a.SkipSelection)})
}

func (a *AddPage) UnmarshalJSON(data []byte) error {
	var p addPagePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = AddPage{Page: p.Page, Position: p.Position, SkipSelection: p.UpdateSelection != nil && !*p.UpdateSelection}
	return nil
}

type addElementsPayload struct {
	Elements        []*story.Element `json:"elements"`
	PageID          string           `json:"pageId,omitempty"`
	UpdateSelection *bool            `json:"updateSelection,omitempty"`
}

func (a AddElements) MarshalJSON() ([]byte, error) {
	return json.Marshal(addElementsPayload{Elements: a.Elements, PageID: a.PageID, UpdateSelection: updateSelection(a.SkipSelection)})
}

func (a *AddElements) UnmarshalJSON(data []byte) error {
	var p addElementsPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = AddElements{Elements: p.Elements, PageID: p.PageID, SkipSelection: p.UpdateSelection != nil && !*p.UpdateSelection}
	return nil
}

func updateSelection(skip bool) *bool {
	if !skip {
		return nil
	}
	f := false
	return &f
}

type combineElementsPayload struct {
	FirstElement           *story.Element `json:"firstElement"`
	SecondID               string         `json:"secondId"`
	ShouldRetainAnimations *bool          `json:"shouldRetainAnimations,omitempty"`
}

func (a CombineElements) MarshalJSON() ([]byte, error) {
	p := combineElementsPayload{FirstElement: a.FirstElement, SecondID: a.SecondID}
	if a.DiscardAnimations {
		f := false
		p.ShouldRetainAnimations = &f
	}
	return json.Marshal(p)
}

func (a *CombineElements) UnmarshalJSON(data []byte) error {
	var p combineElementsPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = CombineElements{
		FirstElement:      p.FirstElement,
		SecondID:          p.SecondID,
		DiscardAnimations: p.ShouldRetainAnimations != nil && !*p.ShouldRetainAnimations,
	}
	return nil
}

type arrangeElementPayload struct {
	ElementID string          `json:"elementId,omitempty"`
	Position  json.RawMessage `json:"position,omitempty"`
	GroupID   *string         `json:"groupId,omitempty"`
}

func (a ArrangeElement) MarshalJSON() ([]byte, error) {
	pos, err := json.Marshal(encodePosition(a.Position))
	if err != nil {
		return nil, err
	}
	return json.Marshal(arrangeElementPayload{ElementID: a.ElementID, Position: pos, GroupID: a.GroupID})
}

func (a *ArrangeElement) UnmarshalJSON(data []byte) error {
	var p arrangeElementPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	pos, err := decodePosition(p.Position)
	if err != nil {
		return err
	}
	*a = ArrangeElement{ElementID: p.ElementID, Position: pos, GroupID: p.GroupID}
	return nil
}

type arrangeGroupPayload struct {
	GroupID  string          `json:"groupId"`
	Position json.RawMessage `json:"position,omitempty"`
}

func (a ArrangeGroup) MarshalJSON() ([]byte, error) {
	pos, err := json.Marshal(encodePosition(a.Position))
	if err != nil {
		return nil, err
	}
	return json.Marshal(arrangeGroupPayload{GroupID: a.GroupID, Position: pos})
}

func (a *ArrangeGroup) UnmarshalJSON(data []byte) error {
	var p arrangeGroupPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	pos, err := decodePosition(p.Position)
	if err != nil {
		return err
	}
	*a = ArrangeGroup{GroupID: p.GroupID, Position: pos}
	return nil
}
