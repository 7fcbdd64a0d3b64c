package reducer

import (
	"slices"

	"github.com/inamate/storyeditor/internal/story"
)

type AnimationState string

const (
	AnimationStateIdle            AnimationState = "idle"
	AnimationStateReset           AnimationState = "reset"
	AnimationStatePlaying         AnimationState = "playing"
	AnimationStatePlayingSelected AnimationState = "playing-selected"
	AnimationStateScrubbing       AnimationState = "scrubbing"
	AnimationStatePaused          AnimationState = "paused"
)

// blocksUpdates reports whether element updates are ignored in this state.
func (a AnimationState) blocksUpdates() bool {
	return a == AnimationStatePlaying || a == AnimationStatePlayingSelected || a == AnimationStateScrubbing
}

// CopiedElementState is the style clipboard filled by CopySelectedElement.
type CopiedElementState struct {
	ElementID  string             `json:"elementId"`
	Type       story.ElementType  `json:"type"`
	Styles     story.Properties   `json:"styles"`
	Animations []*story.Animation `json:"animations"`
}

// State is the whole editor document. A *State handed out by Reduce is never
// modified again; reducers copy the paths they change and share the rest.
type State struct {
	Pages              []*story.Page       `json:"pages"`
	Current            string              `json:"current"`
	Selection          []string            `json:"selection"`
	Story              *story.Story        `json:"story"`
	AnimationState     AnimationState      `json:"animationState"`
	Capabilities       map[string]bool     `json:"capabilities"`
	CopiedElementState *CopiedElementState `json:"copiedElementState,omitempty"`
}

// NewState returns the empty state the editor starts from before Restore.
func NewState() *State {
	return &State{
		Pages:          []*story.Page{},
		Selection:      []string{},
		Story:          &story.Story{},
		AnimationState: AnimationStateIdle,
		Capabilities:   map[string]bool{},
	}
}

// PageByID returns the page with the given id and its index.
func (s *State) PageByID(id string) (*story.Page, int) {
	for i, p := range s.Pages {
		if p.ID == id {
			return p, i
		}
	}
	return nil, -1
}

// CurrentPage returns the current page or nil.
func (s *State) CurrentPage() *story.Page {
	p, _ := s.PageByID(s.Current)
	return p
}

func (s *State) currentPageIndex() int {
	_, i := s.PageByID(s.Current)
	return i
}

func (s *State) clone() *State {
	c := *s
	return &c
}

// withPage returns a copy of s with the page at idx replaced.
func (s *State) withPage(idx int, p *story.Page) *State {
	next := s.clone()
	next.Pages = slices.Clone(s.Pages)
	next.Pages[idx] = p
	return next
}

// withSelection returns s itself when sel equals the current selection.
func (s *State) withSelection(sel []string) *State {
	if slices.Equal(s.Selection, sel) {
		return s
	}
	next := s.clone()
	next.Selection = sel
	return next
}
