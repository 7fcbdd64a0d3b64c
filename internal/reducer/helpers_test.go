package reducer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inamate/storyeditor/internal/story"
)

func shape(id string) *story.Element {
	return &story.Element{ID: id, Type: story.ElementTypeShape, Width: 50, Height: 50, Opacity: 100}
}

func defaultBG(id string) *story.Element {
	el := shape(id)
	el.IsBackground = true
	el.IsDefaultBackground = true
	return el
}

func image(id, resourceID string) *story.Element {
	return &story.Element{
		ID:       id,
		Type:     story.ElementTypeImage,
		X:        20,
		Y:        30,
		Width:    200,
		Height:   100,
		Opacity:  100,
		Resource: &story.Resource{ID: story.ResourceID(resourceID), Type: "image", Src: "https://example.com/" + resourceID + ".jpg"},
	}
}

func product(id, productID string) *story.Element {
	return &story.Element{ID: id, Type: story.ElementTypeProduct, Opacity: 100, Product: &story.Product{ProductID: productID}}
}

func grouped(el *story.Element, groupID string) *story.Element {
	el.GroupID = groupID
	return el
}

func newPage(id string, els ...*story.Element) *story.Page {
	p := &story.Page{ID: id, Elements: els}
	if len(els) > 0 && els[0].IsDefaultBackground {
		c := *els[0]
		p.DefaultBackgroundElement = &c
	} else {
		p.DefaultBackgroundElement = defaultBG(id + "-default")
	}
	return p
}

func restoredState(pages ...*story.Page) *State {
	return Reduce(nil, Restore{Pages: pages, Current: pages[0].ID, Story: &story.Story{Title: "t"}})
}

func selecting(s *State, ids ...string) *State {
	next := s.clone()
	next.Selection = ids
	return next
}

func idsOf(p *story.Page) []string {
	return elementIDs(p.Elements)
}

// snapshot serializes s so a test can verify it was never modified.
func snapshot(t *testing.T, s *State) string {
	t.Helper()
	data, err := json.Marshal(s)
	require.NoError(t, err)
	return string(data)
}

func setProps(props story.Properties) story.ElementPatch {
	return story.Set[story.Element](props)
}
