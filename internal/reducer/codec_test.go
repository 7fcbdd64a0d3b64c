package reducer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/storyeditor/internal/story"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected Action
	}{
		{
			name:     "delete elements without ids targets the selection",
			input:    `{"type":"DELETE_ELEMENTS"}`,
			expected: DeleteElements{},
		},
		{
			name:     "add elements defaults to updating the selection",
			input:    `{"type":"ADD_ELEMENTS","payload":{"elements":[{"id":"a","type":"shape"}]}}`,
			expected: AddElements{Elements: []*story.Element{{ID: "a", Type: story.ElementTypeShape}}},
		},
		{
			name:     "add elements with updateSelection false",
			input:    `{"type":"ADD_ELEMENTS","payload":{"elements":[],"pageId":"p","updateSelection":false}}`,
			expected: AddElements{Elements: []*story.Element{}, PageID: "p", SkipSelection: true},
		},
		{
			name:     "arrange element by direction",
			input:    `{"type":"ARRANGE_ELEMENT","payload":{"elementId":"a","position":"FRONT"}}`,
			expected: ArrangeElement{ElementID: "a", Position: Front},
		},
		{
			name:     "arrange group by index",
			input:    `{"type":"ARRANGE_GROUP","payload":{"groupId":"g","position":3}}`,
			expected: ArrangeGroup{GroupID: "g", Position: Index(3)},
		},
		{
			name:     "combine without retaining animations",
			input:    `{"type":"COMBINE_ELEMENTS","payload":{"firstElement":{"id":"a","type":"image"},"secondId":"b","shouldRetainAnimations":false}}`,
			expected: CombineElements{FirstElement: &story.Element{ID: "a", Type: story.ElementTypeImage}, SecondID: "b", DiscardAnimations: true},
		},
		{
			name:     "update elements carries properties",
			input:    `{"type":"UPDATE_ELEMENTS","payload":{"elementIds":["a"],"properties":{"x":3}}}`,
			expected: UpdateElements{ElementIDs: []string{"a"}, Properties: setProps(story.Properties{"x": 3.0})},
		},
		{
			name:     "animation state",
			input:    `{"type":"UPDATE_ANIMATION_STATE","payload":{"animationState":"playing"}}`,
			expected: UpdateAnimationState{AnimationState: AnimationStatePlaying},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := DecodeAction([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, a)
		})
	}
}

func TestDecodeActionErrors(t *testing.T) {
	_, err := DecodeAction([]byte(`{"type":"NOPE"}`))
	assert.ErrorIs(t, err, ErrUnknownAction)

	_, err = DecodeAction([]byte(`{"type":"ARRANGE_ELEMENT","payload":{"position":"SIDEWAYS"}}`))
	assert.Error(t, err)

	_, err = DecodeAction([]byte(`not json`))
	assert.Error(t, err)
}

func TestEncodeActionRoundTrip(t *testing.T) {
	pos := 2
	group := "g"
	actions := []Action{
		AddPage{Page: newPage("p", defaultBG("bg")), Position: &pos, SkipSelection: true},
		ArrangeElement{ElementID: "a", Position: Backward, GroupID: &group},
		CombineElements{FirstElement: shape("a"), SecondID: "b"},
		SetSelectedElements{ElementIDs: []string{"a", "b"}, WithLinked: true},
		CopySelectedElement{},
	}
	for _, a := range actions {
		data, err := EncodeAction(a)
		require.NoError(t, err, "%T", a)
		decoded, err := DecodeAction(data)
		require.NoError(t, err, "%T", a)
		assert.Equal(t, ActionType(a), ActionType(decoded))
		again, err := EncodeAction(decoded)
		require.NoError(t, err)
		assert.JSONEq(t, string(data), string(again))
	}
}

func TestEncodeActionRejectsUpdaters(t *testing.T) {
	_, err := EncodeAction(UpdateElements{Properties: story.Update[story.Element](func(*story.Element) story.Properties { return nil })})
	assert.ErrorIs(t, err, story.ErrUpdaterPatch)

	_, err = EncodeAction(SetSelectedElements{Updater: func(cur []string) []string { return cur }})
	assert.ErrorIs(t, err, story.ErrUpdaterPatch)
}
