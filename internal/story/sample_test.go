package story

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPage(t *testing.T) {
	p := NewPage()
	require.Len(t, p.Elements, 1)
	bg := p.Background()
	assert.True(t, bg.IsBackground)
	assert.True(t, bg.IsDefaultBackground)
	require.NotNil(t, p.DefaultBackgroundElement)
	assert.Equal(t, bg.ID, p.DefaultBackgroundElement.ID)
	assert.NotSame(t, bg, p.DefaultBackgroundElement)

	assert.NotEqual(t, p.ID, NewPage().ID)
}

func TestNewSampleStory(t *testing.T) {
	st, pages := NewSampleStory("s1")
	assert.Equal(t, "s1", st.StoryID)
	assert.Equal(t, "draft", st.Status)
	require.Len(t, pages, 2)

	cover := pages[0]
	require.Len(t, cover.Elements, 3)
	assert.True(t, cover.Elements[0].IsBackground)
	require.Len(t, cover.Animations, 1)
	assert.True(t, cover.Animations[0].HasTarget(cover.Elements[1].ID))
}
