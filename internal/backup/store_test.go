package backup

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/storyeditor/internal/history"
	"github.com/inamate/storyeditor/internal/story"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "nested", "backup.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestKey(t *testing.T) {
	assert.Equal(t, "story_1", Key("story_1", false))
	assert.Equal(t, NewStoryKey, Key("story_1", true))
	assert.Equal(t, NewStoryKey, Key("", false))
}

func TestSaveLoadDelete(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	_, ok, err := s.Load(ctx, "a", false)
	require.NoError(t, err)
	assert.False(t, ok)

	entry := history.Entry{
		Story:     &story.Story{StoryID: "a", Title: "Hello"},
		Current:   "p1",
		Selection: []string{"e1"},
		Pages:     []*story.Page{{ID: "p1", Elements: []*story.Element{{ID: "e1", Type: story.ElementTypeText, Content: "hi"}}}},
	}
	require.NoError(t, s.Save(ctx, "a", false, entry))

	entry.Story.Title = "Hello again"
	require.NoError(t, s.Save(ctx, "a", false, entry))

	got, ok, err := s.Load(ctx, "a", false)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hello again", got.Story.Title)
	assert.Equal(t, "p1", got.Current)
	require.Len(t, got.Pages, 1)
	assert.Equal(t, "hi", got.Pages[0].Elements[0].Content)

	require.NoError(t, s.Delete(ctx, "a", false))
	_, ok, err = s.Load(ctx, "a", false)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestNewStoriesShareKeyAndClear(t *testing.T) {
	s := openTemp(t)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, "x", true, history.Entry{Current: "first"}))
	require.NoError(t, s.Save(ctx, "y", true, history.Entry{Current: "second"}))
	got, ok, err := s.Load(ctx, "z", true)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "second", got.Current)

	require.NoError(t, s.Save(ctx, "x", false, history.Entry{Current: "saved"}))
	require.NoError(t, s.Clear(ctx))
	_, ok, _ = s.Load(ctx, "x", false)
	assert.False(t, ok)
	_, ok, _ = s.Load(ctx, "", true)
	assert.False(t, ok)
}
