package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/storyeditor/internal/editor"
	"github.com/inamate/storyeditor/internal/reducer"
	"github.com/inamate/storyeditor/internal/story"
)

func pageWith(id string, els ...*story.Element) *story.Page {
	bg := &story.Element{ID: id + "-bg", Type: story.ElementTypeShape, IsBackground: true, IsDefaultBackground: true}
	return &story.Page{ID: id, Elements: append([]*story.Element{bg}, els...), DefaultBackgroundElement: bg}
}

func entry(pages ...*story.Page) Entry {
	return Entry{Pages: pages, Story: &story.Story{}}
}

func TestUndoRedo(t *testing.T) {
	h := New(10)
	assert.False(t, h.CanUndo())

	a, b, c := entry(pageWith("a")), entry(pageWith("b")), entry(pageWith("c"))
	h.Append(a)
	h.Append(b)
	h.Append(c)
	assert.Equal(t, 3, h.VersionNumber())
	assert.True(t, h.CanUndo())
	assert.False(t, h.CanRedo())

	require.True(t, h.Undo(1))
	req, ok := h.RequestedState()
	require.True(t, ok)
	assert.Equal(t, "b", req.Pages[0].ID)
	assert.Equal(t, 2, h.VersionNumber())

	// replaying the requested entry does not record it
	h.Append(req)
	_, ok = h.RequestedState()
	assert.False(t, ok)
	assert.Equal(t, 3, h.Len())
	assert.True(t, h.CanRedo())

	require.True(t, h.Undo(5))
	req, _ = h.RequestedState()
	assert.Equal(t, "a", req.Pages[0].ID)
	assert.False(t, h.Undo(1))

	require.True(t, h.Redo(1))
	req, _ = h.RequestedState()
	assert.Equal(t, "b", req.Pages[0].ID)
}

func TestAppendAfterUndoDropsRedoBranch(t *testing.T) {
	h := New(10)
	h.Append(entry(pageWith("a")))
	h.Append(entry(pageWith("b")))
	h.Undo(1)
	h.Append(entry(pageWith("x")))

	assert.Equal(t, 2, h.Len())
	assert.False(t, h.CanRedo())
	h.Undo(1)
	req, _ := h.RequestedState()
	assert.Equal(t, "a", req.Pages[0].ID)
}

func TestHistoryIsBounded(t *testing.T) {
	h := New(3)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		h.Append(entry(pageWith(id)))
	}
	assert.Equal(t, 3, h.Len())
	h.Undo(10)
	req, _ := h.RequestedState()
	assert.Equal(t, "c", req.Pages[0].ID)

	h.Clear()
	assert.Zero(t, h.Len())
	assert.False(t, h.CanUndo())
	assert.Zero(t, h.VersionNumber())
}

func TestTrackerSkipsVolatileChanges(t *testing.T) {
	h := New(10)
	tr := NewTracker(h)

	img := &story.Element{ID: "img", Type: story.ElementTypeImage, Resource: &story.Resource{ID: "1", Src: "https://example.com/a.jpg"}}
	st := reducer.Reduce(nil, reducer.Restore{Pages: []*story.Page{pageWith("p", img)}})
	assert.True(t, tr.Observe(st))

	selected := reducer.Reduce(st, reducer.SelectElement{ElementID: "img"})
	assert.False(t, tr.Observe(selected), "selection alone is not recorded")

	processed := reducer.Reduce(selected, reducer.UpdateElementsByResourceID{
		ResourceID: "1",
		Properties: story.Set[story.Element](story.Properties{"resource": map[string]any{"id": 2, "src": "https://example.com/a.jpg", "baseColor": "#fff"}}),
	})
	require.NotSame(t, selected, processed)
	assert.False(t, tr.Observe(processed), "volatile resource keys are not recorded")

	moved := reducer.Reduce(processed, reducer.UpdateElements{ElementIDs: []string{"img"}, Properties: story.Set[story.Element](story.Properties{"x": 20.0})})
	assert.True(t, tr.Observe(moved))
	assert.Equal(t, 2, h.Len())
}

func TestTrackerSkipsBlobResources(t *testing.T) {
	h := New(10)
	tr := NewTracker(h)
	uploading := &story.Element{ID: "img", Type: story.ElementTypeImage, Resource: &story.Resource{Src: "blob:http://localhost/123"}}
	st := reducer.Reduce(nil, reducer.Restore{Pages: []*story.Page{pageWith("p", uploading)}})
	assert.False(t, tr.Observe(st))
	assert.Zero(t, h.Len())
}

func TestReplayThroughStore(t *testing.T) {
	h := New(10)
	tr := NewTracker(h)
	store := editor.New(editor.Options{VerifyFrozen: true})
	store.Subscribe(func(_, next *reducer.State) { tr.Observe(next) })

	store.Restore(reducer.Restore{Pages: []*story.Page{pageWith("p", &story.Element{ID: "a", Type: story.ElementTypeShape})}})
	store.UpdateElementByID("a", story.Set[story.Element](story.Properties{"x": 10.0}))
	store.UpdateElementByID("a", story.Set[story.Element](story.Properties{"x": 20.0}))
	require.Equal(t, 3, h.Len())

	x := func() float64 {
		el, _ := store.State().CurrentPage().ElementByID("a")
		return el.X
	}

	require.True(t, h.Undo(1))
	require.True(t, Replay(h, store))
	assert.InDelta(t, 10, x(), 0)
	assert.Equal(t, 3, h.Len(), "replay must not record a new entry")
	assert.False(t, Replay(h, store), "request is consumed")

	require.True(t, h.Redo(1))
	require.True(t, Replay(h, store))
	assert.InDelta(t, 20, x(), 0)

	h.Undo(2)
	Replay(h, store)
	assert.InDelta(t, 0, x(), 0)
	store.UpdateElementByID("a", story.Set[story.Element](story.Properties{"x": 5.0}))
	assert.Equal(t, 2, h.Len())
	assert.False(t, h.CanRedo())
}
