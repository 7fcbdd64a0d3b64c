package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/storyeditor/internal/reducer"
)

func ptr[T any](v T) *T { return &v }

func TestLoadStoryDates(t *testing.T) {
	tests := []struct {
		name     string
		status   string
		date     *string
		modified string
		wantDate bool
	}{
		{name: "draft with date equal to modified floats", status: "draft", date: ptr("2024-01-01T00:00:00"), modified: "2024-01-01T00:00:00"},
		{name: "auto-draft without date", status: "auto-draft"},
		{name: "pending with date equal to modified floats", status: "pending", date: ptr("x"), modified: "x"},
		{name: "draft with scheduled date keeps it", status: "draft", date: ptr("2025-05-05T00:00:00"), modified: "2024-01-01T00:00:00", wantDate: true},
		{name: "published keeps its date", status: "publish", date: ptr("x"), modified: "x", wantDate: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := LoadStory(&RawStory{ID: "s", Status: tt.status, Date: tt.date, Modified: tt.modified}, nil)
			require.NoError(t, err)
			if tt.wantDate {
				require.NotNil(t, r.Story.Date)
				assert.Equal(t, *tt.date, *r.Story.Date)
			} else {
				assert.Nil(t, r.Story.Date)
			}
		})
	}
}

func TestLoadStoryWithoutPagesCreatesOne(t *testing.T) {
	r, err := LoadStory(&RawStory{ID: "s", Title: "T"}, map[string]bool{"hasPublishAction": true})
	require.NoError(t, err)
	require.Len(t, r.Pages, 1)
	assert.Equal(t, r.Pages[0].ID, r.Current)
	assert.Empty(t, r.Selection)
	assert.NotNil(t, r.Selection)
	assert.Equal(t, "s", r.Story.StoryID)
	assert.InDelta(t, 7, r.Story.DefaultPageDuration, 0)
	assert.True(t, r.Capabilities["hasPublishAction"])
}

func TestLoadStoryAddsMissingBackgrounds(t *testing.T) {
	data := `{"version":1,"autoAdvance":true,"pages":[
		{"id":"p1","elements":[{"id":"a","type":"text"}]},
		{"id":"p2","elements":[{"id":"bg","type":"shape","isBackground":true,"isDefaultBackground":true}]}
	]}`
	r, err := LoadStory(&RawStory{ID: "s", StoryData: json.RawMessage(data)}, nil)
	require.NoError(t, err)
	require.Len(t, r.Pages, 2)
	assert.True(t, r.Story.AutoAdvance)

	p1 := r.Pages[0]
	require.Len(t, p1.Elements, 2)
	assert.True(t, p1.Elements[0].IsBackground)
	assert.Equal(t, "a", p1.Elements[1].ID)
	assert.NotNil(t, p1.DefaultBackgroundElement)

	p2 := r.Pages[1]
	require.Len(t, p2.Elements, 1)
	require.NotNil(t, p2.DefaultBackgroundElement)
	assert.Equal(t, "bg", p2.DefaultBackgroundElement.ID)

	st := reducer.Reduce(nil, r)
	assert.Equal(t, "p1", st.Current)
}

func TestLoadStoryRejectsGarbage(t *testing.T) {
	_, err := LoadStory(&RawStory{StoryData: json.RawMessage(`{"pages":{}}`)}, nil)
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestEncodeStoryRoundTrip(t *testing.T) {
	r, err := LoadStory(&RawStory{ID: "s", Title: "T", Status: "publish", Date: ptr("d"), Modified: "m"}, nil)
	require.NoError(t, err)
	st := reducer.Reduce(nil, r)

	raw, err := EncodeStory(st)
	require.NoError(t, err)
	assert.Equal(t, "s", raw.ID)
	assert.Equal(t, "T", raw.Title)

	again, err := LoadStory(raw, nil)
	require.NoError(t, err)
	require.Len(t, again.Pages, 1)
	assert.Equal(t, st.Pages[0].ID, again.Pages[0].ID)
	assert.Equal(t, "d", *again.Story.Date)
}

type fakeStore struct {
	mu        sync.Mutex
	saved     []*RawStory
	autosaved []*RawStory
	err       error
	block     chan struct{}
}

func (f *fakeStore) GetStoryByID(context.Context, string) (*RawStory, error) {
	return nil, ErrNotFound
}

func (f *fakeStore) SaveStoryByID(_ context.Context, r *RawStory) (*RawStory, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.saved = append(f.saved, r)
	return r, nil
}

func (f *fakeStore) AutoSaveByID(_ context.Context, r *RawStory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.autosaved = append(f.autosaved, r)
	return nil
}

type recordingNotifier struct{ messages []string }

func (n *recordingNotifier) Notify(_ context.Context, msg string) { n.messages = append(n.messages, msg) }

type recordingTracker struct{ errs []error }

func (tr *recordingTracker) Track(_ context.Context, err error) { tr.errs = append(tr.errs, err) }

func loadedState(t *testing.T) *reducer.State {
	t.Helper()
	r, err := LoadStory(&RawStory{ID: "s", Title: "T"}, nil)
	require.NoError(t, err)
	return reducer.Reduce(nil, r)
}

func TestSaverSavesAndAutosaves(t *testing.T) {
	store := &fakeStore{}
	s := NewSaver(store, nil, nil, nil)
	st := loadedState(t)

	saved, err := s.Save(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, "s", saved.ID)
	require.NoError(t, s.AutoSave(context.Background(), st))
	assert.Len(t, store.saved, 1)
	assert.Len(t, store.autosaved, 1)
	assert.False(t, s.IsSaving())
}

func TestSaverReportsFailures(t *testing.T) {
	notifier := &recordingNotifier{}
	tracker := &recordingTracker{}
	store := &fakeStore{err: ErrNotFound}
	s := NewSaver(store, notifier, tracker, nil)

	_, err := s.Save(context.Background(), loadedState(t))
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []string{"Failed to save the story (Not Found)"}, notifier.messages)
	require.Len(t, tracker.errs, 1)
	assert.False(t, s.IsSaving(), "in-flight flag is reset after a failure")

	store.err = errors.New("<p>Sorry, you are not allowed to edit this post.</p>")
	err = s.AutoSave(context.Background(), loadedState(t))
	require.Error(t, err)
	assert.Equal(t, "Failed to save the story: Sorry, you are not allowed to edit this post.", notifier.messages[1])
}

func TestSaverRejectsConcurrentSave(t *testing.T) {
	store := &fakeStore{block: make(chan struct{})}
	s := NewSaver(store, nil, nil, nil)
	st := loadedState(t)

	done := make(chan error)
	go func() {
		_, err := s.Save(context.Background(), st)
		done <- err
	}()
	require.Eventually(t, s.IsSaving, time.Second, time.Millisecond)

	_, err := s.Save(context.Background(), st)
	assert.ErrorIs(t, err, ErrSaveInFlight)

	close(store.block)
	require.NoError(t, <-done)
}

func TestSaveErrorMessage(t *testing.T) {
	assert.Equal(t, "Failed to save the story", SaveErrorMessage(errors.New("<br/>")))
	assert.Equal(t, "Failed to save the story (Gateway Timeout)", SaveErrorMessage(context.DeadlineExceeded))
	assert.Equal(t, "Failed to save the story (Unprocessable Entity)", SaveErrorMessage(ErrInvalidData))
}
