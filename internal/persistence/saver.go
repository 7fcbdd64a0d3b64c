package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	strip "github.com/grokify/html-strip-tags-go"

	"github.com/inamate/storyeditor/internal/reducer"
)

const saveFailedMessage = "Failed to save the story"

// Notifier shows a short message to the person editing.
type Notifier interface {
	Notify(ctx context.Context, message string)
}

// ErrorTracker reports errors to an external collector.
type ErrorTracker interface {
	Track(ctx context.Context, err error)
}

// Saver writes editor state to a Store, one save at a time.
type Saver struct {
	store    Store
	notifier Notifier
	tracker  ErrorTracker
	logger   *slog.Logger

	mu     sync.Mutex
	saving bool
}

func NewSaver(store Store, notifier Notifier, tracker ErrorTracker, logger *slog.Logger) *Saver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Saver{store: store, notifier: notifier, tracker: tracker, logger: logger}
}

// IsSaving reports whether a save or autosave is running.
func (s *Saver) IsSaving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saving
}

// Save stores st as the story's current version and returns what was saved.
func (s *Saver) Save(ctx context.Context, st *reducer.State) (*RawStory, error) {
	var saved *RawStory
	err := s.run(ctx, st, func(r *RawStory) error {
		var err error
		saved, err = s.store.SaveStoryByID(ctx, r)
		return err
	})
	return saved, err
}

// AutoSave stores st as a revision without publishing it.
func (s *Saver) AutoSave(ctx context.Context, st *reducer.State) error {
	return s.run(ctx, st, func(r *RawStory) error {
		return s.store.AutoSaveByID(ctx, r)
	})
}

func (s *Saver) run(ctx context.Context, st *reducer.State, save func(*RawStory) error) error {
	s.mu.Lock()
	if s.saving {
		s.mu.Unlock()
		return ErrSaveInFlight
	}
	s.saving = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.saving = false
		s.mu.Unlock()
	}()

	raw, err := EncodeStory(st)
	if err == nil {
		err = save(raw)
	}
	if err != nil {
		id := ""
		if st.Story != nil {
			id = st.Story.StoryID
		}
		s.logger.Error("story save failed", "story", id, "error", err)
		if s.notifier != nil {
			s.notifier.Notify(ctx, SaveErrorMessage(err))
		}
		if s.tracker != nil {
			s.tracker.Track(ctx, err)
		}
		return err
	}
	return nil
}

// SaveErrorMessage turns a save error into text fit for a notification.
func SaveErrorMessage(err error) string {
	if code := StatusCode(err); code != 0 {
		return fmt.Sprintf("%s (%s)", saveFailedMessage, http.StatusText(code))
	}
	if msg := strings.TrimSpace(strip.StripTags(err.Error())); msg != "" {
		return fmt.Sprintf("%s: %s", saveFailedMessage, msg)
	}
	return saveFailedMessage
}
