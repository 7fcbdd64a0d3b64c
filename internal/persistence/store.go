package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
)

var (
	ErrNotFound     = errors.New("story not found")
	ErrSaveInFlight = errors.New("a save is already in progress")
	ErrInvalidData  = errors.New("invalid story data")
)

// RawStory is a story as stored: metadata columns plus the editor payload.
type RawStory struct {
	ID        string          `json:"id"`
	Title     string          `json:"title"`
	Status    string          `json:"status"`
	Date      *string         `json:"date"`
	Modified  string          `json:"modified"`
	Excerpt   string          `json:"excerpt"`
	Slug      string          `json:"slug"`
	Link      string          `json:"link"`
	StoryData json.RawMessage `json:"storyData"`
}

// StoryData is the editor payload kept in RawStory.StoryData.
type StoryData struct {
	Version             int             `json:"version"`
	Pages               json.RawMessage `json:"pages"`
	AutoAdvance         *bool           `json:"autoAdvance,omitempty"`
	DefaultPageDuration *float64        `json:"defaultPageDuration,omitempty"`
}

// Store loads and saves stories.
type Store interface {
	GetStoryByID(ctx context.Context, id string) (*RawStory, error)
	SaveStoryByID(ctx context.Context, s *RawStory) (*RawStory, error)
	// AutoSaveByID keeps a revision without touching the published copy.
	AutoSaveByID(ctx context.Context, s *RawStory) error
}

// StatusCode maps a store error onto the HTTP status that describes it best,
// or 0 when none does.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSaveInFlight):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return 0
	}
}
