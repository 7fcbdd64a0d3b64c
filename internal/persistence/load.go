package persistence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/inamate/storyeditor/internal/reducer"
	"github.com/inamate/storyeditor/internal/story"
)

const defaultPageDuration = 7

// floatingStatuses are the unpublished statuses whose date follows the
// modification date until one is set explicitly.
var floatingStatuses = []string{"draft", "auto-draft", "pending"}

// LoadStory turns a stored story into the Restore action that opens it in
// the editor.
func LoadStory(raw *RawStory, capabilities map[string]bool) (reducer.Restore, error) {
	var data StoryData
	if len(bytes.TrimSpace(raw.StoryData)) > 0 {
		if err := json.Unmarshal(raw.StoryData, &data); err != nil {
			return reducer.Restore{}, fmt.Errorf("%w: %v", ErrInvalidData, err)
		}
	}

	var pages []*story.Page
	if len(data.Pages) > 0 && string(data.Pages) != "null" {
		if err := json.Unmarshal(data.Pages, &pages); err != nil {
			return reducer.Restore{}, fmt.Errorf("%w: pages: %v", ErrInvalidData, err)
		}
	}
	pages = slices.DeleteFunc(pages, func(p *story.Page) bool { return p == nil })
	if len(pages) == 0 {
		pages = []*story.Page{story.NewPage()}
	}
	for i, p := range pages {
		pages[i] = withDefaultBackground(p)
	}

	s := &story.Story{
		StoryID:             raw.ID,
		Title:               raw.Title,
		Status:              raw.Status,
		Date:                raw.Date,
		Modified:            raw.Modified,
		Excerpt:             raw.Excerpt,
		Slug:                raw.Slug,
		Link:                raw.Link,
		DefaultPageDuration: defaultPageDuration,
		GlobalStoryStyles:   story.GlobalStoryStyles{Colors: []story.Pattern{}, TextStyles: []map[string]any{}},
	}
	if data.AutoAdvance != nil {
		s.AutoAdvance = *data.AutoAdvance
	}
	if data.DefaultPageDuration != nil {
		s.DefaultPageDuration = *data.DefaultPageDuration
	}
	if hasFloatingDate(raw) {
		s.Date = nil
	}

	if capabilities == nil {
		capabilities = map[string]bool{}
	}
	return reducer.Restore{
		Pages:        pages,
		Current:      pages[0].ID,
		Selection:    []string{},
		Story:        s,
		Capabilities: capabilities,
	}, nil
}

func hasFloatingDate(raw *RawStory) bool {
	if !slices.Contains(floatingStatuses, raw.Status) {
		return false
	}
	return raw.Date == nil || *raw.Date == raw.Modified
}

// withDefaultBackground makes sure p starts with a background element and
// remembers a default one.
func withDefaultBackground(p *story.Page) *story.Page {
	if len(p.Elements) > 0 && p.Elements[0].IsBackground && p.DefaultBackgroundElement != nil {
		return p
	}
	c := *p
	if len(c.Elements) == 0 || !c.Elements[0].IsBackground {
		c.Elements = append([]*story.Element{story.NewDefaultBackground()}, c.Elements...)
	}
	if c.DefaultBackgroundElement == nil {
		if bg := c.Elements[0]; bg.IsDefaultBackground {
			c.DefaultBackgroundElement = story.CloneElement(bg)
		} else {
			c.DefaultBackgroundElement = story.NewDefaultBackground()
		}
	}
	return &c
}

// EncodeStory is the inverse of LoadStory: it packs the editor state back
// into a RawStory for saving.
func EncodeStory(st *reducer.State) (*RawStory, error) {
	pages, err := json.Marshal(st.Pages)
	if err != nil {
		return nil, fmt.Errorf("encode pages: %w", err)
	}
	s := st.Story
	if s == nil {
		s = &story.Story{}
	}
	autoAdvance := s.AutoAdvance
	duration := s.DefaultPageDuration
	data, err := json.Marshal(StoryData{
		Version:             1,
		Pages:               pages,
		AutoAdvance:         &autoAdvance,
		DefaultPageDuration: &duration,
	})
	if err != nil {
		return nil, fmt.Errorf("encode story data: %w", err)
	}
	return &RawStory{
		ID:        s.StoryID,
		Title:     s.Title,
		Status:    s.Status,
		Date:      s.Date,
		Modified:  s.Modified,
		Excerpt:   s.Excerpt,
		Slug:      s.Slug,
		Link:      s.Link,
		StoryData: data,
	}, nil
}
