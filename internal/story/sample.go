package story

import (
	"time"

	"github.com/inamate/storyeditor/internal/typeid"
)

func white() *Pattern {
	return &Pattern{Color: &Color{R: 255, G: 255, B: 255}}
}

// NewDefaultBackground creates the shape that fills a page when no custom
// background is set.
func NewDefaultBackground() *Element {
	return &Element{
		ID:                  typeid.NewElementID(),
		Type:                ElementTypeShape,
		X:                   1,
		Y:                   1,
		Width:               1,
		Height:              1,
		Opacity:             100,
		LockAspectRatio:     true,
		IsBackground:        true,
		IsDefaultBackground: true,
		Mask:                &Mask{Type: "rectangle"},
		BackgroundColor:     white(),
		Flip:                &Flip{},
	}
}

// NewPage creates a page holding only a default background element.
func NewPage() *Page {
	bg := NewDefaultBackground()
	return &Page{
		ID:                       typeid.NewPageID(),
		Elements:                 []*Element{bg},
		Animations:               []*Animation{},
		BackgroundColor:          white(),
		DefaultBackgroundElement: CloneElement(bg),
	}
}

// NewStory creates story metadata with editor defaults.
func NewStory(storyID, title string) *Story {
	return &Story{
		StoryID:             storyID,
		Title:               title,
		Status:              "draft",
		Modified:            time.Now().UTC().Format(time.RFC3339),
		GlobalStoryStyles:   GlobalStoryStyles{Colors: []Pattern{}, TextStyles: []map[string]any{}},
		DefaultPageDuration: 7,
	}
}

// NewSampleStory builds a two page story used by the playground.
func NewSampleStory(storyID string) (*Story, []*Page) {
	cover := NewPage()
	cover.BackgroundColor = &Pattern{Color: &Color{R: 26, G: 26, B: 46}}
	cover.Elements[0].BackgroundColor = cover.BackgroundColor

	title := &Element{
		ID:       typeid.NewElementID(),
		Type:     ElementTypeText,
		X:        40,
		Y:        80,
		Width:    332,
		Height:   60,
		Opacity:  100,
		Content:  "Untitled story",
		FontSize: 36,
		Font:     &Font{Family: "Roboto", Service: "fonts.google.com"},
	}
	badge := &Element{
		ID:              typeid.NewElementID(),
		Type:            ElementTypeShape,
		X:               156,
		Y:               400,
		Width:           100,
		Height:          100,
		Opacity:         100,
		Mask:            &Mask{Type: "circle"},
		BackgroundColor: &Pattern{Color: &Color{R: 233, G: 69, B: 96}},
	}
	cover.Elements = append(cover.Elements, title, badge)
	cover.Animations = []*Animation{{
		ID:       typeid.NewAnimationID(),
		Type:     "fade-in",
		Targets:  []string{title.ID},
		Duration: 600,
	}}

	second := NewPage()
	return NewStory(storyID, "Untitled story"), []*Page{cover, second}
}
