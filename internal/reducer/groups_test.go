package reducer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/storyeditor/internal/story"
)

func TestAddAndUpdateGroup(t *testing.T) {
	s := restoredState(newPage("p1", defaultBG("bg"), shape("a")))

	next := Reduce(s, AddGroup{GroupID: "g", Name: "Group", IsLocked: true})
	assert.Equal(t, story.Group{Name: "Group", IsLocked: true}, next.Pages[0].Groups["g"])
	assert.Nil(t, s.Pages[0].Groups)

	assert.Same(t, next, Reduce(next, AddGroup{GroupID: "g", Name: "Other"}))
	assert.Same(t, next, Reduce(next, AddGroup{Name: "No id"}))

	renamed := Reduce(next, UpdateGroup{GroupID: "g", Properties: story.Properties{"name": "Renamed", "isCollapsed": true}})
	assert.Equal(t, story.Group{Name: "Renamed", IsLocked: true, IsCollapsed: true}, renamed.Pages[0].Groups["g"])
	assert.Equal(t, "Group", next.Pages[0].Groups["g"].Name)

	assert.Same(t, next, Reduce(next, UpdateGroup{GroupID: "g", Properties: story.Properties{"name": "Group"}}))
	assert.Same(t, next, Reduce(next, UpdateGroup{GroupID: "missing", Properties: story.Properties{"name": "x"}}))
}

func groupPage() *story.Page {
	page := newPage("p1", defaultBG("bg"), grouped(shape("a"), "g"), grouped(shape("b"), "g"), shape("c"))
	page.Groups = map[string]story.Group{"g": {Name: "G"}}
	page.Animations = []*story.Animation{{ID: "anim", Targets: []string{"b"}}}
	return page
}

func TestDeleteGroup(t *testing.T) {
	s := selecting(restoredState(groupPage()), "a", "b")

	kept := Reduce(s, DeleteGroup{GroupID: "g"})
	assert.Equal(t, []string{"bg", "a", "b", "c"}, idsOf(kept.Pages[0]))
	assert.Empty(t, kept.Pages[0].Elements[1].GroupID)
	assert.Empty(t, kept.Pages[0].Elements[2].GroupID)
	assert.NotContains(t, kept.Pages[0].Groups, "g")
	assert.Equal(t, "g", s.Pages[0].Elements[1].GroupID)

	removed := Reduce(s, DeleteGroup{GroupID: "g", IncludeElements: true})
	assert.Equal(t, []string{"bg", "c"}, idsOf(removed.Pages[0]))
	assert.NotContains(t, removed.Pages[0].Groups, "g")
	assert.Empty(t, removed.Pages[0].Animations)
	assert.Empty(t, removed.Selection)

	assert.Same(t, s, Reduce(s, DeleteGroup{GroupID: "missing"}))
}

func TestDuplicateGroup(t *testing.T) {
	s := restoredState(groupPage())

	next := Reduce(s, DuplicateGroup{OldGroupID: "g", GroupID: "g2"})
	p := next.Pages[0]
	require.Len(t, p.Elements, 6)
	assert.Equal(t, []string{"bg", "a", "b"}, idsOf(p)[:3])
	assert.Equal(t, "c", p.Elements[5].ID)
	assert.Equal(t, "g2", p.Elements[3].GroupID)
	assert.Equal(t, "g2", p.Elements[4].GroupID)
	assert.Equal(t, story.Group{Name: "G Copy"}, p.Groups["g2"])
	assert.Equal(t, []string{p.Elements[3].ID, p.Elements[4].ID}, next.Selection)
	require.Len(t, p.Animations, 2)
	assert.Equal(t, []string{p.Elements[4].ID}, p.Animations[1].Targets)
	assertContiguous(t, p)

	// both copies move by the same offset
	assert.InDelta(t, p.Elements[3].X, p.Elements[4].X, 0)

	generated := Reduce(s, DuplicateGroup{OldGroupID: "g", Name: "Copy", IsLocked: true})
	var newID string
	for id := range generated.Pages[0].Groups {
		if id != "g" {
			newID = id
		}
	}
	require.NotEmpty(t, newID)
	assert.Equal(t, story.Group{Name: "Copy", IsLocked: true}, generated.Pages[0].Groups[newID])

	assert.Same(t, s, Reduce(s, DuplicateGroup{OldGroupID: "missing"}))
	assert.Same(t, s, Reduce(s, DuplicateGroup{OldGroupID: "g", GroupID: "g"}))
}

func TestRemoveElementFromGroup(t *testing.T) {
	page := newPage("p1", defaultBG("bg"), grouped(shape("a"), "g"), grouped(shape("b"), "g"), grouped(shape("c"), "g"), shape("d"))
	page.Groups = map[string]story.Group{"g": {Name: "G"}}
	s := restoredState(page)

	next := Reduce(s, RemoveElementFromGroup{ElementID: "a", GroupID: "g"})
	assert.Equal(t, []string{"bg", "b", "c", "a", "d"}, idsOf(next.Pages[0]))
	assert.Empty(t, next.Pages[0].Elements[3].GroupID)
	assert.Contains(t, next.Pages[0].Groups, "g")
	assertContiguous(t, next.Pages[0])

	next = Reduce(next, RemoveElementFromGroup{ElementID: "b", GroupID: "g"})
	next = Reduce(next, RemoveElementFromGroup{ElementID: "c", GroupID: "g"})
	assert.NotContains(t, next.Pages[0].Groups, "g")

	assert.Same(t, s, Reduce(s, RemoveElementFromGroup{ElementID: "d", GroupID: "g"}))
}
