package reducer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inamate/storyeditor/internal/story"
)

func locked(el *story.Element) *story.Element {
	el.IsLocked = true
	return el
}

func TestSelectionCollapse(t *testing.T) {
	s := restoredState(newPage("p1", defaultBG("bg"), shape("e1"), shape("e2")))

	s = Reduce(s, SelectElement{ElementID: "bg"})
	assert.Equal(t, []string{"bg"}, s.Selection)

	s = Reduce(s, SelectElement{ElementID: "e2"})
	assert.Equal(t, []string{"e2"}, s.Selection)

	s = Reduce(s, SelectElement{ElementID: "e1"})
	assert.Equal(t, []string{"e2", "e1"}, s.Selection)

	assert.Same(t, s, Reduce(s, SelectElement{ElementID: "e1"}))
}

func TestSelectLockedElementSelectsAlone(t *testing.T) {
	s := selecting(restoredState(newPage("p1", defaultBG("bg"), shape("a"), locked(shape("l")))), "a")
	next := Reduce(s, SelectElement{ElementID: "l"})
	assert.Equal(t, []string{"l"}, next.Selection)

	next = Reduce(next, SelectElement{ElementID: "a"})
	assert.Equal(t, []string{"a"}, next.Selection)
}

func TestSetSelectedElementsFiltersMultiSelection(t *testing.T) {
	placeholder := &story.Element{ID: "v", Type: story.ElementTypeVideo, Resource: &story.Resource{IsPlaceholder: true}}
	s := restoredState(newPage("p1", defaultBG("bg"), shape("a"), locked(shape("l")), placeholder, shape("b")))

	next := Reduce(s, SetSelectedElements{ElementIDs: []string{"bg", "a", "l", "v", "b", "a"}})
	assert.Equal(t, []string{"a", "b"}, next.Selection)

	single := Reduce(s, SetSelectedElements{ElementIDs: []string{"l"}})
	assert.Equal(t, []string{"l"}, single.Selection)
}

func TestSetSelectedElementsKeepsLockedGroupMembers(t *testing.T) {
	s := restoredState(newPage("p1", defaultBG("bg"), grouped(shape("a"), "g"), grouped(locked(shape("l")), "g")))
	next := Reduce(s, SetSelectedElements{ElementIDs: []string{"a", "l"}})
	assert.Equal(t, []string{"a", "l"}, next.Selection)
}

func TestSetSelectedElementsSameSetIsNoop(t *testing.T) {
	s := selecting(restoredState(newPage("p1", defaultBG("bg"), shape("a"), shape("b"))), "a", "b")
	assert.Same(t, s, Reduce(s, SetSelectedElements{ElementIDs: []string{"b", "a"}}))
	assert.Same(t, s, Reduce(s, SetSelectedElements{Updater: func(cur []string) []string { return cur }}))
	assert.Same(t, s, Reduce(s, SetSelectedElements{}))

	next := Reduce(s, SetSelectedElements{Updater: func(cur []string) []string { return cur[:1] }})
	assert.Equal(t, []string{"a"}, next.Selection)
	assert.Equal(t, []string{"a", "b"}, s.Selection)
}

func TestSelectWithLinked(t *testing.T) {
	s := restoredState(newPage("p1", defaultBG("bg"), shape("x"), grouped(shape("a"), "g"), grouped(shape("b"), "g")))

	next := Reduce(s, SelectElement{ElementID: "a", WithLinked: true})
	assert.Equal(t, []string{"a", "b"}, next.Selection)

	next = Reduce(next, SelectElement{ElementID: "x"})
	assert.ElementsMatch(t, []string{"a", "b", "x"}, next.Selection)

	next = Reduce(next, UnselectElement{ElementID: "b", WithLinked: true})
	assert.Equal(t, []string{"x"}, next.Selection)

	next = Reduce(next, SetSelectedElements{ElementIDs: []string{"b"}, WithLinked: true})
	assert.Equal(t, []string{"b", "a"}, next.Selection)
}

func TestToggleElementInSelection(t *testing.T) {
	s := selecting(restoredState(newPage("p1", defaultBG("bg"), shape("a"), shape("b"))), "a")

	next := Reduce(s, ToggleElementInSelection{ElementID: "b"})
	assert.Equal(t, []string{"a", "b"}, next.Selection)

	next = Reduce(next, ToggleElementInSelection{ElementID: "a"})
	assert.Equal(t, []string{"b"}, next.Selection)

	assert.Same(t, next, Reduce(next, UnselectElement{ElementID: "missing"}))
}

func TestToggleLayer(t *testing.T) {
	s := selecting(restoredState(newPage("p1", defaultBG("bg"), shape("a"), shape("b"), shape("c"), shape("d"))), "d")

	next := Reduce(s, ToggleLayer{ElementID: "b", ShiftKey: true})
	assert.Equal(t, []string{"d", "c", "b"}, next.Selection)

	next = Reduce(next, ToggleLayer{ElementID: "a", MetaKey: true})
	assert.Equal(t, []string{"d", "c", "b", "a"}, next.Selection)

	next = Reduce(next, ToggleLayer{ElementID: "c", MetaKey: true})
	assert.Equal(t, []string{"d", "b", "a"}, next.Selection)

	next = Reduce(next, ToggleLayer{ElementID: "c"})
	assert.Equal(t, []string{"c"}, next.Selection)

	forward := Reduce(selecting(s, "a"), ToggleLayer{ElementID: "c", ShiftKey: true})
	assert.Equal(t, []string{"a", "b", "c"}, forward.Selection)

	// a range reaching the background leaves it out
	toBG := Reduce(selecting(s, "b"), ToggleLayer{ElementID: "bg", ShiftKey: true})
	assert.Equal(t, []string{"b", "a"}, toBG.Selection)

	fresh := Reduce(selecting(s), ToggleLayer{ElementID: "b", ShiftKey: true})
	assert.Equal(t, []string{"b"}, fresh.Selection)
}
