package reducer

import (
	"slices"

	"github.com/inamate/storyeditor/internal/story"
)

// moveArrayElement returns a copy of s with the item at from moved to to.
func moveArrayElement[T any](s []T, from, to int) []T {
	out := slices.Clone(s)
	item := out[from]
	out = slices.Delete(out, from, from+1)
	return slices.Insert(out, to, item)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func isInsideRange(v, lo, hi int) bool {
	return v >= lo && v <= hi
}

// exclusion returns incoming minus ids already in existing. When incoming
// holds the same id more than once only the last occurrence survives.
func exclusion(existing, incoming []*story.Element) []*story.Element {
	seen := make(map[string]bool, len(existing))
	for _, el := range existing {
		seen[el.ID] = true
	}
	last := make(map[string]int, len(incoming))
	for i, el := range incoming {
		if el != nil {
			last[el.ID] = i
		}
	}
	out := make([]*story.Element, 0, len(incoming))
	for i, el := range incoming {
		if el == nil || last[el.ID] != i || seen[el.ID] {
			continue
		}
		out = append(out, el)
	}
	return out
}

// intersect returns the ids of a that are also in b, in a's order.
func intersect(a, b []string) []string {
	out := make([]string, 0, len(a))
	for _, id := range a {
		if slices.Contains(b, id) {
			out = append(out, id)
		}
	}
	return out
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func without(ids []string, remove []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(remove, id) {
			out = append(out, id)
		}
	}
	return out
}

// sameSet reports whether a and b hold the same ids ignoring order.
func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	return len(intersect(a, b)) == len(b)
}

// removeAnimationsWithElementIDs drops ids from every animation's targets
// and drops animations left without targets.
func removeAnimationsWithElementIDs(anims []*story.Animation, ids []string) []*story.Animation {
	if len(anims) == 0 {
		return anims
	}
	out := make([]*story.Animation, 0, len(anims))
	for _, a := range anims {
		targets := without(a.Targets, ids)
		if len(targets) == 0 {
			continue
		}
		if len(targets) != len(a.Targets) {
			c := *a
			c.Targets = targets
			a = &c
		}
		out = append(out, a)
	}
	return out
}

// dropAnimationsTargeting removes every animation that targets any of ids.
func dropAnimationsTargeting(anims []*story.Animation, ids ...string) []*story.Animation {
	if len(anims) == 0 {
		return anims
	}
	out := make([]*story.Animation, 0, len(anims))
	for _, a := range anims {
		if slices.ContainsFunc(ids, a.HasTarget) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// updateAnimations adds, replaces or (with Delete set) removes anim by id,
// preserving the order of the others.
func updateAnimations(anims []*story.Animation, anim *story.Animation) []*story.Animation {
	out := make([]*story.Animation, 0, len(anims)+1)
	found := false
	for _, a := range anims {
		if a.ID != anim.ID {
			out = append(out, a)
			continue
		}
		found = true
		if !anim.Delete {
			out = append(out, anim)
		}
	}
	if !found && !anim.Delete {
		out = append(out, anim)
	}
	return out
}

func elementIDs(els []*story.Element) []string {
	ids := make([]string, len(els))
	for i, el := range els {
		ids[i] = el.ID
	}
	return ids
}

// groupMembers returns the ids of the page elements that belong to groupID.
func groupMembers(page *story.Page, groupID string) []string {
	var ids []string
	for _, el := range page.Elements {
		if groupID != "" && el.GroupID == groupID {
			ids = append(ids, el.ID)
		}
	}
	return ids
}

func lastIndexOfGroup(page *story.Page, groupID string) int {
	return lastIndexFunc(page.Elements, func(el *story.Element) bool { return el.GroupID == groupID })
}

func lastIndexFunc[T any](s []T, f func(T) bool) int {
	for i := len(s) - 1; i >= 0; i-- {
		if f(s[i]) {
			return i
		}
	}
	return -1
}
