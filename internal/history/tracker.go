package history

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"
	"sync"

	"github.com/inamate/storyeditor/internal/reducer"
	"github.com/inamate/storyeditor/internal/story"
)

// volatileKeys are element paths that change without a user edit, e.g.
// when media finishes processing or font metrics load. Changes limited to
// them are not recorded.
var volatileKeys = [][]string{
	{"resource", "baseColor"},
	{"resource", "blurHash"},
	{"resource", "id"},
	{"resource", "isMuted"},
	{"resource", "posterId"},
	{"resource", "poster"},
	{"resource", "isOptimized"},
	{"resource", "length"},
	{"resource", "lengthFormatted"},
	{"resource", "trimData"},
	{"resource", "creationDate"},
	{"font", "metrics"},
	{"font", "weights"},
	{"font", "variants"},
	{"font", "fallbacks"},
	{"font", "styles"},
}

// Tracker decides which state changes become history entries.
type Tracker struct {
	history *History

	mu   sync.Mutex
	last *reducer.State
}

func NewTracker(h *History) *Tracker {
	return &Tracker{history: h}
}

// Observe looks at a new state and records it when story, pages or
// capabilities changed in a way worth undoing. It reports whether an entry
// was appended.
func (t *Tracker) Observe(st *reducer.State) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	last := t.last
	t.last = st

	if req, ok := t.history.RequestedState(); ok && samePages(req.Pages, st.Pages) {
		t.history.Append(EntryFromState(st))
		return false
	}

	if last != nil {
		sameStory := last.Story == st.Story && maps.Equal(last.Capabilities, st.Capabilities)
		if sameStory && samePages(last.Pages, st.Pages) {
			return false
		}
		if sameStory && equalIgnoringVolatile(last.Pages, st.Pages) {
			return false
		}
	}
	if hasBlobResources(st.Pages) {
		return false
	}
	t.history.Append(EntryFromState(st))
	return true
}

// Reset forgets the last observed state so the next one is always recorded.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = nil
}

func hasBlobResources(pages []*story.Page) bool {
	for _, p := range pages {
		if slices.ContainsFunc(p.Elements, story.HasBlobResource) {
			return true
		}
	}
	return false
}

func equalIgnoringVolatile(a, b []*story.Page) bool {
	ma, err := withoutVolatile(a)
	if err != nil {
		return false
	}
	mb, err := withoutVolatile(b)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(ma, mb)
}

func withoutVolatile(pages []*story.Page) ([]map[string]any, error) {
	data, err := json.Marshal(pages)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	for _, p := range out {
		els, _ := p["elements"].([]any)
		for _, el := range els {
			m, ok := el.(map[string]any)
			if !ok {
				continue
			}
			for _, path := range volatileKeys {
				deletePath(m, path)
			}
		}
	}
	return out, nil
}

func deletePath(m map[string]any, path []string) {
	for _, key := range path[:len(path)-1] {
		next, ok := m[key].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	delete(m, path[len(path)-1])
}

// Restorer is the part of the editor store that replay needs.
type Restorer interface {
	Restore(reducer.Restore) *reducer.State
}

// Replay restores the entry requested by the last undo or redo. It reports
// false when no request is pending.
func Replay(h *History, r Restorer) bool {
	e, ok := h.RequestedState()
	if !ok {
		return false
	}
	r.Restore(e.Restore())
	return true
}
