package history

import (
	"sync"

	"github.com/inamate/storyeditor/internal/reducer"
	"github.com/inamate/storyeditor/internal/story"
)

// DefaultSize is the number of entries kept when no size is configured.
const DefaultSize = 50

// Entry is one recorded point of the document.
type Entry struct {
	Story        *story.Story    `json:"story"`
	Current      string          `json:"current"`
	Selection    []string        `json:"selection"`
	Pages        []*story.Page   `json:"pages"`
	Capabilities map[string]bool `json:"capabilities"`
}

// EntryFromState captures the recorded parts of st.
func EntryFromState(st *reducer.State) Entry {
	return Entry{
		Story:        st.Story,
		Current:      st.Current,
		Selection:    st.Selection,
		Pages:        st.Pages,
		Capabilities: st.Capabilities,
	}
}

// Restore turns the entry back into the action that reinstates it.
func (e Entry) Restore() reducer.Restore {
	return reducer.Restore{
		Pages:        e.Pages,
		Current:      e.Current,
		Selection:    e.Selection,
		Story:        e.Story,
		Capabilities: e.Capabilities,
	}
}

// History is a bounded undo stack. Entries are kept newest first and offset
// counts how many steps back from the newest the document currently is.
type History struct {
	mu        sync.Mutex
	size      int
	entries   []Entry
	offset    int
	requested *Entry
	version   int
}

func New(size int) *History {
	if size <= 0 {
		size = DefaultSize
	}
	return &History{size: size}
}

// Append records e. When e is the state an undo or redo asked for, the
// request is cleared and nothing is recorded.
func (h *History) Append(e Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.requested != nil && samePages(h.requested.Pages, e.Pages) {
		h.requested = nil
		return
	}

	// anything after the current offset is the redo branch and is dropped
	entries := make([]Entry, 0, min(len(h.entries)-h.offset+1, h.size))
	entries = append(entries, e)
	for _, old := range h.entries[h.offset:] {
		if len(entries) == h.size {
			break
		}
		entries = append(entries, old)
	}
	h.entries = entries
	h.offset = 0
	h.requested = nil
	h.version++
}

// Undo moves count steps back. It reports false when there is nothing to
// undo.
func (h *History) Undo(count int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if count < 1 || h.offset >= len(h.entries)-1 {
		return false
	}
	h.offset = min(len(h.entries)-1, h.offset+count)
	h.request()
	h.version--
	return true
}

// Redo moves count steps forward.
func (h *History) Redo(count int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if count < 1 || h.offset == 0 {
		return false
	}
	h.offset = max(0, h.offset-count)
	h.request()
	h.version++
	return true
}

func (h *History) request() {
	e := h.entries[h.offset]
	h.requested = &e
}

func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offset < len(h.entries)-1
}

func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.offset > 0
}

// Clear drops every entry, for example after loading a different story.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
	h.offset = 0
	h.requested = nil
	h.version = 0
}

// VersionNumber goes up with every recorded change and redo and down with
// every undo.
func (h *History) VersionNumber() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.version
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// RequestedState returns the entry the last undo or redo asked for, if it
// has not been replayed yet.
func (h *History) RequestedState() (Entry, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.requested == nil {
		return Entry{}, false
	}
	return *h.requested, true
}

func samePages(a, b []*story.Page) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
