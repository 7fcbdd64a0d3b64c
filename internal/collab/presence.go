package collab

import (
	"maps"
	"slices"
	"sync"

	"github.com/inamate/storyeditor/internal/story"
)

// PresenceManager tracks where each connected client is looking.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*PresencePayload // clientID -> presence
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*PresencePayload),
	}
}

func (pm *PresenceManager) Update(clientID string, p *PresencePayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[clientID] = p
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

func (pm *PresenceManager) GetAll() map[string]*PresencePayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return maps.Clone(pm.presences)
}

// Prune drops selections and page references that no longer exist in pages.
// It returns the client ids whose presence changed.
func (pm *PresenceManager) Prune(pages []*story.Page) []string {
	ids := make(map[string]struct{})
	for _, p := range pages {
		ids[p.ID] = struct{}{}
		for _, el := range p.Elements {
			ids[el.ID] = struct{}{}
		}
	}

	pm.mu.Lock()
	defer pm.mu.Unlock()
	var changed []string
	for clientID, cur := range pm.presences {
		next := *cur
		if _, ok := ids[next.PageID]; !ok && next.PageID != "" {
			next.PageID = ""
		}
		next.Selection = slices.DeleteFunc(slices.Clone(next.Selection), func(id string) bool {
			_, ok := ids[id]
			return !ok
		})
		if next.PageID != cur.PageID || len(next.Selection) != len(cur.Selection) {
			pm.presences[clientID] = &next
			changed = append(changed, clientID)
		}
	}
	slices.Sort(changed)
	return changed
}

func (pm *PresenceManager) Get(clientID string) (*PresencePayload, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	p, ok := pm.presences[clientID]
	return p, ok
}

func (pm *PresenceManager) StateMessage() *Message {
	return newMessage(TypePresenceState, PresenceStatePayload{Presences: pm.GetAll()})
}
