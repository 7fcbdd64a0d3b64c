package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/inamate/storyeditor/internal/history"
	"github.com/inamate/storyeditor/internal/persistence"
	"github.com/inamate/storyeditor/internal/reducer"
)

const autoDraftStatus = "auto-draft"

// Manager keeps one session per open story.
type Manager struct {
	deps   Deps
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(deps Deps, opts Options) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
		deps.Logger = logger
	}
	return &Manager{
		deps:     deps,
		opts:     opts,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Open returns the session for storyID, loading the story on first use.
func (m *Manager) Open(ctx context.Context, storyID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[storyID]; ok {
		return s, nil
	}

	raw, err := m.deps.Stories.GetStoryByID(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("get story %s: %w", storyID, err)
	}
	restore, err := persistence.LoadStory(raw, m.opts.Capabilities)
	if err != nil {
		return nil, fmt.Errorf("load story %s: %w", storyID, err)
	}

	isNew := raw.Status == autoDraftStatus
	s := NewSession(storyID, isNew, m.deps, m.opts)
	if m.deps.Backups != nil {
		e, ok, err := m.deps.Backups.Load(ctx, storyID, isNew)
		switch {
		case err != nil:
			m.logger.Warn("reading backup failed", "story", storyID, "error", err)
		case ok && backupDiffers(e, restore):
			s.recovered = &e
		}
	}
	s.Load(restore)

	if err := s.Prerender(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("prerender story %s: %w", storyID, err)
	}

	m.sessions[storyID] = s
	m.logger.Info("story opened", "story", storyID, "pages", len(restore.Pages))
	return s, nil
}

// backupDiffers reports whether a backup holds edits the server copy lacks.
func backupDiffers(e history.Entry, loaded reducer.Restore) bool {
	if e.Story == nil {
		return false
	}
	if e.Story.Title != loaded.Story.Title || len(e.Pages) != len(loaded.Pages) {
		return true
	}
	for i := range e.Pages {
		if !reflect.DeepEqual(e.Pages[i], loaded.Pages[i]) {
			return true
		}
	}
	return false
}

// Get returns the session for storyID if it is already open.
func (m *Manager) Get(storyID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[storyID]
	return s, ok
}

// Close closes the session for storyID if it is open.
func (m *Manager) Close(storyID string) {
	m.mu.Lock()
	s, ok := m.sessions[storyID]
	delete(m.sessions, storyID)
	m.mu.Unlock()
	if ok {
		s.Close()
		m.logger.Info("story closed", "story", storyID)
	}
}

// CloseAll closes every session and drops the local backups, which only
// protect a running editor.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	if m.deps.Backups != nil {
		return m.deps.Backups.Clear(ctx)
	}
	return nil
}
