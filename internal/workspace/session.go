// Package workspace ties the editor store to everything that reacts to its
// changes: history, page canvases, local backups and saving.
package workspace

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/inamate/storyeditor/internal/contrast"
	"github.com/inamate/storyeditor/internal/editor"
	"github.com/inamate/storyeditor/internal/history"
	"github.com/inamate/storyeditor/internal/idlequeue"
	"github.com/inamate/storyeditor/internal/pagecanvas"
	"github.com/inamate/storyeditor/internal/persistence"
	"github.com/inamate/storyeditor/internal/reducer"
	"github.com/inamate/storyeditor/internal/story"
)

var (
	ErrPageNotFound    = errors.New("page not found")
	ErrElementNotFound = errors.New("element not found on the current page")
)

const (
	backupTaskName   = "story-backup"
	prerenderWorkers = 4
)

// BackupStore keeps the latest edit of each story outside the server.
type BackupStore interface {
	Save(ctx context.Context, storyID string, isNew bool, e history.Entry) error
	Load(ctx context.Context, storyID string, isNew bool) (history.Entry, bool, error)
	Delete(ctx context.Context, storyID string, isNew bool) error
	Clear(ctx context.Context) error
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Stories  persistence.Store
	Backups  BackupStore
	Renderer pagecanvas.Renderer
	Notifier persistence.Notifier
	Errors   persistence.ErrorTracker
	Logger   *slog.Logger
}

type Options struct {
	HistorySize  int
	IdleTimeout  time.Duration
	IdleQuiet    time.Duration
	VerifyFrozen bool
	Capabilities map[string]bool

	// Scheduler overrides the idle scheduler, mostly for tests and hosts
	// that drive idle callbacks themselves.
	Scheduler idlequeue.Scheduler
}

// Session is one open story.
type Session struct {
	StoryID string

	store    *editor.Store
	history  *history.History
	tracker  *history.Tracker
	canvases *pagecanvas.Provider
	queue    *idlequeue.Queue
	idle     *idlequeue.IdleScheduler
	saver    *persistence.Saver
	backups  BackupStore
	logger   *slog.Logger

	// editMu serialises every change made through the session, so an undo
	// and its replay stay together and history has seen a dispatch by the
	// time Dispatch returns.
	editMu  sync.Mutex
	loading atomic.Bool

	mu        sync.Mutex
	isNew     bool
	recovered *history.Entry

	unsubscribe func()
}

func NewSession(storyID string, isNew bool, deps Deps, opts Options) *Session {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("story", storyID)

	sched := opts.Scheduler
	var idle *idlequeue.IdleScheduler
	if sched == nil {
		idle = idlequeue.NewIdleScheduler(opts.IdleQuiet)
		sched = idle
	}
	qopts := []idlequeue.Option{idlequeue.WithLogger(logger)}
	if opts.IdleTimeout > 0 {
		qopts = append(qopts, idlequeue.WithTimeout(opts.IdleTimeout))
	}
	queue := idlequeue.New(sched, qopts...)

	h := history.New(opts.HistorySize)
	s := &Session{
		StoryID:  storyID,
		store:    editor.New(editor.Options{VerifyFrozen: opts.VerifyFrozen, Logger: logger}),
		history:  h,
		tracker:  history.NewTracker(h),
		canvases: pagecanvas.NewProvider(deps.Renderer, queue, pagecanvas.WithLogger(logger)),
		queue:    queue,
		idle:     idle,
		saver:    persistence.NewSaver(deps.Stories, deps.Notifier, deps.Errors, logger),
		backups:  deps.Backups,
		logger:   logger,
		isNew:    isNew,
	}
	s.unsubscribe = s.store.Subscribe(s.onChange)
	return s
}

func (s *Session) onChange(prev, next *reducer.State) {
	if s.idle != nil {
		s.idle.Touch()
	}
	s.tracker.Observe(next)
	s.canvases.Validate(prev.Pages, next.Pages)

	if s.backups == nil || s.loading.Load() {
		return
	}
	if !samePageSlice(prev.Pages, next.Pages) || prev.Story != next.Story {
		s.queueBackup(next)
	}
}

func (s *Session) queueBackup(st *reducer.State) {
	entry := history.EntryFromState(st)
	s.queue.Enqueue(backupTaskName, func(ctx context.Context) error {
		return s.backups.Save(ctx, s.StoryID, s.IsNew(), entry)
	})
}

// Load replaces the session's document and starts a fresh history.
func (s *Session) Load(r reducer.Restore) *reducer.State {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	s.history.Clear()
	s.tracker.Reset()
	s.loading.Store(true)
	defer s.loading.Store(false)
	return s.store.Restore(r)
}

func (s *Session) Store() *editor.Store { return s.store }

func (s *Session) History() *history.History { return s.history }

func (s *Session) Canvases() *pagecanvas.Provider { return s.canvases }

func (s *Session) State() *reducer.State { return s.store.State() }

// Dispatch applies actions as one change.
func (s *Session) Dispatch(actions ...reducer.Action) *reducer.State {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	return s.store.DispatchAll(actions...)
}

func (s *Session) IsNew() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isNew
}

// Undo steps count entries back and restores that entry.
func (s *Session) Undo(count int) bool {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	if !s.history.Undo(count) {
		return false
	}
	return history.Replay(s.history, s.store)
}

// Redo steps count entries forward and restores that entry.
func (s *Session) Redo(count int) bool {
	s.editMu.Lock()
	defer s.editMu.Unlock()
	if !s.history.Redo(count) {
		return false
	}
	return history.Replay(s.history, s.store)
}

// Save stores the current state. A successful save makes the local backup
// redundant, so it is dropped.
func (s *Session) Save(ctx context.Context) (*persistence.RawStory, error) {
	wasNew := s.IsNew()
	saved, err := s.saver.Save(ctx, s.store.State())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.isNew = false
	s.mu.Unlock()

	if s.backups != nil {
		if err := s.backups.Delete(ctx, s.StoryID, wasNew); err != nil {
			s.logger.Warn("dropping backup failed", "error", err)
		}
	}
	return saved, nil
}

func (s *Session) AutoSave(ctx context.Context) error {
	return s.saver.AutoSave(ctx, s.store.State())
}

func (s *Session) IsSaving() bool { return s.saver.IsSaving() }

// RecoveredBackup returns the local backup found when the story was opened,
// if it differs from what the server returned.
func (s *Session) RecoveredBackup() (history.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.recovered == nil {
		return history.Entry{}, false
	}
	return *s.recovered, true
}

// RestoreBackup applies the recovered backup as a regular, undoable change.
func (s *Session) RestoreBackup() bool {
	s.mu.Lock()
	e := s.recovered
	s.recovered = nil
	s.mu.Unlock()
	if e == nil {
		return false
	}
	s.editMu.Lock()
	defer s.editMu.Unlock()
	r := e.Restore()
	r.Capabilities = s.store.State().Capabilities
	s.store.Restore(r)
	return true
}

// DiscardBackup forgets the recovered backup.
func (s *Session) DiscardBackup() {
	s.mu.Lock()
	s.recovered = nil
	s.mu.Unlock()
}

// PageCanvas returns the rendering of pageID, generating it now when the
// cache has nothing usable.
func (s *Session) PageCanvas(ctx context.Context, pageID string) (image.Image, error) {
	if img, ok := s.canvases.GetCanvas(pageID); ok && img != nil {
		return img, nil
	}
	page, _ := s.store.State().PageByID(pageID)
	if page == nil {
		return nil, ErrPageNotFound
	}
	return s.canvases.GenerateNow(ctx, page)
}

// QueueCanvases schedules idle-time renderings of every page.
func (s *Session) QueueCanvases() {
	for _, p := range s.store.State().Pages {
		s.canvases.QueuePageCanvas(p)
	}
}

// Prerender renders every page without a cached canvas. Individual failures
// are recorded in the cache and logged; only cancellation is returned.
func (s *Session) Prerender(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prerenderWorkers)
	for _, p := range s.store.State().Pages {
		if _, ok := s.canvases.GetCanvas(p.ID); ok {
			continue
		}
		g.Go(func() error {
			if _, err := s.canvases.GenerateNow(ctx, p); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("prerender failed", "page", p.ID, "error", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// AccessibleColors is the text colour advice for one element.
type AccessibleColors struct {
	PageID    string `json:"pageId"`
	ElementID string `json:"elementId"`
	contrast.Result
}

// AccessibleTextColors measures what lies under elementID on the current page.
func (s *Session) AccessibleTextColors(ctx context.Context, elementID string) (*AccessibleColors, error) {
	st := s.store.State()
	page := st.CurrentPage()
	if page == nil {
		return nil, ErrPageNotFound
	}
	el, _ := page.ElementByID(elementID)
	if el == nil {
		return nil, ErrElementNotFound
	}
	res, err := s.canvases.CalculateAccessibleTextColors(ctx, page, el, st.Selection)
	if err != nil {
		return nil, err
	}
	return &AccessibleColors{PageID: page.ID, ElementID: el.ID, Result: res}, nil
}

// Close stops idle work and detaches from the store.
func (s *Session) Close() {
	s.unsubscribe()
	s.queue.Close()
}

func samePageSlice(a, b []*story.Page) bool {
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
