package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/inamate/storyeditor/internal/reducer"
)

// ErrStateMutated is the panic value (wrapped) raised when a published state
// was modified in place.
var ErrStateMutated = errors.New("published editor state was mutated")

// Subscriber observes every state change. It is called after the store has
// released its lock, so it may dispatch.
//
// Changes are delivered one at a time in the order they were applied, so
// each prev is the next of the change before it. A dispatch made while
// another call is delivering (from a subscriber or another goroutine) is
// queued and delivered by that call.
type Subscriber func(prev, next *reducer.State)

type Options struct {
	// VerifyFrozen fingerprints every published state and checks it again on
	// the next dispatch.
	VerifyFrozen bool
	Logger       *slog.Logger
}

type subscription struct {
	id int
	fn Subscriber
}

type change struct {
	prev, next *reducer.State
}

// Store owns the current editor state and applies actions to it.
type Store struct {
	mu          sync.Mutex
	state       *reducer.State
	fingerprint [blake2b.Size256]byte
	pending     []change
	delivering  bool

	subMu   sync.Mutex
	subs    []subscription
	nextSub int

	verify bool
	logger *slog.Logger
}

func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		state:  reducer.NewState(),
		verify: opts.VerifyFrozen,
		logger: logger,
	}
	if s.verify {
		s.fingerprint = fingerprint(s.state)
	}
	return s
}

// State returns the current state. Callers must treat it as read-only.
func (s *Store) State() *reducer.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe registers fn and returns a function that removes it.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs = append(s.subs, subscription{id: id, fn: fn})
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
				return
			}
		}
	}
}

// Dispatch applies a single action and returns the resulting state.
func (s *Store) Dispatch(a reducer.Action) *reducer.State {
	return s.DispatchAll(a)
}

// DispatchAll applies actions in order as one change: subscribers see the
// state before the first action and after the last one.
func (s *Store) DispatchAll(actions ...reducer.Action) *reducer.State {
	s.mu.Lock()
	prev := s.state
	if s.verify && fingerprint(prev) != s.fingerprint {
		s.mu.Unlock()
		panic(fmt.Errorf("%w: fingerprint changed since last dispatch", ErrStateMutated))
	}
	next := prev
	for _, a := range actions {
		reduced := reducer.Reduce(next, a)
		if reduced == next {
			s.logger.Debug("dispatch had no effect", "action", reducer.ActionType(a))
		}
		next = reduced
	}
	s.state = next
	if next == prev {
		s.mu.Unlock()
		return next
	}
	if s.verify {
		s.fingerprint = fingerprint(next)
	}
	s.pending = append(s.pending, change{prev: prev, next: next})
	if s.delivering {
		s.mu.Unlock()
		return next
	}
	s.delivering = true
	s.mu.Unlock()

	s.deliver()
	return next
}

// deliver notifies subscribers of queued changes until none are left.
func (s *Store) deliver() {
	done := false
	defer func() {
		if !done {
			// a subscriber panicked; let the next dispatch deliver
			s.mu.Lock()
			s.delivering = false
			s.mu.Unlock()
		}
	}()
	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.delivering = false
			s.mu.Unlock()
			done = true
			return
		}
		c := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		s.notify(c.prev, c.next)
	}
}

func (s *Store) notify(prev, next *reducer.State) {
	s.subMu.Lock()
	subs := make([]subscription, len(s.subs))
	copy(subs, s.subs)
	s.subMu.Unlock()

	for _, sub := range subs {
		sub.fn(prev, next)
	}
}

func fingerprint(st *reducer.State) [blake2b.Size256]byte {
	data, err := json.Marshal(st)
	if err != nil {
		// only reachable through an unencodable Extra value
		panic(fmt.Errorf("fingerprint editor state: %w", err))
	}
	return blake2b.Sum256(data)
}
