package idlequeue

import (
	"sync"
	"time"
)

// IdleScheduler treats the process as idle once no activity has been
// reported for the quiet period. Callers report activity with Touch.
type IdleScheduler struct {
	quiet time.Duration

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

func NewIdleScheduler(quiet time.Duration) *IdleScheduler {
	return &IdleScheduler{quiet: quiet, now: time.Now}
}

// Touch records activity, pushing pending idle callbacks back.
func (s *IdleScheduler) Touch() {
	s.mu.Lock()
	s.last = s.now()
	s.mu.Unlock()
}

func (s *IdleScheduler) idleIn() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiet - s.now().Sub(s.last)
}

// RequestIdle runs fn on its own goroutine after the quiet period, or after
// timeout if activity never stops.
func (s *IdleScheduler) RequestIdle(fn func(), timeout time.Duration) func() {
	done := make(chan struct{})
	var once sync.Once
	cancel := func() { once.Do(func() { close(done) }) }

	go func() {
		deadline := time.NewTimer(timeout)
		defer deadline.Stop()
		for {
			wait := s.idleIn()
			if wait <= 0 {
				break
			}
			t := time.NewTimer(wait)
			select {
			case <-done:
				t.Stop()
				return
			case <-deadline.C:
				t.Stop()
				fn()
				return
			case <-t.C:
			}
		}
		select {
		case <-done:
		default:
			fn()
		}
	}()
	return cancel
}

// ManualScheduler holds idle requests until Fire is called. Hosts with their
// own idle signal, such as a browser event loop, drive it directly.
type ManualScheduler struct {
	mu      sync.Mutex
	pending []*manualRequest
}

type manualRequest struct {
	fn        func()
	cancelled bool
}

func (m *ManualScheduler) RequestIdle(fn func(), _ time.Duration) func() {
	r := &manualRequest{fn: fn}
	m.mu.Lock()
	m.pending = append(m.pending, r)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		r.cancelled = true
		m.mu.Unlock()
	}
}

// Fire runs the oldest live request. It reports false when none is waiting.
func (m *ManualScheduler) Fire() bool {
	for {
		m.mu.Lock()
		if len(m.pending) == 0 {
			m.mu.Unlock()
			return false
		}
		r := m.pending[0]
		m.pending = m.pending[1:]
		cancelled := r.cancelled
		m.mu.Unlock()
		if cancelled {
			continue
		}
		r.fn()
		return true
	}
}

// Pending returns the number of live requests.
func (m *ManualScheduler) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.pending {
		if !r.cancelled {
			n++
		}
	}
	return n
}
