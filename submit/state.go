package submit

import (
	"sync"
	"sync/atomic"
	"time"
)

// State is the loading flag of one mounted page.
type State struct {
	loading   atomic.Bool
	mu        sync.Mutex
	observers []func(loading bool)
}

// NewState returns an idle page state. Observers are called on every
// transition, in order, while the transition is being made.
func NewState(observers ...func(loading bool)) *State {
	return &State{observers: observers}
}

// Loading reports whether a submission is in flight.
func (s *State) Loading() bool {
	return s.loading.Load()
}

// begin moves the page to Submitting. It returns false when a submission is
// already in flight.
func (s *State) begin() bool {
	if !s.loading.CompareAndSwap(false, true) {
		return false
	}
	s.notify(true)
	return true
}

func (s *State) end() {
	s.loading.Store(false)
	s.notify(false)
}

func (s *State) notify(loading bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, fn := range s.observers {
		fn(loading)
	}
}

// PageKey identifies one page instance: a browser session looking at a form.
type PageKey struct {
	Session string
	Page    string
}

type pageEntry struct {
	state    *State
	lastSeen time.Time
}

// Pages keeps the state of every live page instance.
type Pages struct {
	mu    sync.Mutex
	pages map[PageKey]*pageEntry
	now   func() time.Time
}

func NewPages() *Pages {
	return &Pages{pages: make(map[PageKey]*pageEntry), now: time.Now}
}

// Get returns the state for key, mounting a fresh one on first use.
func (p *Pages) Get(key PageKey) *State {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.pages[key]
	if !ok {
		e = &pageEntry{state: NewState()}
		p.pages[key] = e
	}
	e.lastSeen = p.now()
	return e.state
}

// Len returns the number of mounted pages.
func (p *Pages) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages)
}

// Sweep unmounts pages idle for longer than ttl. Pages with a submission in
// flight are kept. It returns how many were removed.
func (p *Pages) Sweep(ttl time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := p.now().Add(-ttl)
	removed := 0
	for key, e := range p.pages {
		if e.lastSeen.Before(cutoff) && !e.state.Loading() {
			delete(p.pages, key)
			removed++
		}
	}
	return removed
}
