// Package scheduler implements the query scheduler: debounce-by-edit-
// kind, a monotonically increasing sequence token, and supersession
// discard. Grounded on the teacher's background-indexer goroutine
// lifecycle (internal/async/indexer.go: Start/Stop/stopCh/doneCh),
// adapted from "one long-running indexing job" to "cancel-and-replace
// on every keystroke" — every call to Schedule cancels the previous
// pending timer the way Stop used to cancel a running job.
package scheduler

import (
	"strings"
	"sync"
	"time"
)

// Mode selects which retrieval path(s) a query should use.
type Mode int

const (
	ModeLexical Mode = iota
	ModeSemantic
)

// EditKind classifies how the new search term relates to the prior one.
type EditKind int

const (
	EditExtension EditKind = iota
	EditReplacement
	EditRetraction
	EditOther
)

// ClassifyEdit determines the edit kind between the previous and new
// query terms, the input to the debounce-delay table.
func ClassifyEdit(prev, next string) EditKind {
	switch {
	case len(next) > len(prev) && strings.HasPrefix(next, prev):
		return EditExtension
	case len(next) < len(prev) && strings.HasPrefix(prev, next):
		return EditRetraction
	case !strings.HasPrefix(next, prev) && !strings.HasPrefix(prev, next):
		return EditReplacement
	default:
		return EditOther
	}
}

// DebounceDelay computes the debounce delay for an edit, following the
// component design's edit-kind table exactly.
func DebounceDelay(kind EditKind, nextLen int, mode Mode) time.Duration {
	semanticBonus := func(base time.Duration) time.Duration {
		if mode == ModeSemantic {
			return base + 60*time.Millisecond
		}
		return base
	}

	switch {
	case kind == EditExtension && nextLen > 2:
		return semanticBonus(200 * time.Millisecond)
	case kind == EditReplacement && nextLen > 3:
		return 120 * time.Millisecond
	case kind == EditRetraction:
		return 90 * time.Millisecond
	default:
		base := 200 * time.Millisecond
		if mode == ModeSemantic {
			base += 40 * time.Millisecond
		}
		return base
	}
}

// RunFunc is the scheduled search work: it receives the term and the
// token that identified it when scheduled, and must check IsCurrent
// before rendering anything, since by the time it runs a later edit
// may have already superseded it.
type RunFunc func(term string, token int)

// Scheduler owns the sequence counter and the single pending timer,
// exactly mirroring the "UI owns a monotonically increasing sequence
// counter" contract: every keystroke cancels any pending timer,
// increments the counter, and schedules the next run.
type Scheduler struct {
	mu       sync.Mutex
	seq      int
	timer    *time.Timer
	prevTerm string
	mode     Mode
	run      RunFunc
}

// New creates a Scheduler that invokes run for each debounced search.
func New(run RunFunc) *Scheduler {
	return &Scheduler{run: run}
}

// SetMode updates the active retrieval mode, which affects future
// debounce delays (semantic mode adds its bonus).
func (s *Scheduler) SetMode(mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
}

// Schedule cancels any pending timer, advances the sequence token, and
// schedules run(term, token) after the edit-kind-appropriate debounce
// delay. It returns the new token, which callers can also use to check
// IsCurrent from within long-running work.
func (s *Scheduler) Schedule(term string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}

	kind := ClassifyEdit(s.prevTerm, term)
	delay := DebounceDelay(kind, len(term), s.mode)
	s.prevTerm = term
	s.seq++
	token := s.seq

	s.timer = time.AfterFunc(delay, func() {
		s.run(term, token)
	})
	return token
}

// IsCurrent reports whether token is still the latest scheduled token,
// i.e. no later edit has superseded it. runSearch implementations
// should call this at every suspension point and stop rendering as
// soon as it returns false.
func (s *Scheduler) IsCurrent(token int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return token == s.seq
}

// Reset cancels any pending timer and clears the prior-term state,
// mirroring the worker-side "reset" message's abort-and-discard
// semantics on the UI side of the scheduler.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
	}
	s.prevTerm = ""
}
