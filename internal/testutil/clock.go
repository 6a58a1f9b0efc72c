// Package testutil provides deterministic test doubles shared across
// packages.
package testutil

import (
	"sort"
	"sync"
	"time"

	"github.com/tremby/discord-tagbot/internal/engine"
)

// ManualScheduler implements engine.Scheduler on a manually advanced
// clock, so timer tests never sleep.
//
// Thread-safety: all methods are safe for concurrent use, but fired
// callbacks run synchronously on the goroutine calling Advance.
type ManualScheduler struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

// NewManualScheduler creates a scheduler frozen at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now returns the current manual time.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// AfterFunc registers fn to run when the clock is advanced past d from now.
func (s *ManualScheduler) AfterFunc(d time.Duration, fn func()) engine.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTimer{sched: s, at: s.now.Add(d), fn: fn}
	s.timers = append(s.timers, t)
	return t
}

// Advance moves the clock forward, firing due timers in chronological
// order. Callbacks run synchronously before Advance returns.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	s.now = s.now.Add(d)
	now := s.now

	var due []*manualTimer
	remaining := s.timers[:0]
	for _, t := range s.timers {
		if !t.stopped && !t.at.After(now) {
			due = append(due, t)
		} else if !t.stopped {
			remaining = append(remaining, t)
		}
	}
	s.timers = remaining
	s.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.fire()
	}
}

// Pending returns the number of armed timers.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

type manualTimer struct {
	sched   *ManualScheduler
	at      time.Time
	fn      func()
	stopped bool
	fired   bool
}

// Stop implements engine.Timer. Safe to call after firing (returns false).
func (t *manualTimer) Stop() bool {
	t.sched.mu.Lock()
	defer t.sched.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *manualTimer) fire() {
	t.sched.mu.Lock()
	if t.stopped || t.fired {
		t.sched.mu.Unlock()
		return
	}
	t.fired = true
	fn := t.fn
	t.sched.mu.Unlock()
	fn()
}
