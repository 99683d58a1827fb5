// Package debounce runs at most one pending task per key, restarting the
// wait every time the key is scheduled again.
package debounce

import (
	"sync"
	"time"

	"slip-bot/api/internal/clock"
)

type Scheduler struct {
	clock clock.Clock

	mu    sync.Mutex
	tasks map[string]*task
	gen   uint64
}

type task struct {
	gen   uint64
	timer *clock.Timer
}

func New(c clock.Clock) *Scheduler {
	return &Scheduler{clock: c, tasks: make(map[string]*task)}
}

// Schedule runs fn after d unless key is scheduled again or cancelled first.
// A timer that fires after being replaced is a no-op.
func (s *Scheduler) Schedule(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[key]; ok {
		t.timer.Stop()
	}
	s.gen++
	t := &task{gen: s.gen}
	gen := s.gen
	t.timer = s.clock.AfterFunc(d, func() {
		if s.claim(key, gen) {
			fn()
		}
	})
	s.tasks[key] = t
}

// Cancel drops the pending task for key and reports whether there was one.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok {
		return false
	}
	t.timer.Stop()
	delete(s.tasks, key)
	return true
}

// Pending reports whether key has a task waiting.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[key]
	return ok
}

func (s *Scheduler) claim(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[key]
	if !ok || t.gen != gen {
		return false
	}
	delete(s.tasks, key)
	return true
}
