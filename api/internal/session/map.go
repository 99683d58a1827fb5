package session

import (
	"context"
	"sync"
	"time"

	"slip-bot/api/internal/clock"
)

// Map is a mutex-guarded keyed map whose entries expire ttl after they were
// last written. Expired entries are invisible to reads and are removed by
// Sweep or by the next access. A zero ttl disables expiry.
type Map[K comparable, V any] struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	entries map[K]entry[V]
}

type entry[V any] struct {
	val      V
	deadline time.Time
}

func NewMap[K comparable, V any](c clock.Clock, ttl time.Duration) *Map[K, V] {
	return &Map[K, V]{clock: c, ttl: ttl, entries: make(map[K]entry[V])}
}

func (m *Map[K, V]) Get(k K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load(k)
}

func (m *Map[K, V]) Set(k K, v V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.store(k, v)
}

func (m *Map[K, V]) Delete(k K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, k)
}

// Take removes and returns the entry in one step. Of two concurrent Takes
// for the same key, exactly one observes ok.
func (m *Map[K, V]) Take(k K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.load(k)
	delete(m.entries, k)
	return v, ok
}

// Update runs fn on the live value under the map lock and stores the result.
// fn must not call back into the map. Returns false when k is absent or expired.
func (m *Map[K, V]) Update(k K, fn func(v V) V) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.load(k)
	if !ok {
		return false
	}
	m.store(k, fn(v))
	return true
}

// DeleteFunc removes every live entry for which fn returns true.
func (m *Map[K, V]) DeleteFunc(fn func(k K, v V) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if fn(k, e.val) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Sweep drops expired entries and reports how many were removed.
func (m *Map[K, V]) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.clock.Now()
	n := 0
	for k, e := range m.entries {
		if m.expired(e, now) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

// Len counts entries including ones that expired but were not swept yet.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Map[K, V]) load(k K) (V, bool) {
	e, ok := m.entries[k]
	if !ok {
		var zero V
		return zero, false
	}
	if m.expired(e, m.clock.Now()) {
		delete(m.entries, k)
		var zero V
		return zero, false
	}
	return e.val, true
}

func (m *Map[K, V]) store(k K, v V) {
	e := entry[V]{val: v}
	if m.ttl > 0 {
		e.deadline = m.clock.Now().Add(m.ttl)
	}
	m.entries[k] = e
}

func (m *Map[K, V]) expired(e entry[V], now time.Time) bool {
	return m.ttl > 0 && !now.Before(e.deadline)
}

// sweepLoop calls sweep every interval until ctx is done.
func sweepLoop(ctx context.Context, c clock.Clock, every time.Duration, sweep func()) {
	t := c.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			sweep()
		}
	}
}
