package engine

import (
	"fmt"
	"sync"
	"time"

	"slip-bot/api/internal/clock"
	"slip-bot/api/internal/debounce"
	"slip-bot/api/internal/slip"
)

// GroupKey is the coalescing key: the chat, or the chat's album when the
// transport groups photos.
func GroupKey(chatID int64, albumID string) string {
	if albumID != "" {
		return fmt.Sprintf("grp:%d:%s", chatID, albumID)
	}
	return fmt.Sprintf("chat:%d", chatID)
}

// Flushed is a finished coalescing session.
type Flushed struct {
	Key      string
	ChatID   int64
	OwnerID  int64
	BookHint string
	Records  []slip.Record
}

// Ticket identifies a reserved slot in a coalescing session.
type Ticket struct {
	Key     string
	session uint64
	slot    int
}

// Coalescer groups items that arrive close together under one key into a
// single Flushed, after the key has been idle for the debounce window.
//
// Slots are reserved in arrival order and filled when extraction finishes,
// so the flushed order is the arrival order even when extractions complete
// out of order. A session with unfilled slots does not flush; the wait
// restarts when the last slot is filled or dropped.
type Coalescer struct {
	idle    time.Duration
	sched   *debounce.Scheduler
	onFlush func(Flushed)

	mu       sync.Mutex
	sessions map[string]*coalescing
	seq      uint64
}

type coalescing struct {
	id       uint64
	chatID   int64
	ownerID  int64
	bookHint string
	slots    []slot
	open     int
}

type slot struct {
	rec    slip.Record
	filled bool
	done   bool
}

func NewCoalescer(c clock.Clock, idle time.Duration, onFlush func(Flushed)) *Coalescer {
	return &Coalescer{
		idle:     idle,
		sched:    debounce.New(c),
		onFlush:  onFlush,
		sessions: make(map[string]*coalescing),
	}
}

// Add appends a ready item to the session for key.
func (c *Coalescer) Add(key string, chatID, ownerID int64, rec slip.Record, bookHint string) {
	c.Resolve(c.Reserve(key, chatID, ownerID, bookHint), rec)
}

// Reserve opens a slot for an item whose extraction is still running and
// restarts the idle window. A non-empty bookHint replaces the session's.
func (c *Coalescer) Reserve(key string, chatID, ownerID int64, bookHint string) Ticket {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[key]
	if !ok {
		c.seq++
		s = &coalescing{id: c.seq, chatID: chatID, ownerID: ownerID}
		c.sessions[key] = s
	}
	if bookHint != "" {
		s.bookHint = bookHint
	}
	s.slots = append(s.slots, slot{})
	s.open++
	c.rearm(key)
	return Ticket{Key: key, session: s.id, slot: len(s.slots) - 1}
}

// Resolve fills a reserved slot. It reports false when the session is gone
// (aborted) or the slot was already settled.
func (c *Coalescer) Resolve(t Ticket, rec slip.Record) bool {
	return c.settle(t, &rec)
}

// Drop settles a reserved slot without an item (extraction failed).
func (c *Coalescer) Drop(t Ticket) bool {
	return c.settle(t, nil)
}

// Abort discards the session t was reserved in and its pending flush. A
// newer session under the same key is left alone.
func (c *Coalescer) Abort(t Ticket) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[t.Key]
	if !ok || s.id != t.session {
		return false
	}
	delete(c.sessions, t.Key)
	c.sched.Cancel(t.Key)
	return true
}

// Open reports whether a session exists for key.
func (c *Coalescer) Open(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sessions[key]
	return ok
}

func (c *Coalescer) settle(t Ticket, rec *slip.Record) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sessions[t.Key]
	if !ok || s.id != t.session || t.slot >= len(s.slots) || s.slots[t.slot].done {
		return false
	}
	sl := &s.slots[t.slot]
	sl.done = true
	if rec != nil {
		sl.rec, sl.filled = *rec, true
	}
	s.open--
	c.rearm(t.Key)
	return true
}

// rearm restarts the idle window for key. Caller holds c.mu.
func (c *Coalescer) rearm(key string) {
	c.sched.Schedule(key, c.idle, func() { c.fire(key) })
}

func (c *Coalescer) fire(key string) {
	c.mu.Lock()
	s, ok := c.sessions[key]
	if !ok || s.open > 0 {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, key)
	c.mu.Unlock()

	f := Flushed{Key: key, ChatID: s.chatID, OwnerID: s.ownerID, BookHint: s.bookHint}
	for _, sl := range s.slots {
		if sl.filled {
			f.Records = append(f.Records, sl.rec)
		}
	}
	c.onFlush(f)
}
