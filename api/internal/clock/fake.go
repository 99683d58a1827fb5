package clock

import (
	"sync"
	"time"
)

// FakeClock stands still until Advance is called. Safe for concurrent use.
//
// AfterFunc callbacks run on the goroutine calling Advance, in deadline
// order, with the fake time set to their deadline. Callbacks may schedule
// new timers; those fire within the same Advance if they fall inside it.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	waiters []*waiter
}

type waiter struct {
	seq      int
	deadline time.Time
	fn       func()
	ch       chan time.Time
	every    time.Duration
	done     bool
}

func Fake(t0 time.Time) *FakeClock {
	return &FakeClock{now: t0}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.add(d, 0)
	w.fn = f
	return &Timer{stop: func() bool {
		c.mu.Lock()
		defer c.mu.Unlock()
		if w.done {
			return false
		}
		w.done = true
		return true
	}}
}

func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive ticker interval")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.add(d, d)
	w.ch = make(chan time.Time, 1)
	return &Ticker{C: w.ch, stop: func() {
		c.mu.Lock()
		w.done = true
		c.mu.Unlock()
	}}
}

// Pending returns the number of timers and tickers that have not fired or been stopped.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, w := range c.waiters {
		if !w.done {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, firing everything due on the way.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		w := c.next(target)
		if w == nil {
			break
		}
		c.now = w.deadline
		if w.every > 0 {
			w.deadline = w.deadline.Add(w.every)
			select {
			case w.ch <- c.now:
			default:
			}
			continue
		}
		w.done = true
		fn := w.fn
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	c.now = target
	c.compact()
	c.mu.Unlock()
}

func (c *FakeClock) add(d, every time.Duration) *waiter {
	c.seq++
	w := &waiter{seq: c.seq, deadline: c.now.Add(d), every: every}
	c.waiters = append(c.waiters, w)
	return w
}

// next returns the earliest live waiter due at or before target; ties go to
// the one registered first.
func (c *FakeClock) next(target time.Time) *waiter {
	var best *waiter
	for _, w := range c.waiters {
		if w.done || w.deadline.After(target) {
			continue
		}
		if best == nil || w.deadline.Before(best.deadline) ||
			(w.deadline.Equal(best.deadline) && w.seq < best.seq) {
			best = w
		}
	}
	return best
}

func (c *FakeClock) compact() {
	live := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.done {
			live = append(live, w)
		}
	}
	c.waiters = live
}
