package session

import (
	"sort"
	"sync"
	"time"
)

// manualClock only moves when Advance is called. Ticks and timer callbacks
// are delivered from the goroutine calling Advance.
type manualClock struct {
	mu      sync.Mutex
	now     time.Time
	timers  []*manualTimer
	tickers []*manualTicker
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
}

type manualTimer struct {
	clock   *manualClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

type manualTicker struct {
	clock   *manualClock
	next    time.Time
	period  time.Duration
	c       chan time.Time
	stop    chan struct{}
	stopped bool
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTicker{clock: c, next: c.now.Add(d), period: d, c: make(chan time.Time), stop: make(chan struct{})}
	c.tickers = append(c.tickers, t)
	return t
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

func (t *manualTicker) C() <-chan time.Time { return t.c }

func (t *manualTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if !t.stopped {
		t.stopped = true
		close(t.stop)
	}
}

// pending counts timers that are armed and not yet fired.
func (c *manualClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Advance moves time forward by d, delivering every due timer and tick in
// time order.
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		type event struct {
			at     time.Time
			timer  *manualTimer
			ticker *manualTicker
		}
		var due []event
		for _, t := range c.timers {
			if !t.stopped && !t.fired && !t.at.After(target) {
				due = append(due, event{at: t.at, timer: t})
			}
		}
		for _, t := range c.tickers {
			if !t.stopped && !t.next.After(target) {
				due = append(due, event{at: t.next, ticker: t})
			}
		}
		if len(due) == 0 {
			c.now = target
			c.mu.Unlock()
			return
		}
		sort.SliceStable(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
		ev := due[0]
		c.now = ev.at
		if ev.timer != nil {
			ev.timer.fired = true
		} else {
			ev.ticker.next = ev.ticker.next.Add(ev.ticker.period)
		}
		c.mu.Unlock()

		if ev.timer != nil {
			ev.timer.f()
			continue
		}
		select {
		case ev.ticker.c <- ev.at:
		case <-ev.ticker.stop:
		}
	}
}
