package clock

import (
	"sort"
	"sync"
	"time"
)

// FakeClock is a deterministic Clock. Time only moves when Advance or
// Set is called; tickers fire during Advance in deadline order.
type FakeClock struct {
	mu             sync.Mutex
	current        time.Time
	tickers        []*fakeTicker
	tickersChanged *sync.Cond
}

type fakeTicker struct {
	deadline time.Time
	interval time.Duration
	channel  chan time.Time
	stopped  bool
}

// Fake returns a FakeClock frozen at initial.
func Fake(initial time.Time) *FakeClock {
	c := &FakeClock{current: initial}
	c.tickersChanged = sync.NewCond(&c.mu)
	return c
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NewTicker registers a ticker that fires every d of fake time. Panics
// if d <= 0, matching time.NewTicker.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ft := &fakeTicker{
		deadline: c.current.Add(d),
		interval: d,
		channel:  make(chan time.Time, 1),
	}
	c.tickers = append(c.tickers, ft)
	c.tickersChanged.Broadcast()

	return &Ticker{
		C: ft.channel,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			ft.stopped = true
		},
	}
}

// Set jumps the clock to t without firing tickers. Used to cross a
// calendar boundary in a single step.
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
	for _, ft := range c.tickers {
		if ft.deadline.Before(t) {
			ft.deadline = t.Add(ft.interval)
		}
	}
}

// Advance moves the clock forward by d, firing each live ticker once
// per elapsed interval. Sends are non-blocking.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	target := c.current

	var due []*fakeTicker
	var live []*fakeTicker
	for _, ft := range c.tickers {
		if ft.stopped {
			continue
		}
		live = append(live, ft)
		if !ft.deadline.After(target) {
			due = append(due, ft)
		}
	}
	c.tickers = live
	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	c.mu.Unlock()

	for _, ft := range due {
		for {
			c.mu.Lock()
			if ft.stopped || ft.deadline.After(target) {
				c.mu.Unlock()
				break
			}
			ft.deadline = ft.deadline.Add(ft.interval)
			c.mu.Unlock()

			select {
			case ft.channel <- target:
			default:
			}
		}
	}
}

// WaitForTickers blocks until at least n live tickers are registered.
func (c *FakeClock) WaitForTickers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.liveCountLocked() < n {
		c.tickersChanged.Wait()
	}
}

// PendingCount returns the number of live (not stopped) tickers.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.liveCountLocked()
}

func (c *FakeClock) liveCountLocked() int {
	count := 0
	for _, ft := range c.tickers {
		if !ft.stopped {
			count++
		}
	}
	return count
}
