// Package testutil provides test infrastructure shared across packages:
// a controllable clock, a manual ticker, a click recorder and file helpers.
package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start time of a FakeClock.
var Epoch = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// FakeClock is a manually advanced time source.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFakeClock returns a clock positioned at Epoch.
func NewFakeClock() *FakeClock {
	return &FakeClock{now: Epoch}
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Since returns the fake time elapsed since Epoch.
func (c *FakeClock) Since() time.Duration {
	return c.Now().Sub(Epoch)
}

// ManualTicker never fires on its own; tests push ticks with Tick.
type ManualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

// NewManualTicker returns a ticker with a one-slot buffer.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{ch: make(chan time.Time, 1)}
}

// C returns the tick channel.
func (t *ManualTicker) C() <-chan time.Time {
	return t.ch
}

// Stop marks the ticker stopped.
func (t *ManualTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

// Stopped reports whether Stop was called.
func (t *ManualTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stopped
}

// Tick delivers at without blocking. It reports false if the previous tick
// has not been consumed yet.
func (t *ManualTicker) Tick(at time.Time) bool {
	select {
	case t.ch <- at:
		return true
	default:
		return false
	}
}

// TickerFactory hands out ManualTickers and remembers them in order.
type TickerFactory struct {
	mu      sync.Mutex
	tickers []*ManualTicker
}

// New creates and records a ManualTicker. The interval is ignored.
func (f *TickerFactory) New(time.Duration) *ManualTicker {
	t := NewManualTicker()
	f.mu.Lock()
	f.tickers = append(f.tickers, t)
	f.mu.Unlock()
	return t
}

// Tickers returns every ticker created so far.
func (f *TickerFactory) Tickers() []*ManualTicker {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*ManualTicker, len(f.tickers))
	copy(out, f.tickers)
	return out
}
