package clock

import (
	"sync"
	"time"
)

// FakeClock is a deterministic Clock for tests. Sleep never blocks: it
// advances virtual time by d and runs any hooks whose deadline has passed.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
	slept   []time.Duration
	hooks   []fakeHook
}

type fakeHook struct {
	deadline time.Time
	fn       func()
}

// Fake returns a FakeClock starting at initial.
func Fake(initial time.Time) *FakeClock {
	return &FakeClock{current: initial}
}

// Now returns the current virtual time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Sleep advances virtual time by d and fires due hooks in deadline order.
func (c *FakeClock) Sleep(d time.Duration) {
	c.Advance(d)
	c.mu.Lock()
	c.slept = append(c.slept, d)
	c.mu.Unlock()
}

// Advance moves virtual time forward without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	if d > 0 {
		c.current = c.current.Add(d)
	}
	var due []func()
	remaining := c.hooks[:0]
	for _, h := range c.hooks {
		if !h.deadline.After(c.current) {
			due = append(due, h.fn)
			continue
		}
		remaining = append(remaining, h)
	}
	c.hooks = remaining
	c.mu.Unlock()

	// Hooks run without the lock so they may call back into the clock.
	for _, fn := range due {
		fn()
	}
}

// At registers fn to run the first time virtual time reaches now+d. Tests use
// it to inject serial lines or process exits in the middle of a sleep.
func (c *FakeClock) At(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fakeHook{deadline: c.current.Add(d), fn: fn})
}

// Slept returns every duration passed to Sleep, in call order.
func (c *FakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.slept))
	copy(out, c.slept)
	return out
}

// TotalSlept sums every recorded sleep.
func (c *FakeClock) TotalSlept() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total time.Duration
	for _, d := range c.slept {
		total += d
	}
	return total
}
