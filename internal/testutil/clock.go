package testutil

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// Genesis is the first timestamp a DeterministicClock reports.
var Genesis = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// DeterministicClock is a block clock for tests. Every call to Now advances
// it by Step, so the n-th block of a run always carries the same timestamp.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu   deadlock.Mutex
	next time.Time
	Step time.Duration
}

// NewDeterministicClock creates a clock starting at Genesis with a
// six-second step.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{next: Genesis, Step: 6 * time.Second}
}

// Now returns the current time and advances the clock.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.Step)
	return t
}

// Current returns the time the next call to Now will report.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Reset rewinds the clock to Genesis.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = Genesis
}
