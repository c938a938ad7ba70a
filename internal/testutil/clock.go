// Package testutil provides in-memory stand-ins for the engine's
// dependencies: a fixed clock, a sequential ID generator, a seeded
// in-memory sync store, a recording transport and a shared blob store.
package testutil

import (
	"fmt"
	"sync"
	"time"
)

// StubClock hands out a fixed time that only moves when Advance is
// called. Safe for concurrent use.
type StubClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewStubClock creates a StubClock pinned to t.
func NewStubClock(t time.Time) *StubClock {
	return &StubClock{now: t}
}

// FixedClock returns a StubClock pinned to 2024-01-15 10:30:00 UTC,
// the reference instant the engine tests are written against.
func FixedClock() *StubClock {
	return NewStubClock(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC))
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d. Tests use it to separate
// change-log entries that would otherwise share a timestamp.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StubIDGenerator hands out sequential IDs: "id-1", "id-2", etc.
// Predictable IDs keep sync-key assertions readable.
type StubIDGenerator struct {
	mu      sync.Mutex
	counter int
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("id-%d", g.counter)
}
