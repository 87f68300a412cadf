package testutil

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"dirsync/internal/dirsync"
)

// StubClock is a dirsync.Clock that only moves when Advance is called.
type StubClock struct {
	mu      sync.Mutex
	current time.Time
}

// FixedClock starts half an hour after BaseTime, so journal and history
// timestamps never coincide with the mtimes of test files.
func FixedClock() *StubClock {
	return &StubClock{current: BaseTime.Add(30 * time.Minute)}
}

func (c *StubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d.
func (c *StubClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	c.mu.Unlock()
}

// StubIDGenerator hands out run IDs "run-1", "run-2", ... in call order.
type StubIDGenerator struct {
	issued atomic.Int64
}

func NewStubIDGenerator() *StubIDGenerator {
	return &StubIDGenerator{}
}

func (g *StubIDGenerator) New() string {
	return "run-" + strconv.FormatInt(g.issued.Add(1), 10)
}

var (
	_ dirsync.Clock       = (*StubClock)(nil)
	_ dirsync.IDGenerator = (*StubIDGenerator)(nil)
)
