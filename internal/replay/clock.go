// Package replay provides the determinism harness: frozen clocks,
// seeded RNG, HTTP and LLM cassettes, and snapshot comparison. Two
// runs with identical inputs under the same Context produce
// byte-identical output.
package replay

import (
	"sync"
	"time"
)

// Clock is a time source. The real clock delegates to time.Now; the
// frozen clock returns a pinned instant, optionally stepping forward
// on each read so durations stay distinguishable.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system time.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// FrozenClock returns a fixed instant, advancing by step per call.
type FrozenClock struct {
	mu   sync.Mutex
	at   time.Time
	step time.Duration
}

// NewFrozenClock pins the clock at the given instant. A zero step
// makes every read identical.
func NewFrozenClock(at time.Time, step time.Duration) *FrozenClock {
	return &FrozenClock{at: at, step: step}
}

func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.at
	c.at = c.at.Add(c.step)
	return now
}

// Context bundles the determinism knobs a replayed run pins: clock,
// RNG, and cassettes.
type Context struct {
	Clock Clock
	RNG   *RNG
	HTTP  *HTTPCassette
	LLM   *LLMCassette
}

// NewContext pins the RNG to seed and optionally freezes time. A nil
// frozenAt leaves the real clock in place.
func NewContext(seed uint64, frozenAt *time.Time) *Context {
	ctx := &Context{
		Clock: RealClock{},
		RNG:   NewRNG(seed),
	}
	if frozenAt != nil {
		ctx.Clock = NewFrozenClock(*frozenAt, time.Millisecond)
	}
	return ctx
}
