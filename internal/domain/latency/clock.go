package latency

import (
	"sync/atomic"
	"time"
)

// Clock yields the current instant in microseconds since the UNIX epoch.
// Production code injects NewMonotonicClock(); tests inject a FixedClock.
type Clock interface {
	NowMicros() int64
}

// MonotonicClock anchors the wall clock once and advances it with the
// monotonic reading, so wall-clock steps after start do not move it.
type MonotonicClock struct {
	base   time.Time
	baseUs int64
}

// NewMonotonicClock captures the current wall instant as its epoch offset.
func NewMonotonicClock() *MonotonicClock {
	now := time.Now()
	return &MonotonicClock{base: now, baseUs: now.UnixMicro()}
}

// NowMicros returns the base epoch plus elapsed monotonic time, floored to
// microseconds.
func (c *MonotonicClock) NowMicros() int64 {
	return c.baseUs + time.Since(c.base).Microseconds()
}

// FixedClock returns a settable instant.
type FixedClock struct {
	us atomic.Int64
}

// NewFixedClock creates a FixedClock reading us.
func NewFixedClock(us int64) *FixedClock {
	c := &FixedClock{}
	c.us.Store(us)
	return c
}

// NowMicros returns the stored instant.
func (c *FixedClock) NowMicros() int64 { return c.us.Load() }

// Set replaces the stored instant.
func (c *FixedClock) Set(us int64) { c.us.Store(us) }

// Advance moves the stored instant forward by d.
func (c *FixedClock) Advance(d time.Duration) { c.us.Add(d.Microseconds()) }
