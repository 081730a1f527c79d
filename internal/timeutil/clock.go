// Package timeutil supplies the wall clock the store stamps imports and
// analysis runs with, and a settable one for tests.
package timeutil

import (
	"sync/atomic"
	"time"
)

// Clock reports the current time.
type Clock interface {
	Now() time.Time
}

// RealClock is the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Elapsed is the time since start on c.
func Elapsed(c Clock, start time.Time) time.Duration {
	return c.Now().Sub(start)
}

// MockClock only moves when told to. It is safe for concurrent use and
// always reports UTC.
type MockClock struct {
	nanos atomic.Int64
}

func NewMockClock(t time.Time) *MockClock {
	c := &MockClock{}
	c.Set(t)
	return c
}

func (c *MockClock) Now() time.Time { return time.Unix(0, c.nanos.Load()).UTC() }

// Set jumps to t.
func (c *MockClock) Set(t time.Time) { c.nanos.Store(t.UnixNano()) }

// Advance moves the clock forward by d.
func (c *MockClock) Advance(d time.Duration) { c.nanos.Add(int64(d)) }
