// Package clock supplies the timestamps the datastore orders node heartbeats and change feeds by.
package clock

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Timestamp is a point in time in milliseconds since the Unix epoch.
type Timestamp uint64

func FromTime(t time.Time) Timestamp {
	return Timestamp(t.UnixMilli())
}

func (ts Timestamp) Time() time.Time {
	return time.UnixMilli(int64(ts))
}

// Seconds truncates the timestamp to whole seconds since the epoch.
func (ts Timestamp) Seconds() uint64 {
	return uint64(ts) / 1000
}

func (ts Timestamp) Add(d time.Duration) Timestamp {
	return ts + Timestamp(d.Milliseconds())
}

// Sub goes back d in time, stopping at zero.
func (ts Timestamp) Sub(d time.Duration) Timestamp {
	ms := Timestamp(d.Milliseconds())
	if ms > ts {
		return 0
	}
	return ts - ms
}

type Clock interface {
	Now() Timestamp
}

// SystemClock reads the wall clock.
type SystemClock struct {
	c clock.Clock
}

func NewSystemClock() *SystemClock {
	return &SystemClock{c: clock.New()}
}

func (c *SystemClock) Now() Timestamp {
	return FromTime(c.c.Now())
}

// FakeClock only moves when told to.
type FakeClock struct {
	mock *clock.Mock
}

func NewFakeClock(start time.Time) *FakeClock {
	m := clock.NewMock()
	m.Set(start)
	return &FakeClock{mock: m}
}

func (c *FakeClock) Now() Timestamp {
	return FromTime(c.mock.Now())
}

func (c *FakeClock) Set(t time.Time) {
	c.mock.Set(t)
}

func (c *FakeClock) Add(d time.Duration) {
	c.mock.Add(d)
}

// IncClock returns a timestamp one step later on every call, starting at start.
type IncClock struct {
	mu   sync.Mutex
	next Timestamp
	step time.Duration
}

func NewIncClock(start Timestamp, step time.Duration) *IncClock {
	return &IncClock{next: start, step: step}
}

func (c *IncClock) Now() Timestamp {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts := c.next
	c.next = c.next.Add(c.step)
	return ts
}
