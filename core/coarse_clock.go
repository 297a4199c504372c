package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// CoarseClockResolution is how often the shared coarse clock refreshes.
const CoarseClockResolution = 500 * time.Microsecond

// CoarseClock caches the wall clock, refreshed by a ticker goroutine that
// runs while at least one user holds a reference. Reading it is a single
// atomic load, which matters on the producer path where time.Now shows up
// in profiles.
type CoarseClock struct {
	resolution time.Duration
	nanos      atomic.Int64

	mu   sync.Mutex
	refs int
	stop chan struct{}
	done chan struct{}
}

// NewCoarseClock returns a stopped clock. Now falls back to time.Now until
// Acquire starts it.
func NewCoarseClock(resolution time.Duration) *CoarseClock {
	if resolution <= 0 {
		resolution = CoarseClockResolution
	}
	return &CoarseClock{resolution: resolution}
}

// Acquire starts the refresh goroutine on the first reference.
func (c *CoarseClock) Acquire() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs++
	if c.refs > 1 {
		return
	}
	c.nanos.Store(time.Now().UnixNano())
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	go c.run(c.stop, c.done)
}

// Release drops a reference and stops the goroutine when none remain. It
// returns once the goroutine has exited.
func (c *CoarseClock) Release() {
	c.mu.Lock()
	if c.refs == 0 {
		c.mu.Unlock()
		return
	}
	c.refs--
	if c.refs > 0 {
		c.mu.Unlock()
		return
	}
	stop, done := c.stop, c.done
	c.stop, c.done = nil, nil
	c.nanos.Store(0)
	c.mu.Unlock()

	close(stop)
	<-done
}

func (c *CoarseClock) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.resolution)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			c.nanos.Store(now.UnixNano())
		}
	}
}

// Running reports whether the refresh goroutine is active.
func (c *CoarseClock) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.refs > 0
}

// Now returns the cached time, or time.Now while the clock is stopped.
func (c *CoarseClock) Now() time.Time {
	if n := c.nanos.Load(); n != 0 {
		return time.Unix(0, n)
	}
	return time.Now()
}

var (
	sharedClock     = NewCoarseClock(CoarseClockResolution)
	sharedClockOnce sync.Once
)

// StartCoarseClock starts the process-wide clock behind CoarseNow. Repeated
// calls are no-ops; the clock then runs for the life of the process.
func StartCoarseClock() {
	sharedClockOnce.Do(sharedClock.Acquire)
}

// CoarseNow reads the process-wide clock.
func CoarseNow() time.Time {
	return sharedClock.Now()
}
