package ring

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"
)

// WaitStrategy selects how an idle consumer waits for the next publish.
type WaitStrategy uint8

const (
	// Blocking parks the consumer on a signal raised by Publish. It is the
	// cheapest on CPU and the default.
	Blocking WaitStrategy = iota
	// Sleeping spins briefly, then yields, then sleeps in short intervals.
	Sleeping
	// Yielding spins and yields the processor without ever sleeping.
	Yielding
)

const (
	spinTries  = 64
	yieldTries = 16

	sleepInterval = 100 * time.Microsecond

	// DefaultParkTimeout bounds every park so a missed signal only costs
	// latency.
	DefaultParkTimeout = 10 * time.Millisecond

	minBackoff = 50 * time.Microsecond
)

func (s WaitStrategy) String() string {
	switch s {
	case Blocking:
		return "blocking"
	case Sleeping:
		return "sleeping"
	case Yielding:
		return "yielding"
	default:
		return fmt.Sprintf("WaitStrategy(%d)", uint8(s))
	}
}

// ParseWaitStrategy converts a strategy name. An empty name means Blocking.
func ParseWaitStrategy(s string) (WaitStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "blocking":
		return Blocking, nil
	case "sleeping":
		return Sleeping, nil
	case "yielding":
		return Yielding, nil
	default:
		return Blocking, fmt.Errorf("unknown wait strategy %q", s)
	}
}

// Option configures a Buffer.
type Option func(*options)

type options struct {
	strategy    WaitStrategy
	parkTimeout time.Duration
}

// WithWaitStrategy sets the consumer wait strategy.
func WithWaitStrategy(s WaitStrategy) Option {
	return func(o *options) { o.strategy = s }
}

// WithParkTimeout sets the upper bound of a single park, for both the
// consumer and producers waiting for space.
func WithParkTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.parkTimeout = d
		}
	}
}

// broadcast wakes every goroutine that fetched the current channel.
type broadcast struct {
	mu sync.Mutex
	ch chan struct{}
}

func (b *broadcast) wait() <-chan struct{} {
	b.mu.Lock()
	if b.ch == nil {
		b.ch = make(chan struct{})
	}
	ch := b.ch
	b.mu.Unlock()
	return ch
}

func (b *broadcast) notify() {
	b.mu.Lock()
	if b.ch != nil {
		close(b.ch)
		b.ch = nil
	}
	b.mu.Unlock()
}

// WaitPublished blocks the consumer until the next sequence is published,
// the buffer is closed, done is closed, or one park interval passes. It
// returns immediately when the next sequence is already available. Callers
// loop on Poll.
func (b *Buffer[T]) WaitPublished(done <-chan struct{}) {
	switch b.strategy {
	case Yielding:
		for i := 0; i < spinTries; i++ {
			if b.ready() || isDone(done) {
				return
			}
			runtime.Gosched()
		}
	case Sleeping:
		for i := 0; i < spinTries+yieldTries; i++ {
			if b.ready() || isDone(done) {
				return
			}
			if i >= spinTries {
				runtime.Gosched()
			}
		}
		time.Sleep(sleepInterval)
	default:
		for i := 0; i < spinTries; i++ {
			if b.ready() {
				return
			}
		}
		b.park(done)
	}
}

func (b *Buffer[T]) park(done <-chan struct{}) {
	b.parked.Store(true)
	defer b.parked.Store(false)

	// Publish stores the marker before it checks parked; checking again
	// after setting parked closes the window.
	if b.ready() || b.next.Load()&closedBit != 0 {
		return
	}

	timer := time.NewTimer(b.parkTimeout)
	defer timer.Stop()
	select {
	case <-b.notEmpty:
	case <-b.closed:
	case <-done:
	case <-timer.C:
	}
}

// ready reports whether the sequence after the last polled one is published.
func (b *Buffer[T]) ready() bool {
	seq := b.cursor.Load() + 1
	return b.slots[seq&b.mask].published.Load() == seq
}

func isDone(done <-chan struct{}) bool {
	select {
	case <-done:
		return true
	default:
		return false
	}
}

// RoundUp returns the smallest power of two that is >= n, or 1 for n < 1.
// It converts a requested size into a valid capacity.
func RoundUp(n int) int {
	if n <= 1 {
		return 1
	}
	c := 1
	for c < n {
		c <<= 1
	}
	return c
}
