package ring

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

const cacheLineSize = 64

// State bits folded into the claim cursor so that a claim can never race
// past Start or Close: both are observed by the same CAS that takes the
// sequence.
const (
	notStartedBit int64 = 1 << 61
	closedBit     int64 = 1 << 62
	seqMask             = notStartedBit - 1
)

// Slot holds one value and the sequence it was last published with.
type Slot[T any] struct {
	published atomic.Int64
	value     T
}

// Claim is a producer's exclusive right to fill one slot. It must be
// published exactly once.
type Claim[T any] struct {
	seq  int64
	slot *Slot[T]
}

// Seq returns the claimed sequence.
func (c Claim[T]) Seq() int64 { return c.seq }

// Value returns the slot's value for the producer to fill.
func (c Claim[T]) Value() *T { return &c.slot.value }

// Valid reports whether c came from a successful claim.
func (c Claim[T]) Valid() bool { return c.slot != nil }

// Buffer is a bounded MPSC ring of T.
type Buffer[T any] struct {
	// next is the claim cursor with the state bits above.
	next atomic.Int64
	_    [cacheLineSize - 8]byte

	// consumed is the highest released sequence, -1 when none.
	consumed atomic.Int64
	_        [cacheLineSize - 8]byte

	// cursor is the highest polled sequence. Written by the consumer only.
	cursor atomic.Int64
	_      [cacheLineSize - 8]byte

	waiters atomic.Int32
	parked  atomic.Bool

	capacity    int64
	mask        int64
	slots       []Slot[T]
	strategy    WaitStrategy
	parkTimeout time.Duration

	notFull   broadcast
	notEmpty  chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

// New returns a stopped buffer with the given capacity.
func New[T any](capacity int, opts ...Option) (*Buffer[T], error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 || int64(capacity) > seqMask {
		return nil, fmt.Errorf("%w: got %d", ErrCapacity, capacity)
	}

	o := options{strategy: Blocking, parkTimeout: DefaultParkTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	b := &Buffer[T]{
		capacity:    int64(capacity),
		mask:        int64(capacity - 1),
		slots:       make([]Slot[T], capacity),
		strategy:    o.strategy,
		parkTimeout: o.parkTimeout,
		notEmpty:    make(chan struct{}, 1),
		closed:      make(chan struct{}),
	}
	for i := range b.slots {
		b.slots[i].published.Store(-1)
	}
	b.next.Store(notStartedBit)
	b.consumed.Store(-1)
	b.cursor.Store(-1)
	return b, nil
}

// Start opens the buffer for claims. It is idempotent and has no effect on a
// closed buffer.
func (b *Buffer[T]) Start() {
	for {
		cur := b.next.Load()
		if cur&notStartedBit == 0 || cur&closedBit != 0 {
			return
		}
		if b.next.CompareAndSwap(cur, cur&^notStartedBit) {
			return
		}
	}
}

// Started reports whether Start has been called.
func (b *Buffer[T]) Started() bool {
	return b.next.Load()&notStartedBit == 0
}

// TryClaim claims the next sequence without waiting.
func (b *Buffer[T]) TryClaim() (Claim[T], error) {
	for {
		cur := b.next.Load()
		switch {
		case cur&closedBit != 0:
			return Claim[T]{}, ErrClosed
		case cur&notStartedBit != 0:
			return Claim[T]{}, ErrNotStarted
		case cur-b.capacity > b.consumed.Load():
			return Claim[T]{}, ErrFull
		}
		if b.next.CompareAndSwap(cur, cur+1) {
			return Claim[T]{seq: cur, slot: &b.slots[cur&b.mask]}, nil
		}
	}
}

// ClaimBlocking claims the next sequence, waiting up to timeout for the
// consumer to free a slot. A zero timeout is TryClaim; a negative timeout
// waits until a slot frees or the buffer closes.
func (b *Buffer[T]) ClaimBlocking(timeout time.Duration) (Claim[T], error) {
	if timeout == 0 {
		return b.TryClaim()
	}
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	return b.claimWait(deadline, nil)
}

// ClaimContext claims the next sequence, waiting until a slot frees, the
// buffer closes, or ctx is done.
func (b *Buffer[T]) ClaimContext(ctx context.Context) (Claim[T], error) {
	c, err := b.claimWait(time.Time{}, ctx.Done())
	if err == ErrClaimTimeout {
		return c, fmt.Errorf("%w: %w", ErrClaimTimeout, ctx.Err())
	}
	return c, err
}

func (b *Buffer[T]) claimWait(deadline time.Time, done <-chan struct{}) (Claim[T], error) {
	backoff := minBackoff
	for i := 0; ; i++ {
		c, err := b.TryClaim()
		if err != ErrFull {
			return c, err
		}
		if i < spinTries {
			continue
		}
		if i < spinTries+yieldTries {
			runtime.Gosched()
			continue
		}

		wait := backoff
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return Claim[T]{}, ErrClaimTimeout
			}
			wait = min(wait, remaining)
		}
		if isDone(done) {
			return Claim[T]{}, ErrClaimTimeout
		}

		b.waiters.Add(1)
		signal := b.notFull.wait()
		// Release stores consumed before it reads waiters, so either this
		// retry sees the new cursor or Release closes signal.
		if c, err := b.TryClaim(); err != ErrFull {
			b.waiters.Add(-1)
			return c, err
		}
		timer := time.NewTimer(wait)
		select {
		case <-signal:
		case <-b.closed:
		case <-done:
		case <-timer.C:
		}
		timer.Stop()
		b.waiters.Add(-1)

		backoff = min(backoff*2, b.parkTimeout)
	}
}

// Publish makes a claimed slot visible to the consumer.
func (b *Buffer[T]) Publish(c Claim[T]) {
	c.slot.published.Store(c.seq)
	if b.parked.Load() {
		select {
		case b.notEmpty <- struct{}{}:
		default:
		}
	}
}

// Poll returns the value at the next contiguous sequence if it has been
// published. The value stays owned by the consumer until Release.
func (b *Buffer[T]) Poll() (int64, *T, bool) {
	seq := b.cursor.Load() + 1
	slot := &b.slots[seq&b.mask]
	if slot.published.Load() != seq {
		return 0, nil, false
	}
	b.cursor.Store(seq)
	return seq, &slot.value, true
}

// Release marks every sequence up to and including seq as consumed, freeing
// their slots for producers.
func (b *Buffer[T]) Release(seq int64) {
	b.consumed.Store(seq)
	if b.waiters.Load() > 0 {
		b.notFull.notify()
	}
}

// Close refuses all further claims and returns the number of sequences
// claimed before the close. Claims already taken can still be published and
// polled. Close is idempotent.
func (b *Buffer[T]) Close() int64 {
	prev := b.next.Or(closedBit)
	b.closeOnce.Do(func() {
		close(b.closed)
		b.notFull.notify()
	})
	return prev & seqMask
}

// Closed reports whether Close has been called.
func (b *Buffer[T]) Closed() bool {
	return b.next.Load()&closedBit != 0
}

// Claimed returns the number of sequences claimed so far.
func (b *Buffer[T]) Claimed() int64 {
	return b.next.Load() & seqMask
}

// Consumed returns the highest released sequence, or -1.
func (b *Buffer[T]) Consumed() int64 {
	return b.consumed.Load()
}

// Published returns the highest sequence such that it and every sequence
// before it has been published, or -1. It scans the ring and is meant for
// diagnostics.
func (b *Buffer[T]) Published() int64 {
	seq := b.consumed.Load()
	limit := b.Claimed()
	for seq+1 < limit {
		next := seq + 1
		if b.slots[next&b.mask].published.Load() != next {
			break
		}
		seq = next
	}
	return seq
}

// RemainingCapacity returns how many claims could succeed right now.
func (b *Buffer[T]) RemainingCapacity() int64 {
	used := b.Claimed() - (b.consumed.Load() + 1)
	if used < 0 {
		used = 0
	}
	return max(b.capacity-used, 0)
}

// Capacity returns the number of slots.
func (b *Buffer[T]) Capacity() int {
	return int(b.capacity)
}

// Strategy returns the configured wait strategy.
func (b *Buffer[T]) Strategy() WaitStrategy {
	return b.strategy
}
