package asynchandler

import (
	"runtime"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a Pipeline's consumer.
type State int32

const (
	StateNotStarted State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateRunning:
		return "Running"
	case StateDraining:
		return "Draining"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

const numStripes = 64

// stripe is the highest sequence published by any producer hashed to it.
type stripe struct {
	last atomic.Int64
	_    [56]byte
}

func (s *stripe) advance(seq int64) {
	for {
		cur := s.last.Load()
		if seq <= cur || s.last.CompareAndSwap(cur, seq) {
			return
		}
	}
}

// awaitProducer waits until every entry the producer published has been
// consumed, or the consumer has exited. Producers sharing a stripe may make
// it wait for each other's entries too.
func (p *Pipeline) awaitProducer(id uint64) {
	p.awaitConsumed(p.stripes[id%numStripes].last.Load(), time.Time{})
}

// awaitConsumed waits until target has been consumed, the consumer has
// exited, or deadline passes. A zero deadline never passes.
func (p *Pipeline) awaitConsumed(target int64, deadline time.Time) bool {
	backoff := time.Microsecond
	for i := 0; p.ring.Consumed() < target; i++ {
		if isClosed(p.consumerDone) {
			return true
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return false
		}
		if i < 16 {
			runtime.Gosched()
			continue
		}
		time.Sleep(backoff)
		backoff = min(backoff*2, time.Millisecond)
	}
	return true
}

func isClosed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
