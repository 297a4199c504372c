package asynchandler

import (
	"go.uber.org/zap"

	"github.com/philipp01105/ringlog/core"
)

// run is the consumer goroutine.
func (p *Pipeline) run() {
	defer close(p.consumerDone)
	p.log.Debug("consumer started", zap.Int("capacity", p.ring.Capacity()))

	for {
		if isClosed(p.halt) {
			p.log.Debug("consumer halted", zap.Int64("consumed", p.ring.Consumed()))
			return
		}
		if p.consumeBatch() > 0 {
			continue
		}

		if State(p.state.Load()) != StateDraining {
			p.ring.WaitPublished(p.drainCh)
			continue
		}

		// Draining: everything claimed when the drain began, then close the
		// ring and take whatever was claimed before the close.
		if p.ring.Consumed()+1 < p.frontier.Load() {
			p.ring.WaitPublished(p.halt)
			continue
		}
		if !p.ring.Closed() {
			p.frontier.Store(p.ring.Close())
			continue
		}
		p.log.Debug("consumer drained", zap.Int64("consumed", p.ring.Consumed()))
		return
	}
}

// consumeBatch dispatches the contiguous run of published entries, up to one
// ring's worth, and flushes the downstream handler once at the end.
func (p *Pipeline) consumeBatch() int {
	n := 0
	limit := p.ring.Capacity()
	for n < limit {
		if isClosed(p.halt) {
			break
		}
		seq, slot, ok := p.ring.Poll()
		if !ok {
			break
		}
		p.deliver(slot)
		slot.Reset()
		p.ring.Release(seq)
		n++
	}
	if n > 0 {
		p.flush()
	}
	return n
}

func (p *Pipeline) deliver(slot *core.Entry) {
	e := slot
	if !p.recycle {
		// The downstream handler keeps the entry, so it gets its own copy.
		e = core.GetEntry()
		e.CopyFrom(slot)
	}
	// Failures are counted and reported by dispatch.
	_ = p.dispatch(e)
	p.stats.IncrementProcessed()
}
