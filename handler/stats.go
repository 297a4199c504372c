package handler

import (
	"sync/atomic"

	"github.com/philipp01105/ringlog/core"
)

// Stats tracks pipeline statistics. All counters are updated atomically and
// may be read from any goroutine.
type Stats struct {
	dropped [core.NumLevels]atomic.Uint64

	enqueued       atomic.Uint64
	processed      atomic.Uint64
	blocked        atomic.Uint64
	claimTimeouts  atomic.Uint64
	syncDispatched atomic.Uint64
	dispatchErrors atomic.Uint64
	postShutdown   atomic.Uint64
}

// NewStats creates a new Stats instance
func NewStats() *Stats {
	return &Stats{}
}

// IncrementDropped atomically increments the dropped counter for a level
func (s *Stats) IncrementDropped(level core.Level) {
	if !level.Valid() {
		level = core.FatalLevel
	}
	s.dropped[level].Add(1)
}

// IncrementEnqueued counts an entry published to the ring.
func (s *Stats) IncrementEnqueued() { s.enqueued.Add(1) }

// IncrementBlocked atomically increments the blocked counter
func (s *Stats) IncrementBlocked() { s.blocked.Add(1) }

// IncrementProcessed atomically increments the processed counter
func (s *Stats) IncrementProcessed() { s.processed.Add(1) }

// IncrementClaimTimeout counts a blocking enqueue that gave up.
func (s *Stats) IncrementClaimTimeout() { s.claimTimeouts.Add(1) }

// IncrementSyncDispatched counts an entry handled on the producer goroutine.
func (s *Stats) IncrementSyncDispatched() { s.syncDispatched.Add(1) }

// IncrementDispatchErrors counts a failed or panicking downstream call.
func (s *Stats) IncrementDispatchErrors() { s.dispatchErrors.Add(1) }

// IncrementPostShutdown counts an entry logged after the pipeline closed.
func (s *Stats) IncrementPostShutdown() { s.postShutdown.Add(1) }

// GetDropped returns the dropped count for a level
func (s *Stats) GetDropped(level core.Level) uint64 {
	if !level.Valid() {
		return 0
	}
	return s.dropped[level].Load()
}

// GetBlocked returns the blocked count
func (s *Stats) GetBlocked() uint64 { return s.blocked.Load() }

// GetProcessed returns the processed count
func (s *Stats) GetProcessed() uint64 { return s.processed.Load() }

// GetTotalDropped returns the total dropped across all levels
func (s *Stats) GetTotalDropped() uint64 {
	var total uint64
	for i := range s.dropped {
		total += s.dropped[i].Load()
	}
	return total
}

// Reset resets all counters to zero
func (s *Stats) Reset() {
	for i := range s.dropped {
		s.dropped[i].Store(0)
	}
	s.enqueued.Store(0)
	s.processed.Store(0)
	s.blocked.Store(0)
	s.claimTimeouts.Store(0)
	s.syncDispatched.Store(0)
	s.dispatchErrors.Store(0)
	s.postShutdown.Store(0)
}

// Snapshot is a point-in-time copy of Stats.
type Snapshot struct {
	DroppedTotal   map[core.Level]uint64
	EnqueuedTotal  uint64
	ProcessedTotal uint64
	BlockedTotal   uint64
	ClaimTimeouts  uint64
	SyncDispatched uint64
	DispatchErrors uint64
	PostShutdown   uint64
}

// Dropped returns the sum of DroppedTotal.
func (s Snapshot) Dropped() uint64 {
	var total uint64
	for _, n := range s.DroppedTotal {
		total += n
	}
	return total
}

// GetSnapshot returns a snapshot of current statistics
func (s *Stats) GetSnapshot() Snapshot {
	dropped := make(map[core.Level]uint64, core.NumLevels)
	for i := range s.dropped {
		dropped[core.Level(i)] = s.dropped[i].Load()
	}
	return Snapshot{
		DroppedTotal:   dropped,
		EnqueuedTotal:  s.enqueued.Load(),
		ProcessedTotal: s.processed.Load(),
		BlockedTotal:   s.blocked.Load(),
		ClaimTimeouts:  s.claimTimeouts.Load(),
		SyncDispatched: s.syncDispatched.Load(),
		DispatchErrors: s.dispatchErrors.Load(),
		PostShutdown:   s.postShutdown.Load(),
	}
}
