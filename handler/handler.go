package handler

import (
	"errors"
	"fmt"
	"time"

	"github.com/philipp01105/ringlog/core"
)

// Handler defines the interface for log handlers
type Handler interface {
	// Handle processes a log entry
	Handle(entry *core.Entry) error

	// Close closes the handler and releases resources
	Close() error
}

// Flusher is implemented by handlers that buffer output. An async pipeline
// calls Flush at the end of every batch it dispatches.
type Flusher interface {
	Flush() error
}

// Recycler is implemented by handlers that are done with an entry once
// Handle returns, so the caller may reuse it.
type Recycler interface {
	CanRecycleEntry() bool
}

// CanRecycle reports whether h is known to release entries on return.
func CanRecycle(h Handler) bool {
	rc, ok := h.(Recycler)
	return ok && rc.CanRecycleEntry()
}

// StatsProvider is implemented by handlers that keep Stats.
type StatsProvider interface {
	Stats() Snapshot
}

// ErrQueueStopped is returned by a Queue that no longer accepts entries.
var ErrQueueStopped = errors.New("handler: queue stopped")

// Queue is the view of an async pipeline that a QueueFullPolicy acts on.
type Queue interface {
	// EnqueueTimeout waits up to timeout for a free slot and enqueues a copy
	// of e. A negative timeout waits until a slot frees or the queue stops.
	// It returns ring.ErrClaimTimeout when the deadline passes and
	// ErrQueueStopped once the queue is shutting down.
	EnqueueTimeout(e *core.Entry, timeout time.Duration) error

	// DispatchSync hands e to the downstream handler on the calling
	// goroutine, after every entry the same producer enqueued earlier has
	// been dispatched.
	DispatchSync(e *core.Entry) error
}

// DispatchError is a downstream failure for one entry.
type DispatchError struct {
	Handler  string
	Sequence int64
	Err      error
}

func (e *DispatchError) Error() string {
	if e.Sequence < 0 {
		return fmt.Sprintf("dispatch to %s: %v", e.Handler, e.Err)
	}
	return fmt.Sprintf("dispatch seq %d to %s: %v", e.Sequence, e.Handler, e.Err)
}

func (e *DispatchError) Unwrap() error { return e.Err }

// Name returns a short name for h, used in diagnostics.
func Name(h Handler) string {
	if n, ok := h.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", h)
}
