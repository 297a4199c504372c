package handler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/philipp01105/ringlog/core"
)

// Outcome is what a QueueFullPolicy did with an entry.
type Outcome uint8

const (
	// Enqueued means the entry reached the ring after all.
	Enqueued Outcome = iota
	// Discarded means the entry was dropped and counted.
	Discarded
	// HandledSynchronously means the entry was dispatched on the caller.
	HandledSynchronously
)

func (o Outcome) String() string {
	switch o {
	case Enqueued:
		return "Enqueued"
	case Discarded:
		return "Discarded"
	case HandledSynchronously:
		return "HandledSynchronously"
	default:
		return "Unknown"
	}
}

// QueueFullPolicy decides what happens to an entry when the ring has no free
// slot. It runs on the producer goroutine and is invoked only after a
// non-blocking claim failed.
type QueueFullPolicy interface {
	OnQueueFull(e *core.Entry, q Queue) Outcome
}

// BlockingPolicy waits for a free slot. A Timeout of zero or less waits
// without a deadline; otherwise the entry is discarded when the deadline
// passes, or dispatched synchronously when SyncOnTimeout is set. If the
// queue stops while waiting, the entry is dispatched synchronously.
type BlockingPolicy struct {
	Timeout       time.Duration
	SyncOnTimeout bool
}

// OnQueueFull implements QueueFullPolicy.
func (p BlockingPolicy) OnQueueFull(e *core.Entry, q Queue) Outcome {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = -1
	}
	err := q.EnqueueTimeout(e, timeout)
	switch {
	case err == nil:
		return Enqueued
	case errors.Is(err, ErrQueueStopped), p.SyncOnTimeout:
		// Sink failures are reported by the queue itself.
		_ = q.DispatchSync(e)
		return HandledSynchronously
	default:
		return Discarded
	}
}

// DiscardByLevelPolicy drops entries whose level is below Threshold and
// hands everything else to Fallback, which defaults to a BlockingPolicy
// without deadline. The zero Threshold drops nothing.
type DiscardByLevelPolicy struct {
	Threshold core.Level
	Fallback  QueueFullPolicy
}

// NewDiscardByLevelPolicy validates threshold. Thresholds above ERROR are
// rejected so that ERROR and FATAL entries are never dropped by level.
func NewDiscardByLevelPolicy(threshold core.Level, fallback QueueFullPolicy) (*DiscardByLevelPolicy, error) {
	if !threshold.Valid() || threshold > core.ErrorLevel {
		return nil, fmt.Errorf("discard threshold %s: must be between TRACE and ERROR", threshold)
	}
	return &DiscardByLevelPolicy{Threshold: threshold, Fallback: fallback}, nil
}

// OnQueueFull implements QueueFullPolicy.
func (p *DiscardByLevelPolicy) OnQueueFull(e *core.Entry, q Queue) Outcome {
	if e.Level < p.Threshold {
		return Discarded
	}
	if p.Fallback == nil {
		return BlockingPolicy{}.OnQueueFull(e, q)
	}
	return p.Fallback.OnQueueFull(e, q)
}

// SyncFallbackPolicy dispatches the entry on the calling goroutine. The
// queue first waits for the producer's earlier entries to be dispatched, so
// per-producer order is kept. Producers are told apart by Entry.ThreadID;
// entries from unbound loggers share ID 0 and wait on each other's backlog.
type SyncFallbackPolicy struct{}

// OnQueueFull implements QueueFullPolicy.
func (SyncFallbackPolicy) OnQueueFull(e *core.Entry, q Queue) Outcome {
	_ = q.DispatchSync(e)
	return HandledSynchronously
}

// PolicyKind names one of the built-in policies.
type PolicyKind uint8

const (
	// PolicyBlocking selects BlockingPolicy.
	PolicyBlocking PolicyKind = iota
	// PolicyDiscard selects DiscardByLevelPolicy with a blocking fallback.
	PolicyDiscard
	// PolicySync selects SyncFallbackPolicy.
	PolicySync
)

func (k PolicyKind) String() string {
	switch k {
	case PolicyBlocking:
		return "blocking"
	case PolicyDiscard:
		return "discard"
	case PolicySync:
		return "sync"
	default:
		return "unknown"
	}
}

// ParsePolicyKind converts a policy name. An empty name means PolicyDiscard.
func ParsePolicyKind(s string) (PolicyKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "blocking", "block":
		return PolicyBlocking, nil
	case "discard", "":
		return PolicyDiscard, nil
	case "sync", "synchronous":
		return PolicySync, nil
	default:
		return PolicyDiscard, fmt.Errorf("unknown queue-full policy %q", s)
	}
}

// PolicyConfig selects and parameterises a built-in policy.
type PolicyConfig struct {
	Kind PolicyKind
	// Threshold is used by PolicyDiscard.
	Threshold core.Level
	// BlockTimeout bounds the blocking wait of PolicyBlocking and of the
	// PolicyDiscard fallback. Zero or less waits without deadline.
	BlockTimeout time.Duration
}

// DefaultPolicyConfig drops DEBUG, INFO and WARN when the ring is full. ERROR
// and FATAL block for BlockTimeout and are then written synchronously.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Kind:         PolicyDiscard,
		Threshold:    core.ErrorLevel,
		BlockTimeout: 100 * time.Millisecond,
	}
}

// NewPolicy builds the policy described by cfg.
func NewPolicy(cfg PolicyConfig) (QueueFullPolicy, error) {
	switch cfg.Kind {
	case PolicyBlocking:
		return BlockingPolicy{Timeout: cfg.BlockTimeout}, nil
	case PolicyDiscard:
		return NewDiscardByLevelPolicy(cfg.Threshold, BlockingPolicy{Timeout: cfg.BlockTimeout, SyncOnTimeout: true})
	case PolicySync:
		return SyncFallbackPolicy{}, nil
	default:
		return nil, fmt.Errorf("unknown queue-full policy %d", cfg.Kind)
	}
}
