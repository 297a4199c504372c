package asynchandler

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/internal/status"
	"github.com/philipp01105/ringlog/ring"
)

const (
	// DefaultCapacity is the ring size used when Config.Capacity is zero.
	DefaultCapacity = 1024
	// DefaultDrainTimeout bounds Close.
	DefaultDrainTimeout = 5 * time.Second
)

var (
	// ErrDrainTimeout is returned by Stop when entries were still in the
	// ring when the timeout passed.
	ErrDrainTimeout = errors.New("asynchandler: drain timed out")

	// ErrNoHandler is returned by New without a downstream handler.
	ErrNoHandler = errors.New("asynchandler: no downstream handler")

	// ErrDownstreamBusy is returned by Close when a write to the downstream
	// handler was still running after the drain timeout. The downstream
	// handler is left open.
	ErrDownstreamBusy = errors.New("asynchandler: downstream handler busy")
)

// Config configures a Pipeline.
type Config struct {
	// Handler receives every entry. Required.
	Handler handler.Handler

	// Name identifies the pipeline in diagnostics and metrics.
	Name string

	// Capacity is the number of ring slots, a power of two.
	// Default: 1024
	Capacity int

	// Policy runs when the ring is full.
	// Default: handler.NewPolicy(handler.DefaultPolicyConfig())
	Policy handler.QueueFullPolicy

	// DrainTimeout bounds the drain performed by Close.
	// Default: 5s
	DrainTimeout time.Duration

	// WaitStrategy selects how the idle consumer waits.
	WaitStrategy ring.WaitStrategy

	// ParkTimeout bounds a single park of the consumer or a waiting producer.
	// Default: ring.DefaultParkTimeout
	ParkTimeout time.Duration

	// Status receives diagnostics. Default: status.For("pipeline").
	Status *zap.Logger
}

func applyDefaults(cfg *Config) error {
	if cfg.Handler == nil {
		return ErrNoHandler
	}
	if cfg.Name == "" {
		cfg.Name = "async"
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Policy == nil {
		p, err := handler.NewPolicy(handler.DefaultPolicyConfig())
		if err != nil {
			return err
		}
		cfg.Policy = p
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if cfg.ParkTimeout <= 0 {
		cfg.ParkTimeout = ring.DefaultParkTimeout
	}
	if cfg.Status == nil {
		cfg.Status = status.For("pipeline")
	}
	return nil
}

// Pipeline is an asynchronous handler.Handler backed by a ring buffer.
type Pipeline struct {
	id     string
	name   string
	ring   *ring.Buffer[core.Entry]
	policy handler.QueueFullPolicy
	stats  *handler.Stats
	log    *zap.Logger

	downstream handler.Handler
	downName   string
	flusher    handler.Flusher
	recycle    bool

	// dispatchMu serialises downstream calls between the consumer and
	// producers writing synchronously. It also guards downClosed.
	dispatchMu sync.Mutex
	downClosed bool
	closedFlag atomic.Bool

	lifeMu       sync.Mutex
	state        atomic.Int32
	drainTimeout time.Duration
	frontier     atomic.Int64
	drainCh      chan struct{}
	halt         chan struct{}
	consumerDone chan struct{}

	stripes [numStripes]stripe
}

// New creates a stopped pipeline. It fails fast on an invalid capacity.
func New(cfg Config) (*Pipeline, error) {
	if err := applyDefaults(&cfg); err != nil {
		return nil, err
	}
	buf, err := ring.New[core.Entry](cfg.Capacity,
		ring.WithWaitStrategy(cfg.WaitStrategy),
		ring.WithParkTimeout(cfg.ParkTimeout))
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", cfg.Name, err)
	}

	p := &Pipeline{
		id:           uuid.NewString(),
		name:         cfg.Name,
		ring:         buf,
		policy:       cfg.Policy,
		stats:        handler.NewStats(),
		downstream:   cfg.Handler,
		downName:     handler.Name(cfg.Handler),
		recycle:      handler.CanRecycle(cfg.Handler),
		drainTimeout: cfg.DrainTimeout,
		drainCh:      make(chan struct{}),
		halt:         make(chan struct{}),
		consumerDone: make(chan struct{}),
	}
	p.flusher, _ = cfg.Handler.(handler.Flusher)
	p.log = cfg.Status.With(zap.String("pipeline", p.name), zap.String("pipeline_id", p.id))
	for i := range p.stripes {
		p.stripes[i].last.Store(-1)
	}
	return p, nil
}

// Start opens the ring and starts the consumer. It is idempotent and has no
// effect once the pipeline was stopped.
func (p *Pipeline) Start() {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	if State(p.state.Load()) != StateNotStarted {
		return
	}
	p.ring.Start()
	p.state.Store(int32(StateRunning))
	go p.run()
}

// Stop drains the ring and stops the consumer. A timeout of zero or less
// uses the configured drain timeout. When the timeout passes first, the
// consumer is told to stop and Stop returns ErrDrainTimeout with the number
// of entries that were not delivered. Calling Stop again returns (0, nil).
func (p *Pipeline) Stop(timeout time.Duration) (int64, error) {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()

	switch State(p.state.Load()) {
	case StateStopped:
		return 0, nil
	case StateNotStarted:
		p.ring.Close()
		close(p.consumerDone)
		p.state.Store(int32(StateStopped))
		return 0, nil
	}
	if timeout <= 0 {
		timeout = p.drainTimeout
	}

	p.frontier.Store(p.ring.Claimed())
	p.state.Store(int32(StateDraining))
	close(p.drainCh)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var undelivered int64
	var err error
	select {
	case <-p.consumerDone:
	case <-timer.C:
		close(p.halt)
		claimed := p.ring.Close()
		undelivered = max(claimed-(p.ring.Consumed()+1), 0)
		err = fmt.Errorf("%w: %d entries undelivered", ErrDrainTimeout, undelivered)
		p.log.Error("drain timed out",
			zap.Duration("timeout", timeout),
			zap.Int64("undelivered", undelivered))
	}
	p.state.Store(int32(StateStopped))
	return undelivered, err
}

// Close stops the pipeline with the configured drain timeout and closes the
// downstream handler. Entries logged afterwards are counted and dropped.
// Close is idempotent.
//
// Close never waits on the downstream handler for more than a second drain
// timeout. If a write is still running by then, Close gives up with
// ErrDownstreamBusy and leaves the downstream handler open.
func (p *Pipeline) Close() error {
	_, err := p.Stop(p.drainTimeout)
	p.closedFlag.Store(true)

	if !p.lockDispatch(p.drainTimeout) {
		p.log.Error("downstream handler still busy, not closing it",
			zap.String("handler", p.downName),
			zap.Duration("timeout", p.drainTimeout))
		return multierr.Append(err, fmt.Errorf("%w: %s", ErrDownstreamBusy, p.downName))
	}
	defer p.dispatchMu.Unlock()
	if p.downClosed {
		return err
	}
	p.downClosed = true
	if p.flusher != nil {
		err = multierr.Append(err, p.flusher.Flush())
	}
	return multierr.Append(err, p.downstream.Close())
}

// lockDispatch acquires dispatchMu unless it stays held for longer than
// timeout.
func (p *Pipeline) lockDispatch(timeout time.Duration) bool {
	if p.dispatchMu.TryLock() {
		return true
	}
	deadline := time.Now().Add(timeout)
	backoff := 50 * time.Microsecond
	for !p.dispatchMu.TryLock() {
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(backoff)
		backoff = min(2*backoff, 5*time.Millisecond)
	}
	return true
}

// Handle enqueues a copy of entry. The caller keeps ownership of entry and
// may recycle it as soon as Handle returns. Handle never fails because of
// the pipeline's state; downstream errors of synchronous writes are
// returned.
func (p *Pipeline) Handle(entry *core.Entry) error {
	c, err := p.ring.TryClaim()
	switch err {
	case nil:
		p.publish(c, entry)
		return nil
	case ring.ErrFull:
		if p.policy.OnQueueFull(entry, p) == handler.Discarded {
			p.stats.IncrementDropped(entry.Level)
		}
		return nil
	default:
		// Not started yet, or already stopped.
		return p.DispatchSync(entry)
	}
}

// EnqueueTimeout implements handler.Queue.
func (p *Pipeline) EnqueueTimeout(entry *core.Entry, timeout time.Duration) error {
	p.stats.IncrementBlocked()
	c, err := p.ring.ClaimBlocking(timeout)
	switch {
	case err == nil:
		p.publish(c, entry)
		return nil
	case errors.Is(err, ring.ErrClaimTimeout):
		p.stats.IncrementClaimTimeout()
		return err
	default:
		return handler.ErrQueueStopped
	}
}

// DispatchSync implements handler.Queue. It waits until the entries already
// enqueued by the same producer have been dispatched, then writes entry on
// the calling goroutine. A downstream handler that keeps entries gets a
// copy, since the caller recycles entry once Handle returns.
func (p *Pipeline) DispatchSync(entry *core.Entry) error {
	if p.closedFlag.Load() {
		p.stats.IncrementPostShutdown()
		return nil
	}
	p.awaitProducer(entry.ThreadID)
	if !p.recycle {
		own := core.GetEntry()
		own.CopyFrom(entry)
		entry = own
	}
	if err := p.dispatch(entry); err != nil {
		return err
	}
	p.stats.IncrementSyncDispatched()
	return nil
}

func (p *Pipeline) publish(c ring.Claim[core.Entry], entry *core.Entry) {
	slot := c.Value()
	slot.CopyFrom(entry)
	slot.Sequence = c.Seq()
	p.ring.Publish(c)
	p.stripes[entry.ThreadID%numStripes].advance(c.Seq())
	p.stats.IncrementEnqueued()
}

// dispatch hands entry to the downstream handler, recovering panics. Errors
// are counted and reported on the status logger.
func (p *Pipeline) dispatch(entry *core.Entry) (err error) {
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()
	if p.downClosed {
		p.stats.IncrementPostShutdown()
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			var de *handler.DispatchError
			if !errors.As(err, &de) {
				err = &handler.DispatchError{Handler: p.downName, Sequence: entry.Sequence, Err: err}
			}
			p.stats.IncrementDispatchErrors()
			p.log.Warn("dispatch failed",
				zap.Int64("seq", entry.Sequence),
				zap.Stringer("level", entry.Level),
				zap.Error(err))
		}
	}()
	return p.downstream.Handle(entry)
}

func (p *Pipeline) flush() {
	if p.flusher == nil {
		return
	}
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()
	if p.downClosed {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.stats.IncrementDispatchErrors()
			p.log.Error("flush panicked", zap.Any("panic", r))
		}
	}()
	if err := p.flusher.Flush(); err != nil {
		p.stats.IncrementDispatchErrors()
		p.log.Warn("flush failed", zap.String("handler", p.downName), zap.Error(err))
	}
}

// Sync waits until every entry enqueued before the call has been
// dispatched, then flushes the downstream handler. It gives up with
// ErrDrainTimeout after the configured drain timeout.
func (p *Pipeline) Sync() error {
	if p.State() == StateRunning || p.State() == StateDraining {
		target := p.ring.Claimed() - 1
		if !p.awaitConsumed(target, time.Now().Add(p.drainTimeout)) {
			return fmt.Errorf("%w: %d entries pending", ErrDrainTimeout, p.Pending())
		}
	}
	if p.flusher == nil {
		return nil
	}
	p.dispatchMu.Lock()
	defer p.dispatchMu.Unlock()
	if p.downClosed {
		return nil
	}
	return p.flusher.Flush()
}

// CanRecycleEntry returns true: Handle copies the entry into the ring, and
// the synchronous paths copy it again for a downstream handler that keeps
// entries.
func (p *Pipeline) CanRecycleEntry() bool {
	return true
}

// Name returns the configured pipeline name.
func (p *Pipeline) Name() string { return p.name }

// ID returns the pipeline's unique instance ID.
func (p *Pipeline) ID() string { return p.id }

// State returns the current lifecycle state.
func (p *Pipeline) State() State { return State(p.state.Load()) }

// Capacity returns the ring size.
func (p *Pipeline) Capacity() int { return p.ring.Capacity() }

// RemainingCapacity returns the number of free ring slots.
func (p *Pipeline) RemainingCapacity() int64 { return p.ring.RemainingCapacity() }

// Pending returns the number of entries claimed but not yet dispatched.
func (p *Pipeline) Pending() int64 {
	return max(p.ring.Claimed()-(p.ring.Consumed()+1), 0)
}

// Stats returns a snapshot of the pipeline counters.
func (p *Pipeline) Stats() handler.Snapshot { return p.stats.GetSnapshot() }

// Counters returns the live counters.
func (p *Pipeline) Counters() *handler.Stats { return p.stats }

// Handler returns the downstream handler.
func (p *Pipeline) Handler() handler.Handler { return p.downstream }
