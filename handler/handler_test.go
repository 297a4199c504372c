package handler

import (
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/multierr"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/ring"
)

// recorder is a synchronous Handler that keeps copies of what it receives.
type recorder struct {
	mu      sync.Mutex
	entries []core.Entry
	err     error
	flushed int
	closed  bool
}

func (r *recorder) Handle(e *core.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var c core.Entry
	c.CopyFrom(e)
	r.entries = append(r.entries, c)
	return r.err
}

func (r *recorder) Flush() error {
	r.mu.Lock()
	r.flushed++
	r.mu.Unlock()
	return nil
}

func (r *recorder) Close() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	return r.err
}

func (r *recorder) CanRecycleEntry() bool { return true }

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.entries))
	for i := range r.entries {
		out[i] = r.entries[i].RenderedMessage()
	}
	return out
}

// fakeQueue scripts EnqueueTimeout results and records sync dispatches.
type fakeQueue struct {
	enqueueErr error
	timeouts   []time.Duration
	sync       []string
}

func (q *fakeQueue) EnqueueTimeout(_ *core.Entry, timeout time.Duration) error {
	q.timeouts = append(q.timeouts, timeout)
	return q.enqueueErr
}

func (q *fakeQueue) DispatchSync(e *core.Entry) error {
	q.sync = append(q.sync, e.Message)
	return nil
}

func entryAt(level core.Level, msg string) *core.Entry {
	return &core.Entry{Level: level, Message: msg, Sequence: -1}
}

func TestBlockingPolicy(t *testing.T) {
	tests := []struct {
		name        string
		policy      BlockingPolicy
		enqueueErr  error
		want        Outcome
		wantTimeout time.Duration
		wantSync    int
	}{
		{"enqueued", BlockingPolicy{Timeout: time.Second}, nil, Enqueued, time.Second, 0},
		{"unbounded", BlockingPolicy{}, nil, Enqueued, -1, 0},
		{"deadline", BlockingPolicy{Timeout: time.Millisecond}, ring.ErrClaimTimeout, Discarded, time.Millisecond, 0},
		{"deadline then sync", BlockingPolicy{Timeout: time.Millisecond, SyncOnTimeout: true}, ring.ErrClaimTimeout, HandledSynchronously, time.Millisecond, 1},
		{"stopped", BlockingPolicy{}, ErrQueueStopped, HandledSynchronously, -1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{enqueueErr: tt.enqueueErr}
			got := tt.policy.OnQueueFull(entryAt(core.InfoLevel, "m"), q)
			if got != tt.want {
				t.Errorf("OnQueueFull() = %v, want %v", got, tt.want)
			}
			if len(q.timeouts) != 1 || q.timeouts[0] != tt.wantTimeout {
				t.Errorf("EnqueueTimeout calls = %v, want [%v]", q.timeouts, tt.wantTimeout)
			}
			if len(q.sync) != tt.wantSync {
				t.Errorf("sync dispatches = %d, want %d", len(q.sync), tt.wantSync)
			}
		})
	}
}

func TestDiscardByLevelPolicy(t *testing.T) {
	p, err := NewDiscardByLevelPolicy(core.WarnLevel, nil)
	if err != nil {
		t.Fatal(err)
	}
	q := &fakeQueue{}

	for _, lvl := range []core.Level{core.TraceLevel, core.DebugLevel, core.InfoLevel} {
		if got := p.OnQueueFull(entryAt(lvl, "m"), q); got != Discarded {
			t.Errorf("%v: OnQueueFull() = %v, want Discarded", lvl, got)
		}
	}
	if len(q.timeouts) != 0 {
		t.Errorf("dropped levels must not wait, got %d waits", len(q.timeouts))
	}

	for _, lvl := range []core.Level{core.WarnLevel, core.ErrorLevel, core.FatalLevel} {
		if got := p.OnQueueFull(entryAt(lvl, "m"), q); got != Enqueued {
			t.Errorf("%v: OnQueueFull() = %v, want Enqueued", lvl, got)
		}
	}
	// The default fallback blocks without deadline.
	for _, d := range q.timeouts {
		if d != -1 {
			t.Errorf("fallback timeout = %v, want -1", d)
		}
	}
}

func TestNewDiscardByLevelPolicy_RejectsAboveError(t *testing.T) {
	if _, err := NewDiscardByLevelPolicy(core.FatalLevel, nil); err == nil {
		t.Error("expected threshold FATAL to be rejected")
	}
	if _, err := NewDiscardByLevelPolicy(core.Level(-3), nil); err == nil {
		t.Error("expected invalid threshold to be rejected")
	}
	if _, err := NewDiscardByLevelPolicy(core.ErrorLevel, nil); err != nil {
		t.Errorf("threshold ERROR: %v", err)
	}
}

func TestSyncFallbackPolicy(t *testing.T) {
	q := &fakeQueue{}
	if got := (SyncFallbackPolicy{}).OnQueueFull(entryAt(core.DebugLevel, "sync"), q); got != HandledSynchronously {
		t.Errorf("OnQueueFull() = %v, want HandledSynchronously", got)
	}
	if len(q.sync) != 1 || q.sync[0] != "sync" {
		t.Errorf("sync dispatches = %v", q.sync)
	}
	if len(q.timeouts) != 0 {
		t.Error("sync fallback must not try to enqueue")
	}
}

func TestNewPolicy(t *testing.T) {
	p, err := NewPolicy(DefaultPolicyConfig())
	if err != nil {
		t.Fatal(err)
	}
	d, ok := p.(*DiscardByLevelPolicy)
	if !ok {
		t.Fatalf("default policy = %T, want *DiscardByLevelPolicy", p)
	}
	if d.Threshold != core.ErrorLevel {
		t.Errorf("default threshold = %v, want ERROR", d.Threshold)
	}
	if fb, ok := d.Fallback.(BlockingPolicy); !ok || !fb.SyncOnTimeout {
		t.Errorf("default fallback = %#v, want BlockingPolicy with SyncOnTimeout", d.Fallback)
	}

	p, _ = NewPolicy(PolicyConfig{Kind: PolicyBlocking, BlockTimeout: time.Second})
	if bp, ok := p.(BlockingPolicy); !ok || bp.Timeout != time.Second {
		t.Errorf("blocking policy = %#v", p)
	}
	p, _ = NewPolicy(PolicyConfig{Kind: PolicySync})
	if _, ok := p.(SyncFallbackPolicy); !ok {
		t.Errorf("sync policy = %T", p)
	}
	if _, err := NewPolicy(PolicyConfig{Kind: PolicyKind(9)}); err == nil {
		t.Error("expected unknown kind to fail")
	}
	if _, err := NewPolicy(PolicyConfig{Kind: PolicyDiscard, Threshold: core.FatalLevel}); err == nil {
		t.Error("expected threshold FATAL to fail")
	}
}

func TestParsePolicyKind(t *testing.T) {
	for _, k := range []PolicyKind{PolicyBlocking, PolicyDiscard, PolicySync} {
		got, err := ParsePolicyKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParsePolicyKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParsePolicyKind("drop-oldest"); err == nil {
		t.Error("expected unknown policy to fail")
	}
}

func TestStats(t *testing.T) {
	s := NewStats()
	s.IncrementDropped(core.DebugLevel)
	s.IncrementDropped(core.InfoLevel)
	s.IncrementDropped(core.InfoLevel)
	s.IncrementProcessed()
	s.IncrementBlocked()
	s.IncrementEnqueued()
	s.IncrementClaimTimeout()
	s.IncrementSyncDispatched()
	s.IncrementDispatchErrors()
	s.IncrementPostShutdown()

	if got := s.GetTotalDropped(); got != 3 {
		t.Errorf("GetTotalDropped() = %d, want 3", got)
	}
	snap := s.GetSnapshot()
	if snap.DroppedTotal[core.InfoLevel] != 2 || snap.Dropped() != 3 {
		t.Errorf("snapshot dropped = %v", snap.DroppedTotal)
	}
	if snap.ProcessedTotal != 1 || snap.BlockedTotal != 1 || snap.EnqueuedTotal != 1 ||
		snap.ClaimTimeouts != 1 || snap.SyncDispatched != 1 || snap.DispatchErrors != 1 || snap.PostShutdown != 1 {
		t.Errorf("unexpected snapshot %+v", snap)
	}

	s.Reset()
	if s.GetTotalDropped() != 0 || s.GetProcessed() != 0 || s.GetBlocked() != 0 {
		t.Error("Reset() left counters set")
	}
}

// TestConcurrentStats verifies stats are thread-safe
func TestConcurrentStats(t *testing.T) {
	s := NewStats()
	const numGoroutines = 10
	const perGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perGoroutine; j++ {
				s.IncrementProcessed()
				s.IncrementDropped(core.WarnLevel)
				_ = s.GetSnapshot()
			}
		}()
	}
	wg.Wait()

	if got := s.GetProcessed(); got != numGoroutines*perGoroutine {
		t.Errorf("processed = %d, want %d", got, numGoroutines*perGoroutine)
	}
	if got := s.GetDropped(core.WarnLevel); got != numGoroutines*perGoroutine {
		t.Errorf("dropped = %d, want %d", got, numGoroutines*perGoroutine)
	}
}

func TestMultiHandler(t *testing.T) {
	h1, h2 := &recorder{}, &recorder{}
	multi := NewMultiHandler(h1, h2)

	if err := multi.Handle(entryAt(core.InfoLevel, "multi test")); err != nil {
		t.Errorf("Handle() error = %v", err)
	}
	if got := h1.messages(); len(got) != 1 || got[0] != "multi test" {
		t.Error("First handler did not receive message")
	}
	if got := h2.messages(); len(got) != 1 || got[0] != "multi test" {
		t.Error("Second handler did not receive message")
	}
	if !multi.CanRecycleEntry() {
		t.Error("multi over recycling children should recycle")
	}

	if err := multi.Flush(); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
	if h1.flushed != 1 || h2.flushed != 1 {
		t.Error("Flush() did not reach every child")
	}
	if err := multi.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if !h1.closed || !h2.closed {
		t.Error("Close() did not reach every child")
	}
}

type nonRecycling struct{ recorder }

func (n *nonRecycling) CanRecycleEntry() bool { return false }

func TestMultiHandler_ErrorsCombined(t *testing.T) {
	errA, errB := errors.New("a failed"), errors.New("b failed")
	a, b, ok := &recorder{err: errA}, &recorder{err: errB}, &recorder{}
	multi := NewMultiHandler(a, ok, b)

	e := entryAt(core.ErrorLevel, "x")
	e.Sequence = 7
	err := multi.Handle(e)
	if len(multierr.Errors(err)) != 2 {
		t.Fatalf("expected 2 combined errors, got %v", err)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("combined error lost a cause: %v", err)
	}
	var de *DispatchError
	if !errors.As(err, &de) || de.Sequence != 7 {
		t.Errorf("expected a DispatchError for seq 7, got %v", err)
	}
	if len(ok.messages()) != 1 {
		t.Error("a failing child must not stop the others")
	}

	if err := multi.Close(); len(multierr.Errors(err)) != 2 {
		t.Errorf("Close() = %v, want 2 errors", err)
	}

	if NewMultiHandler(&recorder{}, &nonRecycling{}).CanRecycleEntry() {
		t.Error("one non-recycling child must disable recycling")
	}
}

func TestDispatchError(t *testing.T) {
	cause := errors.New("disk full")
	err := &DispatchError{Handler: "file", Sequence: 3, Err: cause}
	if !errors.Is(err, cause) {
		t.Error("DispatchError must unwrap to its cause")
	}
	if got := err.Error(); got != "dispatch seq 3 to file: disk full" {
		t.Errorf("Error() = %q", got)
	}
	syncErr := &DispatchError{Handler: "file", Sequence: -1, Err: cause}
	if got := syncErr.Error(); got != "dispatch to file: disk full" {
		t.Errorf("Error() = %q", got)
	}
}
