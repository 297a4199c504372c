package reporter

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/philipp01105/ringlog/handler"
)

// ErrNoSchedule is returned by New for an empty schedule.
var ErrNoSchedule = errors.New("reporter: empty schedule")

// Source is a pipeline whose statistics are reported.
// *asynchandler.Pipeline implements it.
type Source interface {
	Name() string
	Stats() handler.Snapshot
	Pending() int64
}

// Reporter logs a statistics line per source every time its schedule fires.
// Counters are reported both as totals and as deltas since the previous
// report.
type Reporter struct {
	schedule string
	cron     *cron.Cron
	logger   *zap.Logger

	mu      sync.Mutex
	sources []Source
	last    map[Source]handler.Snapshot
	running bool
	runs    int
}

// New creates a reporter for the given schedule. The schedule is validated
// here so that Start cannot fail on syntax.
func New(schedule string, logger *zap.Logger, sources ...Source) (*Reporter, error) {
	if schedule == "" {
		return nil, ErrNoSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("invalid report schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger,
		sources:  sources,
		last:     make(map[Source]handler.Snapshot, len(sources)),
	}, nil
}

// Add registers another source.
func (r *Reporter) Add(src Source) {
	r.mu.Lock()
	r.sources = append(r.sources, src)
	r.mu.Unlock()
}

// Start schedules the report job. Calling Start on a running reporter is a
// no-op.
func (r *Reporter) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}
	if _, err := r.cron.AddFunc(r.schedule, r.Report); err != nil {
		return fmt.Errorf("failed to schedule report: %w", err)
	}
	r.cron.Start()
	r.running = true

	r.logger.Info("stats reporter started", zap.String("schedule", r.schedule))
	return nil
}

// Stop halts the schedule and waits for a running report to finish.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	r.running = false
	r.mu.Unlock()

	// Report takes r.mu, so the wait happens outside the lock.
	<-r.cron.Stop().Done()
	r.logger.Info("stats reporter stopped")
}

// IsRunning reports whether the schedule is active.
func (r *Reporter) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// NextRun returns the next scheduled report time, or the zero time when the
// reporter is not running.
func (r *Reporter) NextRun() time.Time {
	entries := r.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Runs returns how many reports have been written.
func (r *Reporter) Runs() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runs
}

// Report logs the current statistics of every source immediately.
func (r *Reporter) Report() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, src := range r.sources {
		cur := src.Stats()
		prev := r.last[src]
		r.last[src] = cur

		fields := []zap.Field{
			zap.String("pipeline", src.Name()),
			zap.Int64("pending", src.Pending()),
			zap.Uint64("enqueued", cur.EnqueuedTotal),
			zap.Uint64("processed", cur.ProcessedTotal),
			zap.Uint64("dropped", cur.Dropped()),
			zap.Uint64("enqueued_delta", cur.EnqueuedTotal-prev.EnqueuedTotal),
			zap.Uint64("processed_delta", cur.ProcessedTotal-prev.ProcessedTotal),
			zap.Uint64("dropped_delta", cur.Dropped()-prev.Dropped()),
			zap.Uint64("blocked", cur.BlockedTotal),
			zap.Uint64("sync_dispatched", cur.SyncDispatched),
			zap.Uint64("dispatch_errors", cur.DispatchErrors),
		}

		// Loss or sink failures since the last report are worth a warning.
		if cur.Dropped() > prev.Dropped() || cur.DispatchErrors > prev.DispatchErrors {
			r.logger.Warn("pipeline stats", fields...)
			continue
		}
		r.logger.Info("pipeline stats", fields...)
	}
	r.runs++
}
