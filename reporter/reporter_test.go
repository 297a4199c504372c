package reporter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/handler/asynchandler"
)

type fakeSource struct {
	name    string
	snap    handler.Snapshot
	pending int64
}

func (f *fakeSource) Name() string            { return f.name }
func (f *fakeSource) Stats() handler.Snapshot { return f.snap }
func (f *fakeSource) Pending() int64          { return f.pending }

func TestNew_RejectsBadSchedules(t *testing.T) {
	_, err := New("", nil)
	assert.ErrorIs(t, err, ErrNoSchedule)

	_, err = New("every minute", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid report schedule")

	r, err := New("@every 1m", nil)
	require.NoError(t, err)
	assert.False(t, r.IsRunning())
	assert.True(t, r.NextRun().IsZero())
}

func TestReport_TotalsAndDeltas(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	src := &fakeSource{
		name:    "app",
		pending: 3,
		snap:    handler.Snapshot{EnqueuedTotal: 10, ProcessedTotal: 7},
	}
	r, err := New("@every 1m", zap.New(obs), src)
	require.NoError(t, err)

	r.Report()
	src.snap = handler.Snapshot{EnqueuedTotal: 25, ProcessedTotal: 25}
	r.Report()

	entries := logs.FilterMessage("pipeline stats").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)

	second := entries[1].ContextMap()
	assert.Equal(t, "app", second["pipeline"])
	assert.Equal(t, uint64(25), second["enqueued"])
	assert.Equal(t, uint64(15), second["enqueued_delta"])
	assert.Equal(t, uint64(18), second["processed_delta"])
	assert.Equal(t, 2, r.Runs())
}

func TestReport_WarnsOnNewDrops(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	src := &fakeSource{name: "app"}
	r, err := New("@every 1m", zap.New(obs), src)
	require.NoError(t, err)

	r.Report()
	src.snap = handler.Snapshot{DroppedTotal: map[core.Level]uint64{core.DebugLevel: 4}}
	r.Report()
	// No new drops since the previous report.
	r.Report()

	entries := logs.FilterMessage("pipeline stats").All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, uint64(4), entries[1].ContextMap()["dropped_delta"])
	assert.Equal(t, zapcore.InfoLevel, entries[2].Level)
}

func TestReporter_StartStop(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	src := &fakeSource{name: "app"}
	r, err := New("@every 1s", zap.New(obs))
	require.NoError(t, err)
	r.Add(src)

	require.NoError(t, r.Start())
	require.NoError(t, r.Start())
	assert.True(t, r.IsRunning())
	assert.False(t, r.NextRun().IsZero())

	require.Eventually(t, func() bool { return r.Runs() > 0 }, 5*time.Second, 50*time.Millisecond)

	r.Stop()
	r.Stop()
	assert.False(t, r.IsRunning())
	assert.Equal(t, 1, logs.FilterMessage("stats reporter stopped").Len())
}

func TestReport_LivePipeline(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	p, err := asynchandler.New(asynchandler.Config{
		Handler:  handler.NewMultiHandler(),
		Name:     "live",
		Capacity: 16,
	})
	require.NoError(t, err)
	p.Start()

	r, err := New("@every 1m", zap.New(obs), p)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		e := core.GetEntry()
		e.Level = core.InfoLevel
		e.Message = "x"
		require.NoError(t, p.Handle(e))
	}
	_, err = p.Stop(time.Second)
	require.NoError(t, err)

	r.Report()
	entry := logs.FilterMessage("pipeline stats").All()[0]
	assert.Equal(t, "live", entry.ContextMap()["pipeline"])
	assert.Equal(t, uint64(5), entry.ContextMap()["processed"])
}
