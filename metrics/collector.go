package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/philipp01105/ringlog/core"
	"github.com/philipp01105/ringlog/handler"
	"github.com/philipp01105/ringlog/handler/asynchandler"
)

// Source is a pipeline whose statistics are exported.
// *asynchandler.Pipeline implements it.
type Source interface {
	Name() string
	Stats() handler.Snapshot
	Capacity() int
	Pending() int64
	State() asynchandler.State
}

// Collector is a prometheus.Collector over registered sources.
type Collector struct {
	registry *prometheus.Registry

	mu      sync.RWMutex
	sources []Source

	enqueued       *prometheus.Desc
	processed      *prometheus.Desc
	dropped        *prometheus.Desc
	blocked        *prometheus.Desc
	claimTimeouts  *prometheus.Desc
	syncDispatched *prometheus.Desc
	dispatchErrors *prometheus.Desc
	postShutdown   *prometheus.Desc
	capacity       *prometheus.Desc
	pending        *prometheus.Desc
	state          *prometheus.Desc
}

// NewCollector creates a collector and registers it with registry. If
// registry is nil a new one is created.
func NewCollector(namespace string, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	labels := []string{"pipeline"}
	desc := func(name, help string, extra ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, append(labels, extra...), nil)
	}

	c := &Collector{
		registry:       registry,
		enqueued:       desc("enqueued_total", "Entries published to the ring."),
		processed:      desc("processed_total", "Entries dispatched by the consumer."),
		dropped:        desc("dropped_total", "Entries discarded because the ring was full.", "level"),
		blocked:        desc("blocked_total", "Producers that waited for a free slot."),
		claimTimeouts:  desc("claim_timeouts_total", "Waits for a free slot that hit their deadline."),
		syncDispatched: desc("sync_dispatched_total", "Entries written on the producer goroutine."),
		dispatchErrors: desc("dispatch_errors_total", "Downstream handler failures and panics."),
		postShutdown:   desc("post_shutdown_total", "Entries logged after the pipeline was closed."),
		capacity:       desc("ring_capacity", "Number of ring slots."),
		pending:        desc("ring_pending", "Entries claimed but not yet consumed."),
		state:          desc("pipeline_state", "Lifecycle state: 0 not started, 1 running, 2 draining, 3 stopped."),
	}
	registry.MustRegister(c)
	return c
}

// Add exports src.
func (c *Collector) Add(src Source) {
	c.mu.Lock()
	c.sources = append(c.sources, src)
	c.mu.Unlock()
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range []*prometheus.Desc{
		c.enqueued, c.processed, c.dropped, c.blocked, c.claimTimeouts,
		c.syncDispatched, c.dispatchErrors, c.postShutdown,
		c.capacity, c.pending, c.state,
	} {
		ch <- d
	}
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.mu.RLock()
	sources := append([]Source(nil), c.sources...)
	c.mu.RUnlock()

	for _, src := range sources {
		name := src.Name()
		s := src.Stats()
		counter := func(d *prometheus.Desc, v uint64) {
			ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), name)
		}
		counter(c.enqueued, s.EnqueuedTotal)
		counter(c.processed, s.ProcessedTotal)
		counter(c.blocked, s.BlockedTotal)
		counter(c.claimTimeouts, s.ClaimTimeouts)
		counter(c.syncDispatched, s.SyncDispatched)
		counter(c.dispatchErrors, s.DispatchErrors)
		counter(c.postShutdown, s.PostShutdown)
		for i := 0; i < core.NumLevels; i++ {
			lvl := core.Level(i)
			ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue,
				float64(s.DroppedTotal[lvl]), name, lvl.String())
		}

		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(src.Capacity()), name)
		ch <- prometheus.MustNewConstMetric(c.pending, prometheus.GaugeValue, float64(src.Pending()), name)
		ch <- prometheus.MustNewConstMetric(c.state, prometheus.GaugeValue, float64(src.State()), name)
	}
}

// Registry returns the registry the collector is registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns an HTTP handler for the Prometheus metrics endpoint.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	})
}
