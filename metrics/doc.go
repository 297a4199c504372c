// Package metrics exports pipeline statistics to Prometheus.
//
// A Collector reads each registered source's counters at scrape time, so
// the logging hot path does no extra work for metrics:
//
//	c := metrics.NewCollector("ringlog", nil)
//	c.Add(pipeline)
//	http.Handle("/metrics", c.Handler())
package metrics
